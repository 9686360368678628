/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"math"
	"testing"

	"rangecard/internal/domain"
	"rangecard/internal/editor"
	"rangecard/internal/geometry"
	"rangecard/internal/render"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func testView() *viewport {
	v := newViewport()
	v.resize(800, 1000)
	return v
}

// screenPoint returns a point inside the subcard of id.
func screenPoint(t *testing.T, c *editor.Controller, v *viewport, id string) (float32, float32) {
	t.Helper()
	sc := c.Sheet().Subcard(id)
	if sc == nil {
		t.Fatalf("no subcard for %s", id)
	}
	return v.toScreen(geometry.Pt{X: sc.Box.X + 1, Y: sc.Box.Y + 1})
}

func thing(t *testing.T, c *editor.Controller, id string) domain.Thing {
	t.Helper()
	card := c.Card()
	th := card.Find(id)
	if th == nil {
		t.Fatalf("thing %s missing", id)
	}
	return *th
}

func TestViewportRoundTrip(t *testing.T) {
	v := testView()
	v.pan(17, -9)
	p := geometry.Pt{X: 52.5, Y: 130.25}
	x, y := v.toScreen(p)
	q := v.toSheet(x, y)
	if !near(p.X, q.X) || !near(p.Y, q.Y) {
		t.Fatalf("round trip %v -> %v", p, q)
	}
	if got := v.cardWidthPx(); got != render.CardWidth*defaultZoom {
		t.Fatalf("cardWidthPx = %v", got)
	}
}

func TestViewportZoomLimits(t *testing.T) {
	v := testView()
	v.zoomBy(100)
	if v.zoom != maxZoom {
		t.Fatalf("zoom = %v, want %v", v.zoom, maxZoom)
	}
	v.zoomBy(-100)
	if v.zoom != minZoom {
		t.Fatalf("zoom = %v, want %v", v.zoom, minZoom)
	}
	v.pan(5, 5)
	v.fit()
	if v.offX != 0 || v.offY != 0 {
		t.Fatalf("fit must clear the pan")
	}
	if _, _, _, h := v.rect(geometry.R(0, 0, render.SheetWidth, render.SheetHeight)); h > v.h {
		t.Fatalf("fitted sheet taller than widget: %v > %v", h, v.h)
	}
}

func TestTapSelectsThing(t *testing.T) {
	c := editor.New(editor.Options{})
	v := testView()
	g := &gesture{ctrl: c, view: v}
	circle := c.AddCircle()
	obj := c.AddSizedObject()
	if err := c.SetField(editor.FieldOffsetX, "60"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if c.Selected() != obj {
		t.Fatalf("new object should be selected")
	}

	x, y := screenPoint(t, c, v, circle)
	if !g.tap(x, y) || c.Selected() != circle {
		t.Fatalf("tap did not select the circle, selected %q", c.Selected())
	}
	// empty space keeps the selection
	if g.tap(1, 1) || c.Selected() != circle {
		t.Fatalf("tap on empty space changed the selection")
	}
}

func TestDragMovesThing(t *testing.T) {
	c := editor.New(editor.Options{})
	v := testView()
	g := &gesture{ctrl: c, view: v}
	id := c.AddSizedObject()

	x, y := screenPoint(t, c, v, id)
	g.drag(x+15, y+6, 15, 6)
	g.drag(x+30, y+15, 15, 9)
	if c.Dragging() != id {
		t.Fatalf("expected active drag of %s", id)
	}
	if !g.end() {
		t.Fatalf("end should report a move")
	}
	th := thing(t, c, id)
	if !near(th.OffsetX, 10) || !near(th.OffsetY, 5) {
		t.Fatalf("offset = %v,%v want 10,5", th.OffsetX, th.OffsetY)
	}
	if c.Dragging() != "" {
		t.Fatalf("drag still active")
	}
	if !c.Undo() {
		t.Fatalf("undo failed")
	}
	if th := thing(t, c, id); th.OffsetX != 0 || th.OffsetY != 0 {
		t.Fatalf("one undo should restore the start position, got %v,%v", th.OffsetX, th.OffsetY)
	}
}

func TestDragOnEmptySpacePans(t *testing.T) {
	c := editor.New(editor.Options{})
	v := testView()
	g := &gesture{ctrl: c, view: v}
	id := c.AddSizedObject()

	g.drag(11, 12, 10, 10)
	g.drag(21, 32, 10, 20)
	if g.end() {
		t.Fatalf("pan must not report a move")
	}
	if v.offX != 20 || v.offY != 30 {
		t.Fatalf("pan offset = %v,%v", v.offX, v.offY)
	}
	if th := thing(t, c, id); th.OffsetX != 0 || th.OffsetY != 0 {
		t.Fatalf("pan moved the thing")
	}
	if c.Dragging() != "" {
		t.Fatalf("pan started a drag")
	}
}

func TestDragEndedByEditGoesStale(t *testing.T) {
	c := editor.New(editor.Options{})
	v := testView()
	g := &gesture{ctrl: c, view: v}
	id := c.AddSizedObject()

	x, y := screenPoint(t, c, v, id)
	g.drag(x+3, y+3, 3, 3)
	if err := c.SetField(editor.FieldName, "Truck"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	before := thing(t, c, id).OffsetX
	offX := v.offX
	g.drag(x+60, y+60, 57, 57)
	if g.mode != dragStale {
		t.Fatalf("mode = %v, want stale", g.mode)
	}
	if thing(t, c, id).OffsetX != before || v.offX != offX {
		t.Fatalf("stale drag must neither move nor pan")
	}
	if g.end() {
		t.Fatalf("stale drag must not report a move")
	}
}
