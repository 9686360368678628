//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based UI components. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"

	"rangecard/internal/editor"
)

func selectionRects(objs []fyne.CanvasObject) int {
	n := 0
	for _, o := range objs {
		if r, ok := o.(*canvas.Rectangle); ok && r.StrokeColor == selectionColor {
			n++
		}
	}
	return n
}

func TestCardCanvas_HighlightsSelection(t *testing.T) {
	test.NewApp()
	c := editor.New(editor.Options{})
	c.AddSizedObject()
	cc := NewCardCanvas(c)
	r, ok := cc.CreateRenderer().(*cardCanvasRenderer)
	if !ok {
		t.Fatalf("expected cardCanvasRenderer, got %T", cc.CreateRenderer())
	}
	r.Layout(fyne.NewSize(800, 1000))
	if got := selectionRects(r.Objects()); got != 1 {
		t.Fatalf("expected one selection outline, got %d", got)
	}
	if r.Objects()[0] != r.bg || r.Objects()[1] != r.page {
		t.Fatalf("background and page must be drawn first")
	}
}

func TestCardCanvas_TapAndDrag(t *testing.T) {
	test.NewApp()
	c := editor.New(editor.Options{})
	circle := c.AddCircle()
	obj := c.AddSizedObject()
	if err := c.SetField(editor.FieldOffsetX, "60"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	cc := NewCardCanvas(c)
	cc.Resize(fyne.NewSize(800, 1000))
	cc.view.resize(800, 1000)

	x, y := screenPoint(t, c, cc.view, circle)
	cc.Tapped(&fyne.PointEvent{Position: fyne.NewPos(x, y)})
	if c.Selected() != circle {
		t.Fatalf("tap should select the circle, got %q", c.Selected())
	}

	x, y = screenPoint(t, c, cc.view, obj)
	cc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x+6, y)}, Dragged: fyne.NewDelta(6, 0)})
	cc.DragEnd()
	if got := thing(t, c, obj).OffsetX; !near(got, 62) {
		t.Fatalf("OffsetX = %v, want 62", got)
	}
	if c.Selected() != obj {
		t.Fatalf("dragging should select the dragged thing")
	}
}
