/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"math"
	"testing"

	"rangecard/internal/render"
)

// 600 px across a 120 mm card: 5 px per mm.
const testCardPx = 600

func TestDragClampsToBounds(t *testing.T) {
	c, st := newTestController(t)
	id := c.AddSizedObject()
	saves := st.Saves()
	var previews, commits int
	c.Subscribe(func(e Event) {
		switch e.Kind {
		case EventPreview:
			previews++
		case EventCommit:
			commits++
		}
	})
	if err := c.BeginDrag(id, 100, 100); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if c.Dragging() != id {
		t.Fatalf("expected drag of %q", id)
	}
	p, ok := c.DragMove(id, 100-5*1000, 100, testCardPx)
	if !ok || p.OffsetX != MinOffsetX {
		t.Fatalf("expected clamp to %v, got %+v", MinOffsetX, p)
	}
	p, _ = c.DragMove(id, 100+5*1000, 100+5*1000, testCardPx)
	if p.OffsetX != MaxOffsetX || p.OffsetY != MaxOffsetY {
		t.Fatalf("expected clamp to (%v,%v), got %+v", MaxOffsetX, MaxOffsetY, p)
	}
	if previews != 2 || commits != 0 || st.Saves() != saves {
		t.Fatalf("moves must only preview: previews=%d commits=%d saves=%d", previews, commits, st.Saves()-saves)
	}
	if !c.EndDrag(id) {
		t.Fatalf("end drag failed")
	}
	if commits != 1 || st.Saves() != saves+1 || c.Dragging() != "" {
		t.Fatalf("drag end must commit and save once: commits=%d", commits)
	}
	if p := c.Panel(); p.OffsetX != 115 || p.OffsetY != 60 {
		t.Fatalf("panel not updated: %+v", p)
	}
}

func TestDragMovesByPixelScale(t *testing.T) {
	c, _ := newTestController(t)
	id := c.AddCircle()
	_ = c.BeginDrag(id, 10, 10)
	p, _ := c.DragMove(id, 10+5*12.5, 10-5*3, testCardPx)
	if math.Abs(p.OffsetX-12.5) > 1e-9 || math.Abs(p.OffsetY+3) > 1e-9 {
		t.Fatalf("unexpected offsets %+v", p)
	}
	label := c.Sheet().Subcard(id).Children[0]
	want := render.CardOrigin(0).X + 12.5
	if math.Abs(label.Box.X-want) > 1e-9 {
		t.Fatalf("preview not applied to sheet: label x=%v want %v", label.Box.X, want)
	}
	c.EndDrag(id)
}

func TestDragIsOneUndoStep(t *testing.T) {
	c, _ := newTestController(t)
	id := c.AddSizedObject()
	_ = c.BeginDrag(id, 0, 0)
	for i := 1; i <= 10; i++ {
		c.DragMove(id, float64(i*5), float64(i*5), testCardPx)
	}
	c.EndDrag(id)
	card := c.Card()
	if th := card.Find(id); th.OffsetX != 10 || th.OffsetY != 10 {
		t.Fatalf("unexpected final offsets %+v", th)
	}
	c.Undo()
	card = c.Card()
	if th := card.Find(id); th.OffsetX != 0 || th.OffsetY != 0 {
		t.Fatalf("one undo must restore the pre-drag position, got %+v", th)
	}
}

func TestDragOnlyOwnerMoves(t *testing.T) {
	c, _ := newTestController(t)
	a := c.AddSizedObject()
	b := c.AddCircle()
	if _, ok := c.DragMove(a, 50, 50, testCardPx); ok {
		t.Fatalf("move without drag must be ignored")
	}
	_ = c.BeginDrag(a, 0, 0)
	if c.Selected() != a {
		t.Fatalf("drag start must select the thing")
	}
	if _, ok := c.DragMove(b, 50, 50, testCardPx); ok {
		t.Fatalf("move of a thing that is not dragged must be ignored")
	}
	if c.EndDrag(b) {
		t.Fatalf("end of a thing that is not dragged must be ignored")
	}
	if err := c.BeginDrag("missing", 0, 0); err == nil {
		t.Fatalf("expected error for unknown thing")
	}
}

func TestEditDuringDragEndsIt(t *testing.T) {
	c, _ := newTestController(t)
	id := c.AddSizedObject()
	_ = c.BeginDrag(id, 0, 0)
	_ = c.SetCordLength(500)
	if c.Dragging() != "" {
		t.Fatalf("a committed edit must end the drag")
	}
	if _, ok := c.DragMove(id, 10, 10, testCardPx); ok {
		t.Fatalf("stale drag must not move")
	}
}
