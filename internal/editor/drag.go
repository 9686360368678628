/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	"rangecard/internal/domain"
	"rangecard/internal/geometry"
	"rangecard/internal/render"
)

// Drag bounds in card millimeters. Things may overshoot the printable card edge.
const (
	MinOffsetX = -20.0
	MaxOffsetX = 115.0
	MinOffsetY = -20.0
	MaxOffsetY = 60.0
)

// dragState is the Dragging state; a nil pointer means Idle.
type dragState struct {
	id             string
	startX, startY float64
	origX, origY   float64
}

// Dragging returns the id of the thing being dragged, or "".
func (c *Controller) Dragging() string {
	if c.drag == nil {
		return ""
	}
	return c.drag.id
}

// BeginDrag starts dragging id from pointer position x,y (pixels). The thing is
// selected and the pre-drag state becomes the single undo step of the drag.
func (c *Controller) BeginDrag(id string, x, y float64) error {
	t := c.card.Find(id)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrUnknownThing, id)
	}
	if c.selected != id {
		_ = c.Select(id)
	}
	c.hist.Record(c.snapshot())
	c.drag = &dragState{id: id, startX: x, startY: y, origX: t.OffsetX, origY: t.OffsetY}
	c.log.Debug("drag start", slog.String("thing", id))
	return nil
}

// DragMove moves the dragged thing to follow the pointer. cardWidthPx is the
// on-screen width of the card and sets the pixel to millimeter scale. Only the
// owner of the active drag moves; the sheet is patched with a preview, not re-rendered.
func (c *Controller) DragMove(id string, x, y, cardWidthPx float64) (render.Preview, bool) {
	d := c.drag
	if d == nil || d.id != id || !domain.Positive(cardWidthPx) || !domain.Finite(x) || !domain.Finite(y) {
		return render.Preview{}, false
	}
	t := c.card.Find(id)
	if t == nil {
		c.drag = nil
		return render.Preview{}, false
	}
	pxPerMm := cardWidthPx / render.CardWidth
	t.OffsetX = geometry.Clamp(d.origX+(x-d.startX)/pxPerMm, MinOffsetX, MaxOffsetX)
	t.OffsetY = geometry.Clamp(d.origY+(y-d.startY)/pxPerMm, MinOffsetY, MaxOffsetY)

	p := render.Preview{ThingID: id, OffsetX: t.OffsetX, OffsetY: t.OffsetY}
	render.ApplyPreview(c.sheet, p)
	c.refreshPanel()
	c.emit(Event{Kind: EventPreview, Preview: p})
	return p, true
}

// EndDrag finishes the drag of id with a full render and an autosave.
// It reports false when id does not own the active drag.
func (c *Controller) EndDrag(id string) bool {
	if c.drag == nil || c.drag.id != id {
		return false
	}
	c.afterChange(false)
	c.log.Debug("drag end", slog.String("thing", id))
	return true
}
