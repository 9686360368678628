/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package ui

import (
	"rangecard/internal/editor"
)

// dragMode is the current pointer interaction.
type dragMode int

const (
	dragNone dragMode = iota
	dragPan           // background pan
	dragMove          // moving a thing on the primary card
	dragStale         // the move was ended elsewhere; ignored until release
)

// gesture turns pointer input in widget pixels into controller calls.
// A drag that starts on a thing of the primary card moves it; anywhere else it pans.
type gesture struct {
	ctrl *editor.Controller
	view *viewport
	mode dragMode
	id   string
}

// tap selects the thing under x,y. Taps on empty space keep the selection.
func (g *gesture) tap(x, y float32) bool {
	id := g.ctrl.Sheet().Hit(g.view.toSheet(x, y))
	if id == "" || id == g.ctrl.Selected() {
		return false
	}
	return g.ctrl.Select(id) == nil
}

// drag handles one drag step at x,y with the delta since the previous step.
func (g *gesture) drag(x, y, dx, dy float32) {
	if g.mode == dragNone {
		g.mode = dragPan
		// the press happened one delta earlier
		sx, sy := x-dx, y-dy
		if id := g.ctrl.Sheet().Hit(g.view.toSheet(sx, sy)); id != "" {
			if err := g.ctrl.BeginDrag(id, float64(sx), float64(sy)); err == nil {
				g.mode, g.id = dragMove, id
			}
		}
	}
	switch g.mode {
	case dragPan:
		g.view.pan(dx, dy)
	case dragMove:
		if _, ok := g.ctrl.DragMove(g.id, float64(x), float64(y), g.view.cardWidthPx()); !ok {
			g.mode = dragStale
		}
	}
}

// end finishes the current drag and reports whether a thing was moved.
func (g *gesture) end() bool {
	moved := g.mode == dragMove && g.ctrl.EndDrag(g.id)
	g.mode, g.id = dragNone, ""
	return moved
}
