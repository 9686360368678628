/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package ui

import (
	"rangecard/internal/geometry"
	"rangecard/internal/render"
)

const (
	defaultZoom = 3.0 // pixels per millimeter
	minZoom     = 1.0
	maxZoom     = 12.0
)

// viewport maps sheet millimeters to widget pixels. The sheet is centered in
// the widget and shifted by the pan offset.
type viewport struct {
	zoom       float32
	offX, offY float32
	w, h       float32
}

func newViewport() *viewport { return &viewport{zoom: defaultZoom} }

func (v *viewport) resize(w, h float32) { v.w, v.h = w, h }

func (v *viewport) origin() (float32, float32) {
	x := v.w/2 - float32(render.SheetWidth)*v.zoom/2 + v.offX
	y := v.h/2 - float32(render.SheetHeight)*v.zoom/2 + v.offY
	return x, y
}

func (v *viewport) toScreen(p geometry.Pt) (float32, float32) {
	ox, oy := v.origin()
	return ox + float32(p.X)*v.zoom, oy + float32(p.Y)*v.zoom
}

func (v *viewport) toSheet(x, y float32) geometry.Pt {
	ox, oy := v.origin()
	return geometry.Pt{X: float64((x - ox) / v.zoom), Y: float64((y - oy) / v.zoom)}
}

// rect returns the screen position and size of a sheet rectangle.
func (v *viewport) rect(r geometry.Rect) (x, y, w, h float32) {
	x, y = v.toScreen(geometry.Pt{X: r.X, Y: r.Y})
	return x, y, float32(r.W) * v.zoom, float32(r.H) * v.zoom
}

// cardWidthPx is the on-screen width of one card.
func (v *viewport) cardWidthPx() float64 { return render.CardWidth * float64(v.zoom) }

func (v *viewport) pan(dx, dy float32) {
	v.offX += dx
	v.offY += dy
}

// zoomBy changes the zoom by step pixels per millimeter within limits.
func (v *viewport) zoomBy(step float32) {
	v.zoom = float32(geometry.Clamp(float64(v.zoom+step), minZoom, maxZoom))
}

// fit picks the zoom that shows the whole sheet and clears the pan.
func (v *viewport) fit() {
	if v.w <= 0 || v.h <= 0 {
		return
	}
	z := min(v.w/float32(render.SheetWidth), v.h/float32(render.SheetHeight)) * 0.95
	v.zoom = float32(geometry.Clamp(float64(z), minZoom, maxZoom))
	v.offX, v.offY = 0, 0
}
