/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry holds the scaling law of the card and the angular unit conversions.
//
// A cord of known length held at the eye subtends the same angle as an object at
// a distance, so printed size is object size over distance, times cord length.
// Units: object sizes and distances in meters, cord length and all printed lengths in millimeters.
package geometry

import "math"

// MilsPerMOA is the number of mils in one minute of angle.
const MilsPerMOA = 0.29089

// PaperLength converts a true length seen at distance into a printed length for the given cord.
// distance must be positive; callers filter distances at the data entry boundary.
func PaperLength(trueLength, distance, cordLength float64) float64 {
	return (trueLength / distance) * cordLength
}

// MilCircleDiameter is the printed diameter of a reticle circle spanning mil milliradians.
func MilCircleDiameter(mil, cordLength float64) float64 {
	return (mil / 1000) * cordLength
}

func MilsToMoa(mils float64) float64 { return mils / MilsPerMOA }

func MoaToMils(moa float64) float64 { return moa * MilsPerMOA }

// Round3 rounds to 3 decimals, the precision used for every displayed angular value.
func Round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// Round1 rounds to 1 decimal, used for offsets shown in the edit panel.
func Round1(v float64) float64 { return math.Round(v*10) / 10 }

func Clamp(v, lo, hi float64) float64 { return math.Min(hi, math.Max(lo, v)) }

// Pt is a point in millimeters.
type Pt struct{ X, Y float64 }

// Rect is an axis-aligned rectangle in millimeters, min corner plus size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

// Translate returns r moved by dx,dy.
func (r Rect) Translate(dx, dy float64) Rect { return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.W, o.X+o.W)
	maxY := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
