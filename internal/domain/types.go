/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the document model of a range card: global settings plus an
// ordered list of things. The JSON tags mirror the persisted document format
// {cordLength, distances, things} which is read from and written to storage verbatim.

import (
	"encoding/json"
	"fmt"
)

// Card is the document root.
type Card struct {
	// CordLength is the reference cord length in millimeters.
	CordLength float64 `json:"cordLength"`
	// Distances are calibration distances in meters, in print order.
	Distances []float64 `json:"distances"`
	Things    []Thing   `json:"things"`
}

// Thing is an entity placed on the card. Offsets are millimeters from the card origin
// and are not clamped here.
type Thing struct {
	ID      string
	Name    string
	OffsetX float64
	OffsetY float64
	Shape   Shape
}

// Shape is the variant part of a Thing: SizedObject or MilCircle.
type Shape interface {
	isShape()
}

// SizedObject is a real-world object of known size in meters.
type SizedObject struct {
	Height float64
	Width  float64
	// ImageDataURL is an embedded image, empty when none was attached.
	ImageDataURL string
}

// MilCircle is a reticle circle with an angular diameter in mils.
type MilCircle struct {
	MilDiameter float64
}

func (SizedObject) isShape() {}
func (MilCircle) isShape()   {}

// TypeMilCircle is the wire tag of circle things.
const TypeMilCircle = "milCircle"

// wireThing is the flat persisted form of a Thing.
type wireThing struct {
	ID           string   `json:"id"`
	Type         string   `json:"type,omitempty"`
	Name         string   `json:"name"`
	Height       *float64 `json:"height,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	MilDiameter  *float64 `json:"milDiameter,omitempty"`
	ImageDataURL *string  `json:"imageDataUrl,omitempty"`
	OffsetX      float64  `json:"offsetX"`
	OffsetY      float64  `json:"offsetY"`
}

// MarshalJSON writes the flat wire shape.
func (t Thing) MarshalJSON() ([]byte, error) {
	w := wireThing{ID: t.ID, Name: t.Name, OffsetX: t.OffsetX, OffsetY: t.OffsetY}
	switch s := t.Shape.(type) {
	case SizedObject:
		h, wd, img := s.Height, s.Width, s.ImageDataURL
		w.Height, w.Width, w.ImageDataURL = &h, &wd, &img
	case MilCircle:
		m := s.MilDiameter
		w.Type, w.MilDiameter = TypeMilCircle, &m
	case nil:
		return nil, fmt.Errorf("thing %q has no shape", t.ID)
	default:
		return nil, fmt.Errorf("thing %q: unknown shape %T", t.ID, s)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat wire shape. A thing is a circle when it is tagged
// "milCircle" or carries a milDiameter; otherwise it is a sized object.
// Missing offsets and image default to zero values.
func (t *Thing) UnmarshalJSON(b []byte) error {
	var w wireThing
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = Thing{ID: w.ID, Name: w.Name, OffsetX: w.OffsetX, OffsetY: w.OffsetY}
	if w.Type == TypeMilCircle || w.MilDiameter != nil {
		c := MilCircle{}
		if w.MilDiameter != nil {
			c.MilDiameter = *w.MilDiameter
		}
		t.Shape = c
		return nil
	}
	s := SizedObject{}
	if w.Height != nil {
		s.Height = *w.Height
	}
	if w.Width != nil {
		s.Width = *w.Width
	}
	if w.ImageDataURL != nil {
		s.ImageDataURL = *w.ImageDataURL
	}
	t.Shape = s
	return nil
}

// IsCircle reports whether the thing is a mil circle.
func (t Thing) IsCircle() bool {
	_, ok := t.Shape.(MilCircle)
	return ok
}
