/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"rangecard/internal/domain"
	"rangecard/internal/geometry"
)

// Field names an input of the edit panel.
type Field string

const (
	FieldName        Field = "name"
	FieldHeight      Field = "height"
	FieldWidth       Field = "width"
	FieldMilDiameter Field = "milDiameter"
	FieldMoaDiameter Field = "moaDiameter"
	FieldOffsetX     Field = "offsetX"
	FieldOffsetY     Field = "offsetY"
	FieldImage       Field = "image"
)

// Panel mirrors the selected thing as the edit panel shows it.
// Offsets are rounded to 0.1 mm and angular values to 3 decimals.
type Panel struct {
	ThingID     string  `json:"thingId"`
	Circle      bool    `json:"circle"`
	Name        string  `json:"name"`
	Height      float64 `json:"height,omitempty"`
	Width       float64 `json:"width,omitempty"`
	MilDiameter float64 `json:"milDiameter,omitempty"`
	MoaDiameter float64 `json:"moaDiameter,omitempty"`
	OffsetX     float64 `json:"offsetX"`
	OffsetY     float64 `json:"offsetY"`
	HasImage    bool    `json:"hasImage"`
}

// Visible reports whether field f is shown for the panel's variant.
func (p Panel) Visible(f Field) bool {
	if p.ThingID == "" {
		return false
	}
	switch f {
	case FieldName, FieldOffsetX, FieldOffsetY:
		return true
	case FieldHeight, FieldWidth, FieldImage:
		return !p.Circle
	case FieldMilDiameter, FieldMoaDiameter:
		return p.Circle
	default:
		return false
	}
}

func panelFor(t *domain.Thing) Panel {
	if t == nil {
		return Panel{}
	}
	p := Panel{
		ThingID: t.ID,
		Name:    t.Name,
		OffsetX: geometry.Round1(t.OffsetX),
		OffsetY: geometry.Round1(t.OffsetY),
	}
	switch s := t.Shape.(type) {
	case domain.MilCircle:
		p.Circle = true
		p.MilDiameter = geometry.Round3(s.MilDiameter)
		p.MoaDiameter = geometry.Round3(geometry.MilsToMoa(s.MilDiameter))
	case domain.SizedObject:
		p.Height, p.Width = s.Height, s.Width
		p.HasImage = s.ImageDataURL != ""
	}
	return p
}
