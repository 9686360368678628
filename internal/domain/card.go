/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultCordLength = 600.0

	DefaultObjectName   = "New object"
	DefaultObjectHeight = 1.8
	DefaultObjectWidth  = 1.0
	DefaultCircleName   = "New circle"
	DefaultMilDiameter  = 5.0
)

// DefaultDistances returns a fresh copy of the default calibration distances.
func DefaultDistances() []float64 { return []float64{100, 200, 300, 400, 500, 600} }

// Default returns the built-in card used when nothing is stored and no seed loads.
func Default() Card {
	return Card{CordLength: DefaultCordLength, Distances: DefaultDistances(), Things: []Thing{}}
}

// NewThingID returns a fresh id with the given prefix, e.g. "thing" or "circle".
func NewThingID(prefix string) string { return prefix + "_" + uuid.NewString() }

// NewSizedObject returns a default sized object with a fresh id.
func NewSizedObject() Thing {
	return Thing{
		ID:    NewThingID("thing"),
		Name:  DefaultObjectName,
		Shape: SizedObject{Height: DefaultObjectHeight, Width: DefaultObjectWidth},
	}
}

// NewMilCircle returns a default reticle circle with a fresh id.
func NewMilCircle() Thing {
	return Thing{
		ID:    NewThingID("circle"),
		Name:  DefaultCircleName,
		Shape: MilCircle{MilDiameter: DefaultMilDiameter},
	}
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Positive reports whether v is a finite number above zero.
func Positive(v float64) bool { return v > 0 && Finite(v) }

var distanceSep = regexp.MustCompile(`[,;\s]+`)

// ParseDistances splits raw on commas, semicolons and whitespace and keeps
// the strictly positive numbers in input order. Unparsable tokens are skipped.
func ParseDistances(raw string) []float64 {
	out := []float64{}
	for _, tok := range distanceSep.Split(strings.TrimSpace(raw), -1) {
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || !Positive(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FilterDistances drops non-positive entries.
func FilterDistances(ds []float64) []float64 {
	out := make([]float64, 0, len(ds))
	for _, d := range ds {
		if Positive(d) {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns a deep copy. Shapes are values, so copying the slices is enough.
func (c Card) Clone() Card {
	out := Card{CordLength: c.CordLength}
	if c.Distances != nil {
		out.Distances = make([]float64, len(c.Distances))
		copy(out.Distances, c.Distances)
	}
	if c.Things != nil {
		out.Things = make([]Thing, len(c.Things))
		copy(out.Things, c.Things)
	}
	return out
}

// Index returns the position of the thing with id, or -1.
func (c Card) Index(id string) int {
	for i := range c.Things {
		if c.Things[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns a pointer into c.Things for id, or nil.
func (c *Card) Find(id string) *Thing {
	if i := c.Index(id); i >= 0 {
		return &c.Things[i]
	}
	return nil
}

// Append adds t at the end of the list.
func (c *Card) Append(t Thing) { c.Things = append(c.Things, t) }

// Remove deletes the thing with id. It reports false when no such thing exists.
func (c *Card) Remove(id string) bool {
	i := c.Index(id)
	if i < 0 {
		return false
	}
	c.Things = append(c.Things[:i], c.Things[i+1:]...)
	return true
}

// FirstID returns the id of the first thing or "" for an empty card.
func (c Card) FirstID() string {
	if len(c.Things) == 0 {
		return ""
	}
	return c.Things[0].ID
}

var (
	ErrCordLength = errors.New("cord length must be positive")
	ErrDistance   = errors.New("distances must be positive")
	ErrDuplicate  = errors.New("duplicate thing id")
)

// Validate checks the card invariants and returns the first violation.
func (c Card) Validate() error {
	if c.CordLength <= 0 {
		return ErrCordLength
	}
	for _, d := range c.Distances {
		if d <= 0 {
			return fmt.Errorf("%w: %v", ErrDistance, d)
		}
	}
	seen := make(map[string]struct{}, len(c.Things))
	for _, t := range c.Things {
		if t.ID == "" {
			return fmt.Errorf("thing %q has no id", t.Name)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicate, t.ID)
		}
		seen[t.ID] = struct{}{}
		switch s := t.Shape.(type) {
		case SizedObject:
			if s.Height <= 0 || s.Width <= 0 {
				return fmt.Errorf("thing %q: height and width must be positive", t.Name)
			}
		case MilCircle:
			if s.MilDiameter <= 0 {
				return fmt.Errorf("thing %q: milDiameter must be positive", t.Name)
			}
		default:
			return fmt.Errorf("thing %q has no shape", t.Name)
		}
	}
	return nil
}
