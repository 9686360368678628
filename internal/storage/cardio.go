/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"rangecard/internal/domain"
)

// ExportFileName is the name offered for downloaded card documents.
const ExportFileName = "card-config.json"

//go:embed card.schema.json
var cardSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(cardSchema)

// ValidationError is returned when an imported document is rejected.
// Msg is meant for the user; Details carries schema findings if any.
type ValidationError struct {
	Msg     string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Msg
	}
	return e.Msg + ": " + strings.Join(e.Details, "; ")
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExportCard serializes a card in the persisted document format.
func ExportCard(c domain.Card) ([]byte, error) {
	if c.Distances == nil {
		c.Distances = []float64{}
	}
	if c.Things == nil {
		c.Things = []domain.Thing{}
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal card: %w", err)
	}
	return append(b, '\n'), nil
}

// ImportCard parses and validates a user supplied document.
// Rejections are *ValidationError. On success missing offsets and images are
// zeroed, a missing or non-positive cord length and an empty distance list fall
// back to the defaults, and non-positive distances are dropped.
func ImportCard(data []byte) (domain.Card, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Card{}, &ValidationError{Msg: "could not read the JSON file", Details: []string{err.Error()}}
	}
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return domain.Card{}, fmt.Errorf("schema validate: %w", err)
	}
	if !res.Valid() {
		ve := &ValidationError{Msg: `invalid card file, expected an object with a "things" array`}
		for _, e := range res.Errors() {
			ve.Details = append(ve.Details, e.String())
		}
		return domain.Card{}, ve
	}

	doc := raw.(map[string]any)
	seen := map[string]bool{}
	for _, it := range doc["things"].([]any) {
		if err := checkThing(it.(map[string]any), seen); err != nil {
			return domain.Card{}, err
		}
	}

	var c domain.Card
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Card{}, &ValidationError{Msg: "could not read the JSON file", Details: []string{err.Error()}}
	}
	return normalize(c), nil
}

func checkThing(t map[string]any, seen map[string]bool) error {
	id, _ := t["id"].(string)
	name, _ := t["name"].(string)
	if id == "" || name == "" {
		label := name
		if label == "" {
			label = id
		}
		if label == "" {
			label = "?"
		}
		return invalid("invalid object %q: missing id or name", label)
	}
	if seen[id] {
		return invalid("invalid object %q: duplicate id %q", name, id)
	}
	seen[id] = true

	typ, _ := t["type"].(string)
	if _, has := t["milDiameter"]; typ == domain.TypeMilCircle || has {
		if v, ok := t["milDiameter"].(float64); !ok || v <= 0 {
			return invalid("invalid mil circle %q: milDiameter must be a positive number", name)
		}
		return nil
	}
	h, hok := t["height"].(float64)
	w, wok := t["width"].(float64)
	if !hok || !wok {
		return invalid("invalid object %q: missing height or width", name)
	}
	if h <= 0 || w <= 0 {
		return invalid("invalid object %q: height and width must be positive", name)
	}
	return nil
}

func normalize(c domain.Card) domain.Card {
	if c.CordLength <= 0 {
		c.CordLength = domain.DefaultCordLength
	}
	c.Distances = domain.FilterDistances(c.Distances)
	if len(c.Distances) == 0 {
		c.Distances = domain.DefaultDistances()
	}
	if c.Things == nil {
		c.Things = []domain.Thing{}
	}
	return c
}

// decodeCard reads a document written by this package.
func decodeCard(b []byte) (domain.Card, error) {
	var c domain.Card
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.Card{}, fmt.Errorf("parse card: %w", err)
	}
	return normalize(c), nil
}
