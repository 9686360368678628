/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render projects a card into a visual tree laid out on an A4 sheet.
//
// Render is a pure function of the card and the selection: every call builds a
// fresh tree. ApplyPreview is the only other way to change a tree and it only
// moves the dragged subcard of the primary card.
// All coordinates are absolute millimeters on the sheet, origin top-left.
package render

import (
	"path/filepath"
	"strconv"
	"strings"

	"rangecard/internal/domain"
	"rangecard/internal/geometry"
)

// Page and card layout in millimeters.
const (
	SheetWidth  = 210.0
	SheetHeight = 297.0
	CardWidth   = 120.0
	CardHeight  = 70.0
	CardGap     = 2.0
	Copies      = 4

	HeaderHeight  = 4.0
	RulerSegments = 5
	RulerSegment  = 10.0
	RulerHeight   = 2.0
	LabelHeight   = 3.5
	FrameGap      = 1.5
	CardPadding   = 2.0
)

type Kind string

const (
	KindCard      Kind = "card"
	KindHeader    Kind = "header"
	KindRuler     Kind = "ruler"
	KindSegment   Kind = "segment"
	KindSubcard   Kind = "subcard"
	KindLabel     Kind = "label"
	KindFrame     Kind = "frame"
	KindCircle    Kind = "circle"
	KindCrosshair Kind = "crosshair"
)

// Node is one element of the visual tree.
type Node struct {
	Kind Kind
	Box  geometry.Rect
	Text string
	// ThingID is set on subcards and everything below them.
	ThingID string
	// Image is a data URL or an asset path, set on the first frame of a sized object.
	Image string
	// Selected marks the highlighted subcard of the primary card.
	Selected bool
	// Interactive is true on the primary card only.
	Interactive bool
	// Marked flags the last ruler segment.
	Marked   bool
	Children []*Node
}

// Sheet is the rendered A4 page.
type Sheet struct {
	Width, Height float64
	Cards         []*Node
}

// Primary returns the interactive card.
func (s *Sheet) Primary() *Node {
	if s == nil || len(s.Cards) == 0 {
		return nil
	}
	return s.Cards[0]
}

// Options tune asset resolution.
type Options struct {
	// AssetsDir is joined with legacy image names; empty leaves bare names.
	AssetsDir string
}

// LegacyImages maps built-in thing ids to bundled image files.
var LegacyImages = map[string]string{
	"soldier": "helfigur-bw.png",
	"imf":     "imf-bw.jpg",
	"v70":     "volvo-v70-e.jpg",
}

// ImageFor returns the image of a sized object: its upload, else a legacy image by id, else "".
func ImageFor(t domain.Thing, opt Options) string {
	if s, ok := t.Shape.(domain.SizedObject); ok && s.ImageDataURL != "" {
		return s.ImageDataURL
	}
	name, ok := LegacyImages[t.ID]
	if !ok {
		return ""
	}
	if opt.AssetsDir != "" {
		return filepath.Join(opt.AssetsDir, name)
	}
	return name
}

// CardOrigin is the top-left corner of card i on the sheet.
func CardOrigin(i int) geometry.Pt {
	total := Copies*CardHeight + (Copies-1)*CardGap
	top := (SheetHeight - total) / 2
	return geometry.Pt{X: (SheetWidth - CardWidth) / 2, Y: top + float64(i)*(CardHeight+CardGap)}
}

// Render builds the sheet for card with selectedID highlighted on the primary card.
// An unknown or empty selectedID highlights nothing.
func Render(card domain.Card, selectedID string, opt Options) *Sheet {
	primary := renderCard(card, selectedID, opt)
	sheet := &Sheet{Width: SheetWidth, Height: SheetHeight, Cards: []*Node{primary}}
	for i := 1; i < Copies; i++ {
		o := CardOrigin(i)
		sheet.Cards = append(sheet.Cards, copyNode(primary, o.Y-primary.Box.Y))
	}
	return sheet
}

// Header formats the card header line.
func Header(card domain.Card) string {
	ds := make([]string, len(card.Distances))
	for i, d := range card.Distances {
		ds[i] = Num(d)
	}
	return "Cord: " + Num(card.CordLength/10) + "cm | Distances: " + strings.Join(ds, ", ") + "m"
}

// Label formats the caption above a thing.
func Label(t domain.Thing) string {
	switch s := t.Shape.(type) {
	case domain.MilCircle:
		moa := geometry.Round3(geometry.MilsToMoa(s.MilDiameter))
		return t.Name + " (" + Num(s.MilDiameter) + " mil / " + Num(moa) + " MOA)"
	case domain.SizedObject:
		return t.Name + " (h=" + Num(s.Height) + "m b=" + Num(s.Width) + "m)"
	default:
		return t.Name
	}
}

// Num prints v with the shortest exact representation, e.g. 60, 1.8, 17.189.
func Num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func renderCard(card domain.Card, selectedID string, opt Options) *Node {
	o := CardOrigin(0)
	root := &Node{Kind: KindCard, Box: geometry.R(o.X, o.Y, CardWidth, CardHeight), Interactive: true}

	root.Children = append(root.Children, &Node{
		Kind: KindHeader,
		Box:  geometry.R(o.X+CardPadding, o.Y+CardPadding, CardWidth-2*CardPadding, HeaderHeight),
		Text: Header(card),
	})

	ry := o.Y + CardPadding + HeaderHeight
	ruler := &Node{Kind: KindRuler, Box: geometry.R(o.X+CardPadding, ry, RulerSegments*RulerSegment, RulerHeight)}
	for i := 0; i < RulerSegments; i++ {
		ruler.Children = append(ruler.Children, &Node{
			Kind:   KindSegment,
			Box:    geometry.R(o.X+CardPadding+float64(i)*RulerSegment, ry, RulerSegment, RulerHeight),
			Marked: i == RulerSegments-1,
		})
	}
	root.Children = append(root.Children, ruler)

	for _, t := range card.Things {
		sc := renderThing(card, t, opt, geometry.Pt{X: o.X + t.OffsetX, Y: o.Y + t.OffsetY})
		sc.Selected = selectedID != "" && t.ID == selectedID
		root.Children = append(root.Children, sc)
	}
	return root
}

func renderThing(card domain.Card, t domain.Thing, opt Options, at geometry.Pt) *Node {
	sc := &Node{Kind: KindSubcard, ThingID: t.ID}
	label := &Node{Kind: KindLabel, ThingID: t.ID, Text: Label(t), Box: geometry.R(at.X, at.Y, labelWidth(Label(t)), LabelHeight)}
	sc.Children = append(sc.Children, label)
	top := at.Y + LabelHeight

	switch s := t.Shape.(type) {
	case domain.MilCircle:
		d := geometry.MilCircleDiameter(s.MilDiameter, card.CordLength)
		c := &Node{Kind: KindCircle, ThingID: t.ID, Box: geometry.R(at.X, top, d, d)}
		c.Children = []*Node{
			{Kind: KindCrosshair, ThingID: t.ID, Box: geometry.R(at.X, top+d/2, d, 0)},
			{Kind: KindCrosshair, ThingID: t.ID, Box: geometry.R(at.X+d/2, top, 0, d)},
		}
		sc.Children = append(sc.Children, c)
	case domain.SizedObject:
		// frames stand on a common baseline
		tallest := 0.0
		for _, dist := range card.Distances {
			tallest = max(tallest, geometry.PaperLength(s.Height, dist, card.CordLength))
		}
		x := at.X
		for i, dist := range card.Distances {
			w := geometry.PaperLength(s.Width, dist, card.CordLength)
			h := geometry.PaperLength(s.Height, dist, card.CordLength)
			f := &Node{Kind: KindFrame, ThingID: t.ID, Box: geometry.R(x, top+tallest-h, w, h)}
			if i == 0 {
				f.Image = ImageFor(t, opt)
			}
			sc.Children = append(sc.Children, f)
			x += w + FrameGap
		}
	}

	box := sc.Children[0].Box
	for _, c := range sc.Children[1:] {
		box = box.Union(c.Box)
	}
	sc.Box = box
	return sc
}

// labelWidth estimates printed caption width at roughly 1.6 mm per glyph.
func labelWidth(s string) float64 { return float64(len([]rune(s))) * 1.6 }

// copyNode deep-copies n shifted down by dy, with interaction and selection stripped.
func copyNode(n *Node, dy float64) *Node {
	c := *n
	c.Box = n.Box.Translate(0, dy)
	c.Selected = false
	c.Interactive = false
	c.Children = nil
	for _, ch := range n.Children {
		c.Children = append(c.Children, copyNode(ch, dy))
	}
	return &c
}

// Walk visits n and its descendants depth first; returning false stops descent into children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Subcard returns the primary card's subcard for id, or nil.
func (s *Sheet) Subcard(id string) *Node {
	p := s.Primary()
	if p == nil {
		return nil
	}
	for _, c := range p.Children {
		if c.Kind == KindSubcard && c.ThingID == id {
			return c
		}
	}
	return nil
}

// Hit returns the id of the topmost subcard of the primary card under p, or "".
func (s *Sheet) Hit(p geometry.Pt) string {
	prim := s.Primary()
	if prim == nil {
		return ""
	}
	for i := len(prim.Children) - 1; i >= 0; i-- {
		c := prim.Children[i]
		if c.Kind == KindSubcard && c.Box.Contains(p) {
			return c.ThingID
		}
	}
	return ""
}
