/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes a rendered sheet as PDF, SVG, PNG or HTML.
//
// All sinks draw the same visual tree. Coordinates stay in millimeters except
// for PNG, where they are scaled by the requested DPI.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"rangecard/internal/domain"
	"rangecard/internal/render"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatHTML Format = "html"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatPDF, FormatSVG, FormatPNG, FormatHTML}

var ErrUnknownFormat = errors.New("unknown export format")

// Print sizes shared by the sinks.
const (
	DefaultDPI = 150
	// FontSize is the caption size in points.
	FontSize  = 7.0
	LineWidth = 0.2
)

// Options controls export behavior. Zero values select defaults.
type Options struct {
	// DPI sets the PNG resolution.
	DPI int
	// Title is stored in PDF metadata and the HTML title.
	Title string
}

func (o Options) dpi() int {
	if o.DPI <= 0 {
		return DefaultDPI
	}
	return o.DPI
}

func (o Options) title() string {
	if strings.TrimSpace(o.Title) == "" {
		return "Range estimation cards"
	}
	return o.Title
}

// ParseFormat accepts a format name or file extension, case-insensitive.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if f == "htm" {
		f = FormatHTML
	}
	for _, k := range Formats {
		if f == k {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath derives the format from a file name.
func FormatFromPath(path string) (Format, bool) {
	f, err := ParseFormat(filepath.Ext(path))
	return f, err == nil
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// FileName is the default download name, e.g. cards.pdf.
func (f Format) FileName() string { return "cards." + string(f) }

// Write encodes s in format f.
func Write(w io.Writer, s *render.Sheet, f Format, opt Options) error {
	if s == nil {
		return errors.New("sheet is nil")
	}
	switch f {
	case FormatPDF:
		return WritePDF(w, s, opt)
	case FormatSVG:
		return WriteSVG(w, s, opt)
	case FormatPNG:
		return WritePNG(w, s, opt)
	case FormatHTML:
		return WriteHTML(w, s, opt)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// WriteCard renders card without a selection and encodes it in format f.
func WriteCard(w io.Writer, card domain.Card, f Format, opt Options, ro render.Options) error {
	return Write(w, render.Render(card, "", ro), f, opt)
}

// WriteFile writes the export to path, creating parent directories.
func WriteFile(path string, s *render.Sheet, f Format, opt Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", f, err)
	}
	if err := Write(out, s, f, opt); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", f, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f, err)
	}
	return nil
}

// drawables flattens every card of the sheet in paint order.
func drawables(s *render.Sheet) []*render.Node {
	var out []*render.Node
	for _, c := range s.Cards {
		render.Walk(c, func(n *render.Node) bool {
			out = append(out, n)
			return true
		})
	}
	return out
}
