/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"rangecard/internal/imaging"
	applog "rangecard/internal/log"
	"rangecard/internal/render"
)

// WriteSVG writes the sheet as a standalone SVG in millimeter units.
// Asset images are inlined as data URLs so the file can be moved freely.
func WriteSVG(w io.Writer, s *render.Sheet, opt Options) error {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	fontMM := FontSize * 25.4 / 72
	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%gmm\" height=\"%gmm\" viewBox=\"0 0 %g %g\">\n", s.Width, s.Height, s.Width, s.Height)
	wf("  <title>%s</title>\n", escText(opt.title()))
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", s.Width, s.Height)
	wf("  <g fill=\"none\" stroke=\"#000\" stroke-width=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"%.3f\">\n", LineWidth, fontMM)

	for _, n := range drawables(s) {
		b := n.Box
		switch n.Kind {
		case render.KindCard:
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" stroke=\"#888\" stroke-dasharray=\"1 1\"/>\n", b.X, b.Y, b.W, b.H)
		case render.KindHeader, render.KindLabel:
			wf("    <text x=\"%g\" y=\"%g\" fill=\"#000\" stroke=\"none\">%s</text>\n", b.X, b.Y+b.H*0.8, escText(n.Text))
		case render.KindSegment:
			fill := "none"
			if n.Marked {
				fill = "#000"
			}
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", b.X, b.Y, b.W, b.H, fill)
		case render.KindSubcard:
			if n.Selected {
				wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" stroke=\"#0a84ff\" stroke-width=\"0.3\"/>\n", b.X, b.Y, b.W, b.H)
			}
		case render.KindFrame:
			if n.Image != "" {
				wf("    <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"xMidYMid meet\" href=\"%s\"/>\n", b.X, b.Y, b.W, b.H, escAttr(svgHref(n.Image)))
			}
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\"/>\n", b.X, b.Y, b.W, b.H)
		case render.KindCircle:
			c := b.Center()
			wf("    <circle cx=\"%g\" cy=\"%g\" r=\"%g\"/>\n", c.X, c.Y, b.W/2)
		case render.KindCrosshair:
			m := b.Max()
			wf("    <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\"/>\n", b.X, b.Y, m.X, m.Y)
		}
	}

	wf("  </g>\n</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// svgHref inlines asset files; data URLs pass through. Unreadable assets keep their path.
func svgHref(src string) string {
	if strings.HasPrefix(src, "data:") {
		return src
	}
	data, mime, err := loadImage(src)
	if err != nil {
		applog.WithComponent("export").Debug("asset not inlined", slog.String("src", src), slog.Any("err", err))
		return src
	}
	return imaging.DataURL(data, mime)
}

func escAttr(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("&quot;")
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '\n':
			b.WriteByte(' ')
		case '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
