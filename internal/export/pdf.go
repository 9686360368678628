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
	"image/png"
	"io"
	"log/slog"

	"github.com/jung-kurt/gofpdf"

	"rangecard/internal/imaging"
	applog "rangecard/internal/log"
	"rangecard/internal/render"
	"rangecard/internal/version"
)

// WritePDF writes the sheet as a single A4 page in millimeter units.
// Captions use the built-in Helvetica so no font has to be embedded; the
// translator maps them to cp1252.
func WritePDF(w io.Writer, s *render.Sheet, opt Options) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: s.Width, Ht: s.Height},
		OrientationStr: "P",
	})
	pdf.SetTitle(opt.title(), true)
	pdf.SetAuthor("rangecard", false)
	pdf.SetCreator("rangecard "+version.Version, false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", FontSize)
	pdf.SetLineWidth(LineWidth)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetFillColor(0, 0, 0)
	pdf.SetTextColor(0, 0, 0)

	images := pdfImages{pdf: pdf, names: map[string]string{}}
	for _, n := range drawables(s) {
		b := n.Box
		switch n.Kind {
		case render.KindCard:
			pdf.SetDrawColor(136, 136, 136)
			pdf.SetDashPattern([]float64{1, 1}, 0)
			pdf.Rect(b.X, b.Y, b.W, b.H, "D")
			pdf.SetDashPattern([]float64{}, 0)
			pdf.SetDrawColor(0, 0, 0)
		case render.KindHeader, render.KindLabel:
			pdf.Text(b.X, b.Y+b.H*0.8, tr(n.Text))
		case render.KindSegment:
			style := "D"
			if n.Marked {
				style = "FD"
			}
			pdf.Rect(b.X, b.Y, b.W, b.H, style)
		case render.KindFrame:
			if n.Image != "" {
				images.draw(n)
			}
			pdf.Rect(b.X, b.Y, b.W, b.H, "D")
		case render.KindCircle:
			c := b.Center()
			pdf.Circle(c.X, c.Y, b.W/2, "D")
		case render.KindCrosshair:
			m := b.Max()
			pdf.Line(b.X, b.Y, m.X, m.Y)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pdfImages registers every distinct image once.
type pdfImages struct {
	pdf   *gofpdf.Fpdf
	names map[string]string
}

func (p pdfImages) draw(n *render.Node) {
	name, ok := p.names[n.Image]
	if !ok {
		var err error
		name, err = p.register(n.Image)
		if err != nil {
			// a broken image leaves an empty frame
			applog.WithComponent("export").Warn("pdf image skipped", slog.String("thing", n.ThingID), slog.Any("err", err))
		}
		p.names[n.Image] = name
	}
	if name == "" {
		return
	}
	info := p.pdf.GetImageInfo(name)
	r := contain(n.Box, info.Width(), info.Height())
	p.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, gofpdf.ImageOptions{}, 0, "")
}

// register validates the image before handing it to gofpdf, which keeps the
// first error for the whole document. Anything but JPEG is re-encoded as PNG.
func (p pdfImages) register(src string) (string, error) {
	data, mime, err := loadImage(src)
	if err != nil {
		return "", err
	}
	typ := "JPG"
	if mime == "image/jpeg" {
		if _, err := imaging.Check(data, imaging.DefaultOptions()); err != nil {
			return "", err
		}
	} else {
		img, err := imaging.Decode(data, imaging.DefaultOptions())
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("encode png: %w", err)
		}
		data, typ = buf.Bytes(), "PNG"
	}
	name := fmt.Sprintf("img%d", len(p.names))
	p.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: typ}, bytes.NewReader(data))
	if err := p.pdf.Error(); err != nil {
		return "", err
	}
	return name, nil
}
