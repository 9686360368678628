/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"rangecard/internal/geometry"
	applog "rangecard/internal/log"
	"rangecard/internal/render"
)

var (
	black    = color.RGBA{0, 0, 0, 255}
	gray     = color.RGBA{136, 136, 136, 255}
	selected = color.RGBA{10, 132, 255, 255}
)

// WritePNG rasterizes the sheet at opt.DPI. Captions use the fixed 7x13 bitmap face.
func WritePNG(w io.Writer, s *render.Sheet, opt Options) error {
	r := newRaster(s.Width, s.Height, opt.dpi())
	for _, n := range drawables(s) {
		r.node(n)
	}
	if err := png.Encode(w, r.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

type raster struct {
	img   *image.RGBA
	scale float64 // pixels per millimeter
}

func newRaster(wMM, hMM float64, dpi int) *raster {
	scale := float64(dpi) / 25.4
	img := image.NewRGBA(image.Rect(0, 0, int(math.Round(wMM*scale)), int(math.Round(hMM*scale))))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	return &raster{img: img, scale: scale}
}

func (r *raster) px(v float64) int { return int(math.Round(v * r.scale)) }

// rect converts a millimeter box to inclusive pixel corners.
func (r *raster) rect(b geometry.Rect) (x0, y0, x1, y1 int) {
	m := b.Max()
	return r.px(b.X), r.px(b.Y), r.px(m.X), r.px(m.Y)
}

func (r *raster) node(n *render.Node) {
	switch n.Kind {
	case render.KindCard:
		x0, y0, x1, y1 := r.rect(n.Box)
		dashedRect(r.img, x0, y0, x1, y1, r.px(1), gray)
	case render.KindHeader, render.KindLabel:
		r.text(n.Box.X, n.Box.Y+n.Box.H*0.8, n.Text)
	case render.KindSegment:
		x0, y0, x1, y1 := r.rect(n.Box)
		if n.Marked {
			fillRect(r.img, x0, y0, x1, y1, black)
		}
		strokeRect(r.img, x0, y0, x1, y1, black)
	case render.KindSubcard:
		if n.Selected {
			x0, y0, x1, y1 := r.rect(n.Box)
			strokeRect(r.img, x0, y0, x1, y1, selected)
		}
	case render.KindFrame:
		if n.Image != "" {
			r.image(n)
		}
		x0, y0, x1, y1 := r.rect(n.Box)
		strokeRect(r.img, x0, y0, x1, y1, black)
	case render.KindCircle:
		c := n.Box.Center()
		strokeCircle(r.img, r.px(c.X), r.px(c.Y), r.px(n.Box.W/2), black)
	case render.KindCrosshair:
		x0, y0, x1, y1 := r.rect(n.Box)
		fillRect(r.img, x0, y0, x1, y1, black)
	}
}

func (r *raster) text(x, baseline float64, s string) {
	d := &font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(r.px(x), r.px(baseline)),
	}
	d.DrawString(s)
}

func (r *raster) image(n *render.Node) {
	src, err := decodeImage(n.Image)
	if err != nil {
		applog.WithComponent("export").Warn("png image skipped", slog.String("thing", n.ThingID), slog.Any("err", err))
		return
	}
	b := src.Bounds()
	x0, y0, x1, y1 := r.rect(contain(n.Box, float64(b.Dx()), float64(b.Dy())))
	xdraw.CatmullRom.Scale(r.img, image.Rect(x0, y0, x1, y1), src, b, draw.Over, nil)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

// dashedRect is strokeRect with dash pixels on, dash pixels off.
func dashedRect(img *image.RGBA, x0, y0, x1, y1, dash int, col color.RGBA) {
	dash = max(dash, 1)
	on := func(i int) bool { return (i/dash)%2 == 0 }
	for x := x0; x <= x1; x++ {
		if on(x - x0) {
			img.SetRGBA(x, y0, col)
			img.SetRGBA(x, y1, col)
		}
	}
	for y := y0; y <= y1; y++ {
		if on(y - y0) {
			img.SetRGBA(x0, y, col)
			img.SetRGBA(x1, y, col)
		}
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// strokeCircle draws a 1px circle outline with the midpoint algorithm.
func strokeCircle(img *image.RGBA, cx, cy, radius int, col color.RGBA) {
	if radius <= 0 {
		img.SetRGBA(cx, cy, col)
		return
	}
	x, y, d := radius, 0, 1-radius
	for x >= y {
		for _, p := range [8][2]int{{x, y}, {y, x}, {-y, x}, {-x, y}, {-x, -y}, {-y, -x}, {y, -x}, {x, -y}} {
			img.SetRGBA(cx+p[0], cy+p[1], col)
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}
