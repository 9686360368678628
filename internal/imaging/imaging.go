/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imaging turns uploaded image bytes into data URLs that can be embedded
// in a card, shrinking oversized images first.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Options control when and how an upload is shrunk.
type Options struct {
	// MaxBytes is the size above which an upload must be confirmed and resized.
	MaxBytes int
	// MaxWidth and MaxHeight bound the resized image; aspect ratio is kept.
	MaxWidth  int
	MaxHeight int
	// JPEGQuality is 1..100.
	JPEGQuality int
	// MaxPixels caps width*height of any image that gets decoded.
	MaxPixels int
}

// DefaultMaxPixels allows a 40 megapixel image, about 160 MB once decoded.
const DefaultMaxPixels = 40_000_000

// DefaultOptions: 200 KB threshold, 800x800 box, quality 70.
func DefaultOptions() Options {
	return Options{MaxBytes: 200 * 1024, MaxWidth: 800, MaxHeight: 800, JPEGQuality: 70, MaxPixels: DefaultMaxPixels}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxBytes <= 0 {
		o.MaxBytes = d.MaxBytes
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = d.MaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = d.MaxHeight
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = d.JPEGQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = d.MaxPixels
	}
	return o
}

var (
	ErrNotDataURL = errors.New("not a base64 data URL")
	ErrTooLarge   = errors.New("image dimensions too large")
)

// Check reads only the image header and rejects unknown formats and images
// above the pixel cap.
func Check(data []byte, opt Options) (image.Config, error) {
	opt = opt.withDefaults()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(opt.MaxPixels) {
		return cfg, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	return cfg, nil
}

// Decode decodes data after Check accepted its header.
func Decode(data []byte, opt Options) (image.Image, error) {
	if _, err := Check(data, opt); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// NeedsResize reports whether an upload of size bytes exceeds the threshold.
func NeedsResize(size int, opt Options) bool {
	return size > opt.withDefaults().MaxBytes
}

// FitSize returns w,h scaled down to fit maxW x maxH. Sizes already inside are returned as is.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return max(nw, 1), max(nh, 1)
}

// Fit scales img into maxW x maxH on a white background.
func Fit(img image.Image, maxW, maxH int) *image.RGBA {
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), maxW, maxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Shrink decodes data, fits it into the configured box and re-encodes it as JPEG.
func Shrink(data []byte, opt Options) ([]byte, error) {
	opt = opt.withDefaults()
	img, err := Decode(data, opt)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Fit(img, opt.MaxWidth, opt.MaxHeight), &jpeg.Options{Quality: opt.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL encodes data as a base64 data URL. An empty mime is sniffed.
func DataURL(data []byte, mime string) string {
	if mime == "" {
		mime = http.DetectContentType(data)
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = mime[:i]
		}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits a base64 data URL into its mime type and payload.
func ParseDataURL(s string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrNotDataURL
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}

// DecodeDataURL decodes the image carried by a data URL within the default pixel cap.
func DecodeDataURL(s string) (image.Image, error) {
	_, data, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	return Decode(data, DefaultOptions())
}
