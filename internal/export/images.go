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
	"math"
	"net/http"
	"os"
	"strings"

	"rangecard/internal/geometry"
	"rangecard/internal/imaging"
)

// loadImage returns the bytes and mime type of a frame image, which is either a
// data URL or a path to an asset file.
func loadImage(src string) ([]byte, string, error) {
	if strings.HasPrefix(src, "data:") {
		mime, data, err := imaging.ParseDataURL(src)
		return data, mime, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	mime, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return data, mime, nil
}

func decodeImage(src string) (image.Image, error) {
	data, _, err := loadImage(src)
	if err != nil {
		return nil, err
	}
	return imaging.Decode(data, imaging.DefaultOptions())
}

// contain centers a w x h image inside box keeping its aspect ratio.
func contain(box geometry.Rect, w, h float64) geometry.Rect {
	if w <= 0 || h <= 0 || box.W <= 0 || box.H <= 0 {
		return box
	}
	s := math.Min(box.W/w, box.H/h)
	iw, ih := w*s, h*s
	return geometry.R(box.X+(box.W-iw)/2, box.Y+(box.H-ih)/2, iw, ih)
}
