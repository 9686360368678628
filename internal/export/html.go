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
	"html/template"
	"io"
	"strings"

	"rangecard/internal/render"
)

var htmlPage = template.Must(template.New("sheet").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: A4 portrait; margin: 0; }
html, body { margin: 0; padding: 0; }
.sheet { position: relative; width: {{.Width}}; height: {{.Height}}; background: #fff; font-family: Helvetica, Arial, sans-serif; font-size: {{.Font}}; }
.n { position: absolute; box-sizing: border-box; }
.card { border: 0.2mm dashed #888; }
.header, .label { line-height: 1; white-space: nowrap; }
.segment, .frame, .circle { border: 0.2mm solid #000; }
.segment.marked { background: #000; }
.circle { border-radius: 50%; }
.crosshair { background: #000; min-width: 0.2mm; min-height: 0.2mm; }
.frame img { width: 100%; height: 100%; object-fit: contain; display: block; }
.selected { outline: 0.3mm solid #0a84ff; }
</style>
</head>
<body>
<div class="sheet">
{{- range .Nodes}}
<div class="{{.Class}}" style="{{.Style}}"{{with .Thing}} data-thing="{{.}}"{{end}}>{{with .Src}}<img src="{{.}}" alt="">{{end}}{{.Text}}</div>
{{- end}}
</div>
</body>
</html>
`))

type htmlNode struct {
	Class string
	Style template.CSS
	Thing string
	Text  string
	Src   any
}

// WriteHTML writes the sheet as a print-ready page of absolutely positioned boxes.
func WriteHTML(w io.Writer, s *render.Sheet, opt Options) error {
	data := struct {
		Title         string
		Width, Height template.CSS
		Font          template.CSS
		Nodes         []htmlNode
	}{
		Title:  opt.title(),
		Width:  mm(s.Width),
		Height: mm(s.Height),
		Font:   template.CSS(fmt.Sprintf("%gpt", FontSize)),
	}
	for _, n := range drawables(s) {
		h := htmlNode{Class: "n " + string(n.Kind), Thing: n.ThingID}
		switch n.Kind {
		case render.KindRuler:
			continue
		case render.KindHeader, render.KindLabel:
			h.Text = n.Text
		case render.KindSegment:
			if n.Marked {
				h.Class += " marked"
			}
		case render.KindSubcard:
			if n.Selected {
				h.Class += " selected"
			}
		case render.KindFrame:
			h.Src = imageURL(n.Image)
		}
		b := n.Box
		h.Style = template.CSS(fmt.Sprintf("left:%s;top:%s;width:%s;height:%s", mm(b.X), mm(b.Y), mm(b.W), mm(b.H)))
		data.Nodes = append(data.Nodes, h)
	}
	if err := htmlPage.Execute(w, data); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

// imageURL trusts embedded images and relative asset paths; anything else is
// left to the template's URL filter.
func imageURL(src string) any {
	switch {
	case src == "":
		return nil
	case strings.HasPrefix(src, "data:image/"), !strings.Contains(src, ":"):
		return template.URL(src)
	default:
		return src
	}
}

func mm(v float64) template.CSS { return template.CSS(fmt.Sprintf("%.3fmm", v)) }
