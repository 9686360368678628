//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"rangecard/internal/editor"
	"rangecard/internal/export"
	"rangecard/internal/geometry"
	"rangecard/internal/imaging"
	applog "rangecard/internal/log"
	"rangecard/internal/render"
	"rangecard/internal/storage"
)

// Run opens the editor window for ctrl and blocks until it is closed.
func Run(ctrl *editor.Controller, opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	fyneApp := app.NewWithID("rangecard")
	w := fyneApp.NewWindow(opts.title())
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 900)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	cc := NewCardCanvas(ctrl)
	if z := prefs.FloatWithFallback("view.zoom", defaultZoom); z > 0 {
		cc.view.zoom = float32(z)
	}
	panel := newEditPanel(ctrl, w)

	ctrl.Subscribe(func(e editor.Event) {
		switch e.Kind {
		case editor.EventCommit:
			cc.Refresh()
			panel.refresh()
			status.SetText(historyStatus(e))
		case editor.EventSelect:
			cc.Refresh()
			panel.refresh()
		case editor.EventPreview:
			cc.Refresh()
			panel.showOffsets(e.Preview)
		case editor.EventNotice:
			dialog.ShowInformation("Range Card", e.Notice, w)
		}
	})

	ctx := context.Background()

	importItem := fyne.NewMenuItem("Import Card…", func() {
		open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			// rejections arrive as a notice
			if err := ctrl.Import(data); err != nil {
				l.Debug("import rejected", slog.Any("err", err))
			}
		}, w)
		open.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		open.Show()
	})
	exportItem := fyne.NewMenuItem("Export Card…", func() {
		save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			defer uc.Close()
			data, err := ctrl.Export()
			if err == nil {
				_, err = uc.Write(data)
			}
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported to " + uc.URI().Path())
		}, w)
		save.SetFileName(storage.ExportFileName)
		save.Show()
	})
	printItem := fyne.NewMenuItem("Print Sheet…", func() {
		save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			defer uc.Close()
			f, ok := export.FormatFromPath(uc.URI().Path())
			if !ok {
				f = export.FormatPDF
			}
			if err := export.WriteCard(uc, ctrl.Card(), f, opts.Export, ctrl.RenderOptions()); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Printed to " + uc.URI().Path())
		}, w)
		save.SetFileName(export.FormatPDF.FileName())
		save.Show()
	})
	reloadItem := fyne.NewMenuItem("Reload from Storage", func() {
		ok, err := ctrl.Load(ctx)
		switch {
		case err != nil:
			dialog.ShowError(err, w)
		case !ok:
			dialog.ShowInformation("Reload", "Nothing stored yet.", w)
		}
	})
	resetItem := fyne.NewMenuItem("Reset Card…", func() {
		confirmThen(w, "Reset", ctrl.Reset())
	})
	printItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyP, Modifier: fyne.KeyModifierShortcutDefault}
	fileMenu := fyne.NewMenu("File", importItem, exportItem, fyne.NewMenuItemSeparator(), printItem, fyne.NewMenuItemSeparator(), reloadItem, resetItem)

	undoItem := fyne.NewMenuItem("Undo", func() {
		if !ctrl.Undo() {
			status.SetText("Nothing to undo")
		}
	})
	redoItem := fyne.NewMenuItem("Redo", func() {
		if !ctrl.Redo() {
			status.SetText("Nothing to redo")
		}
	})
	addObjItem := fyne.NewMenuItem("Add Object", func() { ctrl.AddSizedObject() })
	addCircleItem := fyne.NewMenuItem("Add Circle", func() { ctrl.AddCircle() })
	deleteItem := fyne.NewMenuItem("Delete Selected…", panel.deleteSelected)
	undoSC := &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}
	redoSC := &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}
	undoItem.Shortcut = undoSC
	redoItem.Shortcut = redoSC
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem, fyne.NewMenuItemSeparator(), addObjItem, addCircleItem, deleteItem)

	zoomIn := fyne.NewMenuItem("Zoom In", func() { cc.view.zoomBy(0.5); cc.Refresh() })
	zoomOut := fyne.NewMenuItem("Zoom Out", func() { cc.view.zoomBy(-0.5); cc.Refresh() })
	fit := fyne.NewMenuItem("Fit Sheet", func() { cc.view.fit(); cc.Refresh() })
	viewMenu := fyne.NewMenu("View", zoomIn, zoomOut, fit)

	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu))
	w.Canvas().AddShortcut(undoSC, func(fyne.Shortcut) { undoItem.Action() })
	w.Canvas().AddShortcut(redoSC, func(fyne.Shortcut) { redoItem.Action() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift}, func(fyne.Shortcut) { redoItem.Action() })

	split := container.NewHSplit(cc, container.NewVScroll(panel.content))
	split.Offset = 0.68
	w.SetContent(container.NewBorder(nil, status, nil, nil, split))

	// Persist preferences on close
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		prefs.SetFloat("view.zoom", float64(cc.view.zoom))
		w.Close()
	})

	panel.refresh()
	w.ShowAndRun()
	return nil
}

func historyStatus(e editor.Event) string {
	switch {
	case e.CanUndo && e.CanRedo:
		return "Undo and redo available"
	case e.CanUndo:
		return "Undo available"
	case e.CanRedo:
		return "Redo available"
	default:
		return "Ready"
	}
}

// confirmThen shows c and accepts it when the user agrees. A nil c is ignored.
func confirmThen(w fyne.Window, title string, c *editor.Confirmation) {
	if c == nil {
		return
	}
	dialog.NewConfirm(title, c.Message, func(ok bool) {
		if !ok {
			return
		}
		if err := c.Accept(); err != nil {
			dialog.ShowError(err, w)
		}
	}, w).Show()
}

// editPanel holds the card settings and the fields of the selected thing.
type editPanel struct {
	ctrl    *editor.Controller
	w       fyne.Window
	content *fyne.Container

	cord      *widget.Entry
	distances *widget.Entry
	entries   map[editor.Field]*widget.Entry
	rows      map[editor.Field]*fyne.Container
	title     *widget.Label
	delBtn    *widget.Button
	imgBtn    *widget.Button
	clearBtn  *widget.Button
}

var panelFields = []struct {
	field editor.Field
	label string
}{
	{editor.FieldName, "Name"},
	{editor.FieldHeight, "Height (m)"},
	{editor.FieldWidth, "Width (m)"},
	{editor.FieldMilDiameter, "Diameter (mil)"},
	{editor.FieldMoaDiameter, "Diameter (MOA)"},
	{editor.FieldOffsetX, "Offset X (mm)"},
	{editor.FieldOffsetY, "Offset Y (mm)"},
}

func newEditPanel(ctrl *editor.Controller, w fyne.Window) *editPanel {
	p := &editPanel{
		ctrl:    ctrl,
		w:       w,
		entries: map[editor.Field]*widget.Entry{},
		rows:    map[editor.Field]*fyne.Container{},
		title:   widget.NewLabelWithStyle("Nothing selected", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	}

	p.cord = widget.NewEntry()
	p.cord.OnSubmitted = func(s string) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			err = ctrl.SetCordLength(v)
		}
		if err != nil {
			dialog.ShowError(errors.New("cord length must be a positive number of millimeters"), w)
			p.refresh()
		}
	}
	p.distances = widget.NewEntry()
	p.distances.SetPlaceHolder("100, 200, 300")
	p.distances.OnSubmitted = func(s string) {
		if !ctrl.SetDistances(s) {
			p.refresh()
		}
	}
	settings := widget.NewForm(
		widget.NewFormItem("Cord length (mm)", p.cord),
		widget.NewFormItem("Distances (m)", p.distances),
	)

	fields := container.NewVBox()
	for _, pf := range panelFields {
		f := pf.field
		e := widget.NewEntry()
		e.OnSubmitted = func(s string) {
			if err := ctrl.SetField(f, s); err != nil {
				dialog.ShowError(err, w)
				p.refresh()
			}
		}
		p.entries[f] = e
		row := container.NewBorder(nil, nil, widget.NewLabel(pf.label), nil, e)
		p.rows[f] = row
		fields.Add(row)
	}

	addObj := widget.NewButton("Add object", func() { ctrl.AddSizedObject() })
	addCircle := widget.NewButton("Add circle", func() { ctrl.AddCircle() })
	p.delBtn = widget.NewButton("Delete", p.deleteSelected)
	p.imgBtn = widget.NewButton("Image…", p.chooseImage)
	p.clearBtn = widget.NewButton("Clear image", func() {
		if err := ctrl.ClearImage(); err != nil {
			dialog.ShowError(err, w)
		}
	})

	p.content = container.NewVBox(
		widget.NewLabelWithStyle("Card", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		settings,
		widget.NewSeparator(),
		container.NewGridWithColumns(3, addObj, addCircle, p.delBtn),
		widget.NewSeparator(),
		p.title,
		fields,
		container.NewGridWithColumns(2, p.imgBtn, p.clearBtn),
	)
	return p
}

// refresh copies the controller state into the widgets.
func (p *editPanel) refresh() {
	card := p.ctrl.Card()
	p.cord.SetText(render.Num(card.CordLength))
	ds := make([]string, len(card.Distances))
	for i, d := range card.Distances {
		ds[i] = render.Num(d)
	}
	p.distances.SetText(strings.Join(ds, ", "))

	pn := p.ctrl.Panel()
	if pn.ThingID == "" {
		p.title.SetText("Nothing selected")
	} else {
		p.title.SetText(pn.Name)
	}
	values := map[editor.Field]string{
		editor.FieldName:        pn.Name,
		editor.FieldHeight:      render.Num(pn.Height),
		editor.FieldWidth:       render.Num(pn.Width),
		editor.FieldMilDiameter: render.Num(pn.MilDiameter),
		editor.FieldMoaDiameter: render.Num(pn.MoaDiameter),
		editor.FieldOffsetX:     render.Num(pn.OffsetX),
		editor.FieldOffsetY:     render.Num(pn.OffsetY),
	}
	for f, row := range p.rows {
		if pn.Visible(f) {
			p.entries[f].SetText(values[f])
			row.Show()
		} else {
			row.Hide()
		}
	}
	setEnabled(p.delBtn, pn.ThingID != "")
	setEnabled(p.imgBtn, pn.Visible(editor.FieldImage))
	setEnabled(p.clearBtn, pn.Visible(editor.FieldImage) && pn.HasImage)
}

// showOffsets updates the offset fields during a drag without touching the rest.
func (p *editPanel) showOffsets(pv render.Preview) {
	if pv.ThingID != p.ctrl.Selected() {
		return
	}
	pn := p.ctrl.Panel()
	p.entries[editor.FieldOffsetX].SetText(render.Num(pn.OffsetX))
	p.entries[editor.FieldOffsetY].SetText(render.Num(pn.OffsetY))
}

func (p *editPanel) deleteSelected() {
	c, err := p.ctrl.DeleteSelected()
	if err != nil {
		dialog.ShowInformation("Delete", "Nothing selected.", p.w)
		return
	}
	confirmThen(p.w, "Delete", c)
}

func (p *editPanel) chooseImage() {
	open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, p.w)
			return
		}
		if rc == nil {
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(err, p.w)
			return
		}
		c, err := p.ctrl.AttachImage(data)
		if err != nil {
			dialog.ShowError(err, p.w)
			return
		}
		confirmThen(p.w, "Large image", c)
	}, p.w)
	open.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif"}))
	open.Show()
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

// CardCanvas shows the print sheet and lets the user pick and drag things on
// the primary card. Wheel zooms, dragging empty space pans.
type CardCanvas struct {
	widget.BaseWidget

	ctrl    *editor.Controller
	view    *viewport
	gesture *gesture
	images  map[string]image.Image
}

func NewCardCanvas(ctrl *editor.Controller) *CardCanvas {
	v := newViewport()
	cc := &CardCanvas{
		ctrl:    ctrl,
		view:    v,
		gesture: &gesture{ctrl: ctrl, view: v},
		images:  map[string]image.Image{},
	}
	cc.ExtendBaseWidget(cc)
	return cc
}

func (c *CardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	page := canvas.NewRectangle(color.White)
	page.StrokeColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	page.StrokeWidth = 1
	r := &cardCanvasRenderer{cc: c, bg: bg, page: page}
	r.rebuild()
	return r
}

// PreferredSize sets a decent default size for the widget.
func (c *CardCanvas) PreferredSize() fyne.Size { return fyne.NewSize(700, 800) }

func (c *CardCanvas) Tapped(e *fyne.PointEvent) {
	c.gesture.tap(e.Position.X, e.Position.Y)
}

func (c *CardCanvas) Dragged(e *fyne.DragEvent) {
	c.gesture.drag(e.Position.X, e.Position.Y, e.Dragged.DX, e.Dragged.DY)
	if c.gesture.mode == dragPan {
		c.Refresh()
	}
}

func (c *CardCanvas) DragEnd() { c.gesture.end() }

func (c *CardCanvas) Scrolled(e *fyne.ScrollEvent) {
	c.view.zoomBy(e.Scrolled.DY * 0.02)
	c.Refresh()
}

// image returns the decoded picture for a node image source, cached by source.
func (c *CardCanvas) image(src string) image.Image {
	if img, ok := c.images[src]; ok {
		return img
	}
	img, err := decodeSource(src)
	if err != nil {
		applog.WithComponent("ui").Debug("image not shown", slog.String("src", truncate(src, 64)), slog.Any("err", err))
	}
	c.images[src] = img
	return img
}

func decodeSource(src string) (image.Image, error) {
	if strings.HasPrefix(src, "data:") {
		return imaging.DecodeDataURL(src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(data, imaging.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return img, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

var (
	inkColor       = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	cutColor       = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	selectionColor = color.RGBA{R: 10, G: 132, B: 255, A: 255}
	transparent    = color.RGBA{}
)

type cardCanvasRenderer struct {
	cc      *CardCanvas
	bg      *canvas.Rectangle
	page    *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *cardCanvasRenderer) Destroy()                     {}
func (r *cardCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *cardCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(300, 300) }
func (r *cardCanvasRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.cc)
}

func (r *cardCanvasRenderer) Layout(size fyne.Size) {
	r.cc.view.resize(size.Width, size.Height)
	r.rebuild()
}

// rebuild recreates the canvas objects from the controller's current sheet.
func (r *cardCanvasRenderer) rebuild() {
	v := r.cc.view
	sheet := r.cc.ctrl.Sheet()
	r.bg.Resize(fyne.NewSize(v.w, v.h))
	r.bg.Move(fyne.NewPos(0, 0))
	x, y, w, h := v.rect(geometry.R(0, 0, sheet.Width, sheet.Height))
	r.page.Move(fyne.NewPos(x, y))
	r.page.Resize(fyne.NewSize(w, h))

	objs := []fyne.CanvasObject{r.bg, r.page}
	for _, card := range sheet.Cards {
		render.Walk(card, func(n *render.Node) bool {
			objs = append(objs, r.objectsFor(n)...)
			return true
		})
	}
	r.objects = objs
}

func (r *cardCanvasRenderer) objectsFor(n *render.Node) []fyne.CanvasObject {
	v := r.cc.view
	x, y, w, h := v.rect(n.Box)
	place := func(o fyne.CanvasObject) fyne.CanvasObject {
		o.Move(fyne.NewPos(x, y))
		o.Resize(fyne.NewSize(w, h))
		return o
	}
	switch n.Kind {
	case render.KindCard:
		rect := canvas.NewRectangle(color.White)
		rect.StrokeColor = cutColor
		rect.StrokeWidth = 1
		return []fyne.CanvasObject{place(rect)}
	case render.KindSubcard:
		if !n.Selected {
			return nil
		}
		rect := canvas.NewRectangle(transparent)
		rect.StrokeColor = selectionColor
		rect.StrokeWidth = 2
		return []fyne.CanvasObject{place(rect)}
	case render.KindHeader, render.KindLabel:
		t := canvas.NewText(n.Text, inkColor)
		t.TextSize = max(float32(render.LabelHeight)*v.zoom*0.6, 6)
		t.Move(fyne.NewPos(x, y))
		return []fyne.CanvasObject{t}
	case render.KindSegment:
		fill := color.Color(transparent)
		if n.Marked {
			fill = inkColor
		}
		rect := canvas.NewRectangle(fill)
		rect.StrokeColor = inkColor
		rect.StrokeWidth = 1
		return []fyne.CanvasObject{place(rect)}
	case render.KindFrame:
		var out []fyne.CanvasObject
		if n.Image != "" {
			if img := r.cc.image(n.Image); img != nil {
				ci := canvas.NewImageFromImage(img)
				ci.FillMode = canvas.ImageFillContain
				out = append(out, place(ci))
			}
		}
		rect := canvas.NewRectangle(transparent)
		rect.StrokeColor = inkColor
		rect.StrokeWidth = 1
		return append(out, place(rect))
	case render.KindCircle:
		circ := canvas.NewCircle(transparent)
		circ.StrokeColor = inkColor
		circ.StrokeWidth = 1
		return []fyne.CanvasObject{place(circ)}
	case render.KindCrosshair:
		line := canvas.NewLine(inkColor)
		line.StrokeWidth = 1
		line.Position1 = fyne.NewPos(x, y)
		line.Position2 = fyne.NewPos(x+w, y+h)
		return []fyne.CanvasObject{line}
	default:
		return nil
	}
}
