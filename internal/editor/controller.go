/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns the card being edited and is its only mutator.
//
// Every structural change runs as one transaction: record an undo snapshot,
// mutate, render the whole sheet, autosave. A failed save is reported as a
// notice and does not roll the edit back. The controller is not safe for
// concurrent use; callers serialize access.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"rangecard/internal/domain"
	"rangecard/internal/geometry"
	"rangecard/internal/imaging"
	applog "rangecard/internal/log"
	"rangecard/internal/render"
	"rangecard/internal/storage"
	"rangecard/internal/undo"
)

var (
	ErrNoSelection  = errors.New("no thing selected")
	ErrUnknownThing = errors.New("unknown thing")
	ErrNotSized     = errors.New("selected thing does not take an image")
	ErrInvalidValue = errors.New("invalid value")
	ErrBadImage     = errors.New("unsupported image")
)

// Options wire the controller to its collaborators. All fields are optional.
type Options struct {
	// Store receives autosaves; nil keeps the card in memory only.
	Store storage.Store
	// Seed is tried on bootstrap when the store holds no card with things.
	Seed    storage.Seed
	Render  render.Options
	Image   imaging.Options
	History undo.Config
	// SaveTimeout bounds a single autosave (default 5s).
	SaveTimeout time.Duration
}

type Controller struct {
	opts     Options
	card     domain.Card
	selected string
	panel    Panel
	sheet    *render.Sheet
	hist     *undo.Manager
	drag     *dragState
	subs     []subscriber
	nextSub  int
	lastSave error
	log      *slog.Logger
}

// New returns a controller holding the default card.
func New(opts Options) *Controller {
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 5 * time.Second
	}
	c := &Controller{
		opts: opts,
		card: domain.Default(),
		hist: undo.NewManager(opts.History),
		log:  applog.WithComponent("editor"),
	}
	c.sheet = render.Render(c.card, "", opts.Render)
	return c
}

// Bootstrap loads the stored card, or the seed when nothing usable is stored,
// or keeps the defaults. Seed failures are silent. Nothing is recorded or saved.
func (c *Controller) Bootstrap(ctx context.Context) {
	l := applog.WithOperation(c.log, "bootstrap")
	loaded := false
	if c.opts.Store != nil {
		card, ok, err := c.opts.Store.Load(ctx)
		switch {
		case err != nil:
			l.Warn("load stored card failed", slog.Any("err", err))
		case ok && len(card.Things) > 0:
			c.card, loaded = card, true
		}
	}
	if !loaded {
		if card, err := c.opts.Seed.Fetch(ctx); err == nil {
			c.card = card
			l.Info("seed loaded", slog.String("src", c.opts.Seed.Source), slog.Int("things", len(card.Things)))
		} else if !errors.Is(err, storage.ErrNoSeed) {
			l.Debug("seed unavailable, using defaults", slog.Any("err", err))
		}
	}
	c.drag = nil
	c.selected = c.card.FirstID()
	c.refreshPanel()
	c.commit()
}

// Card returns a deep copy of the current card.
func (c *Controller) Card() domain.Card { return c.card.Clone() }

func (c *Controller) Selected() string { return c.selected }

func (c *Controller) Panel() Panel { return c.panel }

// Sheet returns the current visual tree, including any live drag preview.
func (c *Controller) Sheet() *render.Sheet { return c.sheet }

// RenderOptions returns the options the sheet is rendered with.
func (c *Controller) RenderOptions() render.Options { return c.opts.Render }

func (c *Controller) CanUndo() bool { return c.hist.CanUndo() }

func (c *Controller) CanRedo() bool { return c.hist.CanRedo() }

// LastSaveError returns the error of the most recent autosave, nil on success.
func (c *Controller) LastSaveError() error { return c.lastSave }

// Select makes id the selected thing and refreshes the panel.
func (c *Controller) Select(id string) error {
	if c.card.Find(id) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownThing, id)
	}
	c.selected = id
	c.refreshPanel()
	c.sheet = render.Render(c.card, c.selected, c.opts.Render)
	c.emit(Event{Kind: EventSelect, Sheet: c.sheet})
	return nil
}

// AddSizedObject appends a default object, selects it and returns its id.
func (c *Controller) AddSizedObject() string { return c.add(domain.NewSizedObject()) }

// AddCircle appends a default reticle circle, selects it and returns its id.
func (c *Controller) AddCircle() string { return c.add(domain.NewMilCircle()) }

func (c *Controller) add(t domain.Thing) string {
	c.transact("add", func() {
		c.card.Append(t)
		c.selected = t.ID
	})
	return t.ID
}

// DeleteSelected asks to remove the selected thing. After acceptance the first
// remaining thing is selected.
func (c *Controller) DeleteSelected() (*Confirmation, error) {
	t := c.card.Find(c.selected)
	if t == nil {
		return nil, ErrNoSelection
	}
	id, name := t.ID, t.Name
	return &Confirmation{
		Message: fmt.Sprintf("Delete %q?", name),
		accept: func() error {
			if c.card.Find(id) == nil {
				return nil
			}
			c.transact("delete", func() {
				c.card.Remove(id)
				c.selected = c.card.FirstID()
			})
			return nil
		},
	}, nil
}

// Reset asks to replace the card with the defaults.
func (c *Controller) Reset() *Confirmation {
	return &Confirmation{
		Message: "Reset all changes to the default values?",
		accept: func() error {
			c.replace("reset", domain.Default())
			return nil
		},
	}
}

// SetCordLength changes the reference cord length in millimeters.
func (c *Controller) SetCordLength(mm float64) error {
	if !domain.Positive(mm) {
		return fmt.Errorf("%w: cord length must be a positive number", ErrInvalidValue)
	}
	c.transact("cord_length", func() { c.card.CordLength = mm })
	return nil
}

// SetDistances parses raw and replaces the distances. Input without any positive
// number is ignored and reported as false.
func (c *Controller) SetDistances(raw string) bool {
	ds := domain.ParseDistances(raw)
	if len(ds) == 0 {
		return false
	}
	c.transact("distances", func() { c.card.Distances = ds })
	return true
}

// SetField applies an edit panel input to the selected thing. Fields hidden for
// the thing's variant and unknown fields are ignored. Editing the MOA value
// derives the mil value; any other edit keeps mils as the source of truth.
func (c *Controller) SetField(f Field, raw string) error {
	t := c.card.Find(c.selected)
	if t == nil {
		return ErrNoSelection
	}
	if !c.panel.Visible(f) || f == FieldImage {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if f == FieldName {
		if raw == "" {
			return fmt.Errorf("%w: name must not be empty", ErrInvalidValue)
		}
		c.transact("edit", func() { t.Name = raw })
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%w: %s %q", ErrInvalidValue, f, raw)
	}
	switch f {
	case FieldOffsetX, FieldOffsetY:
		if !domain.Finite(v) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidValue, f)
		}
	default:
		if !domain.Positive(v) {
			return fmt.Errorf("%w: %s must be a positive number", ErrInvalidValue, f)
		}
	}
	mils := v
	if f == FieldMoaDiameter {
		mils = geometry.Round3(geometry.MoaToMils(v))
		if !domain.Positive(mils) {
			return fmt.Errorf("%w: %s rounds to zero mil", ErrInvalidValue, f)
		}
	}
	c.transact("edit", func() {
		switch f {
		case FieldOffsetX:
			t.OffsetX = v
		case FieldOffsetY:
			t.OffsetY = v
		case FieldHeight:
			s := t.Shape.(domain.SizedObject)
			s.Height = v
			t.Shape = s
		case FieldWidth:
			s := t.Shape.(domain.SizedObject)
			s.Width = v
			t.Shape = s
		case FieldMilDiameter, FieldMoaDiameter:
			t.Shape = domain.MilCircle{MilDiameter: mils}
		}
	})
	return nil
}

// AttachImage embeds an uploaded image in the selected sized object. The image
// header is checked first; unknown formats and images above the pixel cap are
// rejected with ErrBadImage. Uploads above the size threshold return a
// Confirmation; accepting it shrinks the image and attaches it. The target is fixed when AttachImage is called: if
// that thing is gone by the time the confirmation is accepted nothing happens.
func (c *Controller) AttachImage(data []byte) (*Confirmation, error) {
	t := c.card.Find(c.selected)
	if t == nil {
		return nil, ErrNoSelection
	}
	if _, ok := t.Shape.(domain.SizedObject); !ok {
		return nil, ErrNotSized
	}
	if _, err := imaging.Check(data, c.opts.Image); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadImage, err)
	}
	id := t.ID
	if !imaging.NeedsResize(len(data), c.opts.Image) {
		c.setImage(id, imaging.DataURL(data, ""))
		return nil, nil
	}
	limit := c.opts.Image.MaxBytes
	if limit <= 0 {
		limit = imaging.DefaultOptions().MaxBytes
	}
	return &Confirmation{
		Message: fmt.Sprintf("The image is %d KB, which exceeds the %d KB limit.\nIt will be scaled down automatically. Continue?", len(data)/1024, limit/1024),
		accept: func() error {
			if c.card.Find(id) == nil {
				c.log.Debug("image target gone", slog.String("thing", id))
				return nil
			}
			small, err := imaging.Shrink(data, c.opts.Image)
			if err != nil {
				c.notice("Could not read the image: " + err.Error())
				return err
			}
			c.setImage(id, imaging.DataURL(small, "image/jpeg"))
			return nil
		},
	}, nil
}

// ClearImage removes the uploaded image of the selected thing.
func (c *Controller) ClearImage() error {
	t := c.card.Find(c.selected)
	if t == nil {
		return ErrNoSelection
	}
	if _, ok := t.Shape.(domain.SizedObject); !ok {
		return ErrNotSized
	}
	c.setImage(t.ID, "")
	return nil
}

func (c *Controller) setImage(id, url string) {
	c.transact("image", func() {
		t := c.card.Find(id)
		s := t.Shape.(domain.SizedObject)
		s.ImageDataURL = url
		t.Shape = s
	})
}

// Undo restores the previous snapshot. It reports false when there is none or
// when the snapshot cannot be restored; the history is left as it was then.
func (c *Controller) Undo() bool {
	prev, ok := c.hist.Undo(c.snapshot())
	if !ok {
		return false
	}
	if err := c.restore(prev); err != nil {
		// put the entry back
		c.hist.Redo(prev)
		return false
	}
	return true
}

// Redo re-applies the last undone change. It reports false when there is none
// or when the snapshot cannot be restored.
func (c *Controller) Redo() bool {
	next, ok := c.hist.Redo(c.snapshot())
	if !ok {
		return false
	}
	if err := c.restore(next); err != nil {
		c.hist.Undo(next)
		return false
	}
	return true
}

// Import replaces the card with a validated document. A rejected document
// leaves the card untouched, is reported as a notice and returned as a
// *storage.ValidationError.
func (c *Controller) Import(data []byte) error {
	card, err := storage.ImportCard(data)
	if err != nil {
		var ve *storage.ValidationError
		if errors.As(err, &ve) {
			c.notice(ve.Msg)
		}
		return err
	}
	c.replace("import", card)
	return nil
}

// Export serializes the current card for download as storage.ExportFileName.
func (c *Controller) Export() ([]byte, error) { return storage.ExportCard(c.card) }

// Load replaces the card with the stored one. A store without a card, or
// with an empty one, leaves the card untouched and reports false.
func (c *Controller) Load(ctx context.Context) (bool, error) {
	if c.opts.Store == nil {
		return false, nil
	}
	card, ok, err := c.opts.Store.Load(ctx)
	if err != nil {
		c.notice("Could not load the saved card: " + err.Error())
		return false, err
	}
	if !ok || len(card.Things) == 0 {
		return false, nil
	}
	c.replace("load", card)
	return true, nil
}

// Save writes the card to the store now.
func (c *Controller) Save(ctx context.Context) error {
	if c.opts.Store == nil {
		return nil
	}
	err := c.opts.Store.Save(ctx, c.card)
	c.lastSave = err
	if err != nil {
		c.notice("Could not save: " + err.Error())
	}
	return err
}

// replace swaps in a whole card and selects its first thing.
func (c *Controller) replace(op string, card domain.Card) {
	c.transact(op, func() {
		c.card = card
		c.selected = c.card.FirstID()
	})
}

// transact records the pre-edit state, applies mutate, then commits and autosaves.
func (c *Controller) transact(op string, mutate func()) {
	c.hist.Record(c.snapshot())
	mutate()
	c.afterChange(false)
	applog.WithOperation(c.log, op).Debug("committed", slog.String("selected", c.selected), slog.Int("things", len(c.card.Things)))
}

func (c *Controller) afterChange(resetSelection bool) {
	c.drag = nil
	if resetSelection || c.card.Find(c.selected) == nil {
		c.selected = c.card.FirstID()
	}
	c.refreshPanel()
	c.commit()
	c.autosave()
}

func (c *Controller) commit() {
	c.sheet = render.Render(c.card, c.selected, c.opts.Render)
	c.emit(Event{Kind: EventCommit, Sheet: c.sheet})
}

func (c *Controller) autosave() {
	if c.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SaveTimeout)
	defer cancel()
	_ = c.Save(ctx)
}

func (c *Controller) refreshPanel() { c.panel = panelFor(c.card.Find(c.selected)) }

func (c *Controller) snapshot() []byte {
	b, err := json.Marshal(c.card)
	if err != nil {
		// cards built through the controller always marshal
		c.log.Error("snapshot failed", slog.Any("err", err))
	}
	return b
}

func (c *Controller) restore(blob []byte) error {
	var card domain.Card
	if err := json.Unmarshal(blob, &card); err != nil {
		c.log.Error("restore snapshot failed", slog.Any("err", err))
		return err
	}
	if card.Things == nil {
		card.Things = []domain.Thing{}
	}
	c.card = card
	c.afterChange(false)
	return nil
}
