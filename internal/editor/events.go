/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"log/slog"

	"rangecard/internal/render"
)

type EventKind int

const (
	// EventCommit carries a freshly rendered sheet after a committed change.
	EventCommit EventKind = iota
	// EventPreview carries the live position of a dragged thing; the sheet was only patched.
	EventPreview
	// EventSelect is sent when the selection changes without a document change.
	EventSelect
	// EventNotice carries a message the user must acknowledge, e.g. a failed save.
	EventNotice
)

func (k EventKind) String() string {
	switch k {
	case EventCommit:
		return "commit"
	case EventPreview:
		return "preview"
	case EventSelect:
		return "select"
	case EventNotice:
		return "notice"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind       EventKind
	Sheet      *render.Sheet
	Preview    render.Preview
	SelectedID string
	Panel      Panel
	Notice     string
	CanUndo    bool
	CanRedo    bool
}

// Subscribe registers fn for every event. The returned func removes it.
// Handlers run synchronously on the caller's goroutine and must not call back into
// the controller.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

type subscriber struct {
	id int
	fn func(Event)
}

func (c *Controller) emit(e Event) {
	e.SelectedID = c.selected
	e.Panel = c.panel
	e.CanUndo = c.hist.CanUndo()
	e.CanRedo = c.hist.CanRedo()
	for _, s := range c.subs {
		s.fn(e)
	}
}

func (c *Controller) notice(msg string) {
	c.log.Warn("notice", slog.String("msg", msg))
	c.emit(Event{Kind: EventNotice, Notice: msg})
}
