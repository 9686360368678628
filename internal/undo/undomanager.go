/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps a linear undo/redo history of opaque document snapshots.
package undo

import (
	"sync"
	"time"
)

// DefaultDepth is the number of undo steps kept when Config.MaxDepth is zero.
const DefaultDepth = 50

// Snapshot is a reversible state blob. Blob content is opaque to the manager;
// size is estimated as len(Blob). TS is when the snapshot was captured.
type Snapshot struct {
	Blob []byte
	TS   time.Time
}

// Config controls depth and memory caps. Every Record is one undo step.
type Config struct {
	// MaxDepth limits the undo stack; the oldest entries are evicted first.
	MaxDepth int
	// MaxBytes is a soft cap on undo memory (0 means unlimited).
	MaxBytes int
}

// Manager provides an undo stack and a redo stack.
// The redo stack is never evicted, only cleared by Record.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo []Snapshot
	redo []Snapshot
	// bytes held by the undo stack
	totalBytes int
	now        func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultDepth
	}
	return &Manager{cfg: cfg, now: time.Now}
}

// Record pushes the pre-edit state onto the undo stack and clears redo.
func (m *Manager) Record(blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{Blob: blob, TS: m.now()}
	m.redo = nil
	m.undo = append(m.undo, s)
	m.totalBytes += len(blob)
	m.enforceCapsLocked()
}

// Undo swaps current for the most recent undo snapshot. current goes onto the
// redo stack. It returns false and leaves both stacks untouched when there is
// nothing to undo.
func (m *Manager) Undo(current []byte) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.undo)
	if n == 0 {
		return nil, false
	}
	s := m.undo[n-1]
	m.undo = m.undo[:n-1]
	m.totalBytes -= len(s.Blob)
	m.redo = append(m.redo, Snapshot{Blob: current, TS: m.now()})
	return s.Blob, true
}

// Redo is the mirror of Undo: current goes back onto the undo stack.
func (m *Manager) Redo(current []byte) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.redo)
	if n == 0 {
		return nil, false
	}
	s := m.redo[n-1]
	m.redo = m.redo[:n-1]
	m.undo = append(m.undo, Snapshot{Blob: current, TS: m.now()})
	m.totalBytes += len(current)
	m.enforceCapsLocked()
	return s.Blob, true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo, m.redo = nil, nil
	m.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, undoDepth int, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.undo), len(m.redo)
}

func (m *Manager) enforceCapsLocked() {
	if extra := len(m.undo) - m.cfg.MaxDepth; extra > 0 {
		for i := 0; i < extra; i++ {
			m.totalBytes -= len(m.undo[i].Blob)
		}
		m.undo = append([]Snapshot{}, m.undo[extra:]...)
	}
	// Memory cap: prune oldest, but always keep the latest step.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes && len(m.undo) > 1 {
		m.totalBytes -= len(m.undo[0].Blob)
		m.undo = m.undo[1:]
	}
}
