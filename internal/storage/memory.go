/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"sync"

	"rangecard/internal/domain"
)

// MemoryStore keeps the serialized card in memory.
// Err, when set, is returned by every Save; tests use it to simulate a full disk.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
	Err   error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (domain.Card, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return domain.Card{}, false, nil
	}
	c, err := decodeCard(m.data)
	if err != nil {
		return domain.Card{}, false, err
	}
	return c, true, nil
}

func (m *MemoryStore) Save(_ context.Context, c domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	b, err := ExportCard(c)
	if err != nil {
		return err
	}
	m.data = b
	m.saves++
	return nil
}

// Saves returns how many saves succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Close() error { return nil }
