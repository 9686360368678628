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
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"rangecard/internal/domain"
)

func sample() domain.Card {
	return domain.Card{
		CordLength: 600,
		Distances:  []float64{100, 200},
		Things: []domain.Thing{
			{ID: "soldier", Name: "Soldier", OffsetX: 1, OffsetY: 2, Shape: domain.SizedObject{Height: 1.8, Width: 0.5}},
			{ID: "c1", Name: "Reticle", Shape: domain.MilCircle{MilDiameter: 5}},
		},
	}
}

func TestFileStoreRoundTripAndBackups(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", CardFileName)
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, ok, err := s.Load(ctx); ok || err != nil {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	c := sample()
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	c.CordLength = 450
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, ok, err := s.Load(ctx)
	if err != nil || !ok || !reflect.DeepEqual(got, c) {
		t.Fatalf("load mismatch ok=%v err=%v got=%+v", ok, err, got)
	}
	baks, err := s.backups()
	if err != nil || len(baks) != 1 {
		t.Fatalf("expected one backup, got %d (%v)", len(baks), err)
	}
}

func TestFileStoreRestoresBackupOnCorruption(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), CardFileName)
	s, _ := NewFileStore(path)
	first := sample()
	_ = s.Save(ctx, first)
	second := sample()
	second.CordLength = 300
	_ = s.Save(ctx, second)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("expected backup restore, got ok=%v err=%v", ok, err)
	}
	if got.CordLength != 600 {
		t.Fatalf("expected latest backup (600), got %v", got.CordLength)
	}
}

func TestFailedReplaceKeepsCard(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("replace removes the destination first on windows")
	}
	dir := t.TempDir()
	dst := filepath.Join(dir, "card.json")
	if err := os.WriteFile(dst, []byte(`{"things":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := replaceFile(filepath.Join(dir, "missing.tmp"), dst); err == nil {
		t.Fatalf("expected rename error")
	}
	if b, err := os.ReadFile(dst); err != nil || string(b) != `{"things":[]}` {
		t.Fatalf("card must survive a failed replace: %q %v", b, err)
	}

	src := filepath.Join(dir, "next.tmp")
	if err := os.WriteFile(src, []byte("next"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := replaceFile(src, dst); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if b, _ := os.ReadFile(dst); string(b) != "next" {
		t.Fatalf("unexpected content %q", b)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("temp file must be gone, stat err=%v", err)
	}
}

func TestFileStorePrunesBackups(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(filepath.Join(t.TempDir(), CardFileName))
	s.KeepBackups = 3
	for i := 0; i < 8; i++ {
		c := sample()
		c.CordLength = float64(100 + i)
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	baks, _ := s.backups()
	if len(baks) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(baks))
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "rangecard.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	if _, ok, err := s.Load(ctx); ok || err != nil {
		t.Fatalf("expected empty db, got ok=%v err=%v", ok, err)
	}
	s.KeepRevisions = 2
	for _, cord := range []float64{400, 500, 600} {
		c := sample()
		c.CordLength = cord
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, ok, err := s.Load(ctx)
	if err != nil || !ok || !reflect.DeepEqual(got, sample()) {
		t.Fatalf("load mismatch ok=%v err=%v got=%+v", ok, err, got)
	}
	revs, err := s.Revisions(ctx, 10)
	if err != nil || len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d (%v)", len(revs), err)
	}
}

func TestSQLiteStoreReopenKeepsSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rangecard.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.Save(ctx, sample())
	_ = s.Close()
	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	var schema int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil || schema != schemaVersion {
		t.Fatalf("expected schema %d, got %d (%v)", schemaVersion, schema, err)
	}
	if _, ok, _ := s.Load(ctx); !ok {
		t.Fatalf("card lost on reopen")
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	for _, b := range []string{"file", "sqlite", "memory"} {
		s, err := Open(b, filepath.Join(dir, b, "card"))
		if err != nil {
			t.Fatalf("open %s: %v", b, err)
		}
		_ = s.Close()
	}
	if _, err := Open("postgres", dir); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
