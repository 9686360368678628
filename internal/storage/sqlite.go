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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rangecard/internal/domain"
	applog "rangecard/internal/log"
	"rangecard/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// schemaVersion tracks the local SQLite schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2

	// DefaultKeepRevisions is how many saved versions of the card are retained.
	DefaultKeepRevisions = 20
)

// language=SQL
// dialect=SQLite
const upsertCardSQL = `INSERT INTO card(id, body, updated_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(ts, body) VALUES (?, ?)`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM revisions WHERE id NOT IN (
	SELECT id FROM revisions ORDER BY id DESC LIMIT ?
)`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT ts, body FROM revisions ORDER BY id DESC LIMIT ?`

// SQLiteStore keeps the card in an embedded SQLite database.
type SQLiteStore struct {
	db            *sql.DB
	path          string
	KeepRevisions int
}

// Revision is a previously saved card body.
type Revision struct {
	TS   time.Time
	Body []byte
}

// OpenSQLite creates or opens the database at path, enables WAL mode and
// brings the schema up to date.
func OpenSQLite(path string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "sqlite_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	// Convert to forward slashes for the SQLite URI.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("database ready")
	return &SQLiteStore{db: db, path: path, KeepRevisions: DefaultKeepRevisions}, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS card (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			body       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// a fresh database starts at schema 1 and is migrated from there
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE TABLE IF NOT EXISTS revisions (
					id   INTEGER PRIMARY KEY,
					ts   TEXT NOT NULL,
					body TEXT NOT NULL
				);`,
				`CREATE INDEX IF NOT EXISTS idx_revisions_ts ON revisions(ts);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// Load returns the current card, falling back to the newest readable revision
// when the stored body is corrupt.
func (s *SQLiteStore) Load(ctx context.Context) (domain.Card, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM card WHERE id=1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, false, nil
	}
	if err != nil {
		return domain.Card{}, false, fmt.Errorf("read card: %w", err)
	}
	c, perr := decodeCard([]byte(body))
	if perr == nil {
		return c, true, nil
	}
	revs, err := s.Revisions(ctx, s.KeepRevisions)
	if err != nil {
		return domain.Card{}, false, fmt.Errorf("%w; revisions: %v", perr, err)
	}
	for _, r := range revs {
		if c, err := decodeCard(r.Body); err == nil {
			applog.WithComponent("storage").Warn("stored card corrupt, restored revision", slog.Time("ts", r.TS))
			return c, true, nil
		}
	}
	return domain.Card{}, false, perr
}

// Save replaces the card and appends a revision, in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, c domain.Card) error {
	data, err := ExportCard(c)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertCardSQL, string(data), now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save card: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertRevisionSQL, now, string(data)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save revision: %w", err)
	}
	if s.KeepRevisions > 0 {
		if _, err := tx.ExecContext(ctx, pruneRevisionsSQL, s.KeepRevisions); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prune revisions: %w", err)
		}
	}
	return tx.Commit()
}

// Revisions returns up to limit most recent saved versions, newest first.
func (s *SQLiteStore) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = DefaultKeepRevisions
	}
	rows, err := s.db.QueryContext(ctx, listRevisionsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Revision
	for rows.Next() {
		var ts, body string
		if err := rows.Scan(&ts, &body); err != nil {
			return nil, err
		}
		t, _ := time.Parse(time.RFC3339Nano, ts)
		out = append(out, Revision{TS: t, Body: []byte(body)})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
