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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"rangecard/internal/domain"
	applog "rangecard/internal/log"
)

const (
	CardFileName   = "card.json"
	BackupsDirName = "backups"
	// DefaultKeepBackups bounds the backups directory; autosave runs on every edit.
	DefaultKeepBackups = 10
)

// FileStore keeps the card in a JSON file next to a backups folder.
type FileStore struct {
	Path        string
	KeepBackups int
}

// NewFileStore prepares a store writing to path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("card path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create card dir: %w", err)
	}
	return &FileStore{Path: path, KeepBackups: DefaultKeepBackups}, nil
}

func (s *FileStore) backupsDir() string { return filepath.Join(filepath.Dir(s.Path), BackupsDirName) }

// Load reads the card file. If it is unreadable or corrupt the latest backup is used.
func (s *FileStore) Load(context.Context) (domain.Card, bool, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		c, berr := s.latestBackup()
		if berr != nil {
			return domain.Card{}, false, nil
		}
		return c, true, nil
	}
	if err == nil {
		c, perr := decodeCard(b)
		if perr == nil {
			return c, true, nil
		}
		err = perr
	}
	c, berr := s.latestBackup()
	if berr != nil {
		return domain.Card{}, false, fmt.Errorf("open card: %w; backup attempt: %v", err, berr)
	}
	applog.WithComponent("storage").Warn("card file unreadable, restored latest backup", slog.String("path", s.Path), slog.Any("err", err))
	return c, true, nil
}

// Save writes the card transactionally after copying the previous file into backups.
func (s *FileStore) Save(_ context.Context, c domain.Card) error {
	data, err := ExportCard(c)
	if err != nil {
		return err
	}
	bdir := s.backupsDir()
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	base := filepath.Base(s.Path)
	if _, statErr := os.Stat(s.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", base, stamp))
		if cerr := copyFile(s.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current card: %w", cerr)
		}
		s.pruneBackups()
	}

	// temp file in the same directory, then rename over the target
	temp := filepath.Join(filepath.Dir(s.Path), fmt.Sprintf(".%s.tmp-%d-%d", base, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp card: %w", werr)
	}
	if rerr := replaceFile(temp, s.Path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace card: %w", rerr)
	}
	return nil
}

// replaceFile renames src over dst. Rename is atomic on POSIX; Windows
// refuses to rename over an existing file, so dst is removed first there.
func replaceFile(src, dst string) error {
	if runtime.GOOS == "windows" {
		if _, err := os.Stat(dst); err == nil {
			_ = os.Remove(dst)
		}
	}
	return os.Rename(src, dst)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) backups() ([]string, error) {
	bdir := s.backupsDir()
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(s.Path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func (s *FileStore) pruneBackups() {
	if s.KeepBackups <= 0 {
		return
	}
	all, err := s.backups()
	if err != nil {
		return
	}
	for len(all) > s.KeepBackups {
		_ = os.Remove(all[0])
		all = all[1:]
	}
}

func (s *FileStore) latestBackup() (domain.Card, error) {
	all, err := s.backups()
	if err != nil {
		return domain.Card{}, err
	}
	if len(all) == 0 {
		return domain.Card{}, errors.New("no backups found")
	}
	b, err := os.ReadFile(all[len(all)-1])
	if err != nil {
		return domain.Card{}, fmt.Errorf("read latest backup: %w", err)
	}
	c, err := decodeCard(b)
	if err != nil {
		return domain.Card{}, fmt.Errorf("parse latest backup: %w", err)
	}
	return c, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
