/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus a last autosave of the card.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"rangecard/internal/domain"
	applog "rangecard/internal/log"
	"rangecard/internal/storage"
	"rangecard/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Target describes what to rescue. All fields are optional.
type Target struct {
	// Card returns the card being edited.
	Card func() domain.Card
	// Store receives a last save of the card.
	Store storage.Store
	// Dir receives the crash report and a JSON copy of the card; defaults to the temp dir.
	Dir string
}

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file, and attempts a crash-safe autosave
// of the card (if provided).
//
// Usage: defer crash.Recover(target)
func Recover(t Target) {
	if r := recover(); r != nil {
		handle(t, r, debug.Stack())
	}
}

func handle(t Target, panicVal any, stack []byte) {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", panicVal), slog.String("stack", string(stack)))

	stamp := time.Now().Format("20060102-150405")
	reportPath, err := writeReport(t.Dir, stamp, panicVal, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if t.Card != nil {
		rescue(l, t, stamp)
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	// Exit with a non-zero code to indicate failure in CLI context.
	exitFn(2)
}

// rescue saves the card twice: a JSON copy beside the report, then the regular store.
// Reading the card may itself panic when the crash left it half-updated.
func rescue(l *slog.Logger, t Target, stamp string) {
	defer func() {
		if r := recover(); r != nil {
			l.Error("card rescue panicked", slog.Any("panic", r))
		}
	}()
	card := t.Card()
	if data, err := storage.ExportCard(card); err != nil {
		l.Error("encode crash snapshot failed", slog.Any("err", err))
	} else {
		path := filepath.Join(reportDir(t.Dir), fmt.Sprintf("crash-%s-%s", stamp, storage.ExportFileName))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			l.Error("write crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("crash snapshot written", slog.String("path", path))
		}
	}
	if t.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.Store.Save(ctx, card); err != nil {
		l.Error("autosave on crash failed", slog.Any("err", err))
	} else {
		l.Info("autosave on crash written")
	}
}

func reportDir(dir string) string {
	if dir == "" {
		return os.TempDir()
	}
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func writeReport(dir, stamp string, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(dir), fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "rangecard Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
