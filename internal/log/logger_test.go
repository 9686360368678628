/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestJSONConsoleCarriesStaticAndContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Options{Level: "info"}) })

	l := WithOperation(WithComponent("editor"), "add_thing")
	ctx := ContextWith(context.Background(), slog.String("thing", "thing_1"))
	l.InfoContext(ctx, "thing added", slog.Int("count", 3))

	line := strings.TrimSpace(buf.String())
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("unmarshal json log %q: %v", line, err)
	}
	if m["app"] != "rangecard" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "editor" || m["op"] != "add_thing" {
		t.Fatalf("component/op mismatch: %v", m)
	}
	if m["thing"] != "thing_1" {
		t.Fatalf("context attr not injected: %v", m)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("RC_LOG_LEVEL", "warn")
	t.Setenv("RC_LOG_FORMAT", "json")
	t.Setenv("RC_LOG_SOURCE", "true")
	t.Setenv("RC_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("RC_SURELY_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &prettyTextHandler{level: slog.LevelWarn, w: &buf}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	h = h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("drag")

	r := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Float64("dx", 2.5), slog.String("name", "New object"))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ERR boom", "drag.k=v", "drag.dx=2.5", `drag.name="New object"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING") != slog.LevelWarn || parseLevel("") != slog.LevelInfo || parseLevel("debug") != slog.LevelDebug {
		t.Fatalf("parseLevel mismatch")
	}
}
