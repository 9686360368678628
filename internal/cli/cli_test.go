/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rangecard/internal/config"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memTokens) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

const sampleCard = `{
  "cordLength": 600,
  "distances": [100, 200],
  "things": [
    {"id": "soldier", "name": "Soldier", "height": 1.8, "width": 0.5, "offsetX": 5, "offsetY": 20}
  ]
}`

// sandbox points config and storage into a temp dir and returns it.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigFile, filepath.Join(dir, "config.yaml"))
	t.Setenv(config.EnvStorageBackend, "file")
	t.Setenv(config.EnvStoragePath, filepath.Join(dir, "card.json"))
	t.Setenv(config.EnvSeedURL, "")
	t.Setenv(config.EnvServerAddr, "")
	t.Setenv(config.EnvLogLevel, "error")
	t.Cleanup(config.UseTokenStore(memTokens{}))
	return dir
}

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if ctx == nil {
		ctx = context.Background()
	}
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestVersion(t *testing.T) {
	sandbox(t)
	out, err := run(t, nil, "version")
	if err != nil || !strings.HasPrefix(out, "rangecard ") {
		t.Fatalf("version: %q %v", out, err)
	}
}

func TestValidate(t *testing.T) {
	dir := sandbox(t)
	good := writeFile(t, dir, "good.json", sampleCard)
	out, err := run(t, nil, "validate", good)
	if err != nil {
		t.Fatalf("validate good: %v\n%s", err, out)
	}
	if !strings.Contains(out, "is valid") || !strings.Contains(out, "(1 things, 2 distances)") {
		t.Fatalf("unexpected output: %q", out)
	}

	bad := writeFile(t, dir, "bad.json", `{"things":[{"id":"c","name":"Reticle","type":"milCircle","milDiameter":-1}]}`)
	out, err = run(t, nil, "validate", bad)
	if !errors.Is(err, errValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if !strings.Contains(out, "milDiameter must be a positive number") {
		t.Fatalf("reason missing from output: %q", out)
	}

	if _, err := run(t, nil, "validate", filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRenderFromFile(t *testing.T) {
	dir := sandbox(t)
	in := writeFile(t, dir, "card.in.json", sampleCard)
	out := filepath.Join(dir, "sheet.svg")
	msg, err := run(t, nil, "render", in, "-o", out)
	if err != nil {
		t.Fatalf("render: %v\n%s", err, msg)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Contains(data, []byte("<svg")) || !bytes.Contains(data, []byte("Soldier")) {
		t.Fatalf("svg lacks expected content")
	}
	if !strings.Contains(msg, "svg, 1 things") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRenderFormatFlagWinsOverExtension(t *testing.T) {
	dir := sandbox(t)
	out := filepath.Join(dir, "sheet.out")
	if _, err := run(t, nil, "render", "--format", "html", "-o", out); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Contains(data, []byte("<html")) {
		t.Fatalf("expected html output")
	}
	if _, err := run(t, nil, "render", "--format", "tiff", "-o", out); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestImportExport(t *testing.T) {
	dir := sandbox(t)
	in := writeFile(t, dir, "card.in.json", sampleCard)
	if out, err := run(t, nil, "import", in); err != nil || !strings.Contains(out, "Imported 1 things") {
		t.Fatalf("import: %q %v", out, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "card.json")); err != nil {
		t.Fatalf("store file not written: %v", err)
	}
	out, err := run(t, nil, "export", "-o", "-")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, `"soldier"`) || !strings.Contains(out, `"cordLength": 600`) {
		t.Fatalf("export lacks imported card: %s", out)
	}
}

func TestImportRejectsInvalidCard(t *testing.T) {
	dir := sandbox(t)
	bad := writeFile(t, dir, "bad.json", `{"things":[{"id":"a","name":"A","height":0,"width":1}]}`)
	if _, err := run(t, nil, "import", bad); err == nil {
		t.Fatalf("expected import error")
	}
	if _, err := os.Stat(filepath.Join(dir, "card.json")); !os.IsNotExist(err) {
		t.Fatalf("rejected import must not be stored")
	}
}

func TestConfigCommands(t *testing.T) {
	dir := sandbox(t)
	out, err := run(t, nil, "config", "path")
	if err != nil || strings.TrimSpace(out) != filepath.Join(dir, "config.yaml") {
		t.Fatalf("config path: %q %v", out, err)
	}
	alt := filepath.Join(dir, "alt.yaml")
	if out, _ := run(t, nil, "--config", alt, "config", "path"); strings.TrimSpace(out) != alt {
		t.Fatalf("--config not honoured: %q", out)
	}

	if _, err := run(t, nil, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}

	if _, err := run(t, nil, "config", "set-token", "abc"); err != nil {
		t.Fatalf("set-token: %v", err)
	}
	t.Setenv(config.EnvServerAddr, "0.0.0.0:9999")
	out, err = run(t, nil, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"addr: 0.0.0.0:9999", "# server.addr overridden by RC_SERVER_ADDR", "# seed token stored in keyring"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show lacks %q:\n%s", want, out)
		}
	}
	if _, err := run(t, nil, "config", "delete-token"); err != nil {
		t.Fatalf("delete-token: %v", err)
	}
	if out, _ := run(t, nil, "config", "show"); strings.Contains(out, "seed token") {
		t.Fatalf("token still reported after delete")
	}
}

func TestMalformedConfigFails(t *testing.T) {
	dir := sandbox(t)
	writeFile(t, dir, "config.yaml", "server: [oops")
	if _, err := run(t, nil, "version"); err == nil {
		t.Fatalf("expected error for malformed config")
	}
}

func TestServeStopsWithContext(t *testing.T) {
	sandbox(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := run(t, ctx, "serve", "--addr", "127.0.0.1:0"); err != nil {
		t.Fatalf("serve: %v", err)
	}
}
