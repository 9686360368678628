/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rangecard/internal/editor"
	"rangecard/internal/storage"
)

type testEnv struct {
	t     *testing.T
	ed    *editor.Controller
	store *storage.MemoryStore
	h     http.Handler
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	st := storage.NewMemoryStore()
	ed := editor.New(editor.Options{Store: st})
	ed.Bootstrap(context.Background())
	return &testEnv{t: t, ed: ed, store: st, h: New(ed, Options{}).Handler()}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndVersion(t *testing.T) {
	e := newEnv(t)
	if rec := e.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := e.do(http.MethodGet, "/version", nil); rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Fatalf("version: %d", rec.Code)
	}
}

func TestAddPatchAndUndo(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPost, "/api/things", map[string]string{"type": "milCircle"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	id := e.ed.Selected()
	rec = e.do(http.MethodPatch, "/api/things/"+id, map[string]any{"name": "Reticle", "moaDiameter": 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	if p := e.ed.Panel(); p.Name != "Reticle" || p.MilDiameter != 2.909 {
		t.Fatalf("unexpected panel %+v", p)
	}
	rec = e.do(http.MethodPatch, "/api/things/"+id, map[string]any{"milDiameter": "-2"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a negative diameter, got %d", rec.Code)
	}
	e.do(http.MethodPost, "/api/undo", nil)
	e.do(http.MethodPost, "/api/undo", nil)
	if p := e.ed.Panel(); p.Name != "New circle" || p.MilDiameter != 5 {
		t.Fatalf("undo did not restore the circle: %+v", p)
	}
	st := decodeState(t, e.do(http.MethodPost, "/api/redo", nil))
	if st["canRedo"] != true {
		t.Fatalf("expected one more redo step: %v", st)
	}
}

func TestPatchUnknownThing(t *testing.T) {
	e := newEnv(t)
	if rec := e.do(http.MethodPatch, "/api/things/nope", map[string]any{"name": "x"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteNeedsConfirm(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/api/things", nil)
	id := e.ed.Selected()
	rec := e.do(http.MethodDelete, "/api/things/"+id, nil)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "New object") {
		t.Fatalf("expected confirmation request, got %d %s", rec.Code, rec.Body.String())
	}
	if len(e.ed.Card().Things) != 1 {
		t.Fatalf("thing deleted without confirmation")
	}
	if rec := e.do(http.MethodDelete, "/api/things/"+id+"?confirm=true", nil); rec.Code != http.StatusOK {
		t.Fatalf("confirmed delete: %d", rec.Code)
	}
	if len(e.ed.Card().Things) != 0 {
		t.Fatalf("thing not deleted")
	}
}

func TestResetNeedsConfirm(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPut, "/api/settings", map[string]any{"cordLength": 450, "distances": "50 75"})
	if c := e.ed.Card(); c.CordLength != 450 || len(c.Distances) != 2 {
		t.Fatalf("settings not applied: %+v", c)
	}
	if rec := e.do(http.MethodPost, "/api/reset", nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	e.do(http.MethodPost, "/api/reset?confirm=1", nil)
	if e.ed.Card().CordLength != 600 {
		t.Fatalf("reset not applied")
	}
}

func TestSettingsRejectsBadCord(t *testing.T) {
	e := newEnv(t)
	if rec := e.do(http.MethodPut, "/api/settings", map[string]any{"cordLength": -1}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPut, "/api/card", `{"things":[{"id":"c","name":"C","type":"milCircle","milDiameter":-1}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	if e.store.Saves() != 0 {
		t.Fatalf("rejected import must not be saved")
	}
	rec = e.do(http.MethodPut, "/api/card", `{"cordLength":500,"things":[{"id":"a","name":"A","height":2,"width":1}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	st := decodeState(t, rec)
	if st["selectedId"] != "a" {
		t.Fatalf("expected first thing selected: %v", st)
	}
}

func TestExportCardAttachment(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/api/card/export", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), storage.ExportFileName) {
		t.Fatalf("export: %d %v", rec.Code, rec.Header())
	}
	if _, err := storage.ImportCard(rec.Body.Bytes()); err != nil {
		t.Fatalf("exported card does not import: %v", err)
	}
}

func TestDragFlow(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/api/things", nil)
	id := e.ed.Selected()
	saves := e.store.Saves()
	if rec := e.do(http.MethodPost, "/api/drag/"+id+"/move", map[string]float64{"x": 1, "y": 1, "widthPx": 600}); rec.Code != http.StatusConflict {
		t.Fatalf("move without start must conflict, got %d", rec.Code)
	}
	e.do(http.MethodPost, "/api/drag/"+id+"/start", map[string]float64{"x": 0, "y": 0})
	rec := e.do(http.MethodPost, "/api/drag/"+id+"/move", map[string]float64{"x": 10000, "y": 50, "widthPx": 600})
	var pv struct {
		Preview struct{ OffsetX, OffsetY float64 } `json:"preview"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &pv); err != nil || pv.Preview.OffsetX != 115 || pv.Preview.OffsetY != 10 {
		t.Fatalf("unexpected preview %s (%v)", rec.Body.String(), err)
	}
	if e.store.Saves() != saves {
		t.Fatalf("moves must not save")
	}
	if rec := e.do(http.MethodPost, "/api/drag/"+id+"/end", nil); rec.Code != http.StatusOK {
		t.Fatalf("end: %d", rec.Code)
	}
	if e.store.Saves() != saves+1 {
		t.Fatalf("drag end must save once")
	}
}

func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r := rand.New(rand.NewSource(3))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.Intn(256))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestImageUploadNeedsConfirmWhenLarge(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/api/things", nil)
	id := e.ed.Selected()
	big := noisyPNG(t, 400, 300)
	rec := e.do(http.MethodPut, "/api/things/"+id+"/image", big)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "scaled down") {
		t.Fatalf("expected confirmation, got %d %s", rec.Code, rec.Body.String())
	}
	rec = e.do(http.MethodPut, "/api/things/"+id+"/image?confirm=true", big)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected image attached, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestImageUploadRejectsNonImage(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/api/things", nil)
	id := e.ed.Selected()
	for _, body := range [][]byte{[]byte("x"), bytes.Repeat([]byte{0xff}, 300*1024)} {
		if rec := e.do(http.MethodPut, "/api/things/"+id+"/image?confirm=true", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %d bytes, got %d", len(body), rec.Code)
		}
	}
	if saves := e.store.Saves(); saves != 1 {
		t.Fatalf("rejected uploads must not save, got %d saves", saves)
	}
}

func TestImageOnCircleRejected(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/api/things", map[string]string{"type": "circle"})
	id := e.ed.Selected()
	if rec := e.do(http.MethodPut, "/api/things/"+id+"/image", []byte("x")); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExportFormats(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/api/things", nil)
	for format, ct := range map[string]string{"pdf": "application/pdf", "svg": "image/svg+xml", "png": "image/png", "html": "text/html; charset=utf-8"} {
		rec := e.do(http.MethodGet, "/export/"+format, nil)
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != ct || rec.Body.Len() == 0 {
			t.Fatalf("%s: %d %q", format, rec.Code, rec.Header().Get("Content-Type"))
		}
	}
	if rec := e.do(http.MethodGet, "/export/docx", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown format, got %d", rec.Code)
	}
}

func TestSaveFailureNoticeInResponse(t *testing.T) {
	e := newEnv(t)
	e.store.Err = errors.New("disk full")
	st := decodeState(t, e.do(http.MethodPost, "/api/things", nil))
	notices, _ := st["notices"].([]any)
	if len(notices) != 1 || !strings.Contains(notices[0].(string), "disk full") {
		t.Fatalf("expected save notice, got %v", st["notices"])
	}
	st = decodeState(t, e.do(http.MethodGet, "/api/card", nil))
	if _, ok := st["notices"]; ok {
		t.Fatalf("notices must be delivered once")
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", e.h, ready) }()
	addr := <-ready
	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
