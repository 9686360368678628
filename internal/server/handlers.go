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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rangecard/internal/domain"
	"rangecard/internal/editor"
	"rangecard/internal/export"
	"rangecard/internal/render"
	"rangecard/internal/storage"
	"rangecard/internal/version"
)

// stateView is the answer to every successful mutation.
type stateView struct {
	Card       domain.Card  `json:"card"`
	SelectedID string       `json:"selectedId,omitempty"`
	Panel      editor.Panel `json:"panel"`
	CanUndo    bool         `json:"canUndo"`
	CanRedo    bool         `json:"canRedo"`
	Dragging   string       `json:"dragging,omitempty"`
	Notices    []string     `json:"notices,omitempty"`
}

// stateLocked snapshots the editor; callers hold s.mu.
func (s *Server) stateLocked() stateView {
	v := stateView{
		Card:       s.ed.Card(),
		SelectedID: s.ed.Selected(),
		Panel:      s.ed.Panel(),
		CanUndo:    s.ed.CanUndo(),
		CanRedo:    s.ed.CanRedo(),
		Dragging:   s.ed.Dragging(),
		Notices:    s.notices,
	}
	s.notices = nil
	return v
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(version.String()))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleSheet(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.ed.Sheet())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.Import(data); err != nil {
		s.notices = nil // the error response carries the message
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleExportCard(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	data, err := s.ed.Export()
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", storage.ExportFileName))
	_, _ = w.Write(data)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ed.Load(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stateLocked())
}

type settingsRequest struct {
	CordLength *float64 `json:"cordLength"`
	// Distances is the raw user input, e.g. "100, 200; 300".
	Distances *string `json:"distances"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.CordLength != nil {
		if err := s.ed.SetCordLength(*req.CordLength); err != nil {
			writeEditorError(w, err)
			return
		}
	}
	if req.Distances != nil {
		s.ed.SetDistances(*req.Distances)
	}
	writeJSON(w, http.StatusOK, s.stateLocked())
}

type addRequest struct {
	Type string `json:"type"` // "object" (default) or "milCircle"
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch req.Type {
	case "", "object", "sizedObject":
		s.ed.AddSizedObject()
	case domain.TypeMilCircle, "circle":
		s.ed.AddCircle()
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown thing type %q", req.Type))
		return
	}
	writeJSON(w, http.StatusCreated, s.stateLocked())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.Select(chi.URLParam(r, "id")); err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.Select(chi.URLParam(r, "id")); err != nil {
		writeEditorError(w, err)
		return
	}
	conf, err := s.ed.DeleteSelected()
	if err != nil {
		writeEditorError(w, err)
		return
	}
	s.confirm(w, r, conf)
}

// handlePatch applies panel fields in request order of the known field list.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var req map[string]json.RawMessage
	if !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.Select(chi.URLParam(r, "id")); err != nil {
		writeEditorError(w, err)
		return
	}
	for _, f := range patchFields {
		raw, ok := req[string(f)]
		if !ok {
			continue
		}
		if err := s.ed.SetField(f, rawValue(raw)); err != nil {
			writeEditorError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.stateLocked())
}

var patchFields = []editor.Field{
	editor.FieldName, editor.FieldHeight, editor.FieldWidth,
	editor.FieldMilDiameter, editor.FieldMoaDiameter,
	editor.FieldOffsetX, editor.FieldOffsetY,
}

// rawValue turns a JSON string or number into panel input text.
func rawValue(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(bytes.TrimSpace(raw))
}

func (s *Server) handleAttachImage(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.Select(chi.URLParam(r, "id")); err != nil {
		writeEditorError(w, err)
		return
	}
	conf, err := s.ed.AttachImage(data)
	if err != nil {
		writeEditorError(w, err)
		return
	}
	if conf == nil {
		writeJSON(w, http.StatusOK, s.stateLocked())
		return
	}
	s.confirm(w, r, conf)
}

func (s *Server) handleClearImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ed.Select(chi.URLParam(r, "id")); err != nil {
		writeEditorError(w, err)
		return
	}
	if err := s.ed.ClearImage(); err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stateLocked())
}

type dragRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	WidthPx float64 `json:"widthPx"`
}

type previewView struct {
	Preview render.Preview `json:"preview"`
	Panel   editor.Panel   `json:"panel"`
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	id, phase := chi.URLParam(r, "id"), chi.URLParam(r, "phase")
	var req dragRequest
	if phase != "end" && !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch phase {
	case "start":
		if err := s.ed.BeginDrag(id, req.X, req.Y); err != nil {
			writeEditorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.stateLocked())
	case "move":
		p, ok := s.ed.DragMove(id, req.X, req.Y, req.WidthPx)
		if !ok {
			writeError(w, http.StatusConflict, fmt.Errorf("%s is not being dragged", id))
			return
		}
		writeJSON(w, http.StatusOK, previewView{Preview: p, Panel: s.ed.Panel()})
	case "end":
		if !s.ed.EndDrag(id) {
			writeError(w, http.StatusConflict, fmt.Errorf("%s is not being dragged", id))
			return
		}
		writeJSON(w, http.StatusOK, s.stateLocked())
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown drag phase %q", phase))
	}
}

func (s *Server) handleUndo(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.Undo()
	writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleRedo(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.Redo()
	writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirm(w, r, s.ed.Reset())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.mu.Lock()
	card := s.ed.Card()
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := export.WriteCard(&buf, card, f, s.opts.Export, s.opts.Render); err != nil {
		s.log.ErrorContext(r.Context(), "export failed", slog.String("format", string(f)), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	if f != export.FormatHTML {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName()))
	}
	_, _ = w.Write(buf.Bytes())
}

// confirm runs conf when the request says ?confirm=true, otherwise answers 409 with the question.
// Callers hold s.mu.
func (s *Server) confirm(w http.ResponseWriter, r *http.Request, conf *editor.Confirmation) {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !ok {
		writeJSON(w, http.StatusConflict, map[string]any{"confirm": conf.Message})
		return
	}
	if err := conf.Accept(); err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUpload))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
		} else {
			writeError(w, http.StatusBadRequest, err)
		}
		return nil, false
	}
	return data, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func writeEditorError(w http.ResponseWriter, err error) {
	var ve *storage.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Msg, "details": ve.Details})
	case errors.Is(err, editor.ErrUnknownThing), errors.Is(err, editor.ErrNoSelection):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, editor.ErrInvalidValue), errors.Is(err, editor.ErrNotSized), errors.Is(err, editor.ErrBadImage):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, editor.ErrConfirmationUsed):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
