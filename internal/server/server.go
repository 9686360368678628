/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package server exposes the card editor and the exports over HTTP.
//
// Every request holds one mutex while it talks to the controller, so edits are
// processed one at a time and to completion. Operations that need a user's yes
// answer 409 with the question unless the request carries ?confirm=true.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"rangecard/internal/editor"
	"rangecard/internal/export"
	applog "rangecard/internal/log"
	"rangecard/internal/render"
)

// DefaultMaxUpload bounds image uploads and imported documents.
const DefaultMaxUpload = 16 << 20

type Options struct {
	Export    export.Options
	Render    render.Options
	MaxUpload int64
}

type Server struct {
	mu      sync.Mutex
	ed      *editor.Controller
	opts    Options
	notices []string
	log     *slog.Logger
}

// New wraps ed. The server subscribes to notices and hands them out with the
// next state response.
func New(ed *editor.Controller, opts Options) *Server {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = DefaultMaxUpload
	}
	s := &Server{ed: ed, opts: opts, log: applog.WithComponent("server")}
	ed.Subscribe(func(e editor.Event) {
		if e.Kind == editor.EventNotice {
			s.notices = append(s.notices, e.Notice)
		}
	})
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/version", s.handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Get("/card", s.handleState)
		r.Put("/card", s.handleImport)
		r.Get("/card/export", s.handleExportCard)
		r.Post("/card/load", s.handleLoad)
		r.Get("/sheet", s.handleSheet)
		r.Put("/settings", s.handleSettings)
		r.Post("/things", s.handleAdd)
		r.Route("/things/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDelete)
			r.Patch("/", s.handlePatch)
			r.Post("/select", s.handleSelect)
			r.Put("/image", s.handleAttachImage)
			r.Delete("/image", s.handleClearImage)
		})
		r.Post("/drag/{id}/{phase}", s.handleDrag)
		r.Post("/undo", s.handleUndo)
		r.Post("/redo", s.handleRedo)
		r.Post("/reset", s.handleReset)
	})
	r.Get("/export/{format}", s.handleExport)
	return r
}

// logRequests puts the request id on the context logger and logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := applog.ContextWith(r.Context(), slog.String("req", middleware.GetReqID(r.Context())))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		s.log.DebugContext(ctx, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)))
	})
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func Serve(ctx context.Context, addr string, h http.Handler, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	l := applog.WithComponent("server")
	l.Info("listening", slog.String("addr", ln.Addr().String()))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
