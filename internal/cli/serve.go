/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rangecard/internal/crash"
	"rangecard/internal/export"
	"rangecard/internal/server"
	"rangecard/internal/ui"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			store, err := a.cfg.OpenStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctrl := a.controller(store)
			ctrl.Bootstrap(ctx)
			defer crash.Recover(crash.Target{Card: ctrl.Card, Store: store})

			srv := server.New(ctrl, server.Options{
				Export: export.Options{DPI: a.cfg.Print.DPI},
				Render: a.cfg.RenderOptions(),
			})
			return server.Serve(ctx, addr, srv.Handler(), nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Launch the desktop editor (build with -tags fyne)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.OpenStore()
			if err != nil {
				return err
			}
			defer store.Close()
			ctrl := a.controller(store)
			ctrl.Bootstrap(cmd.Context())
			defer crash.Recover(crash.Target{Card: ctrl.Card, Store: store})
			return ui.Run(ctrl, ui.Options{Export: export.Options{DPI: a.cfg.Print.DPI}})
		},
	}
}
