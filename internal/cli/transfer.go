/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rangecard/internal/storage"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [path]",
		Short: "Replace the stored card with a card document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read card: %w", err)
			}
			store, err := a.cfg.OpenStore()
			if err != nil {
				return err
			}
			defer store.Close()
			ctrl := a.controller(store)
			ctrl.Bootstrap(cmd.Context())
			if err := ctrl.Import(data); err != nil {
				return err
			}
			if err := ctrl.LastSaveError(); err != nil {
				return fmt.Errorf("save imported card: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d things\n", len(ctrl.Card().Things))
			return err
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored card as a card document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.OpenStore()
			if err != nil {
				return err
			}
			defer store.Close()
			ctrl := a.controller(store)
			ctrl.Bootstrap(cmd.Context())
			data, err := ctrl.Export()
			if err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Wrote", out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", storage.ExportFileName, "output file, - for stdout")
	return cmd
}
