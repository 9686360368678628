/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package cli

import (
	"errors"
	"fmt"
	"os"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"rangecard/internal/storage"
)

var errValidation = errors.New("validation failed")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a card document before importing it",
		Long: `Validate runs the same checks as an import: the JSON schema, positive
dimensions and unique thing ids. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read card: %w", err)
			}
			w := cmd.OutOrStdout()
			card, err := storage.ImportCard(data)
			var verr *storage.ValidationError
			if errors.As(err, &verr) {
				colorize.New(colorize.FgRed).Fprintf(w, "✗ %s: %s\n", path, verr.Msg)
				for i, d := range verr.Details {
					fmt.Fprintf(w, "%d. %s\n", i+1, d)
				}
				return errValidation
			}
			if err != nil {
				return err
			}
			colorize.New(colorize.FgGreen).Fprintf(w, "✓ %s is valid", path)
			fmt.Fprintf(w, " (%d things, %d distances)\n", len(card.Things), len(card.Distances))
			return nil
		},
	}
}
