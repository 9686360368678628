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

	"rangecard/internal/domain"
	"rangecard/internal/export"
	"rangecard/internal/render"
	"rangecard/internal/storage"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		out    string
		format string
		dpi    int
		title  string
	)
	cmd := &cobra.Command{
		Use:   "render [card.json]",
		Short: "Render the print sheet to PDF, SVG, PNG or HTML",
		Long: `Render lays out four copies of the card on an A4 sheet and writes it to a file.
Without an argument the stored card is rendered (falling back to the seed or the defaults).
The format follows --format, else the output extension, else PDF.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := a.cardFor(cmd, args)
			if err != nil {
				return err
			}
			f, err := pickFormat(format, out)
			if err != nil {
				return err
			}
			if out == "" {
				out = f.FileName()
			}
			if dpi <= 0 {
				dpi = a.cfg.Print.DPI
			}
			sheet := render.Render(card, "", a.cfg.RenderOptions())
			if err := export.WriteFile(out, sheet, f, export.Options{DPI: dpi, Title: title}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d things)\n", out, f, len(card.Things))
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default cards.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "pdf, svg, png or html")
	cmd.Flags().IntVar(&dpi, "dpi", 0, "raster resolution for png (default from config)")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	return cmd
}

func pickFormat(flag, out string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if f, ok := export.FormatFromPath(out); ok {
		return f, nil
	}
	return export.FormatPDF, nil
}

// cardFor reads the card named in args, or bootstraps the configured store.
func (a *app) cardFor(cmd *cobra.Command, args []string) (domain.Card, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return domain.Card{}, err
		}
		return storage.ImportCard(data)
	}
	store, err := a.cfg.OpenStore()
	if err != nil {
		return domain.Card{}, err
	}
	defer store.Close()
	ctrl := a.controller(store)
	ctrl.Bootstrap(cmd.Context())
	return ctrl.Card(), nil
}
