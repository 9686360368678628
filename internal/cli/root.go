/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package cli holds the rangecard command tree.
package cli

import (
	"github.com/spf13/cobra"

	"rangecard/internal/config"
	"rangecard/internal/editor"
	applog "rangecard/internal/log"
	"rangecard/internal/storage"
)

// app carries what every subcommand needs once the root has loaded the config.
type app struct {
	cfgFile string
	cfg     config.AppConfig
	token   string
}

// NewRootCmd builds the command tree. Each call returns a fresh tree with its own flags.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "rangecard",
		Short: "Editor for range estimation reference cards",
		Long: `Rangecard lays out printable reference cards for estimating distances with a
cord of known length: objects of known size are drawn at the size they appear
at each reference distance, reticle circles at their mil or MOA diameter.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is the per-user config.yaml or $RC_CONFIG)")

	root.AddCommand(
		newVersionCmd(),
		newRenderCmd(a),
		newValidateCmd(),
		newImportCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newUICmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) load() error {
	var err error
	if a.cfgFile != "" {
		a.cfg, a.token, err = config.LoadFrom(a.cfgFile)
	} else {
		a.cfg, a.token, err = config.Load()
	}
	applog.Init(a.cfg.LogOptions())
	return err
}

// controller wires a fresh editor to store and the loaded config.
func (a *app) controller(store storage.Store) *editor.Controller {
	return editor.New(editor.Options{
		Store:   store,
		Seed:    a.cfg.SeedSource(a.token),
		Render:  a.cfg.RenderOptions(),
		Image:   a.cfg.ImageOptions(),
		History: a.cfg.HistoryConfig(),
	})
}
