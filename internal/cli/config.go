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

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rangecard/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the user configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.configPath()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
				return err
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if _, err := w.Write(data); err != nil {
					return err
				}
				for _, key := range []string{"storage.backend", "storage.path", "seed.url", "server.addr", "print.dpi", "logging.level"} {
					if env, ok := config.EnvOverrideFor(key); ok {
						fmt.Fprintf(w, "# %s overridden by %s\n", key, env)
					}
				}
				if a.token != "" {
					fmt.Fprintln(w, "# seed token stored in keyring")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a config file with the defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.configPath()
				if err != nil {
					return err
				}
				if err := config.SaveTo(p, config.Defaults(), ""); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Wrote", p)
				return err
			},
		},
		&cobra.Command{
			Use:   "set-token [token]",
			Short: "Store the seed download token in the OS keyring",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if args[0] == "" {
					return errors.New("token must not be empty")
				}
				return config.SetToken(args[0])
			},
		},
		&cobra.Command{
			Use:   "delete-token",
			Short: "Remove the seed download token from the OS keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return config.DeleteToken()
			},
		},
	)
	return cmd
}

func (a *app) configPath() (string, error) {
	if a.cfgFile != "" {
		return a.cfgFile, nil
	}
	return config.ConfigPath()
}
