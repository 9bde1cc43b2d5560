/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the current configuration",
	Long:  "Prints the current configuration. It will additionally print the known applications, including the ones declared in the applications file.",
	Run: func(cmd *cobra.Command, args []string) {
		printable := cfg
		if printable.ApiKey != "" {
			printable.ApiKey = "********"
		}
		globalConfig, _ := yaml.Marshal(printable)
		fmt.Fprintln(cmd.OutOrStdout(), "==== GLOBAL CONFIG ====")
		fmt.Fprintln(cmd.OutOrStdout(), string(globalConfig))

		registry, err := newRegistry(afero.NewOsFs())
		if err != nil {
			fail(cmd, err)
			return
		}
		appsText, _ := yaml.Marshal(registry.List())
		fmt.Fprintln(cmd.OutOrStdout(), "==== APPLICATIONS ====")
		fmt.Fprintln(cmd.OutOrStdout(), string(appsText))
	},
}
