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
	"github.com/theirish81/mcpdesk"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "lists the known applications",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := newRegistry(afero.NewOsFs())
		if err != nil {
			fail(cmd, err)
			return
		}
		printResult(cmd, applicationsView(registry))
	},
}

var pathCmd = &cobra.Command{
	Use:   "path <app>",
	Short: "prints the path of the configuration file of an application",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, _, err := newManager(newLogger())
		if err != nil {
			fail(cmd, err)
			return
		}
		path, err := manager.AppPath(args[0], appPath)
		if err != nil {
			fail(cmd, err)
			return
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	},
}

// applicationsView converts the registry into a list of plain values, suitable for JSON and YAML output.
func applicationsView(registry *mcpdesk.Applications) []any {
	out := make([]any, 0)
	for _, app := range registry.List() {
		item := map[string]any{
			"name":         app.Name,
			"displayName":  app.DisplayName,
			"needsPath":    app.NeedsPath,
			"allowMissing": app.AllowMissing,
		}
		if app.Path != "" {
			item["path"] = app.Path
		}
		out = append(out, item)
	}
	return out
}

// printResult renders a value in the selected format on the command output.
func printResult(cmd *cobra.Command, value any) {
	data, err := renderResult(value)
	if err != nil {
		fail(cmd, err)
		return
	}
	_, _ = cmd.OutOrStdout().Write(data)
}
