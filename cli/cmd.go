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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	format     string
	appPath    string
	debug      bool
	configFile string
	port       int
	exitCode   int
)

var rootCmd = cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "manage the MCP servers of your AI applications",
	Long: `
mcpdesk reads and edits the JSON configuration files where applications such as Claude Desktop and Cursor keep their
MCP servers. Entries are added, replaced and removed without touching anything else in the file.`,
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVarP(&appPath, "path", "p", "", "path of the configuration file, or of the project directory")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", formatJSON, "output format (json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", ".env", "configuration file")

	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(web)
	rootCmd.AddCommand(mcpCmd)
}

// fail prints the error and marks the invocation as failed.
func fail(cmd *cobra.Command, err error) {
	cmd.PrintErrln(err)
	exitCode = 1
}
