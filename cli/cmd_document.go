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
	"github.com/spf13/cobra"
	"github.com/theirish81/mcpdesk"
)

var (
	jsonataQuery  string
	jmesPathQuery string
	exprQuery     string
)

var readCmd = &cobra.Command{
	Use:   "read <app>",
	Short: "prints the whole configuration document of an application",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, _, err := newManager(newLogger())
		if err != nil {
			fail(cmd, err)
			return
		}
		doc, err := manager.Read(cmd.Context(), args[0], appPath)
		if err != nil {
			fail(cmd, err)
			return
		}
		printResult(cmd, doc)
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <app> <json|@file|->",
	Short: "replaces the whole configuration document of an application",
	Long: `
Replaces the whole configuration document of an application. The document can be passed inline, read from a file
with @path/to/file, or read from the standard input with -. YAML input is converted to JSON.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		data, source, err := readInput(args[1], cmd.InOrStdin())
		if err != nil {
			fail(cmd, err)
			return
		}
		doc, err := parseValue(data, source)
		if err != nil {
			fail(cmd, err)
			return
		}
		manager, _, err := newManager(newLogger())
		if err != nil {
			fail(cmd, err)
			return
		}
		if err := manager.Write(cmd.Context(), args[0], appPath, doc); err != nil {
			fail(cmd, err)
		}
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <app>",
	Short: "runs a JSONata, JMESPath or expr query on the configuration document of an application",
	Long: `
Runs a query on the configuration document of an application. When more than one kind of query is given, they run in
this order: JSONata, JMESPath, expr. Each one works on the output of the previous one. expr sees the data as "doc".`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := mcpdesk.Query{
			Jsonata:  mcpdesk.StrPtrOrNil(jsonataQuery),
			JmesPath: mcpdesk.StrPtrOrNil(jmesPathQuery),
			Expr:     mcpdesk.StrPtrOrNil(exprQuery),
		}
		if query.IsEmpty() {
			fail(cmd, mcpdesk.ErrEmptyQuery)
			return
		}
		manager, _, err := newManager(newLogger())
		if err != nil {
			fail(cmd, err)
			return
		}
		doc, err := manager.Read(cmd.Context(), args[0], appPath)
		if err != nil {
			fail(cmd, err)
			return
		}
		res, err := query.Run(doc)
		if err != nil {
			fail(cmd, err)
			return
		}
		printResult(cmd, res)
	},
}

func init() {
	queryCmd.Flags().StringVarP(&jsonataQuery, "jsonata", "", "", "JSONata expression")
	queryCmd.Flags().StringVarP(&jmesPathQuery, "jmespath", "", "", "JMESPath expression")
	queryCmd.Flags().StringVarP(&exprQuery, "expr", "", "", "expr expression")
}
