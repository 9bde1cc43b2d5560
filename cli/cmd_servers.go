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
	"errors"

	"github.com/spf13/cobra"
	"github.com/theirish81/mcpdesk"
)

var (
	serverCommand string
	serverArgs    []string
	serverEnv     []string
	serverUrl     string
	serverType    string
	serverHeaders []string
	listFilter    string
	showSecrets   bool
)

var addCmd = newUpsertCommand("add", "adds a server to the configuration of an application")

var updateCmd = newUpsertCommand("update", "replaces a server in the configuration of an application")

// newUpsertCommand builds the add and update commands. They behave the same way: the entry is stored under the
// given name, replacing any previous entry.
func newUpsertCommand(use string, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <app> <name> [json|@file|-]",
		Short: short,
		Long: `
Stores a server entry under the given name. The entry can be passed as JSON (or YAML) inline, from a file with
@path/to/file, or from the standard input with -. When no entry is passed, it's built from the --command, --arg,
--env, --url, --type and --header flags. Everything else in the configuration file is left untouched.`,
		Args: cobra.RangeArgs(2, 3),
		Run: func(cmd *cobra.Command, args []string) {
			entry, err := entryFromArgs(cmd, args[2:])
			if err != nil {
				fail(cmd, err)
				return
			}
			manager, _, err := newManager(newLogger())
			if err != nil {
				fail(cmd, err)
				return
			}
			doc, err := manager.AddServer(cmd.Context(), args[0], appPath, args[1], entry)
			if err != nil {
				fail(cmd, err)
				return
			}
			printResult(cmd, doc[manager.CollectionKey()])
		},
	}
	cmd.Flags().StringVarP(&serverCommand, "command", "", "", "command that starts the server")
	cmd.Flags().StringArrayVarP(&serverArgs, "arg", "", []string{}, "command argument, can be repeated")
	cmd.Flags().StringArrayVarP(&serverEnv, "env", "e", []string{}, "environment variable in the KEY=value format, can be repeated")
	cmd.Flags().StringVarP(&serverUrl, "url", "u", "", "URL of a remote server")
	cmd.Flags().StringVarP(&serverType, "type", "t", "", "server type (stdio, sse, http, streamable-http)")
	cmd.Flags().StringArrayVarP(&serverHeaders, "header", "", []string{}, "HTTP header in the Key=value format, can be repeated")
	return cmd
}

// entryFromArgs returns the entry passed as argument or, when missing, the one described by the flags.
func entryFromArgs(cmd *cobra.Command, args []string) (any, error) {
	if len(args) > 0 {
		data, source, err := readInput(args[0], cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		return parseValue(data, source)
	}
	return entryFromFlags()
}

// entryFromFlags builds a server entry out of the command line flags.
func entryFromFlags() (map[string]any, error) {
	if serverCommand == "" && serverUrl == "" {
		return nil, errors.New("either an entry, --command or --url is required")
	}
	entry := map[string]any{}
	if serverType != "" {
		entry["type"] = serverType
	}
	if serverCommand != "" {
		entry["command"] = serverCommand
		args := make([]any, 0, len(serverArgs))
		for _, arg := range serverArgs {
			args = append(args, arg)
		}
		entry["args"] = args
	}
	if serverUrl != "" {
		entry["url"] = serverUrl
	}
	if len(serverEnv) > 0 {
		env, err := sliceToMap(serverEnv, false)
		if err != nil {
			return nil, err
		}
		entry["env"] = stringMapToAny(env)
	}
	if len(serverHeaders) > 0 {
		headers, err := sliceToMap(serverHeaders, false)
		if err != nil {
			return nil, err
		}
		entry["headers"] = stringMapToAny(headers)
	}
	return entry, nil
}

func stringMapToAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var removeCmd = &cobra.Command{
	Use:   "remove <app> <name>",
	Short: "removes a server from the configuration of an application",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		manager, _, err := newManager(newLogger())
		if err != nil {
			fail(cmd, err)
			return
		}
		doc, err := manager.RemoveServer(cmd.Context(), args[0], appPath, args[1])
		if err != nil {
			fail(cmd, err)
			return
		}
		collection, ok := doc[manager.CollectionKey()]
		if !ok {
			collection = map[string]any{}
		}
		printResult(cmd, collection)
	},
}

var listCmd = &cobra.Command{
	Use:   "list <app>",
	Short: "lists the servers configured in an application",
	Long: `
Lists the servers configured in an application. Environment variables and headers are masked unless --show-secrets is
set. --filter takes an expr expression evaluated for every entry, with "name" and "server" in scope, for example:
server.command == "npx"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, _, err := newManager(newLogger())
		if err != nil {
			fail(cmd, err)
			return
		}
		collection, err := manager.Collection(cmd.Context(), args[0], appPath)
		if err != nil {
			fail(cmd, err)
			return
		}
		if listFilter != "" {
			if collection, err = mcpdesk.FilterEntries(collection, listFilter); err != nil {
				fail(cmd, err)
				return
			}
		}
		servers, err := mcpdesk.DecodeServers(collection)
		if err != nil {
			cmd.PrintErrln(err)
		}
		if !showSecrets {
			servers = servers.Redacted()
		}
		printResult(cmd, serversView(servers))
	},
}

// serversView converts the typed server list into plain values so that it can be rendered like a document.
func serversView(servers mcpdesk.ServerConfigs) map[string]any {
	out := make(map[string]any, len(servers))
	for _, name := range servers.Names() {
		out[name] = serverView(servers[name])
	}
	return out
}

func serverView(server mcpdesk.ServerConfig) map[string]any {
	out := map[string]any{}
	if server.Type != "" {
		out["type"] = server.Type
	}
	if server.Command != "" {
		out["command"] = server.Command
	}
	if len(server.Args) > 0 {
		args := make([]any, 0, len(server.Args))
		for _, arg := range server.Args {
			args = append(args, arg)
		}
		out["args"] = args
	}
	if len(server.Env) > 0 {
		out["env"] = stringMapToAny(server.Env)
	}
	if server.Cwd != "" {
		out["cwd"] = server.Cwd
	}
	if server.Transport != "" {
		out["transport"] = server.Transport
	}
	if server.Url != "" {
		out["url"] = server.Url
	}
	if len(server.Headers) > 0 {
		out["headers"] = stringMapToAny(server.Headers)
	}
	if server.Disabled {
		out["disabled"] = true
	}
	return out
}

var lintCmd = &cobra.Command{
	Use:   "lint <app>",
	Short: "checks the servers configured in an application",
	Long: `
Checks that every server entry is an object with either a command or a valid URL. Issues are printed and the command
exits with a non-zero status if any is found.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, _, err := newManager(newLogger())
		if err != nil {
			fail(cmd, err)
			return
		}
		collection, err := manager.Collection(cmd.Context(), args[0], appPath)
		if err != nil {
			fail(cmd, err)
			return
		}
		issues := mcpdesk.LintServers(collection)
		printResult(cmd, issuesView(issues))
		if len(issues) > 0 {
			exitCode = 1
		}
	},
}

func issuesView(issues []mcpdesk.LintIssue) []any {
	out := make([]any, 0, len(issues))
	for _, issue := range issues {
		item := map[string]any{"server": issue.Server, "message": issue.Message}
		if issue.Field != "" {
			item["field"] = issue.Field
		}
		out = append(out, item)
	}
	return out
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "", "", "expr expression that selects the servers to list")
	listCmd.Flags().BoolVarP(&showSecrets, "show-secrets", "", false, "do not mask environment variables and headers")
}
