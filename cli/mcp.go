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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/labstack/echo/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/theirish81/mcpdesk"
)

var version = "dev"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "runs mcpdesk as an MCP server over stdio",
	Long: `
Runs mcpdesk as an MCP server over the standard input and output, so that an assistant can read the configuration
of an application and add or remove its MCP servers. The same tools are available over HTTP at /mcp in web mode.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		manager, _, err := newManager(newLogger())
		if err != nil {
			fail(cmd, err)
			return
		}
		if err := newMCPServer(manager).Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
			fail(cmd, err)
		}
	},
}

type locationParams struct {
	App  string `json:"app"`
	Path string `json:"path,omitempty"`
}

type listServersParams struct {
	App    string `json:"app"`
	Path   string `json:"path,omitempty"`
	Filter string `json:"filter,omitempty"`
}

type upsertServerParams struct {
	App   string          `json:"app"`
	Path  string          `json:"path,omitempty"`
	Name  string          `json:"name"`
	Entry json.RawMessage `json:"entry"`
}

type removeServerParams struct {
	App  string `json:"app"`
	Path string `json:"path,omitempty"`
	Name string `json:"name"`
}

// newMCPServer returns an MCP server exposing the manager as tools.
func newMCPServer(manager *mcpdesk.Manager) *mcp.Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: "mcpdesk", Version: version}, nil)
	mcp.AddTool(mcpServer, toolReadConfig,
		func(ctx context.Context, request *mcp.CallToolRequest, args locationParams) (*mcp.CallToolResult, any, error) {
			doc, err := manager.Read(ctx, args.App, args.Path)
			if err != nil {
				return nil, nil, err
			}
			return toCallResult(doc, "config"), nil, nil
		})
	mcp.AddTool(mcpServer, toolListServers,
		func(ctx context.Context, request *mcp.CallToolRequest, args listServersParams) (*mcp.CallToolResult, any, error) {
			collection, err := manager.Collection(ctx, args.App, args.Path)
			if err != nil {
				return nil, nil, err
			}
			if args.Filter != "" {
				if collection, err = mcpdesk.FilterEntries(collection, args.Filter); err != nil {
					return nil, nil, err
				}
			}
			servers, _ := mcpdesk.DecodeServers(collection)
			return toCallResult(serversView(servers.Redacted()), "servers"), nil, nil
		})
	mcp.AddTool(mcpServer, toolUpsertServer,
		func(ctx context.Context, request *mcp.CallToolRequest, args upsertServerParams) (*mcp.CallToolResult, any, error) {
			if len(bytes.TrimSpace(args.Entry)) == 0 {
				return nil, nil, errors.New("entry is required")
			}
			entry, err := mcpdesk.NewDocumentStore(mcpdesk.StoreOptions{}).Read(args.Entry, "entry")
			if err != nil {
				return nil, nil, err
			}
			doc, err := manager.AddServer(ctx, args.App, args.Path, args.Name, entry)
			if err != nil {
				return nil, nil, err
			}
			return toCallResult(mcpdesk.ServerNames(doc[manager.CollectionKey()]), "servers"), nil, nil
		})
	mcp.AddTool(mcpServer, toolRemoveServer,
		func(ctx context.Context, request *mcp.CallToolRequest, args removeServerParams) (*mcp.CallToolResult, any, error) {
			doc, err := manager.RemoveServer(ctx, args.App, args.Path, args.Name)
			if err != nil {
				return nil, nil, err
			}
			return toCallResult(mcpdesk.ServerNames(doc[manager.CollectionKey()]), "servers"), nil, nil
		})
	return mcpServer
}

// initMCP mounts the MCP server on the web server, over the streamable HTTP transport.
func initMCP(e *echo.Echo, manager *mcpdesk.Manager) {
	mcpServer := newMCPServer(manager)
	handler := mcp.NewStreamableHTTPHandler(func(request *http.Request) *mcp.Server {
		return mcpServer
	}, nil)
	e.Any("/mcp", echo.WrapHandler(handler))
}

func toCallResult(data any, rootObjectName string) *mcp.CallToolResult {
	output := map[string]any{rootObjectName: data}
	content, _ := json.Marshal(output)
	return &mcp.CallToolResult{StructuredContent: output, Content: []mcp.Content{
		&mcp.TextContent{
			Text: string(content),
		},
	}}
}

var locationProperties = map[string]*jsonschema.Schema{
	"app": {
		Type:        "string",
		Description: "the application name, i.e. claude, cursor or custom",
	},
	"path": {
		Type:        "string",
		Description: "the configuration file, or the project directory. Required by cursor and custom.",
	},
}

// withProperties returns the location properties plus the given ones.
func withProperties(props map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(locationProperties)+len(props))
	for k, v := range locationProperties {
		out[k] = v
	}
	for k, v := range props {
		out[k] = v
	}
	return out
}

var toolReadConfig = &mcp.Tool{
	Name:        "mcpdesk_read_config",
	Description: "reads the whole configuration document of an application",
	InputSchema: &jsonschema.Schema{
		Type:       "object",
		Required:   []string{"app"},
		Properties: withProperties(nil),
	},
}

var toolListServers = &mcp.Tool{
	Name:        "mcpdesk_list_servers",
	Description: "lists the MCP servers configured in an application. Secrets are masked.",
	InputSchema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"app"},
		Properties: withProperties(map[string]*jsonschema.Schema{
			"filter": {
				Type:        "string",
				Description: `optional expr expression with "name" and "server" in scope, i.e. server.command == "npx"`,
			},
		}),
	},
}

var toolUpsertServer = &mcp.Tool{
	Name:        "mcpdesk_upsert_server",
	Description: "adds or replaces an MCP server in the configuration of an application",
	InputSchema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"app", "name", "entry"},
		Properties: withProperties(map[string]*jsonschema.Schema{
			"name": {
				Type:        "string",
				Description: "the server name",
			},
			"entry": {
				Type:        "object",
				Description: "the server entry, i.e. {\"command\": \"npx\", \"args\": [\"-y\", \"some-server\"]}",
			},
		}),
	},
}

var toolRemoveServer = &mcp.Tool{
	Name:        "mcpdesk_remove_server",
	Description: "removes an MCP server from the configuration of an application",
	InputSchema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"app", "name"},
		Properties: withProperties(map[string]*jsonschema.Schema{
			"name": {
				Type:        "string",
				Description: "the server name",
			},
		}),
	},
}
