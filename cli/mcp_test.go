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
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/mcpdesk"
	"github.com/theirish81/mcpdesk/log"
)

func connectTestMCP(t *testing.T) (*mcp.ClientSession, afero.Fs) {
	t.Helper()
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	registry := mcpdesk.NewApplications(fs,
		mcpdesk.Application{Name: mcpdesk.AppClaude, AllowMissing: true, Path: testClaudePath},
	)
	logger := log.NewStreamerLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, log.InfoChannelLevel)
	manager := mcpdesk.NewManager(registry, mcpdesk.NewFileStorage(fs), mcpdesk.ManagerOptions{}, logger)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := newMCPServer(manager).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })
	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session, fs
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (map[string]any, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	if res.IsError {
		return map[string]any{"error": text.Text}, true
	}
	out := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, false
}

func TestMCP_Tools(t *testing.T) {
	session, fs := connectTestMCP(t)
	require.NoError(t, afero.WriteFile(fs, testClaudePath, []byte(`{"theme": "dark"}`), 0o644))

	out, isErr := callTool(t, session, "mcpdesk_upsert_server", map[string]any{
		"app":   "claude",
		"name":  "fs",
		"entry": map[string]any{"command": "npx", "env": map[string]any{"TOKEN": "secret"}},
	})
	assert.False(t, isErr)
	assert.Equal(t, map[string]any{"servers": []any{"fs"}}, out)

	out, isErr = callTool(t, session, "mcpdesk_list_servers", map[string]any{"app": "claude"})
	assert.False(t, isErr)
	assert.Equal(t, map[string]any{"servers": map[string]any{
		"fs": map[string]any{"command": "npx", "env": map[string]any{"TOKEN": "********"}},
	}}, out)

	out, isErr = callTool(t, session, "mcpdesk_read_config", map[string]any{"app": "claude"})
	assert.False(t, isErr)
	assert.Equal(t, map[string]any{"config": map[string]any{
		"theme":      "dark",
		"mcpServers": map[string]any{"fs": map[string]any{"command": "npx", "env": map[string]any{"TOKEN": "secret"}}},
	}}, out)

	out, isErr = callTool(t, session, "mcpdesk_remove_server", map[string]any{"app": "claude", "name": "fs"})
	assert.False(t, isErr)
	assert.Equal(t, map[string]any{"servers": []any{}}, out)

	data, err := afero.ReadFile(fs, testClaudePath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme": "dark", "mcpServers": {}}`, string(data))
}

func TestMCP_Errors(t *testing.T) {
	session, _ := connectTestMCP(t)
	out, isErr := callTool(t, session, "mcpdesk_read_config", map[string]any{"app": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, out["error"], "unknown application: nope")
}
