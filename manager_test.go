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

package mcpdesk

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/mcpdesk/log"
)

const (
	claudePath = "/home/me/claude.json"
	cursorPath = "/projects/demo/.cursor/mcp.json"
)

func newTestManager(t *testing.T, options ManagerOptions) (*Manager, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	apps := NewApplications(fs,
		Application{Name: AppClaude, AllowMissing: true, Path: claudePath},
		Application{Name: AppCursor, NeedsPath: true, File: ".cursor/mcp.json"},
	)
	buf := &bytes.Buffer{}
	logger := log.NewStreamerLogger(slog.New(slog.NewJSONHandler(buf, nil)), nil, log.InfoChannelLevel)
	return NewManager(apps, NewFileStorage(fs), options, logger), fs, buf
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestManager_Read(t *testing.T) {
	ctx := context.Background()
	t.Run("missing file allowed", func(t *testing.T) {
		m, _, _ := newTestManager(t, ManagerOptions{})
		doc, err := m.Read(ctx, AppClaude, "")
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{}, doc)
	})
	t.Run("missing file not allowed", func(t *testing.T) {
		m, _, _ := newTestManager(t, ManagerOptions{})
		_, err := m.Read(ctx, AppCursor, cursorPath)
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, cursorPath, notFound.Path)
		assert.Equal(t, AppCursor, notFound.App)
	})
	t.Run("existing file", func(t *testing.T) {
		m, fs, _ := newTestManager(t, ManagerOptions{})
		require.NoError(t, afero.WriteFile(fs, cursorPath, []byte(`{"mcpServers": {"a": {}}}`), 0o644))
		doc, err := m.Read(ctx, AppCursor, "/projects/demo/.cursor/mcp.json")
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"mcpServers": map[string]any{"a": map[string]any{}}}, doc)
	})
	t.Run("malformed file", func(t *testing.T) {
		m, fs, buf := newTestManager(t, ManagerOptions{})
		require.NoError(t, afero.WriteFile(fs, claudePath, []byte(`{not valid json`), 0o644))
		_, err := m.Read(ctx, AppClaude, "")
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, claudePath, parseErr.Source)
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
	})
	t.Run("cancelled context", func(t *testing.T) {
		m, _, _ := newTestManager(t, ManagerOptions{})
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := m.Read(cancelled, AppClaude, "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestManager_Write(t *testing.T) {
	m, fs, _ := newTestManager(t, ManagerOptions{})
	err := m.Write(context.Background(), AppClaude, "", map[string]any{"b": 1, "a": true})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": true,\n  \"b\": 1\n}\n", readFile(t, fs, claudePath))
}

func TestManager_AddServer(t *testing.T) {
	ctx := context.Background()
	t.Run("creates a missing file", func(t *testing.T) {
		m, fs, buf := newTestManager(t, ManagerOptions{})
		doc, err := m.AddServer(ctx, AppCursor, "/projects/demo/.cursor/mcp.json", "fs", map[string]any{"command": "npx"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"mcpServers": map[string]any{"fs": map[string]any{"command": "npx"}}}, doc)
		assert.JSONEq(t, `{"mcpServers": {"fs": {"command": "npx"}}}`, readFile(t, fs, cursorPath))
		assert.Contains(t, buf.String(), `"server":"fs"`)
	})
	t.Run("preserves unrelated keys", func(t *testing.T) {
		m, fs, _ := newTestManager(t, ManagerOptions{})
		require.NoError(t, afero.WriteFile(fs, claudePath, []byte(`{"globalShortcut": "Cmd+K", "mcpServers": {"a": {"command": "a"}}}`), 0o644))
		_, err := m.AddServer(ctx, AppClaude, "", "b", map[string]any{"url": "http://localhost:3000"})
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"globalShortcut": "Cmd+K",
			"mcpServers": {"a": {"command": "a"}, "b": {"url": "http://localhost:3000"}}
		}`, readFile(t, fs, claudePath))
	})
	t.Run("repairs and logs", func(t *testing.T) {
		m, fs, buf := newTestManager(t, ManagerOptions{})
		require.NoError(t, afero.WriteFile(fs, claudePath, []byte(`{"mcpServers": "not-an-object", "other": 1}`), 0o644))
		doc, err := m.AddServer(ctx, AppClaude, "", "srv", map[string]any{"x": 1})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"srv": map[string]any{"x": 1}}, doc["mcpServers"])
		assert.Contains(t, buf.String(), "mcpServers is string, replacing it with an empty object")
	})
	t.Run("strict mode leaves the file untouched", func(t *testing.T) {
		m, fs, _ := newTestManager(t, ManagerOptions{Store: StoreOptions{StrictCollections: true}})
		original := `{"mcpServers": ["a"]}`
		require.NoError(t, afero.WriteFile(fs, claudePath, []byte(original), 0o644))
		_, err := m.AddServer(ctx, AppClaude, "", "srv", map[string]any{"x": 1})
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Contains(t, err.Error(), claudePath)
		assert.Equal(t, original, readFile(t, fs, claudePath))
	})
	t.Run("malformed file is not overwritten", func(t *testing.T) {
		m, fs, _ := newTestManager(t, ManagerOptions{})
		require.NoError(t, afero.WriteFile(fs, claudePath, []byte(`{broken`), 0o644))
		_, err := m.AddServer(ctx, AppClaude, "", "srv", map[string]any{})
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, `{broken`, readFile(t, fs, claudePath))
	})
	t.Run("custom collection key", func(t *testing.T) {
		m, fs, _ := newTestManager(t, ManagerOptions{CollectionKey: "servers"})
		assert.Equal(t, "servers", m.CollectionKey())
		_, err := m.UpdateServer(ctx, AppClaude, "", "srv", "x")
		require.NoError(t, err)
		assert.JSONEq(t, `{"servers": {"srv": "x"}}`, readFile(t, fs, claudePath))
	})
	t.Run("concurrent upserts do not lose entries", func(t *testing.T) {
		m, fs, _ := newTestManager(t, ManagerOptions{})
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := m.AddServer(ctx, AppClaude, "", fmt.Sprintf("srv-%d", i), map[string]any{"i": i})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()
		servers, err := m.Collection(ctx, AppClaude, "")
		require.NoError(t, err)
		assert.Len(t, servers, 20)
		assert.NotEmpty(t, readFile(t, fs, claudePath))
	})
}

func TestManager_RemoveServer(t *testing.T) {
	ctx := context.Background()
	t.Run("removes the entry", func(t *testing.T) {
		m, fs, _ := newTestManager(t, ManagerOptions{})
		require.NoError(t, afero.WriteFile(fs, claudePath, []byte(`{"other": true, "mcpServers": {"a": {}, "b": {}}}`), 0o644))
		doc, err := m.RemoveServer(ctx, AppClaude, "", "a")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"other": true, "mcpServers": map[string]any{"b": map[string]any{}}}, doc)
		assert.JSONEq(t, `{"other": true, "mcpServers": {"b": {}}}`, readFile(t, fs, claudePath))
	})
	t.Run("missing collection", func(t *testing.T) {
		m, fs, _ := newTestManager(t, ManagerOptions{})
		require.NoError(t, afero.WriteFile(fs, claudePath, []byte(`{"other": true}`), 0o644))
		doc, err := m.RemoveServer(ctx, AppClaude, "", "anything")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"other": true}, doc)
	})
	t.Run("unknown application", func(t *testing.T) {
		m, _, _ := newTestManager(t, ManagerOptions{})
		_, err := m.RemoveServer(ctx, "vim", "", "a")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestManager_Servers(t *testing.T) {
	m, fs, buf := newTestManager(t, ManagerOptions{})
	require.NoError(t, afero.WriteFile(fs, claudePath, []byte(`{"mcpServers": {"a": {"command": "a"}, "b": 1}}`), 0o644))
	servers, err := m.Servers(context.Background(), AppClaude, "")
	require.NoError(t, err)
	assert.Equal(t, ServerConfigs{"a": {Command: "a"}}, servers)
	assert.Contains(t, buf.String(), "some server entries could not be decoded")
}

func TestManager_AppPath(t *testing.T) {
	m, fs, _ := newTestManager(t, ManagerOptions{})
	require.NoError(t, fs.MkdirAll("/projects/demo", 0o755))
	path, err := m.AppPath(AppCursor, "/projects/demo")
	require.NoError(t, err)
	assert.Equal(t, cursorPath, path)
}
