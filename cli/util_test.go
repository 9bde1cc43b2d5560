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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/mcpdesk"
)

func TestSliceToMap(t *testing.T) {
	m, err := sliceToMap([]string{"A=1", "B=x=y", "C="}, false)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, m)

	_, err = sliceToMap([]string{"A=1", "broken"}, false)
	assert.EqualError(t, err, "invalid parameter format: broken")

	m, err = sliceToMap([]string{"A=1", "broken"}, true)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1"}, m)
}

func TestReadInput(t *testing.T) {
	data, source, err := readInput(`{"a": 1}`, nil)
	assert.NoError(t, err)
	assert.Equal(t, "argument", source)
	assert.Equal(t, `{"a": 1}`, string(data))

	data, source, err = readInput("-", strings.NewReader(`{"b": 2}`))
	assert.NoError(t, err)
	assert.Equal(t, "stdin", source)
	assert.Equal(t, `{"b": 2}`, string(data))

	file := filepath.Join(t.TempDir(), "entry.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"c": 3}`), 0o644))
	data, source, err = readInput("@"+file, nil)
	assert.NoError(t, err)
	assert.Equal(t, file, source)
	assert.Equal(t, `{"c": 3}`, string(data))

	_, _, err = readInput("@"+filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	value, err := parseValue([]byte(`{"command": "npx", "port": 8080}`), "argument")
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"command": "npx", "port": json.Number("8080")}, value)

	value, err = parseValue([]byte("command: npx\nargs:\n  - -y\n  - server\nenv:\n  DEBUG: \"1\"\n"), "entry.yaml")
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{
		"command": "npx",
		"args":    []any{"-y", "server"},
		"env":     map[string]any{"DEBUG": "1"},
	}, value)

	_, err = parseValue([]byte("{\"a\": [1,\n"), "argument")
	var parseErr *mcpdesk.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestRenderResult(t *testing.T) {
	defer func() { format = formatJSON }()
	doc := map[string]any{"b": json.Number("1.50"), "a": "<x>"}

	format = formatJSON
	data, err := renderResult(doc)
	assert.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"<x>\",\n  \"b\": 1.50\n}\n", string(data))

	format = formatYAML
	data, err = renderResult(doc)
	assert.NoError(t, err)
	assert.Equal(t, "a: <x>\nb: 1.5\n", string(data))
}

func TestEntryFromFlags(t *testing.T) {
	reset := func() {
		serverCommand, serverUrl, serverType = "", "", ""
		serverArgs, serverEnv, serverHeaders = []string{}, []string{}, []string{}
	}
	defer reset()

	reset()
	_, err := entryFromFlags()
	assert.Error(t, err)

	reset()
	serverCommand = "npx"
	serverArgs = []string{"-y", "server-fs"}
	serverEnv = []string{"ROOT=/tmp"}
	entry, err := entryFromFlags()
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{
		"command": "npx",
		"args":    []any{"-y", "server-fs"},
		"env":     map[string]any{"ROOT": "/tmp"},
	}, entry)

	reset()
	serverUrl = "https://example.com/mcp"
	serverType = "http"
	serverHeaders = []string{"Authorization=Bearer x"}
	entry, err = entryFromFlags()
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{
		"type":    "http",
		"url":     "https://example.com/mcp",
		"headers": map[string]any{"Authorization": "Bearer x"},
	}, entry)

	reset()
	serverCommand = "npx"
	serverEnv = []string{"broken"}
	_, err = entryFromFlags()
	assert.Error(t, err)
}
