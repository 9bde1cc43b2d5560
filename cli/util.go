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
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/theirish81/mcpdesk"
	"gopkg.in/yaml.v3"
)

// sliceToMap converts a slice of strings with the key=value format into a map of strings. If ignoreErrors is true,
// strings that do not conform to the format are ignored
func sliceToMap(s []string, ignoreErrors bool) (map[string]string, error) {
	m := make(map[string]string, len(s))
	for _, v := range s {
		if matched, _ := regexp.Match("^[^=]+=.*$", []byte(v)); matched {
			kv := strings.SplitN(v, "=", 2)
			m[kv[0]] = kv[1]
		} else if !ignoreErrors {
			return m, errors.New("invalid parameter format: " + v)
		}
	}
	return m, nil
}

// renderResult serializes a value according to the chosen format.
func renderResult(out any) ([]byte, error) {
	switch format {
	case formatYAML:
		return yaml.Marshal(mcpdesk.PlainNumbers(out))
	default:
		return mcpdesk.NewDocumentStore(mcpdesk.StoreOptions{}).Write(out)
	}
}

// readInput reads an argument that's either inline content, @path/to/file, or - for stdin.
func readInput(arg string, stdin io.Reader) ([]byte, string, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		return data, "stdin", err
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(arg[1:])
		return data, arg[1:], err
	default:
		return []byte(arg), "argument", nil
	}
}

// parseValue parses JSON content, falling back to YAML for files that aren't JSON.
func parseValue(data []byte, source string) (any, error) {
	value, err := mcpdesk.NewDocumentStore(mcpdesk.StoreOptions{}).Read(data, source)
	if err == nil {
		return value, nil
	}
	var parseErr *mcpdesk.ParseError
	if !errors.As(err, &parseErr) {
		return nil, err
	}
	var yamlValue any
	if yamlErr := yaml.Unmarshal(data, &yamlValue); yamlErr != nil {
		return nil, err
	}
	return normalizeYAML(yamlValue), nil
}

// normalizeYAML turns the values yaml.v3 produces into JSON compatible values.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
