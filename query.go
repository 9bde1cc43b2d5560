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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blues/jsonata-go"
	"github.com/expr-lang/expr"
	"github.com/jmespath/go-jmespath"
)

// ErrEmptyQuery is returned when a Query has no expression set.
var ErrEmptyQuery = errors.New("no query expression provided")

// Query extracts data from a document using a JSONata expression, a JMESPath expression, or an expr expression.
// When more than one is set, they run in that order, each on the output of the previous one.
type Query struct {
	Jsonata  *string `yaml:"jsonata,omitempty" json:"jsonata,omitempty" query:"jsonata"`
	JmesPath *string `yaml:"jmesPath,omitempty" json:"jmesPath,omitempty" query:"jmespath"`
	Expr     *string `yaml:"expr,omitempty" json:"expr,omitempty" query:"expr"`
}

// IsEmpty returns true when no expression is set.
func (q Query) IsEmpty() bool {
	return isBlank(q.Jsonata) && isBlank(q.JmesPath) && isBlank(q.Expr)
}

// Run applies the query to the document. The expr expression sees the document as `doc`.
func (q Query) Run(doc any) (any, error) {
	if q.IsEmpty() {
		return nil, ErrEmptyQuery
	}
	data := PlainNumbers(doc)
	if !isBlank(q.Jsonata) {
		script, err := jsonata.Compile(*q.Jsonata)
		if err != nil {
			return nil, fmt.Errorf("invalid JSONata expression: %w", err)
		}
		if data, err = script.Eval(data); err != nil {
			if errors.Is(err, jsonata.ErrUndefined) {
				return nil, nil
			}
			return nil, err
		}
	}
	if !isBlank(q.JmesPath) {
		var err error
		if data, err = jmespath.Search(*q.JmesPath, data); err != nil {
			return nil, fmt.Errorf("invalid JMESPath expression: %w", err)
		}
	}
	if !isBlank(q.Expr) {
		program, err := expr.Compile(*q.Expr, expr.Env(map[string]any{"doc": data}))
		if err != nil {
			return nil, fmt.Errorf("invalid expression: %w", err)
		}
		if data, err = expr.Run(program, map[string]any{"doc": data}); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// FilterEntries returns the entries of a collection for which the boolean expression holds. The expression sees
// the entry name as `name` and the entry itself as `server`.
func FilterEntries(collection map[string]any, expression string) (map[string]any, error) {
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{"name": "", "server": map[string]any{}}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	out := make(map[string]any)
	for name, entry := range collection {
		res, err := expr.Run(program, map[string]any{"name": name, "server": PlainNumbers(entry)})
		if err != nil {
			return nil, fmt.Errorf("filter failed on %s: %w", name, err)
		}
		if keep, _ := res.(bool); keep {
			out[name] = entry
		}
	}
	return out, nil
}

// PlainNumbers returns a copy of v where json.Number values are converted to float64, which is what the query
// engines understand.
func PlainNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = PlainNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = PlainNumbers(item)
		}
		return out
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}
