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
	"fmt"
)

// ParseError is returned when the content of a location is not valid JSON.
type ParseError struct {
	Source string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse JSON from %s (line %d, column %d): %s", e.Source, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("failed to parse JSON from %s: %s", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SerializeError is returned when a document cannot be encoded as JSON.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string {
	return "failed to serialize JSON: " + e.Err.Error()
}

func (e *SerializeError) Unwrap() error {
	return e.Err
}

// IOError is returned when a location cannot be read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when an application, or its configuration file, cannot be found.
type NotFoundError struct {
	App    string
	Path   string
	Reason string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("file not found: %s (app %s)", e.Path, e.App)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.App, e.Reason)
	default:
		return "unknown application: " + e.App
	}
}

// SchemaError is returned, in strict mode only, when the collection key holds something other than an object.
type SchemaError struct {
	Key  string
	Kind string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s is expected to be an object, found %s", e.Key, e.Kind)
}
