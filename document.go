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
	"encoding/json"
	"errors"
	"io"
)

// DefaultCollectionKey is the top level key under which applications expect their MCP server entries.
const DefaultCollectionKey = "mcpServers"

// ErrEmptyEntryName is returned when an entry is upserted without a name.
var ErrEmptyEntryName = errors.New("entry name cannot be empty")

// StoreOptions tunes the repair policy of a DocumentStore.
type StoreOptions struct {
	// StrictCollections makes UpsertEntry fail with a SchemaError when the collection key holds a value that is not
	// an object, instead of replacing it.
	StrictCollections bool `mapstructure:"strict_collections" yaml:"strict_collections"`
}

// DocumentStore parses, mutates and serializes configuration documents. It holds no state besides its options:
// every operation works on the values it's given and never mutates them.
type DocumentStore struct {
	options StoreOptions
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(options StoreOptions) DocumentStore {
	return DocumentStore{options: options}
}

// Read parses data as a JSON document. Empty (or whitespace only) data yields an empty object. Source only serves
// to name the content in a ParseError. The top level value is returned as-is, whatever its shape.
func (s DocumentStore) Read(data []byte, source string) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, newParseError(source, data, err)
	}
	// anything but EOF after the first value means trailing garbage
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, newParseError(source, data, err)
	}
	return doc, nil
}

// Write serializes the document with a two spaces indentation. Object keys are sorted, so logically equal
// documents always produce the same bytes.
func (s DocumentStore) Write(doc any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, &SerializeError{Err: err}
	}
	return buf.Bytes(), nil
}

// UpsertEntry sets entryName to entry inside the collection stored at collectionKey and returns the updated
// document. A non-object document is replaced by an empty object. A missing collection is created; a collection that
// is not an object is replaced, unless the store is strict.
func (s DocumentStore) UpsertEntry(doc any, collectionKey string, entryName string, entry any) (map[string]any, error) {
	if entryName == "" {
		return nil, ErrEmptyEntryName
	}
	root := asObject(cloneValue(doc))
	collection, ok := root[collectionKey].(map[string]any)
	if !ok {
		if existing, found := root[collectionKey]; found && existing != nil && s.options.StrictCollections {
			return nil, &SchemaError{Key: collectionKey, Kind: KindOf(existing)}
		}
		collection = make(map[string]any)
	}
	collection[entryName] = cloneValue(entry)
	root[collectionKey] = collection
	return root, nil
}

// RemoveEntry deletes entryName from the collection stored at collectionKey and returns the updated document.
// A missing collection, a collection that is not an object, or a missing entry all leave the document as it is.
func (s DocumentStore) RemoveEntry(doc any, collectionKey string, entryName string) map[string]any {
	root := asObject(cloneValue(doc))
	if collection, ok := root[collectionKey].(map[string]any); ok {
		delete(collection, entryName)
	}
	return root
}

// Collection returns the collection stored at collectionKey, or an empty map if the document has none, or if it's
// not an object. The returned map is a copy.
func Collection(doc any, collectionKey string) map[string]any {
	root, ok := doc.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	collection, ok := root[collectionKey].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return cloneValue(collection).(map[string]any)
}

// KindOf returns the JSON kind of a decoded value.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64, float32, int, int64, int32, uint, uint64, uint32:
		return "number"
	case bool:
		return "boolean"
	default:
		return "unknown"
	}
}

// asObject returns v if it's an object, an empty object otherwise.
func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return make(map[string]any)
}

// cloneValue deep copies objects and arrays. Scalars are immutable and are returned as they are.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func newParseError(source string, data []byte, err error) *ParseError {
	pe := &ParseError{Source: source, Err: err}
	offset := int64(-1)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	} else if errors.Is(err, io.ErrUnexpectedEOF) {
		offset = int64(len(data))
	}
	if offset >= 0 {
		pe.Line, pe.Column = lineAndColumn(data, offset)
	}
	return pe
}

// lineAndColumn converts a byte offset into 1-based line and column numbers.
func lineAndColumn(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	head := data[:offset]
	line := bytes.Count(head, []byte("\n")) + 1
	column := len(head) - bytes.LastIndexByte(head, '\n')
	return line, column
}
