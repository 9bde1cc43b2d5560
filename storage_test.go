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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_Read(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/app.json", []byte(`{"a":1}`), 0o644))
	storage := NewFileStorage(fs)

	t.Run("existing file", func(t *testing.T) {
		data, exists, err := storage.Read("/cfg/app.json")
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, `{"a":1}`, string(data))
	})
	t.Run("missing file", func(t *testing.T) {
		data, exists, err := storage.Read("/cfg/missing.json")
		assert.NoError(t, err)
		assert.False(t, exists)
		assert.Nil(t, data)
	})
}

func TestFileStorage_Write(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		storage := NewFileStorage(fs)
		require.NoError(t, storage.Write("/a/b/c.json", []byte("{}")))
		data, err := afero.ReadFile(fs, "/a/b/c.json")
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
	})
	t.Run("replaces content and leaves no temporary file behind", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/cfg/app.json", []byte(`{"old":true}`), 0o640))
		storage := NewFileStorage(fs)
		require.NoError(t, storage.Write("/cfg/app.json", []byte(`{"new":true}`)))
		data, err := afero.ReadFile(fs, "/cfg/app.json")
		require.NoError(t, err)
		assert.Equal(t, `{"new":true}`, string(data))
		entries, err := afero.ReadDir(fs, "/cfg")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		info, err := fs.Stat("/cfg/app.json")
		require.NoError(t, err)
		assert.Equal(t, "-rw-r-----", info.Mode().Perm().String())
	})
	t.Run("failed write keeps the previous content", func(t *testing.T) {
		base := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(base, "/cfg/app.json", []byte(`{"old":true}`), 0o644))
		storage := NewFileStorage(afero.NewReadOnlyFs(base))
		err := storage.Write("/cfg/app.json", []byte(`{"new":true}`))
		var ioErr *IOError
		require.ErrorAs(t, err, &ioErr)
		assert.Equal(t, "/cfg/app.json", ioErr.Path)
		data, err := afero.ReadFile(base, "/cfg/app.json")
		require.NoError(t, err)
		assert.Equal(t, `{"old":true}`, string(data))
	})
	t.Run("refuses to overwrite a directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/cfg/app.json", 0o755))
		err := NewFileStorage(fs).Write("/cfg/app.json", []byte("{}"))
		var ioErr *IOError
		assert.ErrorAs(t, err, &ioErr)
	})
}
