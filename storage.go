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
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Storage reads and writes the raw content of a configuration file.
type Storage interface {
	// Read returns the content at path. The boolean is false when the file does not exist, in which case the
	// content is nil and the error is nil.
	Read(path string) ([]byte, bool, error)
	// Write replaces the content at path. Either the whole content is written, or the previous content is left
	// untouched.
	Write(path string, data []byte) error
}

// FileStorage is a Storage backed by an afero file system.
type FileStorage struct {
	fs       afero.Fs
	fileMode os.FileMode
}

// NewFileStorage creates a FileStorage on top of the given file system.
func NewFileStorage(fs afero.Fs) *FileStorage {
	return &FileStorage{fs: fs, fileMode: 0o644}
}

// NewOsStorage creates a FileStorage on top of the OS file system.
func NewOsStorage() *FileStorage {
	return NewFileStorage(afero.NewOsFs())
}

// Fs returns the underlying file system.
func (s *FileStorage) Fs() afero.Fs {
	return s.fs
}

func (s *FileStorage) Read(path string) ([]byte, bool, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, true, nil
}

// Write writes to a temporary file in the same directory and renames it over path. The file mode of an existing
// file is retained.
func (s *FileStorage) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "create directory for", Path: path, Err: err}
	}
	mode := s.fileMode
	if info, err := s.fs.Stat(path); err == nil {
		if info.IsDir() {
			return &IOError{Op: "write", Path: path, Err: errors.New("is a directory")}
		}
		mode = info.Mode().Perm()
	}
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = s.fs.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := s.fs.Chmod(tmpName, mode); err != nil {
		cleanup()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		cleanup()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
