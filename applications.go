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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// Built-in application names.
const (
	AppClaude = "claude"
	AppCursor = "cursor"
	AppCustom = "custom"
)

// Application describes an external tool whose configuration document mcpdesk manages.
type Application struct {
	Name        string `mapstructure:"name" yaml:"name" json:"name" validate:"required"`
	DisplayName string `mapstructure:"display_name" yaml:"display_name" json:"displayName"`
	// NeedsPath is true when the location can't be guessed and must be provided by the caller.
	NeedsPath bool `mapstructure:"needs_path" yaml:"needs_path" json:"needsPath"`
	// AllowMissing is true when a missing configuration file reads as an empty document rather than an error.
	AllowMissing bool `mapstructure:"allow_missing" yaml:"allow_missing" json:"allowMissing"`
	// Path is the default location of the configuration file.
	Path string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"`
	// File is joined to an override path when the override names a directory.
	File string `mapstructure:"file" yaml:"file,omitempty" json:"file,omitempty"`
}

// Location is a resolved configuration file.
type Location struct {
	App          string
	Path         string
	AllowMissing bool
}

// Resolver turns an application name and an optional override path into a Location.
type Resolver interface {
	Resolve(app string, override string) (Location, error)
}

// DefaultApplications returns the built-in applications.
func DefaultApplications() []Application {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join("~", ".config")
	}
	return []Application{
		{
			Name:         AppClaude,
			DisplayName:  "Claude",
			AllowMissing: true,
			Path:         filepath.Join(configDir, "Claude", "claude_desktop_config.json"),
		},
		{
			Name:        AppCursor,
			DisplayName: "Cursor",
			NeedsPath:   true,
			File:        filepath.Join(".cursor", "mcp.json"),
		},
		{
			Name:        AppCustom,
			DisplayName: "Custom",
			NeedsPath:   true,
		},
	}
}

// Applications is the registry of known applications. It implements Resolver.
type Applications struct {
	fs   afero.Fs
	apps map[string]Application
}

// NewApplications creates a registry. The file system is used to tell whether an override path is a directory.
func NewApplications(fs afero.Fs, apps ...Application) *Applications {
	a := &Applications{fs: fs, apps: make(map[string]Application)}
	for _, app := range apps {
		a.Register(app)
	}
	return a
}

// Register adds an application, replacing any application with the same name.
func (a *Applications) Register(app Application) {
	if app.DisplayName == "" {
		app.DisplayName = app.Name
	}
	a.apps[strings.ToLower(app.Name)] = app
}

// Get returns an application by name.
func (a *Applications) Get(name string) (Application, bool) {
	app, ok := a.apps[strings.ToLower(name)]
	return app, ok
}

// List returns all the applications, sorted by name.
func (a *Applications) List() []Application {
	apps := lo.Values(a.apps)
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].Name < apps[j].Name
	})
	return apps
}

// Resolve computes the location of an application's configuration file. The override path, when present, always
// wins over the application default.
func (a *Applications) Resolve(name string, override string) (Location, error) {
	app, ok := a.Get(name)
	if !ok {
		return Location{}, &NotFoundError{App: name}
	}
	var path string
	override = strings.TrimSpace(override)
	switch {
	case override != "":
		path = expandHome(override)
		if app.File != "" && a.isDirectory(path) {
			path = filepath.Join(path, app.File)
		}
	case app.NeedsPath:
		return Location{}, &NotFoundError{App: app.Name, Reason: "a path is required"}
	case app.Path == "":
		return Location{}, &NotFoundError{App: app.Name, Reason: "no default path"}
	default:
		path = expandHome(app.Path)
	}
	return Location{
		App:          app.Name,
		Path:         filepath.Clean(path),
		AllowMissing: app.AllowMissing,
	}, nil
}

// isDirectory tells whether an override names a directory. An override that doesn't exist yet is a directory when
// it has no file extension, so that a new project gets its configuration file in the usual place.
func (a *Applications) isDirectory(path string) bool {
	if isDir, err := afero.IsDir(a.fs, path); err == nil {
		return isDir
	}
	return filepath.Ext(path) == ""
}

// expandHome replaces a leading ~ with the user home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
