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
	"io/fs"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/theirish81/mcpdesk"
	"github.com/theirish81/mcpdesk/log"
	"gopkg.in/yaml.v3"
)

// supported output formats
const (
	formatYAML = "yaml"
	formatJSON = "json"
)

type Config struct {
	CollectionKey     string `mapstructure:"COLLECTION_KEY" yaml:"COLLECTION_KEY"`
	StrictCollections bool   `mapstructure:"STRICT_COLLECTIONS" yaml:"STRICT_COLLECTIONS"`
	AppsFile          string `mapstructure:"APPS_FILE" yaml:"APPS_FILE"`
	ApiKey            string `mapstructure:"API_KEY" yaml:"API_KEY"`
}

// managerOptions converts the configuration into the manager options.
func (c Config) managerOptions() mcpdesk.ManagerOptions {
	return mcpdesk.ManagerOptions{
		CollectionKey: c.CollectionKey,
		Store:         mcpdesk.StoreOptions{StrictCollections: c.StrictCollections},
	}
}

var cfg = Config{}

var validate = validator.New(validator.WithRequiredStructEnabled())

// loadConfig reads the configuration file, if any, and the MCPDESK_ environment variables. Environment variables
// win over the file.
func loadConfig() {
	viper.SetDefault("COLLECTION_KEY", mcpdesk.DefaultCollectionKey)
	viper.SetDefault("STRICT_COLLECTIONS", false)
	viper.SetDefault("APPS_FILE", "")
	viper.SetDefault("API_KEY", "")
	viper.SetEnvPrefix("MCPDESK")
	viper.AutomaticEnv()
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "could not read configuration:", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
}

// newLogger returns the logger for the current invocation.
func newLogger() *log.StreamerLogger {
	if debug {
		return log.NewStreamerLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})), nil, log.DebugChannelLevel)
	}
	return log.NewDefaultLogger()
}

// newRegistry returns the built-in applications plus the ones declared in the applications file.
func newRegistry(fsys afero.Fs) (*mcpdesk.Applications, error) {
	registry := mcpdesk.NewApplications(fsys, mcpdesk.DefaultApplications()...)
	if cfg.AppsFile == "" {
		return registry, nil
	}
	data, err := afero.ReadFile(fsys, cfg.AppsFile)
	if err != nil {
		return nil, err
	}
	apps := make([]mcpdesk.Application, 0)
	if err := yaml.Unmarshal(data, &apps); err != nil {
		return nil, fmt.Errorf("invalid applications file %s: %w", cfg.AppsFile, err)
	}
	for _, app := range apps {
		if err := validate.Struct(app); err != nil {
			return nil, fmt.Errorf("invalid application in %s: %w", cfg.AppsFile, err)
		}
		registry.Register(app)
	}
	return registry, nil
}

// newManager wires the manager on top of the OS file system.
func newManager(logger *log.StreamerLogger) (*mcpdesk.Manager, *mcpdesk.Applications, error) {
	fsys := afero.NewOsFs()
	registry, err := newRegistry(fsys)
	if err != nil {
		return nil, nil, err
	}
	return mcpdesk.NewManager(registry, mcpdesk.NewFileStorage(fsys), cfg.managerOptions(), logger), registry, nil
}
