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
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/jinzhu/copier"
	"github.com/samber/lo"
)

const redactedValue = "********"

// ServerConfig is a typed view of a server entry, covering the fields the supported applications understand.
// It's only used to read entries: entries are always written back verbatim.
type ServerConfig struct {
	Type      string            `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=stdio sse http streamable-http"`
	Command   string            `mapstructure:"command" json:"command,omitempty" yaml:"command,omitempty" validate:"required_without=Url"`
	Args      []string          `mapstructure:"args" json:"args,omitempty" yaml:"args,omitempty"`
	Env       map[string]string `mapstructure:"env" json:"env,omitempty" yaml:"env,omitempty"`
	Cwd       string            `mapstructure:"cwd" json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Transport string            `mapstructure:"transport" json:"transport,omitempty" yaml:"transport,omitempty"`
	Url       string            `mapstructure:"url" json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	Headers   map[string]string `mapstructure:"headers" json:"headers,omitempty" yaml:"headers,omitempty"`
	Disabled  bool              `mapstructure:"disabled" json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Redacted returns a copy of the configuration with environment and header values masked.
func (s ServerConfig) Redacted() ServerConfig {
	out := ServerConfig{}
	_ = copier.CopyWithOption(&out, s, copier.Option{DeepCopy: true})
	for k := range out.Env {
		out.Env[k] = redactedValue
	}
	for k := range out.Headers {
		out.Headers[k] = redactedValue
	}
	return out
}

// ServerConfigs is a map of server names to server configurations
type ServerConfigs map[string]ServerConfig

// Names returns the server names, sorted.
func (s ServerConfigs) Names() []string {
	names := lo.Keys(s)
	slices.Sort(names)
	return names
}

// Redacted returns a copy with every configuration redacted.
func (s ServerConfigs) Redacted() ServerConfigs {
	return lo.MapValues(s, func(cfg ServerConfig, _ string) ServerConfig {
		return cfg.Redacted()
	})
}

// DecodeServer decodes a single entry.
func DecodeServer(entry any) (ServerConfig, error) {
	cfg := ServerConfig{}
	if _, ok := entry.(map[string]any); !ok {
		return cfg, fmt.Errorf("entry is %s, not an object", KindOf(entry))
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	return cfg, decoder.Decode(entry)
}

// DecodeServers decodes every entry of a collection. Entries that can't be decoded are left out of the result and
// reported in the returned error.
func DecodeServers(collection map[string]any) (ServerConfigs, error) {
	configs := make(ServerConfigs, len(collection))
	errs := make([]error, 0)
	for _, name := range lo.Keys(collection) {
		cfg, err := DecodeServer(collection[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		configs[name] = cfg
	}
	return configs, errors.Join(errs...)
}

// LintIssue is a problem found in a server entry.
type LintIssue struct {
	Server  string `json:"server" yaml:"server"`
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	Message string `json:"message" yaml:"message"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LintServers checks every entry of a collection against what applications expect: an object with either a
// command or a valid URL. Issues are sorted by server name.
func LintServers(collection map[string]any) []LintIssue {
	issues := make([]LintIssue, 0)
	names := lo.Keys(collection)
	slices.Sort(names)
	for _, name := range names {
		cfg, err := DecodeServer(collection[name])
		if err != nil {
			issues = append(issues, LintIssue{Server: name, Message: err.Error()})
			continue
		}
		if err := validate.Struct(cfg); err != nil {
			var validationErrors validator.ValidationErrors
			if !errors.As(err, &validationErrors) {
				issues = append(issues, LintIssue{Server: name, Message: err.Error()})
				continue
			}
			for _, fe := range validationErrors {
				issues = append(issues, LintIssue{
					Server:  name,
					Field:   fe.Field(),
					Message: lintMessage(fe),
				})
			}
		}
	}
	return issues
}

func lintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_without":
		return "either command or url must be set"
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q is not one of: %s", fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

// ServerNames returns the sorted entry names of a collection. Anything that's not an object has no names.
func ServerNames(collection any) []string {
	obj, ok := collection.(map[string]any)
	if !ok {
		return []string{}
	}
	names := lo.Keys(obj)
	slices.Sort(names)
	return names
}
