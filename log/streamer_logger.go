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

package log

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const GenericEventType EventType = "generic"
const LoadEventType EventType = "load"
const WriteEventType EventType = "write"
const UpsertEventType EventType = "upsert"
const RemoveEventType EventType = "remove"
const RepairEventType EventType = "repair"
const ErrorEventType EventType = "error"

type EventComponent string

const ManagerComponent EventComponent = "manager"
const StorageComponent EventComponent = "storage"
const ResolverComponent EventComponent = "resolver"
const WebComponent EventComponent = "web"
const McpComponent EventComponent = "mcp"

type ChannelLevel string

const DebugChannelLevel ChannelLevel = "debug"
const InfoChannelLevel ChannelLevel = "info"

// Event is a single, structured log entry. Events are emitted to the slog logger and, optionally, streamed to a
// channel so that a surface (i.e. the web server) can relay them.
type Event struct {
	Level     string         `json:"level"`
	Component EventComponent `json:"component"`
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Time      time.Time      `json:"time"`
	Message   string         `json:"message,omitempty"`
	App       *string        `json:"app,omitempty"`
	Path      *string        `json:"path,omitempty"`
	Server    *string        `json:"server,omitempty"`
	Err       *EventError    `json:"error,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
}

type EventError struct {
	Message string
}

func (e EventError) Error() string {
	return e.Message
}

func (e EventError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Message)
}

func NewEvent(eType EventType, component EventComponent) Event {
	return Event{
		Component: component,
		Type:      eType,
		Time:      time.Now(),
		ID:        uuid.NewString(),
	}
}

func (e Event) WithMessage(message string) Event {
	e.Message = message
	return e
}

func (e Event) WithApp(app string) Event {
	e.App = &app
	return e
}

func (e Event) WithPath(path string) Event {
	e.Path = &path
	return e
}

func (e Event) WithServer(server string) Event {
	e.Server = &server
	return e
}

func (e Event) WithErr(err error) Event {
	e.Err = &EventError{Message: err.Error()}
	return e
}

func (e Event) WithArg(key string, value any) Event {
	if e.Args == nil {
		e.Args = make(map[string]any)
	}
	e.Args[key] = value
	return e
}

// ToArray flattens the event into slog key/value pairs, skipping nil pointers.
func (e Event) ToArray() []any {
	result := make([]any, 0)
	v := reflect.ValueOf(e)
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldName := strings.ToLower(field.Name)

		// Skip fields which make no sense in the logging context
		if slices.Contains([]string{"args", "level", "message", "id", "time"}, fieldName) {
			continue
		}
		fieldValue := v.Field(i)
		if fieldValue.Kind() == reflect.Pointer {
			if fieldValue.IsNil() {
				continue
			}
			result = append(result, fieldName, fieldValue.Elem().Interface())
			continue
		}
		result = append(result, fieldName, fieldValue.Interface())
	}
	for k, val := range e.Args {
		result = append(result, k, val)
	}
	return result
}

type StreamerLogger struct {
	mx              sync.RWMutex
	progressChannel chan Event
	logger          *slog.Logger
	channelLevel    ChannelLevel
}

func NewStreamerLogger(logger *slog.Logger, channel chan Event, channelLevel ChannelLevel) *StreamerLogger {
	return &StreamerLogger{
		logger:          logger,
		progressChannel: channel,
		channelLevel:    channelLevel,
	}
}

// NewDefaultLogger returns a StreamerLogger writing to slog.Default() with no channel attached.
func NewDefaultLogger() *StreamerLogger {
	return NewStreamerLogger(slog.Default(), nil, InfoChannelLevel)
}

func (l *StreamerLogger) SetChannel(channel chan Event, level ChannelLevel) {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.progressChannel = channel
	l.channelLevel = level
}

// Close closes the channel, if any. Events sent afterwards only reach the slog logger.
func (l *StreamerLogger) Close() {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.progressChannel != nil {
		close(l.progressChannel)
		l.progressChannel = nil
	}
}

func (l *StreamerLogger) Channel() chan Event {
	l.mx.RLock()
	defer l.mx.RUnlock()
	return l.progressChannel
}

func (l *StreamerLogger) Debug(event Event) {
	event.Level = "debug"
	l.logger.Debug(event.Message, event.ToArray()...)
	l.mx.RLock()
	level := l.channelLevel
	l.mx.RUnlock()
	if level == DebugChannelLevel {
		l.Send(event)
	}
}

func (l *StreamerLogger) Info(event Event) {
	event.Level = "info"
	l.logger.Info(event.Message, event.ToArray()...)
	l.Send(event)
}

func (l *StreamerLogger) Warn(event Event) {
	event.Level = "warn"
	l.logger.Warn(event.Message, event.ToArray()...)
	l.Send(event)
}

func (l *StreamerLogger) Err(event Event) {
	event.Level = "err"
	l.logger.Error(event.Message, event.ToArray()...)
	l.Send(event)
}

// Send pushes the event to the channel, if any. It never blocks: when the channel is full the event is dropped.
func (l *StreamerLogger) Send(event Event) {
	l.mx.RLock()
	defer l.mx.RUnlock()
	if l.progressChannel != nil {
		select {
		case l.progressChannel <- event:
		default:
			l.logger.Warn("streamer logger channel full, dropping event")
		}
	}
}
