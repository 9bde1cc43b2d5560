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
	"context"
	"fmt"

	"github.com/theirish81/mcpdesk/log"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// CollectionKey is the top level key holding the server entries. Defaults to DefaultCollectionKey.
	CollectionKey string       `mapstructure:"collection_key" yaml:"collection_key"`
	Store         StoreOptions `mapstructure:",squash" yaml:",inline"`
}

// Manager runs the operations on the configuration documents of applications. Each operation resolves the location
// from scratch, loads the document, and, for mutations, writes it back. Operations on the same location are
// serialized.
type Manager struct {
	resolver      Resolver
	storage       Storage
	store         DocumentStore
	collectionKey string
	locks         *LocationLocks
	logger        *log.StreamerLogger
}

// NewManager creates a new Manager. A nil logger defaults to slog.Default().
func NewManager(resolver Resolver, storage Storage, options ManagerOptions, logger *log.StreamerLogger) *Manager {
	if options.CollectionKey == "" {
		options.CollectionKey = DefaultCollectionKey
	}
	if logger == nil {
		logger = log.NewDefaultLogger()
	}
	return &Manager{
		resolver:      resolver,
		storage:       storage,
		store:         NewDocumentStore(options.Store),
		collectionKey: options.CollectionKey,
		locks:         NewLocationLocks(),
		logger:        logger,
	}
}

// CollectionKey returns the key the manager stores server entries under.
func (m *Manager) CollectionKey() string {
	return m.collectionKey
}

// AppPath returns the resolved configuration file path of an application.
func (m *Manager) AppPath(app string, path string) (string, error) {
	loc, err := m.resolve(app, path)
	if err != nil {
		return "", err
	}
	return loc.Path, nil
}

// Read returns the whole document of an application. A missing file is a NotFoundError, unless the application
// allows it, in which case it reads as an empty object.
func (m *Manager) Read(ctx context.Context, app string, path string) (any, error) {
	loc, err := m.resolve(app, path)
	if err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(loc.Path)
	defer unlock()
	return m.load(ctx, loc, !loc.AllowMissing)
}

// Write replaces the whole document of an application.
func (m *Manager) Write(ctx context.Context, app string, path string, doc any) error {
	loc, err := m.resolve(app, path)
	if err != nil {
		return err
	}
	unlock := m.locks.Lock(loc.Path)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.save(loc, doc, log.WriteEventType, "")
}

// Collection returns the server collection of an application. A collection that is missing, or that is not an
// object, is returned as an empty map.
func (m *Manager) Collection(ctx context.Context, app string, path string) (map[string]any, error) {
	doc, err := m.Read(ctx, app, path)
	if err != nil {
		return nil, err
	}
	return Collection(doc, m.collectionKey), nil
}

// Servers returns the typed view of the server collection. Entries that can't be decoded are skipped and logged.
func (m *Manager) Servers(ctx context.Context, app string, path string) (ServerConfigs, error) {
	collection, err := m.Collection(ctx, app, path)
	if err != nil {
		return nil, err
	}
	configs, err := DecodeServers(collection)
	if err != nil {
		m.logger.Warn(log.NewEvent(log.LoadEventType, log.ManagerComponent).
			WithMessage("some server entries could not be decoded").
			WithApp(app).
			WithErr(err))
	}
	return configs, nil
}

// AddServer upserts a server entry and returns the resulting document. A missing file starts as an empty document.
func (m *Manager) AddServer(ctx context.Context, app string, path string, name string, entry any) (map[string]any, error) {
	return m.mutate(ctx, app, path, log.UpsertEventType, name, func(doc any) (map[string]any, error) {
		return m.store.UpsertEntry(doc, m.collectionKey, name, entry)
	})
}

// UpdateServer is an alias of AddServer: entries are always replaced as a whole.
func (m *Manager) UpdateServer(ctx context.Context, app string, path string, name string, entry any) (map[string]any, error) {
	return m.AddServer(ctx, app, path, name, entry)
}

// RemoveServer removes a server entry, if present, and returns the resulting document.
func (m *Manager) RemoveServer(ctx context.Context, app string, path string, name string) (map[string]any, error) {
	return m.mutate(ctx, app, path, log.RemoveEventType, name, func(doc any) (map[string]any, error) {
		return m.store.RemoveEntry(doc, m.collectionKey, name), nil
	})
}

func (m *Manager) resolve(app string, path string) (Location, error) {
	loc, err := m.resolver.Resolve(app, path)
	if err != nil {
		m.logger.Err(log.NewEvent(log.ErrorEventType, log.ResolverComponent).WithApp(app).WithErr(err))
		return loc, err
	}
	m.logger.Debug(log.NewEvent(log.LoadEventType, log.ResolverComponent).
		WithMessage("location resolved").
		WithApp(app).
		WithPath(loc.Path))
	return loc, nil
}

// mutate runs a read-modify-write cycle on a location. The caller must not hold the location lock.
func (m *Manager) mutate(ctx context.Context, app string, path string, eType log.EventType, name string,
	fn func(doc any) (map[string]any, error)) (map[string]any, error) {
	loc, err := m.resolve(app, path)
	if err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(loc.Path)
	defer unlock()
	doc, err := m.load(ctx, loc, false)
	if err != nil {
		return nil, err
	}
	if eType == log.UpsertEventType {
		if repair := m.describeRepair(doc); repair != "" {
			m.logger.Warn(log.NewEvent(log.RepairEventType, log.ManagerComponent).
				WithMessage(repair).
				WithApp(loc.App).
				WithPath(loc.Path))
		}
	}
	updated, err := fn(doc)
	if err != nil {
		m.logger.Err(log.NewEvent(log.ErrorEventType, log.ManagerComponent).
			WithApp(loc.App).
			WithPath(loc.Path).
			WithServer(name).
			WithErr(err))
		return nil, fmt.Errorf("%s (%s): %w", loc.App, loc.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.save(loc, updated, eType, name); err != nil {
		return nil, err
	}
	return updated, nil
}

// load reads and parses a location. The caller must hold the location lock.
func (m *Manager) load(ctx context.Context, loc Location, requireExisting bool) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, exists, err := m.storage.Read(loc.Path)
	if err != nil {
		m.logger.Err(log.NewEvent(log.ErrorEventType, log.StorageComponent).WithApp(loc.App).WithPath(loc.Path).WithErr(err))
		return nil, err
	}
	if !exists && requireExisting {
		err := &NotFoundError{App: loc.App, Path: loc.Path}
		m.logger.Err(log.NewEvent(log.ErrorEventType, log.StorageComponent).WithApp(loc.App).WithPath(loc.Path).WithErr(err))
		return nil, err
	}
	doc, err := m.store.Read(data, loc.Path)
	if err != nil {
		m.logger.Err(log.NewEvent(log.ErrorEventType, log.ManagerComponent).WithApp(loc.App).WithPath(loc.Path).WithErr(err))
		return nil, err
	}
	m.logger.Debug(log.NewEvent(log.LoadEventType, log.StorageComponent).
		WithMessage("document loaded").
		WithApp(loc.App).
		WithPath(loc.Path).
		WithArg("exists", exists))
	return doc, nil
}

// save serializes and writes a document. The caller must hold the location lock.
func (m *Manager) save(loc Location, doc any, eType log.EventType, name string) error {
	data, err := m.store.Write(doc)
	if err != nil {
		m.logger.Err(log.NewEvent(log.ErrorEventType, log.ManagerComponent).WithApp(loc.App).WithPath(loc.Path).WithErr(err))
		return err
	}
	if err := m.storage.Write(loc.Path, data); err != nil {
		m.logger.Err(log.NewEvent(log.ErrorEventType, log.StorageComponent).WithApp(loc.App).WithPath(loc.Path).WithErr(err))
		return err
	}
	event := log.NewEvent(eType, log.ManagerComponent).
		WithMessage("document written").
		WithApp(loc.App).
		WithPath(loc.Path)
	if name != "" {
		event = event.WithServer(name)
	}
	m.logger.Info(event)
	return nil
}

// describeRepair tells what an upsert is about to discard, if anything.
func (m *Manager) describeRepair(doc any) string {
	root, ok := doc.(map[string]any)
	if !ok {
		return fmt.Sprintf("document is %s, replacing it with an empty object", KindOf(doc))
	}
	collection, found := root[m.collectionKey]
	if !found || collection == nil {
		return ""
	}
	if _, ok := collection.(map[string]any); !ok && !m.store.options.StrictCollections {
		return fmt.Sprintf("%s is %s, replacing it with an empty object", m.collectionKey, KindOf(collection))
	}
	return ""
}
