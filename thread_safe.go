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
	"path/filepath"
	"sync"
)

type SafeMap[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		data: make(map[K]V),
	}
}

func (sm *SafeMap[K, V]) Store(key K, value V) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.data[key] = value
}

func (sm *SafeMap[K, V]) Load(key K) (V, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	value, ok := sm.data[key]
	return value, ok
}

// LoadOrStore returns the value for key if present. Otherwise, it stores and returns the value produced by create.
// The boolean is true when the value was already present.
func (sm *SafeMap[K, V]) LoadOrStore(key K, create func() V) (V, bool) {
	if value, ok := sm.Load(key); ok {
		return value, true
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if value, ok := sm.data[key]; ok {
		return value, true
	}
	value := create()
	sm.data[key] = value
	return value, false
}

func (sm *SafeMap[K, V]) Delete(key K) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.data, key)
}

func (sm *SafeMap[K, V]) Iter() map[K]V {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	cpy := make(map[K]V)
	for k, v := range sm.data {
		cpy[k] = v
	}
	return cpy
}

// LocationLocks hands out one mutex per configuration file, so that read-modify-write cycles targeting the same
// file are serialized while different files proceed in parallel.
type LocationLocks struct {
	locks *SafeMap[string, *sync.Mutex]
}

func NewLocationLocks() *LocationLocks {
	return &LocationLocks{locks: NewSafeMap[string, *sync.Mutex]()}
}

// Lock acquires the lock for path and returns the function releasing it.
func (l *LocationLocks) Lock(path string) func() {
	mu, _ := l.locks.LoadOrStore(filepath.Clean(path), func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}
