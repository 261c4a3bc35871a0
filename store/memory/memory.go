// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memory provides an in-memory store.Backend. Values are copied on
// the way in and out so callers cannot alias stored bytes.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/hydra-project/hydra/store"
)

// Backend is a map guarded by a sync.RWMutex.
type Backend struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

// Get implements store.Backend.
func (b *Backend) Get(key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, store.ErrClosed
	}
	value, ok := b.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte{}, value...), nil
}

// Put implements store.Backend.
func (b *Backend) Put(key string, value []byte) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return store.ErrClosed
	}
	b.data[key] = append([]byte{}, value...)
	return nil
}

// Delete implements store.Backend.
func (b *Backend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return store.ErrClosed
	}
	if _, ok := b.data[key]; !ok {
		return store.ErrNotFound
	}
	delete(b.data, key)
	return nil
}

// Exists implements store.Backend.
func (b *Backend) Exists(key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, store.ErrClosed
	}
	_, ok := b.data[key]
	return ok, nil
}

// List implements store.Backend.
func (b *Backend) List(prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, store.ErrClosed
	}
	keys := []string{}
	for key := range b.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements store.Backend. Closing twice is a no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.data = nil
	return nil
}
