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

// Package testutil contains utilities for unit tests and self-checks.
package testutil

import (
	"github.com/hydra-project/hydra/authority"
	"github.com/hydra-project/hydra/constants"
	"github.com/hydra-project/hydra/store"
	"github.com/hydra-project/hydra/store/memory"
)

// FastRounds is the cheapest PBKDF2 iteration count the authority accepts.
const FastRounds = constants.MinPBKDF2Rounds

// NewMemoryAuthority returns an authority over a fresh in-memory backend
// with the minimum prime size and PBKDF2 rounds.
func NewMemoryAuthority() (*authority.Authority, *memory.Backend, error) {
	backend := memory.New()
	a, err := authority.New(backend, authority.WithPBKDF2Rounds(FastRounds))
	if err != nil {
		return nil, nil, err
	}
	return a, backend, nil
}

// FakeBackend is a store.Backend whose methods can be overridden. Methods
// without an override delegate to the embedded Backend.
type FakeBackend struct {
	store.Backend

	GetFunc    func(key string) ([]byte, error)
	PutFunc    func(key string, value []byte) error
	DeleteFunc func(key string) error
	ExistsFunc func(key string) (bool, error)
}

// NewFakeBackend wraps a fresh in-memory backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{Backend: memory.New()}
}

// Get calls GetFunc if applicable. Otherwise delegates.
func (f *FakeBackend) Get(key string) ([]byte, error) {
	if f.GetFunc != nil {
		return f.GetFunc(key)
	}
	return f.Backend.Get(key)
}

// Put calls PutFunc if applicable. Otherwise delegates.
func (f *FakeBackend) Put(key string, value []byte) error {
	if f.PutFunc != nil {
		return f.PutFunc(key, value)
	}
	return f.Backend.Put(key, value)
}

// Delete calls DeleteFunc if applicable. Otherwise delegates.
func (f *FakeBackend) Delete(key string) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(key)
	}
	return f.Backend.Delete(key)
}

// Exists calls ExistsFunc if applicable. Otherwise delegates.
func (f *FakeBackend) Exists(key string) (bool, error) {
	if f.ExistsFunc != nil {
		return f.ExistsFunc(key)
	}
	return f.Backend.Exists(key)
}
