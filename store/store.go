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

// Package store defines the key-value collaborator that persists authority
// state. Keys are slash-separated relative paths such as "shares/<index>".
package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrClosed is returned when a closed backend is used.
	ErrClosed = errors.New("store: closed")

	// ErrInvalidKey is returned for empty keys and keys that would escape
	// the backend's namespace.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Backend is a thread-safe byte-oriented key-value store.
type Backend interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes key and its value, or returns ErrNotFound.
	Delete(key string) error

	// Exists reports whether key holds a value.
	Exists(key string) (bool, error)

	// List returns the sorted keys starting with prefix. An empty prefix
	// lists everything.
	List(prefix string) ([]string, error)

	// Close releases the backend. Later calls return ErrClosed.
	Close() error
}

// ValidateKey rejects keys that are empty, absolute, contain NUL bytes or
// traverse upwards.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	case strings.ContainsRune(key, 0):
		return fmt.Errorf("%w: key contains a null byte", ErrInvalidKey)
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("%w: key %q is absolute", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: key %q has an empty or relative path element", ErrInvalidKey, key)
		}
	}
	return nil
}
