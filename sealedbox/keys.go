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

// Utility functions for X25519 key material.

package sealedbox

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/hydra-project/hydra/constants"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// KeySize is the width in bytes of private scalars and public points.
const KeySize = constants.KeyBytes

// ErrKeyWidth is returned when key material is longer than KeySize.
var ErrKeyWidth = errors.New("key material exceeds fixed key width")

// Key is a fixed-width X25519 private scalar or public point.
type Key [KeySize]byte

// PadKeyBytes right-pads b with zero bytes up to KeySize. Inputs longer than
// KeySize are rejected with ErrKeyWidth.
func PadKeyBytes(b []byte) (Key, error) {
	var k Key
	if len(b) > KeySize {
		return k, fmt.Errorf("%w: got %d bytes, want at most %d", ErrKeyWidth, len(b), KeySize)
	}
	copy(k[:], b)
	return k, nil
}

// GenerateKey returns a fresh X25519 keypair drawn from crypto/rand.
func GenerateKey() (privateKey, publicKey Key, err error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return Key{}, Key{}, fmt.Errorf("unable to generate keypair: %v", err)
	}
	return Key(*priv), Key(*pub), nil
}

// PublicKey derives the public point for privateKey.
func PublicKey(privateKey Key) (Key, error) {
	pub, err := curve25519.X25519(privateKey[:], curve25519.Basepoint)
	if err != nil {
		return Key{}, fmt.Errorf("unable to derive public key: %v", err)
	}
	return PadKeyBytes(pub)
}
