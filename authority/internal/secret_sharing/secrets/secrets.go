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

// Package secrets contains types for secret sharing over a prime field. When splitting a
// secret, a dealer provides the secret, an anchor x-coordinate and the `Metadata`, and gets
// back a `Split` holding the `Metadata` and the sampled points.
package secrets

import (
	"math/big"
)

// Metadata contains the secret sharing scheme parameters needed to split and reconstruct
// a secret. Reconstruction needs Threshold+1 shares.
type Metadata struct {
	Prime     *big.Int
	NumShares int
	Threshold int
}

// Split represents a secret split into shares alongside the metadata needed to reconstruct it.
type Split struct {
	Metadata Metadata
	Shares   []Share
}

// Share is one (x, y) point on a secret-bearing polynomial.
type Share struct {
	X *big.Int
	Y *big.Int
}

// Clone returns a deep copy of the share.
func (s Share) Clone() Share {
	c := Share{}
	if s.X != nil {
		c.X = new(big.Int).Set(s.X)
	}
	if s.Y != nil {
		c.Y = new(big.Int).Set(s.Y)
	}
	return c
}

// Equal reports whether both coordinates match.
func (s Share) Equal(o Share) bool {
	if s.X == nil || s.Y == nil || o.X == nil || o.Y == nil {
		return s.X == o.X && s.Y == o.Y
	}
	return s.X.Cmp(o.X) == 0 && s.Y.Cmp(o.Y) == 0
}
