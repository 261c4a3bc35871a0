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

// Package modarith implements the modular arithmetic needed by a prime field
// of arbitrary size: extended Euclid, modular inverse and normalization of
// signed residues.
package modarith

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrNotInvertible is returned when the inverse of an element does not exist,
// which for a prime modulus only happens for elements congruent to zero.
var ErrNotInvertible = errors.New("modular inverse isn't defined for this element")

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

// ExtendedGCD returns (g, s, t) such that a*s + b*t = g = gcd(a, b).
// b must be non-negative.
func ExtendedGCD(a, b *big.Int) (*big.Int, *big.Int, *big.Int) {
	if b.Sign() < 0 {
		panic(fmt.Sprintf("ExtendedGCD: negative divisor %v", b))
	}
	if b.Sign() == 0 {
		return new(big.Int).Set(a), big.NewInt(1), big.NewInt(0)
	}
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	g, s, t := ExtendedGCD(b, r)
	// t - s' * q, where s' is the coefficient of b in the recursive call.
	return g, t, s.Sub(s, new(big.Int).Mul(t, q))
}

// ModInverse returns the multiplicative inverse of k modulo prime.
// Negative values of k are normalized before inversion.
func ModInverse(k, prime *big.Int) (*big.Int, error) {
	if prime.Sign() <= 0 {
		return nil, fmt.Errorf("modulus must be positive, got %v", prime)
	}
	k2 := new(big.Int).Rem(k, prime)
	var g, r *big.Int
	if k2.Sign() < 0 {
		g, _, r = ExtendedGCD(prime, k2.Neg(k2))
		r.Neg(r)
	} else {
		g, _, r = ExtendedGCD(prime, k2)
	}
	if g.Cmp(one) != 0 {
		return nil, ErrNotInvertible
	}
	return NormalizeMod(r.Add(r, prime), prime), nil
}

// NormalizeMod returns a mod m in the range [0, m).
func NormalizeMod(a, m *big.Int) *big.Int {
	r := new(big.Int).Rem(a, m)
	if r.Cmp(zero) < 0 {
		r.Add(r, m)
	}
	return r
}
