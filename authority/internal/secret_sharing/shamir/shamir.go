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

// Package shamir encapsulates the logic needed to perform (t, n) [Shamir Secret Sharing]
// of a single field element over a prime field of arbitrary size. SSS is based on the
// Lagrange interpolation theorem, which states that `t + 1` points are enough to uniquely
// determine a polynomial of degree `t`.
//
// Unlike a textbook dealer, the caller chooses the x-coordinate of the first share (the
// anchor), which lets that point be re-derived from a password instead of being stored.
// The remaining x-coordinates and the polynomial coefficients are drawn from a 63-bit range.
//
// This scheme assumes a trusted dealer and a passive adversary. Reconstruct will not detect
// bogus or corrupted shares.
//
// [Shamir Secret Sharing]: https://web.mit.edu/6.857/OldStuff/Fall03/ref/Shamir-HowToShareAsecrets.pdf
package shamir

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/hydra-project/hydra/authority/internal/secret_sharing/modarith"
	"github.com/hydra-project/hydra/authority/internal/secret_sharing/secrets"
)

// ErrInsufficientShares is returned when fewer than Threshold+1 shares are supplied.
var ErrInsufficientShares = errors.New("not enough shares to reconstruct the secret")

// sampleBound is the exclusive upper bound for random coefficients and x-coordinates.
var sampleBound = big.NewInt(math.MaxInt64)

// ReconstructLimit returns the minimum number of shares required to reconstruct a secret
// split with md. For this scheme it is always `Threshold + 1`.
func ReconstructLimit(md secrets.Metadata) int {
	return md.Threshold + 1
}

// SplitSecret samples a random polynomial of degree metadata.Threshold whose constant term
// is secret and evaluates it at anchorX followed by metadata.NumShares-1 random points.
// Shares are returned in the same order as the x-coordinates: the anchored point first.
func SplitSecret(metadata secrets.Metadata, secret, anchorX *big.Int) (secrets.Split, error) {
	if err := validateSplitInput(metadata, secret, anchorX); err != nil {
		return secrets.Split{}, err
	}
	coefficients, points, err := samplePolynomial(metadata, secret, anchorX)
	if err != nil {
		return secrets.Split{}, err
	}
	shares := make([]secrets.Share, 0, len(points))
	for _, x := range points {
		shares = append(shares, secrets.Share{
			X: x,
			Y: EvaluatePolynomial(coefficients, x, metadata.Prime),
		})
	}
	return secrets.Split{
		Metadata: metadata,
		Shares:   shares,
	}, nil
}

// Reconstruct recovers the secret from the first Threshold+1 shares of splitSecret.
// Any further shares are ignored.
func Reconstruct(splitSecret secrets.Split) (*big.Int, error) {
	if err := validateReconstructInput(splitSecret); err != nil {
		return nil, err
	}
	limit := ReconstructLimit(splitSecret.Metadata)
	xs := make([]*big.Int, limit)
	ys := make([]*big.Int, limit)
	for i, s := range splitSecret.Shares[:limit] {
		xs[i] = s.X
		ys[i] = s.Y
	}
	return LagrangeInterpolationAtZero(xs, ys, splitSecret.Metadata.Prime)
}

// samplePolynomial fixes the first coefficient to the secret and draws the remaining
// `Threshold` coefficients and `NumShares - 1` x-coordinates at random. Collisions between
// x-coordinates are not checked.
func samplePolynomial(md secrets.Metadata, secret, anchorX *big.Int) ([]*big.Int, []*big.Int, error) {
	coefficients := []*big.Int{new(big.Int).Set(secret)}
	for i := 0; i < md.Threshold; i++ {
		c, err := sample()
		if err != nil {
			return nil, nil, err
		}
		coefficients = append(coefficients, c)
	}

	points := []*big.Int{modarith.NormalizeMod(anchorX, md.Prime)}
	for i := 1; i < md.NumShares; i++ {
		x, err := sample()
		if err != nil {
			return nil, nil, err
		}
		points = append(points, modarith.NormalizeMod(x, md.Prime))
	}
	return coefficients, points, nil
}

func sample() (*big.Int, error) {
	n, err := rand.Int(rand.Reader, sampleBound)
	if err != nil {
		return nil, fmt.Errorf("rand.Int failed: %v", err)
	}
	return n, nil
}

// EvaluatePolynomial evaluates a polynomial at `x` using Horner's rule, where
// `coefficients` take the form:
// f(x) = c[n-1] * x^(n-1) + c[n-2] * x^(n-2) + ... + c[1] * x^1 + c[0]
// and every step is reduced modulo prime.
func EvaluatePolynomial(coefficients []*big.Int, x, prime *big.Int) *big.Int {
	if len(coefficients) == 0 {
		return new(big.Int)
	}
	acc := new(big.Int).Set(coefficients[len(coefficients)-1])
	for i := len(coefficients) - 2; i >= 0; i-- {
		acc.Mul(acc, x)
		acc.Add(acc, coefficients[i])
		acc = modarith.NormalizeMod(acc, prime)
	}
	return modarith.NormalizeMod(acc, prime)
}

// LagrangeInterpolationAtZero recovers the constant term of the unique polynomial through
// the points (xs[i], ys[i]):
// ∑i y[i] * ( ∏j≠i x[j] ) * inverse( ∏j≠i ( x[j] - x[i] ) )   mod prime
// Every product and sum is reduced modulo prime. Repeated x-coordinates make the
// denominator zero and are reported as an error.
func LagrangeInterpolationAtZero(xs, ys []*big.Int, prime *big.Int) (*big.Int, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("mismatched point count: %d x values, %d y values", len(xs), len(ys))
	}
	acc := new(big.Int)
	for i := range ys {
		num := big.NewInt(1)
		den := big.NewInt(1)
		for j := range xs {
			if j == i {
				continue
			}
			num = modarith.NormalizeMod(num.Mul(num, xs[j]), prime)
			diff := new(big.Int).Sub(xs[j], xs[i])
			den = modarith.NormalizeMod(den.Mul(den, diff), prime)
		}
		inv, err := modarith.ModInverse(den, prime)
		if err != nil {
			return nil, fmt.Errorf("lagrange coefficient %d: %w", i, err)
		}
		term := new(big.Int).Mul(ys[i], num)
		term = modarith.NormalizeMod(term, prime)
		term.Mul(term, inv)
		acc.Add(acc, term)
		acc = modarith.NormalizeMod(acc, prime)
	}
	return acc, nil
}

func validateSplitInput(metadata secrets.Metadata, secret, anchorX *big.Int) error {
	if metadata.Prime == nil || metadata.Prime.Cmp(big.NewInt(2)) < 0 {
		return fmt.Errorf("prime must be set and larger than 1")
	}
	if metadata.Threshold < 1 {
		return fmt.Errorf("threshold must be at least 1")
	}
	if metadata.NumShares < ReconstructLimit(metadata) {
		return fmt.Errorf("numShares (%d) must be at least threshold+1 (%d)", metadata.NumShares, ReconstructLimit(metadata))
	}
	if secret == nil || secret.Sign() < 0 || secret.Cmp(metadata.Prime) >= 0 {
		return fmt.Errorf("secret must be a field element in [0, prime)")
	}
	if anchorX == nil {
		return fmt.Errorf("anchor x-coordinate must be set")
	}
	return nil
}

func validateReconstructInput(splitSecret secrets.Split) error {
	md := splitSecret.Metadata
	if md.Prime == nil || md.Prime.Sign() <= 0 {
		return fmt.Errorf("prime must be set")
	}
	if md.Threshold < 1 {
		return fmt.Errorf("threshold should be at least 1")
	}
	if len(splitSecret.Shares) < ReconstructLimit(md) {
		return fmt.Errorf("%w, need at least %d, got: %d", ErrInsufficientShares, ReconstructLimit(md), len(splitSecret.Shares))
	}
	for _, s := range splitSecret.Shares[:ReconstructLimit(md)] {
		if s.X == nil || s.Y == nil {
			return fmt.Errorf("share is missing a coordinate")
		}
	}
	return nil
}
