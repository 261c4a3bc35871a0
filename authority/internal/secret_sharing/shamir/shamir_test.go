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

package shamir_test

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hydra-project/hydra/authority/internal/secret_sharing/modarith"
	"github.com/hydra-project/hydra/authority/internal/secret_sharing/secrets"
	"github.com/hydra-project/hydra/authority/internal/secret_sharing/shamir"
)

func mustPrime(t *testing.T, bits int) *big.Int {
	t.Helper()
	p, err := rand.Prime(rand.Reader, bits)
	if err != nil {
		t.Fatalf("rand.Prime(%d) err = %v", bits, err)
	}
	return p
}

func randomBelow(t *testing.T, max *big.Int) *big.Int {
	t.Helper()
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		t.Fatalf("rand.Int() err = %v", err)
	}
	return n
}

func createMetadata(prime *big.Int, threshold, numShares int) secrets.Metadata {
	return secrets.Metadata{
		Prime:     prime,
		NumShares: numShares,
		Threshold: threshold,
	}
}

func TestLagrangeInterpolationAtZeroStaticPoints(t *testing.T) {
	xs := []*big.Int{big.NewInt(1), big.NewInt(2)}
	ys := []*big.Int{big.NewInt(4), big.NewInt(5)}
	got, err := shamir.LagrangeInterpolationAtZero(xs, ys, big.NewInt(1613))
	if err != nil {
		t.Fatalf("LagrangeInterpolationAtZero() err = %v, want nil", err)
	}
	if got.Int64() != 3 {
		t.Errorf("LagrangeInterpolationAtZero([(1,4),(2,5)], 1613) = %v, want 3", got)
	}
}

func TestLagrangeInterpolationMismatchedPointsFails(t *testing.T) {
	xs := []*big.Int{big.NewInt(1), big.NewInt(2)}
	ys := []*big.Int{big.NewInt(4)}
	if _, err := shamir.LagrangeInterpolationAtZero(xs, ys, big.NewInt(1613)); err == nil {
		t.Errorf("LagrangeInterpolationAtZero() err = nil, want error")
	}
}

func TestLagrangeInterpolationRepeatedXFails(t *testing.T) {
	xs := []*big.Int{big.NewInt(7), big.NewInt(7)}
	ys := []*big.Int{big.NewInt(4), big.NewInt(5)}
	_, err := shamir.LagrangeInterpolationAtZero(xs, ys, big.NewInt(1613))
	if !errors.Is(err, modarith.ErrNotInvertible) {
		t.Errorf("LagrangeInterpolationAtZero() err = %v, want ErrNotInvertible", err)
	}
}

func TestEvaluatePolynomial(t *testing.T) {
	type testCase struct {
		tag    string
		coeffs []int64
		x      int64
		want   int64
	}
	p := big.NewInt(1613)
	for _, tc := range []testCase{
		{tag: "constant", coeffs: []int64{42}, x: 99, want: 42},
		{tag: "linear", coeffs: []int64{3, 1}, x: 2, want: 5},
		{tag: "quadratic", coeffs: []int64{1, 2, 3}, x: 10, want: 321},
		{tag: "wraps modulus", coeffs: []int64{0, 0, 1}, x: 1000, want: 1000000 % 1613},
	} {
		t.Run(tc.tag, func(t *testing.T) {
			coeffs := make([]*big.Int, len(tc.coeffs))
			for i, c := range tc.coeffs {
				coeffs[i] = big.NewInt(c)
			}
			if got := shamir.EvaluatePolynomial(coeffs, big.NewInt(tc.x), p); got.Int64() != tc.want {
				t.Errorf("EvaluatePolynomial() = %v, want %d", got, tc.want)
			}
		})
	}
}

func TestSplitReconstructWorks(t *testing.T) {
	prime := mustPrime(t, 256)
	secret := big.NewInt(1234)
	split, err := shamir.SplitSecret(createMetadata(prime, 1, 3), secret, big.NewInt(5))
	if err != nil {
		t.Fatalf("shamir.SplitSecret() err = %v, want nil", err)
	}
	if got, want := len(split.Shares), 3; got != want {
		t.Fatalf("len(split.Shares) = %d, want %d", got, want)
	}
	if got := split.Shares[0].X.Int64(); got != 5 {
		t.Errorf("anchor share x = %d, want 5", got)
	}
	bigIntComparer := cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })
	if diff := cmp.Diff(createMetadata(prime, 1, 3), split.Metadata, bigIntComparer); diff != "" {
		t.Errorf("split.Metadata mismatch (-want +got):\n%s", diff)
	}
	recon, err := shamir.Reconstruct(split)
	if err != nil {
		t.Fatal(err)
	}
	if recon.Cmp(secret) != 0 {
		t.Errorf("got %v, want %v", recon, secret)
	}
}

func TestEverySubsetReconstructsSameSecret(t *testing.T) {
	prime := mustPrime(t, 512)
	for i := 0; i < 20; i++ {
		secret := randomBelow(t, new(big.Int).Lsh(big.NewInt(1), 256))
		anchor := randomBelow(t, prime)
		md := createMetadata(prime, 1, 3)
		split, err := shamir.SplitSecret(md, secret, anchor)
		if err != nil {
			t.Fatal(err)
		}
		for _, pair := range [][2]int{{0, 1}, {1, 0}, {0, 2}, {1, 2}, {2, 1}} {
			subset := secrets.Split{
				Metadata: md,
				Shares:   []secrets.Share{split.Shares[pair[0]], split.Shares[pair[1]]},
			}
			recon, err := shamir.Reconstruct(subset)
			if err != nil {
				t.Fatalf("Reconstruct(%v) err = %v", pair, err)
			}
			if recon.Cmp(secret) != 0 {
				t.Errorf("Reconstruct(%v) = %v, want %v", pair, recon, secret)
			}
		}
	}
}

func TestSplitReconstructHigherThreshold(t *testing.T) {
	prime := mustPrime(t, 512)
	secret := randomBelow(t, prime)
	split, err := shamir.SplitSecret(createMetadata(prime, 4, 8), secret, big.NewInt(77))
	if err != nil {
		t.Fatal(err)
	}
	// Drop the first three shares; the remaining five still exceed the limit.
	split.Shares = split.Shares[3:]
	recon, err := shamir.Reconstruct(split)
	if err != nil {
		t.Fatal(err)
	}
	if recon.Cmp(secret) != 0 {
		t.Errorf("got %v, want %v", recon, secret)
	}
}

func TestReconstructWithAlteredValueBeforeLimitFails(t *testing.T) {
	prime := mustPrime(t, 256)
	secret := big.NewInt(987654321)
	split, err := shamir.SplitSecret(createMetadata(prime, 1, 3), secret, big.NewInt(11))
	if err != nil {
		t.Fatal(err)
	}
	split.Shares[0].Y = new(big.Int).Add(split.Shares[0].Y, big.NewInt(1))
	recon, err := shamir.Reconstruct(split)
	if err != nil {
		t.Fatal(err)
	}
	if recon.Cmp(secret) == 0 {
		t.Errorf("reconstructing altered value should not return the secret")
	}
}

func TestReconstructIgnoresSharesAfterLimit(t *testing.T) {
	prime := mustPrime(t, 256)
	secret := big.NewInt(987654321)
	split, err := shamir.SplitSecret(createMetadata(prime, 1, 3), secret, big.NewInt(11))
	if err != nil {
		t.Fatal(err)
	}
	split.Shares[2] = secrets.Share{X: big.NewInt(1), Y: big.NewInt(1)}
	recon, err := shamir.Reconstruct(split)
	if err != nil {
		t.Fatal(err)
	}
	if recon.Cmp(secret) != 0 {
		t.Errorf("got %v, want %v", recon, secret)
	}
}

func TestWithLessSharesThanLimitFails(t *testing.T) {
	prime := mustPrime(t, 256)
	split, err := shamir.SplitSecret(createMetadata(prime, 1, 3), big.NewInt(1), big.NewInt(2))
	if err != nil {
		t.Fatal(err)
	}
	split.Shares = split.Shares[:1]
	for i := 0; i < 3; i++ {
		if _, err := shamir.Reconstruct(split); !errors.Is(err, shamir.ErrInsufficientShares) {
			t.Fatalf("Reconstruct() err = %v, want ErrInsufficientShares", err)
		}
	}
}

func TestSplitDoesNotMutateInputs(t *testing.T) {
	prime := mustPrime(t, 256)
	secret := big.NewInt(31337)
	anchor := new(big.Int).Add(prime, big.NewInt(9))
	if _, err := shamir.SplitSecret(createMetadata(prime, 1, 3), secret, anchor); err != nil {
		t.Fatal(err)
	}
	if secret.Cmp(big.NewInt(31337)) != 0 {
		t.Errorf("secret mutated to %v", secret)
	}
	if want := new(big.Int).Add(prime, big.NewInt(9)); anchor.Cmp(want) != 0 {
		t.Errorf("anchor mutated to %v, want %v", anchor, want)
	}
}

func TestAnchorIsReducedModPrime(t *testing.T) {
	prime := big.NewInt(1613)
	split, err := shamir.SplitSecret(createMetadata(prime, 1, 3), big.NewInt(3), big.NewInt(1613+20))
	if err != nil {
		t.Fatal(err)
	}
	if got := split.Shares[0].X.Int64(); got != 20 {
		t.Errorf("anchor x = %d, want 20", got)
	}
	for i, s := range split.Shares {
		if s.X.Cmp(prime) >= 0 || s.Y.Cmp(prime) >= 0 {
			t.Errorf("share %d = (%v, %v) not reduced mod %v", i, s.X, s.Y, prime)
		}
	}
}

func TestInvalidSplitInputFails(t *testing.T) {
	prime := big.NewInt(1613)
	type testCase struct {
		tag    string
		md     secrets.Metadata
		secret *big.Int
		anchor *big.Int
	}
	for _, tc := range []testCase{
		{tag: "nil prime", md: createMetadata(nil, 1, 3), secret: big.NewInt(1), anchor: big.NewInt(1)},
		{tag: "zero threshold", md: createMetadata(prime, 0, 3), secret: big.NewInt(1), anchor: big.NewInt(1)},
		{tag: "too few shares", md: createMetadata(prime, 2, 2), secret: big.NewInt(1), anchor: big.NewInt(1)},
		{tag: "secret out of field", md: createMetadata(prime, 1, 3), secret: big.NewInt(1613), anchor: big.NewInt(1)},
		{tag: "negative secret", md: createMetadata(prime, 1, 3), secret: big.NewInt(-1), anchor: big.NewInt(1)},
		{tag: "nil anchor", md: createMetadata(prime, 1, 3), secret: big.NewInt(1), anchor: nil},
	} {
		t.Run(tc.tag, func(t *testing.T) {
			if _, err := shamir.SplitSecret(tc.md, tc.secret, tc.anchor); err == nil {
				t.Errorf("SplitSecret() err = nil, want error")
			}
		})
	}
}
