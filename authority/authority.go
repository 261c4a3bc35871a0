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

// Package authority issues X25519 keypairs and recovers their private keys
// from two of three Shamir shares: one anchored at a password-derived
// x-coordinate, one held in the store and one returned to the caller as a
// backup.
package authority

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"sync"

	glog "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/hydra-project/hydra/authority/internal/secret_sharing/secrets"
	"github.com/hydra-project/hydra/authority/internal/secret_sharing/shamir"
	"github.com/hydra-project/hydra/authority/shares"
	"github.com/hydra-project/hydra/constants"
	"github.com/hydra-project/hydra/sealedbox"
	"github.com/hydra-project/hydra/store"
)

// primeKey is the store key holding the big-endian field prime.
const primeKey = "authority/prime"

// primalityRounds is the Miller-Rabin round count used when loading a prime.
const primalityRounds = 20

// Share is one (x, y) point of a registration polynomial.
type Share = secrets.Share

// Authority owns a field prime and the persisted share records.
type Authority struct {
	mu     sync.RWMutex
	prime  *big.Int
	shares ShareStore
	users  *userRegistry
	hasher PasswordHasher
}

type options struct {
	primeBits    int
	pbkdf2Rounds int
}

// Option configures New and Open.
type Option func(*options)

// WithPrimeBits sets the size of the prime generated by New. Values below
// constants.MinPrimeBits are rejected.
func WithPrimeBits(bits int) Option {
	return func(o *options) { o.primeBits = bits }
}

// WithPBKDF2Rounds sets the iteration count for new registrations. Values
// below constants.MinPBKDF2Rounds are rejected.
func WithPBKDF2Rounds(rounds int) Option {
	return func(o *options) { o.pbkdf2Rounds = rounds }
}

func buildOptions(opts []Option) (*options, error) {
	o := &options{
		primeBits:    constants.MinPrimeBits,
		pbkdf2Rounds: constants.DefaultPBKDF2Rounds,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.primeBits < constants.MinPrimeBits {
		return nil, fmt.Errorf("prime must have at least %d bits, got %d", constants.MinPrimeBits, o.primeBits)
	}
	if o.pbkdf2Rounds < constants.MinPBKDF2Rounds {
		return nil, fmt.Errorf("PBKDF2 rounds must be at least %d, got %d", constants.MinPBKDF2Rounds, o.pbkdf2Rounds)
	}
	return o, nil
}

func newAuthority(backend store.Backend, prime *big.Int, o *options) *Authority {
	return &Authority{
		prime:  prime,
		shares: NewShareStore(backend),
		users:  &userRegistry{backend: backend},
		hasher: PasswordHasher{Rounds: o.pbkdf2Rounds},
	}
}

// New generates a fresh prime, persists it in backend and returns an
// Authority using it. It fails with ErrAlreadyInitialized if backend already
// holds a prime.
func New(backend store.Backend, opts ...Option) (*Authority, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	exists, err := backend.Exists(primeKey)
	if err != nil {
		return nil, fmt.Errorf("error checking for an existing prime: %w", err)
	}
	if exists {
		return nil, ErrAlreadyInitialized
	}

	prime, err := rand.Prime(rand.Reader, o.primeBits)
	if err != nil {
		return nil, fmt.Errorf("error generating prime: %v", err)
	}
	if err := backend.Put(primeKey, prime.Bytes()); err != nil {
		return nil, fmt.Errorf("error persisting prime: %w", err)
	}

	glog.Infof("Initialized authority with a %d-bit prime", prime.BitLen())
	return newAuthority(backend, prime, o), nil
}

// Open returns an Authority over the prime and records already in backend.
func Open(backend store.Backend, opts ...Option) (*Authority, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	raw, err := backend.Get(primeKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("error reading prime: %w", err)
	}

	prime := new(big.Int).SetBytes(raw)
	if prime.BitLen() < constants.MinPrimeBits || !prime.ProbablyPrime(primalityRounds) {
		return nil, fmt.Errorf("%w: stored modulus is not a %d-bit prime", ErrMalformedRecord, constants.MinPrimeBits)
	}

	glog.V(1).Infof("Opened authority with a %d-bit prime", prime.BitLen())
	return newAuthority(backend, prime, o), nil
}

// Prime returns a copy of the field prime.
func (a *Authority) Prime() *big.Int {
	return new(big.Int).Set(a.prime)
}

func (a *Authority) metadata() secrets.Metadata {
	return secrets.Metadata{
		Prime:     a.prime,
		NumShares: constants.RegistrationShares,
		Threshold: constants.RegistrationThreshold,
	}
}

// Register generates a keypair for userID and splits its private scalar into
// three shares. The password-anchored point is reduced to its y-coordinate,
// the first random point is stored under the returned index and the second
// random point is returned as the backup.
func (a *Authority) Register(userID, password string) (BackupShare, ShareIndex, error) {
	if userID == "" {
		return BackupShare{}, "", ErrEmptyUserID
	}

	priv, pub, err := sealedbox.GenerateKey()
	if err != nil {
		return BackupShare{}, "", err
	}

	phc, salt, err := a.hasher.Hash(password)
	if err != nil {
		return BackupShare{}, "", fmt.Errorf("error hashing password: %v", err)
	}

	split, err := shamir.SplitSecret(a.metadata(), shares.ScalarFromKey(priv), AnchorX(phc, a.prime))
	if err != nil {
		return BackupShare{}, "", fmt.Errorf("error splitting private key: %v", err)
	}
	anchored, stored, backup := split.Shares[0], split.Shares[1], split.Shares[2]

	index := DeriveShareIndex(userID, password)
	record := &ShareRecord{
		Share:          stored,
		AnchorValue:    anchored.Y,
		PasswordSalt:   salt,
		PasswordRounds: a.hasher.rounds(),
		PublicKey:      pub[:],
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	creds, err := a.users.get(userID)
	if errors.Is(err, ErrUnknownUser) {
		creds = &UserCreds{}
	} else if err != nil {
		return BackupShare{}, "", err
	}

	previous, err := a.shares.Get(index)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrMalformedRecord) {
		previous = nil
	} else if err != nil {
		return BackupShare{}, "", err
	}

	if err := a.shares.Put(index, record); err != nil {
		return BackupShare{}, "", err
	}
	creds.PublicKey = pub[:]
	if err := a.users.put(userID, creds); err != nil {
		a.restoreShare(index, previous)
		return BackupShare{}, "", err
	}

	glog.V(1).Infof("Registered share record %s", index.short())
	return BackupShare{Share: backup, Index: index}, index, nil
}

// restoreShare puts back the record that held index before a failed
// registration, or removes the new one if there was none.
func (a *Authority) restoreShare(index ShareIndex, previous *ShareRecord) {
	var err error
	if previous != nil {
		err = a.shares.Put(index, previous)
	} else {
		err = a.shares.Delete(index)
	}
	if err != nil {
		glog.Errorf("Failed to roll back share record %s: %v", index.short(), err)
	}
}

// Recover reconstructs the private key registered for userID. With a backup
// it pairs the backup share with the record stored under backup.Index;
// otherwise it re-derives the password-anchored point from password. The
// boolean is false when fewer than two shares could be assembled or the
// reconstruction does not match the registered public key.
func (a *Authority) Recover(userID string, password *string, backup *BackupShare) (sealedbox.Key, bool) {
	if password == nil && backup == nil {
		glog.Warningf("Recover: %v", ErrMissingCredential)
		return sealedbox.Key{}, false
	}

	var collected []Share
	var record *ShareRecord

	if backup != nil {
		collected = append(collected, backup.Share.Clone())
		if record = a.lookup(backup.Index); record != nil {
			collected = append(collected, record.Share.Clone())
		}
	} else {
		index := DeriveShareIndex(userID, *password)
		if record = a.lookup(index); record != nil {
			hasher := a.hasher
			if record.PasswordRounds > 0 {
				hasher.Rounds = record.PasswordRounds
			}
			phc, err := hasher.HashWithSalt(*password, record.PasswordSalt)
			if err != nil {
				glog.Warningf("Error re-deriving password hash for %s: %v", index.short(), err)
			} else {
				collected = append(collected,
					Share{X: AnchorX(phc, a.prime), Y: new(big.Int).Set(record.AnchorValue)},
					record.Share.Clone())
			}
		}
	}

	return a.reconstruct(collected, record)
}

// RecoverWithPassword is Recover along the password path.
func (a *Authority) RecoverWithPassword(userID, password string) (sealedbox.Key, bool) {
	return a.Recover(userID, &password, nil)
}

// RecoverWithBackup is Recover along the backup path.
func (a *Authority) RecoverWithBackup(backup BackupShare) (sealedbox.Key, bool) {
	return a.Recover("", nil, &backup)
}

// lookup holds the read lock only for the store access. Records are never
// mutated once written, so hashing and reconstruction run unlocked.
func (a *Authority) lookup(index ShareIndex) *ShareRecord {
	a.mu.RLock()
	record, err := a.shares.Get(index)
	a.mu.RUnlock()
	if errors.Is(err, store.ErrNotFound) {
		glog.V(1).Infof("No share record for %s", index.short())
		return nil
	}
	if err != nil {
		glog.Warningf("Error looking up share record %s: %v", index.short(), err)
		return nil
	}
	return record
}

func (a *Authority) reconstruct(collected []Share, record *ShareRecord) (sealedbox.Key, bool) {
	secret, err := shamir.Reconstruct(secrets.Split{
		Metadata: a.metadata(),
		Shares:   collected,
	})
	if err != nil {
		glog.V(1).Infof("Reconstruction failed: %v", err)
		return sealedbox.Key{}, false
	}

	key, err := shares.KeyFromScalar(secret)
	if err != nil {
		glog.V(1).Infof("Reconstructed scalar is not a key: %v", err)
		return sealedbox.Key{}, false
	}

	if record != nil && len(record.PublicKey) > 0 {
		pub, err := sealedbox.PublicKey(key)
		if err != nil || subtle.ConstantTimeCompare(pub[:], record.PublicKey) != 1 {
			glog.V(1).Infof("Reconstructed key does not match the registered public key")
			return sealedbox.Key{}, false
		}
	}
	return key, true
}

// CreateAnonymousUser registers a fresh random user ID marked anonymous.
// The caller completes registration with Register.
func (a *Authority) CreateAnonymousUser() (string, error) {
	userID := uuid.NewString()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.users.put(userID, &UserCreds{IsAnonymous: true}); err != nil {
		return "", err
	}
	glog.V(2).Infof("Created anonymous user")
	return userID, nil
}

// User returns the stored credentials for userID, or ErrUnknownUser.
func (a *Authority) User(userID string) (*UserCreds, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.users.get(userID)
}

// PublicKey returns the public key from userID's latest registration.
func (a *Authority) PublicKey(userID string) (sealedbox.Key, error) {
	creds, err := a.User(userID)
	if err != nil {
		return sealedbox.Key{}, err
	}
	if len(creds.PublicKey) == 0 {
		return sealedbox.Key{}, fmt.Errorf("%w: %q has not registered a key", ErrUnknownUser, userID)
	}
	return sealedbox.PadKeyBytes(creds.PublicKey)
}
