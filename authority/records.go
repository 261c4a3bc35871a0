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

package authority

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/hydra-project/hydra/store"
	"google.golang.org/protobuf/encoding/protowire"
)

const sharesPrefix = "shares/"

// ShareRecord is the server-held half of a registration. It is written once
// and never mutated.
type ShareRecord struct {
	// Share is the first random point of the registration polynomial.
	Share Share
	// AnchorValue is the y-coordinate of the password-anchored point.
	AnchorValue *big.Int
	// PasswordSalt is the encoded salt fed to the password hasher.
	PasswordSalt string
	// PasswordRounds is the PBKDF2 iteration count used at registration.
	PasswordRounds int
	// PublicKey is the public half of the registered keypair.
	PublicKey []byte
}

// Record wire fields.
const (
	recordShareX      protowire.Number = 1
	recordShareY      protowire.Number = 2
	recordAnchorValue protowire.Number = 3
	recordSalt        protowire.Number = 4
	recordPublicKey   protowire.Number = 5
	recordRounds      protowire.Number = 6
)

// Marshal encodes the record in protobuf wire format.
func (r *ShareRecord) Marshal() ([]byte, error) {
	if r.Share.X == nil || r.Share.Y == nil || r.AnchorValue == nil {
		return nil, fmt.Errorf("share record is missing a field element")
	}
	var b []byte
	b = protowire.AppendTag(b, recordShareX, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Share.X.Bytes())
	b = protowire.AppendTag(b, recordShareY, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Share.Y.Bytes())
	b = protowire.AppendTag(b, recordAnchorValue, protowire.BytesType)
	b = protowire.AppendBytes(b, r.AnchorValue.Bytes())
	b = protowire.AppendTag(b, recordSalt, protowire.BytesType)
	b = protowire.AppendString(b, r.PasswordSalt)
	if len(r.PublicKey) > 0 {
		b = protowire.AppendTag(b, recordPublicKey, protowire.BytesType)
		b = protowire.AppendBytes(b, r.PublicKey)
	}
	if r.PasswordRounds > 0 {
		b = protowire.AppendTag(b, recordRounds, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.PasswordRounds))
	}
	return b, nil
}

// UnmarshalShareRecord decodes a record written by Marshal. Unknown fields
// are skipped.
func UnmarshalShareRecord(b []byte) (*ShareRecord, error) {
	r := &ShareRecord{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && (num == recordShareX || num == recordShareY || num == recordAnchorValue):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, num, protowire.ParseError(n))
			}
			x := new(big.Int).SetBytes(v)
			switch num {
			case recordShareX:
				r.Share.X = x
			case recordShareY:
				r.Share.Y = x
			case recordAnchorValue:
				r.AnchorValue = x
			}
			b = b[n:]
		case typ == protowire.BytesType && num == recordSalt:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: salt: %v", ErrMalformedRecord, protowire.ParseError(n))
			}
			r.PasswordSalt = v
			b = b[n:]
		case typ == protowire.BytesType && num == recordPublicKey:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: public key: %v", ErrMalformedRecord, protowire.ParseError(n))
			}
			r.PublicKey = append([]byte{}, v...)
			b = b[n:]
		case typ == protowire.VarintType && num == recordRounds:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: rounds: %v", ErrMalformedRecord, protowire.ParseError(n))
			}
			r.PasswordRounds = int(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if r.Share.X == nil || r.Share.Y == nil || r.AnchorValue == nil {
		return nil, fmt.Errorf("%w: missing field element", ErrMalformedRecord)
	}
	return r, nil
}

// ShareStore persists ShareRecords by index.
type ShareStore interface {
	Put(index ShareIndex, record *ShareRecord) error
	Get(index ShareIndex) (*ShareRecord, error)
	Delete(index ShareIndex) error
}

type backendShareStore struct {
	backend store.Backend
}

// NewShareStore returns a ShareStore keeping records under "shares/<index>"
// in backend.
func NewShareStore(backend store.Backend) ShareStore {
	return &backendShareStore{backend: backend}
}

func (s *backendShareStore) Put(index ShareIndex, record *ShareRecord) error {
	if !index.Valid() {
		return fmt.Errorf("invalid share index %q", index)
	}
	b, err := record.Marshal()
	if err != nil {
		return err
	}
	if err := s.backend.Put(sharesPrefix+string(index), b); err != nil {
		return fmt.Errorf("error persisting share record: %w", err)
	}
	return nil
}

// Get returns store.ErrNotFound for unknown or malformed indexes.
func (s *backendShareStore) Get(index ShareIndex) (*ShareRecord, error) {
	if !index.Valid() {
		return nil, store.ErrNotFound
	}
	b, err := s.backend.Get(sharesPrefix + string(index))
	if errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("error reading share record: %w", err)
	}
	return UnmarshalShareRecord(b)
}

func (s *backendShareStore) Delete(index ShareIndex) error {
	if !index.Valid() {
		return store.ErrNotFound
	}
	err := s.backend.Delete(sharesPrefix + string(index))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("error deleting share record: %w", err)
	}
	return err
}
