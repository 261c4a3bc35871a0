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
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hydra-project/hydra/authority/shares"
	"github.com/hydra-project/hydra/store"
	"google.golang.org/protobuf/encoding/protowire"
)

const usersPrefix = "users/"

// UserCreds describes a registered user.
type UserCreds struct {
	// PublicKey is the public key from the user's latest registration, empty
	// for an anonymous user that has not registered yet.
	PublicKey []byte
	// IsAnonymous is set for users created by CreateAnonymousUser.
	IsAnonymous bool
}

const (
	credsPublicKey   protowire.Number = 1
	credsIsAnonymous protowire.Number = 2
)

func (c *UserCreds) marshal() []byte {
	var b []byte
	if len(c.PublicKey) > 0 {
		b = protowire.AppendTag(b, credsPublicKey, protowire.BytesType)
		b = protowire.AppendBytes(b, c.PublicKey)
	}
	if c.IsAnonymous {
		b = protowire.AppendTag(b, credsIsAnonymous, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

func unmarshalUserCreds(b []byte) (*UserCreds, error) {
	c := &UserCreds{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == credsPublicKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: public key: %v", ErrMalformedRecord, protowire.ParseError(n))
			}
			c.PublicKey = append([]byte{}, v...)
			b = b[n:]
		case num == credsIsAnonymous && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: anonymous flag: %v", ErrMalformedRecord, protowire.ParseError(n))
			}
			c.IsAnonymous = protowire.DecodeBool(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return c, nil
}

// userRegistry keys credentials by the hex SHA-256 of the user ID so that
// arbitrary IDs map to fixed-length store keys.
type userRegistry struct {
	backend store.Backend
}

func userKey(userID string) string {
	return usersPrefix + hex.EncodeToString(shares.HashShare([]byte(userID)))
}

func (r *userRegistry) get(userID string) (*UserCreds, error) {
	b, err := r.backend.Get(userKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUser, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading user credentials: %w", err)
	}
	return unmarshalUserCreds(b)
}

func (r *userRegistry) put(userID string, creds *UserCreds) error {
	if err := r.backend.Put(userKey(userID), creds.marshal()); err != nil {
		return fmt.Errorf("error persisting user credentials: %w", err)
	}
	return nil
}
