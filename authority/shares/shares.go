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

// Package shares contains functions for converting between field elements
// and key material, and for encoding backup shares as recovery codes.
package shares

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/hydra-project/hydra/authority/internal/secret_sharing/secrets"
	"github.com/hydra-project/hydra/constants"
	"github.com/hydra-project/hydra/sealedbox"
)

// checksumBytes is the number of SHA-256 bytes appended to a recovery code.
const checksumBytes = 4

// ErrMalformedBackup is returned when a recovery code cannot be parsed.
var ErrMalformedBackup = errors.New("malformed backup recovery code")

// KeyFromScalar returns the little-endian bytes of scalar right-padded with
// zeros to the fixed key width. Scalars wider than the key are rejected with
// sealedbox.ErrKeyWidth.
func KeyFromScalar(scalar *big.Int) (sealedbox.Key, error) {
	if scalar == nil || scalar.Sign() < 0 {
		return sealedbox.Key{}, fmt.Errorf("scalar must be non-negative")
	}
	return sealedbox.PadKeyBytes(reverse(scalar.Bytes()))
}

// ScalarFromKey interprets key as a little-endian unsigned integer.
func ScalarFromKey(key sealedbox.Key) *big.Int {
	return new(big.Int).SetBytes(reverse(key[:]))
}

func reverse(b []byte) []byte {
	r := make([]byte, len(b))
	for i, v := range b {
		r[len(b)-1-i] = v
	}
	return r
}

// HashShare performs a SHA-256 hash on the provided share.
func HashShare(share []byte) []byte {
	hash := sha256.Sum256(share)
	return hash[:]
}

// ValidateShare performs HashShare on the provided share, then returns whether
// the leading bytes of the result equal the provided checksum.
func ValidateShare(share []byte, checksum []byte) bool {
	if len(checksum) == 0 || len(checksum) > sha256.Size {
		return false
	}
	return bytes.Equal(HashShare(share)[:len(checksum)], checksum)
}

// EncodeBackupCode renders a backup share and its index as a printable
// recovery code of the form
//
//	hydra1.<base64url X>.<base64url Y>.<index>.<base64url checksum>
func EncodeBackupCode(share secrets.Share, index string) string {
	body := strings.Join([]string{
		constants.BackupCodePrefix,
		base64.RawURLEncoding.EncodeToString(share.X.Bytes()),
		base64.RawURLEncoding.EncodeToString(share.Y.Bytes()),
		index,
	}, ".")
	checksum := HashShare([]byte(body))[:checksumBytes]
	return body + "." + base64.RawURLEncoding.EncodeToString(checksum)
}

// DecodeBackupCode parses a recovery code produced by EncodeBackupCode.
func DecodeBackupCode(code string) (secrets.Share, string, error) {
	parts := strings.Split(strings.TrimSpace(code), ".")
	if len(parts) != 5 {
		return secrets.Share{}, "", fmt.Errorf("%w: want 5 dot-separated fields, got %d", ErrMalformedBackup, len(parts))
	}
	if parts[0] != constants.BackupCodePrefix {
		return secrets.Share{}, "", fmt.Errorf("%w: unknown prefix %q", ErrMalformedBackup, parts[0])
	}

	checksum, err := base64.RawURLEncoding.DecodeString(parts[4])
	if err != nil || len(checksum) != checksumBytes {
		return secrets.Share{}, "", fmt.Errorf("%w: bad checksum encoding", ErrMalformedBackup)
	}
	if !ValidateShare([]byte(strings.Join(parts[:4], ".")), checksum) {
		return secrets.Share{}, "", fmt.Errorf("%w: checksum mismatch", ErrMalformedBackup)
	}

	x, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return secrets.Share{}, "", fmt.Errorf("%w: x coordinate: %v", ErrMalformedBackup, err)
	}
	y, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return secrets.Share{}, "", fmt.Errorf("%w: y coordinate: %v", ErrMalformedBackup, err)
	}

	index := parts[3]
	if raw, err := hex.DecodeString(index); err != nil || len(raw) != sha256.Size || strings.ToLower(index) != index {
		return secrets.Share{}, "", fmt.Errorf("%w: index is not a lowercase SHA-256 hex digest", ErrMalformedBackup)
	}

	return secrets.Share{
		X: new(big.Int).SetBytes(x),
		Y: new(big.Int).SetBytes(y),
	}, index, nil
}
