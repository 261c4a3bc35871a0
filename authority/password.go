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
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/google/tink/go/subtle/random"
	"github.com/hydra-project/hydra/constants"
	"golang.org/x/crypto/pbkdf2"
)

const phcAlgorithm = "pbkdf2-sha256"

// PasswordHasher derives PBKDF2-HMAC-SHA256 hashes rendered as PHC strings:
//
//	$pbkdf2-sha256$i=<rounds>,l=32$<base64 salt>$<base64 hash>
//
// A zero Rounds uses constants.DefaultPBKDF2Rounds.
type PasswordHasher struct {
	Rounds int
}

func (h PasswordHasher) rounds() int {
	if h.Rounds <= 0 {
		return constants.DefaultPBKDF2Rounds
	}
	return h.Rounds
}

// Hash hashes password under a fresh random salt and returns the PHC string
// together with the encoded salt needed to re-derive it.
func (h PasswordHasher) Hash(password string) (phc, salt string, err error) {
	salt = base64.RawStdEncoding.EncodeToString(random.GetRandomBytes(constants.SaltBytes))
	phc, err = h.HashWithSalt(password, salt)
	if err != nil {
		return "", "", err
	}
	return phc, salt, nil
}

// HashWithSalt re-derives the PHC string for password under an encoded salt
// previously returned by Hash.
func (h PasswordHasher) HashWithSalt(password, salt string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("invalid password salt encoding: %v", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("password salt must not be empty")
	}

	rounds := h.rounds()
	derived := pbkdf2.Key([]byte(password), raw, rounds, constants.KeyBytes, sha256.New)
	return fmt.Sprintf("$%s$i=%d,l=%d$%s$%s", phcAlgorithm, rounds, constants.KeyBytes, salt, base64.RawStdEncoding.EncodeToString(derived)), nil
}

// AnchorX maps a PHC string to a field element: its bytes read as a
// little-endian integer, reduced modulo prime.
func AnchorX(phc string, prime *big.Int) *big.Int {
	b := []byte(phc)
	le := make([]byte, len(b))
	for i, v := range b {
		le[len(b)-1-i] = v
	}
	x := new(big.Int).SetBytes(le)
	return x.Mod(x, prime)
}
