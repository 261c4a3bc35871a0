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

	"github.com/hydra-project/hydra/authority/shares"
)

// ShareIndex is the lowercase hex SHA-256 digest of userID ‖ password under
// which a ShareRecord is stored.
type ShareIndex string

// DeriveShareIndex computes the ShareIndex for a user and password.
func DeriveShareIndex(userID, password string) ShareIndex {
	return ShareIndex(hex.EncodeToString(shares.HashShare([]byte(userID + password))))
}

// Valid reports whether i has the shape of a derived index.
func (i ShareIndex) Valid() bool {
	if len(i) != 64 {
		return false
	}
	for _, c := range i {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

// short is a log-safe prefix of the index.
func (i ShareIndex) short() string {
	if len(i) > 8 {
		return string(i[:8])
	}
	return string(i)
}
