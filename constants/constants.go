// Copyright 2021 Google LLC
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

// Package constants contains shared constants between the authority, the
// sealed box primitive and the command line tools.
package constants

// KeyBytes is the fixed width of X25519 private scalars and public points.
const KeyBytes = 32

// NonceBytes is the size of an XSalsa20-Poly1305 nonce.
const NonceBytes = 24

// RegistrationThreshold is the polynomial degree used when a credential is
// registered: any RegistrationThreshold+1 shares reconstruct the key.
const RegistrationThreshold = 1

// RegistrationShares is the number of points sampled per registration: the
// password-anchored point, the server-held point and the backup point.
const RegistrationShares = 3

// MinPrimeBits is the smallest field modulus accepted for an authority.
const MinPrimeBits = 512

// DefaultPBKDF2Rounds is the default PBKDF2-HMAC-SHA256 iteration count.
const DefaultPBKDF2Rounds = 100000

// MinPBKDF2Rounds is the smallest accepted PBKDF2 iteration count.
const MinPBKDF2Rounds = 1000

// SaltBytes is the number of random bytes in a password salt.
const SaltBytes = 16

// SealedMagic is the magic string opening every sealed file ("HYDRA-SEALBOX").
var SealedMagic = [13]byte{'H', 'Y', 'D', 'R', 'A', '-', 'S', 'E', 'A', 'L', 'B', 'O', 'X'}

// BackupCodePrefix tags textual backup shares with their encoding version.
const BackupCodePrefix = "hydra1"
