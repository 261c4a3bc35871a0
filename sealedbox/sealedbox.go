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

// Package sealedbox implements authenticated public-key encryption of opaque
// payloads with a fresh ephemeral sender keypair per message
// (X25519 + XSalsa20-Poly1305, as in NaCl's crypto_box).
//
// Decryption failures are undifferentiated: a wrong key, a
// truncated nonce and a tampered ciphertext all yield the same result.
package sealedbox

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/hydra-project/hydra/constants"
	"golang.org/x/crypto/nacl/box"
)

// NonceSize is the size of the random per-message nonce.
const NonceSize = constants.NonceBytes

// EncryptedPayload is everything a recipient needs, besides its private key,
// to open a sealed message.
type EncryptedPayload struct {
	Ciphertext      []byte
	Nonce           []byte
	SenderPublicKey []byte
}

// Encrypt seals plaintext to recipient using a newly generated ephemeral
// keypair and a fresh random nonce.
func Encrypt(recipient Key, plaintext []byte) (*EncryptedPayload, error) {
	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("unable to generate ephemeral keypair: %v", err)
	}

	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("unable to generate nonce: %v", err)
	}

	recipientKey := [KeySize]byte(recipient)
	ciphertext := box.Seal(nil, plaintext, &nonce, &recipientKey, ephemeralPriv)

	return &EncryptedPayload{
		Ciphertext:      ciphertext,
		Nonce:           nonce[:],
		SenderPublicKey: ephemeralPub[:],
	}, nil
}

// Decrypt opens payload with privateKey. It returns (false, nil) if the key is
// empty or oversized, the payload is malformed, or authentication fails.
func Decrypt(payload *EncryptedPayload, privateKey []byte) (bool, []byte) {
	if payload == nil || len(privateKey) == 0 {
		return false, nil
	}
	priv, err := PadKeyBytes(privateKey)
	if err != nil {
		return false, nil
	}
	pub, err := PadKeyBytes(payload.SenderPublicKey)
	// X25519 ignores the top bit of a point, so two encodings would open the
	// same box. Generated points never set it.
	if err != nil || pub[KeySize-1]&0x80 != 0 {
		return false, nil
	}
	if len(payload.Nonce) != NonceSize {
		return false, nil
	}
	var nonce [NonceSize]byte
	copy(nonce[:], payload.Nonce)

	privKey, pubKey := [KeySize]byte(priv), [KeySize]byte(pub)
	plaintext, ok := box.Open(nil, payload.Ciphertext, &nonce, &pubKey, &privKey)
	if !ok {
		return false, nil
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return true, plaintext
}
