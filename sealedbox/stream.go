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

// Streaming sealed files.
//
// A stream file (version 2) shares the sealed file header, followed by the
// ephemeral public key, the nonce, a 2 byte little-endian length and a sealed
// data key. The remaining bytes are the plaintext encrypted under the data key
// with AES-GCM-HKDF streaming AEAD, authenticated together with everything
// that precedes them.

package sealedbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/tink/go/streamingaead/subtle"
	"github.com/google/tink/go/subtle/random"
)

// StreamFileVersion marks a sealed file whose body is streamed.
const StreamFileVersion uint8 = 2

const (
	// Parameters for streaming AEAD, required by Tink's subtle API.
	aeadHKDFAlg            = "SHA256"
	aeadSegmentSize        = 1048576
	aeadFirstSegmentOffset = 0
)

// ErrOpenFailed is returned by OpenFile for any failure to authenticate or
// decrypt. The cause is not reported.
var ErrOpenFailed = errors.New("unable to open sealed file")

func newStreamCipher(dataKey []byte) (*subtle.AESGCMHKDF, error) {
	cipher, err := subtle.NewAESGCMHKDF(dataKey, aeadHKDFAlg, KeySize, aeadSegmentSize, aeadFirstSegmentOffset)
	if err != nil {
		return nil, fmt.Errorf("unable to create new cipher: %v", err)
	}
	return cipher, nil
}

// SealStream encrypts everything read from input to recipient and writes a
// stream file to output.
func SealStream(recipient Key, input io.Reader, output io.Writer) error {
	dataKey := random.GetRandomBytes(KeySize)
	sealedKey, err := Encrypt(recipient, dataKey)
	if err != nil {
		return err
	}

	var prefix bytes.Buffer
	if err := writeStreamPrefix(&prefix, sealedKey); err != nil {
		return err
	}
	if _, err := output.Write(prefix.Bytes()); err != nil {
		return fmt.Errorf("failed to write stream header: %v", err)
	}

	cipher, err := newStreamCipher(dataKey)
	if err != nil {
		return err
	}
	writer, err := cipher.NewEncryptingWriter(output, prefix.Bytes())
	if err != nil {
		return fmt.Errorf("unable to create an encrypt writer: %v", err)
	}
	if _, err := io.Copy(writer, input); err != nil {
		return fmt.Errorf("unable to write to the encrypt writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("error closing writer: %v", err)
	}
	return nil
}

func writeStreamPrefix(output io.Writer, sealedKey *EncryptedPayload) error {
	if len(sealedKey.Ciphertext) > 0xFFFF {
		return fmt.Errorf("sealed data key too long")
	}
	if err := writeHeaderVersion(output, sealedKey, StreamFileVersion); err != nil {
		return err
	}
	for _, b := range [][]byte{sealedKey.SenderPublicKey, sealedKey.Nonce} {
		if _, err := output.Write(b); err != nil {
			return err
		}
	}
	if err := binary.Write(output, binary.LittleEndian, uint16(len(sealedKey.Ciphertext))); err != nil {
		return err
	}
	_, err := output.Write(sealedKey.Ciphertext)
	return err
}

// readStreamKey reads the remainder of a stream prefix after header and
// returns the sealed data key.
func readStreamKey(input io.Reader, header *Header) (*EncryptedPayload, error) {
	payload, err := readKeyAndNonce(input, header)
	if err != nil {
		return nil, err
	}
	var keyLen uint16
	if err := binary.Read(input, binary.LittleEndian, &keyLen); err != nil {
		return nil, fmt.Errorf("failed to read sealed data key length: %v", err)
	}
	payload.Ciphertext = make([]byte, keyLen)
	if _, err := io.ReadFull(input, payload.Ciphertext); err != nil {
		return nil, fmt.Errorf("failed to read sealed data key: %v", err)
	}
	return payload, nil
}

// OpenFile reads a sealed file of either version from input and writes the
// plaintext to output. A stream file may leave a prefix of authenticated
// plaintext in output before a later segment fails.
func OpenFile(privateKey []byte, input io.Reader, output io.Writer) error {
	header, err := readHeader(input)
	if err != nil {
		return err
	}

	switch header.Version {
	case SealedFileVersion:
		payload, err := readBody(input, header)
		if err != nil {
			return err
		}
		ok, plaintext := Decrypt(payload, privateKey)
		if !ok {
			return ErrOpenFailed
		}
		if _, err := output.Write(plaintext); err != nil {
			return fmt.Errorf("failed to write plaintext: %v", err)
		}
		return nil

	case StreamFileVersion:
		sealedKey, err := readStreamKey(input, header)
		if err != nil {
			return err
		}
		ok, dataKey := Decrypt(sealedKey, privateKey)
		if !ok || len(dataKey) != KeySize {
			return ErrOpenFailed
		}

		var aad bytes.Buffer
		if err := writeStreamPrefix(&aad, sealedKey); err != nil {
			return err
		}
		cipher, err := newStreamCipher(dataKey)
		if err != nil {
			return err
		}
		reader, err := cipher.NewDecryptingReader(input, aad.Bytes())
		if err != nil {
			return ErrOpenFailed
		}
		if _, err := io.Copy(output, reader); err != nil {
			return ErrOpenFailed
		}
		return nil

	default:
		return fmt.Errorf("unsupported sealed file version %d", header.Version)
	}
}
