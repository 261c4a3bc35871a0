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

// Utility functions for reading and writing sealed files.
//
// The v1 file format of a sealed file is a concatenation of a 16 byte
// header, the sender's ephemeral public key, the nonce, and the raw
// ciphertext bytes, with no padding.
//
// Header (16 bytes):
// - "HYDRA-SEALBOX" magic string (13 bytes)
// - file format version (1 byte)
// - nonce length (1 byte)
// - public key length (1 byte)
//
// Body:
// - ephemeral public key, nonce
// - ciphertext, extending to the end of the file

package sealedbox

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hydra-project/hydra/constants"
)

// SealedFileVersion marks a sealed file holding a single sealed box.
const SealedFileVersion uint8 = 1

// Header is the file header for the sealed file format.
type Header struct {
	Magic        [13]byte // len(constants.SealedMagic) == 13
	Version      uint8    // 1 byte
	NonceLen     uint8    // 1 byte
	PublicKeyLen uint8    // 1 byte
}

// Reads a sealed file header from `input`.
func readHeader(input io.Reader) (*Header, error) {
	var header Header
	if err := binary.Read(input, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read sealed file header: %v", err)
	}

	if !bytes.Equal(header.Magic[:], constants.SealedMagic[:]) {
		return nil, fmt.Errorf("data is not a known sealed file format")
	}

	if header.Version != SealedFileVersion && header.Version != StreamFileVersion {
		return nil, fmt.Errorf("unsupported sealed file version %d", header.Version)
	}

	return &header, nil
}

// Writes a v1 sealed file header for payload to `output`.
func writeHeader(output io.Writer, payload *EncryptedPayload) error {
	return writeHeaderVersion(output, payload, SealedFileVersion)
}

func writeHeaderVersion(output io.Writer, payload *EncryptedPayload, version uint8) error {
	if len(payload.Nonce) > 0xFF || len(payload.SenderPublicKey) > 0xFF {
		return fmt.Errorf("payload framing fields too long")
	}

	header := Header{
		Magic:        constants.SealedMagic,
		Version:      version,
		NonceLen:     uint8(len(payload.Nonce)),
		PublicKeyLen: uint8(len(payload.SenderPublicKey)),
	}

	return binary.Write(output, binary.LittleEndian, header)
}

// WriteSealed writes payload to output in the sealed file format.
func WriteSealed(output io.Writer, payload *EncryptedPayload) error {
	if err := writeHeader(output, payload); err != nil {
		return err
	}
	for _, b := range [][]byte{payload.SenderPublicKey, payload.Nonce, payload.Ciphertext} {
		if _, err := output.Write(b); err != nil {
			return fmt.Errorf("failed to write sealed payload: %v", err)
		}
	}
	return nil
}

// ReadSealed parses a v1 sealed file from input.
func ReadSealed(input io.Reader) (*EncryptedPayload, error) {
	header, err := readHeader(input)
	if err != nil {
		return nil, err
	}
	if header.Version != SealedFileVersion {
		return nil, fmt.Errorf("sealed file version %d is a stream, use OpenFile", header.Version)
	}
	return readBody(input, header)
}

func readKeyAndNonce(input io.Reader, header *Header) (*EncryptedPayload, error) {
	pub := make([]byte, header.PublicKeyLen)
	if _, err := io.ReadFull(input, pub); err != nil {
		return nil, fmt.Errorf("failed to read sender public key: %v", err)
	}

	nonce := make([]byte, header.NonceLen)
	if _, err := io.ReadFull(input, nonce); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %v", err)
	}

	return &EncryptedPayload{Nonce: nonce, SenderPublicKey: pub}, nil
}

func readBody(input io.Reader, header *Header) (*EncryptedPayload, error) {
	payload, err := readKeyAndNonce(input, header)
	if err != nil {
		return nil, err
	}

	payload.Ciphertext, err = io.ReadAll(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read ciphertext: %v", err)
	}
	return payload, nil
}
