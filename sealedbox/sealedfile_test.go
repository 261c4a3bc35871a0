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

package sealedbox

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hydra-project/hydra/constants"
)

func testPayload() *EncryptedPayload {
	return &EncryptedPayload{
		Ciphertext:      []byte("not really a ciphertext"),
		Nonce:           bytes.Repeat([]byte{0xAA}, NonceSize),
		SenderPublicKey: bytes.Repeat([]byte{0x11}, KeySize),
	}
}

func TestReadWriteHeaderSucceeds(t *testing.T) {
	var file bytes.Buffer

	if err := writeHeader(&file, testPayload()); err != nil {
		t.Fatalf("writeHeader(file, payload) returned error: %v", err)
	}

	header, err := readHeader(&file)
	if err != nil {
		t.Fatalf("readHeader(file) returned error: %v", err)
	}

	want := &Header{
		Magic:        constants.SealedMagic,
		Version:      SealedFileVersion,
		NonceLen:     NonceSize,
		PublicKeyLen: KeySize,
	}
	if diff := cmp.Diff(want, header); diff != "" {
		t.Errorf("readHeader(file) returned unexpected diff (-want +got):\n%s", diff)
	}
}

func TestWriteHeaderExplicitByteOrder(t *testing.T) {
	var header bytes.Buffer

	if err := writeHeader(&header, testPayload()); err != nil {
		t.Fatalf("writeHeader(header, payload) returned error: %v", err)
	}

	var want []byte
	want = append(want, constants.SealedMagic[:]...)
	want = append(want, 0x01) // version number
	want = append(want, 0x18) // nonce length
	want = append(want, 0x20) // public key length

	if !bytes.Equal(header.Bytes(), want) {
		t.Fatalf("writeHeader(header, payload) produced unexpected header: got %v, want %v", header.Bytes(), want)
	}
}

func TestReadHeaderAdvances16Bytes(t *testing.T) {
	var file bytes.Buffer

	if err := writeHeader(&file, testPayload()); err != nil {
		t.Fatalf("writeHeader(file, payload) returned error: %v", err)
	}

	// Write more to the buffer so the reader can potentially read further.
	file.Write([]byte("I am a file hungry for more and more data."))

	reader := bytes.NewReader(file.Bytes())

	if _, err := readHeader(reader); err != nil {
		t.Fatalf("readHeader(file) returned error: %v", err)
	}

	pos, err := reader.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("reader.Seek(0, io.SeekCurrent) returned error: %v", err)
	}

	if pos != 16 {
		t.Fatalf("readHeader(file) got %d bytes, want 16 bytes", pos)
	}
}

func TestReadHeaderFailsBadMagicString(t *testing.T) {
	var file bytes.Buffer

	if err := writeHeader(&file, testPayload()); err != nil {
		t.Fatalf("writeHeader(file, payload) returned error: %v", err)
	}

	// Replace the first byte of the magic string with a null byte.
	header := file.Bytes()
	header[0] = 0x00

	if _, err := readHeader(bytes.NewBuffer(header)); err == nil {
		t.Fatalf("readHeader(file) = %v, want bad magic string error", err)
	}
}

func TestReadHeaderFailsUnknownVersion(t *testing.T) {
	var file bytes.Buffer

	if err := writeHeader(&file, testPayload()); err != nil {
		t.Fatalf("writeHeader(file, payload) returned error: %v", err)
	}

	header := file.Bytes()
	header[len(constants.SealedMagic)] = 0x03

	if _, err := readHeader(bytes.NewBuffer(header)); err == nil {
		t.Fatalf("readHeader(file) = %v, want unsupported version error", err)
	}
}

func TestWriteReadSealedRoundTrip(t *testing.T) {
	priv, pub, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	plaintext := []byte("sealed to disk and back")

	payload, err := Encrypt(pub, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	var file bytes.Buffer
	if err := WriteSealed(&file, payload); err != nil {
		t.Fatalf("WriteSealed() returned error: %v", err)
	}

	got, err := ReadSealed(&file)
	if err != nil {
		t.Fatalf("ReadSealed() returned error: %v", err)
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Errorf("ReadSealed() returned unexpected diff (-want +got):\n%s", diff)
	}

	ok, opened := Decrypt(got, priv[:])
	if !ok || !bytes.Equal(opened, plaintext) {
		t.Errorf("Decrypt(ReadSealed()) = (%v, %q), want (true, %q)", ok, opened, plaintext)
	}
}

func TestReadSealedFailsTruncatedBody(t *testing.T) {
	var file bytes.Buffer
	if err := WriteSealed(&file, testPayload()); err != nil {
		t.Fatal(err)
	}

	// Cut inside the nonce.
	truncated := file.Bytes()[:16+KeySize+NonceSize/2]
	if _, err := ReadSealed(bytes.NewReader(truncated)); err == nil {
		t.Errorf("ReadSealed(truncated) err = nil, want error")
	}
}
