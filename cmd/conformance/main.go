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

// Binary to run the authority and sealed box self-checks against an
// in-memory store.
package main

import (
	"bytes"
	"fmt"
	"os"

	"flag"
	"github.com/alecthomas/colour"
	"github.com/hydra-project/hydra/authority"
	"github.com/hydra-project/hydra/authority/testutil"
	"github.com/hydra-project/hydra/sealedbox"
)

var (
	registrations = flag.Int("registrations", 20, "Number of register/recover round trips to run.")
)

type conformanceTest struct {
	testName string
	run      func(a *authority.Authority) error
}

func roundTrip(a *authority.Authority) error {
	for i := 0; i < *registrations; i++ {
		uid := fmt.Sprintf("user-%d@example.com", i)
		pw := fmt.Sprintf("password-%d", i)
		if _, _, err := a.Register(uid, pw); err != nil {
			return err
		}
		key, ok := a.RecoverWithPassword(uid, pw)
		if !ok {
			return fmt.Errorf("recovery failed for %s", uid)
		}
		pub, err := a.PublicKey(uid)
		if err != nil {
			return err
		}
		derived, err := sealedbox.PublicKey(key)
		if err != nil {
			return err
		}
		if derived != pub {
			return fmt.Errorf("recovered key for %s does not match its public key", uid)
		}
	}
	return nil
}

func subsetInvariance(a *authority.Authority) error {
	backup, _, err := a.Register("subset@example.com", "pw")
	if err != nil {
		return err
	}
	fromPassword, ok := a.RecoverWithPassword("subset@example.com", "pw")
	if !ok {
		return fmt.Errorf("password path failed")
	}
	parsed, err := authority.ParseBackupShare(backup.String())
	if err != nil {
		return err
	}
	fromBackup, ok := a.RecoverWithBackup(parsed)
	if !ok {
		return fmt.Errorf("backup path failed")
	}
	if fromPassword != fromBackup {
		return fmt.Errorf("password and backup paths recovered different keys")
	}
	return nil
}

func wrongPassword(a *authority.Authority) error {
	if _, _, err := a.Register("wrong@example.com", "right"); err != nil {
		return err
	}
	if _, ok := a.RecoverWithPassword("wrong@example.com", "wrong"); ok {
		return fmt.Errorf("recovered a key with the wrong password")
	}
	if _, ok := a.Recover("wrong@example.com", nil, nil); ok {
		return fmt.Errorf("recovered a key without credentials")
	}
	return nil
}

func sealedBox(*authority.Authority) error {
	priv, pub, err := sealedbox.GenerateKey()
	if err != nil {
		return err
	}
	plaintext := []byte("conformance plaintext")
	payload, err := sealedbox.Encrypt(pub, plaintext)
	if err != nil {
		return err
	}
	if ok, got := sealedbox.Decrypt(payload, priv[:]); !ok || !bytes.Equal(got, plaintext) {
		return fmt.Errorf("round trip failed")
	}
	for _, field := range [][]byte{payload.Ciphertext, payload.Nonce, payload.SenderPublicKey} {
		for i := range field {
			field[i] ^= 0x01
			ok, _ := sealedbox.Decrypt(payload, priv[:])
			field[i] ^= 0x01
			if ok {
				return fmt.Errorf("corrupted payload decrypted")
			}
		}
	}
	return nil
}

func sealedStream(a *authority.Authority) error {
	if _, _, err := a.Register("stream@example.com", "pw"); err != nil {
		return err
	}
	pub, err := a.PublicKey("stream@example.com")
	if err != nil {
		return err
	}
	key, ok := a.RecoverWithPassword("stream@example.com", "pw")
	if !ok {
		return fmt.Errorf("recovery failed")
	}

	plaintext := bytes.Repeat([]byte("conformance "), 200000)
	var file bytes.Buffer
	if err := sealedbox.SealStream(pub, bytes.NewReader(plaintext), &file); err != nil {
		return err
	}
	var opened bytes.Buffer
	if err := sealedbox.OpenFile(key[:], bytes.NewReader(file.Bytes()), &opened); err != nil {
		return err
	}
	if !bytes.Equal(opened.Bytes(), plaintext) {
		return fmt.Errorf("stream round trip altered the plaintext")
	}

	sealed := file.Bytes()
	sealed[len(sealed)-1] ^= 0x01
	if err := sealedbox.OpenFile(key[:], bytes.NewReader(sealed), &bytes.Buffer{}); err == nil {
		return fmt.Errorf("corrupted stream opened")
	}
	return nil
}

func main() {
	flag.Parse()

	a, _, err := testutil.NewMemoryAuthority()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create authority: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Running authority and sealed box checks...")

	testCases := []conformanceTest{
		{testName: fmt.Sprintf("Register and recover %d users", *registrations), run: roundTrip},
		{testName: "Password and backup paths agree", run: subsetInvariance},
		{testName: "Wrong or missing credentials are rejected", run: wrongPassword},
		{testName: "Sealed box round trip and corruption", run: sealedBox},
		{testName: "Sealed stream to a recovered key", run: sealedStream},
	}

	failed := false
	for _, testCase := range testCases {
		if err := testCase.run(a); err != nil {
			failed = true
			colour.Printf("^1 - %v: %v^R\n", testCase.testName, err)
		} else {
			colour.Printf("^2 - %v^R\n", testCase.testName)
		}
	}
	if failed {
		os.Exit(1)
	}
}
