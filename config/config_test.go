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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hydra-project/hydra/authority"
	"github.com/hydra-project/hydra/store/file"
	"github.com/hydra-project/hydra/store/memory"
)

func TestParse(t *testing.T) {
	type testCase struct {
		tag  string
		yaml string
		want *Config
	}
	for _, tc := range []testCase{
		{
			tag:  "full",
			yaml: "primeBits: 1024\npbkdf2Rounds: 5000\nstoreType: file\nstoreDir: /tmp/hydra\n",
			want: &Config{PrimeBits: 1024, PBKDF2Rounds: 5000, StoreType: StoreTypeFile, StoreDir: "/tmp/hydra"},
		},
		{
			tag:  "defaults filled in",
			yaml: "storeDir: /tmp/hydra\n",
			want: &Config{PrimeBits: 512, PBKDF2Rounds: 100000, StoreType: StoreTypeFile, StoreDir: "/tmp/hydra"},
		},
		{
			tag:  "memory store needs no directory",
			yaml: "storeType: memory\n",
			want: &Config{PrimeBits: 512, PBKDF2Rounds: 100000, StoreType: StoreTypeMemory},
		},
	} {
		t.Run(tc.tag, func(t *testing.T) {
			got, err := Parse([]byte(tc.yaml))
			if err != nil {
				t.Fatalf("Parse() returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse() returned unexpected diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	type testCase struct {
		tag  string
		yaml string
	}
	for _, tc := range []testCase{
		{tag: "small prime", yaml: "primeBits: 256\nstoreType: memory\n"},
		{tag: "few rounds", yaml: "pbkdf2Rounds: 10\nstoreType: memory\n"},
		{tag: "unknown store", yaml: "storeType: sqlite\n"},
		{tag: "file store without directory", yaml: "storeType: file\n"},
		{tag: "unknown field", yaml: "storeType: memory\nthreshold: 3\n"},
		{tag: "not yaml", yaml: "storeType: [memory\n"},
	} {
		t.Run(tc.tag, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Errorf("Parse(%q) err = nil, want error", tc.yaml)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigName)
	want := &Config{PrimeBits: 768, PBKDF2Rounds: 2000, StoreType: StoreTypeFile, StoreDir: t.TempDir()}

	b, err := want.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() returned unexpected diff (-want +got):\n%s", diff)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load(missing) err = nil, want error")
	}
}

func TestOpenBackend(t *testing.T) {
	cfg := &Config{PrimeBits: 512, PBKDF2Rounds: 1000, StoreType: StoreTypeMemory}
	b, err := cfg.OpenBackend()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*memory.Backend); !ok {
		t.Errorf("OpenBackend() = %T, want *memory.Backend", b)
	}

	cfg = &Config{PrimeBits: 512, PBKDF2Rounds: 1000, StoreType: StoreTypeFile, StoreDir: t.TempDir()}
	b, err = cfg.OpenBackend()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*file.Backend); !ok {
		t.Errorf("OpenBackend() = %T, want *file.Backend", b)
	}

	cfg.StoreType = "bogus"
	if _, err := cfg.OpenBackend(); err == nil {
		t.Errorf("OpenBackend(bogus) err = nil, want error")
	}
}

func TestAuthorityOptions(t *testing.T) {
	cfg := &Config{PrimeBits: 640, PBKDF2Rounds: 1000, StoreType: StoreTypeMemory}
	a, err := authority.New(memory.New(), cfg.AuthorityOptions()...)
	if err != nil {
		t.Fatalf("authority.New() returned error: %v", err)
	}
	if got := a.Prime().BitLen(); got != 640 {
		t.Errorf("Prime().BitLen() = %d, want 640", got)
	}

	cfg.PBKDF2Rounds = 1
	if _, err := authority.New(memory.New(), cfg.AuthorityOptions()...); err == nil {
		t.Errorf("authority.New() with 1 PBKDF2 round err = nil, want error")
	}
}
