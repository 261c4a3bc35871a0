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
	"strings"
	"testing"
)

func TestDeriveShareIndex(t *testing.T) {
	a := DeriveShareIndex("alice", "pw")
	if a != DeriveShareIndex("alice", "pw") {
		t.Errorf("DeriveShareIndex is not deterministic")
	}
	if !a.Valid() {
		t.Errorf("DeriveShareIndex(alice, pw) = %q, not a valid index", a)
	}
	if a == DeriveShareIndex("alice", "pw2") {
		t.Errorf("different passwords produced the same index")
	}
	if a == DeriveShareIndex("bob", "pw") {
		t.Errorf("different users produced the same index")
	}
	// The index covers the concatenation only.
	if DeriveShareIndex("ali", "cepw") != a {
		t.Errorf("DeriveShareIndex(ali, cepw) != DeriveShareIndex(alice, pw)")
	}
}

func TestShareIndexValid(t *testing.T) {
	valid := DeriveShareIndex("u", "p")
	type testCase struct {
		tag   string
		index ShareIndex
		want  bool
	}
	for _, tc := range []testCase{
		{tag: "derived", index: valid, want: true},
		{tag: "empty", index: "", want: false},
		{tag: "short", index: valid[:63], want: false},
		{tag: "lowercase hex", index: ShareIndex(strings.Repeat("a", 64)), want: true},
		{tag: "uppercase hex", index: ShareIndex(strings.Repeat("A", 64)), want: false},
		{tag: "path", index: ShareIndex("../" + string(valid[3:])), want: false},
	} {
		t.Run(tc.tag, func(t *testing.T) {
			if got := tc.index.Valid(); got != tc.want {
				t.Errorf("ShareIndex(%q).Valid() = %v, want %v", tc.index, got, tc.want)
			}
		})
	}
}
