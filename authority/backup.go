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
	"github.com/hydra-project/hydra/authority/shares"
)

// BackupShare is the point handed to the caller at registration, together
// with the index of the server-held record it pairs with. The authority
// keeps no copy.
type BackupShare struct {
	Share Share
	Index ShareIndex
}

// String renders the backup as a recovery code, or "" for an incomplete share.
func (b BackupShare) String() string {
	if b.Share.X == nil || b.Share.Y == nil {
		return ""
	}
	return shares.EncodeBackupCode(b.Share, string(b.Index))
}

// ParseBackupShare parses a recovery code produced by BackupShare.String.
func ParseBackupShare(code string) (BackupShare, error) {
	share, index, err := shares.DecodeBackupCode(code)
	if err != nil {
		return BackupShare{}, err
	}
	return BackupShare{Share: share, Index: ShareIndex(index)}, nil
}
