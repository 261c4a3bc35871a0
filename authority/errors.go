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

import "errors"

var (
	// ErrMissingCredential is reported when Recover receives neither a
	// password nor a backup share.
	ErrMissingCredential = errors.New("neither a password nor a backup share was supplied")

	// ErrEmptyUserID is returned when registering an empty user ID.
	ErrEmptyUserID = errors.New("user ID must not be empty")

	// ErrNotInitialized is returned by Open when the backend holds no prime.
	ErrNotInitialized = errors.New("authority has not been initialized")

	// ErrAlreadyInitialized is returned by New when the backend already holds a prime.
	ErrAlreadyInitialized = errors.New("authority is already initialized")

	// ErrUnknownUser is returned when no credentials exist for a user ID.
	ErrUnknownUser = errors.New("unknown user")

	// ErrMalformedRecord is returned when a persisted record cannot be decoded.
	ErrMalformedRecord = errors.New("malformed persisted record")
)
