// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account

import "errors"

// Service error taxonomy. This is a closed set: every fallible operation in
// the signup/signin path resolves to exactly one of these sentinels before it
// reaches the HTTP boundary. Wrapping with oops is fine (and encouraged, for
// log context); callers match with errors.Is.
var (
	// ErrCharNotAllowed rejects usernames containing characters outside the
	// allowed set, or matching a blacklisted or profane pattern.
	ErrCharNotAllowed = errors.New("some characters are not permitted")

	// ErrUsernameExists rejects usernames that collide with an existing
	// account, including case-fold and confusable-character collisions.
	ErrUsernameExists = errors.New("username exists")

	// ErrAuthorizationRequired covers failed credentials and failed, missing,
	// consumed, or expired proof-of-work challenges. The sub-cases are
	// deliberately indistinguishable to the client.
	ErrAuthorizationRequired = errors.New("invalid credentials")

	// ErrInternal is the catch-all for unclassified failures. No internal
	// detail leaks past it.
	ErrInternal = errors.New("internal error")

	// ErrTimeout reports a storage round trip that exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrBadRequest reports a malformed request body.
	ErrBadRequest = errors.New("bad request")

	// ErrDBUnavailable reports that the storage backend could not be reached.
	ErrDBUnavailable = errors.New("Unable to connect to DB")

	// ErrPoWRequired reports a signup attempt that skipped the challenge gate
	// entirely (no solution submitted).
	ErrPoWRequired = errors.New("PoW required, request not processed")
)
