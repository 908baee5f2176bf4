// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package account provides the account domain for Gatehouse.
//
// # Domain Types
//
// User records should be created with NewUser, which validates the
// username, its canonical form, and the password hash. Direct struct
// initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated records.
//
// # Service
//
// Service coordinates the signup and signin flows: the proof-of-work
// gate, the username admissibility pipeline, password hashing, and the
// credential store. It is created with NewService or NewServiceWithLogger,
// which validate dependencies.
//
// # Error taxonomy
//
// Every fallible operation resolves to one of the sentinel errors in
// errors.go before reaching the HTTP boundary. Callers match with
// errors.Is; the sentinels' messages are the only strings shown to
// clients.
package account
