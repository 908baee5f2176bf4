// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package pow implements the proof-of-work challenge gate: issuance of
// session-bound challenges, the hashcash-style difficulty predicate, and
// single-use verification.
package pow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"math/bits"
	"time"

	"github.com/samber/oops"
)

// Algorithm identifies the difficulty predicate so clients know what to
// compute. Verification refuses anything else.
const Algorithm = "sha256-leading-zero-bits"

// SaltBytes is the length of the random challenge salt.
const SaltBytes = 16

// Config is the public face of a challenge: everything the client needs to
// search for a solution, and nothing else.
type Config struct {
	Salt       string `json:"salt"`
	Difficulty int    `json:"difficulty"`
	Algorithm  string `json:"algorithm"`
}

// Challenge is the server-side challenge state for one session.
type Challenge struct {
	SessionID  string
	Salt       string // base64 std encoding
	Difficulty int
	IssuedAt   time.Time
	Consumed   bool
}

// ExpiresAt returns the instant the challenge stops being verifiable.
func (c *Challenge) ExpiresAt(ttl time.Duration) time.Time {
	return c.IssuedAt.Add(ttl)
}

// newSalt generates a fresh random salt, base64-encoded.
func newSalt() (string, error) {
	raw := make([]byte, SaltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("POW_SALT_FAILED").Wrap(err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// message builds the byte string the predicate hashes: salt bytes, a colon
// separator, then the nonce bytes.
func message(salt []byte, nonce string) []byte {
	payload := make([]byte, 0, len(salt)+1+len(nonce))
	payload = append(payload, salt...)
	payload = append(payload, ':')
	payload = append(payload, nonce...)
	return payload
}

// leadingZeroBits counts leading zero bits of a hash output.
func leadingZeroBits(b []byte) int {
	total := 0
	for _, by := range b {
		if by == 0 {
			total += 8
			continue
		}
		total += bits.LeadingZeros8(by)
		break
	}
	return total
}

// CheckNonce reports whether sha256(salt ':' nonce) meets the difficulty
// target. One hash evaluation regardless of difficulty; the exponential cost
// is entirely on the solving side.
func CheckNonce(saltB64, nonce string, difficulty int) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return false, oops.Code("POW_BAD_SALT").Wrap(err)
	}
	sum := sha256.Sum256(message(salt, nonce))
	return leadingZeroBits(sum[:]) >= difficulty, nil
}

// Solve searches nonces until one satisfies the config's predicate, or
// maxAttempts is exhausted. Intended for tests and reference clients; the
// server never solves its own challenges.
func Solve(cfg Config, maxAttempts uint64) (string, bool) {
	salt, err := base64.StdEncoding.DecodeString(cfg.Salt)
	if err != nil {
		return "", false
	}
	buf := make([]byte, 8)
	for i := uint64(0); i < maxAttempts; i++ {
		binary.BigEndian.PutUint64(buf, i)
		nonce := base64.RawURLEncoding.EncodeToString(buf)
		sum := sha256.Sum256(message(salt, nonce))
		if leadingZeroBits(sum[:]) >= cfg.Difficulty {
			return nonce, true
		}
	}
	return "", false
}
