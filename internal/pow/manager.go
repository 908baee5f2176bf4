// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package pow

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// Default challenge parameters.
const (
	DefaultDifficulty = 16 // leading zero bits, ~65k expected attempts
	DefaultTTL        = 2 * time.Minute
)

// ErrNotAuthorized is the single verification failure visible to callers.
// Missing challenge, consumed challenge, expired challenge, and unmet
// predicate all resolve to it; the sub-case is recorded only as an oops code
// (POW_MISSING, POW_CONSUMED, POW_EXPIRED, POW_PREDICATE, POW_RACED) for logs.
var ErrNotAuthorized = errors.New("proof of work not accepted")

// ErrNoChallenge is returned by ChallengeStore.Get when the session has no
// challenge on record.
var ErrNoChallenge = errors.New("no challenge for session")

// ChallengeStore persists per-session challenge state. At most one challenge
// exists per session; Put replaces unconditionally. Implementations must make
// Consume atomic so that two concurrent verifications of the same challenge
// cannot both win.
type ChallengeStore interface {
	// Put stores the challenge for its session, overwriting any existing one.
	Put(ctx context.Context, ch Challenge) error

	// Get returns the session's current challenge, or ErrNoChallenge.
	Get(ctx context.Context, sessionID string) (Challenge, error)

	// Consume marks the session's challenge consumed if and only if it is
	// still the challenge identified by salt and has not been consumed yet.
	// Returns true exactly once per challenge.
	Consume(ctx context.Context, sessionID, salt string) (bool, error)
}

// Manager issues and verifies session-bound proof-of-work challenges.
type Manager struct {
	store      ChallengeStore
	difficulty int
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. Difficulty is the required number of leading
// zero bits; ttl is how long an issued challenge stays verifiable.
func NewManager(store ChallengeStore, difficulty int, ttl time.Duration, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, oops.Code("POW_CONFIG_INVALID").Errorf("challenge store is required")
	}
	if difficulty <= 0 || difficulty > 256 {
		return nil, oops.Code("POW_CONFIG_INVALID").
			With("difficulty", difficulty).
			Errorf("difficulty must be between 1 and 256 bits")
	}
	if ttl <= 0 {
		return nil, oops.Code("POW_CONFIG_INVALID").
			With("ttl", ttl).
			Errorf("ttl must be positive")
	}
	m := &Manager{
		store:      store,
		difficulty: difficulty,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue generates a fresh challenge for the session, replacing any prior
// unconsumed one, and returns the public parameters. A solution to the
// replaced challenge is worthless afterwards.
func (m *Manager) Issue(ctx context.Context, sessionID string) (Config, error) {
	if sessionID == "" {
		return Config{}, oops.Code("POW_SESSION_EMPTY").Errorf("session id cannot be empty")
	}

	salt, err := newSalt()
	if err != nil {
		return Config{}, err
	}

	ch := Challenge{
		SessionID:  sessionID,
		Salt:       salt,
		Difficulty: m.difficulty,
		IssuedAt:   m.now(),
	}
	if err := m.store.Put(ctx, ch); err != nil {
		return Config{}, oops.Code("POW_STORE_FAILED").
			With("operation", "put challenge").
			Wrap(err)
	}

	return Config{
		Salt:       salt,
		Difficulty: m.difficulty,
		Algorithm:  Algorithm,
	}, nil
}

// Verify checks a submitted nonce against the session's current challenge.
// On success the challenge is atomically marked consumed; replaying the same
// nonce fails afterwards. A nonce that misses the difficulty target leaves
// the challenge intact, so the client may retry until the TTL runs out. The
// TTL is never extended by a failed attempt.
func (m *Manager) Verify(ctx context.Context, sessionID, nonce string) error {
	ch, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNoChallenge) {
			return oops.Code("POW_MISSING").
				With("session_id", sessionID).
				Wrap(ErrNotAuthorized)
		}
		return oops.Code("POW_STORE_FAILED").
			With("operation", "get challenge").
			Wrap(err)
	}

	if ch.Consumed {
		return oops.Code("POW_CONSUMED").
			With("session_id", sessionID).
			Wrap(ErrNotAuthorized)
	}
	if m.now().After(ch.ExpiresAt(m.ttl)) {
		return oops.Code("POW_EXPIRED").
			With("session_id", sessionID).
			With("issued_at", ch.IssuedAt).
			Wrap(ErrNotAuthorized)
	}

	ok, err := CheckNonce(ch.Salt, nonce, ch.Difficulty)
	if err != nil {
		return oops.Code("POW_STORE_FAILED").
			With("operation", "check nonce").
			Wrap(err)
	}
	if !ok {
		return oops.Code("POW_PREDICATE").
			With("session_id", sessionID).
			Wrap(ErrNotAuthorized)
	}

	won, err := m.store.Consume(ctx, sessionID, ch.Salt)
	if err != nil {
		return oops.Code("POW_STORE_FAILED").
			With("operation", "consume challenge").
			Wrap(err)
	}
	if !won {
		// Lost a consume race, or the challenge was replaced between Get and
		// Consume. Either way the solution no longer buys anything.
		return oops.Code("POW_RACED").
			With("session_id", sessionID).
			Wrap(ErrNotAuthorized)
	}
	return nil
}
