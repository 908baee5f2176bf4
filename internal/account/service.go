// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/filter"
	"github.com/gatehouse/gatehouse/internal/pow"
)

// ChallengeVerifier is the proof-of-work gate the signup path consults.
// Implemented by pow.Manager.
type ChallengeVerifier interface {
	Verify(ctx context.Context, sessionID, nonce string) error
}

// Service orchestrates signup and signin. Signup composes the challenge
// gate, the username admissibility pipeline, and the credential store, in
// that order; the first failure stops the pipeline and nothing is persisted.
// Signin never consults the challenge gate.
type Service struct {
	users      UserRepository
	hasher     PasswordHasher
	rules      *filter.Rules
	challenges ChallengeVerifier
	logger     *slog.Logger
}

// NewService creates a Service with the default logger.
func NewService(users UserRepository, hasher PasswordHasher, rules *filter.Rules, challenges ChallengeVerifier) (*Service, error) {
	return NewServiceWithLogger(users, hasher, rules, challenges, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, rules *filter.Rules, challenges ChallengeVerifier, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("ACCOUNT_CONFIG_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("ACCOUNT_CONFIG_INVALID").Errorf("password hasher is required")
	}
	if rules == nil {
		return nil, oops.Code("ACCOUNT_CONFIG_INVALID").Errorf("filter rules are required")
	}
	if challenges == nil {
		return nil, oops.Code("ACCOUNT_CONFIG_INVALID").Errorf("challenge verifier is required")
	}
	if logger == nil {
		return nil, oops.Code("ACCOUNT_CONFIG_INVALID").Errorf("logger is required")
	}
	return &Service{
		users:      users,
		hasher:     hasher,
		rules:      rules,
		challenges: challenges,
		logger:     logger,
	}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks. We still run password verification to make response time
// consistent. This is NOT a real credential - it's a fake hash that will
// never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Signup registers a new account. The order is deliberate: the challenge is
// verified (and consumed) first so a rejected username cannot be probed for
// free, then the admissibility pipeline runs cheapest-check-first, and only
// then is anything hashed or persisted.
func (s *Service) Signup(ctx context.Context, sessionID, nonce, username, password string) error {
	if nonce == "" {
		return oops.Code("ACCOUNT_POW_MISSING").Wrap(ErrPoWRequired)
	}

	if err := s.challenges.Verify(ctx, sessionID, nonce); err != nil {
		if errors.Is(err, pow.ErrNotAuthorized) {
			s.logger.Debug("signup rejected: challenge not satisfied", "session_id", sessionID)
			return oops.With("session_id", sessionID).Wrap(ErrAuthorizationRequired)
		}
		return oops.Code("ACCOUNT_SIGNUP_FAILED").
			With("operation", "verify challenge").
			Wrap(err)
	}

	if err := s.rules.Check(username); err != nil {
		if errors.Is(err, filter.ErrDenied) {
			s.logger.Debug("signup rejected: username denied", "username", username)
			return oops.With("username", username).Wrap(ErrCharNotAllowed)
		}
		return oops.Code("ACCOUNT_SIGNUP_FAILED").
			With("operation", "check username").
			Wrap(err)
	}

	// Fast pre-filter for case and confusable collisions. The storage-level
	// unique constraint remains the authority under concurrency.
	canonical := filter.Canonicalize(username)
	exists, err := s.users.CanonicalExists(ctx, canonical)
	if err != nil {
		return oops.Code("ACCOUNT_SIGNUP_FAILED").
			With("operation", "check canonical collision").
			Wrap(err)
	}
	if exists {
		return oops.With("username", username).Wrap(ErrUsernameExists)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrEmptyPassword) {
			return oops.Wrap(ErrBadRequest)
		}
		return oops.Code("ACCOUNT_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, canonical, hash)
	if err != nil {
		return oops.Code("ACCOUNT_SIGNUP_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return oops.With("username", username).Wrap(err)
	}

	s.logger.Info("user created", "user_id", user.ID.String())
	return nil
}

// Signin verifies credentials. A nonexistent username and a wrong password
// produce the same error; verification runs against a dummy hash in the
// missing-user case to keep response time consistent.
func (s *Service) Signin(ctx context.Context, username, password string) error {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return oops.Code("ACCOUNT_SIGNIN_FAILED").
				With("operation", "get user by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return oops.Wrap(ErrAuthorizationRequired)
		}
		return oops.Code("ACCOUNT_SIGNIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return oops.Wrap(ErrAuthorizationRequired)
	}
	return nil
}
