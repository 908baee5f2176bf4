// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is a stored account record. The username is persisted exactly as the
// client supplied it; CanonicalUsername is the case-folded, confusable-folded
// form used for collision detection. Records are never mutated after signup.
type User struct {
	ID                ulid.ULID
	Username          string
	CanonicalUsername string
	PasswordHash      string
	CreatedAt         time.Time
}

// NewUser creates a validated User record.
func NewUser(username, canonical, passwordHash string) (*User, error) {
	if username == "" {
		return nil, oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if canonical == "" {
		return nil, oops.Code("ACCOUNT_INVALID_CANONICAL").Errorf("canonical username cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &User{
		ID:                ulid.Make(),
		Username:          username,
		CanonicalUsername: canonical,
		PasswordHash:      passwordHash,
		CreatedAt:         time.Now(),
	}, nil
}

// UserRepository manages user persistence. Implementations must enforce
// username uniqueness atomically at the storage layer and translate their
// engine-specific faults into the service taxonomy:
// unique violations become ErrUsernameExists, connectivity faults become
// ErrDBUnavailable, exceeded deadlines become ErrTimeout.
type UserRepository interface {
	// Create inserts a new user. Fails with ErrUsernameExists if either the
	// exact or the canonical username is already taken.
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by exact (case-sensitive) username.
	// Returns ErrNotFound if no such user exists.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// CanonicalExists reports whether any stored user folds to the given
	// canonical username.
	CanonicalExists(ctx context.Context, canonical string) (bool, error)
}

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")
