// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package postgres implements account repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
)

// poolIface is the subset of pgxpool.Pool the repository uses. Narrowed to
// an interface so tests can substitute a pgxmock pool.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements account.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user. The users table carries unique constraints on
// both username and canonical_username; a violation of either translates to
// ErrUsernameExists, which makes the insert the race-proof authority behind
// the pipeline's collision pre-check.
func (r *UserRepository) Create(ctx context.Context, user *account.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, canonical_username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Username,
		user.CanonicalUsername,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(translateError(err))
	}
	return nil
}

// GetByUsername retrieves a user by exact (case-sensitive) username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*account.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, canonical_username, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("operation", "get user by username").
			Wrap(translateError(err))
	}
	return user, nil
}

// CanonicalExists reports whether any stored user has the given canonical
// username.
func (r *UserRepository) CanonicalExists(ctx context.Context, canonical string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE canonical_username = $1)
	`, canonical).Scan(&exists)
	if err != nil {
		return false, oops.Code("USER_CANONICAL_CHECK_FAILED").
			With("operation", "check canonical username").
			Wrap(translateError(err))
	}
	return exists, nil
}

// translateError converts storage-engine faults into the service taxonomy.
// This is the only place Postgres error types are inspected; everything
// above the repository sees only the closed set.
func translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return account.ErrTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return account.ErrUsernameExists
		case pgerrcode.IsConnectionException(pgErr.Code):
			return account.ErrDBUnavailable
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return account.ErrDBUnavailable
	}

	// Unclassified storage errors stay opaque; the boundary renders them as
	// an internal error without schema details.
	return err
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*account.User, error) {
	var (
		idStr     string
		username  string
		canonical string
		hash      string
		createdAt time.Time
	)

	err := row.Scan(&idStr, &username, &canonical, &hash, &createdAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &account.User{
		ID:                id,
		Username:          username,
		CanonicalUsername: canonical,
		PasswordHash:      hash,
		CreatedAt:         createdAt,
	}, nil
}

// Compile-time interface check.
var _ account.UserRepository = (*UserRepository)(nil)
