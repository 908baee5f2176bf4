// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package store provides database connectivity and schema management.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry parameters for startup. A cold database (or one still
// coming up next to us in a container stack) gets a short grace period
// instead of failing the process immediately.
const (
	pingRetries     = 5
	pingBackoffBase = 500 * time.Millisecond
)

// Connect opens a pgx connection pool and verifies connectivity with a
// bounded exponential backoff. The returned pool is ready for use.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(pingRetries, retry.NewExponential(pingBackoffBase))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
