// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gatehouse/gatehouse/internal/store"
)

// startPostgres launches a disposable PostgreSQL container and returns its
// connection string plus a cleanup function.
func startPostgres() (string, func(), error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gatehouse_test"),
		postgres.WithUsername("gatehouse"),
		postgres.WithPassword("gatehouse"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return "", nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, err
	}

	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return connStr, cleanup, nil
}

var _ = Describe("Connect", func() {
	var connStr string
	var cleanup func()

	BeforeEach(func() {
		var err error
		connStr, cleanup, err = startPostgres()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	It("establishes a verified pool", func() {
		ctx := context.Background()

		pool, err := store.Connect(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		Expect(pool.Ping(ctx)).To(Succeed())
	})

	It("serves queries after migration", func() {
		ctx := context.Background()

		pool, err := store.Connect(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer migrator.Close()
		Expect(migrator.Up()).To(Succeed())

		var count int
		err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})
})
