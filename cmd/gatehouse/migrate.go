// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/store"
)

// NewMigrateCmd creates the migrate subcommand family.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect schema migrations on the PostgreSQL database.`,
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations (drops all tables and data)",
			RunE:  runMigrateDown,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current migration version",
			RunE:  runMigrateStatus,
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the migration version without running migrations",
			Long: `Set the recorded migration version without running any migrations.
Use only to recover from a dirty state after manually fixing the database.`,
			Args: cobra.ExactArgs(1),
			RunE: runMigrateForce,
		},
	)

	return cmd
}

// migrateDatabaseURL resolves the database URL from the config file and
// environment (GATEHOUSE_DATABASE_URL).
func migrateDatabaseURL() (string, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("database.url is required (set it in the config file or GATEHOUSE_DATABASE_URL)")
	}
	return cfg.Database.URL, nil
}

// withMigrator runs fn against a migrator, closing it afterwards.
func withMigrator(fn func(*store.Migrator) error) error {
	databaseURL, err := migrateDatabaseURL()
	if err != nil {
		return err
	}

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = migrator.Close() //nolint:errcheck // best-effort close on a one-shot command
	}()

	return fn(migrator)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(func(m *store.Migrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	return withMigrator(func(m *store.Migrator) error {
		cmd.Println("Rolling back all migrations...")
		if err := m.Down(); err != nil {
			return err
		}
		cmd.Println("Rollback completed successfully")
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(func(m *store.Migrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 && !dirty {
			cmd.Println("No migrations applied")
			return nil
		}
		cmd.Printf("Version: %d, dirty: %t\n", version, dirty)
		return nil
	})
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return oops.Code("MIGRATION_INVALID_VERSION").With("version", args[0]).Wrap(err)
	}

	return withMigrator(func(m *store.Migrator) error {
		if err := m.Force(version); err != nil {
			return err
		}
		cmd.Printf("Forced migration version to %d\n", version)
		return nil
	})
}
