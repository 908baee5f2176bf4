// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/account"
	accountpg "github.com/gatehouse/gatehouse/internal/account/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/filter"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/pow"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account service",
		Long: `Start the HTTP server that issues proof-of-work challenges and
handles signup, signin, and signout requests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	// Flag names use dotted config paths so they merge into the same
	// keyspace as the YAML file and environment layers.
	flags := cmd.Flags()
	flags.String("http.addr", config.DefaultHTTPAddr, "API listen address")
	flags.String("metrics.addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("database.url", "", "PostgreSQL connection URL")
	flags.Int("pow.difficulty", config.DefaultPowDifficulty, "challenge difficulty in leading zero bits")
	flags.Int("pow.ttl", config.DefaultPowTTLSeconds, "challenge lifetime in seconds")
	flags.String("log.format", config.DefaultLogFormat, "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (set it in the config file or GATEHOUSE_DATABASE_URL)")
	}

	logging.SetDefault("gatehouse", version, cfg.Log.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting gatehouse",
		"http_addr", cfg.HTTP.Addr,
		"pow_difficulty", cfg.Pow.Difficulty,
		"pow_ttl_seconds", cfg.Pow.TTLSeconds,
	)

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := runMigrations(cfg.Database.URL, logger); err != nil {
		return err
	}

	rules, err := filter.Compile(filter.Config{
		ExtraBlacklist: cfg.Filters.Blacklist,
		ExtraProfanity: cfg.Filters.Profanity,
	})
	if err != nil {
		return oops.Code("FILTER_CONFIG_INVALID").Wrap(err)
	}

	challenges, err := pow.NewManager(
		pow.NewMemoryStore(),
		cfg.Pow.Difficulty,
		time.Duration(cfg.Pow.TTLSeconds)*time.Second,
	)
	if err != nil {
		return err
	}

	accounts, err := account.NewServiceWithLogger(
		accountpg.NewUserRepository(pool),
		account.NewArgon2idHasher(),
		rules,
		challenges,
		logger,
	)
	if err != nil {
		return err
	}

	// Metrics stay wired even when the observability server is disabled;
	// they just never get scraped.
	var metrics *observability.Metrics
	var obsSrv *observability.Server
	var obsErrCh <-chan error
	if cfg.Metrics.Addr != "" {
		obsSrv = observability.NewServer(cfg.Metrics.Addr, func() bool {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsSrv.Metrics()
		obsErrCh, err = obsSrv.Start()
		if err != nil {
			return err
		}
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	apiSrv, err := web.NewServer(cfg.HTTP.Addr, accounts, challenges, metrics, logger)
	if err != nil {
		return err
	}
	apiErrCh, err := apiSrv.Start()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr := <-apiErrCh:
		if serveErr != nil {
			return oops.Code("API_SERVER_FAILED").Wrap(serveErr)
		}
	case serveErr := <-obsErrCh:
		if serveErr != nil {
			return oops.Code("OBSERVABILITY_SERVER_FAILED").Wrap(serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiSrv.Stop(shutdownCtx); err != nil {
		return err
	}
	if obsSrv != nil {
		if err := obsSrv.Stop(shutdownCtx); err != nil {
			return err
		}
	}

	logger.Info("gatehouse stopped")
	return nil
}

// runMigrations brings the schema up to date before serving traffic.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Debug("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return err
	}
	logger.Info("database schema up to date")
	return nil
}
