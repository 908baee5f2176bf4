// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web serves the public HTTP API: challenge issuance, signup,
// signin, and signout. Routing, cookies, and error rendering live here;
// all decisions are delegated to the account service and challenge manager.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/pow"
)

// Server is the public API server.
type Server struct {
	addr       string
	accounts   *account.Service
	challenges *pow.Manager
	metrics    *observability.Metrics
	logger     *slog.Logger

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a Server. All dependencies are required.
func NewServer(addr string, accounts *account.Service, challenges *pow.Manager, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if addr == "" {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("listen address is required")
	}
	if accounts == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("account service is required")
	}
	if challenges == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("challenge manager is required")
	}
	if metrics == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("metrics are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:       addr,
		accounts:   accounts,
		challenges: challenges,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pow", s.withSession(s.handlePowConfig))
	mux.HandleFunc("POST /api/signup", s.withSession(s.handleSignup))
	mux.HandleFunc("POST /api/signin", s.withSession(s.handleSignin))
	mux.HandleFunc("POST /api/signout", s.withSession(s.handleSignout))
	return mux
}

// Start begins serving the API. It returns an error channel that receives
// any serve-loop error; the channel is closed on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
