// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/account"
)

// maxBodyBytes bounds request bodies; credentials and nonces are tiny.
const maxBodyBytes = 64 * 1024

// credentials is the username/password pair shared by signup and signin.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// signupRequest is the signup body: the challenge solution plus credentials.
type signupRequest struct {
	Pow   string      `json:"pow"`
	Creds credentials `json:"creds"`
}

// decodeJSON reads and decodes a request body, mapping every malformation
// to ErrBadRequest.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return oops.Code("WEB_DECODE_FAILED").Wrap(errors.Join(account.ErrBadRequest, err))
	}
	// Reject trailing garbage after the JSON document.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return oops.Code("WEB_DECODE_FAILED").Wrap(account.ErrBadRequest)
	}
	return nil
}

// handlePowConfig issues a fresh challenge bound to the caller's session and
// returns its public parameters.
func (s *Server) handlePowConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.challenges.Issue(r.Context(), sessionID(r))
	if err != nil {
		s.renderError(r.Context(), w, err)
		return
	}
	s.metrics.ChallengesIssued.Inc()

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // nothing to do if the client is gone
	json.NewEncoder(w).Encode(cfg)
}

// handleSignup verifies the challenge solution, runs the username through
// the admissibility pipeline, and creates the account.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.Signups.WithLabelValues("rejected").Inc()
		s.renderError(r.Context(), w, err)
		return
	}

	err := s.accounts.Signup(r.Context(), sessionID(r), req.Pow, req.Creds.Username, req.Creds.Password)
	s.recordChallengeOutcome(err)
	if err != nil {
		s.metrics.Signups.WithLabelValues(signupOutcome(err)).Inc()
		s.renderError(r.Context(), w, err)
		return
	}
	s.metrics.Signups.WithLabelValues("created").Inc()

	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
}

// handleSignin verifies credentials and sets the identity marker.
func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		s.renderError(r.Context(), w, err)
		return
	}

	if err := s.accounts.Signin(r.Context(), req.Username, req.Password); err != nil {
		s.metrics.Signins.WithLabelValues("rejected").Inc()
		s.renderError(r.Context(), w, err)
		return
	}
	s.metrics.Signins.WithLabelValues("accepted").Inc()

	token, err := generateToken()
	if err != nil {
		s.renderError(r.Context(), w, err)
		return
	}
	setIdentity(w, token)
	w.WriteHeader(http.StatusOK)
}

// handleSignout clears the caller's identity marker.
func (s *Server) handleSignout(w http.ResponseWriter, _ *http.Request) {
	clearIdentity(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // nothing to do if the client is gone
	w.Write([]byte("You are successfully signed out"))
}

// signupOutcome classifies a signup failure for metrics.
func signupOutcome(err error) string {
	switch {
	case errors.Is(err, account.ErrCharNotAllowed),
		errors.Is(err, account.ErrUsernameExists),
		errors.Is(err, account.ErrAuthorizationRequired),
		errors.Is(err, account.ErrBadRequest),
		errors.Is(err, account.ErrPoWRequired):
		return "rejected"
	default:
		return "error"
	}
}

// recordChallengeOutcome tracks the challenge gate's accept/reject counts.
// A signup that fails past the gate still consumed a valid solution.
func (s *Server) recordChallengeOutcome(err error) {
	if err != nil && (errors.Is(err, account.ErrAuthorizationRequired) || errors.Is(err, account.ErrPoWRequired)) {
		s.metrics.ChallengeVerifications.WithLabelValues("rejected").Inc()
		return
	}
	s.metrics.ChallengeVerifications.WithLabelValues("accepted").Inc()
}
