// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/account"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// errorBody is the JSON error envelope every failed request carries.
type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps the closed service taxonomy to HTTP status codes.
// Anything outside the taxonomy is an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, account.ErrCharNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, account.ErrUsernameExists):
		return http.StatusMethodNotAllowed
	case errors.Is(err, account.ErrAuthorizationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, account.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, account.ErrDBUnavailable):
		return http.StatusInternalServerError
	case errors.Is(err, account.ErrPoWRequired):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// displayFor returns the client-facing message for an error. Only the
// taxonomy sentinels' display strings ever leave the process; wrapped detail
// stays in the logs.
func displayFor(err error) string {
	for _, sentinel := range []error{
		account.ErrCharNotAllowed,
		account.ErrUsernameExists,
		account.ErrAuthorizationRequired,
		account.ErrBadRequest,
		account.ErrTimeout,
		account.ErrDBUnavailable,
		account.ErrPoWRequired,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return account.ErrInternal.Error()
}

// renderError writes the JSON error envelope with the mapped status code.
// Unclassified errors are logged with full context before being collapsed
// to "internal error".
func (s *Server) renderError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		errutil.LogError(s.logger, "request failed", err)
	} else {
		s.logger.DebugContext(ctx, "request rejected", "status", status, "error", err)
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	//nolint:errcheck // nothing to do if the client is gone
	json.NewEncoder(w).Encode(errorBody{Error: displayFor(err)})
}
