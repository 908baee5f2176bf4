// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package errutil provides helpers for logging and asserting on oops errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// Attrs extracts structured attributes from an error. For oops errors the
// code and context map are included; for plain errors only the message.
func Attrs(err error) []any {
	attrs := []any{"error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != "" {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
	}
	return attrs
}

// LogError logs an error with whatever structured context it carries.
func LogError(logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logger.Error(msg, Attrs(err)...)
}
