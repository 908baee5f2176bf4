// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/samber/oops"
)

// Cookie names. The session cookie binds proof-of-work challenges to a
// client; the auth cookie is the identity marker set on signin and cleared
// on signout.
const (
	SessionCookieName  = "gatehouse-session"
	IdentityCookieName = "gatehouse-auth"
)

// tokenBytes is the entropy of session and identity tokens (64 hex chars).
const tokenBytes = 32

// identityMaxAge bounds how long a signin sticks, in seconds.
const identityMaxAge = 24 * 60 * 60

// generateToken creates a secure random token, hex-encoded.
func generateToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", oops.Code("WEB_TOKEN_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	return hex.EncodeToString(raw), nil
}

// sessionID returns the request's session identifier, or "" if the
// middleware has not assigned one.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// withSession ensures every request carries a session cookie, assigning a
// fresh one when absent. The challenge gate keys its state off this value.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID(r) == "" {
			token, err := generateToken()
			if err != nil {
				s.renderError(r.Context(), w, err)
				return
			}
			cookie := &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			http.SetCookie(w, cookie)
			r.AddCookie(cookie)
		}
		next(w, r)
	}
}

// setIdentity marks the caller as signed in.
func setIdentity(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     IdentityCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   identityMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearIdentity invalidates the caller's identity marker.
func clearIdentity(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     IdentityCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
