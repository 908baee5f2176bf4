// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package filter implements the username admissibility rules: a character
// allowlist, blacklist and profanity pattern tables, and canonical folding
// for case and look-alike collision detection. A compiled Rules value is
// immutable and safe for concurrent use without synchronization.
package filter

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Username length constraints, applied before any pattern matching.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// ErrDenied is the single sentinel for every syntactic rejection the rules
// produce. The specific stage that fired is recorded as an oops code
// (FILTER_CHAR, FILTER_BLACKLIST, FILTER_PROFANITY) for logs; clients are not
// told which stage rejected them.
var ErrDenied = errors.New("username denied by filter rules")

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Config supplies operator-defined additions to the built-in tables.
// Patterns use glob syntax and are matched against the canonical form.
type Config struct {
	ExtraBlacklist []string
	ExtraProfanity []string
}

// Rules is the compiled, process-wide rule set. Build it once at startup
// with Compile and share it by reference.
type Rules struct {
	blacklist []glob.Glob
	profanity []glob.Glob
}

// Compile builds a Rules value from the built-in tables plus any extras.
func Compile(cfg Config) (*Rules, error) {
	blacklist, err := compilePatterns(append(defaultBlacklist(), cfg.ExtraBlacklist...))
	if err != nil {
		return nil, oops.Code("FILTER_COMPILE_FAILED").With("table", "blacklist").Wrap(err)
	}
	profanity, err := compilePatterns(append(defaultProfanity(), cfg.ExtraProfanity...))
	if err != nil {
		return nil, oops.Code("FILTER_COMPILE_FAILED").With("table", "profanity").Wrap(err)
	}
	return &Rules{blacklist: blacklist, profanity: profanity}, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.With("pattern", p).Wrap(err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Check runs the syntactic stages of the admissibility pipeline in fixed
// order, short-circuiting on the first rejection: character class and length
// first (cheapest), then the blacklist table, then the profanity table.
// Returns nil if the username passes all three.
func (r *Rules) Check(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return oops.Code("FILTER_CHAR").
			With("length", len(username)).
			Wrap(ErrDenied)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("FILTER_CHAR").Wrap(ErrDenied)
	}

	canonical := Canonicalize(username)
	for _, g := range r.blacklist {
		if g.Match(canonical) {
			return oops.Code("FILTER_BLACKLIST").Wrap(ErrDenied)
		}
	}
	for _, g := range r.profanity {
		if g.Match(canonical) {
			return oops.Code("FILTER_PROFANITY").Wrap(ErrDenied)
		}
	}
	return nil
}

// Canonicalize folds a username to the canonical form used for collision
// detection: lowercase, with visually confusable characters mapped to their
// canonical letter. Two usernames with equal canonical forms are treated as
// the same identity.
func Canonicalize(username string) string {
	var b strings.Builder
	b.Grow(len(username))
	for _, r := range strings.ToLower(username) {
		if mapped, ok := confusables[r]; ok {
			r = mapped
		}
		b.WriteRune(r)
	}
	return b.String()
}
