// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package filter

// defaultBlacklist returns glob patterns for reserved and misleading names.
// Patterns match against the canonical (folded) form of the username.
func defaultBlacklist() []string {
	return []string{
		"admin*",
		"administrator*",
		"moderator*",
		"root",
		"superuser",
		"sysadmin*",
		"system",
		"staff*",
		"official*",
		"support",
		"help",
		"helpdesk",
		"info",
		"contact",
		"security",
		"abuse",
		"webmaster",
		"postmaster",
		"hostmaster",
		"noreply",
		"no_reply",
		"mailer_daemon",
		"www*",
		"api",
		"mail",
		"ftp",
		"smtp",
		"imap",
		"localhost",
		"everyone",
		"anonymous",
		"guest",
		"nobody",
		"undefined",
		"null",
	}
}

// defaultProfanity returns glob patterns for profane terms. Substring
// patterns are deliberate: the filter prefers false positives over hosting
// a slur inside a username.
func defaultProfanity() []string {
	return []string{
		"*fuck*",
		"*shit*",
		"*cunt*",
		"*bitch*",
		"*asshole*",
		"*bastard*",
		"*wanker*",
		"*nigger*",
		"*nigga*",
		"*faggot*",
		"*whore*",
		"*slut*",
		"*retard*",
		"*hitler*",
		"*nazi*",
		"*rapist*",
	}
}

// confusables maps visually confusable characters to the canonical letter
// they imitate. Applied after lowercasing, so only lowercase keys appear.
// ASCII digit look-alikes are included because digits are inside the allowed
// character set; the non-ASCII entries are a backstop should the allowlist
// ever widen.
var confusables = map[rune]rune{
	// ASCII digit look-alikes
	'0': 'o',
	'1': 'l',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',

	// Cyrillic look-alikes
	'а': 'a',
	'е': 'e',
	'о': 'o',
	'р': 'p',
	'с': 'c',
	'х': 'x',
	'у': 'y',
	'і': 'i',
	'ѕ': 's',

	// Greek look-alikes
	'α': 'a',
	'ο': 'o',
	'ρ': 'p',
	'ν': 'v',
	'τ': 't',
}
