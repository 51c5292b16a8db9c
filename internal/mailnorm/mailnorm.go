// Package mailnorm holds the small normalization rules shared by the
// parser, the importer, and the rule engine, so "normalized subject" and
// "absent display name" mean exactly one thing across the codebase
// (spec §3 Thread.subject, §4.B address parsing).
package mailnorm

import (
	"regexp"
	"strings"
)

// replyPrefixRe matches one leading reply/forward marker: re, fwd, fw, aw,
// sv, vs, ref, optionally followed by "[n]", then ":" (spec §4.C step 2).
var replyPrefixRe = regexp.MustCompile(`(?i)^(re|fwd|fw|aw|sv|vs|ref)(\[\d+\])?:\s*`)

// NormalizeThreadSubject strips all leading reply/forward prefixes and
// trims whitespace, for thread-join subject comparisons (spec §3 Thread
// "subject (normalized: reply/forward prefixes stripped)").
func NormalizeThreadSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		stripped := replyPrefixRe.ReplaceAllString(s, "")
		stripped = strings.TrimSpace(stripped)
		if stripped == s {
			break
		}
		s = stripped
	}
	return s
}

// HasReplyPrefix reports whether subject begins with a reply/forward
// marker (spec §4.C threading step 2).
func HasReplyPrefix(subject string) bool {
	return replyPrefixRe.MatchString(strings.TrimSpace(subject))
}

// NormalizeEmailSubject applies the Parser's empty-subject rule: an empty
// subject becomes the literal string "(no subject)" (spec §4.B).
func NormalizeEmailSubject(subject string) string {
	if strings.TrimSpace(subject) == "" {
		return "(no subject)"
	}
	return subject
}

// IsDisplayNameAbsent reports whether name carries no information beyond
// the email's local part (spec §3 Contact, §4.B address parsing).
func IsDisplayNameAbsent(name, email string) bool {
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if name == "" {
		return true
	}
	local := email
	if idx := strings.IndexByte(email, '@'); idx >= 0 {
		local = email[:idx]
	}
	return strings.EqualFold(name, local)
}

// NormalizeAddress lowercases the mailbox and trims/unquotes the display
// name, treating a name equal to the local part as absent (spec §4.B).
func NormalizeAddress(name, email string) (displayName, lowerEmail string) {
	lowerEmail = strings.ToLower(strings.TrimSpace(email))
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if IsDisplayNameAbsent(name, lowerEmail) {
		return "", lowerEmail
	}
	return name, lowerEmail
}
