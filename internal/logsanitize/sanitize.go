// Package logsanitize provides helpers for sanitizing untrusted values before logging.
package logsanitize

import "strings"

// Sanitize removes control characters from log field values to reduce
// the risk of log injection (CWE-117).
//
// Stripped ranges:
//   - C0 controls 0x00-0x1F (except horizontal tab 0x09)
//   - DEL 0x7F and C1 controls 0x80-0x9F
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return '_'
		}
		if r >= 0x7f && r <= 0x9f {
			return '_'
		}
		return r
	}, s)
}

// Token masks a credential so that a log line can tell tokens apart
// without carrying a usable value. Only the last four characters survive,
// and only when the token is long enough that they reveal nothing useful.
func Token(s string) string {
	if s == "" {
		return ""
	}
	if len(s) < 16 {
		return "****"
	}
	return "****" + Sanitize(s[len(s)-4:])
}

// Header removes bearer credentials from an Authorization-style header value.
func Header(v string) string {
	scheme, _, found := strings.Cut(v, " ")
	if !found {
		return Token(v)
	}
	return Sanitize(scheme) + " ****"
}
