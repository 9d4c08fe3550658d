package validation

import (
	"strings"
	"unicode"
)

const maxTickerLength = 12

// StripUnprintable removes non-printable characters, allowing common
// whitespace like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// NormalizeTicker upper-cases a user-supplied ticker and strips anything
// that is not a letter, digit, dot or dash. Returns "" when nothing
// usable remains or the symbol is implausibly long.
func NormalizeTicker(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return unicode.ToUpper(r)
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(s))

	if cleaned == "" || len(cleaned) > maxTickerLength {
		return ""
	}
	return cleaned
}
