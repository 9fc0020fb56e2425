// Package normalize canonicalizes beneficiary names and phone numbers
// so equality comparisons and dedup keys survive the inconsistent
// casing, accents and spacing found in spreadsheet exports.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Name returns the canonical dedup key for a beneficiary name:
// lowercased, trimmed, diacritics stripped, whitespace runs collapsed
// to single spaces. Empty input yields the empty string.
func Name(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// Phone returns the canonical lookup key for a phone number: digits
// only, with a leading country prefix "56" dropped when the remainder
// is a full national number.
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && strings.HasPrefix(digits, "56") {
		return digits[2:]
	}
	return digits
}

// IsNumeric reports whether s consists solely of digits, used to
// reject phone numbers that leak into the beneficiary column.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
