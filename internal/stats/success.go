package stats

import (
	"regexp"
	"strings"
)

// successKeywords are the outcome fragments that mark a call as a
// successful contact. The vocabulary comes from the call platform's
// result texts, which are free-form but settle on a few phrasings.
var successKeywords = []string{
	"exitoso",
	"exitosa",
	"contesta",
	"contactado",
	"contactada",
	"se logra contactar",
	"responde",
}

// Matches counter-style results such as "3 llamados exitosos".
var successCountPattern = regexp.MustCompile(`\d+\s+llamados?\s+exitosos?`)

// IsSuccessfulOutcome reports whether an outcome text describes a
// successful contact with the beneficiary.
func IsSuccessfulOutcome(outcome string) bool {
	s := strings.ToLower(strings.TrimSpace(outcome))
	if s == "" {
		return false
	}
	for _, kw := range successKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return successCountPattern.MatchString(s)
}
