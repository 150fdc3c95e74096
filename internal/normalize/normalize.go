// Package normalize folds free-text interview labels (role, level, company)
// into canonical names so analytics can bucket them.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Vocabulary selects the rule table used by Normalize.
type Vocabulary string

const (
	Role    Vocabulary = "role"
	Level   Vocabulary = "level"
	Company Vocabulary = "company"
)

// Unknown is returned for blank input.
const Unknown = "Unknown"

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = strings.NewReplacer(".", "", ",", "")
)

// Normalize maps raw to the canonical label of the given vocabulary.
// The mapping is deterministic and idempotent: Normalize(v, Normalize(v, x))
// equals Normalize(v, x) for every input.
func Normalize(v Vocabulary, raw string) string {
	cleaned := Clean(v, raw)
	if cleaned == "" {
		return Unknown
	}

	for _, rule := range rules[v] {
		if rule.Match(cleaned) {
			return rule.Canonical
		}
	}

	return fallback(v, cleaned)
}

// Clean lowercases raw, drops periods and commas and collapses whitespace.
func Clean(_ Vocabulary, raw string) string {
	cleaned := strings.ToLower(raw)
	cleaned = punctuation.Replace(cleaned)
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Distribution folds raw label counts into canonical buckets. Labels that
// normalize to the same canonical name have their counts summed.
func Distribution(v Vocabulary, counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for raw, n := range counts {
		out[Normalize(v, raw)] += n
	}
	return out
}

func fallback(v Vocabulary, cleaned string) string {
	if v == Level {
		r, size := utf8.DecodeRuneInString(cleaned)
		return string(unicode.ToUpper(r)) + cleaned[size:]
	}

	// Casers keep state, so one per call.
	return cases.Title(language.English).String(cleaned)
}
