// Package evaluation turns free-text model feedback into structured records.
package evaluation

import "strings"

// Scored categories.
const (
	Correctness         = "Correctness"
	ClarityStructure    = "Clarity & Structure"
	Completeness        = "Completeness"
	Relevance           = "Relevance"
	ConfidenceTone      = "Confidence & Tone"
	CommunicationSkills = "Communication Skills"
)

// Text sections.
const (
	OverallFeedbackSummary = "Overall Feedback Summary"
	ModelAnswer            = "Model Answer"
	ImprovementSuggestions = "Improvement Suggestions"
	KeyPoints              = "Key Points"
	Rating                 = "Rating"
	Suggestion             = "Suggestion"
)

// Categories lists the six scored categories in display order.
var Categories = []string{
	Correctness,
	ClarityStructure,
	Completeness,
	Relevance,
	ConfidenceTone,
	CommunicationSkills,
}

// Sections lists the text sections in the order the model is asked for them.
var Sections = []string{
	OverallFeedbackSummary,
	ModelAnswer,
	ImprovementSuggestions,
	KeyPoints,
	Rating,
	Suggestion,
}

// categoryMarkers is checked in order; the first substring found decides.
var categoryMarkers = []struct {
	marker   string
	category string
}{
	{"clarity", ClarityStructure},
	{"confidence", ConfidenceTone},
	{"communication", CommunicationSkills},
	{"correctness", Correctness},
	{"completeness", Completeness},
	{"relevance", Relevance},
}

// CanonicalCategory folds a free-text label into one of Categories.
// The second return value is false when the label names no known category.
func CanonicalCategory(label string) (string, bool) {
	lower := strings.ToLower(label)
	for _, m := range categoryMarkers {
		if strings.Contains(lower, m.marker) {
			return m.category, true
		}
	}
	return "", false
}

// Ratings are the values the model is asked to choose from.
var Ratings = []string{"Excellent", "Good", "Satisfactory", "Needs Improvement", "Poor"}

// CanonicalRating returns the matching entry of Ratings when text starts with
// one, otherwise the trimmed text itself.
func CanonicalRating(text string) string {
	trimmed := strings.Trim(strings.TrimSpace(text), "[]*. ")
	lower := strings.ToLower(trimmed)
	for _, r := range Ratings {
		candidate := strings.ToLower(r)
		if lower == candidate {
			return r
		}
		if rest, ok := strings.CutPrefix(lower, candidate); ok && !startsWithLetter(rest) {
			return r
		}
	}
	return strings.TrimSpace(text)
}

func startsWithLetter(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c >= 'a' && c <= 'z'
}
