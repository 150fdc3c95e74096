package evaluation

import (
	"regexp"
	"strconv"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ExtractScore returns the first number found in a scored string such as
// "7/10". Missing or unparseable scores count as 0.
func ExtractScore(s string) float64 {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

// CategoryScore is one scored category line.
type CategoryScore struct {
	Score       string `json:"score" mapstructure:"score"`
	Explanation string `json:"explanation" mapstructure:"explanation"`
}

// Value is the numeric part of Score.
func (c CategoryScore) Value() float64 {
	return ExtractScore(c.Score)
}

// Scores maps canonical category names to their scores. Only categories the
// model actually produced are present.
type Scores map[string]CategoryScore

// Value returns the numeric score of category, 0 when absent.
func (s Scores) Value(category string) float64 {
	return s[category].Value()
}

// Recognized reports whether at least one canonical category is present.
func (s Scores) Recognized() bool {
	for _, c := range Categories {
		if _, ok := s[c]; ok {
			return true
		}
	}
	return false
}

// Mean averages all six categories, counting missing ones as 0.
func (s Scores) Mean() float64 {
	var sum float64
	for _, c := range Categories {
		sum += s.Value(c)
	}
	return sum / float64(len(Categories))
}

// Filled returns a copy holding all six categories, "0/10" for the ones the
// model omitted.
func (s Scores) Filled() Scores {
	out := make(Scores, len(Categories))
	for _, c := range Categories {
		score, ok := s[c]
		if !ok {
			score = CategoryScore{Score: "0/10"}
		}
		out[c] = score
	}
	return out
}
