package evaluation

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Record is the structured evaluation of a single answer.
type Record struct {
	Question               string `json:"question"`
	UserResponse           string `json:"userResponse"`
	Scores                 Scores `json:"scores"`
	OverallFeedback        string `json:"overallFeedback,omitempty"`
	ModelAnswer            string `json:"modelAnswer,omitempty"`
	ImprovementSuggestions string `json:"improvementSuggestions,omitempty"`
	KeyPoints              string `json:"keyPoints,omitempty"`
	Rating                 string `json:"rating,omitempty"`
	Suggestion             string `json:"suggestion,omitempty"`
}

// Evaluated reports whether the record carries at least one recognised score.
func (r Record) Evaluated() bool {
	return r.Scores.Recognized()
}

// Analysis is the session-level evaluation attached when an interview ends.
type Analysis struct {
	Scores                 Scores `json:"scores"`
	OverallFeedbackSummary string `json:"overallFeedbackSummary,omitempty"`
}

// wireRecord is the loose shape clients send: parser section names as keys,
// category objects under whatever label the client used.
type wireRecord struct {
	OverallFeedback        string         `mapstructure:"Overall Feedback Summary"`
	ModelAnswer            string         `mapstructure:"Model Answer"`
	ImprovementSuggestions string         `mapstructure:"Improvement Suggestions"`
	KeyPoints              string         `mapstructure:"Key Points"`
	Rating                 string         `mapstructure:"Rating"`
	Suggestion             string         `mapstructure:"Suggestion"`
	Rest                   map[string]any `mapstructure:",remain"`
}

// FromMap decodes an evaluation mapping (the shape of Result.Map) supplied by
// an external caller. Category labels are folded like parsed ones and
// unknown keys are dropped.
func FromMap(question, answer string, m map[string]any) (Record, error) {
	var wire wireRecord
	if err := decode(m, &wire); err != nil {
		return Record{}, fmt.Errorf("decode evaluation: %w", err)
	}

	rec := Record{
		Question:               question,
		UserResponse:           answer,
		Scores:                 Scores{},
		OverallFeedback:        strings.TrimSpace(wire.OverallFeedback),
		ModelAnswer:            strings.TrimSpace(wire.ModelAnswer),
		ImprovementSuggestions: strings.TrimSpace(wire.ImprovementSuggestions),
		KeyPoints:              strings.TrimSpace(wire.KeyPoints),
		Suggestion:             strings.TrimSpace(wire.Suggestion),
	}
	if wire.Rating != "" {
		rec.Rating = CanonicalRating(wire.Rating)
	}

	for label, raw := range wire.Rest {
		category, ok := CanonicalCategory(label)
		if !ok {
			continue
		}

		var score CategoryScore
		switch v := raw.(type) {
		case string:
			score.Score = v
		case float64, int:
			score.Score = fmt.Sprint(v)
		default:
			if err := decode(raw, &score); err != nil {
				return Record{}, fmt.Errorf("decode %q score: %w", label, err)
			}
		}
		score.Score = normalizeScore(score.Score)
		score.Explanation = strings.TrimSpace(score.Explanation)
		rec.Scores[category] = score
	}

	return rec, nil
}

func decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// normalizeScore turns "7" or "7 / 10" into "7/10"; anything without a
// number is kept as given.
func normalizeScore(s string) string {
	s = strings.TrimSpace(s)
	n := numberPattern.FindString(s)
	if n == "" {
		return s
	}
	return n + "/10"
}
