package evaluation

import (
	"regexp"
	"strings"
)

// scoredLine matches "• Label: 7/10 – explanation" with an optional bullet
// and an optional dash before the explanation.
var scoredLine = regexp.MustCompile(`^\s*(?:[•*\-]\s*)?(.+?):\s*(\d+)\s*/\s*10\s*[–—-]?\s*(.*)$`)

var sectionHeaders = []struct {
	prefix  string
	section string
}{
	{"overall feedback", OverallFeedbackSummary},
	{"model answer", ModelAnswer},
	{"improvement suggestions", ImprovementSuggestions},
	{"key points", KeyPoints},
	{"rating", Rating},
	{"suggestion", Suggestion},
}

// Result is the outcome of parsing one evaluation text.
type Result struct {
	// Scores holds lines whose label folded into a known category.
	Scores Scores
	// Unrecognized holds scored lines with unknown labels, keyed by the raw
	// label. They never reach records.
	Unrecognized map[string]CategoryScore
	// Sections holds non-empty text sections keyed by their canonical name.
	Sections map[string]string
}

// Parse reads model output line by line. It never fails: text that matches
// nothing is skipped and the worst case is an empty Result.
func Parse(raw string) *Result {
	res := &Result{
		Scores:       Scores{},
		Unrecognized: map[string]CategoryScore{},
		Sections:     map[string]string{},
	}

	buffers := map[string]*strings.Builder{}
	current := ""

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if m := scoredLine.FindStringSubmatch(line); m != nil {
			current = ""
			score := CategoryScore{
				Score:       m[2] + "/10",
				Explanation: strings.TrimSpace(m[3]),
			}
			if category, ok := CanonicalCategory(m[1]); ok {
				res.Scores[category] = score
			} else {
				res.Unrecognized[strings.Trim(m[1], " *")] = score
			}
			continue
		}

		if section, seed, ok := matchHeader(line); ok {
			current = section
			b := &strings.Builder{}
			b.WriteString(seed)
			buffers[section] = b
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			current = ""
			continue
		}

		if current == "" {
			continue
		}

		b := buffers[current]
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(trimmed)
	}

	for section, b := range buffers {
		if text := strings.TrimSpace(b.String()); text != "" {
			res.Sections[section] = text
		}
	}

	return res
}

// matchHeader reports whether line opens a text section and returns the text
// following the first colon as the section seed.
func matchHeader(line string) (string, string, bool) {
	head := strings.TrimLeft(line, " \t*#")
	lower := strings.ToLower(head)

	for _, h := range sectionHeaders {
		if !strings.HasPrefix(lower, h.prefix) {
			continue
		}
		seed := ""
		if _, after, found := strings.Cut(head, ":"); found {
			seed = strings.TrimSpace(strings.TrimLeft(after, "* "))
		}
		return h.section, seed, true
	}

	return "", "", false
}

// Empty reports whether nothing usable was parsed.
func (r *Result) Empty() bool {
	return len(r.Scores) == 0 && len(r.Sections) == 0
}

// Map returns the partial mapping keyed by canonical category and section
// names. Category values are CategoryScore, section values are strings.
func (r *Result) Map() map[string]any {
	out := make(map[string]any, len(r.Scores)+len(r.Sections))
	for category, score := range r.Scores {
		out[category] = score
	}
	for section, text := range r.Sections {
		out[section] = text
	}
	return out
}

// Record builds the evaluation record of one answered question.
func (r *Result) Record(question, answer string) Record {
	rec := Record{
		Question:               question,
		UserResponse:           answer,
		Scores:                 Scores{},
		OverallFeedback:        r.Sections[OverallFeedbackSummary],
		ModelAnswer:            r.Sections[ModelAnswer],
		ImprovementSuggestions: r.Sections[ImprovementSuggestions],
		KeyPoints:              r.Sections[KeyPoints],
		Suggestion:             r.Sections[Suggestion],
	}
	if rating, ok := r.Sections[Rating]; ok {
		rec.Rating = CanonicalRating(rating)
	}
	for category, score := range r.Scores {
		rec.Scores[category] = score
	}
	return rec
}

// Analysis builds the session-level analysis.
func (r *Result) Analysis() Analysis {
	a := Analysis{
		Scores:                 Scores{},
		OverallFeedbackSummary: r.Sections[OverallFeedbackSummary],
	}
	for category, score := range r.Scores {
		a.Scores[category] = score
	}
	return a
}
