package evaluation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleEvaluation = `• Correctness: 7/10 — Mentions the right libraries.
• Clarity & Structure: 6/10 – Jumps between topics.
• Completeness: 5/10 - Skips model validation.
• Relevance: 8/10 — On topic.
• Confidence & Tone: 7/10 — Calm delivery.
• Communication Skills: 6/10 — Could be more concise.

Overall Feedback: Solid grasp of the toolkit
but light on evaluation.

Rating: Good
Suggestion: Walk through how you validated the model.
Model Answer: I would load the data with pandas,
engineer features and fit a scikit-learn pipeline.
Improvement Suggestions: Mention cross-validation.
Key Points: pandas, sklearn, validation`

func TestParseFullEvaluation(t *testing.T) {
	t.Parallel()

	res := Parse(sampleEvaluation)

	wantScores := Scores{
		Correctness:         {Score: "7/10", Explanation: "Mentions the right libraries."},
		ClarityStructure:    {Score: "6/10", Explanation: "Jumps between topics."},
		Completeness:        {Score: "5/10", Explanation: "Skips model validation."},
		Relevance:           {Score: "8/10", Explanation: "On topic."},
		ConfidenceTone:      {Score: "7/10", Explanation: "Calm delivery."},
		CommunicationSkills: {Score: "6/10", Explanation: "Could be more concise."},
	}
	if diff := cmp.Diff(wantScores, res.Scores); diff != "" {
		t.Fatalf("unexpected scores (-want +got):\n%s", diff)
	}

	wantSections := map[string]string{
		OverallFeedbackSummary: "Solid grasp of the toolkit but light on evaluation.",
		Rating:                 "Good",
		Suggestion:             "Walk through how you validated the model.",
		ModelAnswer:            "I would load the data with pandas, engineer features and fit a scikit-learn pipeline.",
		ImprovementSuggestions: "Mention cross-validation.",
		KeyPoints:              "pandas, sklearn, validation",
	}

	if diff := cmp.Diff(wantSections, res.Sections); diff != "" {
		t.Fatalf("unexpected sections (-want +got):\n%s", diff)
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i, category := range Categories {
		fmt.Fprintf(&b, "• %s: %d/10 — reason %d\n", category, i+3, i)
	}
	b.WriteString("Overall Feedback: summary text\n")

	res := Parse(b.String())

	for i, category := range Categories {
		got, ok := res.Scores[category]
		if !ok {
			t.Fatalf("category %q missing", category)
		}
		if want := fmt.Sprintf("%d/10", i+3); got.Score != want {
			t.Fatalf("%s score = %q, want %q", category, got.Score, want)
		}
		if want := fmt.Sprintf("reason %d", i); got.Explanation != want {
			t.Fatalf("%s explanation = %q, want %q", category, got.Explanation, want)
		}
	}

	if got := res.Sections[OverallFeedbackSummary]; got != "summary text" {
		t.Fatalf("unexpected overall feedback: %q", got)
	}
}

func TestParseGracefulDegradation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "prose", raw: "The candidate did fine overall.\nNothing else to add."},
		{name: "bad score", raw: "Correctness: seven out of ten"},
		{name: "whitespace", raw: "\n\n   \n\t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := Parse(tt.raw)
			if !res.Empty() {
				t.Fatalf("expected empty result, got %+v", res.Map())
			}
			if len(res.Map()) != 0 {
				t.Fatalf("expected empty map, got %+v", res.Map())
			}
		})
	}
}

func TestParseFoldsCategoryLabels(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"- Clarity and Structure: 4/10 - rambling",
		"**Confidence**: 9/10",
		"* communication: 3 / 10 – mumbled",
		"Creativity: 8/10 – novel idea",
	}, "\n")

	res := Parse(raw)

	want := Scores{
		ClarityStructure:    {Score: "4/10", Explanation: "rambling"},
		ConfidenceTone:      {Score: "9/10"},
		CommunicationSkills: {Score: "3/10", Explanation: "mumbled"},
	}
	if diff := cmp.Diff(want, res.Scores); diff != "" {
		t.Fatalf("unexpected scores (-want +got):\n%s", diff)
	}

	if _, ok := res.Unrecognized["Creativity"]; !ok {
		t.Fatalf("expected unrecognized label to be kept aside, got %+v", res.Unrecognized)
	}
	if _, ok := res.Map()["Creativity"]; ok {
		t.Fatal("unrecognized label leaked into the mapping")
	}
}

func TestParseBlankLineClosesSection(t *testing.T) {
	t.Parallel()

	raw := "Overall Feedback: first part\ncontinued here\n\nstray paragraph that is not captured"

	res := Parse(raw)
	if got := res.Sections[OverallFeedbackSummary]; got != "first part continued here" {
		t.Fatalf("unexpected overall feedback: %q", got)
	}
}

func TestParseScoredLineClosesSection(t *testing.T) {
	t.Parallel()

	raw := "Key Points: pandas\nRelevance: 6/10 - fine\nnot a key point"

	res := Parse(raw)
	if got := res.Sections[KeyPoints]; got != "pandas" {
		t.Fatalf("unexpected key points: %q", got)
	}
	if got := res.Scores[Relevance].Score; got != "6/10" {
		t.Fatalf("unexpected relevance score: %q", got)
	}
}

func TestParseHeaderWithoutSeed(t *testing.T) {
	t.Parallel()

	raw := "## Model Answer\nUse a pipeline.\n**Improvement Suggestions:** add tests"

	res := Parse(raw)
	if got := res.Sections[ModelAnswer]; got != "Use a pipeline." {
		t.Fatalf("unexpected model answer: %q", got)
	}
	if got := res.Sections[ImprovementSuggestions]; got != "add tests" {
		t.Fatalf("unexpected improvement suggestions: %q", got)
	}
}

func TestResultRecord(t *testing.T) {
	t.Parallel()

	rec := Parse(sampleEvaluation).Record("Tell me about a model you built", "I used pandas and sklearn")

	if rec.Question != "Tell me about a model you built" || rec.UserResponse != "I used pandas and sklearn" {
		t.Fatalf("unexpected question/answer: %+v", rec)
	}
	if rec.Rating != "Good" {
		t.Fatalf("unexpected rating: %q", rec.Rating)
	}
	if !rec.Evaluated() {
		t.Fatal("expected record to be evaluated")
	}
	if got := rec.Scores.Mean(); got != (7+6+5+8+7+6)/6.0 {
		t.Fatalf("unexpected mean: %v", got)
	}
}

func TestResultRecordFillsMissingCategories(t *testing.T) {
	t.Parallel()

	rec := Parse("Correctness: 9/10 - right").Record("q", "a")

	filled := rec.Scores.Filled()
	if len(filled) != len(Categories) {
		t.Fatalf("expected %d categories, got %d", len(Categories), len(filled))
	}
	if got := filled[Relevance].Score; got != "0/10" {
		t.Fatalf("expected missing category to be 0/10, got %q", got)
	}
	if len(rec.Scores) != 1 {
		t.Fatalf("filling must not touch the record, got %+v", rec.Scores)
	}
}
