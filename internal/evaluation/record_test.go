package evaluation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{in: "7/10", want: 7},
		{in: " 8.5 / 10", want: 8.5},
		{in: "score: 4", want: 4},
		{in: "", want: 0},
		{in: "n/a", want: 0},
	}

	for _, tt := range tests {
		if got := ExtractScore(tt.in); got != tt.want {
			t.Fatalf("ExtractScore(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalRating(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Good":                         "Good",
		"[needs improvement]":          "Needs Improvement",
		"Excellent. Strong answer":     "Excellent",
		"poor":                         "Poor",
		"Goodish":                      "Goodish",
		"somewhere between good & bad": "somewhere between good & bad",
	}

	for in, want := range tests {
		if got := CanonicalRating(in); got != want {
			t.Fatalf("CanonicalRating(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromMapMatchesParsedRecord(t *testing.T) {
	t.Parallel()

	res := Parse(sampleEvaluation)

	want := res.Record("q", "a")
	got, err := FromMap("q", "a", res.Map())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded record differs (-want +got):\n%s", diff)
	}
}

func TestFromMapLooseInput(t *testing.T) {
	t.Parallel()

	input := map[string]any{
		"correctness":              map[string]any{"score": 6, "explanation": " ok "},
		"Clarity and Structure":    "5",
		"Relevance":                map[string]any{"score": "7 / 10"},
		"Creativity":               map[string]any{"score": "10/10"},
		"overall feedback summary": "Fine overall.",
		"Rating":                   "needs improvement",
	}

	got, err := FromMap("q", "a", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantScores := Scores{
		Correctness:      {Score: "6/10", Explanation: "ok"},
		ClarityStructure: {Score: "5/10"},
		Relevance:        {Score: "7/10"},
	}
	if diff := cmp.Diff(wantScores, got.Scores); diff != "" {
		t.Fatalf("unexpected scores (-want +got):\n%s", diff)
	}
	if got.OverallFeedback != "Fine overall." {
		t.Fatalf("unexpected overall feedback: %q", got.OverallFeedback)
	}
	if got.Rating != "Needs Improvement" {
		t.Fatalf("unexpected rating: %q", got.Rating)
	}
}

func TestFromMapRejectsMalformedScore(t *testing.T) {
	t.Parallel()

	_, err := FromMap("q", "a", map[string]any{
		"Correctness": []string{"not", "a", "score"},
	})
	if err == nil {
		t.Fatal("expected decode error")
	}
}
