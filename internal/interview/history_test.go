package interview

import (
	"testing"
	"time"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/evaluation"
)

func TestHistoryAppendKeepsSnapshots(t *testing.T) {
	t.Parallel()

	base := History{}.Append(ai.Turn{Role: ai.RoleSystem, Content: "setup"})
	first := base.Append(ai.Turn{Role: ai.RoleUser, Content: "one"})
	second := base.Append(ai.Turn{Role: ai.RoleUser, Content: "two"})

	if len(base) != 1 {
		t.Fatalf("base history changed: %+v", base)
	}
	if first[1].Content != "one" || second[1].Content != "two" {
		t.Fatalf("snapshots overwrote each other: %+v / %+v", first, second)
	}
}

func TestHistoryTruncateDoesNotShareTail(t *testing.T) {
	t.Parallel()

	h := History{
		{Role: ai.RoleSystem, Content: "setup"},
		{Role: ai.RoleAssistant, Content: "hello"},
		{Role: ai.RoleUser, Content: "hi"},
	}

	prefix := h.Truncate(2)
	_ = append(prefix, ai.Turn{Role: ai.RoleUser, Content: "replaced"})

	if h[2].Content != "hi" {
		t.Fatalf("append to a truncated prefix rewrote the original: %+v", h)
	}
	if got := len(h.Truncate(10)); got != 3 {
		t.Fatalf("expected truncate to clamp, got %d", got)
	}
}

func TestInterviewCloneIsDeep(t *testing.T) {
	t.Parallel()

	ended := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	orig := &Interview{
		ID:      "iv-1",
		EndedAt: &ended,
		History: History{{Role: ai.RoleUser, Content: "answer"}},
		Records: []evaluation.Record{{
			Scores: evaluation.Scores{evaluation.Correctness: {Score: "7/10"}},
		}},
		Analysis: &evaluation.Analysis{Scores: evaluation.Scores{evaluation.Relevance: {Score: "5/10"}}},
	}

	cp := orig.Clone()
	cp.History[0].Content = "changed"
	cp.Records[0].Scores[evaluation.Correctness] = evaluation.CategoryScore{Score: "1/10"}
	cp.Analysis.Scores[evaluation.Relevance] = evaluation.CategoryScore{Score: "1/10"}
	*cp.EndedAt = ended.Add(time.Hour)

	if orig.History[0].Content != "answer" {
		t.Fatal("history shared")
	}
	if orig.Records[0].Scores[evaluation.Correctness].Score != "7/10" {
		t.Fatal("record scores shared")
	}
	if orig.Analysis.Scores[evaluation.Relevance].Score != "5/10" {
		t.Fatal("analysis scores shared")
	}
	if !orig.EndedAt.Equal(ended) {
		t.Fatal("end time shared")
	}
}

func TestInterviewUserAnswersAndLastQuestion(t *testing.T) {
	t.Parallel()

	iv := &Interview{History: History{
		{Role: ai.RoleSystem, Content: "setup"},
		{Role: ai.RoleAssistant, Content: "q1"},
		{Role: ai.RoleUser, Content: "a1"},
		{Role: ai.RoleAssistant, Content: "q2"},
		{Role: ai.RoleUser, Content: "a2"},
	}}

	answers := iv.UserAnswers()
	if len(answers) != 2 || answers[0] != "a1" || answers[1] != "a2" {
		t.Fatalf("unexpected answers: %v", answers)
	}
	if got := iv.LastQuestion(); got != "q2" {
		t.Fatalf("unexpected last question: %q", got)
	}
}
