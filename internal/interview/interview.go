// Package interview holds the persisted shape of a mock interview.
package interview

import (
	"time"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/evaluation"
)

// State is the lifecycle position of an interview.
type State string

const (
	StateCreated        State = "created"
	StateIntroduced     State = "introduced"
	StateAwaitingAnswer State = "awaiting_answer"
	StateAnswerReceived State = "answer_received"
	StateEnded          State = "ended"
)

// AcceptsAnswer reports whether an answer may be submitted in this state.
func (s State) AcceptsAnswer() bool {
	return s == StateIntroduced || s == StateAwaitingAnswer
}

// Interview is one mock interview owned by a user.
type Interview struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Company   string     `json:"company"`
	Role      string     `json:"role"`
	Level     string     `json:"level"`
	State     State      `json:"state"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`

	History  History              `json:"turns"`
	Records  []evaluation.Record  `json:"questions"`
	Analysis *evaluation.Analysis `json:"analysis,omitempty"`
}

// Clone returns a copy that shares no mutable state with i.
func (i *Interview) Clone() *Interview {
	if i == nil {
		return nil
	}

	out := *i
	out.History = i.History.Clone()

	if i.EndedAt != nil {
		ended := *i.EndedAt
		out.EndedAt = &ended
	}

	if i.Records != nil {
		out.Records = make([]evaluation.Record, len(i.Records))
		for idx, rec := range i.Records {
			rec.Scores = cloneScores(rec.Scores)
			out.Records[idx] = rec
		}
	}

	if i.Analysis != nil {
		analysis := *i.Analysis
		analysis.Scores = cloneScores(analysis.Scores)
		out.Analysis = &analysis
	}

	return &out
}

// UserAnswers returns the content of every user turn in order.
func (i *Interview) UserAnswers() []string {
	var answers []string
	for _, t := range i.History {
		if t.Role == ai.RoleUser {
			answers = append(answers, t.Content)
		}
	}
	return answers
}

// LastQuestion is the most recent assistant turn, empty if none.
func (i *Interview) LastQuestion() string {
	for idx := len(i.History) - 1; idx >= 0; idx-- {
		if i.History[idx].Role == ai.RoleAssistant {
			return i.History[idx].Content
		}
	}
	return ""
}

func cloneScores(s evaluation.Scores) evaluation.Scores {
	if s == nil {
		return nil
	}
	out := make(evaluation.Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
