package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/evaluation"
	"github.com/spigell/mock-interviewer/internal/interview"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLite(filepath.Join(t.TempDir(), "data", "interviews.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleInterview(id, userID string, created time.Time) *interview.Interview {
	return &interview.Interview{
		ID:        id,
		UserID:    userID,
		Company:   "Acme",
		Role:      "Data Scientist",
		Level:     "Senior",
		State:     interview.StateCreated,
		CreatedAt: created,
		History: interview.History{
			{Role: ai.RoleSystem, Content: "This is a mock interview for a Data Scientist position at Acme, level: Senior."},
		},
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	iv := sampleInterview("iv-1", "user-1", created)
	if err := store.SaveInterview(ctx, iv); err != nil {
		t.Fatalf("save: %v", err)
	}

	iv.State = interview.StateAwaitingAnswer
	iv.History = iv.History.Append(
		ai.Turn{Role: ai.RoleAssistant, Content: "Tell me about a model you built."},
		ai.Turn{Role: ai.RoleUser, Content: "I used pandas and sklearn"},
	)
	iv.Records = append(iv.Records, evaluation.Record{
		Question:     "Tell me about a model you built.",
		UserResponse: "I used pandas and sklearn",
		Scores:       evaluation.Scores{evaluation.Correctness: {Score: "7/10", Explanation: "ok"}},
		Rating:       "Good",
	})
	ended := created.Add(time.Hour)
	iv.EndedAt = &ended
	iv.Analysis = &evaluation.Analysis{
		Scores:                 evaluation.Scores{evaluation.Relevance: {Score: "8/10"}},
		OverallFeedbackSummary: "Solid.",
	}

	if err := store.SaveInterview(ctx, iv); err != nil {
		t.Fatalf("save again: %v", err)
	}
	// A retried save must not duplicate anything.
	if err := store.SaveInterview(ctx, iv); err != nil {
		t.Fatalf("retry save: %v", err)
	}

	got, err := store.GetInterview(ctx, "iv-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if diff := cmp.Diff(iv, got); diff != "" {
		t.Fatalf("stored interview differs (-want +got):\n%s", diff)
	}
}

func TestSQLiteListIsPerUserAndOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for _, iv := range []*interview.Interview{
		sampleInterview("late", "user-1", base.Add(48*time.Hour)),
		sampleInterview("early", "user-1", base),
		sampleInterview("other", "user-2", base.Add(time.Hour)),
	} {
		if err := store.SaveInterview(ctx, iv); err != nil {
			t.Fatalf("save %s: %v", iv.ID, err)
		}
	}

	list, err := store.ListInterviews(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(list) != 2 || list[0].ID != "early" || list[1].ID != "late" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if len(list[0].History) != 1 {
		t.Fatalf("expected turns to be loaded, got %+v", list[0].History)
	}

	empty, err := store.ListInterviews(ctx, "nobody")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no interviews, got %d", len(empty))
	}
}

func TestSQLiteDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveInterview(ctx, sampleInterview("iv-1", "user-1", time.Now().UTC())); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.DeleteInterview(ctx, "user-2", "iv-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}

	if err := store.DeleteInterview(ctx, "user-1", "iv-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.GetInterview(ctx, "iv-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLitePing(t *testing.T) {
	store := newTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
