package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/evaluation"
	"github.com/spigell/mock-interviewer/internal/interview"
	"github.com/spigell/mock-interviewer/internal/utils"
)

const (
	busyAttempts = 5
	busyBackoff  = 50 * time.Millisecond
	busyMaxWait  = time.Second
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLite opens (and if needed creates) the database at dbPath.
func NewSQLite(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		company TEXT NOT NULL,
		role TEXT NOT NULL,
		level TEXT NOT NULL,
		state TEXT NOT NULL,
		analysis_json TEXT,
		created_at INTEGER NOT NULL,
		ended_at INTEGER,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interviews_user ON interviews(user_id, created_at);

	CREATE TABLE IF NOT EXISTS turns (
		interview_id TEXT NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (interview_id, seq)
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		interview_id TEXT NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		record_json TEXT NOT NULL,
		PRIMARY KEY (interview_id, seq)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveInterview upserts the interview row and appends turns and records that
// are not stored yet.
func (s *SQLiteStore) SaveInterview(ctx context.Context, iv *interview.Interview) error {
	if iv == nil || iv.ID == "" {
		return errors.New("interview with id is required")
	}

	var analysis sql.NullString
	if iv.Analysis != nil {
		raw, err := json.Marshal(iv.Analysis)
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
		analysis = sql.NullString{String: string(raw), Valid: true}
	}

	records := make([]string, len(iv.Records))
	for i, rec := range iv.Records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal evaluation %d: %w", i, err)
		}
		records[i] = string(raw)
	}

	return s.withBusyRetry(ctx, "save interview", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
		INSERT INTO interviews (id, user_id, company, role, level, state, analysis_json, created_at, ended_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			analysis_json = excluded.analysis_json,
			ended_at = excluded.ended_at,
			updated_at = excluded.updated_at`,
			iv.ID, iv.UserID, iv.Company, iv.Role, iv.Level, string(iv.State), analysis,
			iv.CreatedAt.UnixMilli(), nullableTime(iv.EndedAt), time.Now().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("upsert interview: %w", err)
		}

		for seq, turn := range iv.History {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO turns (interview_id, seq, role, content) VALUES (?, ?, ?, ?)`,
				iv.ID, seq, string(turn.Role), turn.Content,
			); err != nil {
				return fmt.Errorf("insert turn %d: %w", seq, err)
			}
		}

		for seq, raw := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO evaluations (interview_id, seq, record_json) VALUES (?, ?, ?)`,
				iv.ID, seq, raw,
			); err != nil {
				return fmt.Errorf("insert evaluation %d: %w", seq, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// GetInterview loads one interview with its turns and records.
func (s *SQLiteStore) GetInterview(ctx context.Context, id string) (*interview.Interview, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, company, role, level, state, analysis_json, created_at, ended_at
		FROM interviews WHERE id = ?`, id)

	iv, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadChildren(ctx, iv); err != nil {
		return nil, err
	}

	return iv, nil
}

// ListInterviews returns every interview of a user, oldest first.
func (s *SQLiteStore) ListInterviews(ctx context.Context, userID string) ([]*interview.Interview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, company, role, level, state, analysis_json, created_at, ended_at
		FROM interviews WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query interviews: %w", err)
	}
	defer rows.Close()

	var interviews []*interview.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interviews: %w", err)
	}
	rows.Close()

	for _, iv := range interviews {
		if err := s.loadChildren(ctx, iv); err != nil {
			return nil, err
		}
	}

	return interviews, nil
}

// DeleteInterview removes an interview owned by userID.
func (s *SQLiteStore) DeleteInterview(ctx context.Context, userID, id string) error {
	return s.withBusyRetry(ctx, "delete interview", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, `DELETE FROM interviews WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete interview: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}

		for _, table := range []string{"turns", "evaluations"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE interview_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) loadChildren(ctx context.Context, iv *interview.Interview) error {
	turnRows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM turns WHERE interview_id = ? ORDER BY seq`, iv.ID)
	if err != nil {
		return fmt.Errorf("query turns: %w", err)
	}
	defer turnRows.Close()

	for turnRows.Next() {
		var role, content string
		if err := turnRows.Scan(&role, &content); err != nil {
			return fmt.Errorf("scan turn: %w", err)
		}
		iv.History = append(iv.History, ai.Turn{Role: ai.Role(role), Content: content})
	}
	if err := turnRows.Err(); err != nil {
		return fmt.Errorf("iterate turns: %w", err)
	}

	evalRows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM evaluations WHERE interview_id = ? ORDER BY seq`, iv.ID)
	if err != nil {
		return fmt.Errorf("query evaluations: %w", err)
	}
	defer evalRows.Close()

	for evalRows.Next() {
		var raw string
		if err := evalRows.Scan(&raw); err != nil {
			return fmt.Errorf("scan evaluation: %w", err)
		}
		var rec evaluation.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return fmt.Errorf("decode evaluation: %w", err)
		}
		iv.Records = append(iv.Records, rec)
	}
	if err := evalRows.Err(); err != nil {
		return fmt.Errorf("iterate evaluations: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInterview(row scanner) (*interview.Interview, error) {
	var (
		iv        interview.Interview
		state     string
		analysis  sql.NullString
		createdAt int64
		endedAt   sql.NullInt64
	)

	err := row.Scan(&iv.ID, &iv.UserID, &iv.Company, &iv.Role, &iv.Level, &state, &analysis, &createdAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan interview row: %w", err)
	}

	iv.State = interview.State(state)
	iv.CreatedAt = time.UnixMilli(createdAt).UTC()
	if endedAt.Valid {
		ended := time.UnixMilli(endedAt.Int64).UTC()
		iv.EndedAt = &ended
	}
	if analysis.Valid && analysis.String != "" {
		var a evaluation.Analysis
		if err := json.Unmarshal([]byte(analysis.String), &a); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
		iv.Analysis = &a
	}

	return &iv, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

// withBusyRetry retries op while SQLite reports the database as locked.
func (s *SQLiteStore) withBusyRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= busyAttempts; attempt++ {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}

		delay := utils.Backoff(busyBackoff, busyMaxWait, attempt)
		s.logger.Debug("database busy, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		if waitErr := utils.WaitFor(ctx, delay); waitErr != nil {
			return waitErr
		}
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
