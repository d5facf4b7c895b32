package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	sample_count  INTEGER NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT,
	result_json   BLOB,
	error_kind    TEXT,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS runs_status_started ON runs (status, started_at);
`

// SQLStore keeps run history in SQLite through database/sql.
type SQLStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent runs.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate runs table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) CreateRun(ctx context.Context, run RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, status, sample_count, started_at)
		VALUES (?, ?, ?, ?)
	`,
		run.RunID,
		string(run.Status),
		run.SampleCount,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *SQLStore) FinishRun(ctx context.Context, run RunRecord) error {
	resultJSON, err := marshalResult(run.Result)
	if err != nil {
		return err
	}

	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: formatTime(*run.FinishedAt), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, finished_at = ?, result_json = ?, error_kind = ?, error_message = ?
		WHERE run_id = ?
	`,
		string(run.Status),
		finished,
		resultJSON,
		nullableString(run.ErrorKind),
		nullableString(run.ErrorMessage),
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}
	return nil
}

func (s *SQLStore) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, status, sample_count, started_at, finished_at, result_json, error_kind, error_message
		FROM runs WHERE run_id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *SQLStore) ListRuns(ctx context.Context, filter ListFilter) ([]RunRecord, error) {
	query := `
		SELECT run_id, status, sample_count, started_at, finished_at, result_json, error_kind, error_message
		FROM runs`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC, run_id LIMIT ?`
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run          RunRecord
		status       string
		startedAt    string
		finishedAt   sql.NullString
		resultJSON   []byte
		errorKind    sql.NullString
		errorMessage sql.NullString
	)
	if err := row.Scan(&run.RunID, &status, &run.SampleCount, &startedAt, &finishedAt, &resultJSON, &errorKind, &errorMessage); err != nil {
		return RunRecord{}, err
	}

	run.Status = models.RunStatus(status)
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return RunRecord{}, err
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return RunRecord{}, err
		}
		run.FinishedAt = &t
	}
	if run.Result, err = unmarshalResult(resultJSON); err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

// Fixed-width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
