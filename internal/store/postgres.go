package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	sample_count  INTEGER NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ,
	result_json   JSONB,
	error_kind    TEXT,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS runs_status_started ON runs (status, started_at);
`

// PostgresStore keeps run history in PostgreSQL through a pgx pool.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate runs table: %w", err)
	}

	return &PostgresStore{Pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run RunRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO runs (run_id, status, sample_count, started_at)
		VALUES ($1, $2, $3, $4)
	`, run.RunID, string(run.Status), run.SampleCount, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, run RunRecord) error {
	resultJSON, err := marshalResult(run.Result)
	if err != nil {
		return err
	}

	tag, err := s.Pool.Exec(ctx, `
		UPDATE runs
		SET status = $2, finished_at = $3, result_json = $4, error_kind = $5, error_message = $6
		WHERE run_id = $1
	`,
		run.RunID,
		string(run.Status),
		run.FinishedAt,
		resultJSON,
		nullableString(run.ErrorKind),
		nullableString(run.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT run_id, status, sample_count, started_at, finished_at, result_json, error_kind, error_message
		FROM runs WHERE run_id = $1
	`, runID)

	run, err := scanPGRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter ListFilter) ([]RunRecord, error) {
	query := `
		SELECT run_id, status, sample_count, started_at, finished_at, result_json, error_kind, error_message
		FROM runs`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` WHERE status = $%d`, len(args))
	}
	args = append(args, filter.limit())
	query += fmt.Sprintf(` ORDER BY started_at DESC, run_id LIMIT $%d`, len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanPGRun(rows)
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

func scanPGRun(row pgx.Row) (RunRecord, error) {
	var (
		run          RunRecord
		status       string
		resultJSON   []byte
		errorKind    *string
		errorMessage *string
	)
	if err := row.Scan(&run.RunID, &status, &run.SampleCount, &run.StartedAt, &run.FinishedAt, &resultJSON, &errorKind, &errorMessage); err != nil {
		return RunRecord{}, err
	}

	run.Status = models.RunStatus(status)
	if errorKind != nil {
		run.ErrorKind = *errorKind
	}
	if errorMessage != nil {
		run.ErrorMessage = *errorMessage
	}

	var err error
	if run.Result, err = unmarshalResult(resultJSON); err != nil {
		return RunRecord{}, err
	}
	return run, nil
}
