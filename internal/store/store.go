package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
)

var ErrRunNotFound = errors.New("run not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultListLimit = 50
	MaxListLimit     = 500
)

// RunRecord is one row of the runs table. Pending rows have no FinishedAt.
type RunRecord struct {
	RunID        string                   `json:"run_id"`
	Status       models.RunStatus         `json:"status"`
	SampleCount  int                      `json:"sample_count"`
	StartedAt    time.Time                `json:"started_at"`
	FinishedAt   *time.Time               `json:"finished_at,omitempty"`
	Result       *models.EvaluationResult `json:"result,omitempty"`
	ErrorKind    string                   `json:"error_kind,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
}

// ListFilter narrows ListRuns. Zero values mean "any status" and the
// default limit.
type ListFilter struct {
	Status models.RunStatus
	Limit  int
}

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, run RunRecord) error
	FinishRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, runID string) (RunRecord, error)
	ListRuns(ctx context.Context, filter ListFilter) ([]RunRecord, error)
	Close() error
}

// Open returns the store for driver, or nil when driver is empty.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "":
		return nil, nil
	case DriverSQLite:
		s, err := NewSQLiteStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

func marshalResult(result *models.EvaluationResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

func unmarshalResult(data []byte) (*models.EvaluationResult, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result models.EvaluationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}
