package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/scorer"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/store"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 10 << 20

var errNoStore = errors.New("run store is not configured")

// RequestExecutor runs one evaluation request.
type RequestExecutor interface {
	Execute(ctx context.Context, req intake.Request) (models.EvaluationResult, error)
}

type ThresholdSource interface {
	Current() policy.Thresholds
}

// RunReader is the read side of the run store.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (store.RunRecord, error)
	ListRuns(ctx context.Context, filter store.ListFilter) ([]store.RunRecord, error)
}

type Handler struct {
	executor   RequestExecutor
	thresholds ThresholdSource
	runs       RunReader
	version    string
	logger     *zerolog.Logger
}

// NewHandler builds the API handler. runs may be nil, in which case the run
// endpoints answer 503.
func NewHandler(executor RequestExecutor, thresholds ThresholdSource, runs RunReader, version string, logger *zerolog.Logger) *Handler {
	return &Handler{
		executor:   executor,
		thresholds: thresholds,
		runs:       runs,
		version:    version,
		logger:     logger,
	}
}

// POST /api/v1/evaluate
// Body: EvaluateRequest
// Returns: EvaluationResult
func (h *Handler) Evaluate(req *restful.Request, resp *restful.Response) {
	body, err := io.ReadAll(http.MaxBytesReader(resp.ResponseWriter, req.Request.Body, maxBodyBytes))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	evalRequest, err := intake.DecodeRequest(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Invalid evaluation request")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("request_id", evalRequest.RequestID).
		Str("scorer", evalRequest.Scorer).
		Int("samples", len(evalRequest.Samples)).
		Msg("Start evaluation")

	result, err := h.executor.Execute(req.Request.Context(), evalRequest)
	if err != nil {
		middleware.HandleError(resp, err, evaluateStatus(err))
		return
	}

	_ = resp.WriteHeaderAndEntity(http.StatusOK, result)
}

// evaluateStatus maps an Execute error to a response code. Anything that is
// not a request problem came out of scoring and is reported as 502.
func evaluateStatus(err error) int {
	var validationErr *intake.ValidationError
	var rangeErr *pipeline.ScoreRangeError
	var missingErr *policy.MetricMissingError

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, pipeline.ErrEmptyBatch),
		errors.Is(err, policy.ErrThresholdRange),
		errors.Is(err, policy.ErrDuplicateThreshold),
		errors.Is(err, models.ErrUnknownMetric):
		return http.StatusBadRequest
	case errors.Is(err, scorer.ErrUnknownScorer):
		return http.StatusNotFound
	case errors.As(err, &rangeErr), errors.As(err, &missingErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// GET /api/v1/thresholds
func (h *Handler) Thresholds(_ *restful.Request, resp *restful.Response) {
	current := policy.Default()
	if h.thresholds != nil {
		current = h.thresholds.Current()
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, ThresholdsResponse{Thresholds: current})
}

// GET /api/v1/runs/{run_id}
func (h *Handler) GetRun(req *restful.Request, resp *restful.Response) {
	if h.runs == nil {
		middleware.HandleError(resp, errNoStore, http.StatusServiceUnavailable)
		return
	}

	runID := req.PathParameter("run_id")
	run, err := h.runs.GetRun(req.Request.Context(), runID)
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		middleware.HandleError(resp, err, http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to load run")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	_ = resp.WriteHeaderAndEntity(http.StatusOK, run)
}

// GET /api/v1/runs?status=&limit=
func (h *Handler) ListRuns(req *restful.Request, resp *restful.Response) {
	if h.runs == nil {
		middleware.HandleError(resp, errNoStore, http.StatusServiceUnavailable)
		return
	}

	filter, err := parseListFilter(req.QueryParameter("status"), req.QueryParameter("limit"))
	if err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	runs, err := h.runs.ListRuns(req.Request.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}

	_ = resp.WriteHeaderAndEntity(http.StatusOK, RunsResponse{Runs: runs})
}

func parseListFilter(status, limit string) (store.ListFilter, error) {
	var filter store.ListFilter

	switch s := models.RunStatus(status); s {
	case "":
	case models.RunStatusPending, models.RunStatusSuccess, models.RunStatusFailure:
		filter.Status = s
	default:
		return filter, fmt.Errorf("invalid status %q", status)
	}

	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit %q", limit)
		}
		filter.Limit = n
	}
	return filter, nil
}

// Health handler GET API /api/v1/health
func (h *Handler) Health(_ *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}
