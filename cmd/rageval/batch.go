package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/batch"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/setup"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	exitThresholdFailure = 1
	exitBatchError       = 2
)

type batchOptions struct {
	input           string
	output          string
	format          string
	batchSize       int
	workers         int
	scorer          string
	thresholds      map[string]string
	dryRun          bool
	failOnThreshold bool
}

func buildBatchCmd(rt *runtime) *cobra.Command {
	var opts batchOptions
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate a JSONL file of samples",
		Long: `Evaluate a JSONL file where every line is one sample:

  {"question": "...", "ground_truth": "...", "answer": "...", "contexts": ["..."]}

Samples are grouped into batches of --batch-size (0 puts every sample into
one run) and evaluated by --workers concurrent runs.

Exit codes: 1 when --fail-on-threshold is set and a run misses a threshold,
or when --dry-run finds invalid lines; 2 when a run fails to evaluate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), rt, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input JSONL file, - for stdin (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.format, "format", batch.FormatJSONL, "Output format: jsonl or summary")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Samples per run (0 = all samples in one run)")
	cmd.Flags().IntVar(&opts.workers, "workers", batch.DefaultWorkers, "Concurrent runs")
	cmd.Flags().StringVar(&opts.scorer, "scorer", "", "Scorer name (default: DEFAULT_SCORER)")
	cmd.Flags().StringToStringVar(&opts.thresholds, "threshold", nil, "Threshold overrides, e.g. faithfulness=0.9,context_recall=0.6")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate input without evaluating")
	cmd.Flags().BoolVar(&opts.failOnThreshold, "fail-on-threshold", false, "Exit 1 when any run has threshold failures")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runBatch(ctx context.Context, rt *runtime, opts batchOptions, stdout io.Writer) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := rt.logger

	if opts.format != batch.FormatJSONL && opts.format != batch.FormatSummary {
		return fmt.Errorf("invalid format %q, supported: %s, %s", opts.format, batch.FormatJSONL, batch.FormatSummary)
	}
	overrides, err := parseThresholds(opts.thresholds)
	if err != nil {
		return err
	}

	records, err := readRecords(ctx, opts.input, &logger)
	if err != nil {
		return err
	}

	invalid := 0
	for _, r := range records {
		if r.Error != nil {
			logger.Error().Int("line", r.LineNumber).Err(r.Error).Msg("Validation error")
			invalid++
		}
	}
	logger.Info().Int("total", len(records)).Int("invalid", invalid).Msg("Input file parsed")

	if opts.dryRun {
		if invalid > 0 {
			return &exitError{code: 1, msg: fmt.Sprintf("validation failed: %d invalid lines", invalid)}
		}
		logger.Info().Msg("Validation successful")
		return nil
	}

	batches := batch.Split(records, opts.batchSize)
	if len(batches) == 0 {
		return fmt.Errorf("no valid samples in %s", opts.input)
	}

	deps, err := setup.Wire(ctx, rt.cfg, &logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	out := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
		logger.Info().Str("file", opts.output).Msg("Writing to output file")
	}

	writer, err := batch.NewWriter(out, opts.format, &logger)
	if err != nil {
		return err
	}

	processor := batch.NewProcessor(deps.Executor, batch.ProcessorConfig{
		BatchSize:  opts.batchSize,
		Workers:    opts.workers,
		Scorer:     opts.scorer,
		Thresholds: overrides,
	}, &logger)

	var failedRuns, erroredRuns int
	for res := range processor.Process(ctx, batches) {
		switch {
		case res.Err != nil:
			erroredRuns++
		case !res.Result.Passed():
			failedRuns++
		}
		if err := writer.Write(res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger.Info().
		Int("runs", len(batches)).
		Int("failed_runs", failedRuns).
		Int("errored_runs", erroredRuns).
		Dur("duration", time.Since(start)).
		Msg("Batch processing complete")

	if err := ctx.Err(); err != nil {
		return err
	}
	if erroredRuns > 0 {
		return &exitError{code: exitBatchError, msg: fmt.Sprintf("%d of %d runs failed to evaluate", erroredRuns, len(batches))}
	}
	if opts.failOnThreshold && failedRuns > 0 {
		return &exitError{code: exitThresholdFailure, msg: fmt.Sprintf("%d of %d runs below threshold", failedRuns, len(batches))}
	}
	return nil
}

func readRecords(ctx context.Context, input string, logger *zerolog.Logger) ([]batch.InputRecord, error) {
	var in io.Reader
	if input == "-" {
		in = os.Stdin
		logger.Info().Msg("Reading from stdin")
	} else {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()
		in = f
		logger.Info().Str("file", input).Msg("Reading input file")
	}

	var records []batch.InputRecord
	for record := range batch.NewReader(in, logger).ReadAll(ctx) {
		records = append(records, record)
	}
	return records, ctx.Err()
}

func parseThresholds(raw map[string]string) (policy.Thresholds, error) {
	if len(raw) == 0 {
		return policy.Thresholds{}, nil
	}
	values := make(map[string]float64, len(raw))
	for metric, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return policy.Thresholds{}, fmt.Errorf("threshold %s: %w", metric, err)
		}
		values[metric] = f
	}
	return policy.FromMap(values)
}
