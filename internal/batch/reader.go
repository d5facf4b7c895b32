package batch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/rs/zerolog"
)

const maxLineBytes = 4 << 20

// InputRecord is one JSONL line. Error is set when the line is not a valid
// sample, in which case Sample is zero.
type InputRecord struct {
	LineNumber int
	Sample     models.EvaluationSample
	Error      error
}

type Reader struct {
	r      io.Reader
	logger *zerolog.Logger
}

func NewReader(r io.Reader, logger *zerolog.Logger) *Reader {
	return &Reader{r: r, logger: logger}
}

// ReadAll streams records until EOF or ctx is cancelled. Blank lines are
// skipped but still counted for line numbers.
func (r *Reader) ReadAll(ctx context.Context) <-chan InputRecord {
	out := make(chan InputRecord)

	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r.r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

		lineNumber := 0
		for scanner.Scan() {
			lineNumber++
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			record := InputRecord{LineNumber: lineNumber}
			sample, err := intake.DecodeSample(line)
			if err != nil {
				record.Error = withLine(err, lineNumber)
				r.logger.Debug().Err(err).Int("line", lineNumber).Msg("invalid sample")
			} else {
				record.Sample = sample
			}

			select {
			case out <- record:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case out <- InputRecord{LineNumber: lineNumber + 1, Error: fmt.Errorf("read input: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out
}

func withLine(err error, line int) error {
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		return &intake.ValidationError{Line: line, Err: verr.Err}
	}
	return &intake.ValidationError{Line: line, Err: err}
}
