package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Request is the wire form of an evaluation submitted over HTTP, Redis or MCP.
type Request struct {
	RequestID  string                    `json:"request_id,omitempty"`
	Samples    []models.EvaluationSample `json:"samples"`
	Thresholds policy.Thresholds         `json:"thresholds"`
	Scorer     string                    `json:"scorer,omitempty"`
}

// ResolveThresholds applies the request overrides on top of base.
func (r Request) ResolveThresholds(base policy.Thresholds) (policy.Thresholds, error) {
	if base.IsZero() {
		base = policy.Default()
	}
	if r.Thresholds.IsZero() {
		return base, nil
	}
	return base.With(r.Thresholds.Entries()...)
}

// ValidationError wraps any schema or decoding failure of client input.
type ValidationError struct {
	Line int
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: invalid input: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type schemaRegistry struct {
	once    sync.Once
	initErr error
	request *jsonschema.Schema
	sample  *jsonschema.Schema
}

var schemas schemaRegistry

func initSchemas() error {
	schemas.once.Do(func() {
		req, err := jsonschema.CompileString("evaluation_request.json", requestSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		sample, err := jsonschema.CompileString("evaluation_sample.json", sampleSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		schemas.request = req
		schemas.sample = sample
	})
	return schemas.initErr
}

// DecodeRequest validates raw against the request schema and decodes it.
func DecodeRequest(raw []byte) (Request, error) {
	if err := validate(raw, func() *jsonschema.Schema { return schemas.request }); err != nil {
		return Request{}, err
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, &ValidationError{Err: err}
	}
	return req, nil
}

// DecodeSample validates one sample object, as found on a line of a batch file.
func DecodeSample(raw []byte) (models.EvaluationSample, error) {
	if err := validate(raw, func() *jsonschema.Schema { return schemas.sample }); err != nil {
		return models.EvaluationSample{}, err
	}

	var sample models.EvaluationSample
	if err := json.Unmarshal(raw, &sample); err != nil {
		return models.EvaluationSample{}, &ValidationError{Err: err}
	}
	return sample, nil
}

func validate(raw []byte, schema func() *jsonschema.Schema) error {
	if err := initSchemas(); err != nil {
		return fmt.Errorf("compile schemas: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Err: err}
	}
	if err := schema().Validate(doc); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

const sampleSchema = `{
  "type": "object",
  "required": ["question", "ground_truth", "answer", "contexts"],
  "properties": {
    "question": { "type": "string" },
    "ground_truth": { "type": "string" },
    "answer": { "type": "string" },
    "contexts": {
      "type": "array",
      "items": { "type": "string" }
    }
  },
  "additionalProperties": true
}`

const requestSchema = `{
  "type": "object",
  "required": ["samples"],
  "properties": {
    "request_id": { "type": "string" },
    "scorer": { "type": "string" },
    "samples": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "ground_truth", "answer", "contexts"],
        "properties": {
          "question": { "type": "string" },
          "ground_truth": { "type": "string" },
          "answer": { "type": "string" },
          "contexts": {
            "type": "array",
            "items": { "type": "string" }
          }
        }
      }
    },
    "thresholds": {
      "type": ["object", "null"],
      "propertyNames": {
        "enum": ["context_precision", "context_recall", "faithfulness", "answer_relevancy"]
      },
      "additionalProperties": { "type": "number", "minimum": 0, "maximum": 1 }
    }
  },
  "additionalProperties": true
}`
