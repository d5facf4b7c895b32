package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageResponse = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-haiku-latest",
  "content": [{"type": "text", "text": "{\"score\": 0.6, \"reason\": \"partial\"}"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 8}
}`

func newServer(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/v1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
			return
		}

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-haiku-latest", body["model"])
		assert.EqualValues(t, 64, body["max_tokens"])

		_, _ = w.Write([]byte(messageResponse))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_InvokeModel(t *testing.T) {
	srv, _ := newServer(t, 0)

	client, err := NewClientWithBaseURL("key", "claude-3-5-haiku-latest", srv.URL+"/")
	require.NoError(t, err)

	resp, err := client.InvokeModel(context.Background(), llm.LLMRequest{Prompt: "grade", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 0.6, "reason": "partial"}`, resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
}

func TestClient_InvokeModelWithRetry(t *testing.T) {
	srv, calls := newServer(t, 2)

	client, err := NewClientWithBaseURL("key", "claude-3-5-haiku-latest", srv.URL+"/")
	require.NoError(t, err)
	client.Retry = llm.RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	resp, err := client.InvokeModelWithRetry(context.Background(), llm.LLMRequest{Prompt: "grade", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.EqualValues(t, 3, calls.Load())
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(&anthropic.Error{StatusCode: 529}))
	assert.True(t, isRetryableError(&anthropic.Error{StatusCode: 429}))
	assert.False(t, isRetryableError(&anthropic.Error{StatusCode: 401}))
}
