package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageBody = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-test",
  "content": [{"type": "text", "text": "{\"reasoning\":\"ok\",\"comment_is_fully_addressed\":true}"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

func TestAnthropic_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageBody)
	}))
	defer srv.Close()

	a := NewAnthropic(Config{Model: "claude-test", APIKey: "sk-test", BaseURL: srv.URL})
	assert.Equal(t, "anthropic/claude-test", a.Name())

	text, err := a.Complete(context.Background(), Request{System: "sys", User: "question", PDF: []byte("%PDF-1.4")})
	require.NoError(t, err)
	assert.Contains(t, text, "comment_is_fully_addressed")

	require.NotNil(t, body)
	assert.Equal(t, "claude-test", body["model"])
	raw, _ := json.Marshal(body["messages"])
	assert.Contains(t, string(raw), `"type":"document"`)
	assert.Contains(t, string(raw), `"question"`)
}

func TestAnthropic_MaxRetries(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		want       int32
	}{
		{"zero disables retries", 0, 1},
		{"one retry", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`)
			}))
			defer srv.Close()

			a := NewAnthropic(Config{Model: "claude-test", APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: tt.maxRetries})
			_, err := a.Complete(context.Background(), Request{System: "sys", User: "q"})
			require.Error(t, err)
			assert.Equal(t, tt.want, calls.Load())
		})
	}
}

func TestGenerateConfig(t *testing.T) {
	cfg := generateConfig(Request{System: "sys", User: "q"})

	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Equal(t, int32(4096)+geminiThinkingBudget, cfg.MaxOutputTokens)
	require.NotNil(t, cfg.ThinkingConfig)
	require.NotNil(t, cfg.ThinkingConfig.ThinkingBudget)
	assert.Equal(t, geminiThinkingBudget, *cfg.ThinkingConfig.ThinkingBudget)
	assert.Greater(t, cfg.MaxOutputTokens, *cfg.ThinkingConfig.ThinkingBudget)

	cfg = generateConfig(Request{MaxTokens: 1000})
	assert.Equal(t, int32(1000)+geminiThinkingBudget, cfg.MaxOutputTokens)
}
