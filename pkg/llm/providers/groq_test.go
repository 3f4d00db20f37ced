package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/flowsmith/internal/tracing"
	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/llm"
)

func newTestGroq(t *testing.T, handler http.HandlerFunc) *GroqProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGroqProvider("gsk_test_key", WithBaseURL(server.URL+"/"), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return p
}

func TestGroq_Complete(t *testing.T) {
	var got map[string]any
	var auth, corr string

	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		corr = r.Header.Get(tracing.HeaderCorrelationID)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("x-request-id", "req_123")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "openai/gpt-oss-20b",
			"created": 1700000000,
			"choices": [{"message": {"role": "assistant", "content": "{\"name\":\"x\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	})

	corrID := tracing.NewCorrelationID()
	ctx := tracing.ToContext(context.Background(), corrID)
	resp, err := p.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.MessageRoleSystem, Content: "system"},
			{Role: llm.MessageRoleUser, Content: "hello"},
		},
		Temperature: llm.Float64(0.3),
		MaxTokens:   llm.Int(2000),
		JSONMode:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer gsk_test_key", auth)
	assert.Equal(t, corrID.String(), corr)
	assert.Equal(t, GroqDefaultModel, got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, 2000.0, got["max_tokens"])
	assert.Equal(t, 0.3, got["temperature"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	assert.Len(t, got["messages"], 2)

	assert.Equal(t, `{"name":"x"}`, resp.Content)
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason)
	assert.Equal(t, "req_123", resp.RequestID)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestGroq_OmitsResponseFormatWithoutJSONMode(t *testing.T) {
	var got map[string]any
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{Model: "mixtral-8x7b-32768"})
	require.NoError(t, err)
	assert.Equal(t, "mixtral-8x7b-32768", got["model"])
	assert.NotContains(t, got, "response_format")
}

func TestGroq_StatusErrorIsRedacted(t *testing.T) {
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"json mode unsupported for sk-abcdefghijklmnop","type":"invalid_request_error"}}`))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{Model: "m1", JSONMode: true})
	require.Error(t, err)

	var perr *pkgerrors.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, GroqName, perr.Provider)
	assert.Equal(t, "m1", perr.Model)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Equal(t, "json mode unsupported for sk-***", perr.Message)
	assert.NotContains(t, perr.Body, "abcdefghijklmnop")
	assert.False(t, perr.IsRetryable())
}

func TestGroq_PlainTextError(t *testing.T) {
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream busy"))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{})
	var perr *pkgerrors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "503 Service Unavailable", perr.Message)
	assert.Equal(t, "upstream busy", perr.Body)
	assert.True(t, perr.IsRetryable())
}

func TestGroq_LongErrorBodyRedactedBeforeTruncation(t *testing.T) {
	body := strings.Repeat("é", 1995) + " sk-abcdefghijklmnop"
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(body))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{})
	var perr *pkgerrors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2000, len([]rune(perr.Body)))
	assert.NotContains(t, perr.Body, "sk-a")
	assert.True(t, utf8.ValidString(perr.Body))
}

func TestGroq_EmptyChoices(t *testing.T) {
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{})
	var perr *pkgerrors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "completion response has no choices", perr.Message)
}

func TestGroq_RequiresAPIKey(t *testing.T) {
	_, err := NewGroqProvider("  ")
	var cerr *pkgerrors.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "llm.api_key", cerr.Key)

	_, err = NewGroqWithCredentials(llm.APIKeyCredentials{})
	require.ErrorAs(t, err, &cerr)
}

func TestGroq_RegistryFromGlobal(t *testing.T) {
	r := llm.NewRegistryFromGlobal()
	assert.Contains(t, r.ListFactories(), GroqName)

	require.NoError(t, r.Activate(GroqName, llm.APIKeyCredentials{APIKey: "gsk_x"}))
	p, err := r.GetDefault()
	require.NoError(t, err)
	assert.Equal(t, GroqName, p.Name())
}
