package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tombee/flowsmith/internal/tracing"
	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/httpclient"
	"github.com/tombee/flowsmith/pkg/llm"
	"github.com/tombee/flowsmith/pkg/secrets"
)

const (
	// GroqName is the registry name of the Groq provider.
	GroqName = "groq"

	// GroqDefaultBaseURL is Groq's OpenAI-compatible API root.
	GroqDefaultBaseURL = "https://api.groq.com/openai/v1"

	// GroqDefaultModel is used when a request names no model.
	GroqDefaultModel = "openai/gpt-oss-20b"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20

	// maxErrorBodyRunes bounds the redacted body kept on errors.
	maxErrorBodyRunes = 2000
)

// GroqProvider calls the Groq chat completions API.
type GroqProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// GroqOption configures a GroqProvider.
type GroqOption func(*GroqProvider)

// WithBaseURL overrides the API root (e.g., for a proxy or a test server).
func WithBaseURL(baseURL string) GroqOption {
	return func(p *GroqProvider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) GroqOption {
	return func(p *GroqProvider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) GroqOption {
	return func(p *GroqProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewGroqProvider creates a Groq provider authenticated with apiKey.
func NewGroqProvider(apiKey string, opts ...GroqOption) (*GroqProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &pkgerrors.ConfigError{
			Key:    "llm.api_key",
			Reason: "Groq API key not configured (set GROQ_API_KEY or VITE_GROQ_API_KEY)",
		}
	}

	p := &GroqProvider{
		apiKey:  apiKey,
		baseURL: GroqDefaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.httpClient == nil {
		cfg := httpclient.DefaultConfig()
		cfg.Timeout = 60 * time.Second
		cfg.Component = GroqName
		cfg.Logger = p.logger
		client, err := httpclient.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating HTTP client: %w", err)
		}
		p.httpClient = client
	}
	return p, nil
}

// NewGroqWithCredentials is the registry factory for Groq.
func NewGroqWithCredentials(creds llm.Credentials) (llm.Provider, error) {
	apiCreds, ok := creds.(llm.APIKeyCredentials)
	if !ok {
		return nil, fmt.Errorf("groq requires API key credentials, got %T", creds)
	}
	if err := apiCreds.Validate(); err != nil {
		return nil, &pkgerrors.ConfigError{Key: "llm.api_key", Reason: err.Error()}
	}
	return NewGroqProvider(apiCreds.APIKey, WithBaseURL(apiCreds.BaseURL))
}

// Name returns "groq".
func (p *GroqProvider) Name() string {
	return GroqName
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a non-streaming chat completion request.
func (p *GroqProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = GroqDefaultModel
	}

	body, err := json.Marshal(p.buildRequest(model, req))
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	tracing.InjectIntoRequest(ctx, httpReq)

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &pkgerrors.TimeoutError{Operation: "groq completion", Duration: time.Since(start), Cause: err}
		}
		return nil, &pkgerrors.ProviderError{
			Provider: GroqName,
			Model:    model,
			Message:  secrets.Redact(err.Error()),
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &pkgerrors.ProviderError{
			Provider:   GroqName,
			Model:      model,
			StatusCode: resp.StatusCode,
			Message:    "failed to read response body",
			Cause:      err,
		}
	}

	requestID := resp.Header.Get("x-request-id")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, p.statusError(model, resp, raw, requestID)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &pkgerrors.ProviderError{
			Provider:   GroqName,
			Model:      model,
			StatusCode: resp.StatusCode,
			Message:    "malformed completion response",
			Body:       redactBody(raw),
			RequestID:  requestID,
			Cause:      err,
		}
	}
	if len(parsed.Choices) == 0 {
		return nil, &pkgerrors.ProviderError{
			Provider:   GroqName,
			Model:      model,
			StatusCode: resp.StatusCode,
			Message:    "completion response has no choices",
			Body:       redactBody(raw),
			RequestID:  requestID,
		}
	}

	if requestID == "" {
		requestID = parsed.ID
	}
	servedBy := parsed.Model
	if servedBy == "" {
		servedBy = model
	}

	p.logger.DebugContext(ctx, "groq completion",
		"model", servedBy,
		"json_mode", req.JSONMode,
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", parsed.Usage.TotalTokens,
	)

	return &llm.CompletionResponse{
		Content:      parsed.Choices[0].Message.Content,
		FinishReason: mapFinishReason(parsed.Choices[0].FinishReason),
		Usage: llm.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
		Model:     servedBy,
		RequestID: requestID,
		Created:   createdAt(parsed.Created),
	}, nil
}

func (p *GroqProvider) buildRequest(model string, req llm.CompletionRequest) chatRequest {
	out := chatRequest{
		Model:       model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      false,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.JSONMode {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return out
}

// statusError converts a non-2xx response. The body is redacted before it
// is attached because it may echo request headers.
func (p *GroqProvider) statusError(model string, resp *http.Response, raw []byte, requestID string) error {
	message := strings.TrimSpace(fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	var env errorEnvelope
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		message = secrets.Redact(env.Error.Message)
	}

	return &pkgerrors.ProviderError{
		Provider:   GroqName,
		Model:      model,
		StatusCode: resp.StatusCode,
		Message:    message,
		Body:       redactBody(raw),
		RequestID:  requestID,
	}
}

func redactBody(raw []byte) string {
	return secrets.RedactPreview(string(raw), maxErrorBodyRunes)
}

func mapFinishReason(reason string) llm.FinishReason {
	switch reason {
	case "stop":
		return llm.FinishReasonStop
	case "length":
		return llm.FinishReasonLength
	case "content_filter":
		return llm.FinishReasonFiltered
	case "":
		return llm.FinishReasonUndefined
	default:
		return llm.FinishReason(reason)
	}
}

func createdAt(unix int64) time.Time {
	if unix <= 0 {
		return time.Now()
	}
	return time.Unix(unix, 0)
}
