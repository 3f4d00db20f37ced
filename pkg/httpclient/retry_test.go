package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fastConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		RetryAttempts: 2,
		RetryBackoff:  time.Millisecond,
		MaxBackoff:    5 * time.Millisecond,
		UserAgent:     "flowsmith-test",
	}
}

func reply(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// scripted answers each call with the next status; the last one repeats.
func scripted(calls *atomic.Int32, statuses ...int) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		return reply(statuses[n], `{"attempt":`+strconv.Itoa(n)+`}`), nil
	}
}

func TestRetryTransport_CatalogFetchRecovers(t *testing.T) {
	var calls atomic.Int32
	rt := newRetryTransport(scripted(&calls, 502, 503, 200), fastConfig(), nil)

	req, _ := http.NewRequest(http.MethodGet, "https://n8n.example.com/api/v1/workflows", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryTransport_CompletionPostSentOnce(t *testing.T) {
	var calls atomic.Int32
	rt := newRetryTransport(scripted(&calls, 503), fastConfig(), nil)

	req, _ := http.NewRequest(http.MethodPost, "https://api.groq.com/openai/v1/chat/completions", strings.NewReader(`{"model":"m"}`))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 503 || calls.Load() != 1 {
		t.Errorf("status = %d, calls = %d; want 503 after a single call", resp.StatusCode, calls.Load())
	}
}

func TestRetryTransport_ReplaysBodyWhenAllowed(t *testing.T) {
	var bodies []string
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastConfig()
	cfg.AllowNonIdempotentRetry = true
	rt := newRetryTransport(http.DefaultTransport, cfg, nil)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/workflows", strings.NewReader(`{"name":"Webhook echo"}`))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()

	if len(bodies) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(bodies))
	}
	for i, b := range bodies {
		if b != `{"name":"Webhook echo"}` {
			t.Errorf("attempt %d body = %q", i+1, b)
		}
	}
}

func TestRetryTransport_UnreplayableBodySentOnce(t *testing.T) {
	var calls atomic.Int32
	cfg := fastConfig()
	cfg.AllowNonIdempotentRetry = true
	rt := newRetryTransport(scripted(&calls, 500, 200), cfg, nil)

	req, _ := http.NewRequest(http.MethodPost, "https://n8n.example.com/api/v1/workflows", strings.NewReader("{}"))
	req.GetBody = nil
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRetryTransport_ExhaustedReturnsLastResponse(t *testing.T) {
	var calls atomic.Int32
	rt := newRetryTransport(scripted(&calls, 500, 502, 503), fastConfig(), nil)

	req, _ := http.NewRequest(http.MethodGet, "https://n8n.example.com/api/v1/workflows", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 503 || string(body) != `{"attempt":2}` {
		t.Errorf("got %d %s, want the third response", resp.StatusCode, body)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryTransport_ClientErrorsAreFinal(t *testing.T) {
	for _, code := range []int{400, 401, 404, 422} {
		var calls atomic.Int32
		rt := newRetryTransport(scripted(&calls, code, 200), fastConfig(), nil)

		req, _ := http.NewRequest(http.MethodGet, "https://n8n.example.com/api/v1/workflows", nil)
		resp, err := rt.RoundTrip(req)
		if err != nil {
			t.Fatalf("RoundTrip() error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != code || calls.Load() != 1 {
			t.Errorf("code %d: status = %d, calls = %d", code, resp.StatusCode, calls.Load())
		}
	}
}

func TestRetryTransport_TransportErrors(t *testing.T) {
	var calls atomic.Int32
	rt := newRetryTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return nil, &net.OpError{Op: "read", Err: syscall.ECONNRESET}
		}
		return reply(200, "ok"), nil
	}), fastConfig(), nil)

	req, _ := http.NewRequest(http.MethodGet, "https://n8n.example.com/healthz", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("connection reset should be retried: %v", err)
	}
	resp.Body.Close()

	tlsErr := errors.New("x509: certificate signed by unknown authority")
	calls.Store(0)
	rt = newRetryTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, tlsErr
	}), fastConfig(), nil)

	_, err = rt.RoundTrip(req)
	if !errors.Is(err, tlsErr) {
		t.Errorf("error = %v, want the certificate error", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRetryTransport_ContextCancelled(t *testing.T) {
	var calls atomic.Int32
	cfg := fastConfig()
	cfg.RetryBackoff = time.Second
	cfg.MaxBackoff = time.Second
	rt := newRetryTransport(scripted(&calls, 503), cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://n8n.example.com/api/v1/workflows", nil)

	start := time.Now()
	resp, err := rt.RoundTrip(req)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected an error after the deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Error("backoff wait ignored the context")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRetryTransport_RetryAfterCappedByMaxBackoff(t *testing.T) {
	var calls atomic.Int32
	rt := newRetryTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			resp := reply(http.StatusTooManyRequests, "slow down")
			resp.Header.Set("Retry-After", "120")
			return resp, nil
		}
		return reply(200, "ok"), nil
	}), fastConfig(), nil)

	req, _ := http.NewRequest(http.MethodGet, "https://n8n.example.com/api/v1/workflows", nil)
	start := time.Now()
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("waited %v; Retry-After should be capped", elapsed)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestRetryAfter(t *testing.T) {
	limit := 10 * time.Second
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"120", limit},
		{"0", 0},
		{"soon", 0},
		{time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat), 0},
		{time.Now().Add(2 * time.Hour).UTC().Format(http.TimeFormat), limit},
	}

	for _, tt := range tests {
		resp := reply(429, "")
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		if got := retryAfter(resp, limit); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"temporary dns failure", &net.DNSError{Err: "server misbehaving", IsTemporary: true}, true},
		{"unknown host", &net.DNSError{Err: "no such host", IsNotFound: true}, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain error", errors.New("bad request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError() = %v, want %v", got, tt.want)
			}
		})
	}
}
