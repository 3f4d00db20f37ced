package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryTransport repeats requests that failed transiently. Only requests
// whose body can be replayed are retried; a request with a body and no
// GetBody is sent once.
type retryTransport struct {
	next      http.RoundTripper
	tries     uint
	baseDelay time.Duration
	maxDelay  time.Duration
	anyMethod bool
	logger    *slog.Logger
}

func newRetryTransport(next http.RoundTripper, cfg Config, logger *slog.Logger) *retryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retryTransport{
		next:      next,
		tries:     uint(cfg.RetryAttempts) + 1,
		baseDelay: cfg.RetryBackoff,
		maxDelay:  cfg.MaxBackoff,
		anyMethod: cfg.AllowNonIdempotentRetry,
		logger:    logger,
	}
}

// statusError carries a retryable response status through backoff.Retry.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "retryable status " + strconv.Itoa(e.code)
}

// RoundTrip implements http.RoundTripper. When every attempt ends in a
// retryable status, the last response is returned unchanged so callers
// can report the upstream error body.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.canRetry(req) {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()
	var attempt int
	var last *http.Response

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		attempt++
		discard(last)
		last = nil

		r, err := replay(req, attempt)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := t.next.RoundTrip(r)
		if err != nil {
			if !retryableError(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		last = resp
		if wait := retryAfter(resp, t.maxDelay); wait >= time.Second {
			return nil, backoff.RetryAfter(int(wait / time.Second))
		}
		return nil, &statusError{code: resp.StatusCode}
	},
		backoff.WithBackOff(t.newBackOff()),
		backoff.WithMaxTries(t.tries),
		backoff.WithNotify(func(err error, delay time.Duration) {
			t.logger.DebugContext(ctx, "retrying http request",
				"method", req.Method,
				"url", sanitizeURL(req.URL),
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
				"reason", err.Error(),
			)
		}),
	)
	if err == nil {
		return resp, nil
	}
	if last != nil {
		if ctx.Err() == nil {
			return last, nil
		}
		discard(last)
	}
	return nil, err
}

func (t *retryTransport) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.baseDelay
	b.MaxInterval = t.maxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	return b
}

// canRetry reports whether req may be sent more than once. GET, HEAD and
// OPTIONS always qualify; other methods need AllowNonIdempotentRetry.
func (t *retryTransport) canRetry(req *http.Request) bool {
	if t.tries < 2 {
		return false
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		if !t.anyMethod {
			return false
		}
	}
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// replay returns the request for the given attempt with a fresh body.
func replay(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// retryableStatus covers rate limiting, request timeouts and server errors.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout ||
		(code >= 500 && code <= 599)
}

// retryableError reports whether a transport error is worth another try.
// Cancellation and deadlines are final.
func retryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// retryAfter reads the Retry-After header as seconds or an HTTP date,
// capped at limit. Zero means absent or already elapsed.
func retryAfter(resp *http.Response, limit time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	var wait time.Duration
	if secs, err := strconv.Atoi(header); err == nil {
		wait = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(header); err == nil {
		wait = time.Until(at)
	}
	if wait <= 0 {
		return 0
	}
	return min(wait, limit)
}

// discard drains and closes a response that will not be returned.
func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
