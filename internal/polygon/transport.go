package polygon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"polyfetch/internal/util"
)

// Transport defaults.
const (
	DefaultMaxAttempts = 5
	DefaultBackoffBase = time.Second
	DefaultTimeout     = 15 * time.Second
)

// retryableStatuses are the response codes the transport retries.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Retryable reports whether the transport retries responses with status.
func Retryable(status int) bool { return retryableStatuses[status] }

var errRetryableStatus = errors.New("retryable status")

// RetryTransport is an http.RoundTripper that retries network failures and
// retryable status codes with exponential backoff. Each attempt gets its own
// timeout. When attempts run out on a retryable status, the last response is
// returned as-is so the caller can classify it.
type RetryTransport struct {
	Base        http.RoundTripper // http.DefaultTransport when nil
	MaxAttempts int               // total attempts, DefaultMaxAttempts when <= 0
	BackoffBase time.Duration     // first backoff delay, doubled per retry
	Timeout     time.Duration     // per attempt, DefaultTimeout when <= 0
	Log         *slog.Logger
}

// NewHTTPClient returns a client whose transport retries per the given
// policy. Share one client across all requests of a bulk fetch to reuse
// connections.
func NewHTTPClient(maxAttempts int, backoffBase, timeout time.Duration, log *slog.Logger) *http.Client {
	return &http.Client{
		Transport: &RetryTransport{
			MaxAttempts: maxAttempts,
			BackoffBase: backoffBase,
			Timeout:     timeout,
			Log:         log,
		},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	maxAttempts := t.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	log := t.Log
	if log == nil {
		log = slog.Default()
	}

	var resp *http.Response
	attempt := 0
	err := util.Retry(req.Context(), maxAttempts, t.BackoffBase, func() error {
		attempt++
		r, err := t.once(req)
		if err != nil {
			log.Warn("request failed", "attempt", attempt, "url", Redact(req.URL.String()), "error", err)
			return err
		}
		if Retryable(r.StatusCode) && attempt < maxAttempts {
			log.Warn("retrying request", "attempt", attempt, "status", r.StatusCode, "url", Redact(req.URL.String()))
			discard(r)
			return errRetryableStatus
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// once performs one attempt under the per-attempt timeout. The timeout stays
// armed until the response body is closed.
func (t *RetryTransport) once(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	attemptReq := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		attemptReq.Body = body
	}

	resp, err := base.RoundTrip(attemptReq)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// discard drains and closes a response body so the connection can be reused.
func discard(r *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 64<<10))
	_ = r.Body.Close()
}
