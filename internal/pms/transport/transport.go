// Package transport performs the HTTP (or simulated) calls vendor backends
// are built on. It owns timeout enforcement and error classification; it
// deliberately performs no retries — MaxRetries in the tenant config is
// informational, and retry/backoff policy belongs to callers of the adapter
// layer.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/brettulin/okdentalai/internal/pms"
	"github.com/brettulin/okdentalai/pkg/logging"
)

// Client issues one vendor API call. body and out may be nil; out is
// JSON-decoded from the response when non-nil.
type Client interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// HeaderFunc supplies auth headers for one request.
type HeaderFunc func(ctx context.Context) (http.Header, error)

// HTTP is the live transport. Each call gets its own deadline from the
// tenant config; when it fires the in-flight request is aborted and a
// TimeoutError naming the configured budget is returned.
type HTTP struct {
	vendor     string
	baseURL    string
	timeout    time.Duration
	headers    HeaderFunc
	httpClient *http.Client
	logger     *logging.Logger
}

// HTTPOptions configure a live transport.
type HTTPOptions struct {
	Vendor  string
	BaseURL string
	Timeout time.Duration
	Headers HeaderFunc
	Logger  *logging.Logger
	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
}

// NewHTTP creates a live transport.
func NewHTTP(opts HTTPOptions) *HTTP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTP{
		vendor:     opts.Vendor,
		baseURL:    opts.BaseURL,
		timeout:    timeout,
		headers:    opts.Headers,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Do implements Client.
func (t *HTTP) Do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", t.vendor, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", t.vendor, err)
	}
	if t.headers != nil {
		h, err := t.headers(ctx)
		if err != nil {
			return err
		}
		for name, values := range h {
			for _, v := range values {
				req.Header.Set(name, v)
			}
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &pms.TimeoutError{Vendor: t.vendor, Timeout: t.timeout}
		}
		return &pms.NetworkError{Vendor: t.vendor, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &pms.TimeoutError{Vendor: t.vendor, Timeout: t.timeout}
		}
		return &pms.NetworkError{Vendor: t.vendor, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return t.classify(resp, path, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", t.vendor, err)
	}
	return nil
}

func (t *HTTP) classify(resp *http.Response, path string, body []byte) error {
	msg := string(body)
	if len(msg) > 300 {
		msg = msg[:300]
	}
	t.logger.Warn("vendor API non-2xx response",
		"vendor", t.vendor,
		"status", resp.StatusCode,
		"path", path,
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &pms.AuthenticationError{Vendor: t.vendor, Status: resp.StatusCode, Body: msg}
	case http.StatusNotFound:
		return &pms.NotFoundError{Vendor: t.vendor, Path: path}
	case http.StatusTooManyRequests:
		return &pms.RateLimitError{Vendor: t.vendor, RetryAfter: retryAfter(resp)}
	default:
		return &pms.ServerError{Vendor: t.vendor, Status: resp.StatusCode, Body: msg}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
