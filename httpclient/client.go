package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"home-services-server/utils"
)

// ErrNetwork wraps transport-level failures where no HTTP response was received.
var ErrNetwork = errors.New("network error")

// HTTPError is a non-2xx response from the remote endpoint.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

// Retryable reports whether the failure may be transient. Client errors (4xx)
// are terminal and surfaced immediately.
func (e *HTTPError) Retryable() bool {
	return e.Status >= 500
}

// errorBody is the error shape remote collaborators return on non-2xx.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client executes JSON HTTP calls with bounded automatic retry on transient
// failures. Credentials are injected explicitly at construction; there is no
// ambient token lookup.
type Client struct {
	baseURL      string
	token        string
	maxRetries   int
	baseInterval time.Duration
	httpc        *http.Client
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithMaxRetries overrides the default retry budget of 2.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBaseInterval overrides the linear backoff base interval.
func WithBaseInterval(d time.Duration) Option {
	return func(c *Client) { c.baseInterval = d }
}

// WithHTTPClient substitutes the underlying transport, used by tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// New creates a client for the given base URL.
func New(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		maxRetries:   2,
		baseInterval: time.Second,
		httpc:        &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call executes an HTTP call against baseURL+endpoint, marshalling body as
// JSON when non-nil, and returns the raw response body on 2xx.
//
// Retries happen only on 5xx responses or transport failures, with a linear
// deterministic backoff (delay = attempt * baseInterval). After the budget is
// exhausted the original error is surfaced unchanged.
func (c *Client) Call(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			utils.RemoteCallRetriesTotal.Inc()
			delay := time.Duration(attempt) * c.baseInterval
			c.logger.Warn("retrying remote call",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		out, err := c.do(ctx, method, endpoint, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		return nil, &HTTPError{Status: resp.StatusCode, Message: eb.Message}
	}
	return data, nil
}
