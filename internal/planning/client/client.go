package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/tripdesk/internal/common/config"
	"github.com/tripdesk/internal/common/logger"
)

const (
	HeaderZone      = "Zone"
	HeaderRequestID = "X-Request-Id"
	UserAgent       = "tripdesk/1.0"
)

var ErrUnauthorized = errors.New("unauthorized")

// TransportError is any network or HTTP failure talking to the API
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Credentials supplies the bearer token and zone. ClearToken is called on 401.
type Credentials interface {
	Token() string
	Zone() string
	ClearToken(ctx context.Context)
}

type Client struct {
	baseURL        string
	servicePrefix  string
	planningPrefix string
	controlID      string
	httpClient     *http.Client
	credentials    Credentials
	logger         logger.Logger
	maxRetries     uint64
	newBackOff     func() backoff.BackOff
}

func New(cfg config.APIConfig, creds Credentials, log logger.Logger) *Client {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		servicePrefix:  cfg.ServicePrefix,
		planningPrefix: cfg.PlanningPrefix,
		controlID:      cfg.ControlID,
		httpClient:     httpClient,
		credentials:    creds,
		logger:         log,
		maxRetries:     cfg.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = cfg.Timeout
			return b
		},
	}
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// do performs a single request. out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshaling body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.credentials.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(HeaderZone, c.credentials.Zone())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("API request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"latency", time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		c.credentials.ClearToken(ctx)
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: ErrUnauthorized}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet))),
		}
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// doWithRetry retries transient failures of idempotent reads
func (c *Client) doWithRetry(ctx context.Context, op, method, path string, body, out interface{}) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := c.do(ctx, op, method, path, body, out)
		if err == nil {
			return nil
		}

		var te *TransportError
		if errors.As(err, &te) && te.StatusCode != 0 && !retryable(te.StatusCode) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		c.logger.Warn("API request failed, retrying", "op", op, "attempt", attempt, "error", err)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	return backoff.Retry(operation, b)
}

func (c *Client) servicePath(format string, args ...interface{}) string {
	return c.servicePrefix + fmt.Sprintf(format, args...)
}

func (c *Client) planningPath(format string, args ...interface{}) string {
	return c.planningPrefix + fmt.Sprintf(format, args...)
}

func (c *Client) controlPath(format string) string {
	return fmt.Sprintf(format, url.PathEscape(c.controlID))
}
