// Package gateway is the HTTP client of the CRM REST API. Every response is
// normalized to the {success, data, error} envelope before it reaches callers;
// list endpoints collapse malformed data to an empty collection.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/metrics"
	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

// Client talks to the CRM API on behalf of the bot.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// envelope is the response shape shared by every CRM endpoint.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// NewClient creates a new CRM API client. A zero timeout selects the default.
// appMetrics may be nil.
func NewClient(
	log *slog.Logger,
	baseURL, token string,
	timeout time.Duration,
	appMetrics *metrics.Metrics,
) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With(slog.String("component", "gateway")),
		metrics:    appMetrics,
	}
}

// do sends a request and returns the data part of the envelope.
// route is a stable label used for logs and metrics.
func (c *Client) do(ctx context.Context, route, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(route, "transport_error", startTime)
		c.log.WarnContext(ctx, "CRM request failed", "route", route, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(route, "transport_error", startTime)
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	data, err := normalize(resp.StatusCode, respBody)
	if err != nil {
		c.observe(route, "api_error", startTime)
		c.log.WarnContext(ctx, "CRM request rejected",
			"route", route, "request_id", requestID, "status", resp.StatusCode, "error", err)
		return nil, err
	}

	c.observe(route, "ok", startTime)
	c.log.DebugContext(ctx, "CRM request completed",
		"route", route, "request_id", requestID, "status", resp.StatusCode, "duration", time.Since(startTime))

	return data, nil
}

func (c *Client) observe(route, outcome string, startTime time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.GatewayRequestDuration.WithLabelValues(route, outcome).Observe(time.Since(startTime).Seconds())
}

// normalize turns a raw response into envelope data or an APIError.
// Bodies that are not an envelope are passed through as data.
func normalize(status int, body []byte) (json.RawMessage, error) {
	var env envelope
	isEnvelope := json.Unmarshal(body, &env) == nil && (env.Success != nil || env.Data != nil)

	if status >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" && !isEnvelope {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &APIError{Status: status, Message: msg}
	}

	if !isEnvelope {
		return json.RawMessage(body), nil
	}

	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return nil, &APIError{Status: status, Message: msg}
	}

	return env.Data, nil
}

// decodeList decodes a collection element by element. Anything but a JSON
// array is empty, and elements that do not decode as T are skipped.
func decodeList[T any](ctx context.Context, log *slog.Logger, route string, data json.RawMessage) []T {
	var raws []json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &raws) != nil {
		return []T{}
	}

	items := make([]T, 0, len(raws))
	for i, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			log.WarnContext(ctx, "Skipping malformed record", "route", route, "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// list fetches a collection endpoint.
func list[T any](ctx context.Context, c *Client, route, path string) ([]T, error) {
	data, err := c.do(ctx, route, http.MethodGet, path, nil)
	if err != nil {
		return []T{}, err
	}
	return decodeList[T](ctx, c.log, route, data), nil
}

// Ping checks that the CRM API answers at all. Any non-5xx status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}
