// Package backend is the HTTP client of the analysis service.
//
// Every non-2xx answer is a hard failure, reported as a [*StatusError]. There is no retry at this layer.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fredbi/insightviz/internal/pkg/insight"
	"github.com/fredbi/insightviz/internal/pkg/settings"
	"github.com/google/uuid"
)

// ErrMalformedBody is returned when the body of a successful answer cannot be decoded.
var ErrMalformedBody = errors.New("malformed response body")

const maxBodySize = 32 << 20

// HeaderRequestID carries a unique identifier for each request.
const HeaderRequestID = "X-Request-ID"

// StatusError reports a non-2xx answer.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %s: %s", e.Op, e.Status)
}

// Client calls the analysis service.
type Client struct {
	options

	base *url.URL
}

// New builds a [Client] for the service located at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}

	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: expected an absolute http(s) URL", baseURL)
	}

	return &Client{
		options: optionsWithDefaults(opts),
		base:    base,
	}, nil
}

// BaseURL returns the base URL of the service.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Analyze runs a free-form analysis: GET /analyze?query=...
func (c *Client) Analyze(ctx context.Context, query string) (insight.Response, error) {
	u := c.base.JoinPath("analyze")
	u.RawQuery = url.Values{"query": []string{query}}.Encode()

	body, err := c.do(ctx, "analyze", http.MethodGet, u, nil)
	if err != nil {
		return insight.Response{}, err
	}

	return decodeResponse("analyze", body)
}

type viewRequest struct {
	View      string `json:"view"`
	Query     string `json:"query"`
	TimeRange string `json:"timeRange,omitempty"`
}

// AnalyzeView runs an analysis scoped to a dashboard view: POST /analyze-view.
//
// An empty timeRange is omitted from the request.
func (c *Client) AnalyzeView(ctx context.Context, view, query, timeRange string) (insight.Response, error) {
	payload := viewRequest{View: view, Query: query, TimeRange: timeRange}

	body, err := c.do(ctx, "analyze view", http.MethodPost, c.base.JoinPath("analyze-view"), payload)
	if err != nil {
		return insight.Response{}, err
	}

	return decodeResponse("analyze view", body)
}

// FetchSettings retrieves the persisted settings: GET /settings.
//
// The answer is loosely typed: see [settings.FromMap].
func (c *Client) FetchSettings(ctx context.Context) (map[string]any, error) {
	body, err := c.do(ctx, "fetch settings", http.MethodGet, c.base.JoinPath("settings"), nil)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("fetch settings: %w: %v", ErrMalformedBody, err)
	}

	return raw, nil
}

// SaveSettings persists the full set of settings: POST /settings/set.
func (c *Client) SaveSettings(ctx context.Context, s settings.Settings) error {
	_, err := c.do(ctx, "save settings", http.MethodPost, c.base.JoinPath("settings", "set"), s)

	return err
}

func (c *Client) do(ctx context.Context, op, method string, u *url.URL, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	l := c.l.With(slog.String("op", op), slog.String("request_id", requestID))
	t0 := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		l.Warn("request failed", slog.String("error", err.Error()))

		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", op, err)
	}

	l.Debug("request done", slog.Int("status", resp.StatusCode), slog.Duration("duration", time.Since(t0)))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return data, nil
}

func decodeResponse(op string, body []byte) (insight.Response, error) {
	resp, err := insight.Parse(body)
	if err != nil {
		return insight.Response{}, fmt.Errorf("%s: %w: %v", op, ErrMalformedBody, err)
	}

	return resp, nil
}
