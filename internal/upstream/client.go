// Package upstream builds requests for the remote text generation API and
// issues them over HTTP.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mandalnilabja/pollinate/internal/observability"
	"github.com/mandalnilabja/pollinate/internal/types"
)

// DefaultURL is the upstream text API endpoint.
const DefaultURL = "https://text.pollinations.ai/"

// Client posts prompts to the upstream API. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	seeds      SeedSource
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for upstream calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSeedSource overrides the seed generator.
func WithSeedSource(s SeedSource) Option {
	return func(c *Client) {
		c.seeds = s
	}
}

// WithLogger sets the logger for upstream call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the given endpoint.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: baseURL,
		// DisableCompression keeps SSE bytes untouched; no timeout because
		// generations can stream for minutes.
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:              http.ProxyFromEnvironment,
				DisableCompression: true,
			},
		},
		seeds:  globalSeeds{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the upstream endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Messages returns the message list for a chat request. A non-empty system
// prompt is placed before the user message.
func Messages(req types.ChatRequest) []types.Message {
	messages := make([]types.Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, types.NewTextMessage(types.RoleSystem, req.SystemPrompt))
	}
	return append(messages, types.NewTextMessage(types.RoleUser, req.InputCode))
}

// BuildBody assembles the upstream body for a chat request. Every call
// draws a new seed.
func (c *Client) BuildBody(req types.ChatRequest) types.UpstreamRequestBody {
	seed := c.seeds.IntN(MaxSeed)
	return types.UpstreamRequestBody{
		Messages: Messages(req),
		Model:    req.GetModel(),
		Seed:     &seed,
		JSONMode: req.JSONMode,
		Stream:   req.Stream,
	}
}

// Send posts a chat request and returns the raw response. The body is left
// unread; the caller owns it. Transport failures are returned as
// *ConnectionError and are not retried.
func (c *Client) Send(ctx context.Context, req types.ChatRequest) (*http.Response, error) {
	if req.InputCode == "" {
		return nil, ErrEmptyPrompt
	}
	return c.post(ctx, "chat", c.BuildBody(req))
}

// post marshals body and issues a single POST to the upstream endpoint.
func (c *Client) post(ctx context.Context, kind string, body types.UpstreamRequestBody) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upstream body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	observability.UpstreamLatency.WithLabelValues(kind).Observe(elapsed.Seconds())

	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(kind, observability.StatusClass(0)).Inc()
		c.logger.Warn("upstream request failed",
			"kind", kind,
			"model", body.Model,
			"error", err,
		)
		return nil, &ConnectionError{URL: c.baseURL, Err: err}
	}

	observability.UpstreamRequestsTotal.WithLabelValues(kind, observability.StatusClass(resp.StatusCode)).Inc()
	c.logger.Debug("upstream responded",
		"kind", kind,
		"model", body.Model,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"latency_ms", elapsed.Milliseconds(),
		"body_bytes", len(payload),
	)
	return resp, nil
}
