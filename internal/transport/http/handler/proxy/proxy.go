// Package proxy serves the endpoints that forward prompts to the upstream
// text API: streaming chat and one-shot media analysis.
package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mandalnilabja/pollinate/internal/media"
	"github.com/mandalnilabja/pollinate/internal/storage"
	"github.com/mandalnilabja/pollinate/internal/tokenizer"
	"github.com/mandalnilabja/pollinate/internal/types"
	"github.com/mandalnilabja/pollinate/internal/upstream"
)

// tokenCountTimeout is the maximum time to wait for token counting before proceeding.
const tokenCountTimeout = 100 * time.Millisecond

// Upstream is the subset of *upstream.Client the handlers call.
type Upstream interface {
	Send(ctx context.Context, req types.ChatRequest) (*http.Response, error)
	Analyze(ctx context.Context, req upstream.AnalysisRequest) (string, error)
}

// Options holds request defaults and limits.
type Options struct {
	DefaultModel   string
	VisionModel    string
	MaxImageWidth  int
	MaxImageHeight int
	FrameInterval  time.Duration
	MaxUploadBytes int64
}

// Handlers holds the dependencies for proxy HTTP handlers.
// Storage, Tokenizer and Media may be nil.
type Handlers struct {
	Upstream  Upstream
	Media     media.Preprocessor
	Storage   storage.Storage
	Tokenizer tokenizer.Tokenizer
	Logger    *slog.Logger
	Options   Options
}

// New creates a new instance of proxy handlers.
func New(up Upstream, pre media.Preprocessor, store storage.Storage, tok tokenizer.Tokenizer, logger *slog.Logger, opts Options) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	return &Handlers{
		Upstream:  up,
		Media:     pre,
		Storage:   store,
		Tokenizer: tok,
		Logger:    logger,
		Options:   opts,
	}
}

// writeUpstreamError maps an upstream call failure to an API error:
// unreachable or failing upstream is 502, anything else 500.
func (h *Handlers) writeUpstreamError(w http.ResponseWriter, err error) int {
	var connErr *upstream.ConnectionError
	var upErr *upstream.UpstreamError

	switch {
	case errors.As(err, &upErr):
		types.WriteError(w, http.StatusBadGateway, types.ErrUpstream(upErr.Error()))
		return http.StatusBadGateway
	case errors.As(err, &connErr):
		types.WriteError(w, http.StatusBadGateway, types.ErrUpstream("failed to reach upstream API"))
		return http.StatusBadGateway
	case errors.Is(err, upstream.ErrEmptyPrompt):
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest(err.Error()))
		return http.StatusBadRequest
	default:
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to process request"))
		return http.StatusInternalServerError
	}
}

// countPromptAsync starts counting prompt tokens off the request path.
// The returned channel yields at most one value.
func (h *Handlers) countPromptAsync(messages []types.Message, model string) <-chan int {
	tokensChan := make(chan int, 1)
	go func() {
		defer close(tokensChan)
		if h.Tokenizer == nil {
			return
		}
		if tokens, err := h.Tokenizer.CountMessages(messages, model); err == nil {
			tokensChan <- tokens
		}
	}()
	return tokensChan
}

// awaitTokens collects a token count with a bounded wait.
func awaitTokens(tokensChan <-chan int) int {
	select {
	case tokens, ok := <-tokensChan:
		if ok {
			return tokens
		}
	case <-time.After(tokenCountTimeout):
	}
	return 0
}

// completionTokens estimates tokens for relayed text.
func (h *Handlers) completionTokens(text, model string) int {
	if h.Tokenizer == nil || text == "" {
		return 0
	}
	tokens, err := h.Tokenizer.CountTokens(text, model)
	if err != nil {
		return 0
	}
	return tokens
}

// recordRequest stores the request log row and daily usage aggregate.
// It runs off the request path; storage errors are logged and dropped.
func (h *Handlers) recordRequest(log *storage.RequestLog) {
	if h.Storage == nil {
		return
	}

	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	log.TotalTokens = log.PromptTokens + log.CompletionTokens

	if err := h.Storage.LogRequest(log); err != nil {
		h.Logger.Warn("failed to store request log", "request_id", log.RequestID, "error", err)
	}

	errorCount := 0
	if log.StatusCode >= 400 || log.ErrorMessage != "" {
		errorCount = 1
	}

	usage := &storage.DailyUsage{
		Date:             log.CreatedAt.UTC().Format("2006-01-02"),
		Kind:             log.Kind,
		Model:            log.Model,
		RequestCount:     1,
		PromptTokens:     log.PromptTokens,
		CompletionTokens: log.CompletionTokens,
		TotalTokens:      log.TotalTokens,
		ErrorCount:       errorCount,
	}
	if err := h.Storage.UpdateDailyUsage(usage); err != nil {
		h.Logger.Warn("failed to update daily usage", "request_id", log.RequestID, "error", err)
	}
}
