package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mandalnilabja/pollinate/internal/relay"
	"github.com/mandalnilabja/pollinate/internal/storage"
	"github.com/mandalnilabja/pollinate/internal/transport/http/middleware"
	"github.com/mandalnilabja/pollinate/internal/types"
	"github.com/mandalnilabja/pollinate/internal/upstream"
)

// maxChatBody caps the JSON request body.
const maxChatBody = 1 << 20

// Chat handles POST /api/chat: the prompt is sent upstream and the answer
// is relayed back as text/plain, flushed chunk by chunk.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := middleware.GetRequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var req types.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.InputCode) == "" {
		types.WriteError(w, http.StatusBadRequest, types.ErrMissingParam("inputCode"))
		return
	}
	if req.Model == "" {
		req.Model = h.Options.DefaultModel
	}
	model := req.GetModel()

	// Token counting runs alongside the upstream call.
	tokensChan := h.countPromptAsync(upstream.Messages(req), model)

	entry := &storage.RequestLog{
		RequestID:   requestID,
		Kind:        storage.KindChat,
		Model:       model,
		IsStreaming: req.Stream,
		JSONMode:    req.JSONMode,
	}
	var completion string
	defer func() {
		entry.PromptTokens = awaitTokens(tokensChan)
		entry.DurationMs = time.Since(start).Milliseconds()
		go func() {
			entry.CompletionTokens = h.completionTokens(completion, model)
			h.recordRequest(entry)
		}()
	}()

	resp, err := h.Upstream.Send(r.Context(), req)
	if err != nil {
		entry.StatusCode = h.writeUpstreamError(w, err)
		entry.ErrorMessage = err.Error()
		return
	}

	stream, err := relay.Open(r.Context(), resp, relay.Options{
		JSONMode: req.JSONMode,
		Logger:   h.Logger.With("request_id", requestID),
	})
	if err != nil {
		entry.StatusCode = h.writeUpstreamError(w, err)
		entry.ErrorMessage = err.Error()
		var upErr *upstream.UpstreamError
		if errors.As(err, &upErr) {
			h.Logger.Warn("upstream returned an error",
				"request_id", requestID,
				"status", upErr.StatusCode,
				"message", upErr.Message,
			)
		}
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", types.ContentTypeTextPlain)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	entry.StatusCode = http.StatusOK

	// Bytes already written cannot be retracted; a failure here only ends
	// the response early.
	if _, err := stream.WriteTo(w); err != nil {
		entry.ErrorMessage = err.Error()
		if r.Context().Err() != nil {
			h.Logger.Info("client disconnected during relay", "request_id", requestID)
		}
	}

	stats := stream.Stats()
	entry.ChunkCount = stats.Chunks
	completion = stats.Text
}
