package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mandalnilabja/pollinate/internal/media"
	"github.com/mandalnilabja/pollinate/internal/storage"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler/shared"
	"github.com/mandalnilabja/pollinate/internal/transport/http/middleware"
	"github.com/mandalnilabja/pollinate/internal/types"
	"github.com/mandalnilabja/pollinate/internal/upstream"
)

// multipartMemory is how much of a multipart form is kept in memory
// before spilling to temp files.
const multipartMemory = 8 << 20

// AnalysisResponse is the JSON body returned by the analysis endpoints.
type AnalysisResponse struct {
	Text   string `json:"text"`
	Model  string `json:"model"`
	Frames int    `json:"frames"`
}

// analysisForm is the parsed multipart input shared by image and video.
type analysisForm struct {
	data     []byte
	prompt   string
	model    string
	maxW     int
	maxH     int
	interval time.Duration
}

// AnalyzeImage handles POST /api/analyze/image.
func (h *Handlers) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, storage.KindImage, "image")
}

// AnalyzeVideo handles POST /api/analyze/video.
func (h *Handlers) AnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, storage.KindVideo, "video")
}

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request, kind, field string) {
	start := time.Now()
	requestID := middleware.GetRequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	if h.Media == nil {
		types.WriteError(w, http.StatusServiceUnavailable, types.ErrServer("media processing is not available"))
		return
	}

	form, apiErr := h.parseAnalysisForm(w, r, field)
	if apiErr != nil {
		types.WriteError(w, http.StatusBadRequest, apiErr)
		return
	}

	entry := &storage.RequestLog{
		RequestID: requestID,
		Kind:      kind,
		Model:     form.model,
	}
	var completion string
	defer func() {
		entry.DurationMs = time.Since(start).Milliseconds()
		go func() {
			entry.CompletionTokens = h.completionTokens(completion, form.model)
			h.recordRequest(entry)
		}()
	}()

	var frames [][]byte
	var err error
	if kind == storage.KindVideo {
		frames, err = h.Media.ExtractFrames(r.Context(), form.data, form.interval, form.maxW, form.maxH)
	} else {
		var img []byte
		img, err = h.Media.Resize(r.Context(), form.data, form.maxW, form.maxH)
		frames = [][]byte{img}
	}
	if err != nil {
		entry.StatusCode = writeMediaError(w, err)
		entry.ErrorMessage = err.Error()
		h.Logger.Warn("media preprocessing failed", "request_id", requestID, "kind", kind, "error", err)
		return
	}

	images := media.DataURLs(frames)
	tokensChan := h.countPromptAsync(
		[]types.Message{types.NewImagesMessage(types.RoleUser, form.prompt, images...)}, form.model)

	text, err := h.Upstream.Analyze(r.Context(), upstream.AnalysisRequest{
		Prompt: form.prompt,
		Model:  form.model,
		Images: images,
	})
	entry.PromptTokens = awaitTokens(tokensChan)
	entry.ChunkCount = len(frames)
	if err != nil {
		entry.StatusCode = h.writeUpstreamError(w, err)
		entry.ErrorMessage = err.Error()
		return
	}

	entry.StatusCode = http.StatusOK
	completion = text
	shared.WriteJSON(w, AnalysisResponse{Text: text, Model: form.model, Frames: len(frames)}, http.StatusOK)
}

// parseAnalysisForm reads the upload and its parameters.
func (h *Handlers) parseAnalysisForm(w http.ResponseWriter, r *http.Request, field string) (*analysisForm, *types.APIError) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Options.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, types.ErrInvalidRequest(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		}
		return nil, types.ErrInvalidRequest("invalid multipart form: " + err.Error())
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, types.ErrMissingParam(field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, types.ErrInvalidRequest("failed to read " + field + ": " + err.Error())
	}
	if len(data) == 0 {
		return nil, types.ErrMissingParam(field)
	}

	form := &analysisForm{
		data:     data,
		prompt:   strings.TrimSpace(r.FormValue("prompt")),
		model:    r.FormValue("model"),
		maxW:     h.Options.MaxImageWidth,
		maxH:     h.Options.MaxImageHeight,
		interval: h.Options.FrameInterval,
	}
	if form.prompt == "" {
		return nil, types.ErrMissingParam("prompt")
	}
	if form.model == "" {
		form.model = h.Options.VisionModel
	}
	if form.model == "" {
		form.model = types.DefaultVisionModel
	}

	if v := r.FormValue("max_width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, types.NewAPIErrorWithParam("max_width must be a positive integer", types.ErrorTypeInvalidRequest, "max_width")
		}
		form.maxW = n
	}
	if v := r.FormValue("max_height"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, types.NewAPIErrorWithParam("max_height must be a positive integer", types.ErrorTypeInvalidRequest, "max_height")
		}
		form.maxH = n
	}
	if v := r.FormValue("frame_interval"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 {
			return nil, types.NewAPIErrorWithParam("frame_interval must be a positive number of seconds", types.ErrorTypeInvalidRequest, "frame_interval")
		}
		form.interval = time.Duration(secs * float64(time.Second))
	}

	return form, nil
}

// writeMediaError maps preprocessing failures: a missing ffmpeg is a
// server problem, undecodable input is the caller's.
func writeMediaError(w http.ResponseWriter, err error) int {
	switch {
	case errors.Is(err, media.ErrFFmpegNotFound):
		types.WriteError(w, http.StatusServiceUnavailable, types.ErrServer("video processing is not available"))
		return http.StatusServiceUnavailable
	case errors.As(err, new(*media.MediaError)):
		types.WriteError(w, http.StatusUnprocessableEntity, types.ErrInvalidRequest(err.Error()))
		return http.StatusUnprocessableEntity
	default:
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to process media"))
		return http.StatusInternalServerError
	}
}
