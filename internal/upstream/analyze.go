package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mandalnilabja/pollinate/internal/types"
)

// maxAnalysisBody caps how much of an analysis response is read.
const maxAnalysisBody int64 = 10 * 1024 * 1024

// AnalysisRequest is a one-shot prompt about one or more images.
type AnalysisRequest struct {
	Prompt string
	Model  string

	// Images are data URLs (or plain URLs), sent in order after the prompt.
	Images []string
}

// Analyze sends a multimodal prompt and returns the complete response text.
// No seed is sent and jsonMode is always off.
func (c *Client) Analyze(ctx context.Context, req AnalysisRequest) (string, error) {
	if req.Prompt == "" {
		return "", ErrEmptyPrompt
	}
	if len(req.Images) == 0 {
		return "", errors.New("at least one image is required")
	}

	model := req.Model
	if model == "" {
		model = types.DefaultVisionModel
	}

	body := types.UpstreamRequestBody{
		Messages: []types.Message{types.NewImagesMessage(types.RoleUser, req.Prompt, req.Images...)},
		Model:    model,
	}

	resp, err := c.post(ctx, "analyze", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalysisBody))
	if err != nil {
		return "", fmt.Errorf("failed to read analysis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := string(text)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	return string(text), nil
}
