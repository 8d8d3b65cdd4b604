package tokenizer

import (
	"github.com/mandalnilabja/pollinate/internal/types"
)

const (
	// Per-message overhead: <|start|>role<|end|>
	messageOverhead = 3

	// Reply priming tokens (assistant response start)
	replyPrimingTokens = 3

	// Images are downscaled to at most 768x768 before upload, which is
	// four 512px tiles at high detail.
	imageBaseTokens = 85
	imageTileTokens = 170
	imageTiles      = 4
)

// CountMessages counts tokens for a slice of messages.
func (t *TiktokenTokenizer) CountMessages(messages []types.Message, model string) (int, error) {
	total := 0
	for _, msg := range messages {
		tokens, err := t.countMessage(msg, model)
		if err != nil {
			return 0, err
		}
		total += tokens + messageOverhead
	}
	return total + replyPrimingTokens, nil
}

// CountRequest counts total prompt tokens for an upstream request body.
func (t *TiktokenTokenizer) CountRequest(body *types.UpstreamRequestBody) (int, error) {
	if body == nil {
		return 0, nil
	}
	return t.CountMessages(body.Messages, body.Model)
}

func (t *TiktokenTokenizer) countMessage(msg types.Message, model string) (int, error) {
	roleTokens, err := t.CountTokens(msg.Role, model)
	if err != nil {
		return 0, err
	}
	contentTokens, err := t.countContent(msg.Content, model)
	if err != nil {
		return 0, err
	}
	return roleTokens + contentTokens, nil
}

// countContent counts tokens for message content (text or multimodal).
func (t *TiktokenTokenizer) countContent(content types.Content, model string) (int, error) {
	if content.Text != "" {
		return t.CountTokens(content.Text, model)
	}

	total := 0
	for _, part := range content.Parts {
		switch part.Type {
		case types.ContentTypeText:
			tokens, err := t.CountTokens(part.Text, model)
			if err != nil {
				return 0, err
			}
			total += tokens
		case types.ContentTypeImageURL:
			total += countImageTokens(part.ImageURL)
		}
	}
	return total, nil
}

func countImageTokens(img *types.ImageURL) int {
	if img == nil {
		return 0
	}
	return imageBaseTokens + imageTiles*imageTileTokens
}
