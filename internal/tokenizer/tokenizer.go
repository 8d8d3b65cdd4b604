// Package tokenizer estimates token usage for upstream prompts and relayed
// completions.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mandalnilabja/pollinate/internal/types"
)

// Tokenizer counts tokens for upstream requests.
type Tokenizer interface {
	// CountTokens counts tokens in a text string for a given model.
	CountTokens(text string, model string) (int, error)

	// CountMessages counts tokens for a slice of messages.
	CountMessages(messages []types.Message, model string) (int, error)

	// CountRequest counts total prompt tokens for an upstream request body.
	CountRequest(body *types.UpstreamRequestBody) (int, error)
}

// Encoding names used by tiktoken.
const (
	EncodingCL100kBase = "cl100k_base"
	EncodingO200kBase  = "o200k_base"
)

// modelEncoding pairs a prefix with its encoding.
type modelEncoding struct {
	prefix   string
	encoding string
}

// modelEncodings lists model prefixes and their encodings.
// Longer prefixes come first.
var modelEncodings = []modelEncoding{
	{"openai-large", EncodingO200kBase},
	{"openai", EncodingO200kBase}, // served by gpt-4o class models
	{"gpt-4o", EncodingO200kBase},
	{"gpt-3.5", EncodingCL100kBase},
	{"gpt-4", EncodingCL100kBase},
	{"o1", EncodingO200kBase},
	{"o3", EncodingO200kBase},
}

// encoder is the subset of *tiktoken.Tiktoken used for counting.
type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// TiktokenTokenizer implements Tokenizer using tiktoken-go.
type TiktokenTokenizer struct {
	mu        sync.RWMutex
	encodings map[string]encoder
}

// New creates a new TiktokenTokenizer.
func New() *TiktokenTokenizer {
	return &TiktokenTokenizer{
		encodings: make(map[string]encoder),
	}
}

// getEncoding returns the encoder for a model, loading it once.
func (t *TiktokenTokenizer) getEncoding(model string) (encoder, error) {
	encodingName := resolveEncoding(model)

	t.mu.RLock()
	enc, ok := t.encodings[encodingName]
	t.mu.RUnlock()
	if ok {
		return enc, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if enc, ok = t.encodings[encodingName]; ok {
		return enc, nil
	}

	tk, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	t.encodings[encodingName] = tk
	return tk, nil
}

// resolveEncoding determines the encoding name for a model. Unknown models,
// including mistral and llama variants, fall back to cl100k_base.
func resolveEncoding(model string) string {
	modelLower := strings.ToLower(model)
	for _, me := range modelEncodings {
		if strings.HasPrefix(modelLower, me.prefix) {
			return me.encoding
		}
	}
	return EncodingCL100kBase
}

// CountTokens counts tokens in a text string for a given model.
func (t *TiktokenTokenizer) CountTokens(text string, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	enc, err := t.getEncoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
