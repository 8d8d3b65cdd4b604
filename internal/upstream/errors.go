package upstream

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt is returned when a chat request carries no prompt text.
var ErrEmptyPrompt = errors.New("prompt text is required")

// ConnectionError reports a transport-level failure reaching the upstream API.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("upstream connection to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a non-2xx response. Message holds the upstream
// body text, or the status phrase when the body was empty or unreadable.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API returned an error (status %d): %s", e.StatusCode, e.Message)
}
