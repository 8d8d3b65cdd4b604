package relay

import (
	"errors"
	"fmt"
)

// maxErrorData bounds how much upstream text a ParseError keeps.
const maxErrorData = 512

var errNullPayload = errors.New("payload is null")

// ParseError reports an upstream payload that could not be decoded:
// malformed JSON in jsonMode, or malformed SSE framing. Data keeps a
// truncated copy of the offending text for diagnostics.
type ParseError struct {
	Data string
	Err  error
}

func newParseError(data string, err error) *ParseError {
	return &ParseError{Data: truncate(data, maxErrorData), Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid upstream payload: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// truncate limits a string to maxLen bytes for logs.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
