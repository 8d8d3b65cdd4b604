package media

import (
	"errors"
	"fmt"
)

var (
	// ErrFFmpegNotFound is returned when frame extraction is requested but
	// no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("ffmpeg not found")

	// ErrNoFrames is returned when ffmpeg ran but produced no frames.
	ErrNoFrames = errors.New("no frames extracted")

	ErrEmptyInput = errors.New("empty input")

	// ErrImageTooLarge is returned for images whose declared size exceeds
	// MaxImagePixels. The check runs before any pixel data is decoded.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

// MediaError reports a failed preprocessing step.
type MediaError struct {
	Op  string
	Err error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media %s: %v", e.Op, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

func opError(op string, err error) error {
	return &MediaError{Op: op, Err: err}
}
