package sse

import (
	"context"
	"io"
)

// readBufferSize is the size of each read from the underlying body.
const readBufferSize = 32 * 1024

// Scan reads r until EOF, feeding a Parser and sending every completed
// event on out in arrival order. It blocks while out is not being drained.
//
// The channel is not closed by Scan; the caller owns it. Scan returns nil
// at EOF, ctx.Err() when the context is cancelled, and otherwise the first
// read or framing error.
func Scan(ctx context.Context, r io.Reader, out chan<- Event) error {
	var p Parser
	buf := make([]byte, readBufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			events, perr := p.Feed(buf[:n])
			for _, ev := range events {
				select {
				case out <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if perr != nil {
				return perr
			}
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			// A body closed underneath us on cancellation is not a read failure.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}
