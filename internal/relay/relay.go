// Package relay turns an upstream HTTP response into an ordered stream of
// byte chunks for the caller.
//
// Three response shapes are handled. A non-2xx status fails Open before any
// stream exists. A buffered body is read once and emitted as a single chunk.
// An SSE body is parsed incrementally; each event becomes one chunk until
// the [DONE] sentinel or the end of the body. A body labelled text/event-stream
// is SSE; any other body is SSE when it starts with an SSE field line.
//
// Body reads run on their own goroutines. Cancellation ends the stream
// without waiting for a pending read to return.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/mandalnilabja/pollinate/internal/observability"
	"github.com/mandalnilabja/pollinate/internal/sse"
	"github.com/mandalnilabja/pollinate/internal/types"
	"github.com/mandalnilabja/pollinate/internal/upstream"
)

// errorReadSize is the buffer for the single best-effort read of an error body.
const errorReadSize = 64 * 1024

// State is the lifecycle state of a Stream.
type State int

const (
	StateOpen State = iota
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Mode records which response shape a Stream is relaying.
type Mode string

const (
	ModeSSE      Mode = "sse"
	ModeBuffered Mode = "buffered"
)

// Options controls chunk extraction.
type Options struct {
	// JSONMode emits the "content" field of each payload instead of the raw payload.
	JSONMode bool

	Logger *slog.Logger
}

// Stats summarizes what a Stream emitted.
type Stats struct {
	Chunks int
	Bytes  int64
	Text   string
}

// Stream is the output side of one relay. Chunks arrive on an unbuffered
// channel, so the producer waits for the consumer and no output is batched.
type Stream struct {
	mode     Mode
	jsonMode bool
	logger   *slog.Logger
	body     io.ReadCloser
	cancel   context.CancelFunc
	chunks   chan []byte
	done     chan struct{}

	mu        sync.Mutex
	state     State
	err       error
	abandoned bool
	stats     Stats
	text      strings.Builder

	finishOnce sync.Once
}

// Open validates resp and starts relaying its body. On a non-2xx status the
// body is read once, closed, and an *upstream.UpstreamError is returned with
// no stream. Otherwise the returned Stream owns resp.Body.
func Open(ctx context.Context, resp *http.Response, opts Options) (*Stream, error) {
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, statusError(resp)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	body := resp.Body
	if body == nil {
		body = http.NoBody
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		jsonMode: opts.JSONMode,
		logger:   logger,
		body:     body,
		cancel:   cancel,
		chunks:   make(chan []byte),
		done:     make(chan struct{}),
		state:    StateOpen,
	}

	// Unblocks a pending body read on cancellation.
	context.AfterFunc(ctx, func() { _ = body.Close() })

	observability.ActiveRelays.Inc()
	switch {
	case isEventStream(resp):
		s.mode = ModeSSE
		go s.relayEvents(ctx, body)
	case body == http.NoBody:
		s.mode = ModeBuffered
		go s.relayBuffered(ctx, body)
	default:
		s.mode = ModeBuffered
		go s.relayUntyped(ctx)
	}
	return s, nil
}

// Chunks returns the output channel. It is closed exactly once, when the
// stream reaches StateClosed or StateErrored.
func (s *Stream) Chunks() <-chan []byte {
	return s.chunks
}

// Err returns the error that moved the stream to StateErrored, or nil.
// It is meaningful once Chunks has been closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the response shape being relayed. A body without an SSE
// content type reports ModeBuffered until sniffing shows it is SSE.
func (s *Stream) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Stream) setMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// Stats returns counters for the chunks emitted so far.
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Text = s.text.String()
	return st
}

// Close abandons the stream: pending reads of the upstream body are
// cancelled and the body is closed. It waits for the producer to stop,
// which never waits on a body read, and is safe to call more than once.
// A stream that already finished keeps its final state.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.abandoned = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

// WriteTo copies every chunk to w in order, flushing after each one when w
// is an http.Flusher. If a write fails the stream is abandoned. It returns
// the stream error, if any, once the stream ends.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	flusher, _ := w.(http.Flusher)

	var total int64
	for chunk := range s.chunks {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			_ = s.Close()
			return total, err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return total, s.Err()
}

// relayUntyped handles a body without an SSE content type: it is relayed
// as SSE when its first line is an SSE field, otherwise buffered.
func (s *Stream) relayUntyped(ctx context.Context) {
	type result struct {
		head  []byte
		isSSE bool
		err   error
	}
	sniffed := make(chan result, 1)
	go func() {
		head, isSSE, err := sniff(s.body)
		sniffed <- result{head, isSSE, err}
	}()

	var res result
	select {
	case res = <-sniffed:
	case <-ctx.Done():
		s.finish(ctx, nil)
		return
	}

	r := replay(res.head, res.err, s.body)
	if res.isSSE {
		s.setMode(ModeSSE)
		s.relayEvents(ctx, r)
		return
	}
	s.relayBuffered(ctx, r)
}

// relayBuffered reads the whole body and emits it as one chunk.
func (s *Stream) relayBuffered(ctx context.Context, r io.Reader) {
	type result struct {
		data []byte
		err  error
	}
	read := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(r)
		read <- result{data, err}
	}()

	var res result
	select {
	case res = <-read:
	case <-ctx.Done():
		s.finish(ctx, nil)
		return
	}

	if res.err != nil {
		err := res.err
		if ctx.Err() == nil {
			err = fmt.Errorf("failed to read upstream body: %w", err)
		}
		s.finish(ctx, err)
		return
	}

	text, err := chunkText(string(res.data), s.jsonMode)
	if err != nil {
		s.finish(ctx, err)
		return
	}

	s.emit(ctx, text)
	s.finish(ctx, nil)
}

// relayEvents parses r as SSE on one goroutine and applies the chunk
// policy on this one.
func (s *Stream) relayEvents(ctx context.Context, r io.Reader) {
	events := make(chan sse.Event)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- sse.Scan(ctx, r, events)
		close(events)
	}()

	for {
		var ev sse.Event
		var ok bool
		select {
		case ev, ok = <-events:
		case <-ctx.Done():
			s.finish(ctx, nil)
			return
		}

		if !ok {
			s.finish(ctx, scanError(ctx, <-scanErr))
			return
		}
		if ev.Kind != sse.KindEvent {
			continue
		}

		if ev.Data == types.DoneSentinel {
			s.finish(ctx, nil)
			return
		}

		text, err := chunkText(ev.Data, s.jsonMode)
		if err != nil {
			s.finish(ctx, err)
			return
		}

		if !s.emit(ctx, text) {
			s.finish(ctx, nil)
			return
		}
	}
}

// scanError maps the result of sse.Scan to the stream error.
func scanError(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sse.ErrLineTooLong):
		return newParseError("", err)
	case ctx.Err() != nil:
		// finish decides between abandoned and cancelled.
		return err
	default:
		return fmt.Errorf("failed to read upstream stream: %w", err)
	}
}

// emit hands one chunk to the consumer. It returns false if the stream was
// cancelled before the consumer took it.
func (s *Stream) emit(ctx context.Context, text string) bool {
	chunk := []byte(text)
	select {
	case s.chunks <- chunk:
	case <-ctx.Done():
		return false
	}

	s.mu.Lock()
	s.stats.Chunks++
	s.stats.Bytes += int64(len(chunk))
	s.text.WriteString(text)
	s.mu.Unlock()

	observability.RelayChunksTotal.WithLabelValues(string(s.Mode())).Inc()
	return true
}

// finish moves the stream to its terminal state exactly once, closes the
// output channel and releases the upstream body.
func (s *Stream) finish(ctx context.Context, err error) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		if cerr := ctx.Err(); cerr != nil {
			if s.abandoned {
				err = nil
			} else {
				err = cerr
			}
		}
		if err != nil {
			s.state = StateErrored
			s.err = err
		} else {
			s.state = StateClosed
		}
		state := s.state
		mode := s.mode
		chunks := s.stats.Chunks
		s.mu.Unlock()

		close(s.chunks)
		s.cancel()
		_ = s.body.Close()

		observability.ActiveRelays.Dec()
		observability.RelaysTotal.WithLabelValues(string(mode), state.String()).Inc()

		if err != nil {
			attrs := []any{"mode", mode, "chunks", chunks, "error", err}
			var perr *ParseError
			if errors.As(err, &perr) && perr.Data != "" {
				attrs = append(attrs, "data", perr.Data)
			}
			level := slog.LevelWarn
			if errors.Is(err, context.Canceled) {
				level = slog.LevelDebug
			}
			s.logger.Log(context.Background(), level, "relay stream errored", attrs...)
		}
		close(s.done)
	})
}

// statusError builds the error for a non-2xx response from a single read
// of its body, falling back to the status phrase.
func statusError(resp *http.Response) error {
	var msg string
	if resp.Body != nil {
		buf := make([]byte, errorReadSize)
		n, _ := resp.Body.Read(buf)
		msg = string(buf[:n])
		_ = resp.Body.Close()
	}
	if msg == "" {
		msg = statusPhrase(resp)
	}
	return &upstream.UpstreamError{StatusCode: resp.StatusCode, Message: msg}
}

// statusPhrase returns the reason phrase of resp, e.g. "Internal Server Error".
func statusPhrase(resp *http.Response) string {
	if _, phrase, ok := strings.Cut(resp.Status, " "); ok && phrase != "" {
		return phrase
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

// isEventStream reports whether resp carries an SSE body. A missing body
// or any other content type is relayed as a single buffered chunk.
func isEventStream(resp *http.Response) bool {
	if resp.Body == nil || resp.Body == http.NoBody {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == types.ContentTypeEventStream
}
