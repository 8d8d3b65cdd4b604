// Package sse implements incremental Server-Sent Events framing.
//
// A Parser accepts arbitrary byte slices as they arrive from the network and
// returns complete events once their terminating blank line has been seen.
// Frames split across reads, including a CRLF split between two reads, are
// reassembled.
package sse

import (
	"bytes"
	"errors"
	"strconv"
)

// MaxLineSize bounds a single SSE line (1 MiB).
const MaxLineSize = 1 << 20

// ErrLineTooLong is returned when a line exceeds MaxLineSize.
var ErrLineTooLong = errors.New("sse: line exceeds maximum size")

// Kind distinguishes dispatched events from reconnection hints.
type Kind int

const (
	// KindEvent is a message carrying data.
	KindEvent Kind = iota
	// KindReconnectInterval is emitted for a "retry:" field.
	KindReconnectInterval
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindReconnectInterval:
		return "reconnect-interval"
	default:
		return "unknown"
	}
}

// Event is one parsed SSE record.
type Event struct {
	Kind  Kind
	Event string // value of the "event:" field, empty when absent
	ID    string
	Data  string // "data:" lines joined with "\n"
	Retry int    // milliseconds, only for KindReconnectInterval
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser holds framing state between Feed calls. The zero value is ready
// to use. A Parser is not safe for concurrent use.
type Parser struct {
	pending   []byte // bytes of an unterminated line
	data      []byte
	hasData   bool
	eventName string
	id        string
	bomDone   bool
	skipLF    bool // previous feed ended on '\r'
}

// Feed consumes the next slice of the stream and returns the events it
// completed, in order. Events completed before a framing error are still
// returned alongside the error.
func (p *Parser) Feed(chunk []byte) ([]Event, error) {
	p.pending = append(p.pending, chunk...)

	if !p.bomDone {
		if len(p.pending) < len(utf8BOM) && bytes.HasPrefix(utf8BOM, p.pending) {
			return nil, nil
		}
		p.pending = bytes.TrimPrefix(p.pending, utf8BOM)
		p.bomDone = true
	}

	var events []Event
	for {
		if p.skipLF && len(p.pending) > 0 {
			if p.pending[0] == '\n' {
				p.pending = p.pending[1:]
			}
			p.skipLF = false
		}

		i := bytes.IndexAny(p.pending, "\r\n")
		if i < 0 {
			break
		}
		if i > MaxLineSize {
			return events, ErrLineTooLong
		}

		line := p.pending[:i]
		rest := p.pending[i+1:]
		if p.pending[i] == '\r' {
			switch {
			case len(rest) == 0:
				p.skipLF = true
			case rest[0] == '\n':
				rest = rest[1:]
			}
		}

		if ev, ok := p.processLine(line); ok {
			events = append(events, ev)
		}
		p.pending = rest
	}

	if len(p.pending) > MaxLineSize {
		return events, ErrLineTooLong
	}
	if len(p.pending) == 0 {
		p.pending = nil
	}
	return events, nil
}

// Reset discards buffered input and any partially built event.
func (p *Parser) Reset() {
	*p = Parser{}
}

func (p *Parser) processLine(line []byte) (Event, bool) {
	if len(line) == 0 {
		return p.dispatch()
	}
	if line[0] == ':' {
		return Event{}, false
	}

	field, value := line, []byte(nil)
	if i := bytes.IndexByte(line, ':'); i >= 0 {
		field, value = line[:i], line[i+1:]
		if len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
	}

	switch string(field) {
	case "data":
		p.data = append(p.data, value...)
		p.data = append(p.data, '\n')
		p.hasData = true
	case "event":
		p.eventName = string(value)
	case "id":
		if bytes.IndexByte(value, 0) < 0 {
			p.id = string(value)
		}
	case "retry":
		if isDigits(value) {
			if ms, err := strconv.Atoi(string(value)); err == nil {
				return Event{Kind: KindReconnectInterval, Retry: ms}, true
			}
		}
	}
	return Event{}, false
}

func (p *Parser) dispatch() (Event, bool) {
	if !p.hasData {
		p.eventName = ""
		return Event{}, false
	}

	ev := Event{
		Kind:  KindEvent,
		Event: p.eventName,
		ID:    p.id,
		Data:  string(p.data[:len(p.data)-1]),
	}
	p.data = p.data[:0]
	p.hasData = false
	p.eventName = ""
	p.id = ""
	return ev, true
}

func isDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
