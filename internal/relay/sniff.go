package relay

import (
	"bytes"
	"io"
)

// sniffReadSize is the buffer for each read while classifying a body.
const sniffReadSize = 512

// sseFieldPrefixes are the line starts that mark a body as SSE.
var sseFieldPrefixes = [][]byte{
	[]byte("data:"),
	[]byte("event:"),
	[]byte("id:"),
	[]byte("retry:"),
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniff reads from r until it can tell whether the body starts with an SSE
// field line. It returns the bytes consumed so they can be replayed, after
// the first read that settles the question.
func sniff(r io.Reader) ([]byte, bool, error) {
	var head []byte
	buf := make([]byte, sniffReadSize)
	for {
		n, err := r.Read(buf)
		head = append(head, buf[:n]...)
		if isSSE, decided := classify(head); decided {
			return head, isSSE, err
		}
		if err != nil {
			return head, false, err
		}
	}
}

// classify reports whether head starts with an SSE field, and whether
// head is long enough to know.
func classify(head []byte) (isSSE, decided bool) {
	if len(head) < len(utf8BOM) && bytes.HasPrefix(utf8BOM, head) {
		return false, false
	}
	head = bytes.TrimPrefix(head, utf8BOM)
	if len(head) == 0 {
		return false, false
	}

	undecided := false
	for _, prefix := range sseFieldPrefixes {
		if bytes.HasPrefix(head, prefix) {
			return true, true
		}
		if bytes.HasPrefix(prefix, head) {
			undecided = true
		}
	}
	return false, !undecided
}

// replay yields head followed by the rest of body. A read error seen while
// sniffing is returned once head is drained.
func replay(head []byte, err error, body io.Reader) io.Reader {
	switch err {
	case nil:
		return io.MultiReader(bytes.NewReader(head), body)
	case io.EOF:
		return bytes.NewReader(head)
	default:
		return io.MultiReader(bytes.NewReader(head), errReader{err})
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
