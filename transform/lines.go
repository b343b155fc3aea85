package transform

import (
	"bytes"
	"fmt"
)

// LineState tracks line framing across chunk boundaries.
type LineState struct {
	// partial is the unterminated line carried over from previous chunks
	partial []byte

	// n is the number of lines emitted
	n int
}

// NumberLines reframes the stream into whole lines, each prefixed with its line number.
// A line split across chunks is emitted with the chunk that completes it.
// A final line without a terminating newline is emitted when the state is finalized.
func NumberLines(chunk []byte, st *LineState) ([]byte, error) {
	var out []byte
	for {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			st.partial = append(st.partial, chunk...)
			return out, nil
		}
		out = st.appendLine(out, chunk[:i+1])
		chunk = chunk[i+1:]
	}
}

// Finalize emits the trailing unterminated line, if there is one.
func (st *LineState) Finalize() ([]byte, error) {
	if len(st.partial) == 0 {
		return nil, nil
	}
	return st.appendLine(nil, nil), nil
}

func (st *LineState) appendLine(out, tail []byte) []byte {
	st.n++
	out = fmt.Appendf(out, "%6d\t", st.n)
	out = append(out, st.partial...)
	out = append(out, tail...)
	st.partial = st.partial[:0]
	return out
}
