package chunkpipe_test

import (
	"errors"
	"io"

	"github.com/jaddr2line/chunkpipe"
)

var errBoom = errors.New("boom")

// step is a single result produced by a fakeSource.
type step struct {
	data []byte
	err  error
}

// fakeSource is a ChunkReader which replays a fixed script and then reports io.EOF.
type fakeSource struct {
	steps []step
	calls int
}

func chunksOf(chunks ...string) *fakeSource {
	src := &fakeSource{}
	for _, c := range chunks {
		src.steps = append(src.steps, step{data: []byte(c)})
	}
	return src
}

func (f *fakeSource) then(err error) *fakeSource {
	f.steps = append(f.steps, step{err: err})
	return f
}

func (f *fakeSource) Next() ([]byte, error) {
	f.calls++
	if len(f.steps) == 0 {
		return nil, io.EOF
	}
	s := f.steps[0]
	f.steps = f.steps[1:]
	return s.data, s.err
}

// bracket wraps every chunk in brackets and counts its invocations.
func bracket(chunk []byte, calls *int) ([]byte, error) {
	*calls++
	out := append([]byte{'['}, chunk...)
	return append(out, ']'), nil
}

// stutterReader alternates between reads which make no progress and reads of a single byte.
type stutterReader struct {
	r        io.Reader
	stalled  bool
	sentinel bool
}

func (s *stutterReader) Read(dst []byte) (int, error) {
	s.stalled = !s.stalled
	if s.stalled {
		if s.sentinel {
			return 0, chunkpipe.ErrNotReady
		}
		return 0, nil
	}
	if len(dst) > 1 {
		dst = dst[:1]
	}
	return s.r.Read(dst)
}

// limitWriter accepts up to n bytes and then fails.
type limitWriter struct {
	n   int
	buf []byte
}

func (w *limitWriter) Write(src []byte) (int, error) {
	if len(src) > w.n {
		w.buf = append(w.buf, src[:w.n]...)
		n := w.n
		w.n = 0
		return n, errBoom
	}
	w.n -= len(src)
	w.buf = append(w.buf, src...)
	return len(src), nil
}

// eagerReader returns each byte together with ErrNotReady, as a non-blocking source
// does when it drains what is available.
type eagerReader struct {
	r io.Reader
}

func (e eagerReader) Read(dst []byte) (int, error) {
	if len(dst) > 1 {
		dst = dst[:1]
	}
	n, err := e.r.Read(dst)
	if n > 0 && err == nil {
		err = chunkpipe.ErrNotReady
	}
	return n, err
}
