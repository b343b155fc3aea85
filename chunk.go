package chunkpipe

import (
	"errors"
	"io"
)

// ErrNotReady indicates that a source cannot produce data right now.
// The operation made no progress and should be retried later.
var ErrNotReady = errors.New("chunkpipe: not ready")

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 32 * 1024

// ChunkReader is a lazily evaluated sequence of byte chunks.
//
// Next returns the next chunk in the sequence.
// It returns io.EOF when the sequence is exhausted, and ErrNotReady when no chunk is available yet.
// Chunks returned by Next must not be modified by the caller.
type ChunkReader interface {
	Next() ([]byte, error)
}

// Chunker splits a byte stream into chunks.
type Chunker struct {
	// src is the byte source
	src io.Reader

	// size is the maximum size of a chunk
	size int

	// err is an error deferred until the data read alongside it has been returned
	err error
}

// NewChunker creates a ChunkReader which reads chunks of up to size bytes from src.
// If size is not positive, DefaultChunkSize is used.
func NewChunker(src io.Reader, size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{
		src:  src,
		size: size,
	}
}

// Next reads the next chunk from the source.
// Each chunk has its own backing array, so it may be retained by the caller.
func (c *Chunker) Next() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}

	buf := make([]byte, c.size)
	n, err := c.src.Read(buf)
	if n > 0 {
		// hand out the data now and report the error on the next call
		if !errors.Is(err, ErrNotReady) {
			c.err = err
		}
		return buf[:n:n], nil
	}

	switch {
	case err == nil:
		return nil, ErrNotReady
	case errors.Is(err, ErrNotReady):
		return nil, err
	}
	c.err = err
	return nil, err
}

// Reader re-assembles a chunk sequence into a byte stream.
type Reader struct {
	// src is the chunk source
	src ChunkReader

	// buf is the unread remainder of the current chunk
	buf []byte

	// err is the terminal error of the chunk sequence
	err error
}

// NewReader creates an io.Reader which reads the concatenation of the chunks of src.
// Read returns ErrNotReady when src is not ready and no buffered data remains.
func NewReader(src ChunkReader) *Reader {
	return &Reader{src: src}
}

func (r *Reader) Read(dst []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}

		chunk, err := r.src.Next()
		switch {
		case err == nil:
			// empty chunks are skipped
			r.buf = chunk
		case errors.Is(err, ErrNotReady):
			return 0, err
		default:
			r.err = err
			return 0, err
		}
	}

	n := copy(dst, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
