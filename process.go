package chunkpipe

import (
	"context"
	"errors"
	"io"
	"runtime"

	"go.uber.org/zap"
)

// Options are configuration options for a pipeline.
// The zero value is ready to use.
type Options struct {
	// ChunkSize is the maximum size of the chunks read from the source.
	// Defaults to DefaultChunkSize.
	ChunkSize int

	// Logger receives debug logs about the pipeline.
	// Defaults to a no-op logger.
	Logger *zap.Logger

	// MapError converts an error returned by the transform into the error reported by the pipeline.
	// If MapError is nil or returns nil, the error is wrapped in a *TransformError.
	MapError func(error) error
}

func (o Options) errorMapper() func(int, error) error {
	return func(chunk int, err error) error {
		if o.MapError != nil {
			if mapped := o.MapError(err); mapped != nil {
				return mapped
			}
		}
		return &TransformError{
			Chunk: chunk,
			Err:   err,
		}
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Process reads src, transforms it chunk by chunk with fn, and writes the result to dst.
//
// A fresh transform state is created for each call.
// If the state implements Finalizer, its output is written after all chunks, unless the input was empty.
// If the state implements Aborter, Abort is called when the pipeline fails.
// Errors from src and dst are returned unchanged; errors from fn are converted with opts.MapError.
// Process stops at the first error, and bytes already written to dst are left in place.
// Process does not close dst.
func Process[S any](ctx context.Context, dst io.Writer, src io.Reader, fn TransformFunc[S], opts Options) error {
	log := opts.logger()

	in := &countingReader{r: src}
	stage := NewStage(NewChunker(in, opts.ChunkSize), fn, opts)
	out := &countingWriter{w: dst}

	err := pump(ctx, out, NewReader(stage), opts.ChunkSize)
	if err == nil {
		var tail []byte
		tail, err = stage.finalize()
		if err == nil && len(tail) > 0 {
			_, err = out.Write(tail)
		}
	}

	if err != nil {
		stage.abort()
		log.Debug("pipeline failed",
			zap.Int("chunks", stage.idx),
			zap.Int64("bytes_in", in.n),
			zap.Int64("bytes_out", out.n),
			zap.Error(err))
		return err
	}
	log.Debug("pipeline completed",
		zap.Int("chunks", stage.idx),
		zap.Int64("bytes_in", in.n),
		zap.Int64("bytes_out", out.n))
	return nil
}

// pump copies r into w until r is exhausted.
func pump(ctx context.Context, w io.Writer, r io.Reader, bufSize int) error {
	if bufSize <= 0 {
		bufSize = DefaultChunkSize
	}
	_, err := io.CopyBuffer(w, &pollReader{ctx: ctx, r: r}, make([]byte, bufSize))
	return err
}

// pollReader yields to the scheduler instead of failing when the underlying reader is not ready.
type pollReader struct {
	ctx context.Context
	r   io.Reader
}

func (p *pollReader) Read(dst []byte) (int, error) {
	for {
		if err := p.ctx.Err(); err != nil {
			return 0, err
		}
		n, err := p.r.Read(dst)
		if errors.Is(err, ErrNotReady) {
			if n > 0 {
				return n, nil
			}
			runtime.Gosched()
			continue
		}
		return n, err
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(dst []byte) (int, error) {
	n, err := c.r.Read(dst)
	c.n += int64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(src []byte) (int, error) {
	n, err := c.w.Write(src)
	c.n += int64(n)
	return n, err
}
