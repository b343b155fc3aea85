package chunkpipe

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// TransformFunc transforms a single chunk.
//
// The state is owned by the pipeline and is shared by every call within it.
// A TransformFunc must not retain the chunk or the state pointer after returning.
// The state may have been modified even if an error is returned.
//
// If *S implements Finalizer, Process writes the output of Finalize after the last chunk.
// If *S implements Aborter, Process calls Abort when the pipeline fails.
type TransformFunc[S any] func(chunk []byte, state *S) ([]byte, error)

// Finalizer may be implemented by a transform state that produces trailing output,
// such as a compressor closing its frame.
// Process calls Finalize once after the input has been fully transformed.
// It is not called if the input was empty.
type Finalizer interface {
	Finalize() ([]byte, error)
}

// Aborter may be implemented by a transform state which holds resources.
// Process calls Abort once if the pipeline fails, instead of Finalize.
type Aborter interface {
	Abort()
}

// TransformError is the default error produced when a TransformFunc fails.
type TransformError struct {
	// Chunk is the zero-based index of the chunk which failed to transform.
	// It is -1 if the failure occurred while finalizing.
	Chunk int

	// Err is the error returned by the transform.
	Err error
}

func (e *TransformError) Error() string {
	if e.Chunk < 0 {
		return fmt.Sprintf("chunkpipe: failed to finalize transform: %v", e.Err)
	}
	return fmt.Sprintf("chunkpipe: failed to transform chunk %d: %v", e.Chunk, e.Err)
}

// Unwrap returns the error returned by the transform.
func (e *TransformError) Unwrap() error {
	return e.Err
}

// Stage applies a TransformFunc to every chunk of a ChunkReader.
// A Stage must not be polled concurrently.
type Stage[S any] struct {
	src    ChunkReader
	fn     TransformFunc[S]
	mapErr func(chunk int, err error) error

	// state is threaded through every call of fn
	state S

	// idx is the index of the next chunk
	idx int

	// err is the terminal condition of the stage
	err error
}

// NewStage creates a Stage which lazily transforms the chunks of src with fn.
// The transform state starts at the zero value of S.
//
// Only the MapError option is used by a Stage.
func NewStage[S any](src ChunkReader, fn TransformFunc[S], opts Options) *Stage[S] {
	if fn == nil {
		panic("chunkpipe.NewStage: nil TransformFunc")
	}
	return &Stage[S]{
		src:    src,
		fn:     fn,
		mapErr: opts.errorMapper(),
	}
}

// Next transforms the next chunk of the source.
//
// ErrNotReady from the source is returned as-is and may be retried.
// Once the source is exhausted or an error has been returned, every subsequent call returns the same result.
func (s *Stage[S]) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	chunk, err := s.src.Next()
	if err != nil {
		if !errors.Is(err, ErrNotReady) {
			s.err = err
		}
		return nil, err
	}

	idx := s.idx
	s.idx++
	out, err := s.fn(chunk, &s.state)
	if err != nil {
		s.err = s.mapErr(idx, err)
		return nil, s.err
	}
	return out, nil
}

// All returns an iterator over the remaining output of the stage.
//
// Iteration ends when the stage is exhausted or after the first error other than ErrNotReady is yielded.
// ErrNotReady is yielded to the consumer, which may keep iterating to poll again.
func (s *Stage[S]) All() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			chunk, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(chunk, err) {
				return
			}
			if err != nil && !errors.Is(err, ErrNotReady) {
				return
			}
		}
	}
}

// finalize runs the state's Finalizer, if any.
// A stage which never transformed a chunk produces no trailing output.
func (s *Stage[S]) finalize() ([]byte, error) {
	f, ok := any(&s.state).(Finalizer)
	if !ok || s.idx == 0 {
		return nil, nil
	}
	out, err := f.Finalize()
	if err != nil {
		return nil, s.mapErr(-1, err)
	}
	return out, nil
}

// abort runs the state's Aborter, if any.
func (s *Stage[S]) abort() {
	if a, ok := any(&s.state).(Aborter); ok {
		a.Abort()
	}
}
