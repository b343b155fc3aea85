package transform

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/jaddr2line/chunkpipe"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// ErrUnsupported indicates that a compression algorithm is not supported.
var ErrUnsupported = errors.New("unsupported compression algorithm")

// Algorithms are the names of the supported compression algorithms.
var Algorithms = []string{"gzip", "lz4", "zstd"}

type compressor interface {
	io.WriteCloser
	Flush() error
}

func compress(algo string, level int, dst io.Writer) (compressor, error) {
	switch algo {
	case "gzip":
		if level == 0 {
			return gzip.NewWriter(dst), nil
		}
		return gzip.NewWriterLevel(dst, level)
	case "lz4":
		w := lz4.NewWriter(dst)
		w.Header.CompressionLevel = level
		return w, nil
	case "zstd":
		if level == 0 {
			return zstd.NewWriter(dst)
		}
		return zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	default:
		return nil, ErrUnsupported
	}
}

// CompressState is the state of a compression transform.
// The zero value is an idle compressor which has not started a stream.
type CompressState struct {
	// buf collects compressed output between chunks
	buf bytes.Buffer

	// zw is the compressor, created on the first chunk
	zw compressor
}

// Compress creates a transform which compresses the stream with the given algorithm.
// Each chunk is flushed through the compressor, so the output of a chunk can be decompressed
// as soon as it is written. The frame is terminated when the state is finalized.
// An empty input produces an empty output.
//
// A level of 0 uses the default level of the algorithm.
func Compress(algo string, level int) (chunkpipe.TransformFunc[CompressState], error) {
	// check the configuration before any data is involved
	zw, err := compress(algo, level, io.Discard)
	if err != nil {
		return nil, fmt.Errorf("%s compressor: %w", algo, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%s compressor: %w", algo, err)
	}

	return func(chunk []byte, st *CompressState) ([]byte, error) {
		if st.zw == nil {
			zw, err := compress(algo, level, &st.buf)
			if err != nil {
				return nil, err
			}
			st.zw = zw
		}
		if _, err := st.zw.Write(chunk); err != nil {
			return nil, err
		}
		if err := st.zw.Flush(); err != nil {
			return nil, err
		}
		return st.take(), nil
	}, nil
}

// Finalize terminates the compressed stream.
func (st *CompressState) Finalize() ([]byte, error) {
	if st.zw == nil {
		return nil, nil
	}
	err := st.zw.Close()
	st.zw = nil
	if err != nil {
		return nil, err
	}
	return st.take(), nil
}

// Abort releases the compressor of a stream which will not be finalized.
func (st *CompressState) Abort() {
	if st.zw != nil {
		st.zw.Close()
		st.zw = nil
	}
	st.buf.Reset()
}

// take removes the buffered output.
func (st *CompressState) take() []byte {
	out := bytes.Clone(st.buf.Bytes())
	st.buf.Reset()
	return out
}
