package chunkpipe_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/jaddr2line/chunkpipe"
	"github.com/stretchr/testify/require"
)

func collectStage[S any](s *chunkpipe.Stage[S]) ([]string, error) {
	var out []string
	for chunk, err := range s.All() {
		if err != nil {
			return out, err
		}
		out = append(out, string(chunk))
	}
	return out, nil
}

func TestStage_TransformsInOrder(t *testing.T) {
	var calls int
	src := chunksOf("a", "bc", "", "d")
	stage := chunkpipe.NewStage(src, func(chunk []byte, n *int) ([]byte, error) {
		calls++
		return bracket(chunk, n)
	}, chunkpipe.Options{})

	out, err := collectStage(stage)
	require.NoError(t, err)
	require.Equal(t, []string{"[a]", "[bc]", "[]", "[d]"}, out)
	require.Equal(t, 4, calls)
}

func TestStage_ThreadsState(t *testing.T) {
	stage := chunkpipe.NewStage(chunksOf("x", "y", "z"), func(chunk []byte, seen *[]string) ([]byte, error) {
		*seen = append(*seen, string(chunk))
		return []byte(fmt.Sprint(*seen)), nil
	}, chunkpipe.Options{})

	out, err := collectStage(stage)
	require.NoError(t, err)
	require.Equal(t, []string{"[x]", "[x y]", "[x y z]"}, out)
}

func TestStage_ExhaustionIsTerminal(t *testing.T) {
	src := chunksOf("a")
	stage := chunkpipe.NewStage(src, bracket, chunkpipe.Options{})

	chunk, err := stage.Next()
	require.NoError(t, err)
	require.Equal(t, "[a]", string(chunk))

	for i := 0; i < 3; i++ {
		_, err = stage.Next()
		require.Equal(t, io.EOF, err)
	}
	require.Equal(t, 2, src.calls, "source polled after exhaustion")
}

func TestStage_NotReadyIsRetried(t *testing.T) {
	var calls int
	src := &fakeSource{steps: []step{
		{err: chunkpipe.ErrNotReady},
		{data: []byte("a")},
		{err: chunkpipe.ErrNotReady},
		{data: []byte("b")},
	}}
	stage := chunkpipe.NewStage(src, func(chunk []byte, _ *struct{}) ([]byte, error) {
		calls++
		return chunk, nil
	}, chunkpipe.Options{})

	_, err := stage.Next()
	require.ErrorIs(t, err, chunkpipe.ErrNotReady)
	require.Zero(t, calls, "transform invoked without a chunk")

	chunk, err := stage.Next()
	require.NoError(t, err)
	require.Equal(t, "a", string(chunk))

	_, err = stage.Next()
	require.ErrorIs(t, err, chunkpipe.ErrNotReady)

	chunk, err = stage.Next()
	require.NoError(t, err)
	require.Equal(t, "b", string(chunk))
	require.Equal(t, 2, calls)
}

func TestStage_ForwardsSourceError(t *testing.T) {
	var calls int
	src := chunksOf("a").then(errBoom)
	stage := chunkpipe.NewStage(src, func(chunk []byte, n *int) ([]byte, error) {
		calls++
		return bracket(chunk, n)
	}, chunkpipe.Options{})

	out, err := collectStage(stage)
	require.Same(t, errBoom, err)
	require.Equal(t, []string{"[a]"}, out)
	require.Equal(t, 1, calls)

	// the stage stays failed without polling the source again
	_, err = stage.Next()
	require.Same(t, errBoom, err)
	require.Equal(t, 2, src.calls)
}

func TestStage_ConvertsTransformError(t *testing.T) {
	src := chunksOf("a", "b", "c")
	stage := chunkpipe.NewStage(src, func(chunk []byte, n *int) ([]byte, error) {
		*n++
		if *n == 2 {
			return []byte("partial"), errBoom
		}
		return chunk, nil
	}, chunkpipe.Options{})

	out, err := collectStage(stage)
	require.Equal(t, []string{"a"}, out)
	require.ErrorIs(t, err, errBoom)

	var terr *chunkpipe.TransformError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, 1, terr.Chunk)
	require.EqualError(t, err, "chunkpipe: failed to transform chunk 1: boom")

	_, again := stage.Next()
	require.Equal(t, err, again)
	require.Equal(t, 2, src.calls, "source polled after transform failure")
}

func TestStage_MapError(t *testing.T) {
	errMapped := errors.New("mapped")
	stage := chunkpipe.NewStage(chunksOf("a"), func([]byte, *struct{}) ([]byte, error) {
		return nil, errBoom
	}, chunkpipe.Options{
		MapError: func(err error) error {
			require.Same(t, errBoom, err)
			return errMapped
		},
	})

	_, err := stage.Next()
	require.Same(t, errMapped, err)
}

func TestStage_MapErrorFallback(t *testing.T) {
	stage := chunkpipe.NewStage(chunksOf("a"), func([]byte, *struct{}) ([]byte, error) {
		return nil, errBoom
	}, chunkpipe.Options{
		MapError: func(error) error { return nil },
	})

	_, err := stage.Next()
	var terr *chunkpipe.TransformError
	require.ErrorAs(t, err, &terr)
	require.Same(t, errBoom, terr.Err)
}

func TestStage_AllYieldsNotReady(t *testing.T) {
	src := &fakeSource{steps: []step{
		{err: chunkpipe.ErrNotReady},
		{data: []byte("a")},
	}}
	stage := chunkpipe.NewStage(src, bracket, chunkpipe.Options{})

	var out []string
	var stalls int
	for chunk, err := range stage.All() {
		if errors.Is(err, chunkpipe.ErrNotReady) {
			stalls++
			continue
		}
		require.NoError(t, err)
		out = append(out, string(chunk))
	}
	require.Equal(t, 1, stalls)
	require.Equal(t, []string{"[a]"}, out)
}

func TestNewStage_NilFunc(t *testing.T) {
	require.Panics(t, func() {
		chunkpipe.NewStage[int](chunksOf("a"), nil, chunkpipe.Options{})
	})
}
