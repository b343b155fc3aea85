package chunkpipe_test

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jaddr2line/chunkpipe"
)

func Example_minimal() {
	// Number each chunk as it passes through.
	// The counter lives for the duration of the pipeline.
	label := func(chunk []byte, n *int) ([]byte, error) {
		*n++
		return []byte(fmt.Sprintf("%d:%s\n", *n, chunk)), nil
	}

	err := chunkpipe.Process(context.Background(), os.Stdout, strings.NewReader("Hello World!"), label, chunkpipe.Options{
		ChunkSize: 5,
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output:
	// 1:Hello
	// 2: Worl
	// 3:d!
}

func ExampleStage() {
	// A Stage can also be polled by hand.
	stage := chunkpipe.NewStage(chunkpipe.NewChunker(strings.NewReader("abcdef"), 2), func(chunk []byte, _ *struct{}) ([]byte, error) {
		return bytes.ToUpper(chunk), nil
	}, chunkpipe.Options{})

	for chunk, err := range stage.All() {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(chunk))
	}

	// Output:
	// AB
	// CD
	// EF
}
