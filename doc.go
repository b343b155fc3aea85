// Package chunkpipe implements stateful transformation of byte streams.
// Data is read from a source in chunks, each chunk is passed through a transform function
// together with state that persists for the lifetime of the pipeline, and the output is written to a sink as it is produced.
// The payload is never buffered in full, so a pipeline can compute checksums, compress, or reframe data of any length.
package chunkpipe
