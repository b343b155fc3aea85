// Package transform provides ready-made transforms for chunkpipe pipelines.
//
// Every transform is a chunkpipe.TransformFunc.
// Transforms whose state implements chunkpipe.Finalizer emit trailing output after the last chunk,
// such as the end of a compressed frame or a checksum.
package transform
