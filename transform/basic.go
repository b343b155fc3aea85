package transform

import "strconv"

// Identity passes every chunk through unchanged.
func Identity(chunk []byte, _ *struct{}) ([]byte, error) {
	return chunk, nil
}

// Counter replaces every chunk with the number of chunks seen so far, followed by a newline.
func Counter(_ []byte, n *int) ([]byte, error) {
	*n++
	return append(strconv.AppendInt(nil, int64(*n), 10), '\n'), nil
}
