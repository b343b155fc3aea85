package transform

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
)

// CRC32State accumulates an IEEE CRC-32 checksum.
type CRC32State struct {
	sum uint32
}

// CRC32 passes the stream through unchanged and appends its CRC-32 checksum as a 4 byte big-endian trailer.
func CRC32(chunk []byte, st *CRC32State) ([]byte, error) {
	st.sum = crc32.Update(st.sum, crc32.IEEETable, chunk)
	return chunk, nil
}

// Finalize emits the checksum trailer.
func (st *CRC32State) Finalize() ([]byte, error) {
	return binary.BigEndian.AppendUint32(nil, st.sum), nil
}

// XXHashState accumulates a 64 bit xxHash digest.
type XXHashState struct {
	d *xxhash.Digest
}

// XXHash passes the stream through unchanged and appends its xxHash64 digest as an 8 byte big-endian trailer.
func XXHash(chunk []byte, st *XXHashState) ([]byte, error) {
	if st.d == nil {
		st.d = xxhash.New()
	}
	st.d.Write(chunk)
	return chunk, nil
}

// Finalize emits the digest trailer.
func (st *XXHashState) Finalize() ([]byte, error) {
	if st.d == nil {
		st.d = xxhash.New()
	}
	return binary.BigEndian.AppendUint64(nil, st.d.Sum64()), nil
}
