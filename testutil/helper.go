// Package testutil holds helpers shared by the codec tests: byte
// builders for hand-written binary fixtures and a diff wrapper for
// value trees.
package testutil

import (
	"encoding/binary"
	"math"

	"github.com/google/go-cmp/cmp"
)

// U4 renders a big-endian unsigned 32-bit integer.
func U4(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

// U2 renders a big-endian unsigned 16-bit integer.
func U2(v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b[:]
}

// S8 renders a big-endian signed 64-bit integer.
func S8(v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return b[:]
}

// F8 renders a big-endian IEEE 754 double.
func F8(v float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}

// Str renders a length-prefixed UTF-8 string as it appears on the
// wire.
func Str(s string) []byte {
	return append(U2(uint16(len(s))), s...)
}

// Bytes concatenates fixture fragments.
func Bytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Diff returns a human-readable diff between two value trees, empty
// when they are equal.
func Diff(want, got any) string {
	return cmp.Diff(want, got)
}
