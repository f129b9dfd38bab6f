// Package align provides the small size/alignment helpers the slab
// allocator needs when it turns a caller-requested chunk size into the
// actual, pointer-aligned footprint of a chunk.
package align

import (
	"unsafe"

	"github.com/cznic/mathutil"
)

// WordSize is the size, in bytes, of the integer used to encode a free
// chunk's in-block freelist link. A chunk's aligned payload must be at
// least this big so the link fits inside a free chunk's own storage.
const WordSize = int(unsafe.Sizeof(int(0)))

// Up rounds n up to the next multiple of m. m must be a power of two.
func Up(n, m int) int {
	if n < 0 {
		panic("align.Up: negative size")
	}
	return (n + m - 1) &^ (m - 1)
}

// Chunk rounds a requested chunk payload size up to at least WordSize and
// then up to the platform's pointer alignment, per spec.md §3: "chunk_size
// (requested payload size, raised to at least the size of the freelist
// link word, then aligned)".
func Chunk(requested int) int {
	return Up(int(mathutil.MaxInt64(int64(requested), int64(WordSize))), WordSize)
}
