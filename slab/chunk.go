package slab

import "unsafe"

// slabIdentityTag is the small identity tag spec.md §3/§6 asks every chunk
// header to carry, so a framework holding an arbitrary pointer can route
// framework-level operations (e.g. "find the owning context for this
// pointer") to this allocator's implementation rather than some other
// memory-context kind sharing the same framework. It spells "SLAB" in
// ASCII, the same "stamp something recognizable in the tag byte" idea as
// lldb's head/tail block tags (falloc.go).
const slabIdentityTag uint32 = 0x534c4142

// chunkHeader is the fixed-size preamble stamped onto every chunk slot,
// embedded directly in the arena bytes immediately before the payload -
// because Free/ChunkContext/ChunkSpace are given only a bare payload
// slice and must recover everything else from it alone (spec.md §9,
// "Payload-to-context recovery"). spec.md §6 explicitly allows either "an
// encoded offset or direct pointer, sized for the platform" to recover
// the owning block; this implementation uses a direct pointer.
//
// owner is safe to embed here even though the underlying storage is a
// plain []byte (whose type descriptor tells the garbage collector "no
// pointers inside," so the GC never traces through this field): the
// block it points to is always independently reachable through ordinary
// typed fields (the context's freelist array, or the block's own
// prev/next links) for as long as any chunk carved from it could
// legally be passed to Free, so nothing here is ever the only reference
// keeping a block alive. This mirrors the technique the same author's
// standalone memory allocator uses for its page/node headers.
type chunkHeader struct {
	tag   uint32
	_pad  uint32
	owner *block
}

const chunkHeaderSize = int(unsafe.Sizeof(chunkHeader{}))

// headerOf returns the chunkHeader immediately preceding payload. payload
// must be a slice previously returned by Alloc (i.e. sliced so that
// payload[0] sits exactly chunkHeaderSize bytes after its header).
func headerOf(payload []byte) *chunkHeader {
	return (*chunkHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(&payload[0])) - uintptr(chunkHeaderSize)))
}

// stampHeader writes the identity tag and owner back-link for slot idx of
// blk. The header never needs re-stamping on each Alloc/Free cycle: unlike
// the source this is adapted from, the header here occupies bytes
// disjoint from the in-block freelist link (which lives entirely inside
// the payload region), so nothing ever overwrites it once a block is
// formatted.
func stampHeader(blk *block, idx int, fullChunkSize int) {
	h := (*chunkHeader)(unsafe.Pointer(&blk.buf[idx*fullChunkSize]))
	h.tag = slabIdentityTag
	h.owner = blk
}

// payloadOf returns the full (alignedChunkSize-capacity) payload slice for
// slot idx of blk, per the context's sizing.
func payloadOf(blk *block, idx, fullChunkSize, alignedChunkSize int) []byte {
	off := idx*fullChunkSize + chunkHeaderSize
	return blk.buf[off : off+alignedChunkSize : off+alignedChunkSize]
}

// readLink/writeLink encode/decode the in-block freelist link a free
// chunk's payload carries in its first word, per spec.md §3: "A free
// slot's payload bytes, interpreted as an integer index, give the next
// free slot's index, or chunks_per_block for end-of-chain."
func readLink(payload []byte) int {
	return int(*(*uint64)(unsafe.Pointer(&payload[0])))
}

func writeLink(payload []byte, next int) {
	*(*uint64)(unsafe.Pointer(&payload[0])) = uint64(next)
}
