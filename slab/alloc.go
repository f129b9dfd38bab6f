package slab

import (
	"fmt"
	"math/rand"
	"unsafe"

	"modernc.org/slab/internal/align"
)

// Alloc returns a chunk of exactly size bytes from ctx, or (nil, nil) if
// the host Arena could not supply a new block. size must equal
// ctx.ChunkSize(); any other value is an *ErrInvariantViolation, per
// spec.md §4.2 and §7 ("unlike context creation, allocation signals
// host-allocator failure by returning null rather than raising").
func Alloc(ctx *Context, size int) ([]byte, error) {
	if size != ctx.chunkSize {
		return nil, &ErrInvariantViolation{
			Op:   "Alloc",
			What: fmt.Sprintf("size %d != chunk_size %d", size, ctx.chunkSize),
		}
	}

	if ctx.minFreeChunks == 0 {
		blk, err := ctx.newBlock()
		if err != nil {
			return nil, nil // soft host-allocator failure: null sentinel, state unchanged
		}
		ctx.pushFront(blk, ctx.chunksPerBlock)
		ctx.minFreeChunks = ctx.chunksPerBlock
		ctx.nblocks++
	}

	blk := ctx.freelist[ctx.minFreeChunks]
	oldBucket := ctx.minFreeChunks

	idx := blk.firstFree
	payload := payloadOf(blk, idx, ctx.fullChunkSize, ctx.alignedChunkSize)
	blk.firstFree = readLink(payload)
	blk.nfree--

	ctx.unlinkFromBucket(blk, oldBucket)
	ctx.pushFront(blk, blk.nfree)

	if blk.nfree != 0 {
		ctx.minFreeChunks = blk.nfree
	} else {
		ctx.minFreeChunks = ctx.scanMinFree()
	}

	if ctx.opts.RandomizeAllocated {
		randomizePattern(payload[:ctx.chunkSize])
	}

	return payload[:ctx.chunkSize:ctx.alignedChunkSize], nil
}

// Free returns a chunk previously obtained from Alloc to its owning
// context. The owning block and context are recovered entirely from
// payload's chunk header (spec.md §4.3, §9).
//
// When Options.MemoryChecking is set, Free also compares the sentinel
// byte immediately past the chunk's requested size against its expected
// value before anything else touches the slot, and reports
// *ErrCorruptionDetected if it was overwritten — the same non-fatal
// finding Check reports, just caught here at the one moment a write past
// a chunk's end is still observable: once the slot is recycled (or, for
// the block's last live chunk, once the whole block is released back to
// the Arena a few lines below), the evidence is gone. The free itself
// still completes; the error is informational, not a failure to free.
func Free(payload []byte) error {
	h := headerOf(payload)
	if h.tag != slabIdentityTag {
		return &ErrCorruptionDetected{Op: "Free", What: "chunk header carries a foreign or missing identity tag"}
	}
	blk := h.owner
	ctx := blk.slab

	idx := slotIndex(blk, payload, ctx)
	full := payloadOf(blk, idx, ctx.fullChunkSize, ctx.alignedChunkSize)

	var corrupted error
	if ctx.opts.MemoryChecking && ctx.alignedChunkSize > ctx.chunkSize && full[ctx.chunkSize] != canaryByte {
		corrupted = &ErrCorruptionDetected{Op: "Free", What: "write past chunk payload overwrote the sentinel byte"}
	}

	if ctx.opts.ClobberFreed {
		for i := align.WordSize; i < len(full); i++ {
			full[i] = clobberByte
		}
		if ctx.opts.MemoryChecking && ctx.alignedChunkSize > ctx.chunkSize {
			full[ctx.chunkSize] = canaryByte
		}
	}
	writeLink(full, blk.firstFree)
	blk.firstFree = idx
	blk.nfree++

	old := blk.nfree - 1
	ctx.unlinkFromBucket(blk, old)

	if old == 0 && blk.nfree != ctx.chunksPerBlock {
		// The block was full and now has one free chunk, so bucket 1 is
		// the least-free non-empty bucket whatever else the context holds.
		ctx.minFreeChunks = 1
	} else if ctx.minFreeChunks == old {
		if ctx.freelist[old] == nil {
			if blk.nfree == ctx.chunksPerBlock {
				ctx.minFreeChunks = 0
			} else {
				ctx.minFreeChunks = old + 1
			}
		}
		// else: other blocks still have `old` free chunks, leave as is.
	}

	if blk.nfree == ctx.chunksPerBlock {
		if err := ctx.releaseBlock(blk); err != nil {
			return err
		}
		return corrupted
	}

	ctx.pushFront(blk, blk.nfree)
	return corrupted
}

// Realloc returns payload unchanged when size equals the owning context's
// chunk_size, and fails with *ErrUnsupportedOperation for any other size
// (spec.md §4.4): this allocator never resizes, copies, or relocates a
// chunk in place.
func Realloc(payload []byte, size int) ([]byte, error) {
	ctx := ChunkContext(payload)
	if size != ctx.chunkSize {
		return nil, &ErrUnsupportedOperation{
			Op:   "Realloc",
			What: fmt.Sprintf("size %d != chunk_size %d", size, ctx.chunkSize),
		}
	}
	return payload, nil
}

// IsEmpty reports whether ctx currently holds any blocks.
func IsEmpty(ctx *Context) bool { return ctx.nblocks == 0 }

// ChunkContext recovers the context that a chunk was allocated from.
func ChunkContext(payload []byte) *Context {
	return headerOf(payload).owner.slab
}

// ChunkSpace reports the total per-chunk footprint (header + aligned
// payload) of the context payload was allocated from.
func ChunkSpace(payload []byte) int {
	return headerOf(payload).owner.slab.fullChunkSize
}

// Reset releases every block ctx holds back to the host Arena and
// returns ctx to its just-created state. Safe to call on an already-empty
// context (spec.md §4.5).
func Reset(ctx *Context) error {
	for i := range ctx.freelist {
		for blk := ctx.freelist[i]; blk != nil; {
			next := blk.next
			blk.prev, blk.next = nil, nil
			if err := ctx.releaseBlock(blk); err != nil {
				return err
			}
			blk = next
		}
		ctx.freelist[i] = nil
	}
	ctx.minFreeChunks = 0
	if ctx.nblocks != 0 {
		panic("slab: Reset: nblocks != 0 after releasing every block")
	}
	return nil
}

// Delete resets ctx and releases its own header storage. After Delete
// returns, ctx must not be used again.
func Delete(ctx *Context) error {
	if err := Reset(ctx); err != nil {
		return err
	}
	return ctx.arena.Release(ctx.headerBuf)
}

func slotIndex(blk *block, payload []byte, ctx *Context) int {
	off := uintptr(unsafe.Pointer(&payload[0])) - uintptr(unsafe.Pointer(&blk.buf[0])) - uintptr(chunkHeaderSize)
	return int(off) / ctx.fullChunkSize
}

func randomizePattern(b []byte) {
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
}
