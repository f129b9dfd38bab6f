// Package slab implements a slab allocator: a context parameterized by a
// fixed chunk size and block size serves chunks of exactly that size from
// blocks carved out by a host Arena, at O(1) per allocate/free in the
// common case.
//
// The core data structure is the per-context array of block freelists,
// bucketed by "number of free chunks currently in the block", plus a
// minFreeChunks cursor that always names the least-free non-empty
// bucket. Allocation always draws from that bucket, which both makes
// allocation an O(1) array lookup and biases reuse toward the fuller
// blocks, letting emptier blocks drain and get released back to the host.
//
// A Context is not safe for concurrent use; distinct Contexts are
// independent and may be driven from distinct goroutines without
// interlock. See the package-level operations (Alloc, Free, Realloc,
// Reset, Delete, IsEmpty, ChunkContext, ChunkSpace, Stats, Check) for the
// full public surface.
package slab

import (
	"fmt"

	"modernc.org/slab/internal/align"
)

// Context owns every block it has ever carved from its Arena and the
// bucketed freelist table that indexes them by free-chunk count.
// Grounded in lldb.Allocator (falloc.go), with the size-class free list
// table (lldb's flt.go, bucketed by block size) re-keyed to buckets of
// "free chunk count" as spec.md §3/§4 requires.
type Context struct {
	name   string
	parent *Context

	arena Arena
	opts  Options

	chunkSize        int // requested payload size
	alignedChunkSize int // chunkSize raised to the link word and aligned
	fullChunkSize    int // chunkHeaderSize + alignedChunkSize
	blockSize        int
	chunksPerBlock   int

	nblocks       int
	minFreeChunks int
	freelist      []*block // len == chunksPerBlock+1; freelist[chunksPerBlock] is always empty at rest

	headerBuf []byte // the context's own bookkeeping, obtained from Arena at Create
}

// Create opens a new slab context. parent may be nil; when non-nil the
// new context is only linked for introspection (Parent) - lifecycle
// stays independent, per spec.md §6 ("Parent/child lifecycle is the
// framework's concern; the slab only implements delete and reset
// correctly").
//
// Create fails with *ErrInvariantViolation if block_size cannot hold even
// a single chunk, and with *ErrOutOfMemory if the host Arena cannot
// supply the context's own header storage - in neither case is any
// partially-initialized context left observable.
func Create(parent *Context, name string, blockSize, chunkSize int, opts *Options) (*Context, error) {
	o := opts.check()

	alignedChunkSize := align.Chunk(chunkSize)
	fullChunkSize := chunkHeaderSize + alignedChunkSize
	if blockSize < blockHeaderSize+fullChunkSize {
		return nil, &ErrInvariantViolation{
			Op: "Create",
			What: fmt.Sprintf(
				"block_size %d too small to hold one chunk of size %d (need >= %d)",
				blockSize, chunkSize, blockHeaderSize+fullChunkSize,
			),
		}
	}
	chunksPerBlock := (blockSize - blockHeaderSize) / fullChunkSize

	headerBuf, err := o.Arena.Obtain(contextHeaderSize(chunksPerBlock, o.MemoryChecking))
	if err != nil {
		return nil, &ErrOutOfMemory{Op: "Create", Err: err}
	}

	return &Context{
		name:             name,
		parent:           parent,
		arena:            o.Arena,
		opts:             o,
		chunkSize:        chunkSize,
		alignedChunkSize: alignedChunkSize,
		fullChunkSize:    fullChunkSize,
		blockSize:        blockSize,
		chunksPerBlock:   chunksPerBlock,
		freelist:         make([]*block, chunksPerBlock+1),
		headerBuf:        headerBuf,
	}, nil
}

// contextHeaderSize is the notional per-context bookkeeping footprint
// charged against the host Arena at Create, standing in for the
// freelist-head array plus (when memory-checking is enabled) its debug
// scratch area - spec.md §4.1: "computes ... the total header size
// (context record + chunks_per_block + 1 freelist heads + optional debug
// bitmap)".
func contextHeaderSize(chunksPerBlock int, memoryChecking bool) int {
	n := (chunksPerBlock + 1) * align.WordSize
	if memoryChecking {
		n += (chunksPerBlock + 7) / 8
	}
	return n
}

// Name returns the name the context was created with.
func (ctx *Context) Name() string { return ctx.name }

// Parent returns the context's parent, or nil if it has none.
func (ctx *Context) Parent() *Context { return ctx.parent }

// ChunkSize returns the chunk_size the context was created with.
func (ctx *Context) ChunkSize() int { return ctx.chunkSize }

// BlockSize returns the block_size the context was created with.
func (ctx *Context) BlockSize() int { return ctx.blockSize }

// ChunksPerBlock returns the derived chunks_per_block constant.
func (ctx *Context) ChunksPerBlock() int { return ctx.chunksPerBlock }

// NumBlocks returns the number of blocks currently held by the context.
func (ctx *Context) NumBlocks() int { return ctx.nblocks }

// AttributedBytes returns nblocks * block_size, the aggregate memory
// attributed to this context per spec.md §3.
func (ctx *Context) AttributedBytes() int64 {
	return int64(ctx.nblocks) * int64(ctx.blockSize)
}

// newBlock carves a fresh block from the Arena, formats its in-block
// freelist, and returns it without touching any freelist bucket - the
// caller (Alloc) is responsible for linking it in, per spec.md §4.2 step
// 1.
func (ctx *Context) newBlock() (*block, error) {
	buf, err := ctx.arena.Obtain(ctx.blockSize)
	if err != nil {
		return nil, err
	}
	blk := &block{buf: buf, slab: ctx}
	ctx.formatFreelist(blk)
	return blk, nil
}

// releaseBlock returns a fully-empty block to the host Arena and updates
// the context's accounting. The caller must already have unlinked blk
// from every freelist bucket.
func (ctx *Context) releaseBlock(blk *block) error {
	if ctx.opts.ClobberFreed {
		for i := range blk.buf {
			blk.buf[i] = clobberByte
		}
	}
	ctx.nblocks--
	return ctx.arena.Release(blk.buf)
}

// scanMinFree implements spec.md §4.2 step 5's fallback scan: the first
// non-empty bucket at index >= 1, or 0 (the overloaded "no capacity"
// sentinel) if none exists.
func (ctx *Context) scanMinFree() int {
	for k := 1; k < ctx.chunksPerBlock; k++ {
		if ctx.freelist[k] != nil {
			return k
		}
	}
	return 0
}
