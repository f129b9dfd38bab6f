package slab

// blockHeaderSize is the notional bookkeeping overhead spec.md §3/§4.1
// charges against block_size when computing chunks_per_block
// ("chunks_per_block = floor((block_size − block_header_size) /
// full_chunk_size)"). This implementation keeps a block's actual
// bookkeeping (the *block value below) as an ordinary Go heap object
// rather than physically co-located in the arena bytes - a block, unlike
// a chunk, is never recovered from a foreign pointer, so there is no
// requirement to embed it in raw storage - but the capacity budget still
// reserves this many bytes of every block's arena buffer so the size
// accounting and the block_size ≥ block_header_size + full_chunk_size
// invariant hold exactly as spec.md states them. Slot 0 starts at offset
// 0 of the buffer; the reserved bytes sit unused at its tail, together
// with any padding.
const blockHeaderSize = 48

// block is a contiguous host-allocator-backed region formatted into
// chunksPerBlock equal slots, plus the per-context intrusive doubly
// linked list node that lets the owning bucket be spliced in O(1).
// Grounded in lldb's free-block bookkeeping (falloc.go's prev/next/size
// triple, flt.go's bucket heads) generalized from a byte-offset "handle"
// scheme to real Go pointers, since nothing here needs to survive a
// process restart.
type block struct {
	buf  []byte // exactly blockSize bytes, obtained from the context's Arena
	slab *Context

	prev, next *block // siblings within whichever freelist bucket currently holds this block

	nfree     int // number of free chunks, in [0, chunksPerBlock]
	firstFree int // head of the in-block freelist chain; == chunksPerBlock when empty
}

// unlinkFromBucket removes blk from the head/middle/tail of the doubly
// linked list rooted at ctx.freelist[bucket], in O(1).
func (ctx *Context) unlinkFromBucket(blk *block, bucket int) {
	switch {
	case blk.prev == nil && blk.next == nil:
		ctx.freelist[bucket] = nil
	case blk.prev == nil:
		ctx.freelist[bucket] = blk.next
		blk.next.prev = nil
	case blk.next == nil:
		blk.prev.next = nil
	default:
		blk.prev.next = blk.next
		blk.next.prev = blk.prev
	}
	blk.prev, blk.next = nil, nil
}

// pushFront links blk at the head of ctx.freelist[bucket]. Head insertion
// means the most recently touched block in a bucket is the next one
// examined by Alloc, per spec.md §4.3's locality rationale.
func (ctx *Context) pushFront(blk *block, bucket int) {
	head := ctx.freelist[bucket]
	blk.prev = nil
	blk.next = head
	if head != nil {
		head.prev = blk
	}
	ctx.freelist[bucket] = blk
}

// formatFreelist lays out slot i -> i+1 for every slot, with the last
// slot pointing past the end (chunksPerBlock, the empty-chain sentinel),
// and stamps every slot's chunk header once. Called only when a block is
// first carved from the arena.
func (ctx *Context) formatFreelist(blk *block) {
	for i := 0; i < ctx.chunksPerBlock; i++ {
		stampHeader(blk, i, ctx.fullChunkSize)
		p := payloadOf(blk, i, ctx.fullChunkSize, ctx.alignedChunkSize)
		writeLink(p, i+1)
		if ctx.opts.MemoryChecking && ctx.alignedChunkSize > ctx.chunkSize {
			p[ctx.chunkSize] = canaryByte
		}
	}
	blk.nfree = ctx.chunksPerBlock
	blk.firstFree = 0
}
