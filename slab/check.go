package slab

import "unsafe"

// Check performs the full-traversal debug consistency pass from spec.md
// §4.8. For every bucket and every block linked there it verifies the
// free-chunk count, the owning-context back-link, that the in-block
// freelist chain visits exactly nfree distinct slots and terminates, that
// every allocated slot's header still points at its block, and (when
// Options.MemoryChecking is set) that the canary byte past a chunk's
// requested size is intact.
//
// Every finding is reported to log rather than returned, so the
// reporting path cannot re-enter the allocator (spec.md §4.8, §7). log
// may be nil, in which case Check only computes whether anything would
// have been reported. Check returns early, with a nil error, the moment
// log returns false.
func Check(ctx *Context, log func(error) bool) (clean bool, err error) {
	clean = true
	report := func(e error) bool {
		clean = false
		if log == nil {
			return true
		}
		return log(e)
	}

	bitmap := make([]byte, (ctx.chunksPerBlock+7)/8)
	for k := 0; k <= ctx.chunksPerBlock; k++ {
		for blk := ctx.freelist[k]; blk != nil; blk = blk.next {
			if blk.nfree != k {
				if !report(&ErrCorruptionDetected{Op: "Check", What: "block linked in the wrong freelist bucket"}) {
					return clean, nil
				}
			}
			if blk.slab != ctx {
				if !report(&ErrCorruptionDetected{Op: "Check", What: "block back-link does not point at this context"}) {
					return clean, nil
				}
			}

			for i := range bitmap {
				bitmap[i] = 0
			}

			visited := 0
			idx := blk.firstFree
			for idx != ctx.chunksPerBlock {
				if idx < 0 || idx >= ctx.chunksPerBlock || bitmap[idx/8]&(1<<uint(idx%8)) != 0 {
					if !report(&ErrCorruptionDetected{Op: "Check", What: "in-block freelist chain is out of range or cyclic"}) {
						return clean, nil
					}
					break
				}
				bitmap[idx/8] |= 1 << uint(idx%8)
				visited++
				idx = readLink(payloadOf(blk, idx, ctx.fullChunkSize, ctx.alignedChunkSize))
			}
			if visited != blk.nfree {
				if !report(&ErrCorruptionDetected{Op: "Check", What: "in-block freelist chain length does not match nfree"}) {
					return clean, nil
				}
			}

			for i := 0; i < ctx.chunksPerBlock; i++ {
				free := bitmap[i/8]&(1<<uint(i%8)) != 0
				if free {
					continue
				}
				h := headerAt(blk, i, ctx.fullChunkSize)
				if h.owner != blk {
					if !report(&ErrCorruptionDetected{Op: "Check", What: "allocated chunk header back-link does not match its block"}) {
						return clean, nil
					}
				}
				if ctx.opts.MemoryChecking && ctx.alignedChunkSize > ctx.chunkSize {
					p := payloadOf(blk, i, ctx.fullChunkSize, ctx.alignedChunkSize)
					if p[ctx.chunkSize] != canaryByte {
						if !report(&ErrCorruptionDetected{Op: "Check", What: "sentinel byte past chunk payload was overwritten"}) {
							return clean, nil
						}
					}
				}
			}
		}
	}

	if ctx.nblocks < 0 {
		report(&ErrCorruptionDetected{Op: "Check", What: "nblocks went negative"})
	}

	return clean, nil
}

func headerAt(blk *block, idx, fullChunkSize int) *chunkHeader {
	return (*chunkHeader)(unsafe.Pointer(&blk.buf[idx*fullChunkSize]))
}
