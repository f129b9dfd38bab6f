package slab

/*

Block layout

A block is a host-Arena-backed region of exactly block_size bytes:

	+--------++--------++-----+----------++---------------------------+
	| slot 0 || slot 1 || ... || slot N-1 || reserved (48) + padding   |
	+--------++--------++-----+----------++---------------------------+

Every slot is full_chunk_size bytes:

	+-------------------------+----------------------------------+
	| chunk header (16 bytes) | aligned payload (chunk_size..up)  |
	+-------------------------+----------------------------------+

The 48-byte reserved region is accounting only (see blockHeaderSize in
block.go); the block's live bookkeeping - nfree, firstFree, the bucket
list links, the owning context - is an ordinary Go struct (block.go's
`block` type), not bytes inside the slot. Chunk headers, by contrast,
live in the slot bytes themselves, because Free/ChunkContext/ChunkSpace
are handed nothing but the payload pointer and must recover everything
else from what sits right before it.

A free slot's payload holds, in its first machine word, the index of the
next free slot in the block, or chunks_per_block as the end-of-chain
sentinel - see readLink/writeLink in chunk.go.

*/
