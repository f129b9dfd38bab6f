package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, blockSize, chunkSize int, opts *Options) *Context {
	t.Helper()
	ctx, err := Create(nil, "test", blockSize, chunkSize, opts)
	require.NoError(t, err)
	return ctx
}

func TestAllocRejectsWrongSize(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	_, err := Alloc(ctx, 32)
	require.Error(t, err)
	var inv *ErrInvariantViolation
	assert.ErrorAs(t, err, &inv)
}

func TestAllocFirstCallCreatesOneBlock(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	require.Equal(t, 0, ctx.NumBlocks())

	p, err := Alloc(ctx, 64)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Len(t, p, 64)
	assert.Equal(t, 1, ctx.NumBlocks())
}

// TestAllocFillsAndReleasesOneBlock walks a single block from empty to
// completely allocated and back to completely free, checking that the
// block is released to the host the instant the last chunk is freed
// (spec.md's no-hysteresis release policy).
func TestAllocFillsAndReleasesOneBlock(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	n := ctx.ChunksPerBlock()

	ptrs := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		p, err := Alloc(ctx, 64)
		require.NoError(t, err)
		require.NotNil(t, p, "alloc %d should not exhaust a single block", i)
		ptrs = append(ptrs, p)
	}
	assert.Equal(t, 1, ctx.NumBlocks(), "one block should hold exactly chunks_per_block chunks")

	// A further allocation must carve a second block.
	extra, err := Alloc(ctx, 64)
	require.NoError(t, err)
	require.NotNil(t, extra)
	assert.Equal(t, 2, ctx.NumBlocks())
	require.NoError(t, Free(extra))
	assert.Equal(t, 1, ctx.NumBlocks(), "freeing the lone chunk of the second block releases it")

	for i, p := range ptrs {
		require.NoError(t, Free(p), "free %d", i)
	}
	assert.Equal(t, 0, ctx.NumBlocks(), "freeing every chunk releases the block")
	assert.True(t, IsEmpty(ctx))
}

func TestAllocWritesAreIsolatedBetweenChunks(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	a, err := Alloc(ctx, 64)
	require.NoError(t, err)
	b, err := Alloc(ctx, 64)
	require.NoError(t, err)

	for i := range a {
		a[i] = 0xAA
	}
	for i := range b {
		b[i] = 0xBB
	}
	for i, v := range a {
		require.Equal(t, byte(0xAA), v, "byte %d of a clobbered by writes to b", i)
	}
}

func TestFreeOfLoneChunkReleasesBlockThenAllocRegrows(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	a, err := Alloc(ctx, 64)
	require.NoError(t, err)
	require.NoError(t, Free(a))
	assert.Equal(t, 0, ctx.NumBlocks(), "a block with a single chunk is released once that chunk is freed")

	b, err := Alloc(ctx, 64)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, ctx.NumBlocks())
}

func TestReallocSameSizeReturnsSamePayload(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	p, err := Alloc(ctx, 64)
	require.NoError(t, err)

	q, err := Realloc(p, 64)
	require.NoError(t, err)
	assert.Equal(t, &p[0], &q[0])
}

func TestReallocDifferentSizeUnsupported(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	p, err := Alloc(ctx, 64)
	require.NoError(t, err)

	_, err = Realloc(p, 32)
	require.Error(t, err)
	var unsupported *ErrUnsupportedOperation
	assert.ErrorAs(t, err, &unsupported)
}

func TestChunkContextAndChunkSpace(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	p, err := Alloc(ctx, 64)
	require.NoError(t, err)

	assert.Equal(t, ctx, ChunkContext(p))
	assert.Equal(t, chunkHeaderSize+align64(64), ChunkSpace(p))
}

func align64(n int) int { return (n + 7) &^ 7 }

func TestResetReleasesEveryBlock(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	for i := 0; i < 3*ctx.ChunksPerBlock(); i++ {
		_, err := Alloc(ctx, 64)
		require.NoError(t, err)
	}
	require.Greater(t, ctx.NumBlocks(), 1)

	require.NoError(t, Reset(ctx))
	assert.Equal(t, 0, ctx.NumBlocks())
	assert.True(t, IsEmpty(ctx))

	// A reset context remains usable.
	p, err := Alloc(ctx, 64)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestResetOnAlreadyEmptyContextIsSafe(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	require.NoError(t, Reset(ctx))
	require.NoError(t, Reset(ctx))
}

func TestDeleteReleasesEveryBlock(t *testing.T) {
	ctx := newTestContext(t, 1024, 64, nil)
	_, err := Alloc(ctx, 64)
	require.NoError(t, err)
	require.NoError(t, Delete(ctx))
	assert.Equal(t, 0, ctx.NumBlocks())
}

// TestRandomChurnStaysConsistent exercises a long randomized mix of
// allocate/free traffic and asserts, via Check, that the bucket
// bookkeeping and in-block freelists never drift from the live set of
// chunks actually handed out.
func TestRandomChurnStaysConsistent(t *testing.T) {
	ctx := newTestContext(t, 4096, 48, &Options{MemoryChecking: true})
	rng := newXorshift(0xC0FFEE)

	var live [][]byte
	for i := 0; i < 20000; i++ {
		if len(live) == 0 || rng.next()%2 == 0 {
			p, err := Alloc(ctx, 48)
			require.NoError(t, err)
			if p == nil {
				continue
			}
			live = append(live, p)
			continue
		}
		j := int(rng.next() % uint64(len(live)))
		require.NoError(t, Free(live[j]))
		live[j] = live[len(live)-1]
		live = live[:len(live)-1]
	}

	clean, err := Check(ctx, func(e error) bool {
		t.Error(e)
		return true
	})
	require.NoError(t, err)
	assert.True(t, clean)
}

// xorshift64 is a tiny deterministic PRNG so the churn test is
// reproducible without reaching for math/rand's global lock.
type xorshift64 struct{ s uint64 }

func newXorshift(seed uint64) *xorshift64 { return &xorshift64{s: seed} }

func (x *xorshift64) next() uint64 {
	x.s ^= x.s << 13
	x.s ^= x.s >> 7
	x.s ^= x.s << 17
	return x.s
}
