//go:build unix

package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMMapArenaAllocFreeCheckCycle exercises the header-stamping/back-
// pointer scheme in chunk.go over OS-mmap'd memory rather than the Go
// heap, since that is the one place the embedded *block pointer lives
// outside anything the Go GC ever scans.
func TestMMapArenaAllocFreeCheckCycle(t *testing.T) {
	ctx, err := Create(nil, "mmap", 4096, 64, &Options{Arena: NewMMapArena(), MemoryChecking: true})
	require.NoError(t, err)

	n := ctx.ChunksPerBlock() + 3
	ptrs := make([][]byte, n)
	for i := range ptrs {
		p, err := Alloc(ctx, 64)
		require.NoError(t, err)
		require.NotNil(t, p)
		for j := range p {
			p[j] = byte(i)
		}
		ptrs[i] = p
	}
	assert.Greater(t, ctx.NumBlocks(), 1, "n was chosen to force a second block")

	for i, p := range ptrs {
		for j, v := range p {
			require.Equal(t, byte(i), v, "chunk %d byte %d was corrupted by a neighboring slot", i, j)
		}
	}

	clean, err := Check(ctx, func(e error) bool { t.Error(e); return true })
	require.NoError(t, err)
	assert.True(t, clean)

	for i, p := range ptrs {
		require.NoError(t, Free(p), "free %d", i)
	}
	assert.Equal(t, 0, ctx.NumBlocks())

	require.NoError(t, Delete(ctx))
}
