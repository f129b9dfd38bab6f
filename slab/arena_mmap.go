//go:build unix

package slab

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mmapArena obtains blocks directly from the OS via an anonymous mapping,
// bypassing the Go heap entirely. It gives the slab a host memory
// allocator distinct from Go's own GC-managed heap, the same role
// cznic/memory's page-per-mmap backing plays for that allocator, and the
// same role lldb.SimpleFileFiler plays for an OS-file-backed store
// (simplefilefiler.go) - just memory-backed instead of file-backed.
//
// mmapArena is not safe for concurrent use, same as any other Arena.
type mmapArena struct{}

// NewMMapArena returns an Arena that services Obtain/Release with
// anonymous mmap/munmap. Block sizes are rounded up to the OS page size by
// the kernel; callers that care about exact attribution should choose a
// block_size that is already a page multiple.
func NewMMapArena() Arena { return mmapArena{} }

func (mmapArena) Obtain(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("slab: mmap arena: %w", err)
	}
	return b, nil
}

func (mmapArena) Release(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("slab: mmap arena: %w", err)
	}
	return nil
}
