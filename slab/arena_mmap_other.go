//go:build !unix

package slab

// NewMMapArena falls back to the heap arena on platforms where the
// mmap-backed implementation (arena_mmap.go) is not built.
func NewMMapArena() Arena { return heapArena{} }
