package slab

// Options amends the behavior of Create, mirroring dbm.Options
// (dbm/options.go): a plain struct of exported fields populated by the
// caller rather than a chain of functional options, with an internal
// defaulting/validation latch.
type Options struct {
	// Arena is the host memory allocator new blocks and the context
	// header are obtained from. Nil selects DefaultArena (the Go
	// heap).
	Arena Arena

	// MemoryChecking enables the post-payload canary byte used to
	// detect writes past the end of a chunk's payload, its verification
	// in Check, and sentinel corruption detection in Free. Check itself
	// runs with or without it. Corresponds to the
	// "memory-checking" build-time flag in spec.md §6.
	MemoryChecking bool

	// ClobberFreed overwrites the non-link bytes of a freed chunk, and
	// the entirety of a released block, with a recognizable poison
	// pattern. Corresponds to the "clobber-freed" flag in spec.md §6.
	ClobberFreed bool

	// RandomizeAllocated fills a newly returned payload with a
	// pseudo-random pattern, to surface reads of uninitialized memory
	// in client code. Corresponds to the "randomize-allocated" flag in
	// spec.md §6.
	RandomizeAllocated bool

	checked bool
	frozen  *Options // the result of the first check, returned by every later one
}

const (
	clobberByte = 0xDE
	canaryByte  = 0xCC
)

func (o *Options) check() Options {
	if o == nil {
		return Options{Arena: DefaultArena(), checked: true}
	}
	if o.checked && o.frozen != nil {
		return *o.frozen
	}
	if o.Arena == nil {
		o.Arena = DefaultArena()
	}
	o.checked = true
	f := *o
	o.frozen = &f
	return f
}
