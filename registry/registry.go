// Package registry is a minimal stand-in for the "memory-context
// framework" spec.md §6 describes the slab core as an external
// collaborator of: something that creates contexts under a parent, looks
// them up by name, deletes them, and drives a stats walk over a whole tree
// of contexts. It does not dispatch operations by identity tag; callers
// invoke the slab package's functions directly.
//
// It is grounded in dbm.DB (dbm/dbm.go), which plays exactly this role
// for lldb.Allocator: a single root object that creates, names, and
// walks a tree of things built on the lower-level allocator, without
// itself knowing the allocator's internals.
package registry

import (
	"fmt"
	"io"

	"modernc.org/slab/slab"
)

// Registry is the root of a named context tree.
type Registry struct {
	roots    []*slab.Context
	byName   map[string]*slab.Context
	children map[*slab.Context][]*slab.Context
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byName: map[string]*slab.Context{}, children: map[*slab.Context][]*slab.Context{}}
}

// Create opens a new context under parent (nil for a root context) and
// registers it under name, the creation hook spec.md §6 asks the
// framework to provide. name must be unique within the Registry.
func (r *Registry) Create(parent *slab.Context, name string, blockSize, chunkSize int, opts *slab.Options) (*slab.Context, error) {
	if _, dup := r.byName[name]; dup {
		return nil, fmt.Errorf("registry: context %q already registered", name)
	}
	ctx, err := slab.Create(parent, name, blockSize, chunkSize, opts)
	if err != nil {
		return nil, err
	}
	r.byName[name] = ctx
	if parent == nil {
		r.roots = append(r.roots, ctx)
	} else {
		r.children[parent] = append(r.children[parent], ctx)
	}
	return ctx, nil
}

// Lookup returns the context registered under name, or nil.
func (r *Registry) Lookup(name string) *slab.Context { return r.byName[name] }

// Delete tears down the context registered under name and removes it
// from the Registry. Children, if any, are deleted first, recursively -
// per spec.md §6, parent/child lifecycle is the framework's concern, not
// the slab core's, so the cascade happens here rather than in slab.Delete.
func (r *Registry) Delete(name string) error {
	ctx := r.byName[name]
	if ctx == nil {
		return fmt.Errorf("registry: no context named %q", name)
	}
	for _, child := range r.children[ctx] {
		if err := r.Delete(child.Name()); err != nil {
			return err
		}
	}
	if err := slab.Delete(ctx); err != nil {
		return err
	}
	siblings := r.roots
	if p := ctx.Parent(); p != nil {
		siblings = r.children[p]
	}
	for i, c := range siblings {
		if c == ctx {
			siblings = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	if p := ctx.Parent(); p != nil {
		r.children[p] = siblings
	} else {
		r.roots = siblings
	}
	delete(r.byName, name)
	delete(r.children, ctx)
	return nil
}

// Stats walks every registered context - the multi-context analogue of
// dbm.DB driving a single lldb.Allocator's stats - and writes each one's
// report to w.
func (r *Registry) Stats(w io.Writer) error {
	acc := &slab.Accumulator{}
	for _, root := range r.roots {
		if err := r.statsTree(root, w, acc); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "registry totals: blocks=%d free_chunks=%d total_space=%d free_space=%d\n",
		acc.Blocks, acc.FreeChunks, acc.TotalSpace, acc.FreeSpace)
	return err
}

func (r *Registry) statsTree(ctx *slab.Context, w io.Writer, acc *slab.Accumulator) error {
	if err := slab.Stats(ctx, w, acc); err != nil {
		return err
	}
	for _, child := range r.children[ctx] {
		if err := r.statsTree(child, w, acc); err != nil {
			return err
		}
	}
	return nil
}
