// Package slab is an arena-based allocator with pluggable chunk hooks.
//
// It models the collaborator the layer takes over: memory is carved from
// chunks obtained through per-arena backing.ChunkHooks, requests are
// rounded to small, large or huge size classes, and each caller goes
// through a Thread bound to one arena. Arena 0 exists from New onwards and
// holds the allocator's own boot metadata; every other arena is created
// on first use.
//
//	a, err := slab.New(slab.Config{NArenas: 8})
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	t := a.MainThread()
//	p, err := t.Malloc(64)
//	...
//	_ = t.Free(p)
//
// Small requests are served from runs of equally sized regions. Large
// requests occupy a page-granular run of their own. Huge requests take
// whole chunk-aligned extents straight from the hooks.
//
// Until hooks are replaced, chunks come from SystemHooks, which maps
// anonymous memory and accounts for it against Config.SystemLimit.
package slab
