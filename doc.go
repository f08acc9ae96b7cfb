// Package tomsychapel makes an arena allocator draw all of its chunks from
// one pre-registered shared heap.
//
// A communication layer may only be able to expose memory it registered
// ahead of time. The Layer asks it once, at startup, which region that is
// and then takes over the backing allocator:
//
//  1. every arena is materialized, since hooks can only be installed on
//     initialized arenas;
//  2. a chunk.Provider serving chunks from a heap.SharedHeap is installed
//     on every arena;
//  3. each size class is drained until the allocator hands out memory
//     from the shared heap, leaving memory it obtained earlier allocated
//     forever.
//
// When no region is wanted the Layer only warms the allocator up.
//
// # Quick Start
//
//	alloc, _ := slab.New(slab.Config{})
//	seg, _ := comm.NewSegment(64 << 20)
//
//	l := tomsychapel.New(alloc.MainThread(), seg,
//	    tomsychapel.WithLogger(tomsychapel.NewTextLogger(slog.LevelInfo)),
//	)
//	if err := l.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Exit()
//
// Processes that want the fatal semantics of a runtime layer use
// LayerInit and LayerExit, which own a single process-wide Layer and
// terminate the process when Init fails.
//
// # Concurrency
//
// Init and Exit must run on the startup goroutine before application
// threads allocate. After Init, the installed provider is safe for
// concurrent use by every arena.
package tomsychapel
