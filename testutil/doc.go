// Package testutil provides testing utilities for the shared-heap layer.
//
// This package is intended for use in tests and benchmarks only.
//
// # Fabricated Regions
//
//	base, size := testutil.Region(t, 1<<20) // anonymous mapping, unmapped on cleanup
//
// # Scripted Backing Allocator
//
// ScriptedAllocator implements backing.Allocator with a programmable stock of
// addresses outside any shared heap, so purification can be tested without a
// real slab allocator:
//
//	a := testutil.NewScriptedAllocator([]uintptr{8, 16}, []uintptr{4096}, 4)
//	a.Stock(16, 3) // the next three 16-byte allocations come from outside
//
// # Random Sizes
//
//	rng := testutil.NewRNG(seed)
//	size := rng.Size(1, 4096)
package testutil
