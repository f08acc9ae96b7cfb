// Package heap implements the shared heap: a bump-pointer region over a fixed,
// externally registered range of address space.
//
// # Allocation
//
// SharedHeap hands out address ranges in strictly increasing order. The cursor
// never moves backwards, so a byte served once is never served again. Memory
// handed out by the heap is never returned to it; callers that need reuse keep
// their own free lists on top.
//
// # Concurrency Model
//
// Allocate is safe for concurrent use. The heap mutex guards only the
// check-bounds-and-advance step; zero filling happens after the mutex is
// released because the range is exclusively owned by the caller once the
// cursor has moved past it.
//
// # Address Arithmetic
//
// All address computations are overflow checked (see internal/conv). Addresses
// are plain uintptr values; the heap never dereferences memory except to zero
// it on request.
package heap
