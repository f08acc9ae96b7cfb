// Package chunk implements the chunk provider installed on every arena of the
// backing allocator once a shared heap is configured.
//
// Provider.Alloc is the only hook with an effect: it carves chunks out of a
// heap.SharedHeap. The six disposal hooks always opt out, so the allocator
// keeps every chunk it was ever given and never tries to return shared-heap
// memory to the operating system, split it, or merge it behind the heap's
// back.
package chunk
