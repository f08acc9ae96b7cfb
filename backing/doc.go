// Package backing defines the contract between the shared-heap layer and the
// slab/arena allocator whose chunk supply it takes over.
//
// The layer never looks inside the allocator. It needs four capabilities:
//
//   - Introspector: how many small and large size classes exist and their sizes
//   - ArenaController: the arena count, binding the calling thread to an arena,
//     and installing a ChunkHooks implementation on an initialized arena
//   - Malloc/Free: the allocator's ordinary entry points
//   - ChunkHooks: the seven-operation chunk-provider capability set the
//     allocator calls whenever it needs, or wants to dispose of, a chunk
//
// # Hook Results
//
// The six disposal hooks (Dalloc, Commit, Decommit, Purge, Split, Merge) return
// a bool following the usual chunk-hook convention: false means the hook
// performed the operation, true means it opted out and the allocator must keep
// the memory exactly as it is and reuse it itself.
package backing
