package backing

// ChunkRequest describes one call to ChunkHooks.Alloc.
type ChunkRequest struct {
	// Addr is the exact address the allocator wants, or 0 for any address.
	Addr uintptr
	// Size is the chunk size in bytes.
	Size uintptr
	// Alignment is a power of two the returned address must be aligned to.
	Alignment uintptr
	// Zero requests zero-filled memory.
	Zero bool
	// Arena is the index of the arena asking for the chunk.
	Arena uint
}

// ChunkResponse is the result of a successful ChunkHooks.Alloc.
type ChunkResponse struct {
	Addr      uintptr
	Zeroed    bool
	Committed bool
}

// ChunkHooks is the chunk-provider contract.
type ChunkHooks interface {
	// Alloc obtains a chunk. An error means no chunk could be provided; the
	// allocator reports it as an ordinary allocation failure.
	Alloc(req ChunkRequest) (ChunkResponse, error)

	// Dalloc disposes of a whole chunk.
	Dalloc(chunk, size uintptr, committed bool, arena uint) bool

	// Commit commits pages [offset, offset+length) of a chunk.
	Commit(chunk, size, offset, length uintptr, arena uint) bool

	// Decommit decommits pages [offset, offset+length) of a chunk.
	Decommit(chunk, size, offset, length uintptr, arena uint) bool

	// Purge discards the contents of pages [offset, offset+length) of a chunk.
	Purge(chunk, size, offset, length uintptr, arena uint) bool

	// Split splits a chunk of size into two adjacent chunks of sizeA and sizeB.
	Split(chunk, size, sizeA, sizeB uintptr, committed bool, arena uint) bool

	// Merge merges two adjacent chunks into one.
	Merge(chunkA, sizeA, chunkB, sizeB uintptr, committed bool, arena uint) bool
}

// Introspector reports the allocator's size classes.
type Introspector interface {
	NumSmallClasses() (int, error)
	NumLargeClasses() (int, error)
	SmallClassSize(class int) (uintptr, error)
	LargeClassSize(class int) (uintptr, error)
}

// ArenaController manages arenas and their chunk hooks.
type ArenaController interface {
	// NumArenas returns the configured number of arenas.
	NumArenas() (int, error)

	// BindArena binds the calling thread to arena, initializing the arena
	// first if it has never been used.
	BindArena(arena uint) error

	// SetChunkHooks installs hooks on an initialized arena.
	SetChunkHooks(arena uint, hooks ChunkHooks) error

	// ChunkHooks returns the hooks currently installed on arena.
	ChunkHooks(arena uint) (ChunkHooks, error)
}

// Allocator is the full backing allocator contract used by the layer.
type Allocator interface {
	Introspector
	ArenaController

	// Malloc allocates size bytes from the arena bound to the calling thread.
	Malloc(size uintptr) (uintptr, error)

	// Free releases memory returned by Malloc.
	Free(ptr uintptr) error
}
