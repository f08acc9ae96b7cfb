package slab

import "errors"

var (
	// ErrOutOfMemory is returned when no chunk could be obtained.
	ErrOutOfMemory = errors.New("slab: out of memory")

	// ErrInvalidPointer is returned when freeing memory the allocator does not own.
	ErrInvalidPointer = errors.New("slab: invalid pointer")

	// ErrDoubleFree is returned when freeing a region that is already free.
	ErrDoubleFree = errors.New("slab: double free")

	// ErrNoArena is returned for arena indices outside [0, NArenas).
	ErrNoArena = errors.New("slab: no such arena")

	// ErrArenaUninitialized is returned when configuring an arena that was never used.
	ErrArenaUninitialized = errors.New("slab: arena not initialized")

	// ErrNoClass is returned for size class indices out of range.
	ErrNoClass = errors.New("slab: no such size class")

	// ErrInvalidConfig is returned by New for unusable configurations.
	ErrInvalidConfig = errors.New("slab: invalid config")

	// ErrFixedAddress is returned by SystemHooks for requests at a fixed address.
	ErrFixedAddress = errors.New("slab: fixed-address chunks are not supported")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("slab: allocator closed")
)
