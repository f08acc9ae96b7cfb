package slab

import (
	"fmt"

	"github.com/TomsyPaul/tomsychapel/backing"
)

// Thread is a caller's view of the allocator: allocations go to the arena
// the thread is bound to. A Thread must not be used by two goroutines at once.
type Thread struct {
	a     *Allocator
	arena *arena
}

var _ backing.Allocator = (*Thread)(nil)

// Allocator returns the allocator the thread belongs to.
func (t *Thread) Allocator() *Allocator { return t.a }

// Arena returns the bound arena, if any.
func (t *Thread) Arena() (uint, bool) {
	if t.arena == nil {
		return 0, false
	}
	return t.arena.ind, true
}

// Malloc allocates size bytes from the bound arena. A size of 0 is served
// as the smallest class.
func (t *Thread) Malloc(size uintptr) (uintptr, error) {
	if t.a.closed.Load() {
		return 0, ErrClosed
	}
	if t.arena == nil {
		ar, err := t.a.nextArena()
		if err != nil {
			return 0, err
		}
		t.arena = ar
	}

	p, err := t.arena.malloc(size)
	if err != nil {
		return 0, err
	}
	t.a.mallocs.Add(1)
	return p, nil
}

// Free releases ptr. Any thread may free memory from any arena.
func (t *Thread) Free(ptr uintptr) error {
	return t.a.Free(ptr)
}

// BindArena binds the thread to arena i, initializing it on first use.
func (t *Thread) BindArena(i uint) error {
	ar, err := t.a.arenaAt(i, true)
	if err != nil {
		return err
	}
	t.arena = ar
	return nil
}

// NumArenas returns the configured number of arenas.
func (t *Thread) NumArenas() (int, error) {
	return t.a.NumArenas(), nil
}

// SetChunkHooks installs hooks on an initialized arena.
func (t *Thread) SetChunkHooks(i uint, h backing.ChunkHooks) error {
	return t.a.SetChunkHooks(i, h)
}

// ChunkHooks returns the hooks of an initialized arena.
func (t *Thread) ChunkHooks(i uint) (backing.ChunkHooks, error) {
	return t.a.ChunkHooks(i)
}

// NumSmallClasses returns the number of small size classes.
func (t *Thread) NumSmallClasses() (int, error) {
	return len(t.a.classes.small), nil
}

// NumLargeClasses returns the number of large size classes.
func (t *Thread) NumLargeClasses() (int, error) {
	return len(t.a.classes.large), nil
}

// SmallClassSize returns the size of small class i.
func (t *Thread) SmallClassSize(i int) (uintptr, error) {
	return classAt(t.a.classes.small, i)
}

// LargeClassSize returns the size of large class i.
func (t *Thread) LargeClassSize(i int) (uintptr, error) {
	return classAt(t.a.classes.large, i)
}

func classAt(classes []uintptr, i int) (uintptr, error) {
	if i < 0 || i >= len(classes) {
		return 0, fmt.Errorf("%w: %d of %d", ErrNoClass, i, len(classes))
	}
	return classes[i], nil
}
