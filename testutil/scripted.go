package testutil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/TomsyPaul/tomsychapel/backing"
)

// OutsideBase is where ScriptedAllocator places memory that did not come from
// installed chunk hooks. Tests must place fabricated heaps elsewhere.
const OutsideBase uintptr = 1 << 32

// ScriptedChunkSize is the chunk size ScriptedAllocator requests from hooks.
const ScriptedChunkSize uintptr = 64 << 10

var (
	// ErrScripted is returned by every injected failure.
	ErrScripted = errors.New("testutil: scripted failure")
	// ErrUninitialized is returned when hooks are set on an arena that was never bound.
	ErrUninitialized = errors.New("testutil: arena not initialized")
	// ErrNoArena is returned for an arena index past NumArenas.
	ErrNoArena = errors.New("testutil: no such arena")
)

// ScriptedAllocator is a fake backing allocator. Before hooks are installed on
// the bound arena, and while a class has stock left, allocations come from
// OutsideBase. Otherwise they are carved from chunks obtained through the
// installed hooks.
//
// Chunk carving never dereferences memory, so fabricated heap bases are fine.
type ScriptedAllocator struct {
	mu sync.Mutex

	small  []uintptr
	large  []uintptr
	arenas int

	initialized []bool
	hooks       []backing.ChunkHooks
	bound       uint

	stock   map[uintptr]int
	outside uintptr

	chunk     uintptr
	chunkLeft uintptr
	free      map[uintptr][]uintptr
	live      map[uintptr]uintptr

	// Binds records every BindArena call in order.
	Binds []uint
	// Mallocs records the size of every Malloc call in order.
	Mallocs []uintptr
	// Frees records every freed address in order.
	Frees []uintptr

	// IntrospectErr, when set, fails every introspection call.
	IntrospectErr error
	// BindErr fails BindArena for the listed arenas.
	BindErr map[uint]error
	// InstallErr fails SetChunkHooks for the listed arenas.
	InstallErr map[uint]error
	// FailMallocAfter fails every Malloc once this many calls succeeded.
	// Negative disables the failure.
	FailMallocAfter int
}

var _ backing.Allocator = (*ScriptedAllocator)(nil)

// NewScriptedAllocator creates a fake allocator with the given classes and
// arena count. Arena 0 starts initialized.
func NewScriptedAllocator(small, large []uintptr, arenas int) *ScriptedAllocator {
	a := &ScriptedAllocator{
		small:           small,
		large:           large,
		arenas:          arenas,
		initialized:     make([]bool, arenas),
		hooks:           make([]backing.ChunkHooks, arenas),
		stock:           make(map[uintptr]int),
		outside:         OutsideBase,
		free:            make(map[uintptr][]uintptr),
		live:            make(map[uintptr]uintptr),
		BindErr:         make(map[uint]error),
		InstallErr:      make(map[uint]error),
		FailMallocAfter: -1,
	}
	if arenas > 0 {
		a.initialized[0] = true
	}
	return a
}

// Stock makes the next n allocations of size come from outside memory,
// regardless of installed hooks.
func (a *ScriptedAllocator) Stock(size uintptr, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stock[size] += n
}

// Initialized reports whether arena has been initialized.
func (a *ScriptedAllocator) Initialized(arena uint) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(arena) < a.arenas && a.initialized[arena]
}

// Bound returns the arena bound to the calling thread.
func (a *ScriptedAllocator) Bound() uint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bound
}

// Live returns the number of allocations not yet freed.
func (a *ScriptedAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// NumSmallClasses implements backing.Introspector.
func (a *ScriptedAllocator) NumSmallClasses() (int, error) {
	if a.IntrospectErr != nil {
		return 0, a.IntrospectErr
	}
	return len(a.small), nil
}

// NumLargeClasses implements backing.Introspector.
func (a *ScriptedAllocator) NumLargeClasses() (int, error) {
	if a.IntrospectErr != nil {
		return 0, a.IntrospectErr
	}
	return len(a.large), nil
}

// SmallClassSize implements backing.Introspector.
func (a *ScriptedAllocator) SmallClassSize(class int) (uintptr, error) {
	if a.IntrospectErr != nil {
		return 0, a.IntrospectErr
	}
	if class < 0 || class >= len(a.small) {
		return 0, fmt.Errorf("testutil: small class %d out of range", class)
	}
	return a.small[class], nil
}

// LargeClassSize implements backing.Introspector.
func (a *ScriptedAllocator) LargeClassSize(class int) (uintptr, error) {
	if a.IntrospectErr != nil {
		return 0, a.IntrospectErr
	}
	if class < 0 || class >= len(a.large) {
		return 0, fmt.Errorf("testutil: large class %d out of range", class)
	}
	return a.large[class], nil
}

// NumArenas implements backing.ArenaController.
func (a *ScriptedAllocator) NumArenas() (int, error) {
	if a.IntrospectErr != nil {
		return 0, a.IntrospectErr
	}
	return a.arenas, nil
}

// BindArena implements backing.ArenaController.
func (a *ScriptedAllocator) BindArena(arena uint) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Binds = append(a.Binds, arena)
	if err := a.BindErr[arena]; err != nil {
		return err
	}
	if int(arena) >= a.arenas {
		return ErrNoArena
	}
	a.initialized[arena] = true
	a.bound = arena
	return nil
}

// SetChunkHooks implements backing.ArenaController.
func (a *ScriptedAllocator) SetChunkHooks(arena uint, hooks backing.ChunkHooks) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.InstallErr[arena]; err != nil {
		return err
	}
	if int(arena) >= a.arenas {
		return ErrNoArena
	}
	if !a.initialized[arena] {
		return ErrUninitialized
	}
	a.hooks[arena] = hooks
	return nil
}

// ChunkHooks implements backing.ArenaController.
func (a *ScriptedAllocator) ChunkHooks(arena uint) (backing.ChunkHooks, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(arena) >= a.arenas {
		return nil, ErrNoArena
	}
	return a.hooks[arena], nil
}

// Malloc implements backing.Allocator.
func (a *ScriptedAllocator) Malloc(size uintptr) (uintptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Mallocs = append(a.Mallocs, size)
	if a.FailMallocAfter >= 0 && len(a.Mallocs) > a.FailMallocAfter {
		return 0, ErrScripted
	}
	if size == 0 {
		size = 1
	}

	var addr uintptr
	hooks := a.hooks[a.bound]
	switch {
	case a.stock[size] > 0 || hooks == nil:
		if a.stock[size] > 0 {
			a.stock[size]--
		}
		addr = a.outside
		a.outside += size
	case len(a.free[size]) > 0:
		list := a.free[size]
		addr = list[len(list)-1]
		a.free[size] = list[:len(list)-1]
	default:
		if a.chunkLeft < size {
			chunkSize := max(ScriptedChunkSize, size)
			resp, err := hooks.Alloc(backing.ChunkRequest{
				Size:      chunkSize,
				Alignment: ScriptedChunkSize,
				Arena:     a.bound,
			})
			if err != nil {
				return 0, fmt.Errorf("testutil: chunk: %w", err)
			}
			a.chunk, a.chunkLeft = resp.Addr, chunkSize
		}
		addr = a.chunk
		a.chunk += size
		a.chunkLeft -= size
	}

	a.live[addr] = size
	return addr, nil
}

// Free implements backing.Allocator.
func (a *ScriptedAllocator) Free(ptr uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	size, ok := a.live[ptr]
	if !ok {
		return fmt.Errorf("testutil: free of unknown pointer %#x", ptr)
	}
	delete(a.live, ptr)
	a.Frees = append(a.Frees, ptr)
	if ptr < OutsideBase || ptr >= a.outside {
		a.free[size] = append(a.free[size], ptr)
	}
	return nil
}
