package slab

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/TomsyPaul/tomsychapel/backing"
	"github.com/TomsyPaul/tomsychapel/internal/conv"
)

// Allocator is an arena-based allocator. It is safe for concurrent use;
// Threads are not.
type Allocator struct {
	cfg     Config
	classes *sizeClasses
	system  *SystemHooks
	logger  *slog.Logger

	arenaMu sync.Mutex
	arenas  []*arena
	live    *roaring.Bitmap // initialized arena indices
	next    atomic.Uint64

	regMu  sync.RWMutex
	chunks map[uintptr]*chunk
	huge   map[uintptr]*hugeExtent

	main     *Thread
	bootMeta uintptr
	closed   atomic.Bool

	mallocs atomic.Uint64
	frees   atomic.Uint64
}

// Stats is a snapshot of allocator state.
type Stats struct {
	// Arenas is the number of initialized arenas.
	Arenas int
	// Chunks is the number of chunks backing small and large runs.
	Chunks int
	// HugeExtents is the number of live huge allocations.
	HugeExtents int
	// Retained counts huge extents kept after Dalloc opted out.
	Retained      int
	RetainedBytes uintptr
	Mallocs       uint64
	Frees         uint64
	// SystemMapped is the memory currently mapped by SystemHooks.
	SystemMapped int64
	// SystemPeak is the most memory SystemHooks had mapped at once.
	SystemPeak int64
}

// New creates an allocator. Arena 0 is initialized and its first chunk is
// mapped for the allocator's boot metadata.
func New(cfg Config) (*Allocator, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	a := &Allocator{
		cfg:     cfg,
		classes: newSizeClasses(cfg.PageSize, cfg.ChunkSize),
		system:  NewSystemHooks(cfg.SystemLimit),
		logger:  cfg.Logger,
		arenas:  make([]*arena, cfg.NArenas),
		live:    roaring.New(),
		chunks:  make(map[uintptr]*chunk),
		huge:    make(map[uintptr]*hugeExtent),
	}

	a.main = &Thread{a: a}
	if err := a.main.BindArena(0); err != nil {
		return nil, err
	}
	a.bootMeta, err = a.main.Malloc(a.classes.large[0])
	if err != nil {
		_ = a.system.Close()
		return nil, fmt.Errorf("slab: boot metadata: %w", err)
	}

	a.logger.Debug("allocator ready",
		"arenas", cfg.NArenas,
		"chunk_size", cfg.ChunkSize,
		"small_classes", len(a.classes.small),
		"large_classes", len(a.classes.large))
	return a, nil
}

// MainThread returns the thread that booted the allocator, bound to arena 0.
func (a *Allocator) MainThread() *Thread { return a.main }

// NewThread returns an unbound thread. It binds to an arena round-robin on
// its first allocation unless BindArena is called first.
func (a *Allocator) NewThread() *Thread { return &Thread{a: a} }

// NumArenas returns the configured number of arenas.
func (a *Allocator) NumArenas() int { return a.cfg.NArenas }

// Initialized reports whether arena i has been used.
func (a *Allocator) Initialized(i uint) bool {
	a.arenaMu.Lock()
	defer a.arenaMu.Unlock()
	return i < uint(len(a.arenas)) && a.arenas[i] != nil
}

// InitializedArenas returns the set of initialized arena indices.
func (a *Allocator) InitializedArenas() *roaring.Bitmap {
	a.arenaMu.Lock()
	defer a.arenaMu.Unlock()
	return a.live.Clone()
}

// SmallClasses returns the small class sizes in ascending order.
func (a *Allocator) SmallClasses() []uintptr {
	return append([]uintptr(nil), a.classes.small...)
}

// LargeClasses returns the large class sizes in ascending order.
func (a *Allocator) LargeClasses() []uintptr {
	return append([]uintptr(nil), a.classes.large...)
}

// System returns the default hooks.
func (a *Allocator) System() *SystemHooks { return a.system }

// SetChunkHooks installs hooks on an initialized arena. Nil restores SystemHooks.
func (a *Allocator) SetChunkHooks(i uint, h backing.ChunkHooks) error {
	ar, err := a.arenaAt(i, false)
	if err != nil {
		return err
	}
	if h == nil {
		h = a.system
	}
	ar.setHooks(h)
	a.logger.Debug("chunk hooks installed", "arena", i, "hooks", fmt.Sprintf("%T", h))
	return nil
}

// ChunkHooks returns the hooks of an initialized arena.
func (a *Allocator) ChunkHooks(i uint) (backing.ChunkHooks, error) {
	ar, err := a.arenaAt(i, false)
	if err != nil {
		return nil, err
	}
	return ar.currentHooks(), nil
}

// Free releases memory returned by any Thread of this allocator.
// Freeing 0 is a no-op.
func (a *Allocator) Free(ptr uintptr) error {
	if ptr == 0 {
		return nil
	}
	if a.closed.Load() {
		return ErrClosed
	}

	a.regMu.RLock()
	_, isHuge := a.huge[ptr]
	c := a.chunks[ptr&^(a.cfg.ChunkSize-1)]
	a.regMu.RUnlock()

	if isHuge {
		a.regMu.Lock()
		e, ok := a.huge[ptr]
		delete(a.huge, ptr)
		a.regMu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %#x", ErrDoubleFree, ptr)
		}
		e.arena.freeHuge(e)
		a.frees.Add(1)
		return nil
	}

	if c == nil {
		return fmt.Errorf("%w: %#x", ErrInvalidPointer, ptr)
	}
	if err := c.arena.free(c, ptr); err != nil {
		return fmt.Errorf("%w: %#x", err, ptr)
	}
	a.frees.Add(1)
	return nil
}

// ArenaOf returns the arena owning ptr.
func (a *Allocator) ArenaOf(ptr uintptr) (uint, bool) {
	a.regMu.RLock()
	defer a.regMu.RUnlock()

	if e, ok := a.huge[ptr]; ok {
		return e.arena.ind, true
	}
	if c, ok := a.chunks[ptr&^(a.cfg.ChunkSize-1)]; ok {
		return c.arena.ind, true
	}
	return 0, false
}

// Stats returns a snapshot of allocator state.
func (a *Allocator) Stats() Stats {
	a.arenaMu.Lock()
	arenas := make([]*arena, 0, a.live.GetCardinality())
	it := a.live.Iterator()
	for it.HasNext() {
		arenas = append(arenas, a.arenas[it.Next()])
	}
	a.arenaMu.Unlock()

	s := Stats{
		Arenas:       len(arenas),
		Mallocs:      a.mallocs.Load(),
		Frees:        a.frees.Load(),
		SystemMapped: a.system.Mapped(),
		SystemPeak:   a.system.PeakMapped(),
	}
	for _, ar := range arenas {
		as := ar.stats()
		s.Chunks += as.chunks
		s.Retained += as.retained
		s.RetainedBytes += as.retainedBytes
	}

	a.regMu.RLock()
	s.HugeExtents = len(a.huge)
	a.regMu.RUnlock()
	return s
}

// Close unmaps all memory obtained from SystemHooks. Memory obtained
// from other hooks belongs to them. Close is idempotent.
func (a *Allocator) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	return a.system.Close()
}

func (a *Allocator) arenaAt(i uint, create bool) (*arena, error) {
	if i >= uint(len(a.arenas)) {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoArena, i, len(a.arenas))
	}

	a.arenaMu.Lock()
	defer a.arenaMu.Unlock()

	if ar := a.arenas[i]; ar != nil {
		return ar, nil
	}
	if !create {
		return nil, fmt.Errorf("%w: %d", ErrArenaUninitialized, i)
	}

	idx, err := conv.UintToUint32(i)
	if err != nil {
		return nil, err
	}
	ar := newArena(a, i, a.system)
	a.arenas[i] = ar
	a.live.Add(idx)
	a.logger.Debug("arena initialized", "arena", i)
	return ar, nil
}

// nextArena picks an arena for a thread that was never bound.
func (a *Allocator) nextArena() (*arena, error) {
	n := uint64(len(a.arenas))
	return a.arenaAt(uint((a.next.Add(1)-1)%n), true)
}

func (a *Allocator) registerChunk(c *chunk) {
	a.regMu.Lock()
	a.chunks[c.base] = c
	a.regMu.Unlock()
}

func (a *Allocator) unregisterChunk(c *chunk) {
	a.regMu.Lock()
	delete(a.chunks, c.base)
	a.regMu.Unlock()
}

func (a *Allocator) registerHuge(e *hugeExtent) {
	a.regMu.Lock()
	a.huge[e.addr] = e
	a.regMu.Unlock()
}
