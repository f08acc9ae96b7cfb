package slab

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/TomsyPaul/tomsychapel/backing"
)

// bin serves one small size class.
type bin struct {
	size     uintptr
	runPages uintptr
	current  *run
	// nonfull holds runs with free regions other than current.
	nonfull []*run
}

// hugeExtent is a chunk-aligned allocation larger than any large class.
type hugeExtent struct {
	addr  uintptr
	size  uintptr
	arena *arena
}

// arena owns chunks and serves allocations for the threads bound to it.
type arena struct {
	ind    uint
	owner  *Allocator
	logger *slog.Logger

	mu       sync.Mutex
	hooks    backing.ChunkHooks
	chunks   []*chunk
	bins     []bin
	retained []hugeExtent // sorted by addr
}

func newArena(owner *Allocator, ind uint, hooks backing.ChunkHooks) *arena {
	sc := owner.classes
	ar := &arena{
		ind:    ind,
		owner:  owner,
		logger: owner.logger.With("arena", ind),
		hooks:  hooks,
		bins:   make([]bin, len(sc.small)),
	}
	for i, s := range sc.small {
		ar.bins[i] = bin{size: s, runPages: sc.runPages[i]}
	}
	return ar
}

func (ar *arena) setHooks(h backing.ChunkHooks) {
	ar.mu.Lock()
	ar.hooks = h
	ar.mu.Unlock()
}

func (ar *arena) currentHooks() backing.ChunkHooks {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.hooks
}

func (ar *arena) malloc(size uintptr) (uintptr, error) {
	k, class, rounded := ar.owner.classes.lookup(size)

	ar.mu.Lock()
	defer ar.mu.Unlock()

	switch k {
	case kindSmall:
		return ar.mallocSmall(class)
	case kindLarge:
		r, err := ar.allocRun(rounded/ar.owner.cfg.PageSize, -1, rounded)
		if err != nil {
			return 0, err
		}
		return r.alloc(), nil
	default:
		return ar.mallocHuge(rounded)
	}
}

func (ar *arena) mallocSmall(class int) (uintptr, error) {
	b := &ar.bins[class]
	if b.current == nil || b.current.full() {
		if n := len(b.nonfull); n > 0 {
			b.current = b.nonfull[n-1]
			b.nonfull = b.nonfull[:n-1]
		} else {
			r, err := ar.allocRun(b.runPages, class, b.size)
			if err != nil {
				return 0, err
			}
			b.current = r
		}
	}
	return b.current.alloc(), nil
}

// allocRun finds pages for a run, first fit across chunks in acquisition order.
func (ar *arena) allocRun(pages uintptr, class int, size uintptr) (*run, error) {
	for _, c := range ar.chunks {
		if r, ok := ar.carve(c, pages, class, size); ok {
			return r, nil
		}
	}

	c, err := ar.newChunk()
	if err != nil {
		return nil, err
	}
	r, ok := ar.carve(c, pages, class, size)
	if !ok {
		return nil, fmt.Errorf("%w: fresh chunk cannot hold %d pages", ErrOutOfMemory, pages)
	}
	return r, nil
}

func (ar *arena) carve(c *chunk, pages uintptr, class int, size uintptr) (*run, bool) {
	start, ok := c.takePages(pages)
	if !ok {
		return nil, false
	}
	if !ar.commit(c, start, pages) {
		c.givePages(start, pages)
		return nil, false
	}

	page := ar.owner.cfg.PageSize
	r := newRun(c, c.base+start*page, pages, class, size, page)
	for i := range pages {
		c.pageRun[start+i] = r
	}
	return r, true
}

// commit recommits any decommitted pages in [start, start+pages).
func (ar *arena) commit(c *chunk, start, pages uintptr) bool {
	page := ar.owner.cfg.PageSize
	for i := start; i < start+pages; {
		if !c.decommitted[i] {
			i++
			continue
		}
		j := i
		for j < start+pages && c.decommitted[j] {
			j++
		}
		if ar.hooks.Commit(c.base, c.size, i*page, (j-i)*page, ar.ind) {
			ar.logger.Debug("commit declined", "chunk", c.base, "pages", j-i)
			return false
		}
		for k := i; k < j; k++ {
			c.decommitted[k] = false
		}
		i = j
	}
	return true
}

func (ar *arena) newChunk() (*chunk, error) {
	cs := ar.owner.cfg.ChunkSize
	resp, err := ar.hooks.Alloc(backing.ChunkRequest{
		Size:      cs,
		Alignment: cs,
		Arena:     ar.ind,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: arena %d: %w", ErrOutOfMemory, ar.ind, err)
	}
	if resp.Addr == 0 || resp.Addr&(cs-1) != 0 {
		return nil, fmt.Errorf("%w: arena %d: hooks returned misaligned chunk %#x", ErrOutOfMemory, ar.ind, resp.Addr)
	}

	c := newChunk(ar, resp.Addr, cs, ar.owner.cfg.PageSize)
	if !resp.Committed {
		for i := range c.decommitted {
			c.decommitted[i] = true
		}
	}
	ar.chunks = append(ar.chunks, c)
	ar.owner.registerChunk(c)
	ar.logger.Debug("chunk acquired", "addr", resp.Addr, "size", cs)
	return c, nil
}

func (ar *arena) free(c *chunk, ptr uintptr) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	r := c.pageRun[(ptr-c.base)/ar.owner.cfg.PageSize]
	if r == nil {
		return ErrInvalidPointer
	}
	wasFull := r.full()
	if err := r.release(ptr); err != nil {
		return err
	}

	if r.class < 0 {
		ar.releaseRun(r)
		return nil
	}

	b := &ar.bins[r.class]
	switch {
	case r == b.current:
	case r.empty():
		b.nonfull = slices.DeleteFunc(b.nonfull, func(x *run) bool { return x == r })
		ar.releaseRun(r)
	case wasFull:
		b.nonfull = append(b.nonfull, r)
	}
	return nil
}

// releaseRun returns a run's pages to its chunk and disposes of the chunk
// once nothing in it is allocated.
func (ar *arena) releaseRun(r *run) {
	c := r.chunk
	page := ar.owner.cfg.PageSize
	start := (r.base - c.base) / page
	for i := range r.pages {
		c.pageRun[start+i] = nil
	}
	c.givePages(start, r.pages)

	off, length := start*page, r.pages*page
	if ar.hooks.Decommit(c.base, c.size, off, length, ar.ind) {
		ar.hooks.Purge(c.base, c.size, off, length, ar.ind)
	} else {
		for i := range r.pages {
			c.decommitted[start+i] = true
		}
	}

	if c.unused() && !ar.hooks.Dalloc(c.base, c.size, true, ar.ind) {
		ar.chunks = slices.DeleteFunc(ar.chunks, func(x *chunk) bool { return x == c })
		ar.owner.unregisterChunk(c)
		ar.logger.Debug("chunk released", "addr", c.base)
	}
}

func (ar *arena) mallocHuge(size uintptr) (uintptr, error) {
	if e, ok := ar.reuseRetained(size); ok {
		ar.owner.registerHuge(e)
		return e.addr, nil
	}

	resp, err := ar.hooks.Alloc(backing.ChunkRequest{
		Size:      size,
		Alignment: ar.owner.cfg.ChunkSize,
		Arena:     ar.ind,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: arena %d: huge %d: %w", ErrOutOfMemory, ar.ind, size, err)
	}
	e := &hugeExtent{addr: resp.Addr, size: size, arena: ar}
	ar.owner.registerHuge(e)
	return e.addr, nil
}

// reuseRetained takes the first retained extent of at least size bytes,
// splitting off the remainder when the hooks allow it.
func (ar *arena) reuseRetained(size uintptr) (*hugeExtent, bool) {
	i := slices.IndexFunc(ar.retained, func(e hugeExtent) bool { return e.size >= size })
	if i < 0 {
		return nil, false
	}
	e := ar.retained[i]
	ar.retained = slices.Delete(ar.retained, i, i+1)

	if e.size > size && !ar.hooks.Split(e.addr, e.size, size, e.size-size, true, ar.ind) {
		ar.insertRetained(hugeExtent{addr: e.addr + size, size: e.size - size, arena: ar})
		e.size = size
	}
	return &e, true
}

func (ar *arena) freeHuge(e *hugeExtent) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if !ar.hooks.Dalloc(e.addr, e.size, true, ar.ind) {
		return
	}
	ar.retain(*e)
}

// retain keeps an extent the hooks declined to release, merging it with
// adjacent retained extents when the hooks allow it.
func (ar *arena) retain(e hugeExtent) {
	i := ar.insertRetained(e)

	if i+1 < len(ar.retained) {
		cur, next := ar.retained[i], ar.retained[i+1]
		if cur.addr+cur.size == next.addr &&
			!ar.hooks.Merge(cur.addr, cur.size, next.addr, next.size, true, ar.ind) {
			ar.retained[i].size += next.size
			ar.retained = slices.Delete(ar.retained, i+1, i+2)
		}
	}
	if i > 0 {
		prev, cur := ar.retained[i-1], ar.retained[i]
		if prev.addr+prev.size == cur.addr &&
			!ar.hooks.Merge(prev.addr, prev.size, cur.addr, cur.size, true, ar.ind) {
			ar.retained[i-1].size += cur.size
			ar.retained = slices.Delete(ar.retained, i, i+1)
		}
	}
}

func (ar *arena) insertRetained(e hugeExtent) int {
	i, _ := slices.BinarySearchFunc(ar.retained, e.addr, func(x hugeExtent, addr uintptr) int {
		switch {
		case x.addr < addr:
			return -1
		case x.addr > addr:
			return 1
		}
		return 0
	})
	ar.retained = slices.Insert(ar.retained, i, e)
	return i
}

// arenaStats is a snapshot of one arena.
type arenaStats struct {
	chunks        int
	retained      int
	retainedBytes uintptr
}

func (ar *arena) stats() arenaStats {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	s := arenaStats{chunks: len(ar.chunks), retained: len(ar.retained)}
	for _, e := range ar.retained {
		s.retainedBytes += e.size
	}
	return s
}
