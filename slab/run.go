package slab

import "math/bits"

// run is a page-aligned span of a chunk holding equally sized regions.
// A large allocation is a run with a single region.
type run struct {
	chunk *chunk
	base  uintptr
	pages uintptr
	// class is the small class index, or -1 for large runs.
	class int
	size  uintptr
	nregs int
	nfree int
	// free has a set bit for every free region.
	free []uint64
}

func newRun(c *chunk, base, pages uintptr, class int, size uintptr, page uintptr) *run {
	nregs := int(pages * page / size)
	r := &run{
		chunk: c,
		base:  base,
		pages: pages,
		class: class,
		size:  size,
		nregs: nregs,
		nfree: nregs,
		free:  make([]uint64, (nregs+63)/64),
	}
	for i := range nregs {
		r.free[i/64] |= 1 << (i % 64)
	}
	return r
}

func (r *run) full() bool  { return r.nfree == 0 }
func (r *run) empty() bool { return r.nfree == r.nregs }

// alloc hands out the lowest free region. The run must not be full.
func (r *run) alloc() uintptr {
	for w, word := range r.free {
		if word == 0 {
			continue
		}
		bit := bits.TrailingZeros64(word)
		r.free[w] &^= 1 << bit
		r.nfree--
		return r.base + uintptr(w*64+bit)*r.size
	}
	panic("slab: alloc from full run")
}

// release returns the region at ptr.
func (r *run) release(ptr uintptr) error {
	off := ptr - r.base
	if ptr < r.base || off%r.size != 0 {
		return ErrInvalidPointer
	}
	i := int(off / r.size)
	if i >= r.nregs {
		return ErrInvalidPointer
	}
	if r.free[i/64]&(1<<(i%64)) != 0 {
		return ErrDoubleFree
	}
	r.free[i/64] |= 1 << (i % 64)
	r.nfree++
	return nil
}
