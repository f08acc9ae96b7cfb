package slab

import "slices"

// headerPages is the number of leading pages reserved in every chunk.
const headerPages = 1

// span is a run of free pages [start, start+pages).
type span struct {
	start uintptr
	pages uintptr
}

// chunk tracks page usage of one chunk obtained from the hooks.
type chunk struct {
	base  uintptr
	size  uintptr
	arena *arena
	// pageRun maps every allocated page to its run.
	pageRun []*run
	// spans lists free page spans in address order.
	spans []span
	// decommitted marks pages a Decommit hook released.
	decommitted []bool
	// allocated counts pages in use, excluding the header.
	allocated uintptr
}

func newChunk(a *arena, base, size, page uintptr) *chunk {
	npages := size / page
	return &chunk{
		base:        base,
		size:        size,
		arena:       a,
		pageRun:     make([]*run, npages),
		spans:       []span{{start: headerPages, pages: npages - headerPages}},
		decommitted: make([]bool, npages),
	}
}

func (c *chunk) unused() bool { return c.allocated == 0 }

// takePages carves n pages with first fit. It returns false if no span fits.
func (c *chunk) takePages(n uintptr) (uintptr, bool) {
	for i, s := range c.spans {
		if s.pages < n {
			continue
		}
		if s.pages == n {
			c.spans = slices.Delete(c.spans, i, i+1)
		} else {
			c.spans[i] = span{start: s.start + n, pages: s.pages - n}
		}
		c.allocated += n
		return s.start, true
	}
	return 0, false
}

// givePages returns pages to the free list, coalescing with neighbours.
func (c *chunk) givePages(start, n uintptr) {
	i, _ := slices.BinarySearchFunc(c.spans, start, func(s span, start uintptr) int {
		switch {
		case s.start < start:
			return -1
		case s.start > start:
			return 1
		}
		return 0
	})
	c.spans = slices.Insert(c.spans, i, span{start: start, pages: n})
	if i+1 < len(c.spans) && c.spans[i].start+c.spans[i].pages == c.spans[i+1].start {
		c.spans[i].pages += c.spans[i+1].pages
		c.spans = slices.Delete(c.spans, i+1, i+2)
	}
	if i > 0 && c.spans[i-1].start+c.spans[i-1].pages == c.spans[i].start {
		c.spans[i-1].pages += c.spans[i].pages
		c.spans = slices.Delete(c.spans, i, i+1)
	}
	c.allocated -= n
}
