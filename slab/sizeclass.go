package slab

import "sort"

const (
	tinyClass = 8
	quantum   = 16
	// classesPerGroup is the number of classes between consecutive powers of two.
	classesPerGroup = 4
	// smallMaxPages bounds small classes: every small class is below smallMaxPages pages.
	smallMaxPages = 4
	// minRegions is the number of regions a small run aims to hold.
	minRegions = 8
	// maxRunPages caps small runs; every chunk has room for two of them.
	maxRunPages = 2 * smallMaxPages
)

// sizeClasses holds the small and large class tables of an allocator.
type sizeClasses struct {
	small []uintptr
	large []uintptr
	// runPages[i] is the run length in pages for small class i.
	runPages []uintptr
	page     uintptr
	chunk    uintptr
}

func newSizeClasses(page, chunk uintptr) *sizeClasses {
	sc := &sizeClasses{page: page, chunk: chunk}

	smallMax := smallMaxPages * page
	sc.small = append(sc.small, tinyClass)
	for s := uintptr(quantum); s <= 8*quantum && s < smallMax; s += quantum {
		sc.small = append(sc.small, s)
	}

	// Geometric groups above 8 quanta, four classes per doubling.
	largeMax := chunk / 2
	for base := uintptr(8 * quantum); ; base *= 2 {
		step := base / classesPerGroup
		done := false
		for i := uintptr(1); i <= classesPerGroup; i++ {
			s := base + i*step
			switch {
			case s < smallMax:
				sc.small = append(sc.small, s)
			case s <= largeMax:
				if s%page == 0 {
					sc.large = append(sc.large, s)
				}
			default:
				done = true
			}
		}
		if done {
			break
		}
	}
	if len(sc.large) == 0 || sc.large[0] != smallMax {
		sc.large = append([]uintptr{smallMax}, sc.large...)
	}

	sc.runPages = make([]uintptr, len(sc.small))
	for i, s := range sc.small {
		sc.runPages[i] = sc.pagesForRun(s)
	}
	return sc
}

// pagesForRun picks the smallest run holding minRegions regions of size,
// capped at maxRunPages.
func (sc *sizeClasses) pagesForRun(size uintptr) uintptr {
	pages := (size*minRegions + sc.page - 1) / sc.page
	return min(pages, maxRunPages)
}

func (sc *sizeClasses) largeMax() uintptr {
	return sc.large[len(sc.large)-1]
}

// kind reports how size is served.
type kind int

const (
	kindSmall kind = iota
	kindLarge
	kindHuge
)

// lookup returns the kind and class index serving size, with the rounded size.
// The index is meaningless for huge requests.
func (sc *sizeClasses) lookup(size uintptr) (kind, int, uintptr) {
	if size == 0 {
		size = 1
	}
	if size <= sc.small[len(sc.small)-1] {
		i := sort.Search(len(sc.small), func(i int) bool { return sc.small[i] >= size })
		return kindSmall, i, sc.small[i]
	}
	if size <= sc.largeMax() {
		i := sort.Search(len(sc.large), func(i int) bool { return sc.large[i] >= size })
		return kindLarge, i, sc.large[i]
	}
	rounded := (size + sc.chunk - 1) &^ (sc.chunk - 1)
	if rounded < size {
		// Wrapped; the hooks will refuse it.
		rounded = size
	}
	return kindHuge, -1, rounded
}
