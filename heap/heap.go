package heap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/TomsyPaul/tomsychapel/internal/conv"
)

// Stats tracks shared heap usage.
//
//   - Acquired: successful allocations
//   - Failed: rejected allocations (exhaustion, mismatch, bad alignment)
//   - BytesServed: bytes handed out, excluding alignment padding
//   - BytesPadding: bytes skipped to satisfy alignment
type Stats struct {
	Acquired     uint64
	Failed       uint64
	BytesServed  uint64
	BytesPadding uint64
}

type atomicStats struct {
	Acquired     atomic.Uint64
	Failed       atomic.Uint64
	BytesServed  atomic.Uint64
	BytesPadding atomic.Uint64
}

// SharedHeap is a fixed region [base, base+size) with a monotonically
// advancing cursor.
type SharedHeap struct {
	base  uintptr
	size  uintptr
	limit uintptr // base + size, checked at construction

	mu     sync.Mutex
	cursor uintptr // offset from base, 0 <= cursor <= size
	closed bool

	stats atomicStats
}

// New creates a heap over the region starting at base with the given size.
// The region must already be mapped and owned by the caller; the heap never
// maps or unmaps memory itself.
func New(base, size uintptr) (*SharedHeap, error) {
	if base == 0 {
		return nil, ErrNilBase
	}
	if size == 0 {
		return nil, ErrZeroSize
	}
	limit, err := conv.AddUintptr(base, size)
	if err != nil {
		return nil, fmt.Errorf("heap: region end: %w", err)
	}
	return &SharedHeap{
		base:  base,
		size:  size,
		limit: limit,
	}, nil
}

// Allocate carves size bytes aligned to alignment out of the heap.
//
// If requested is non-zero the allocation only succeeds when the next aligned
// address equals requested. The returned address always lies inside the heap,
// even for a zero size. On any failure the cursor is left unchanged.
// When zero is true the returned range reads as zero.
func (h *SharedHeap) Allocate(requested, size, alignment uintptr, zero bool) (uintptr, error) {
	if !conv.IsPowerOfTwo(alignment) {
		h.stats.Failed.Add(1)
		return 0, ErrBadAlignment
	}

	h.mu.Lock()
	addr, padding, err := h.advanceLocked(requested, size, alignment)
	h.mu.Unlock()

	if err != nil {
		h.stats.Failed.Add(1)
		return 0, err
	}

	if zero && size > 0 {
		clear(unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)) //nolint:gosec // addr lies inside the registered region
	}

	h.stats.Acquired.Add(1)
	h.stats.BytesServed.Add(uint64(size))
	h.stats.BytesPadding.Add(uint64(padding))
	return addr, nil
}

func (h *SharedHeap) advanceLocked(requested, size, alignment uintptr) (uintptr, uintptr, error) {
	if h.closed {
		return 0, 0, ErrClosed
	}

	next := h.base + h.cursor // cannot overflow, cursor <= size
	addr, err := conv.AlignUp(next, alignment)
	if err != nil {
		return 0, 0, fmt.Errorf("heap: align %#x to %d: %w", next, alignment, err)
	}

	if requested != 0 && requested != addr {
		return 0, 0, ErrAddressMismatch
	}

	if addr >= h.limit || size > h.limit-addr {
		return 0, 0, ErrExhausted
	}

	h.cursor = addr + size - h.base
	return addr, addr - next, nil
}

// Contains reports whether addr lies inside [base, base+size).
func (h *SharedHeap) Contains(addr uintptr) bool {
	return addr >= h.base && addr < h.limit
}

// Base returns the first address of the region.
func (h *SharedHeap) Base() uintptr {
	return h.base
}

// Size returns the total capacity of the region in bytes.
func (h *SharedHeap) Size() uintptr {
	return h.size
}

// Used returns the current cursor offset.
func (h *SharedHeap) Used() uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Remaining returns the number of bytes past the cursor.
func (h *SharedHeap) Remaining() uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size - h.cursor
}

// Close tears the heap down. Later allocations fail with ErrClosed.
// The region itself stays mapped; it belongs to whoever registered it.
func (h *SharedHeap) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	return nil
}

// Stats returns the current heap statistics.
func (h *SharedHeap) Stats() Stats {
	return Stats{
		Acquired:     h.stats.Acquired.Load(),
		Failed:       h.stats.Failed.Load(),
		BytesServed:  h.stats.BytesServed.Load(),
		BytesPadding: h.stats.BytesPadding.Load(),
	}
}

// Usage returns the used share of the region in percent.
func (h *SharedHeap) Usage() float64 {
	return float64(h.Used()) / float64(h.size) * 100
}

func (h *SharedHeap) String() string {
	stats := h.Stats()
	return fmt.Sprintf(
		"SharedHeap{base: %#x, size: %s, used: %s, usage: %.1f%%, acquired: %d, failed: %d}",
		h.base,
		humanize.IBytes(uint64(h.size)),
		humanize.IBytes(uint64(h.Used())),
		h.Usage(),
		stats.Acquired,
		stats.Failed,
	)
}
