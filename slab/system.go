package slab

import (
	"errors"
	"fmt"
	"sync"

	"github.com/TomsyPaul/tomsychapel/backing"
	"github.com/TomsyPaul/tomsychapel/internal/conv"
	"github.com/TomsyPaul/tomsychapel/internal/mmap"
	"github.com/TomsyPaul/tomsychapel/internal/resource"
)

// SystemHooks are the default chunk hooks. Chunks are anonymous mappings,
// over-mapped so the returned address meets the requested alignment.
type SystemHooks struct {
	rc *resource.Controller

	mu sync.Mutex
	// mappings is keyed by the aligned chunk address handed out.
	mappings map[uintptr]*mmap.Mapping
}

var _ backing.ChunkHooks = (*SystemHooks)(nil)

// NewSystemHooks returns hooks that map at most limit bytes (0 = unlimited).
func NewSystemHooks(limit int64) *SystemHooks {
	return &SystemHooks{
		rc:       resource.NewController(resource.Config{MemoryLimitBytes: limit}),
		mappings: make(map[uintptr]*mmap.Mapping),
	}
}

// Alloc maps a fresh chunk.
func (h *SystemHooks) Alloc(req backing.ChunkRequest) (backing.ChunkResponse, error) {
	if req.Addr != 0 {
		return backing.ChunkResponse{}, ErrFixedAddress
	}
	if req.Size == 0 {
		return backing.ChunkResponse{}, fmt.Errorf("%w: zero-size chunk", ErrOutOfMemory)
	}
	align := max(req.Alignment, 1)
	if !conv.IsPowerOfTwo(align) {
		return backing.ChunkResponse{}, fmt.Errorf("%w: alignment %d", ErrOutOfMemory, align)
	}

	total, err := conv.AddUintptr(req.Size, align-1)
	if err != nil {
		return backing.ChunkResponse{}, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	n, err := conv.UintptrToInt(total)
	if err != nil {
		return backing.ChunkResponse{}, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	if err := h.rc.AcquireMemory(int64(n)); err != nil {
		return backing.ChunkResponse{}, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	m, err := mmap.MapAnon(n)
	if err != nil {
		h.rc.ReleaseMemory(int64(n))
		return backing.ChunkResponse{}, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	addr, err := conv.AlignUp(m.Addr(), align)
	if err != nil {
		_ = m.Close()
		h.rc.ReleaseMemory(int64(n))
		return backing.ChunkResponse{}, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	h.mu.Lock()
	h.mappings[addr] = m
	h.mu.Unlock()

	return backing.ChunkResponse{Addr: addr, Zeroed: true, Committed: true}, nil
}

// Dalloc unmaps a chunk this instance mapped. Foreign chunks are kept.
func (h *SystemHooks) Dalloc(chunk, _ uintptr, _ bool, _ uint) bool {
	h.mu.Lock()
	m, ok := h.mappings[chunk]
	if ok {
		delete(h.mappings, chunk)
	}
	h.mu.Unlock()
	if !ok {
		return true
	}

	size := m.Size()
	if err := m.Close(); err != nil {
		return true
	}
	h.rc.ReleaseMemory(int64(size))
	return false
}

// Commit is a no-op for anonymous memory, which recommits on touch.
func (h *SystemHooks) Commit(chunk, _, _, _ uintptr, _ uint) bool {
	return h.lookup(chunk) == nil
}

// Decommit releases the pages back to the operating system.
func (h *SystemHooks) Decommit(chunk, _, offset, length uintptr, _ uint) bool {
	return h.dontNeed(chunk, offset, length) != nil
}

// Purge discards page contents.
func (h *SystemHooks) Purge(chunk, _, offset, length uintptr, _ uint) bool {
	return h.dontNeed(chunk, offset, length) != nil
}

// Split opts out; mappings are released whole.
func (h *SystemHooks) Split(_, _, _, _ uintptr, _ bool, _ uint) bool { return true }

// Merge opts out; mappings are released whole.
func (h *SystemHooks) Merge(_, _, _, _ uintptr, _ bool, _ uint) bool { return true }

// Mapped returns the bytes currently mapped, including alignment slack.
func (h *SystemHooks) Mapped() int64 {
	return h.rc.MemoryUsage()
}

// PeakMapped returns the most bytes mapped at once.
func (h *SystemHooks) PeakMapped() int64 {
	return h.rc.PeakMemoryUsage()
}

// Close unmaps every chunk still mapped.
func (h *SystemHooks) Close() error {
	h.mu.Lock()
	mappings := h.mappings
	h.mappings = make(map[uintptr]*mmap.Mapping)
	h.mu.Unlock()

	var errs []error
	for _, m := range mappings {
		size := m.Size()
		if err := m.Close(); err != nil {
			errs = append(errs, err)
			continue
		}
		h.rc.ReleaseMemory(int64(size))
	}
	return errors.Join(errs...)
}

func (h *SystemHooks) lookup(chunk uintptr) *mmap.Mapping {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mappings[chunk]
}

func (h *SystemHooks) dontNeed(chunk, offset, length uintptr) error {
	m := h.lookup(chunk)
	if m == nil {
		return ErrInvalidPointer
	}
	off, err := conv.UintptrToInt(chunk - m.Addr() + offset)
	if err != nil {
		return err
	}
	n, err := conv.UintptrToInt(length)
	if err != nil {
		return err
	}
	r, err := m.Region(off, n)
	if err != nil {
		return err
	}
	return r.Advise(mmap.AccessDontNeed)
}
