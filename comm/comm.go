package comm

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/TomsyPaul/tomsychapel/internal/conv"
	"github.com/TomsyPaul/tomsychapel/internal/mmap"
)

// EnvSharedHeapSize sizes the Segment FromEnv maps, e.g. "64MiB".
const EnvSharedHeapSize = "TOMSY_SHARED_HEAP_SIZE"

var (
	// ErrInvalidSize is returned for unusable segment sizes.
	ErrInvalidSize = errors.New("comm: invalid shared heap size")

	// ErrClosed is returned when querying a closed Segment.
	ErrClosed = errors.New("comm: segment closed")
)

// Provider reports the shared heap the communication layer wants.
type Provider interface {
	// DesiredSharedHeap returns the region's base and size. A zero base
	// means no shared heap.
	DesiredSharedHeap() (base, size uintptr, err error)
}

// NoHeap wants no shared heap.
type NoHeap struct{}

// DesiredSharedHeap returns (0, 0, nil).
func (NoHeap) DesiredSharedHeap() (uintptr, uintptr, error) { return 0, 0, nil }

// Static reports a fixed region owned by someone else.
type Static struct {
	Base uintptr
	Size uintptr
}

// DesiredSharedHeap returns the configured region.
func (s Static) DesiredSharedHeap() (uintptr, uintptr, error) { return s.Base, s.Size, nil }

// Segment is an anonymous mapping owned by the communication layer.
type Segment struct {
	mu sync.Mutex
	m  *mmap.Mapping
}

// NewSegment maps size bytes.
func NewSegment(size uintptr) (*Segment, error) {
	n, err := conv.UintptrToInt(size)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	m, err := mmap.MapAnon(n)
	if err != nil {
		return nil, fmt.Errorf("comm: map segment: %w", err)
	}
	return &Segment{m: m}, nil
}

// DesiredSharedHeap returns the mapped region.
func (s *Segment) DesiredSharedHeap() (uintptr, uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m == nil {
		return 0, 0, ErrClosed
	}
	return s.m.Addr(), uintptr(s.m.Size()), nil
}

// Bytes returns the segment contents. The slice is invalid after Close.
func (s *Segment) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m == nil {
		return nil
	}
	return s.m.Bytes()
}

// String implements fmt.Stringer.
func (s *Segment) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m == nil {
		return "Segment(closed)"
	}
	return fmt.Sprintf("Segment(%#x, %s)", s.m.Addr(), humanize.IBytes(uint64(s.m.Size())))
}

// Close unmaps the segment. It is safe to call more than once. Nothing
// may use memory from the segment afterwards.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m == nil {
		return nil
	}
	err := s.m.Close()
	s.m = nil
	return err
}

// FromEnv maps a Segment sized by TOMSY_SHARED_HEAP_SIZE. When the
// variable is unset or empty it returns NoHeap. The returned closer
// releases the segment, if any.
func FromEnv() (Provider, func() error, error) {
	v := os.Getenv(EnvSharedHeapSize)
	if v == "" {
		return NoHeap{}, func() error { return nil }, nil
	}

	n, err := humanize.ParseBytes(v)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s=%q: %w", ErrInvalidSize, EnvSharedHeapSize, v, err)
	}
	size, err := conv.Uint64ToUintptr(n)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s=%q: %w", ErrInvalidSize, EnvSharedHeapSize, v, err)
	}

	seg, err := NewSegment(size)
	if err != nil {
		return nil, nil, err
	}
	return seg, seg.Close, nil
}
