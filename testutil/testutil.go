package testutil

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/TomsyPaul/tomsychapel/internal/mmap"
)

// Region maps an anonymous region of size bytes and unmaps it when the test ends.
func Region(tb testing.TB, size int) (uintptr, uintptr) {
	tb.Helper()

	m, err := mmap.MapAnon(size)
	if err != nil {
		tb.Fatalf("testutil: map %d bytes: %v", size, err)
	}
	tb.Cleanup(func() {
		_ = m.Close()
	})
	return m.Addr(), uintptr(size)
}

// RNG struct encapsulates a seeded random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Size returns a pseudo-random size in [lo, hi].
func (r *RNG) Size(lo, hi uintptr) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + uintptr(r.rand.Int63n(int64(hi-lo+1)))
}

// Alignment returns a pseudo-random power of two in [1, 1<<maxShift].
func (r *RNG) Alignment(maxShift int) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uintptr(1) << r.rand.Intn(maxShift+1)
}
