package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomsyPaul/tomsychapel/backing"
)

type fixedHooks struct {
	next uintptr
}

func (h *fixedHooks) Alloc(req backing.ChunkRequest) (backing.ChunkResponse, error) {
	addr := h.next
	h.next += req.Size
	return backing.ChunkResponse{Addr: addr, Committed: true}, nil
}
func (h *fixedHooks) Dalloc(uintptr, uintptr, bool, uint) bool                 { return true }
func (h *fixedHooks) Commit(uintptr, uintptr, uintptr, uintptr, uint) bool      { return true }
func (h *fixedHooks) Decommit(uintptr, uintptr, uintptr, uintptr, uint) bool    { return true }
func (h *fixedHooks) Purge(uintptr, uintptr, uintptr, uintptr, uint) bool       { return true }
func (h *fixedHooks) Split(uintptr, uintptr, uintptr, uintptr, bool, uint) bool { return true }
func (h *fixedHooks) Merge(uintptr, uintptr, uintptr, uintptr, bool, uint) bool { return true }

func TestScriptedAllocator_OutsideUntilHooked(t *testing.T) {
	a := NewScriptedAllocator([]uintptr{16}, []uintptr{4096}, 2)

	p, err := a.Malloc(16)
	require.NoError(t, err)
	assert.Equal(t, OutsideBase, p)

	assert.ErrorIs(t, a.SetChunkHooks(1, &fixedHooks{}), ErrUninitialized)
	require.NoError(t, a.BindArena(1))
	require.NoError(t, a.BindArena(0))

	hooks := &fixedHooks{next: 1 << 40}
	require.NoError(t, a.SetChunkHooks(0, hooks))

	a.Stock(16, 1)
	p, err = a.Malloc(16)
	require.NoError(t, err)
	assert.Less(t, p, uintptr(1<<40), "stocked allocations stay outside")

	p, err = a.Malloc(16)
	require.NoError(t, err)
	assert.Equal(t, uintptr(1<<40), p)

	require.NoError(t, a.Free(p))
	again, err := a.Malloc(16)
	require.NoError(t, err)
	assert.Equal(t, p, again, "freed hooked memory is reused")

	assert.Error(t, a.Free(12345))
	assert.Equal(t, []uint{1, 0}, a.Binds)
}

func TestScriptedAllocator_FailMallocAfter(t *testing.T) {
	a := NewScriptedAllocator(nil, nil, 1)
	a.FailMallocAfter = 1

	_, err := a.Malloc(8)
	require.NoError(t, err)
	_, err = a.Malloc(8)
	assert.ErrorIs(t, err, ErrScripted)
}

func TestRNG_SizeAlignment(t *testing.T) {
	rng := NewRNG(4711)
	for range 100 {
		s := rng.Size(1, 64)
		assert.GreaterOrEqual(t, s, uintptr(1))
		assert.LessOrEqual(t, s, uintptr(64))

		al := rng.Alignment(6)
		assert.True(t, al&(al-1) == 0)
		assert.LessOrEqual(t, al, uintptr(64))
	}
}
