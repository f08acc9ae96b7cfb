package tomsychapel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/TomsyPaul/tomsychapel/comm"
	"github.com/TomsyPaul/tomsychapel/slab"
	"github.com/TomsyPaul/tomsychapel/takeover"
	"github.com/TomsyPaul/tomsychapel/testutil"
)

const (
	e2eChunk = 256 << 10
	e2eHeap  = 64 << 20
)

func newSlab(t *testing.T) *slab.Allocator {
	t.Helper()
	a, err := slab.New(slab.Config{ChunkSize: e2eChunk, PageSize: 4096, NArenas: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func newSegment(t *testing.T) *comm.Segment {
	t.Helper()
	seg, err := comm.NewSegment(e2eHeap)
	require.NoError(t, err)
	t.Cleanup(func() { _ = seg.Close() })
	return seg
}

func TestSlab_Unconfigured(t *testing.T) {
	a := newSlab(t)

	l := New(a.MainThread(), comm.NoHeap{})
	require.NoError(t, l.Init())

	st := a.Stats()
	assert.Equal(t, uint64(2), st.Mallocs)
	assert.Equal(t, uint64(1), st.Frees)
	assert.Equal(t, 1, st.Arenas)
}

func TestSlab_Takeover(t *testing.T) {
	a := newSlab(t)
	seg := newSegment(t)
	metrics := &BasicMetricsCollector{}

	main := a.MainThread()
	l := New(main, seg, WithMetricsCollector(metrics))
	require.NoError(t, l.Init())
	defer l.Exit()

	h := l.Heap()
	require.NotNil(t, h)
	assert.Equal(t, uint64(4), a.InitializedArenas().GetCardinality())
	assert.Equal(t, uint64(4), l.Hooked().GetCardinality())

	// Arena 0 booted from a system chunk with free pages left in it.
	assert.Positive(t, l.Report().Sacrificed())
	assert.Positive(t, metrics.GetStats().ChunkAcquires)

	arena, ok := main.Arena()
	require.True(t, ok)
	assert.Equal(t, uint(0), arena)

	for _, size := range append(a.SmallClasses(), a.LargeClasses()...) {
		p, err := main.Malloc(size)
		require.NoError(t, err)
		assert.True(t, h.Contains(p), "class %d served %#x outside the heap", size, p)
	}

	p, err := main.Malloc(3 * e2eChunk)
	require.NoError(t, err)
	assert.True(t, h.Contains(p))
	require.NoError(t, main.Free(p))
}

func TestSlab_WorkersStayInHeap(t *testing.T) {
	a := newSlab(t)
	seg := newSegment(t)

	l := New(a.MainThread(), seg)
	require.NoError(t, l.Init())
	defer l.Exit()
	h := l.Heap()

	var g errgroup.Group
	for w := range 8 {
		g.Go(func() error {
			th := a.NewThread()
			rng := testutil.NewRNG(int64(w))
			for range 500 {
				p, err := th.Malloc(rng.Size(1, 3*e2eChunk/2))
				if err != nil {
					return err
				}
				if !h.Contains(p) {
					return assert.AnError
				}
				if err := th.Free(p); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestSlab_Ascending(t *testing.T) {
	a := newSlab(t)
	seg := newSegment(t)

	l := New(a.MainThread(), seg, WithDrainOrder(takeover.Ascending))
	require.NoError(t, l.Init())
	defer l.Exit()

	h := l.Heap()
	for _, size := range append(a.SmallClasses(), a.LargeClasses()...) {
		p, err := a.MainThread().Malloc(size)
		require.NoError(t, err)
		assert.True(t, h.Contains(p))
	}
}

func TestSlab_HeapExhaustionIsOrdinaryFailure(t *testing.T) {
	a := newSlab(t)
	seg := newSegment(t)

	l := New(a.MainThread(), seg)
	require.NoError(t, l.Init())
	defer l.Exit()

	_, err := a.MainThread().Malloc(2 * e2eHeap)
	assert.ErrorIs(t, err, slab.ErrOutOfMemory)

	// Smaller requests still succeed.
	p, err := a.MainThread().Malloc(64)
	require.NoError(t, err)
	assert.True(t, l.Heap().Contains(p))
}
