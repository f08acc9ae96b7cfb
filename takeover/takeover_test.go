package takeover

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomsyPaul/tomsychapel/chunk"
	"github.com/TomsyPaul/tomsychapel/heap"
	"github.com/TomsyPaul/tomsychapel/testutil"
)

var (
	smallClasses = []uintptr{8, 16, 32, 48, 64}
	largeClasses = []uintptr{4096, 8192, 16384}
)

const heapBase uintptr = 1 << 40

func newScripted(arenas int) *testutil.ScriptedAllocator {
	return testutil.NewScriptedAllocator(smallClasses, largeClasses, arenas)
}

func newProvider(t *testing.T) *chunk.Provider {
	t.Helper()
	h, err := heap.New(heapBase, 64<<20)
	require.NoError(t, err)
	return chunk.NewProvider(h)
}

func TestClassSizes(t *testing.T) {
	a := newScripted(1)

	small, err := SmallClassCount(a)
	require.NoError(t, err)
	assert.Equal(t, 5, small)

	large, err := LargeClassCount(a)
	require.NoError(t, err)
	assert.Equal(t, 3, large)

	sizes, err := ClassSizes(a)
	require.NoError(t, err)
	assert.Equal(t, []uintptr{8, 16, 32, 48, 64, 4096, 8192, 16384}, sizes)
}

func TestClassSizes_Failures(t *testing.T) {
	t.Run("introspection error", func(t *testing.T) {
		a := newScripted(1)
		a.IntrospectErr = testutil.ErrScripted

		_, err := ClassSizes(a)
		assert.ErrorIs(t, err, ErrIntrospection)
		assert.ErrorIs(t, err, testutil.ErrScripted)
	})

	t.Run("unordered small classes", func(t *testing.T) {
		a := testutil.NewScriptedAllocator([]uintptr{16, 8}, nil, 1)
		_, err := ClassSizes(a)
		assert.ErrorIs(t, err, ErrIntrospection)
	})

	t.Run("large class overlaps small classes", func(t *testing.T) {
		a := testutil.NewScriptedAllocator([]uintptr{8, 4096}, []uintptr{4096, 8192}, 1)
		_, err := ClassSizes(a)
		assert.ErrorIs(t, err, ErrIntrospection)
		assert.Contains(t, err.Error(), "not above last small class")
	})

	t.Run("zero size class", func(t *testing.T) {
		a := testutil.NewScriptedAllocator(nil, []uintptr{0, 4096}, 1)
		_, err := ClassSizes(a)
		assert.ErrorIs(t, err, ErrIntrospection)
	})
}

func TestMaterializeArenas(t *testing.T) {
	a := newScripted(4)

	n, err := MaterializeArenas(a)
	require.NoError(t, err)
	assert.Equal(t, uint(4), n)

	assert.Equal(t, []uint{1, 2, 3, 0}, a.Binds)
	assert.Equal(t, uint(0), a.Bound())
	for arena := uint(0); arena < 4; arena++ {
		assert.True(t, a.Initialized(arena), "arena %d", arena)
	}
}

func TestMaterializeArenas_SingleArena(t *testing.T) {
	a := newScripted(1)

	n, err := MaterializeArenas(a)
	require.NoError(t, err)
	assert.Equal(t, uint(1), n)
	assert.Equal(t, []uint{0}, a.Binds)
}

func TestMaterializeArenas_BindFailure(t *testing.T) {
	a := newScripted(4)
	a.BindErr[2] = testutil.ErrScripted

	_, err := MaterializeArenas(a)
	assert.ErrorIs(t, err, ErrBootstrap)
	assert.ErrorIs(t, err, testutil.ErrScripted)
	assert.Equal(t, []uint{1, 2}, a.Binds, "bootstrap stops at the first failure")
}

func TestMaterializeArenas_RebindFailure(t *testing.T) {
	a := newScripted(2)
	a.BindErr[0] = testutil.ErrScripted

	_, err := MaterializeArenas(a)
	assert.ErrorIs(t, err, ErrBootstrap)
}

func TestMaterializeArenas_NoArenas(t *testing.T) {
	_, err := MaterializeArenas(newScripted(0))
	assert.ErrorIs(t, err, ErrIntrospection)
}

func TestInstallHooks(t *testing.T) {
	a := newScripted(4)
	p := newProvider(t)

	_, err := InstallHooks(a, p, 4)
	assert.ErrorIs(t, err, ErrInstall, "arenas 1..3 are not initialized yet")

	_, err = MaterializeArenas(a)
	require.NoError(t, err)

	hooked, err := InstallHooks(a, p, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), hooked.GetCardinality())
	assert.Equal(t, []uint32{0, 1, 2, 3}, hooked.ToArray())

	missing, err := VerifyHooks(a, p, 4)
	require.NoError(t, err)
	assert.True(t, missing.IsEmpty())

	for arena := uint(0); arena < 4; arena++ {
		got, err := a.ChunkHooks(arena)
		require.NoError(t, err)
		assert.Same(t, p, got)
	}
}

func TestInstallHooks_Failure(t *testing.T) {
	a := newScripted(3)
	_, err := MaterializeArenas(a)
	require.NoError(t, err)
	a.InstallErr[1] = testutil.ErrScripted

	_, err = InstallHooks(a, newProvider(t), 3)
	assert.ErrorIs(t, err, ErrInstall)

	missing, err := VerifyHooks(a, newProvider(t), 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, missing.ToArray())
}

func hookedScripted(t *testing.T, arenas int) (*testutil.ScriptedAllocator, *chunk.Provider) {
	t.Helper()
	a := newScripted(arenas)
	p := newProvider(t)
	n, err := MaterializeArenas(a)
	require.NoError(t, err)
	_, err = InstallHooks(a, p, n)
	require.NoError(t, err)
	return a, p
}

func TestPurify_Convergence(t *testing.T) {
	a, p := hookedScripted(t, 2)

	const stock = 5
	sizes, err := ClassSizes(a)
	require.NoError(t, err)
	for _, size := range sizes {
		a.Stock(size, stock)
	}

	report, err := Purify(a, p.Heap().Contains, sizes, PurifyOptions{})
	require.NoError(t, err)

	require.Len(t, report.Classes, len(sizes))
	for i, c := range report.Classes {
		assert.Equal(t, sizes[len(sizes)-1-i], c.Size, "largest class first")
		assert.Equal(t, stock, c.Sacrificed)
		assert.Equal(t, stock*c.Size, c.SacrificedBytes)
	}
	assert.Equal(t, stock*len(sizes), report.Sacrificed())
	assert.Equal(t, stock*len(sizes), a.Live(), "outside allocations are never freed")

	for _, size := range sizes {
		ptr, err := a.Malloc(size)
		require.NoError(t, err)
		assert.True(t, p.Heap().Contains(ptr), "class %d serves from the heap after purification", size)
	}
}

func TestPurify_Ascending(t *testing.T) {
	a, p := hookedScripted(t, 1)
	sizes, err := ClassSizes(a)
	require.NoError(t, err)
	a.Stock(16, 3)
	a.Stock(8192, 1)

	report, err := Purify(a, p.Heap().Contains, sizes, PurifyOptions{Order: Ascending})
	require.NoError(t, err)

	for i, c := range report.Classes {
		assert.Equal(t, sizes[i], c.Size)
	}
	assert.Equal(t, 4, report.Sacrificed())
	assert.Equal(t, uintptr(3*16+8192), report.SacrificedBytes())
}

func TestPurify_NothingToDrain(t *testing.T) {
	a, p := hookedScripted(t, 1)
	sizes, err := ClassSizes(a)
	require.NoError(t, err)

	report, err := Purify(a, p.Heap().Contains, sizes, PurifyOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Sacrificed())
	assert.Len(t, a.Mallocs, len(sizes), "one allocation per class")
	assert.Len(t, a.Frees, len(sizes))
	assert.Zero(t, a.Live())
}

func TestPurify_MallocFailure(t *testing.T) {
	a, p := hookedScripted(t, 1)
	sizes, err := ClassSizes(a)
	require.NoError(t, err)
	a.Stock(16384, 10)
	a.FailMallocAfter = 4

	report, err := Purify(a, p.Heap().Contains, sizes, PurifyOptions{})
	assert.ErrorIs(t, err, ErrDrain)
	assert.ErrorIs(t, err, testutil.ErrScripted)
	assert.Empty(t, report.Classes)
}

func TestPurify_NoHooksNeverConverges(t *testing.T) {
	a := newScripted(1)
	h, err := heap.New(heapBase, 1<<20)
	require.NoError(t, err)

	_, err = Purify(a, h.Contains, []uintptr{64}, PurifyOptions{MaxAttempts: 100})
	assert.ErrorIs(t, err, ErrDrain)
	assert.Len(t, a.Mallocs, 100)
}

func TestPurify_FreeFailure(t *testing.T) {
	failing := &failingFree{ScriptedAllocator: newScripted(1)}
	_, err := Purify(failing, func(uintptr) bool { return true }, []uintptr{8}, PurifyOptions{})
	assert.ErrorIs(t, err, ErrDrain)
}

type failingFree struct {
	*testutil.ScriptedAllocator
}

func (f *failingFree) Free(uintptr) error {
	return errors.New("free failed")
}

func TestOrder_String(t *testing.T) {
	assert.Equal(t, "descending", Descending.String())
	assert.Equal(t, "ascending", Ascending.String())
	assert.Equal(t, "Order(7)", Order(7).String())
}
