package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint(t *testing.T) {
	got, err := IntToUint(42)
	require.NoError(t, err)
	assert.Equal(t, uint(42), got)

	_, err = IntToUint(-1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestUintToUint32(t *testing.T) {
	got, err := UintToUint32(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got)

	got, err = UintToUint32(math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), got)
}

func TestUintptrToInt(t *testing.T) {
	got, err := UintptrToInt(123)
	require.NoError(t, err)
	assert.Equal(t, 123, got)

	_, err = UintptrToInt(^uintptr(0))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestUint64ToUintptr(t *testing.T) {
	got, err := Uint64ToUintptr(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, uintptr(1<<20), got)
}

func TestAddUintptr(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := AddUintptr(100, 28)
		require.NoError(t, err)
		assert.Equal(t, uintptr(128), got)
	})

	t.Run("max", func(t *testing.T) {
		got, err := AddUintptr(^uintptr(0)-1, 1)
		require.NoError(t, err)
		assert.Equal(t, ^uintptr(0), got)
	})

	t.Run("overflow", func(t *testing.T) {
		_, err := AddUintptr(^uintptr(0), 1)
		assert.ErrorIs(t, err, ErrOverflow)
	})
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, v := range []uintptr{1, 2, 4, 16, 4096, 1 << 40} {
		assert.True(t, IsPowerOfTwo(v), "%d", v)
	}
	for _, v := range []uintptr{0, 3, 6, 12, 4095, math.MaxUint32} {
		assert.False(t, IsPowerOfTwo(v), "%d", v)
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		v, align, want uintptr
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{4097, 4096, 8192},
		{7, 1, 7},
	}
	for _, tt := range tests {
		got, err := AlignUp(tt.v, tt.align)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "AlignUp(%d, %d)", tt.v, tt.align)
	}

	_, err := AlignUp(10, 3)
	assert.Error(t, err)

	_, err = AlignUp(10, 0)
	assert.Error(t, err)

	_, err = AlignUp(^uintptr(0)-2, 16)
	assert.ErrorIs(t, err, ErrOverflow)
}
