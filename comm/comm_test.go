package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoHeap(t *testing.T) {
	base, size, err := NoHeap{}.DesiredSharedHeap()
	require.NoError(t, err)
	assert.Zero(t, base)
	assert.Zero(t, size)
}

func TestStatic(t *testing.T) {
	base, size, err := Static{Base: 0x1000, Size: 0x2000}.DesiredSharedHeap()
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x1000), base)
	assert.Equal(t, uintptr(0x2000), size)
}

func TestSegment(t *testing.T) {
	seg, err := NewSegment(1 << 20)
	require.NoError(t, err)

	base, size, err := seg.DesiredSharedHeap()
	require.NoError(t, err)
	assert.NotZero(t, base)
	assert.Equal(t, uintptr(1<<20), size)

	b := seg.Bytes()
	require.Len(t, b, 1<<20)
	b[0], b[len(b)-1] = 1, 2
	assert.Contains(t, seg.String(), "1.0 MiB")

	require.NoError(t, seg.Close())
	require.NoError(t, seg.Close())

	_, _, err = seg.DesiredSharedHeap()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, seg.Bytes())
	assert.Equal(t, "Segment(closed)", seg.String())
}

func TestNewSegment_InvalidSize(t *testing.T) {
	_, err := NewSegment(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		size    uintptr
		noHeap  bool
		wantErr error
	}{
		{name: "unset", value: "", noHeap: true},
		{name: "mebibytes", value: "2MiB", size: 2 << 20},
		{name: "plain bytes", value: "65536", size: 65536},
		{name: "garbage", value: "lots", wantErr: ErrInvalidSize},
		{name: "zero", value: "0B", wantErr: ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvSharedHeapSize, tt.value)

			p, closeFn, err := FromEnv()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer func() { require.NoError(t, closeFn()) }()

			if tt.noHeap {
				assert.Equal(t, NoHeap{}, p)
				return
			}
			base, size, err := p.DesiredSharedHeap()
			require.NoError(t, err)
			assert.NotZero(t, base)
			assert.Equal(t, tt.size, size)
		})
	}
}
