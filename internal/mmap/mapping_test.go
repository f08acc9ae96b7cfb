package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon_ReadWriteClose(t *testing.T) {
	size := 4 * PageSize()

	m, err := MapAnon(size)
	require.NoError(t, err)

	assert.Equal(t, size, m.Size())
	assert.NotZero(t, m.Addr())
	assert.Zero(t, m.Addr()%uintptr(PageSize()), "anonymous mappings are page aligned")

	data := m.Bytes()
	require.Len(t, data, size)
	for _, b := range data {
		require.Zero(t, b)
	}

	data[0], data[size-1] = 0xAA, 0xBB
	assert.Equal(t, byte(0xAA), m.Bytes()[0])

	assert.True(t, m.Contains(m.Addr()))
	assert.True(t, m.Contains(m.Addr()+uintptr(size-1)))
	assert.False(t, m.Contains(m.Addr()+uintptr(size)))
	assert.False(t, m.Contains(m.Addr()-1))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close is idempotent")

	assert.Nil(t, m.Bytes())
	assert.Zero(t, m.Addr())
	assert.ErrorIs(t, m.Advise(AccessDefault), ErrClosed)
}

func TestMapAnon_InvalidSize(t *testing.T) {
	_, err := MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = MapAnon(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMapping_RegionAdvise(t *testing.T) {
	page := PageSize()
	m, err := MapAnon(4 * page)
	require.NoError(t, err)
	defer m.Close()

	r, err := m.Region(page, 2*page)
	require.NoError(t, err)
	require.Len(t, r.Bytes(), 2*page)

	r.Bytes()[0] = 7
	assert.Equal(t, byte(7), m.Bytes()[page])

	require.NoError(t, r.Advise(AccessDontNeed))

	_, err = m.Region(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Region(3*page, 2*page)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, m.Close())
	assert.Nil(t, r.Bytes())
	assert.ErrorIs(t, r.Advise(AccessDefault), ErrClosed)
	_, err = m.Region(0, page)
	assert.ErrorIs(t, err, ErrClosed)
}
