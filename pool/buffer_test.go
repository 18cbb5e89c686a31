package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketBufferRefCount(t *testing.T) {
	bp := NewBufferPool(4, 128, true)
	before := bp.Len()

	buf := bp.Allocate(false)
	require.NotNil(t, buf)
	assert.Equal(t, 128, buf.Capacity())
	assert.Equal(t, before-1, bp.Len())

	const k = 5
	for i := 0; i < k; i++ {
		buf.Retain()
	}
	for i := 0; i < k-1; i++ {
		buf.Release()
		assert.Equal(t, before-1, bp.Len(), "still retained by %d holders", k-1-i)
	}
	assert.EqualValues(t, 0, buf.Release())
	assert.Equal(t, before, bp.Len())
}

func TestSocketBufferOverRelease(t *testing.T) {
	bp := NewBufferPool(1, 16, false)
	buf := bp.Allocate(false)
	buf.Retain()
	buf.Release()
	assert.Panics(t, func() { buf.Release() })
}

func TestBufferPoolExhausted(t *testing.T) {
	bp := NewBufferPool(2, 16, false)
	a := bp.Allocate(false)
	b := bp.Allocate(false)
	assert.Nil(t, bp.Allocate(false))

	c := bp.Allocate(true)
	require.NotNil(t, c)
	assert.True(t, c.IsOverflow())
	assert.Equal(t, 16, c.Capacity())

	copy(c.Free(), "abc")
	c.Length = 3
	assert.Equal(t, []byte("abc"), c.Bytes())

	bp.Free(c)
	bp.Free(a)
	b.Retain()
	b.Release()
	assert.Equal(t, 2, bp.Len())
}

func TestBufferPoolFreeRetained(t *testing.T) {
	bp := NewBufferPool(1, 16, false)
	a := bp.Allocate(false)
	a.Retain()
	assert.Panics(t, func() { bp.Free(a) })
}
