package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	Block
	value       int
	initialized int
	destructed  int
}

func newTestPool(size int, concurrent bool) *ObjectPool[*testObject] {
	return NewObjectPool(size, concurrent, Hooks[*testObject]{
		New: func(seq uint64) *testObject {
			return &testObject{value: int(seq)}
		},
		Initialize: func(o *testObject) { o.initialized++ },
		Destruct:   func(o *testObject) { o.destructed++ },
	})
}

func TestObjectPoolPopPush(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		p := newTestPool(4, concurrent)
		require.Equal(t, 4, p.Len())

		var objs []*testObject
		for i := 0; i < 4; i++ {
			o, ok := p.Pop(false)
			require.True(t, ok)
			assert.False(t, o.IsOverflow())
			assert.Equal(t, 1, o.initialized)
			objs = append(objs, o)
		}
		_, ok := p.Pop(false)
		assert.False(t, ok, "empty pool without mustAllocate")

		for _, o := range objs {
			p.Push(o)
			assert.Equal(t, 1, o.destructed)
		}
		assert.Equal(t, 4, p.Len())
	}
}

func TestObjectPoolOverflow(t *testing.T) {
	p := newTestPool(1, false)
	first, _ := p.Pop(false)

	extra, ok := p.Pop(true)
	require.True(t, ok)
	assert.True(t, extra.IsOverflow())
	assert.Equal(t, uint64(1), extra.Sequence())
	assert.EqualValues(t, 1, p.Overflows())

	p.Push(extra)
	assert.Equal(t, 1, extra.destructed)
	assert.Equal(t, 0, p.Len(), "overflow objects are dropped")
	assert.EqualValues(t, 0, p.Overflows())

	p.Push(first)
	assert.Equal(t, 1, p.Len())
}

func TestObjectPoolDoublePush(t *testing.T) {
	p := newTestPool(2, true)
	o, _ := p.Pop(false)
	p.Push(o)
	assert.Panics(t, func() { p.Push(o) })
}

func TestObjectPoolConcurrent(t *testing.T) {
	p := newTestPool(64, true)
	var wg sync.WaitGroup
	for n := 0; n < 16; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10000; i++ {
				o, ok := p.Pop(true)
				if !ok {
					t.Errorf("pop with mustAllocate failed")
					return
				}
				o.value++
				p.Push(o)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 64, p.Len())
	assert.EqualValues(t, 0, p.Overflows())
}

func BenchmarkObjectPoolConcurrent(b *testing.B) {
	p := newTestPool(1024, true)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			o, _ := p.Pop(true)
			p.Push(o)
		}
	})
}
