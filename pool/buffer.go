package pool

import (
	"go.uber.org/atomic"
)

// SocketBuffer is a fixed capacity byte buffer shared by reference count.
// A freshly popped buffer has no references. Every holder that outlives the
// caller must Retain it and later Release it; the last Release returns the
// buffer to the pool it came from.
type SocketBuffer struct {
	Block
	Data   []byte
	Length int
	refs   atomic.Int32
	owner  *ObjectPool[*SocketBuffer]
}

func (b *SocketBuffer) Capacity() int {
	return len(b.Data)
}

// Bytes returns the valid part of the buffer
func (b *SocketBuffer) Bytes() []byte {
	return b.Data[:b.Length]
}

// Free returns the writable tail
func (b *SocketBuffer) Free() []byte {
	return b.Data[b.Length:]
}

func (b *SocketBuffer) RefCount() int32 {
	return b.refs.Load()
}

func (b *SocketBuffer) Retain() int32 {
	return b.refs.Inc()
}

func (b *SocketBuffer) Release() int32 {
	n := b.refs.Dec()
	if n == 0 {
		b.owner.Push(b)
	} else if n < 0 {
		panic("gsession: socket buffer released more than retained")
	}
	return n
}

// Recycle returns a buffer nobody retained to its pool
func (b *SocketBuffer) Recycle() {
	b.owner.Push(b)
}

// BufferPool hands out SocketBuffers of one capacity. Pooled buffers are carved
// from one slab, overflow buffers are allocated on their own.
type BufferPool struct {
	*ObjectPool[*SocketBuffer]
	capacity int
}

func NewBufferPool(size, capacity int, concurrent bool) *BufferPool {
	if size < 1 {
		size = 1
	}
	bp := &BufferPool{capacity: capacity}
	slab := make([]byte, size*capacity)
	bp.ObjectPool = newObjectPool(size, concurrent, Hooks[*SocketBuffer]{
		New: func(seq uint64) *SocketBuffer {
			b := &SocketBuffer{owner: bp.ObjectPool}
			if seq < uint64(size) {
				off := int(seq) * capacity
				b.Data = slab[off : off+capacity : off+capacity]
			} else {
				b.Data = make([]byte, capacity)
			}
			return b
		},
		Initialize: func(b *SocketBuffer) {
			b.Length = 0
			b.refs.Store(0)
		},
		Destruct: func(b *SocketBuffer) {
			if n := b.refs.Load(); n != 0 {
				panic("gsession: socket buffer returned while still retained")
			}
			b.Length = 0
		},
	})
	bp.prefill()
	return bp
}

func (bp *BufferPool) Capacity() int {
	return bp.capacity
}

// Allocate pops a buffer, nil when the pool is empty and mustAllocate is false
func (bp *BufferPool) Allocate(mustAllocate bool) *SocketBuffer {
	b, ok := bp.Pop(mustAllocate)
	if !ok {
		return nil
	}
	return b
}

// Free returns a buffer nobody retained
func (bp *BufferPool) Free(b *SocketBuffer) {
	if b == nil {
		return
	}
	b.Recycle()
}
