package pool

import (
	"time"

	gods "github.com/Workiva/go-datastructures/queue"
	"github.com/eapache/queue"
	"go.uber.org/atomic"
)

// Block carries the bookkeeping every pooled object needs. Embed it by value.
type Block struct {
	inUse    atomic.Bool
	overflow bool
	seq      uint64
}

func (b *Block) poolBlock() *Block { return b }

// IsOverflow reports whether the object was heap allocated because its pool was empty
func (b *Block) IsOverflow() bool { return b.overflow }

// Sequence is the allocation sequence assigned when the object was created
func (b *Block) Sequence() uint64 { return b.seq }

type Pooled interface {
	poolBlock() *Block
}

// Hooks are the call site supplied constructors of pooled objects.
// Initialize runs on every Pop, Destruct on every Push.
type Hooks[T Pooled] struct {
	New        func(seq uint64) T
	Initialize func(T)
	Destruct   func(T)
}

type ObjectPool[T Pooled] struct {
	hooks      Hooks[T]
	size       int
	concurrent bool
	seq        atomic.Uint64
	overflows  atomic.Int64
	local      *queue.Queue
	shared     *gods.RingBuffer
}

func NewObjectPool[T Pooled](size int, concurrent bool, hooks Hooks[T]) *ObjectPool[T] {
	p := newObjectPool(size, concurrent, hooks)
	p.prefill()
	return p
}

func newObjectPool[T Pooled](size int, concurrent bool, hooks Hooks[T]) *ObjectPool[T] {
	if size < 1 {
		size = 1
	}
	if hooks.New == nil {
		panic("gsession: object pool needs a New hook")
	}
	p := &ObjectPool[T]{
		hooks:      hooks,
		size:       size,
		concurrent: concurrent,
	}
	if concurrent {
		p.shared = gods.NewRingBuffer(uint64(size))
	} else {
		p.local = queue.New()
	}
	return p
}

func (p *ObjectPool[T]) prefill() {
	for i := 0; i < p.size; i++ {
		p.store(p.create())
	}
}

func (p *ObjectPool[T]) create() T {
	seq := p.seq.Inc() - 1
	obj := p.hooks.New(seq)
	obj.poolBlock().seq = seq
	return obj
}

func (p *ObjectPool[T]) store(obj T) bool {
	if p.concurrent {
		ok, err := p.shared.Offer(obj)
		return ok && err == nil
	}
	p.local.Add(obj)
	return true
}

func (p *ObjectPool[T]) take() (T, bool) {
	var zero T
	if !p.concurrent {
		if p.local.Length() == 0 {
			return zero, false
		}
		return p.local.Remove().(T), true
	}
	// Len counts slots reserved by producers that may not be published yet
	for p.shared.Len() > 0 {
		item, err := p.shared.Poll(time.Nanosecond)
		if err == nil {
			return item.(T), true
		}
		if err == gods.ErrDisposed {
			break
		}
	}
	return zero, false
}

// Pop returns a pooled object, or a fresh overflow object when the pool is
// empty and mustAllocate is set. ok is false only when nothing could be handed out.
func (p *ObjectPool[T]) Pop(mustAllocate bool) (obj T, ok bool) {
	obj, ok = p.take()
	if !ok {
		if !mustAllocate {
			return obj, false
		}
		obj = p.create()
		obj.poolBlock().overflow = true
		p.overflows.Inc()
	}
	if !obj.poolBlock().inUse.CompareAndSwap(false, true) {
		panic("gsession: object popped twice from pool")
	}
	if p.hooks.Initialize != nil {
		p.hooks.Initialize(obj)
	}
	return obj, true
}

// Push hands an object back. Overflow objects are destructed and dropped.
func (p *ObjectPool[T]) Push(obj T) {
	b := obj.poolBlock()
	if !b.inUse.CompareAndSwap(true, false) {
		panic("gsession: object pushed to pool twice")
	}
	if p.hooks.Destruct != nil {
		p.hooks.Destruct(obj)
	}
	if b.overflow {
		p.overflows.Dec()
		return
	}
	if !p.store(obj) {
		panic("gsession: object pool free list is full")
	}
}

// Len is the number of pooled objects ready to pop
func (p *ObjectPool[T]) Len() int {
	if p.concurrent {
		return int(p.shared.Len())
	}
	return p.local.Length()
}

func (p *ObjectPool[T]) Size() int {
	return p.size
}

// Overflows is the number of overflow objects currently handed out
func (p *ObjectPool[T]) Overflows() int64 {
	return p.overflows.Load()
}

func (p *ObjectPool[T]) Dispose() {
	if p.concurrent {
		p.shared.Dispose()
	}
}
