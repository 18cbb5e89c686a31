package queue

import (
	"runtime"

	gods "github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"
)

type side struct {
	ring    *gods.RingBuffer
	count   atomic.Int64
	writers atomic.Int64
}

// DoubleBufferQueue is a bounded multi producer, single consumer queue made
// of two rings. Producers push into the submission side; the consumer swaps
// the sides once per cycle and drains the old submission side.
type DoubleBufferQueue[T any] struct {
	capacity   int64
	submission atomic.Pointer[side]
	fetch      *side
}

func NewDoubleBufferQueue[T any](capacity int) *DoubleBufferQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &DoubleBufferQueue[T]{capacity: int64(capacity)}
	q.submission.Store(&side{ring: gods.NewRingBuffer(uint64(capacity))})
	q.fetch = &side{ring: gods.NewRingBuffer(uint64(capacity))}
	return q
}

func (q *DoubleBufferQueue[T]) Capacity() int {
	return int(q.capacity)
}

// TryPush never blocks. It fails when the submission side already holds capacity items.
func (q *DoubleBufferQueue[T]) TryPush(item T) bool {
	for {
		s := q.submission.Load()
		s.writers.Inc()
		if q.submission.Load() != s {
			// swapped under us, go to the new side
			s.writers.Dec()
			continue
		}
		if s.count.Inc() > q.capacity {
			s.count.Dec()
			s.writers.Dec()
			return false
		}
		ok, err := s.ring.Offer(item)
		if !ok || err != nil {
			s.count.Dec()
		}
		s.writers.Dec()
		return ok && err == nil
	}
}

// Swap exchanges the two sides and waits for pushes still landing on the
// side that becomes the fetch side. Consumer only.
func (q *DoubleBufferQueue[T]) Swap() {
	old := q.submission.Swap(q.fetch)
	q.fetch = old
	for old.writers.Load() != 0 {
		runtime.Gosched()
	}
}

// TryPop pops from the fetch side. Consumer only.
func (q *DoubleBufferQueue[T]) TryPop() (T, bool) {
	var zero T
	if q.fetch.ring.Len() == 0 {
		return zero, false
	}
	item, err := q.fetch.ring.Get()
	if err != nil {
		return zero, false
	}
	q.fetch.count.Dec()
	return item.(T), true
}

// Drain swaps the sides and appends everything on the fetch side to dst.
func (q *DoubleBufferQueue[T]) Drain(dst []T) []T {
	q.Swap()
	for {
		item, ok := q.TryPop()
		if !ok {
			return dst
		}
		dst = append(dst, item)
	}
}

// Len is an estimate of queued items on both sides
func (q *DoubleBufferQueue[T]) Len() int {
	return int(q.submission.Load().count.Load() + q.fetch.count.Load())
}

func (q *DoubleBufferQueue[T]) Dispose() {
	q.submission.Load().ring.Dispose()
	q.fetch.ring.Dispose()
}
