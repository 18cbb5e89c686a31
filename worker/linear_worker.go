package worker

import (
	"sync"
	"time"

	"github.com/huoshan017/gsession/log"
	"github.com/huoshan017/gsession/queue"
	"go.uber.org/atomic"
)

// Handler is what a LinearWorker drives. All three hooks run on the worker goroutine.
type Handler[T any] interface {
	// UpdateContext processes one drained batch
	UpdateContext(batch []T, now time.Time, delta time.Duration)
	// Update runs once per tick, returning false stops the worker
	Update(now time.Time, delta time.Duration) bool
	// UpdateEveryTick runs on every loop iteration
	UpdateEveryTick(now time.Time)
}

// LinearWorker owns one goroutine that drains a DoubleBufferQueue and ticks
// its handler. It polls instead of blocking and backs off briefly when a
// round had nothing to do.
type LinearWorker[T any] struct {
	handler    Handler[T]
	queue      *queue.DoubleBufferQueue[T]
	logger     log.Logger
	tick       time.Duration
	idle       time.Duration
	batch      []T
	lastUpdate time.Time
	lastStep   time.Time
	startMu    sync.Mutex
	running    atomic.Bool
	done       atomic.Pointer[chan struct{}] // set by Start, read by Wait from any goroutine
}

func NewLinearWorker[T any](handler Handler[T], queueCapacity int, logger log.Logger) *LinearWorker[T] {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &LinearWorker[T]{
		handler: handler,
		queue:   queue.NewDoubleBufferQueue[T](queueCapacity),
		logger:  logger,
		batch:   make([]T, 0, 64),
	}
}

// Submit is safe from any goroutine and never blocks
func (w *LinearWorker[T]) Submit(item T) bool {
	return w.queue.TryPush(item)
}

func (w *LinearWorker[T]) Queue() *queue.DoubleBufferQueue[T] {
	return w.queue
}

// Reset sets the reference time of the periodic update
func (w *LinearWorker[T]) Reset(now time.Time) {
	w.lastUpdate = now
	w.lastStep = now
}

// Step runs one loop iteration. busy reports whether a batch or a periodic
// update was processed, keepRunning is false once Update asked to stop.
func (w *LinearWorker[T]) Step(now time.Time) (busy bool, keepRunning bool) {
	w.batch = w.queue.Drain(w.batch[:0])
	if len(w.batch) > 0 {
		w.handler.UpdateContext(w.batch, now, now.Sub(w.lastStep))
		var zero T
		for i := range w.batch {
			w.batch[i] = zero
		}
		busy = true
	}
	w.lastStep = now
	if delta := now.Sub(w.lastUpdate); delta >= w.tick {
		w.lastUpdate = now
		busy = true
		if !w.handler.Update(now, delta) {
			return busy, false
		}
	}
	w.handler.UpdateEveryTick(now)
	return busy, true
}

func (w *LinearWorker[T]) Start(tick, idleBackoff time.Duration) bool {
	w.startMu.Lock()
	defer w.startMu.Unlock()
	if w.running.Load() {
		return false
	}
	if prev := w.done.Load(); prev != nil {
		// a stopped loop may still be finishing its last step
		<-*prev
	}
	w.tick = tick
	w.idle = idleBackoff
	w.Reset(time.Now())
	// done is published before running so a Running caller can Wait on it
	done := make(chan struct{})
	w.done.Store(&done)
	w.running.Store(true)
	go w.loop(done)
	return true
}

func (w *LinearWorker[T]) loop(done chan struct{}) {
	defer func() {
		w.running.Store(false)
		close(done)
		if err := recover(); err != nil {
			w.logger.WithStack(err)
		}
	}()
	for w.running.Load() {
		busy, keep := w.Step(time.Now())
		if !keep {
			w.logger.Infof("worker stopped by update")
			return
		}
		if !busy {
			time.Sleep(w.idle)
		}
	}
}

func (w *LinearWorker[T]) Running() bool {
	return w.running.Load()
}

func (w *LinearWorker[T]) Stop() {
	w.running.Store(false)
}

// Wait blocks until a started loop has exited
func (w *LinearWorker[T]) Wait() {
	if done := w.done.Load(); done != nil {
		<-*done
	}
}
