package engine

import (
	"time"

	"github.com/huoshan017/gsession/options"
	"github.com/huoshan017/gsession/session"
	"github.com/huoshan017/gsession/worker"
)

// Handler is the application side of a Worker. Every callback runs on the
// worker goroutine; ctx and its payload are only valid during the call.
type Handler interface {
	OnSessionAccepted(ctx *SocketContext)
	OnSessionConnected(ctx *SocketContext)
	OnSessionAbandoned(ctx *SocketContext)
	OnSessionAlived(ctx *SocketContext)
	OnSessionClosed(ctx *SocketContext)
	OnSessionData(ctx *SocketContext)
	// Update runs every worker update tick, returning false stops the worker
	Update(now time.Time, delta time.Duration) bool
	UpdateEveryTick(now time.Time)
}

// BaseHandler implements Handler with no-ops, embed it and override what is needed.
type BaseHandler struct{}

func (BaseHandler) OnSessionAccepted(*SocketContext)     {}
func (BaseHandler) OnSessionConnected(*SocketContext)    {}
func (BaseHandler) OnSessionAbandoned(*SocketContext)    {}
func (BaseHandler) OnSessionAlived(*SocketContext)       {}
func (BaseHandler) OnSessionClosed(*SocketContext)       {}
func (BaseHandler) OnSessionData(*SocketContext)         {}
func (BaseHandler) Update(time.Time, time.Duration) bool { return true }
func (BaseHandler) UpdateEveryTick(time.Time)            {}

// Worker is the application goroutine of one engine. It drains the engine's
// delivery queue and dispatches every context to the handler in order.
type Worker struct {
	handler Handler
	engine  *NetworkEngine
	linear  *worker.LinearWorker[*SocketContext]
}

func NewWorker(handler Handler) *Worker {
	return &Worker{handler: handler}
}

func (w *Worker) bind(e *NetworkEngine, o *options.EngineOptions) error {
	if w.engine != nil {
		return ErrWorkerAlreadyBound
	}
	w.engine = e
	w.linear = worker.NewLinearWorker[*SocketContext](w, o.GetQueueCapacity(), o.GetLogger())
	return nil
}

func (w *Worker) Engine() *NetworkEngine {
	return w.engine
}

func (w *Worker) submit(ctx *SocketContext) bool {
	return w.linear.Submit(ctx)
}

func (w *Worker) start(tick, idleBackoff time.Duration) {
	w.linear.Start(tick, idleBackoff)
}

func (w *Worker) stop() {
	w.linear.Stop()
	w.linear.Wait()
}

// Wait blocks until a started worker stops, either by Shutdown or because
// the handler's Update returned false.
func (w *Worker) Wait() {
	w.linear.Wait()
}

func (w *Worker) Running() bool {
	return w.linear.Running()
}

// Step runs one iteration of the worker loop on the calling goroutine, for
// engines driven without Start.
func (w *Worker) Step(now time.Time) (busy bool, keepRunning bool) {
	return w.linear.Step(now)
}

func (w *Worker) UpdateContext(batch []*SocketContext, now time.Time, delta time.Duration) {
	for _, head := range batch {
		for ctx := head; ctx != nil; {
			next := ctx.next
			w.dispatch(ctx)
			ctx.Release()
			ctx = next
		}
	}
}

func (w *Worker) dispatch(ctx *SocketContext) {
	switch ctx.Type {
	case SessionAccepted:
		ctx.Session.ResetUserData()
		w.handler.OnSessionAccepted(ctx)
	case SessionConnected:
		ctx.Session.ResetUserData()
		w.handler.OnSessionConnected(ctx)
	case SessionAlived:
		ctx.Session.ResetUserData()
		w.handler.OnSessionAlived(ctx)
	case SessionAbandoned:
		w.handler.OnSessionAbandoned(ctx)
		ctx.Session.MustChangeState(session.Abandoned, session.Wait)
	case SessionClosed:
		w.handler.OnSessionClosed(ctx)
	case SessionData:
		w.handler.OnSessionData(ctx)
	}
}

func (w *Worker) Update(now time.Time, delta time.Duration) bool {
	return w.handler.Update(now, delta)
}

func (w *Worker) UpdateEveryTick(now time.Time) {
	w.handler.UpdateEveryTick(now)
}
