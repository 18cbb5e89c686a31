package tcp

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/huoshan017/gsession/pool"
)

type writeRequest struct {
	buf        *pool.SocketBuffer
	attachment uint64
}

// sendList is the unbounded write queue of one stream, drained by its writer goroutine
type sendList struct {
	cond    *sync.Cond
	list    *queue.Queue
	closed  bool
	aborted bool
}

func newSendList() *sendList {
	return &sendList{cond: sync.NewCond(&sync.Mutex{}), list: queue.New()}
}

func (l *sendList) pushBack(req writeRequest) bool {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()
	if l.closed {
		return false
	}
	l.list.Add(req)
	l.cond.Signal()
	return true
}

// popFront blocks for the next request. After close the queued requests are
// still handed out, after abort nothing is.
func (l *sendList) popFront() (writeRequest, bool) {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()
	for l.list.Length() == 0 && !l.closed {
		l.cond.Wait()
	}
	if l.aborted || l.list.Length() == 0 {
		return writeRequest{}, false
	}
	return l.list.Remove().(writeRequest), true
}

func (l *sendList) close() {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()
	l.closed = true
	l.cond.Broadcast()
}

// abort closes the list and returns what was never written
func (l *sendList) abort() []writeRequest {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()
	l.closed = true
	l.aborted = true
	rest := make([]writeRequest, 0, l.list.Length())
	for l.list.Length() > 0 {
		rest = append(rest, l.list.Remove().(writeRequest))
	}
	l.cond.Broadcast()
	return rest
}

func (l *sendList) length() int {
	l.cond.L.Lock()
	defer l.cond.L.Unlock()
	return l.list.Length()
}
