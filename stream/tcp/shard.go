package tcp

import (
	"context"

	"github.com/huoshan017/gsession/pool"
	"github.com/huoshan017/gsession/stream"
)

type eventKind uint8

const (
	eventAccept eventKind = iota
	eventConnect
	eventConnectFailed
	eventRead
	eventWrite
	eventDisconnect
	eventTick
)

type event struct {
	kind       eventKind
	conn       *conn
	buf        *pool.SocketBuffer
	attachment uint64
}

// shard is one io worker. Every event of the streams pinned to it is handled
// on its goroutine, in posting order.
type shard struct {
	index  int
	server *Server
	events chan event
	ctx    context.Context
}

func newShard(index int, server *Server, chanLen int) *shard {
	return &shard{index: index, server: server, events: make(chan event, chanLen)}
}

// post blocks while the shard is busy, it gives up once the server stops
func (sh *shard) post(ev event) bool {
	select {
	case sh.events <- ev:
		return true
	case <-sh.ctx.Done():
		sh.discard(ev)
		return false
	}
}

func (sh *shard) discard(ev event) {
	if ev.buf == nil {
		return
	}
	switch ev.kind {
	case eventRead:
		ev.conn.ReleaseReadBuffer(ev.buf)
	case eventWrite:
		ev.conn.ReleaseWriteBuffer(ev.buf)
	}
}

func (sh *shard) run() error {
	defer func() {
		if err := recover(); err != nil {
			sh.server.logger.WithStack(err)
		}
	}()
	for {
		select {
		case ev := <-sh.events:
			sh.handle(ev)
		case <-sh.ctx.Done():
			for {
				select {
				case ev := <-sh.events:
					sh.discard(ev)
				default:
					return nil
				}
			}
		}
	}
}

func (sh *shard) handle(ev event) {
	h := sh.server.handler
	switch ev.kind {
	case eventAccept:
		h.OnAccept(ev.conn)
	case eventConnect:
		h.OnConnect(ev.conn, ev.attachment)
	case eventConnectFailed:
		h.OnConnect(nil, ev.attachment)
	case eventRead:
		h.OnRead(ev.conn, ev.buf, ev.attachment)
	case eventWrite:
		h.OnWrite(ev.conn, ev.buf, ev.attachment)
	case eventDisconnect:
		ev.conn.drainReads()
		h.OnDisconnect(ev.conn, ev.attachment)
	case eventTick:
		h.OnTick(sh.index)
	}
}

var _ stream.TransferStream = (*conn)(nil)
