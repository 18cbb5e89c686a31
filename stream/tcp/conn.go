package tcp

import (
	"net"
	"sync"
	"time"

	"github.com/huoshan017/gsession/pool"
	"github.com/huoshan017/gsession/stream"
	"go.uber.org/atomic"
)

const gracefulWriteTimeout = time.Second

type readRequest struct {
	buf        *pool.SocketBuffer
	attachment uint64
}

// conn is a TransferStream over a net.Conn. A reader and a writer goroutine
// do the blocking io; everything they observe goes to the shard as events.
type conn struct {
	id       uint64
	server   *Server
	shard    *shard
	c        net.Conn
	addr     stream.Address
	userData any // shard goroutine only

	// each stream owns its pools, so exhausting them only closes this stream
	readPool  *pool.BufferPool
	writePool *pool.BufferPool

	reads      chan readRequest
	sends      *sendList
	closeOnce  sync.Once
	done       chan struct{}
	writerDone chan struct{}
	attachment atomic.Uint64
}

func newConn(server *Server, sh *shard, c net.Conn) *conn {
	o := server.options
	return &conn{
		id:         server.connSeq.Inc(),
		server:     server,
		shard:      sh,
		c:          c,
		addr:       stream.AddressOf(c.RemoteAddr()),
		readPool:   pool.NewBufferPool(o.GetReadBufferPoolSize(), o.GetReadBufferCapacity(), true),
		writePool:  pool.NewBufferPool(o.GetWriteBufferPoolSize(), o.GetWriteBufferCapacity(), true),
		reads:      make(chan readRequest, 1),
		sends:      newSendList(),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (c *conn) ID() uint64              { return c.id }
func (c *conn) WorkerIndex() int        { return c.shard.index }
func (c *conn) Address() stream.Address { return c.addr }
func (c *conn) UserData() any           { return c.userData }
func (c *conn) SetUserData(data any)    { c.userData = data }

func (c *conn) AllocateReadBuffer(mustAllocate bool) *pool.SocketBuffer {
	return c.readPool.Allocate(mustAllocate)
}

func (c *conn) ReleaseReadBuffer(buf *pool.SocketBuffer) {
	c.readPool.Free(buf)
}

func (c *conn) AllocateWriteBuffer(mustAllocate bool) *pool.SocketBuffer {
	return c.writePool.Allocate(mustAllocate)
}

func (c *conn) ReleaseWriteBuffer(buf *pool.SocketBuffer) {
	c.writePool.Free(buf)
}

func (c *conn) TransmitRead(buf *pool.SocketBuffer, attachment uint64) {
	select {
	case c.reads <- readRequest{buf, attachment}:
	default:
		c.server.logger.Errorf("stream %d: read already in flight", c.id)
		c.ReleaseReadBuffer(buf)
	}
}

func (c *conn) TransmitWrite(buf *pool.SocketBuffer, attachment uint64) {
	if !c.sends.pushBack(writeRequest{buf, attachment}) {
		c.ReleaseWriteBuffer(buf)
	}
}

// TransmitDisconnect lets queued writes out first when the disconnect is graceful
func (c *conn) TransmitDisconnect(attachment uint64) {
	c.closeOnce.Do(func() {
		c.attachment.Store(attachment)
		close(c.done)
		if attachment&stream.GracefulShutdown != 0 {
			_ = c.c.SetWriteDeadline(time.Now().Add(gracefulWriteTimeout))
			c.sends.close()
			return
		}
		c.abort()
	})
}

func (c *conn) abort() {
	for _, req := range c.sends.abort() {
		c.ReleaseWriteBuffer(req.buf)
	}
	_ = c.c.Close()
}

func (c *conn) start() {
	c.server.group.Go(func() error {
		c.writeLoop()
		return nil
	})
	c.server.group.Go(func() error {
		c.readLoop()
		return nil
	})
}

func (c *conn) readLoop() {
	defer func() {
		if err := recover(); err != nil {
			c.server.logger.WithStack(err)
		}
	}()
	for {
		var req readRequest
		select {
		case req = <-c.reads:
		case <-c.done:
			c.finish()
			return
		case <-c.server.ctx.Done():
			c.TransmitDisconnect(0)
			c.finish()
			return
		}
		free := req.buf.Free()
		if len(free) == 0 {
			c.server.logger.Errorf("stream %d: read buffer full", c.id)
			c.ReleaseReadBuffer(req.buf)
			c.TransmitDisconnect(0)
			c.finish()
			return
		}
		n, err := c.c.Read(free)
		if n > 0 {
			req.buf.Length += n
			c.shard.post(event{kind: eventRead, conn: c, buf: req.buf, attachment: req.attachment})
		} else {
			c.ReleaseReadBuffer(req.buf)
		}
		if err != nil || n == 0 {
			c.TransmitDisconnect(0)
			c.finish()
			return
		}
	}
}

// finish waits for the writer and reports the disconnect, always the last event of the stream
func (c *conn) finish() {
	<-c.writerDone
	c.shard.post(event{kind: eventDisconnect, conn: c, attachment: c.attachment.Load()})
	c.server.removeConn(c)
}

func (c *conn) writeLoop() {
	defer func() {
		if err := recover(); err != nil {
			c.server.logger.WithStack(err)
		}
		_ = c.c.Close()
		close(c.writerDone)
	}()
	for {
		req, ok := c.sends.popFront()
		if !ok {
			return
		}
		_, err := c.c.Write(req.buf.Bytes())
		c.shard.post(event{kind: eventWrite, conn: c, buf: req.buf, attachment: req.attachment})
		if err != nil {
			c.server.logger.Debugf("stream %d: write: %v", c.id, err)
			c.TransmitDisconnect(0)
			c.abort()
			return
		}
	}
}

// drainReads is called by the shard before the disconnect is handled
func (c *conn) drainReads() {
	select {
	case req := <-c.reads:
		c.ReleaseReadBuffer(req.buf)
	default:
	}
}
