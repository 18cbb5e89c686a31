package engine

import (
	"github.com/eapache/queue"
	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
)

// LoopbackExecutor consumes what was sent to a LoopbackSession. buf holds
// whole frames and is recycled after the call.
type LoopbackExecutor interface {
	ProcessLoopbackData(buf *pool.SocketBuffer)
}

// LoopbackSession lets a worker post packets to itself through the same
// sending path as a socket session. Worker goroutine only.
type LoopbackSession struct {
	id      uint64
	buffers *pool.BufferPool
	pending *queue.Queue
}

func NewLoopbackSession(id uint64, poolSize, bufferCapacity int) *LoopbackSession {
	return &LoopbackSession{
		id:      id,
		buffers: pool.NewBufferPool(poolSize, bufferCapacity, false),
		pending: queue.New(),
	}
}

func (l *LoopbackSession) ID() uint64 {
	return l.id
}

// TryAllocateWriteBuffer never fails, overflow buffers are allocated past the pool
func (l *LoopbackSession) TryAllocateWriteBuffer() *pool.SocketBuffer {
	return l.buffers.Allocate(true)
}

func (l *LoopbackSession) TryAllocateReadBuffer() *pool.SocketBuffer {
	return l.buffers.Allocate(true)
}

func (l *LoopbackSession) ReleaseWriteBuffer(buf *pool.SocketBuffer) {
	l.buffers.Free(buf)
}

func (l *LoopbackSession) ReleaseReadBuffer(buf *pool.SocketBuffer) {
	l.buffers.Free(buf)
}

func (l *LoopbackSession) SendBuffer(buf *pool.SocketBuffer) {
	l.pending.Add(buf)
}

func (l *LoopbackSession) Send(p packet.Packet, code packet.ErrorCode) error {
	buf := l.buffers.Allocate(true)
	n, ok, err := packet.Serialize(buf.Data, p, code)
	if err != nil || !ok {
		l.buffers.Free(buf)
		if err == nil {
			err = ErrPacketSerialize
		}
		return err
	}
	buf.Length = n
	l.pending.Add(buf)
	return nil
}

// CloseSession does nothing, a loopback session lives as long as its worker
func (l *LoopbackSession) CloseSession() {}

func (l *LoopbackSession) Pending() int {
	return l.pending.Length()
}

// ProcessLoopbackPacket hands every queued buffer to executor in send order.
func (l *LoopbackSession) ProcessLoopbackPacket(executor LoopbackExecutor) {
	for n := l.pending.Length(); n > 0; n-- {
		buf := l.pending.Remove().(*pool.SocketBuffer)
		executor.ProcessLoopbackData(buf)
		l.buffers.Free(buf)
	}
}
