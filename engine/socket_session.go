package engine

import (
	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
	"github.com/huoshan017/gsession/session"
	"github.com/huoshan017/gsession/stream"
	"go.uber.org/atomic"
)

type streamRef struct {
	s stream.TransferStream
}

// SocketSession is a pooled session bound to at most one stream at a time.
type SocketSession struct {
	pool.Block
	*session.Session
	engine *NetworkEngine
	stream atomic.Pointer[streamRef]
}

func newSocketSession(e *NetworkEngine) *SocketSession {
	return &SocketSession{Session: session.New(), engine: e}
}

func (s *SocketSession) Engine() *NetworkEngine {
	return s.engine
}

func (s *SocketSession) Stream() stream.TransferStream {
	if ref := s.stream.Load(); ref != nil {
		return ref.s
	}
	return nil
}

func (s *SocketSession) ResetStream(st stream.TransferStream) {
	if st == nil {
		s.stream.Store(nil)
		return
	}
	s.stream.Store(&streamRef{s: st})
}

// Release hands the session back to the engine pool with the last reference.
func (s *SocketSession) Release() int32 {
	n := s.Session.Release()
	if n == 0 {
		s.engine.recycleSession(s)
	}
	return n
}

// Send serializes p into a fresh write buffer. Without mustSend a failed
// allocation closes the session.
func (s *SocketSession) Send(p packet.Packet, code packet.ErrorCode, mustSend bool) bool {
	st := s.Stream()
	if st == nil {
		return false
	}
	if !s.engine.sendPacket(st, p, code, mustSend) {
		if !mustSend {
			s.CloseSession()
		}
		return false
	}
	return true
}

// SendBuffer transmits an already serialized write buffer
func (s *SocketSession) SendBuffer(buf *pool.SocketBuffer) {
	st := s.Stream()
	if st == nil {
		buf.Recycle()
		return
	}
	st.TransmitWrite(buf, st.ID())
}

// CloseSession tells the peer and disconnects gracefully, the session will
// not be kept for reconnection.
func (s *SocketSession) CloseSession() {
	st := s.Stream()
	if st == nil {
		return
	}
	s.engine.sendPacket(st, &packet.SessionCloseRq{}, packet.ErrorNone, true)
	st.TransmitDisconnect(stream.GracefulShutdown)
}

func (s *SocketSession) TryAllocateReadBuffer() *pool.SocketBuffer {
	st := s.Stream()
	if st == nil {
		return nil
	}
	buf := st.AllocateReadBuffer(false)
	if buf == nil {
		s.overflow(st)
	}
	return buf
}

func (s *SocketSession) TryAllocateWriteBuffer() *pool.SocketBuffer {
	st := s.Stream()
	if st == nil {
		return nil
	}
	buf := st.AllocateWriteBuffer(false)
	if buf == nil {
		s.overflow(st)
	}
	return buf
}

func (s *SocketSession) ReleaseWriteBuffer(buf *pool.SocketBuffer) {
	if st := s.Stream(); st != nil {
		st.ReleaseWriteBuffer(buf)
		return
	}
	buf.Recycle()
}

func (s *SocketSession) overflow(st stream.TransferStream) {
	s.engine.logger.Warnf("session %d out of buffers, closing", s.ID())
	s.engine.sendPacket(st, &packet.BandwidthOverflowPs{}, packet.ErrorNone, true)
	s.CloseSession()
}
