package engine

import (
	"time"

	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
	"github.com/huoshan017/gsession/stream"
)

// OnRead cuts buf into frames. Business packets become a chain of contexts
// sharing the buffer, heartbeats are answered right here.
func (e *NetworkEngine) OnRead(s stream.TransferStream, buf *pool.SocketBuffer, attachment uint64) {
	ext := extensionOf(s)
	if ext == nil {
		s.ReleaseReadBuffer(buf)
		return
	}
	info := e.infos[s.WorkerIndex()]
	var chain contextChain
	offset := 0
	for {
		total, ok := packet.FrameLength(buf.Data[offset:buf.Length])
		if !ok {
			break
		}
		if total < packet.HeaderSize || int(total) > buf.Capacity()-packet.LengthSize {
			e.malformed(s, ext, &chain, buf, packet.ErrBodySizeMismatch)
			return
		}
		end := offset + packet.LengthSize + int(total)
		if end > buf.Length {
			break
		}
		var h packet.Header
		if err := h.UnformatFrom(buf.Data[offset+packet.LengthSize : end]); err != nil {
			e.malformed(s, ext, &chain, buf, err)
			return
		}
		if h.BodySize != total-packet.HeaderSize {
			e.malformed(s, ext, &chain, buf, packet.ErrBodySizeMismatch)
			return
		}
		body := buf.Data[offset+packet.FrameSize : end]

		sess := ext.session
		if sess == nil {
			if !e.processSessionPacket(s, ext, info, &chain, buf, h, body) {
				e.logger.Debugf("stream %d: skipped %v (%d bytes)", s.ID(), h.Type, h.BodySize)
			}
			offset = end
			continue
		}

		switch h.Type {
		case packet.PacketHeartbeatRq:
			sess.UpdateHeartbeatReceivingTime(e.now())
			var rq packet.HeartbeatRq
			if rq.Unmarshal(body) == nil {
				sess.SetPing(time.Duration(rq.Ping) * time.Millisecond)
			}
			if !sess.Send(&packet.HeartbeatRs{}, packet.ErrorNone, false) {
				e.finish(s, ext, &chain, buf)
				return
			}
		case packet.PacketHeartbeatRs:
			sess.UpdateHeartbeatReceivingTime(e.now())
		case packet.PacketSessionCreateRq, packet.PacketSessionCreateRs,
			packet.PacketSessionAuthRq, packet.PacketSessionAuthRs, packet.PacketSessionCloseRq:
			if h.Type != packet.PacketSessionCloseRq {
				e.logger.Warnf("session %d: unexpected %v, closing", sess.ID(), h.Type)
			}
			e.finish(s, ext, &chain, buf)
			sess.CloseSession()
			return
		case packet.PacketBandwidthOverflowPs, packet.PacketServerIsBusyPs:
			e.logger.Warnf("session %d: peer sent %v", sess.ID(), h.Type)
		default:
			ctx := e.prepareContext(&chain, buf, SessionData, h, body, sess, 0)
			if ctx == nil {
				// buffer carries all the contexts it may, move the rest to a new one
				next := sess.TryAllocateReadBuffer()
				if next == nil {
					e.flush(s, ext, &chain)
					return
				}
				next.Length = copy(next.Data, buf.Data[offset:buf.Length])
				if !e.flush(s, ext, &chain) {
					s.ReleaseReadBuffer(next)
					return
				}
				buf, offset = next, 0
				continue
			}
			chain.append(ctx)
		}
		offset = end
	}

	if chain.empty() {
		// nothing points into buf, keep reading into it
		buf.Length = copy(buf.Data, buf.Data[offset:buf.Length])
		s.TransmitRead(buf, s.ID())
		return
	}
	var next *pool.SocketBuffer
	if sess := ext.session; sess != nil {
		next = sess.TryAllocateReadBuffer()
	} else if next = s.AllocateReadBuffer(false); next == nil {
		s.TransmitDisconnect(stream.GracefulShutdown)
	}
	if next == nil {
		e.finish(s, ext, &chain, buf)
		return
	}
	next.Length = copy(next.Data, buf.Data[offset:buf.Length])
	if !e.flush(s, ext, &chain) {
		s.ReleaseReadBuffer(next)
		return
	}
	s.TransmitRead(next, s.ID())
}

// flush submits the chain as one queue item. A full queue sheds the stream.
func (e *NetworkEngine) flush(s stream.TransferStream, ext *streamExtension, chain *contextChain) bool {
	if chain.empty() {
		return true
	}
	if e.worker.submit(chain.head) {
		chain.reset()
		return true
	}
	chain.release()
	e.shed(s, ext)
	return false
}

// finish ends a read without re-arming. Every context over buf is in chain,
// so an empty chain means buf is still ours to release.
func (e *NetworkEngine) finish(s stream.TransferStream, ext *streamExtension, chain *contextChain, buf *pool.SocketBuffer) {
	if chain.empty() {
		s.ReleaseReadBuffer(buf)
		return
	}
	e.flush(s, ext, chain)
}

func (e *NetworkEngine) malformed(s stream.TransferStream, ext *streamExtension, chain *contextChain, buf *pool.SocketBuffer, err error) {
	e.finish(s, ext, chain, buf)
	if sess := ext.session; sess != nil {
		e.logger.Warnf("session %d: malformed frame: %v", sess.ID(), err)
		sess.CloseSession()
		return
	}
	e.logger.Warnf("stream %d: malformed frame: %v", s.ID(), err)
	s.TransmitDisconnect(stream.GracefulShutdown)
}
