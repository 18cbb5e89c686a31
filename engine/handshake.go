package engine

import (
	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
	"github.com/huoshan017/gsession/session"
	"github.com/huoshan017/gsession/stream"
)

// processSessionPacket handles one packet received before the stream has a
// session. It returns false when the packet was not understood; the caller
// skips it. A context is appended to chain when a session becomes available
// to the worker.
func (e *NetworkEngine) processSessionPacket(s stream.TransferStream, ext *streamExtension, info *socketWorkerInfo,
	chain *contextChain, buf *pool.SocketBuffer, h packet.Header, body []byte) bool {
	switch h.Type {
	case packet.PacketSessionCreateRq:
		return e.onCreateRequest(s, ext, info, chain, buf, h)
	case packet.PacketSessionCreateRs:
		return e.onCreateResponse(s, ext, info, chain, buf, h, body)
	case packet.PacketSessionAuthRq:
		return e.onAuthRequest(s, ext, info, chain, buf, h, body)
	case packet.PacketSessionAuthRs:
		return e.onAuthResponse(s, ext, info, chain, buf, h)
	}
	e.logger.Warnf("stream %d: %v before session established", s.ID(), h.Type)
	return false
}

func (e *NetworkEngine) appendHandshake(chain *contextChain, buf *pool.SocketBuffer, typ ContextType,
	h packet.Header, sess *SocketSession, attachment uint64) {
	ctx := e.newContext(typ, sess, attachment)
	ctx.Header = h
	buf.Retain()
	ctx.Buffer = buf
	chain.append(ctx)
}

func (e *NetworkEngine) onCreateRequest(s stream.TransferStream, ext *streamExtension, info *socketWorkerInfo,
	chain *contextChain, buf *pool.SocketBuffer, h packet.Header) bool {
	if ext.streamType != StreamAcceptor {
		return false
	}
	sess := e.popSession()
	if sess == nil {
		e.logger.Warnf("stream %d: session pool exhausted", s.ID())
		e.sendPacket(s, &packet.SessionCreateRs{}, packet.ErrorSessionIsFull, true)
		return true
	}
	sess.MustChangeState(session.Closed, session.Opened)
	key := sess.ResetKey()
	e.sendPacket(s, packet.NewSessionCreateRs(sess.ID(), key), packet.ErrorNone, true)
	e.establish(s, ext, info, sess)
	e.appendHandshake(chain, buf, SessionAccepted, h, sess, 0)
	return true
}

func (e *NetworkEngine) onCreateResponse(s stream.TransferStream, ext *streamExtension, info *socketWorkerInfo,
	chain *contextChain, buf *pool.SocketBuffer, h packet.Header, body []byte) bool {
	if ext.streamType != StreamConnector {
		return false
	}
	if h.ErrorCode != packet.ErrorNone {
		e.logger.Warnf("stream %d: session create refused: %v", s.ID(), h.ErrorCode)
		s.TransmitDisconnect(stream.GracefulShutdown)
		return true
	}
	var rs packet.SessionCreateRs
	if err := rs.Unmarshal(body); err != nil {
		e.logger.Warnf("stream %d: %v", s.ID(), err)
		return false
	}
	sess := e.popSession()
	if sess == nil {
		e.logger.Warnf("stream %d: session pool exhausted", s.ID())
		s.TransmitDisconnect(stream.GracefulShutdown)
		return true
	}
	sess.MustChangeState(session.Closed, session.Opened)
	sess.SetKey(rs.SessionKey)
	ci, _ := e.connectors.process(ext.connectorID, func(ci *ConnectorInfo) {
		if e.options.GetUseSessionReconnect() {
			ci.SessionID = rs.SessionID
			ci.SessionKey = rs.SessionKey
			ci.localSessionID = sess.ID()
		}
	})
	e.establish(s, ext, info, sess)
	e.appendHandshake(chain, buf, SessionConnected, h, sess, ci.Attachment)
	return true
}

func (e *NetworkEngine) onAuthRequest(s stream.TransferStream, ext *streamExtension, info *socketWorkerInfo,
	chain *contextChain, buf *pool.SocketBuffer, h packet.Header, body []byte) bool {
	if ext.streamType != StreamAcceptor {
		return false
	}
	var rq packet.SessionAuthRq
	if err := rq.Unmarshal(body); err != nil {
		e.logger.Warnf("stream %d: %v", s.ID(), err)
		return false
	}
	keyMatched := false
	sess, ok := e.abandoned.removeIf(rq.SessionID, func(ss *SocketSession) bool {
		if ss.ID() != rq.SessionID || ss.Key() != rq.SessionKey {
			return false
		}
		keyMatched = true
		return ss.ChangeState(session.Wait, session.Opened)
	})
	if !ok {
		code := packet.ErrorSessionAuthFailed
		if keyMatched {
			code = packet.ErrorSessionIsNotReady
		}
		e.sendPacket(s, &packet.SessionAuthRs{}, code, true)
		return true
	}
	e.sendPacket(s, &packet.SessionAuthRs{}, packet.ErrorNone, true)
	// the table reference now belongs to the stream extension
	e.establish(s, ext, info, sess)
	e.appendHandshake(chain, buf, SessionAlived, h, sess, 0)
	return true
}

func (e *NetworkEngine) onAuthResponse(s stream.TransferStream, ext *streamExtension, info *socketWorkerInfo,
	chain *contextChain, buf *pool.SocketBuffer, h packet.Header) bool {
	if ext.streamType != StreamConnector {
		return false
	}
	ci, ok := e.connectors.get(ext.connectorID)
	if !ok || ci.SessionID == 0 {
		return false
	}
	code := h.ErrorCode
	if code == packet.ErrorSessionIsNotReady {
		if ext.authRetries < e.options.GetAuthRetryLimit() {
			ext.authRetries++
			e.sendPacket(s, packet.NewSessionAuthRq(ci.SessionID, ci.SessionKey), packet.ErrorNone, true)
			return true
		}
		code = packet.ErrorSessionAuthFailed
	}
	if code == packet.ErrorNone {
		sess, ok := e.abandoned.removeIf(ci.localSessionID, func(ss *SocketSession) bool {
			return ss.ChangeState(session.Wait, session.Opened)
		})
		if ok {
			e.establish(s, ext, info, sess)
			e.appendHandshake(chain, buf, SessionAlived, h, sess, ci.Attachment)
			return true
		}
		e.logger.Infof("stream %d: local session %d expired before auth response", s.ID(), ci.localSessionID)
	} else {
		e.logger.Infof("stream %d: session %d auth failed: %v", s.ID(), ci.SessionID, code)
		if sess, ok := e.abandoned.removeIf(ci.localSessionID, func(ss *SocketSession) bool {
			return ss.ChangeState(session.Wait, session.Closed)
		}); ok {
			ctx := e.newContext(SessionClosed, sess, ci.Attachment)
			sess.Release()
			e.submitTerminal(info, ctx)
		}
	}
	e.connectors.process(ext.connectorID, func(ci *ConnectorInfo) {
		ci.clearSession()
	})
	ext.authRetries = 0
	e.sendPacket(s, &packet.SessionCreateRq{}, packet.ErrorNone, true)
	return true
}
