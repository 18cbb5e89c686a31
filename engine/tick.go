package engine

import (
	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/session"
	"github.com/huoshan017/gsession/stream"
)

// OnTick runs the timeout sweeps of one io worker shard.
func (e *NetworkEngine) OnTick(workerIndex int) {
	if workerIndex < 0 || workerIndex >= len(e.infos) {
		return
	}
	info := e.infos[workerIndex]
	now := e.now()
	e.retryDeferred(info)

	socketIdle := e.options.GetSocketIdleTimeout()
	for _, s := range info.activated {
		ext := extensionOf(s)
		if ext == nil || ext.session != nil {
			continue
		}
		if now.Sub(ext.createdAt) >= socketIdle {
			e.logger.Infof("stream %d (%v) idle without session, disconnecting", s.ID(), s.Address())
			s.TransmitDisconnect(stream.GracefulShutdown)
		}
	}

	heartbeat := e.options.GetSessionHeartbeatInterval()
	sessionIdle := e.options.GetSessionIdleTimeout()
	for id, sess := range info.opened {
		st := sess.Stream()
		if st == nil {
			delete(info.opened, id)
			continue
		}
		if now.Sub(sess.LastHeartbeatReceivingTime()) >= sessionIdle {
			e.logger.Infof("session %d idle, closing", id)
			sess.CloseSession()
			delete(info.opened, id)
			continue
		}
		ext := extensionOf(st)
		if ext != nil && ext.streamType == StreamAcceptor && now.Sub(sess.LastHeartbeatSendingTime()) >= heartbeat {
			sess.UpdateHeartbeatSendingTime(now)
			sess.Send(&packet.HeartbeatRq{Ping: uint32(sess.Ping().Milliseconds())}, packet.ErrorNone, true)
		}
	}

	reconnect := e.options.GetSessionReconnectTimeout()
	for id, sess := range info.abandoned {
		// the entry is a hint, the session may have been recycled or reauthed elsewhere
		if sess.ID() != id {
			delete(info.abandoned, id)
			continue
		}
		switch sess.State() {
		case session.Abandoned:
			continue
		case session.Wait:
		default:
			delete(info.abandoned, id)
			continue
		}
		if now.Sub(sess.AbandonedTime()) < reconnect {
			continue
		}
		delete(info.abandoned, id)
		if e.expiring != nil {
			e.expiring(sess)
		}
		removed, ok := e.abandoned.removeIf(id, func(ss *SocketSession) bool {
			return ss == sess && ss.ChangeState(session.Wait, session.Closed)
		})
		if !ok {
			// lost to a reconnect
			continue
		}
		e.logger.Infof("session %d reconnect window elapsed, closing", id)
		ctx := e.newContext(SessionClosed, removed, 0)
		removed.Release()
		e.submitTerminal(info, ctx)
	}
}
