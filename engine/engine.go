package engine

import (
	"time"

	"github.com/huoshan017/gsession/log"
	"github.com/huoshan017/gsession/options"
	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
	"github.com/huoshan017/gsession/session"
	"github.com/huoshan017/gsession/stream"
	"github.com/huoshan017/gsession/throttle"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

const maxContextArenaSize = 65536

// NetworkEngine turns stream events into session events for one Worker.
type NetworkEngine struct {
	options    *options.EngineOptions
	logger     log.Logger
	server     stream.Server
	worker     *Worker
	infos      []*socketWorkerInfo
	sessions   *pool.ObjectPool[*SocketSession]
	contexts   *pool.ObjectPool[*SocketContext]
	sessionSeq atomic.Uint64
	connectors *connectorRegistry
	abandoned  *abandonedTable
	started    atomic.Bool
	clock      func() time.Time
	expiring   func(sess *SocketSession) // runs before an expired Wait session is closed
}

// NewNetworkEngine wires the engine between server and worker. The engine
// becomes the server's event handler.
func NewNetworkEngine(server stream.Server, worker *Worker, opts ...options.EngineOption) (*NetworkEngine, error) {
	o := options.NewEngineOptions(opts...)
	if server.WorkerCount() < 1 {
		return nil, ErrNoWorkerShard
	}
	if o.GetMaxContextsPerBuffer() < 1 {
		o.SetMaxContextsPerBuffer(1)
	}
	e := &NetworkEngine{
		options:    o,
		logger:     o.GetLogger(),
		server:     server,
		worker:     worker,
		infos:      make([]*socketWorkerInfo, server.WorkerCount()),
		connectors: newConnectorRegistry(),
		abandoned:  newAbandonedTable(),
		clock:      time.Now,
	}
	for i := range e.infos {
		e.infos[i] = newSocketWorkerInfo()
	}
	e.sessions = pool.NewObjectPool(o.GetMaxSessionCount(), true, pool.Hooks[*SocketSession]{
		New: func(uint64) *SocketSession {
			return newSocketSession(e)
		},
		Destruct: func(s *SocketSession) {
			s.ResetStream(nil)
		},
	})
	arenaSize := o.GetQueueCapacity()
	if arenaSize > maxContextArenaSize {
		arenaSize = maxContextArenaSize
	}
	e.contexts = newContextArena(arenaSize)
	if err := worker.bind(e, o); err != nil {
		return nil, err
	}
	server.SetEventHandler(e)
	return e, nil
}

func (e *NetworkEngine) Options() *options.EngineOptions {
	return e.options
}

// NewPacketThrottler returns a throttler flushing every ThrottleTick, for use on the worker
func (e *NetworkEngine) NewPacketThrottler() *throttle.PacketThrottler {
	return throttle.NewPacketThrottler(e.options.GetThrottleTick())
}

func (e *NetworkEngine) Logger() log.Logger {
	return e.logger
}

func (e *NetworkEngine) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrEngineStarted
	}
	if err := e.server.Start(); err != nil {
		e.started.Store(false)
		return err
	}
	e.worker.start(e.options.GetWorkerUpdateTick(), e.options.GetWorkerIdleBackoff())
	return nil
}

func (e *NetworkEngine) Shutdown() error {
	var err error
	err = multierr.Append(err, e.server.Shutdown(true))
	e.worker.stop()
	e.started.Store(false)
	return err
}

// RegisterConnectorSocket adds an outbound target that is reconnected until unregistered
func (e *NetworkEngine) RegisterConnectorSocket(addr stream.Address, attachment uint64) uint64 {
	ci := e.connectors.insert(addr, attachment)
	e.server.Connect(addr, ci.ID)
	return ci.ID
}

func (e *NetworkEngine) UnregisterConnectorSocket(id uint64) {
	ci, ok := e.connectors.remove(id)
	if !ok {
		return
	}
	if ci.Stream != nil {
		ci.Stream.TransmitDisconnect(stream.GracefulShutdown)
	}
}

func (e *NetworkEngine) Connector(id uint64) (ConnectorInfo, bool) {
	return e.connectors.get(id)
}

func (e *NetworkEngine) now() time.Time {
	return e.clock()
}

func (e *NetworkEngine) popSession() *SocketSession {
	s, ok := e.sessions.Pop(false)
	if !ok {
		return nil
	}
	s.Reset(e.sessionSeq.Inc())
	// held by the stream extension
	s.Retain()
	return s
}

func (e *NetworkEngine) recycleSession(s *SocketSession) {
	if st := s.State(); st != session.Closed {
		e.logger.Errorf("session %d recycled in state %v", s.ID(), st)
		s.Reset(0)
	}
	e.sessions.Push(s)
}

func (e *NetworkEngine) newContext(typ ContextType, sess *SocketSession, attachment uint64) *SocketContext {
	ctx, _ := e.contexts.Pop(true)
	ctx.arena = e.contexts
	ctx.Type = typ
	ctx.Attachment = attachment
	if sess != nil {
		sess.Retain()
		ctx.Session = sess
	}
	return ctx
}

// prepareContext creates a context over buf, nil when buf already carries
// as many contexts as allowed.
func (e *NetworkEngine) prepareContext(chain *contextChain, buf *pool.SocketBuffer, typ ContextType,
	h packet.Header, body []byte, sess *SocketSession, attachment uint64) *SocketContext {
	if chain.count >= e.options.GetMaxContextsPerBuffer() {
		return nil
	}
	ctx := e.newContext(typ, sess, attachment)
	ctx.Header = h
	ctx.Payload = body
	buf.Retain()
	ctx.Buffer = buf
	return ctx
}

// sendPacket writes p to a stream outside of any throttling
func (e *NetworkEngine) sendPacket(s stream.TransferStream, p packet.Packet, code packet.ErrorCode, mustSend bool) bool {
	buf := s.AllocateWriteBuffer(mustSend)
	if buf == nil {
		return false
	}
	n, ok, err := packet.Serialize(buf.Data, p, code)
	if !ok || err != nil {
		e.logger.Errorf("serialize %v (%d bytes) into write buffer of %d: %v", p.Type(), p.BodySize(), buf.Capacity(), err)
		s.ReleaseWriteBuffer(buf)
		return false
	}
	buf.Length = n
	s.TransmitWrite(buf, s.ID())
	return true
}

// submitTerminal delivers a context the worker must see. When the queue is
// full it is parked on the shard until the next tick.
func (e *NetworkEngine) submitTerminal(info *socketWorkerInfo, ctx *SocketContext) {
	if len(info.deferred) == 0 && e.worker.submit(ctx) {
		return
	}
	e.logger.Warnf("delivery queue full, deferring %v of session %d", ctx.Type, ctx.Session.ID())
	info.deferred = append(info.deferred, ctx)
}

func (e *NetworkEngine) retryDeferred(info *socketWorkerInfo) {
	n := 0
	for n < len(info.deferred) && e.worker.submit(info.deferred[n]) {
		info.deferred[n] = nil
		n++
	}
	info.deferred = append(info.deferred[:0], info.deferred[n:]...)
}

// shed is the reaction to a full delivery queue
func (e *NetworkEngine) shed(s stream.TransferStream, ext *streamExtension) {
	if sess := ext.session; sess != nil {
		e.logger.Warnf("delivery queue full, closing session %d", sess.ID())
		sess.Send(&packet.ServerIsBusyPs{}, packet.ErrorNone, true)
		sess.CloseSession()
		return
	}
	e.logger.Warnf("delivery queue full, disconnecting stream %d", s.ID())
	s.TransmitDisconnect(stream.GracefulShutdown)
}

// establish finishes a handshake on the stream's worker
func (e *NetworkEngine) establish(s stream.TransferStream, ext *streamExtension, info *socketWorkerInfo, sess *SocketSession) {
	now := e.now()
	sess.ResetStream(s)
	ext.session = sess
	ext.authRetries = 0
	info.opened[sess.ID()] = sess
	sess.UpdateHeartbeatSendingTime(now)
	sess.UpdateHeartbeatReceivingTime(now)
}

func (e *NetworkEngine) startRead(s stream.TransferStream) {
	buf := s.AllocateReadBuffer(false)
	if buf == nil {
		e.logger.Warnf("no read buffer for stream %d", s.ID())
		s.TransmitDisconnect(stream.GracefulShutdown)
		return
	}
	s.TransmitRead(buf, s.ID())
}

func (e *NetworkEngine) OnAccept(s stream.TransferStream) {
	info := e.infos[s.WorkerIndex()]
	s.SetUserData(&streamExtension{streamType: StreamAcceptor, createdAt: e.now()})
	info.activated[s.ID()] = s
	e.startRead(s)
}

func (e *NetworkEngine) OnConnect(s stream.TransferStream, attachment uint64) {
	if s == nil {
		if ci, ok := e.connectors.get(attachment); ok {
			e.logger.Debugf("connect %v failed, retrying", ci.Address)
			e.server.Connect(ci.Address, ci.ID)
		}
		return
	}
	bound := false
	ci, ok := e.connectors.process(attachment, func(ci *ConnectorInfo) {
		if ci.Stream == nil {
			ci.Stream = s
			bound = true
		}
	})
	if !ok || !bound {
		s.TransmitDisconnect(stream.GracefulShutdown)
		return
	}
	info := e.infos[s.WorkerIndex()]
	s.SetUserData(&streamExtension{streamType: StreamConnector, connectorID: ci.ID, createdAt: e.now()})
	info.activated[s.ID()] = s
	if ci.SessionID != 0 {
		e.sendPacket(s, packet.NewSessionAuthRq(ci.SessionID, ci.SessionKey), packet.ErrorNone, true)
	} else {
		e.sendPacket(s, &packet.SessionCreateRq{}, packet.ErrorNone, true)
	}
	e.startRead(s)
}

func (e *NetworkEngine) OnWrite(s stream.TransferStream, buf *pool.SocketBuffer, attachment uint64) {
	s.ReleaseWriteBuffer(buf)
}

func (e *NetworkEngine) OnDisconnect(s stream.TransferStream, attachment uint64) {
	info := e.infos[s.WorkerIndex()]
	delete(info.activated, s.ID())
	ext := extensionOf(s)
	if ext == nil {
		return
	}
	s.SetUserData(nil)

	var ctxAttachment uint64
	if ext.streamType == StreamConnector {
		ci, ok := e.connectors.process(ext.connectorID, func(ci *ConnectorInfo) {
			if ci.Stream == s {
				ci.Stream = nil
			}
		})
		if ok {
			ctxAttachment = ci.Attachment
			e.server.Connect(ci.Address, ci.ID)
		}
	}

	sess := ext.session
	if sess == nil {
		return
	}
	ext.session = nil
	delete(info.opened, sess.ID())
	sess.ResetStream(nil)

	typ := SessionClosed
	if attachment&stream.GracefulShutdown == 0 && e.options.GetUseSessionReconnect() {
		sess.MustChangeState(session.Opened, session.Abandoned)
		sess.UpdateAbandonedTime(e.now())
		e.abandoned.insert(sess)
		info.abandoned[sess.ID()] = sess
		typ = SessionAbandoned
	} else {
		sess.MustChangeState(session.Opened, session.Closed)
	}
	ctx := e.newContext(typ, sess, ctxAttachment)
	sess.Release()
	e.submitTerminal(info, ctx)
}
