// Package echo is a small game style echo service built on the engine. The
// server bounces every message back, the client measures round trips.
package echo

import (
	"time"

	"github.com/huoshan017/gsession/engine"
	"github.com/huoshan017/gsession/log"
	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
	"github.com/huoshan017/gsession/throttle"
	"go.uber.org/atomic"
)

const (
	PacketEcho   = packet.PacketUserBase + 1
	packetResult = packet.PacketUserBase + 2

	// user data slot holding the number of messages a session has echoed
	UserDataEchoCount uint64 = 1
)

type Message struct {
	Seq    int64  `json:"seq" msgpack:"seq"`
	Text   string `json:"text" msgpack:"text"`
	SentAt int64  `json:"sent_at" msgpack:"sent_at"`
}

type ServerHandler struct {
	engine.BaseHandler
	codec     packet.Codec
	logger    log.Logger
	throttler *throttle.PacketThrottler
	sessions  map[uint64]*engine.SocketSession
	echoed    atomic.Int64
}

// NewServerHandler batches echoes with a throttler built from the engine's
// ThrottleTick once the first session shows up.
func NewServerHandler(codec packet.Codec, logger log.Logger) *ServerHandler {
	return &ServerHandler{
		codec:    codec,
		logger:   logger,
		sessions: make(map[uint64]*engine.SocketSession),
	}
}

func (h *ServerHandler) throttlerOf(s *engine.SocketSession) *throttle.PacketThrottler {
	if h.throttler == nil {
		h.throttler = s.Engine().NewPacketThrottler()
	}
	return h.throttler
}

func (h *ServerHandler) Echoed() int64 {
	return h.echoed.Load()
}

func (h *ServerHandler) OnSessionAccepted(ctx *engine.SocketContext) {
	h.sessions[ctx.Session.ID()] = ctx.Session
	if st := ctx.Session.Stream(); st != nil {
		h.logger.Infof("session %d accepted from %v", ctx.Session.ID(), st.Address())
	}
}

func (h *ServerHandler) OnSessionAlived(ctx *engine.SocketContext) {
	h.sessions[ctx.Session.ID()] = ctx.Session
	h.logger.Infof("session %d is back", ctx.Session.ID())
}

func (h *ServerHandler) OnSessionAbandoned(ctx *engine.SocketContext) {
	h.throttlerOf(ctx.Session).CleanUp(ctx.Session)
	h.logger.Infof("session %d abandoned", ctx.Session.ID())
}

func (h *ServerHandler) OnSessionClosed(ctx *engine.SocketContext) {
	h.throttlerOf(ctx.Session).CleanUp(ctx.Session)
	delete(h.sessions, ctx.Session.ID())
	h.logger.Infof("session %d closed", ctx.Session.ID())
}

func (h *ServerHandler) OnSessionData(ctx *engine.SocketContext) {
	if ctx.Header.Type != PacketEcho {
		h.logger.Warnf("session %d: unexpected %v", ctx.Session.ID(), ctx.Header.Type)
		return
	}
	var msg Message
	if err := packet.DecodeMessage(ctx.Payload, &msg, h.codec); err != nil {
		h.logger.Warnf("session %d: %v", ctx.Session.ID(), err)
		ctx.Session.CloseSession()
		return
	}
	p, err := packet.NewMessage(PacketEcho, &msg, h.codec)
	if err != nil {
		h.logger.Errorf("encode echo: %v", err)
		return
	}
	if err := h.throttlerOf(ctx.Session).PostPacket(ctx.Session, p, throttle.Throttle); err != nil {
		h.logger.Warnf("session %d: %v", ctx.Session.ID(), err)
		return
	}
	n, _ := ctx.Session.UserData(UserDataEchoCount)
	ctx.Session.SetUserData(UserDataEchoCount, n+1)
	h.echoed.Inc()
}

func (h *ServerHandler) UpdateEveryTick(now time.Time) {
	if h.throttler != nil {
		h.throttler.TryFlushPacket(now)
	}
}

// ClientHandler sends one message per update to every connected session and
// tallies the echoes through a loopback session.
type ClientHandler struct {
	engine.BaseHandler
	codec    packet.Codec
	logger   log.Logger
	sessions map[uint64]*engine.SocketSession
	loopback *engine.LoopbackSession
	seq      int64
	received atomic.Int64
	rtt      atomic.Duration
	stopAt   int64
}

// NewClientHandler stops the worker after count echoes, 0 runs forever
func NewClientHandler(codec packet.Codec, count int64, logger log.Logger) *ClientHandler {
	return &ClientHandler{
		codec:    codec,
		logger:   logger,
		sessions: make(map[uint64]*engine.SocketSession),
		loopback: engine.NewLoopbackSession(0, 4, 4096),
		stopAt:   count,
	}
}

func (h *ClientHandler) Received() int64 {
	return h.received.Load()
}

func (h *ClientHandler) LastRoundTrip() time.Duration {
	return h.rtt.Load()
}

func (h *ClientHandler) OnSessionConnected(ctx *engine.SocketContext) {
	h.sessions[ctx.Session.ID()] = ctx.Session
	h.logger.Infof("session %d connected (connector attachment %d)", ctx.Session.ID(), ctx.Attachment)
}

func (h *ClientHandler) OnSessionAlived(ctx *engine.SocketContext) {
	h.sessions[ctx.Session.ID()] = ctx.Session
}

func (h *ClientHandler) OnSessionAbandoned(ctx *engine.SocketContext) {
	delete(h.sessions, ctx.Session.ID())
}

func (h *ClientHandler) OnSessionClosed(ctx *engine.SocketContext) {
	delete(h.sessions, ctx.Session.ID())
}

func (h *ClientHandler) OnSessionData(ctx *engine.SocketContext) {
	if ctx.Header.Type != PacketEcho {
		return
	}
	// forward the body as is, it is decoded once the read buffer is gone
	if err := h.loopback.Send(&packet.RawPacket{PType: packetResult, Body: ctx.Payload}, packet.ErrorNone); err != nil {
		h.logger.Warnf("loopback: %v", err)
	}
}

func (h *ClientHandler) ProcessLoopbackData(buf *pool.SocketBuffer) {
	_, err := packet.Frames(buf.Bytes(), func(hd packet.Header, body []byte) bool {
		var msg Message
		if err := packet.DecodeMessage(body, &msg, h.codec); err != nil {
			h.logger.Warnf("decode echo: %v", err)
			return true
		}
		h.rtt.Store(time.Since(time.Unix(0, msg.SentAt)))
		h.received.Inc()
		return true
	})
	if err != nil {
		h.logger.Errorf("loopback frames: %v", err)
	}
}

func (h *ClientHandler) Update(now time.Time, delta time.Duration) bool {
	if h.stopAt > 0 && h.received.Load() >= h.stopAt {
		return false
	}
	for _, sess := range h.sessions {
		h.seq++
		p, err := packet.NewMessage(PacketEcho, &Message{Seq: h.seq, Text: "hello", SentAt: now.UnixNano()}, h.codec)
		if err != nil {
			h.logger.Errorf("encode: %v", err)
			continue
		}
		sess.Send(p, packet.ErrorNone, false)
	}
	return true
}

func (h *ClientHandler) UpdateEveryTick(now time.Time) {
	h.loopback.ProcessLoopbackPacket(h)
}
