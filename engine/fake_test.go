package engine

import (
	"testing"
	"time"

	"github.com/huoshan017/gsession/log"
	"github.com/huoshan017/gsession/options"
	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
	"github.com/huoshan017/gsession/session"
	"github.com/huoshan017/gsession/stream"
	"github.com/stretchr/testify/require"
)

type connectCall struct {
	addr       stream.Address
	attachment uint64
}

type fakeServer struct {
	handler  stream.EventHandler
	connects []connectCall
}

func (s *fakeServer) SetEventHandler(h stream.EventHandler) { s.handler = h }
func (s *fakeServer) WorkerCount() int                      { return 1 }
func (s *fakeServer) Start() error                          { return nil }
func (s *fakeServer) Shutdown(bool) error                   { return nil }

func (s *fakeServer) Connect(addr stream.Address, attachment uint64) {
	s.connects = append(s.connects, connectCall{addr, attachment})
}

type sentFrame struct {
	header packet.Header
	body   []byte
}

type fakeStream struct {
	id          uint64
	engine      *NetworkEngine
	userData    any
	reads       *pool.BufferPool
	writes      *pool.BufferPool
	armed       *pool.SocketBuffer
	sent        []sentFrame
	writeCount  int
	disconnects []uint64
}

func (s *fakeStream) ID() uint64              { return s.id }
func (s *fakeStream) WorkerIndex() int        { return 0 }
func (s *fakeStream) Address() stream.Address { return stream.Address{IP: "127.0.0.1", Port: 9000} }
func (s *fakeStream) UserData() any           { return s.userData }
func (s *fakeStream) SetUserData(data any)    { s.userData = data }

func (s *fakeStream) AllocateReadBuffer(must bool) *pool.SocketBuffer { return s.reads.Allocate(must) }
func (s *fakeStream) ReleaseReadBuffer(buf *pool.SocketBuffer)        { s.reads.Free(buf) }
func (s *fakeStream) AllocateWriteBuffer(must bool) *pool.SocketBuffer {
	return s.writes.Allocate(must)
}
func (s *fakeStream) ReleaseWriteBuffer(buf *pool.SocketBuffer) { s.writes.Free(buf) }

func (s *fakeStream) TransmitRead(buf *pool.SocketBuffer, attachment uint64) {
	if s.armed != nil {
		panic("second read in flight")
	}
	s.armed = buf
}

func (s *fakeStream) TransmitWrite(buf *pool.SocketBuffer, attachment uint64) {
	s.writeCount++
	_, err := packet.Frames(buf.Bytes(), func(h packet.Header, body []byte) bool {
		s.sent = append(s.sent, sentFrame{h, append([]byte(nil), body...)})
		return true
	})
	if err != nil {
		panic(err)
	}
	s.engine.OnWrite(s, buf, attachment)
}

func (s *fakeStream) TransmitDisconnect(attachment uint64) {
	s.disconnects = append(s.disconnects, attachment)
}

// deliver appends data to the armed read buffer and completes the read
func (s *fakeStream) deliver(data []byte) {
	buf := s.armed
	if buf == nil {
		panic("no read in flight")
	}
	s.armed = nil
	buf.Length += copy(buf.Free(), data)
	s.engine.OnRead(s, buf, s.id)
}

func (s *fakeStream) sentTypes() []packet.PacketType {
	types := make([]packet.PacketType, 0, len(s.sent))
	for _, f := range s.sent {
		types = append(types, f.header.Type)
	}
	return types
}

func (s *fakeStream) lastSent(t *testing.T, typ packet.PacketType) sentFrame {
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].header.Type == typ {
			return s.sent[i]
		}
	}
	t.Fatalf("no %v sent, got %v", typ, s.sentTypes())
	return sentFrame{}
}

type event struct {
	typ        ContextType
	sessionID  uint64
	packetType packet.PacketType
	payload    []byte
	attachment uint64
}

type recordingHandler struct {
	BaseHandler
	events      []event
	onAccepted  func(ctx *SocketContext)
	onAbandoned func(ctx *SocketContext)
	onAlived    func(ctx *SocketContext)
}

func (h *recordingHandler) record(ctx *SocketContext) {
	h.events = append(h.events, event{
		typ:        ctx.Type,
		sessionID:  ctx.Session.ID(),
		packetType: ctx.Header.Type,
		payload:    append([]byte(nil), ctx.Payload...),
		attachment: ctx.Attachment,
	})
}

func (h *recordingHandler) OnSessionAccepted(ctx *SocketContext) {
	h.record(ctx)
	if h.onAccepted != nil {
		h.onAccepted(ctx)
	}
}

func (h *recordingHandler) OnSessionConnected(ctx *SocketContext) { h.record(ctx) }

func (h *recordingHandler) OnSessionAbandoned(ctx *SocketContext) {
	h.record(ctx)
	if h.onAbandoned != nil {
		h.onAbandoned(ctx)
	}
}

func (h *recordingHandler) OnSessionAlived(ctx *SocketContext) {
	h.record(ctx)
	if h.onAlived != nil {
		h.onAlived(ctx)
	}
}

func (h *recordingHandler) OnSessionClosed(ctx *SocketContext) { h.record(ctx) }
func (h *recordingHandler) OnSessionData(ctx *SocketContext)   { h.record(ctx) }

func (h *recordingHandler) types() []ContextType {
	types := make([]ContextType, 0, len(h.events))
	for _, ev := range h.events {
		types = append(types, ev.typ)
	}
	return types
}

func (h *recordingHandler) reset() {
	h.events = h.events[:0]
}

type harness struct {
	t       *testing.T
	engine  *NetworkEngine
	worker  *Worker
	handler *recordingHandler
	server  *fakeServer
	reads   *pool.BufferPool
	writes  *pool.BufferPool
	now     time.Time
	nextID  uint64
}

func newHarness(t *testing.T, opts ...options.EngineOption) *harness {
	h := &harness{
		t:       t,
		handler: &recordingHandler{},
		server:  &fakeServer{},
		reads:   pool.NewBufferPool(8, 256, true),
		writes:  pool.NewBufferPool(8, 256, true),
		now:     time.Unix(1700000000, 0),
	}
	h.worker = NewWorker(h.handler)
	opts = append([]options.EngineOption{options.WithLogger(log.DiscardLogger)}, opts...)
	e, err := NewNetworkEngine(h.server, h.worker, opts...)
	require.NoError(t, err)
	e.clock = func() time.Time { return h.now }
	h.engine = e
	return h
}

func (h *harness) newStream() *fakeStream {
	h.nextID++
	return &fakeStream{id: h.nextID, engine: h.engine, reads: h.reads, writes: h.writes}
}

func (h *harness) accept() *fakeStream {
	s := h.newStream()
	h.engine.OnAccept(s)
	require.NotNil(h.t, s.armed)
	return s
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *harness) step() {
	h.worker.Step(h.now)
}

// create runs the create handshake on a fresh accepted stream
func (h *harness) create() (*fakeStream, uint64, session.Key) {
	s := h.accept()
	s.deliver(frame(&packet.SessionCreateRq{}, packet.ErrorNone))
	var rs packet.SessionCreateRs
	f := s.lastSent(h.t, packet.PacketSessionCreateRs)
	require.Equal(h.t, packet.ErrorNone, f.header.ErrorCode)
	require.NoError(h.t, rs.Unmarshal(f.body))
	return s, rs.SessionID, rs.SessionKey
}

func frame(p packet.Packet, code packet.ErrorCode) []byte {
	buf := make([]byte, packet.FrameSize+p.BodySize())
	n, ok, err := packet.Serialize(buf, p, code)
	if !ok || err != nil {
		panic("frame does not serialize")
	}
	return buf[:n]
}

func data(typ packet.PacketType, body string) []byte {
	return frame(&packet.RawPacket{PType: typ, Body: []byte(body)}, packet.ErrorNone)
}

func sessionOf(s *fakeStream) *SocketSession {
	if ext := extensionOf(s); ext != nil {
		return ext.session
	}
	return nil
}
