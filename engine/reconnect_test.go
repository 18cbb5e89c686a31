package engine

import (
	"testing"
	"time"

	"github.com/huoshan017/gsession/options"
	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/session"
	"github.com/huoshan017/gsession/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconnectHarness(t *testing.T) *harness {
	return newHarness(t,
		options.WithUseSessionReconnect(true),
		options.WithSessionReconnectTimeout(30*time.Second),
		options.WithMaxSessionCount(4))
}

func TestAbandonAndReauthenticate(t *testing.T) {
	h := reconnectHarness(t)
	h.handler.onAccepted = func(ctx *SocketContext) {
		ctx.Session.SetUserData(1, 1001)
	}
	s1, id, key := h.create()
	require.Equal(t, uint64(1), id)
	h.step()
	sess := sessionOf(s1)
	v, ok := sess.UserData(1)
	require.True(t, ok)
	require.Equal(t, uint64(1001), v)

	h.engine.OnDisconnect(s1, 0)
	assert.Equal(t, session.Abandoned, sess.State())
	assert.Nil(t, sess.Stream())
	assert.Equal(t, h.now, sess.AbandonedTime())
	assert.Equal(t, 1, h.engine.abandoned.count())

	// key matches but the worker has not seen the abandonment yet
	early := h.accept()
	early.deliver(frame(packet.NewSessionAuthRq(id, key), packet.ErrorNone))
	assert.Equal(t, packet.ErrorSessionIsNotReady, early.lastSent(t, packet.PacketSessionAuthRs).header.ErrorCode)
	assert.Empty(t, early.disconnects)

	h.step()
	require.Equal(t, []ContextType{SessionAccepted, SessionAbandoned}, h.handler.types())
	assert.Equal(t, session.Wait, sess.State())

	h.advance(10 * time.Second)
	s2 := h.accept()
	s2.deliver(frame(packet.NewSessionAuthRq(id, key), packet.ErrorNone))
	f := s2.lastSent(t, packet.PacketSessionAuthRs)
	assert.Equal(t, packet.ErrorNone, f.header.ErrorCode)
	assert.Equal(t, session.Opened, sess.State())
	assert.Same(t, sess, sessionOf(s2))
	assert.Equal(t, stream.TransferStream(s2), sess.Stream())
	assert.Equal(t, 0, h.engine.abandoned.count())

	h.step()
	require.Equal(t, SessionAlived, h.handler.events[2].typ)
	assert.Equal(t, id, h.handler.events[2].sessionID)
	_, ok = sess.UserData(1)
	assert.False(t, ok)
	assert.Equal(t, int32(1), sess.RefCount())

	// the old shard entry is dropped by the next sweep
	h.engine.OnTick(0)
	assert.Empty(t, h.engine.infos[0].abandoned)
}

func TestReauthenticateWithWrongKey(t *testing.T) {
	h := reconnectHarness(t)
	s1, id, _ := h.create()
	h.step()
	h.engine.OnDisconnect(s1, 0)
	h.step()

	s2 := h.accept()
	s2.deliver(frame(packet.NewSessionAuthRq(id, session.NewKey()), packet.ErrorNone))
	assert.Equal(t, packet.ErrorSessionAuthFailed, s2.lastSent(t, packet.PacketSessionAuthRs).header.ErrorCode)
	assert.Nil(t, sessionOf(s2))
	assert.Equal(t, 1, h.engine.abandoned.count())

	s2.deliver(frame(packet.NewSessionAuthRq(id+7, session.NewKey()), packet.ErrorNone))
	assert.Equal(t, packet.ErrorSessionAuthFailed, s2.lastSent(t, packet.PacketSessionAuthRs).header.ErrorCode)
}

func TestReconnectWindowElapsed(t *testing.T) {
	h := reconnectHarness(t)
	s1, id, key := h.create()
	h.step()
	sess := sessionOf(s1)
	h.engine.OnDisconnect(s1, 0)

	// still Abandoned: the sweep leaves it to the worker
	h.advance(time.Minute)
	h.engine.OnTick(0)
	assert.Equal(t, session.Abandoned, sess.State())

	h.step()
	require.Equal(t, session.Wait, sess.State())
	h.engine.OnTick(0)
	assert.Equal(t, session.Closed, sess.State())
	assert.Equal(t, 0, h.engine.abandoned.count())

	h.step()
	require.Equal(t, []ContextType{SessionAccepted, SessionAbandoned, SessionClosed}, h.handler.types())
	assert.Equal(t, id, h.handler.events[2].sessionID)
	assert.Equal(t, h.engine.sessions.Size(), h.engine.sessions.Len())

	late := h.accept()
	late.deliver(frame(packet.NewSessionAuthRq(id, key), packet.ErrorNone))
	assert.Equal(t, packet.ErrorSessionAuthFailed, late.lastSent(t, packet.PacketSessionAuthRs).header.ErrorCode)

	_, id2, key2 := h.create()
	assert.Greater(t, id2, id)
	assert.NotEqual(t, key, key2)
}

// a reauth on another shard can win the Wait CAS after the sweep saw Wait
func TestReconnectWindowSweepLosesToReauth(t *testing.T) {
	h := reconnectHarness(t)
	s1, id, _ := h.create()
	h.step()
	sess := sessionOf(s1)
	h.engine.OnDisconnect(s1, 0)
	h.step()
	require.Equal(t, session.Wait, sess.State())
	refs := sess.RefCount()

	h.engine.expiring = func(ss *SocketSession) {
		require.Same(t, sess, ss)
		require.True(t, ss.ChangeState(session.Wait, session.Opened))
	}
	h.advance(time.Minute)
	h.engine.OnTick(0)

	assert.Equal(t, session.Opened, sess.State())
	assert.Equal(t, refs, sess.RefCount())
	// the reauth owns the table entry, the sweep only drops its hint
	assert.Equal(t, 1, h.engine.abandoned.count())
	assert.Empty(t, h.engine.infos[0].abandoned)

	h.step()
	assert.Equal(t, []ContextType{SessionAccepted, SessionAbandoned}, h.handler.types())
	assert.Equal(t, id, sess.ID())
}

func TestReconnectDisabledCloses(t *testing.T) {
	h := newHarness(t)
	s, _, _ := h.create()
	sess := sessionOf(s)
	h.engine.OnDisconnect(s, 0)
	assert.Equal(t, session.Closed, sess.State())
	h.step()
	assert.Equal(t, []ContextType{SessionAccepted, SessionClosed}, h.handler.types())
}

func connectorHarness(t *testing.T) (*harness, uint64) {
	h := reconnectHarness(t)
	addr := stream.Address{IP: "10.0.0.2", Port: 7000}
	id := h.engine.RegisterConnectorSocket(addr, 77)
	require.Len(t, h.server.connects, 1)
	assert.Equal(t, connectCall{addr, id}, h.server.connects[0])
	return h, id
}

func (h *harness) connect(id uint64) *fakeStream {
	s := h.newStream()
	h.engine.OnConnect(s, id)
	require.NotNil(h.t, s.armed)
	return s
}

func TestConnectorCreatesSession(t *testing.T) {
	h, cid := connectorHarness(t)

	h.engine.OnConnect(nil, cid)
	require.Len(t, h.server.connects, 2)

	s := h.connect(cid)
	assert.Equal(t, []packet.PacketType{packet.PacketSessionCreateRq}, s.sentTypes())

	key := session.NewKey()
	s.deliver(frame(packet.NewSessionCreateRs(5, key), packet.ErrorNone))
	sess := sessionOf(s)
	require.NotNil(t, sess)
	assert.Equal(t, key, sess.Key())

	ci, ok := h.engine.Connector(cid)
	require.True(t, ok)
	assert.Equal(t, uint64(5), ci.SessionID)
	assert.Equal(t, key, ci.SessionKey)
	assert.Equal(t, sess.ID(), ci.localSessionID)

	h.step()
	require.Len(t, h.handler.events, 1)
	assert.Equal(t, SessionConnected, h.handler.events[0].typ)
	assert.Equal(t, uint64(77), h.handler.events[0].attachment)

	// a second stream for the same connector is refused
	dup := h.newStream()
	h.engine.OnConnect(dup, cid)
	assert.Equal(t, []uint64{stream.GracefulShutdown}, dup.disconnects)
}

func TestConnectorReauthenticates(t *testing.T) {
	h, cid := connectorHarness(t)
	s1 := h.connect(cid)
	key := session.NewKey()
	s1.deliver(frame(packet.NewSessionCreateRs(5, key), packet.ErrorNone))
	sess := sessionOf(s1)
	h.step()

	h.engine.OnDisconnect(s1, 0)
	require.Len(t, h.server.connects, 2)
	h.step()
	assert.Equal(t, session.Wait, sess.State())
	assert.Equal(t, uint64(77), h.handler.events[1].attachment)

	s2 := h.connect(cid)
	rq := s2.lastSent(t, packet.PacketSessionAuthRq)
	var auth packet.SessionAuthRq
	require.NoError(t, auth.Unmarshal(rq.body))
	assert.Equal(t, uint64(5), auth.SessionID)
	assert.Equal(t, key, auth.SessionKey)

	s2.deliver(frame(&packet.SessionAuthRs{}, packet.ErrorSessionIsNotReady))
	assert.Len(t, s2.sent, 2)
	s2.deliver(frame(&packet.SessionAuthRs{}, packet.ErrorNone))
	assert.Same(t, sess, sessionOf(s2))
	assert.Equal(t, session.Opened, sess.State())

	h.step()
	assert.Equal(t, []ContextType{SessionConnected, SessionAbandoned, SessionAlived}, h.handler.types())
}

func TestConnectorAuthFailedFallsBackToCreate(t *testing.T) {
	h, cid := connectorHarness(t)
	s1 := h.connect(cid)
	s1.deliver(frame(packet.NewSessionCreateRs(5, session.NewKey()), packet.ErrorNone))
	sess := sessionOf(s1)
	h.engine.OnDisconnect(s1, 0)
	h.step()

	s2 := h.connect(cid)
	s2.deliver(frame(&packet.SessionAuthRs{}, packet.ErrorSessionAuthFailed))
	assert.Equal(t, packet.PacketSessionCreateRq, s2.sent[len(s2.sent)-1].header.Type)
	assert.Equal(t, session.Closed, sess.State())
	ci, _ := h.engine.Connector(cid)
	assert.Zero(t, ci.SessionID)

	h.step()
	assert.Equal(t, []ContextType{SessionConnected, SessionAbandoned, SessionClosed}, h.handler.types())

	s2.deliver(frame(packet.NewSessionCreateRs(9, session.NewKey()), packet.ErrorNone))
	h.step()
	assert.Equal(t, SessionConnected, h.handler.events[3].typ)
}

func TestConnectorAuthRetryLimit(t *testing.T) {
	h := newHarness(t, options.WithUseSessionReconnect(true), options.WithAuthRetryLimit(2))
	cid := h.engine.RegisterConnectorSocket(stream.Address{IP: "10.0.0.3", Port: 7001}, 0)
	s1 := h.connect(cid)
	s1.deliver(frame(packet.NewSessionCreateRs(5, session.NewKey()), packet.ErrorNone))
	h.engine.OnDisconnect(s1, 0)

	// worker never runs, the session stays Abandoned
	s2 := h.connect(cid)
	for i := 0; i < 3; i++ {
		s2.deliver(frame(&packet.SessionAuthRs{}, packet.ErrorSessionIsNotReady))
	}
	types := s2.sentTypes()
	assert.Equal(t, []packet.PacketType{
		packet.PacketSessionAuthRq,
		packet.PacketSessionAuthRq,
		packet.PacketSessionAuthRq,
		packet.PacketSessionCreateRq,
	}, types)
}

func TestUnregisterConnector(t *testing.T) {
	h, cid := connectorHarness(t)
	s := h.connect(cid)
	h.engine.UnregisterConnectorSocket(cid)
	assert.Equal(t, []uint64{stream.GracefulShutdown}, s.disconnects)

	h.engine.OnDisconnect(s, stream.GracefulShutdown)
	h.engine.OnConnect(nil, cid)
	assert.Len(t, h.server.connects, 1)
	_, ok := h.engine.Connector(cid)
	assert.False(t, ok)
}
