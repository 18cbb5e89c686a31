package packet

import (
	"testing"

	"github.com/huoshan017/gsession/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderFormat(t *testing.T) {
	h := Header{Type: PacketUserBase + 3, ErrorCode: ErrorSessionIsNotReady, BodySize: 0x01020304}
	buf := make([]byte, HeaderSize)
	require.NoError(t, h.FormatTo(buf))
	assert.Equal(t, []byte{67, 0, 6, 0, 4, 3, 2, 1}, buf)

	var got Header
	require.NoError(t, got.UnformatFrom(buf))
	assert.Equal(t, h, got)

	assert.ErrorIs(t, h.FormatTo(buf[:7]), ErrHeaderLengthTooSmall)
	assert.ErrorIs(t, got.UnformatFrom(buf[:3]), ErrHeaderLengthTooSmall)
}

func TestSerializeFrame(t *testing.T) {
	p := &RawPacket{PType: PacketUserBase, Body: []byte("hello")}
	buf := make([]byte, 64)
	n, ok, err := Serialize(buf, p, ErrorNone)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, FrameSize+5, n)

	length, ok := FrameLength(buf)
	require.True(t, ok)
	assert.EqualValues(t, HeaderSize+5, length)

	var h Header
	require.NoError(t, h.UnformatFrom(buf[LengthSize:]))
	assert.Equal(t, PacketUserBase, h.Type)
	assert.EqualValues(t, 5, h.BodySize)
	assert.Equal(t, []byte("hello"), buf[FrameSize:n])
}

func TestSerializeDoesNotFit(t *testing.T) {
	p := &RawPacket{PType: PacketUserBase, Body: make([]byte, 10)}
	_, ok, err := Serialize(make([]byte, FrameSize+9), p, ErrorNone)
	assert.NoError(t, err)
	assert.False(t, ok)

	n, ok, _ := Serialize(make([]byte, FrameSize), &SessionCloseRq{}, ErrorNone)
	assert.True(t, ok)
	assert.Equal(t, FrameSize, n)
}

func TestSessionIdentityBody(t *testing.T) {
	key := session.NewKey()
	rs := NewSessionCreateRs(42, key)
	buf := make([]byte, 128)
	n, ok, err := Serialize(buf, rs, ErrorNone)
	require.NoError(t, err)
	require.True(t, ok)

	var auth SessionAuthRq
	require.NoError(t, auth.Unmarshal(buf[FrameSize:n]))
	assert.EqualValues(t, 42, auth.SessionID)
	assert.Equal(t, key, auth.SessionKey)

	assert.ErrorIs(t, auth.Unmarshal(buf[FrameSize:FrameSize+8]), ErrBodyTooShort)
}

func TestHeartbeatBody(t *testing.T) {
	buf := make([]byte, 4)
	_, err := (&HeartbeatRq{Ping: 120}).MarshalTo(buf)
	require.NoError(t, err)
	var rq HeartbeatRq
	require.NoError(t, rq.Unmarshal(buf))
	assert.EqualValues(t, 120, rq.Ping)
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "session_auth_rs", PacketSessionAuthRs.String())
	assert.Equal(t, "packet(70)", PacketType(70).String())
	assert.Equal(t, "SessionIsNotReady", ErrorSessionIsNotReady.String())
}

func TestFrames(t *testing.T) {
	buf := make([]byte, 256)
	n1, _, _ := Serialize(buf, &RawPacket{PType: PacketUserBase, Body: []byte("one")}, ErrorNone)
	n2, _, _ := Serialize(buf[n1:], &HeartbeatRs{}, ErrorNone)
	n3, _, _ := Serialize(buf[n1+n2:], &RawPacket{PType: PacketUserBase + 1, Body: []byte("three")}, ErrorNone)

	var types []PacketType
	var bodies []string
	consumed, err := Frames(buf[:n1+n2+n3-2], func(h Header, body []byte) bool {
		types = append(types, h.Type)
		bodies = append(bodies, string(body))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, n1+n2, consumed, "partial third frame is kept")
	assert.Equal(t, []PacketType{PacketUserBase, PacketHeartbeatRs}, types)
	assert.Equal(t, []string{"one", ""}, bodies)

	bad := make([]byte, FrameSize)
	copy(bad, []byte{8, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0})
	_, err = Frames(bad, func(Header, []byte) bool { return true })
	assert.ErrorIs(t, err, ErrBodySizeMismatch)
}
