package packet

import (
	"encoding/binary"

	"github.com/huoshan017/gsession/session"
)

type empty struct{}

func (empty) BodySize() int                 { return 0 }
func (empty) MarshalTo([]byte) (int, error) { return 0, nil }
func (empty) Unmarshal(body []byte) error   { return nil }

type HeartbeatRq struct {
	Ping uint32 // milliseconds
}

func (*HeartbeatRq) Type() PacketType { return PacketHeartbeatRq }
func (*HeartbeatRq) BodySize() int    { return 4 }

func (p *HeartbeatRq) MarshalTo(buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, ErrBufferTooSmall
	}
	binary.LittleEndian.PutUint32(buf, p.Ping)
	return 4, nil
}

func (p *HeartbeatRq) Unmarshal(body []byte) error {
	if len(body) < 4 {
		return ErrBodyTooShort
	}
	p.Ping = binary.LittleEndian.Uint32(body)
	return nil
}

type HeartbeatRs struct{ empty }

func (*HeartbeatRs) Type() PacketType { return PacketHeartbeatRs }

type SessionCreateRq struct{ empty }

func (*SessionCreateRq) Type() PacketType { return PacketSessionCreateRq }

// sessionIdentity is the id + key body shared by create_rs and auth_rq
type sessionIdentity struct {
	SessionID  uint64
	SessionKey session.Key
}

func (*sessionIdentity) BodySize() int { return 8 + session.KeySize }

func (p *sessionIdentity) MarshalTo(buf []byte) (int, error) {
	if len(buf) < 8+session.KeySize {
		return 0, ErrBufferTooSmall
	}
	binary.LittleEndian.PutUint64(buf, p.SessionID)
	copy(buf[8:], p.SessionKey[:])
	return 8 + session.KeySize, nil
}

func (p *sessionIdentity) Unmarshal(body []byte) error {
	if len(body) < 8+session.KeySize {
		return ErrBodyTooShort
	}
	p.SessionID = binary.LittleEndian.Uint64(body)
	copy(p.SessionKey[:], body[8:8+session.KeySize])
	return nil
}

type SessionCreateRs struct{ sessionIdentity }

func (*SessionCreateRs) Type() PacketType { return PacketSessionCreateRs }

func NewSessionCreateRs(id uint64, key session.Key) *SessionCreateRs {
	return &SessionCreateRs{sessionIdentity{SessionID: id, SessionKey: key}}
}

type SessionAuthRq struct{ sessionIdentity }

func (*SessionAuthRq) Type() PacketType { return PacketSessionAuthRq }

func NewSessionAuthRq(id uint64, key session.Key) *SessionAuthRq {
	return &SessionAuthRq{sessionIdentity{SessionID: id, SessionKey: key}}
}

type SessionAuthRs struct{ empty }

func (*SessionAuthRs) Type() PacketType { return PacketSessionAuthRs }

type SessionCloseRq struct{ empty }

func (*SessionCloseRq) Type() PacketType { return PacketSessionCloseRq }

type BandwidthOverflowPs struct{ empty }

func (*BandwidthOverflowPs) Type() PacketType { return PacketBandwidthOverflowPs }

type ServerIsBusyPs struct{ empty }

func (*ServerIsBusyPs) Type() PacketType { return PacketServerIsBusyPs }
