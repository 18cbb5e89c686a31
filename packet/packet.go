package packet

import "encoding/binary"

// Packet is anything that can be written as a frame body.
type Packet interface {
	Type() PacketType
	BodySize() int
	MarshalTo(buf []byte) (int, error)
}

// Unmarshaler decodes a frame body.
type Unmarshaler interface {
	Unmarshal(body []byte) error
}

// Serialize writes [length][header][body] at the start of dst and returns the
// number of bytes used. ok is false when dst can not hold the frame; dst is
// left in an unspecified state then.
func Serialize(dst []byte, p Packet, code ErrorCode) (n int, ok bool, err error) {
	size := p.BodySize()
	n = FrameSize + size
	if n > len(dst) {
		return 0, false, nil
	}
	binary.LittleEndian.PutUint32(dst, uint32(HeaderSize+size))
	h := Header{Type: p.Type(), ErrorCode: code, BodySize: uint32(size)}
	if err = h.FormatTo(dst[LengthSize:]); err != nil {
		return 0, false, err
	}
	if size > 0 {
		if _, err = p.MarshalTo(dst[FrameSize:n]); err != nil {
			return 0, false, err
		}
	}
	return n, true, nil
}

// RawPacket is a business packet whose body is already encoded.
type RawPacket struct {
	PType PacketType
	Body  []byte
}

func (p *RawPacket) Type() PacketType { return p.PType }
func (p *RawPacket) BodySize() int    { return len(p.Body) }

func (p *RawPacket) MarshalTo(buf []byte) (int, error) {
	if len(buf) < len(p.Body) {
		return 0, ErrBufferTooSmall
	}
	return copy(buf, p.Body), nil
}

func (p *RawPacket) Unmarshal(body []byte) error {
	p.Body = append(p.Body[:0], body...)
	return nil
}

// Codec encodes business payloads, see package codec.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// NewMessage encodes v with c into a packet of type typ.
func NewMessage(typ PacketType, v any, c Codec) (*RawPacket, error) {
	body, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	return &RawPacket{PType: typ, Body: body}, nil
}

// DecodeMessage decodes a body received for a packet created by NewMessage.
func DecodeMessage(body []byte, v any, c Codec) error {
	return c.Decode(body, v)
}
