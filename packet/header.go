package packet

import (
	"encoding/binary"
	"errors"
)

const (
	LengthSize = 4 // u32 total length prefix
	HeaderSize = 8 // u16 type, u16 error code, u32 body size
	FrameSize  = LengthSize + HeaderSize
)

var (
	ErrHeaderLengthTooSmall = errors.New("gsession: buffer too small for packet header")
	ErrBufferTooSmall       = errors.New("gsession: buffer too small for packet")
	ErrBodySizeMismatch     = errors.New("gsession: body size does not match frame length")
	ErrBodyTooShort         = errors.New("gsession: packet body too short")
)

// Header precedes every body on the wire, itself preceded by the total length
// (HeaderSize + BodySize). All integers are little endian.
type Header struct {
	Type      PacketType
	ErrorCode ErrorCode
	BodySize  uint32
}

func (h Header) FormatTo(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrHeaderLengthTooSmall
	}
	binary.LittleEndian.PutUint16(buf[0:], uint16(h.Type))
	binary.LittleEndian.PutUint16(buf[2:], uint16(h.ErrorCode))
	binary.LittleEndian.PutUint32(buf[4:], h.BodySize)
	return nil
}

func (h *Header) UnformatFrom(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrHeaderLengthTooSmall
	}
	h.Type = PacketType(binary.LittleEndian.Uint16(buf[0:]))
	h.ErrorCode = ErrorCode(binary.LittleEndian.Uint16(buf[2:]))
	h.BodySize = binary.LittleEndian.Uint32(buf[4:])
	return nil
}

// FrameLength reads the total length prefix. ok is false when fewer than LengthSize bytes are given.
func FrameLength(buf []byte) (uint32, bool) {
	if len(buf) < LengthSize {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf), true
}

// Frames walks the complete frames at the start of buf and calls fn for each
// until fn returns false. It returns the bytes consumed; a trailing partial
// frame is left alone.
func Frames(buf []byte, fn func(h Header, body []byte) bool) (int, error) {
	consumed := 0
	for {
		total, ok := FrameLength(buf[consumed:])
		if !ok {
			return consumed, nil
		}
		if total < HeaderSize {
			return consumed, ErrBodySizeMismatch
		}
		end := consumed + LengthSize + int(total)
		if end > len(buf) {
			return consumed, nil
		}
		var h Header
		if err := h.UnformatFrom(buf[consumed+LengthSize:]); err != nil {
			return consumed, err
		}
		if h.BodySize != total-HeaderSize {
			return consumed, ErrBodySizeMismatch
		}
		body := buf[consumed+FrameSize : end]
		consumed = end
		if !fn(h, body) {
			return consumed, nil
		}
	}
}
