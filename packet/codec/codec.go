// Package codec holds the business payload codecs a game server can plug
// into packet.NewMessage. The engine itself never looks into business bodies.
package codec

import (
	"github.com/huoshan017/gsession/packet"
	"github.com/pkg/errors"
)

var (
	_ packet.Codec = (*JsonCodec)(nil)
	_ packet.Codec = (*MsgpackCodec)(nil)
	_ packet.Codec = (*ProtobufCodec)(nil)
	_ packet.Codec = (*ThriftCodec)(nil)
	_ packet.Codec = (*SnappyCodec)(nil)
)

type Type int8

const (
	TypeJson Type = iota
	TypeMsgpack
	TypeProtobuf
	TypeThrift
)

var typeNames = [...]string{"json", "msgpack", "protobuf", "thrift"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// ParseType maps a codec name such as "msgpack" to its Type.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return TypeJson, errors.Errorf("gsession: unknown codec %q", name)
}

// New returns the codec of typ, wrapped in snappy compression when compress is set
func New(typ Type, compress bool) packet.Codec {
	var c packet.Codec
	switch typ {
	case TypeMsgpack:
		c = NewMsgpackCodec()
	case TypeProtobuf:
		c = NewProtobufCodec()
	case TypeThrift:
		c = NewThriftCodec()
	default:
		c = NewJsonCodec()
	}
	if compress {
		c = NewSnappyCodec(c)
	}
	return c
}
