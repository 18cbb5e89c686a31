package codec

import (
	"encoding/json"

	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	thrifter "github.com/thrift-iterator/go"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrNotProtoMessage = errors.New("gsession: value is not a protobuf message")

// marshalCodec adapts a marshal/unmarshal pair to packet.Codec and tags
// failures with the format name.
type marshalCodec struct {
	typ       Type
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

func (c *marshalCodec) Type() Type {
	return c.typ
}

func (c *marshalCodec) Encode(i any) ([]byte, error) {
	d, err := c.marshal(i)
	if err != nil {
		return nil, errors.WithMessagef(err, "gsession: %s encode", c.typ)
	}
	return d, nil
}

func (c *marshalCodec) Decode(d []byte, i any) error {
	if err := c.unmarshal(d, i); err != nil {
		return errors.WithMessagef(err, "gsession: %s decode", c.typ)
	}
	return nil
}

type JsonCodec struct{ marshalCodec }

func NewJsonCodec() *JsonCodec {
	return &JsonCodec{marshalCodec{TypeJson, json.Marshal, json.Unmarshal}}
}

type MsgpackCodec struct{ marshalCodec }

func NewMsgpackCodec() *MsgpackCodec {
	return &MsgpackCodec{marshalCodec{TypeMsgpack, msgpack.Marshal, msgpack.Unmarshal}}
}

type ThriftCodec struct{ marshalCodec }

func NewThriftCodec() *ThriftCodec {
	return &ThriftCodec{marshalCodec{TypeThrift, thrifter.Marshal, thrifter.Unmarshal}}
}

// ProtobufCodec only accepts values generated by gogo/protobuf (or anything
// else satisfying proto.Message).
type ProtobufCodec struct{ marshalCodec }

func NewProtobufCodec() *ProtobufCodec {
	return &ProtobufCodec{marshalCodec{TypeProtobuf, marshalProto, unmarshalProto}}
}

func marshalProto(i any) ([]byte, error) {
	m, ok := i.(proto.Message)
	if !ok {
		return nil, ErrNotProtoMessage
	}
	return proto.Marshal(m)
}

func unmarshalProto(d []byte, i any) error {
	m, ok := i.(proto.Message)
	if !ok {
		return ErrNotProtoMessage
	}
	return proto.Unmarshal(d, m)
}
