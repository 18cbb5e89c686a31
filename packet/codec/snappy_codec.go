package codec

import (
	"github.com/golang/snappy"
	"github.com/huoshan017/gsession/packet"
	"github.com/pkg/errors"
)

// SnappyCodec compresses what the inner codec produces.
type SnappyCodec struct {
	inner packet.Codec
}

func NewSnappyCodec(inner packet.Codec) *SnappyCodec {
	return &SnappyCodec{inner: inner}
}

func (c *SnappyCodec) Encode(i any) ([]byte, error) {
	d, err := c.inner.Encode(i)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, d), nil
}

func (c *SnappyCodec) Decode(d []byte, i any) error {
	raw, err := snappy.Decode(nil, d)
	if err != nil {
		return errors.Wrap(err, "gsession: snappy decode")
	}
	return c.inner.Decode(raw, i)
}
