package engine

import (
	"time"

	"github.com/huoshan017/gsession/stream"
)

type StreamType uint8

const (
	StreamAcceptor StreamType = iota
	StreamConnector
)

// streamExtension is the engine state kept in a stream's user data. Only the
// stream's io worker touches it.
type streamExtension struct {
	streamType  StreamType
	session     *SocketSession
	connectorID uint64
	createdAt   time.Time
	authRetries int
}

func extensionOf(s stream.TransferStream) *streamExtension {
	ext, _ := s.UserData().(*streamExtension)
	return ext
}
