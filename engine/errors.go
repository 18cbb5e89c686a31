package engine

import "errors"

var (
	ErrEngineStarted      = errors.New("gsession: engine already started")
	ErrNoWorkerShard      = errors.New("gsession: stream backend has no io worker")
	ErrWorkerAlreadyBound = errors.New("gsession: worker already bound to an engine")
	ErrPacketSerialize    = errors.New("gsession: packet does not fit a write buffer")
)
