package engine

import (
	"github.com/huoshan017/gsession/stream"
)

// socketWorkerInfo is the per io worker shard state, touched by that worker only.
type socketWorkerInfo struct {
	activated map[uint64]stream.TransferStream
	opened    map[uint64]*SocketSession
	abandoned map[uint64]*SocketSession
	// terminal contexts that did not fit the delivery queue
	deferred []*SocketContext
}

func newSocketWorkerInfo() *socketWorkerInfo {
	return &socketWorkerInfo{
		activated: make(map[uint64]stream.TransferStream),
		opened:    make(map[uint64]*SocketSession),
		abandoned: make(map[uint64]*SocketSession),
	}
}
