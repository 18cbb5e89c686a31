package engine

import (
	"strconv"

	"github.com/huoshan017/gsession/session"
	"github.com/huoshan017/gsession/stream"
	cmap "github.com/orcaman/concurrent-map"
	"go.uber.org/atomic"
)

// ConnectorInfo is an outbound target the engine keeps connected.
type ConnectorInfo struct {
	ID         uint64
	Address    stream.Address
	Attachment uint64
	Stream     stream.TransferStream
	// identity issued by the remote side, kept for reconnection
	SessionID  uint64
	SessionKey session.Key
	// local session abandoned together with the remote one
	localSessionID uint64
}

func (ci *ConnectorInfo) clearSession() {
	ci.SessionID = 0
	ci.SessionKey = session.EmptyKey
	ci.localSessionID = 0
}

func mapKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// connectorRegistry never lets a *ConnectorInfo leave the map shard lock,
// callers work on copies.
type connectorRegistry struct {
	m   cmap.ConcurrentMap
	seq atomic.Uint64
}

func newConnectorRegistry() *connectorRegistry {
	return &connectorRegistry{m: cmap.New()}
}

func (r *connectorRegistry) insert(addr stream.Address, attachment uint64) ConnectorInfo {
	ci := &ConnectorInfo{ID: r.seq.Inc(), Address: addr, Attachment: attachment}
	out := *ci
	r.m.Set(mapKey(ci.ID), ci)
	return out
}

// process runs fn on the entry under the shard lock and returns a copy of the result
func (r *connectorRegistry) process(id uint64, fn func(ci *ConnectorInfo)) (out ConnectorInfo, found bool) {
	r.m.RemoveCb(mapKey(id), func(key string, v interface{}, exists bool) bool {
		if !exists {
			return false
		}
		ci := v.(*ConnectorInfo)
		if fn != nil {
			fn(ci)
		}
		out, found = *ci, true
		return false
	})
	return
}

func (r *connectorRegistry) get(id uint64) (ConnectorInfo, bool) {
	return r.process(id, nil)
}

func (r *connectorRegistry) remove(id uint64) (out ConnectorInfo, found bool) {
	r.m.RemoveCb(mapKey(id), func(key string, v interface{}, exists bool) bool {
		if exists {
			out, found = *v.(*ConnectorInfo), true
		}
		return exists
	})
	return
}

func (r *connectorRegistry) count() int {
	return r.m.Count()
}

// abandonedTable holds sessions waiting for their peer to come back. It owns
// one reference of every session inside.
type abandonedTable struct {
	m cmap.ConcurrentMap
}

func newAbandonedTable() *abandonedTable {
	return &abandonedTable{m: cmap.New()}
}

func (t *abandonedTable) insert(s *SocketSession) {
	s.Retain()
	t.m.Set(mapKey(s.ID()), s)
}

// removeIf removes the session of id when pred holds, evaluated under the
// shard lock. The table reference moves to the caller.
func (t *abandonedTable) removeIf(id uint64, pred func(s *SocketSession) bool) (removed *SocketSession, ok bool) {
	t.m.RemoveCb(mapKey(id), func(key string, v interface{}, exists bool) bool {
		if !exists {
			return false
		}
		s := v.(*SocketSession)
		if !pred(s) {
			return false
		}
		removed, ok = s, true
		return true
	})
	return
}

func (t *abandonedTable) count() int {
	return t.m.Count()
}
