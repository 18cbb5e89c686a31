package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Session is a logical peer identity that survives its socket.
//
// The state field is the only part touched concurrently by I/O goroutines and
// the worker; every transition goes through ChangeState.
type Session struct {
	id    atomic.Uint64
	state atomic.Uint32
	refs  atomic.Int32

	keyLock sync.RWMutex
	key     Key

	lastHeartbeatSent     atomic.Int64
	lastHeartbeatReceived atomic.Int64
	abandonedAt           atomic.Int64
	ping                  atomic.Duration

	// worker only
	userData map[uint64]uint64
}

func New() *Session {
	return &Session{userData: make(map[uint64]uint64)}
}

// Reset prepares a recycled session for a new identity.
func (s *Session) Reset(id uint64) {
	s.id.Store(id)
	s.state.Store(uint32(Closed))
	s.refs.Store(0)
	s.SetKey(EmptyKey)
	s.lastHeartbeatSent.Store(0)
	s.lastHeartbeatReceived.Store(0)
	s.abandonedAt.Store(0)
	s.ping.Store(0)
	s.ResetUserData()
}

func (s *Session) ID() uint64 {
	return s.id.Load()
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) ChangeState(expected, desired State) bool {
	return s.state.CompareAndSwap(uint32(expected), uint32(desired))
}

// MustChangeState panics when the transition is not possible, the shared
// state can not be trusted anymore at that point.
func (s *Session) MustChangeState(expected, desired State) {
	if !s.ChangeState(expected, desired) {
		panic(fmt.Sprintf("gsession: session %d state %v, expected %v before moving to %v",
			s.ID(), s.State(), expected, desired))
	}
}

func (s *Session) Key() Key {
	s.keyLock.RLock()
	defer s.keyLock.RUnlock()
	return s.key
}

func (s *Session) SetKey(k Key) {
	s.keyLock.Lock()
	s.key = k
	s.keyLock.Unlock()
}

// ResetKey generates and stores a new random key
func (s *Session) ResetKey() Key {
	k := NewKey()
	s.SetKey(k)
	return k
}

func (s *Session) Retain() int32 {
	return s.refs.Inc()
}

// Release returns the remaining reference count; the owner recycles at zero.
func (s *Session) Release() int32 {
	n := s.refs.Dec()
	if n < 0 {
		panic(fmt.Sprintf("gsession: session %d released more than retained", s.ID()))
	}
	return n
}

func (s *Session) RefCount() int32 {
	return s.refs.Load()
}

func (s *Session) UpdateHeartbeatSendingTime(now time.Time) {
	s.lastHeartbeatSent.Store(now.UnixNano())
}

// UpdateHeartbeatReceivingTime records the reply and derives the ping from the last request sent.
func (s *Session) UpdateHeartbeatReceivingTime(now time.Time) {
	recv := now.UnixNano()
	s.lastHeartbeatReceived.Store(recv)
	if sent := s.lastHeartbeatSent.Load(); sent != 0 && recv >= sent {
		s.ping.Store(time.Duration(recv-sent) / 2)
	}
}

func (s *Session) LastHeartbeatSendingTime() time.Time {
	return unixNano(s.lastHeartbeatSent.Load())
}

func (s *Session) LastHeartbeatReceivingTime() time.Time {
	return unixNano(s.lastHeartbeatReceived.Load())
}

func (s *Session) UpdateAbandonedTime(now time.Time) {
	s.abandonedAt.Store(now.UnixNano())
}

func (s *Session) AbandonedTime() time.Time {
	return unixNano(s.abandonedAt.Load())
}

func (s *Session) Ping() time.Duration {
	return s.ping.Load()
}

// SetPing takes the ping measured by the peer
func (s *Session) SetPing(ping time.Duration) {
	s.ping.Store(ping)
}

func (s *Session) UserData(k uint64) (uint64, bool) {
	v, ok := s.userData[k]
	return v, ok
}

func (s *Session) SetUserData(k, v uint64) {
	s.userData[k] = v
}

func (s *Session) DeleteUserData(k uint64) {
	delete(s.userData, k)
}

func (s *Session) ResetUserData() {
	for k := range s.userData {
		delete(s.userData, k)
	}
}

func unixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
