package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	s := New()
	s.Reset(1)
	require.Equal(t, Closed, s.State())

	assert.True(t, s.ChangeState(Closed, Opened))
	assert.False(t, s.ChangeState(Closed, Opened))
	assert.True(t, s.ChangeState(Opened, Abandoned))
	assert.True(t, s.ChangeState(Abandoned, Wait))
	assert.False(t, s.ChangeState(Abandoned, Wait))
	assert.True(t, s.ChangeState(Wait, Opened))
	assert.Equal(t, Opened, s.State())

	assert.Panics(t, func() { s.MustChangeState(Wait, Closed) })
	assert.Equal(t, Opened, s.State())
}

func TestResetClearsIdentity(t *testing.T) {
	s := New()
	s.Reset(7)
	s.MustChangeState(Closed, Opened)
	key := s.ResetKey()
	s.SetUserData(1, 100)
	s.UpdateHeartbeatSendingTime(time.Now())
	s.Retain()

	s.Reset(8)
	assert.Equal(t, uint64(8), s.ID())
	assert.Equal(t, Closed, s.State())
	assert.NotEqual(t, key, s.Key())
	assert.True(t, s.Key().IsEmpty())
	assert.True(t, s.LastHeartbeatSendingTime().IsZero())
	_, ok := s.UserData(1)
	assert.False(t, ok)
	assert.EqualValues(t, 0, s.RefCount())
}

func TestPing(t *testing.T) {
	s := New()
	now := time.Now()

	s.UpdateHeartbeatReceivingTime(now)
	assert.Zero(t, s.Ping(), "no request sent yet")

	s.UpdateHeartbeatSendingTime(now)
	s.UpdateHeartbeatReceivingTime(now.Add(80 * time.Millisecond))
	assert.Equal(t, 40*time.Millisecond, s.Ping())
	assert.Equal(t, now.Add(80*time.Millisecond).UnixNano(), s.LastHeartbeatReceivingTime().UnixNano())
}

func TestKeys(t *testing.T) {
	a, b := NewKey(), NewKey()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsEmpty())
	assert.True(t, EmptyKey.IsEmpty())
	assert.Len(t, a.String(), 11)
}

func TestRefCount(t *testing.T) {
	s := New()
	s.Retain()
	s.Retain()
	assert.EqualValues(t, 1, s.Release())
	assert.EqualValues(t, 0, s.Release())
	assert.Panics(t, func() { s.Release() })
}
