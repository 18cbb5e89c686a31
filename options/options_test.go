package options

import (
	"testing"
	"time"

	"github.com/huoshan017/gsession/log"
	"github.com/stretchr/testify/assert"
)

func TestEngineDefaults(t *testing.T) {
	o := NewEngineOptions()
	assert.Equal(t, 64, o.GetMaxSessionCount())
	assert.Equal(t, 5*time.Second, o.GetSocketIdleTimeout())
	assert.Equal(t, 5*time.Second, o.GetSessionIdleTimeout())
	assert.Equal(t, 2*time.Second, o.GetSessionHeartbeatInterval())
	assert.False(t, o.GetUseSessionReconnect())
	assert.Equal(t, 30*time.Second, o.GetSessionReconnectTimeout())
	assert.Equal(t, 500*time.Millisecond, o.GetWorkerUpdateTick())
	assert.Equal(t, log.DefaultLogger, o.GetLogger())
}

func TestEngineOptionsApply(t *testing.T) {
	o := NewEngineOptions(
		WithMaxSessionCount(2),
		WithUseSessionReconnect(true),
		WithSessionReconnectTimeout(time.Second),
		WithQueueCapacity(3),
		WithLogger(log.DiscardLogger),
	)
	assert.Equal(t, 2, o.GetMaxSessionCount())
	assert.True(t, o.GetUseSessionReconnect())
	assert.Equal(t, time.Second, o.GetSessionReconnectTimeout())
	assert.Equal(t, 3, o.GetQueueCapacity())
	assert.Equal(t, log.DiscardLogger, o.GetLogger())
}

func TestServerOptionsApply(t *testing.T) {
	o := NewServerOptions(WithWorkerCount(4), WithReadBufferPool(16, 1024), WithReuseAddr(true))
	assert.Equal(t, 4, o.GetWorkerCount())
	assert.Equal(t, 16, o.GetReadBufferPoolSize())
	assert.Equal(t, 1024, o.GetReadBufferCapacity())
	assert.Equal(t, DefaultBufferCapacity, o.GetWriteBufferCapacity())
	assert.True(t, o.GetReuseAddr())
	assert.True(t, o.GetNoDelay())
	assert.Equal(t, DefaultShutdownTimeout, o.GetShutdownTimeout())

	o = NewServerOptions(WithShutdownTimeout(time.Second))
	assert.Equal(t, time.Second, o.GetShutdownTimeout())
	assert.Equal(t, DefaultDialTimeout, o.GetDialTimeout())
}
