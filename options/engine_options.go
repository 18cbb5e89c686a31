package options

import (
	"time"

	"github.com/huoshan017/gsession/log"
)

const (
	DefaultMaxSessionCount          = 64
	DefaultSocketIdleTimeout        = 5000 * time.Millisecond // 未建立会话的连接超时
	DefaultSessionIdleTimeout       = 5000 * time.Millisecond // 心跳超时
	DefaultSessionHeartbeatInterval = 2000 * time.Millisecond
	DefaultSessionReconnectTimeout  = 30000 * time.Millisecond
	DefaultWorkerUpdateTick         = 500 * time.Millisecond
	DefaultQueueCapacity            = 65536
	DefaultMaxContextsPerBuffer     = 64
	DefaultAuthRetryLimit           = 10
	DefaultWorkerIdleBackoff        = time.Microsecond
)

// EngineOptions configure a network engine
type EngineOptions struct {
	Options
	maxSessionCount          int
	socketIdleTimeout        time.Duration
	sessionIdleTimeout       time.Duration
	sessionHeartbeatInterval time.Duration
	useSessionReconnect      bool
	sessionReconnectTimeout  time.Duration
	workerUpdateTick         time.Duration
	workerIdleBackoff        time.Duration
	queueCapacity            int
	maxContextsPerBuffer     int
	authRetryLimit           int
	throttleTick             time.Duration
}

type EngineOption func(*EngineOptions)

func NewEngineOptions(opts ...EngineOption) *EngineOptions {
	options := &EngineOptions{
		maxSessionCount:          DefaultMaxSessionCount,
		socketIdleTimeout:        DefaultSocketIdleTimeout,
		sessionIdleTimeout:       DefaultSessionIdleTimeout,
		sessionHeartbeatInterval: DefaultSessionHeartbeatInterval,
		sessionReconnectTimeout:  DefaultSessionReconnectTimeout,
		workerUpdateTick:         DefaultWorkerUpdateTick,
		workerIdleBackoff:        DefaultWorkerIdleBackoff,
		queueCapacity:            DefaultQueueCapacity,
		maxContextsPerBuffer:     DefaultMaxContextsPerBuffer,
		authRetryLimit:           DefaultAuthRetryLimit,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func (options *EngineOptions) GetMaxSessionCount() int {
	return options.maxSessionCount
}

func (options *EngineOptions) SetMaxSessionCount(count int) {
	options.maxSessionCount = count
}

func (options *EngineOptions) GetSocketIdleTimeout() time.Duration {
	return options.socketIdleTimeout
}

func (options *EngineOptions) SetSocketIdleTimeout(timeout time.Duration) {
	options.socketIdleTimeout = timeout
}

func (options *EngineOptions) GetSessionIdleTimeout() time.Duration {
	return options.sessionIdleTimeout
}

func (options *EngineOptions) SetSessionIdleTimeout(timeout time.Duration) {
	options.sessionIdleTimeout = timeout
}

func (options *EngineOptions) GetSessionHeartbeatInterval() time.Duration {
	return options.sessionHeartbeatInterval
}

func (options *EngineOptions) SetSessionHeartbeatInterval(interval time.Duration) {
	options.sessionHeartbeatInterval = interval
}

func (options *EngineOptions) GetUseSessionReconnect() bool {
	return options.useSessionReconnect
}

func (options *EngineOptions) SetUseSessionReconnect(enable bool) {
	options.useSessionReconnect = enable
}

func (options *EngineOptions) GetSessionReconnectTimeout() time.Duration {
	return options.sessionReconnectTimeout
}

func (options *EngineOptions) SetSessionReconnectTimeout(timeout time.Duration) {
	options.sessionReconnectTimeout = timeout
}

func (options *EngineOptions) GetWorkerUpdateTick() time.Duration {
	return options.workerUpdateTick
}

func (options *EngineOptions) SetWorkerUpdateTick(tick time.Duration) {
	options.workerUpdateTick = tick
}

func (options *EngineOptions) GetWorkerIdleBackoff() time.Duration {
	return options.workerIdleBackoff
}

func (options *EngineOptions) SetWorkerIdleBackoff(backoff time.Duration) {
	options.workerIdleBackoff = backoff
}

func (options *EngineOptions) GetQueueCapacity() int {
	return options.queueCapacity
}

func (options *EngineOptions) SetQueueCapacity(capacity int) {
	options.queueCapacity = capacity
}

func (options *EngineOptions) GetMaxContextsPerBuffer() int {
	return options.maxContextsPerBuffer
}

func (options *EngineOptions) SetMaxContextsPerBuffer(count int) {
	options.maxContextsPerBuffer = count
}

func (options *EngineOptions) GetAuthRetryLimit() int {
	return options.authRetryLimit
}

func (options *EngineOptions) SetAuthRetryLimit(limit int) {
	options.authRetryLimit = limit
}

// GetThrottleTick is the period of PacketThrottler.TryFlushPacket, 0 flushes on every call
func (options *EngineOptions) GetThrottleTick() time.Duration {
	return options.throttleTick
}

func (options *EngineOptions) SetThrottleTick(tick time.Duration) {
	options.throttleTick = tick
}

func WithMaxSessionCount(count int) EngineOption {
	return func(options *EngineOptions) {
		options.SetMaxSessionCount(count)
	}
}

func WithSocketIdleTimeout(timeout time.Duration) EngineOption {
	return func(options *EngineOptions) {
		options.SetSocketIdleTimeout(timeout)
	}
}

func WithSessionIdleTimeout(timeout time.Duration) EngineOption {
	return func(options *EngineOptions) {
		options.SetSessionIdleTimeout(timeout)
	}
}

func WithSessionHeartbeatInterval(interval time.Duration) EngineOption {
	return func(options *EngineOptions) {
		options.SetSessionHeartbeatInterval(interval)
	}
}

func WithUseSessionReconnect(enable bool) EngineOption {
	return func(options *EngineOptions) {
		options.SetUseSessionReconnect(enable)
	}
}

func WithSessionReconnectTimeout(timeout time.Duration) EngineOption {
	return func(options *EngineOptions) {
		options.SetSessionReconnectTimeout(timeout)
	}
}

func WithWorkerUpdateTick(tick time.Duration) EngineOption {
	return func(options *EngineOptions) {
		options.SetWorkerUpdateTick(tick)
	}
}

func WithWorkerIdleBackoff(backoff time.Duration) EngineOption {
	return func(options *EngineOptions) {
		options.SetWorkerIdleBackoff(backoff)
	}
}

func WithQueueCapacity(capacity int) EngineOption {
	return func(options *EngineOptions) {
		options.SetQueueCapacity(capacity)
	}
}

func WithMaxContextsPerBuffer(count int) EngineOption {
	return func(options *EngineOptions) {
		options.SetMaxContextsPerBuffer(count)
	}
}

func WithAuthRetryLimit(limit int) EngineOption {
	return func(options *EngineOptions) {
		options.SetAuthRetryLimit(limit)
	}
}

func WithThrottleTick(tick time.Duration) EngineOption {
	return func(options *EngineOptions) {
		options.SetThrottleTick(tick)
	}
}

func WithLogger(logger log.Logger) EngineOption {
	return func(options *EngineOptions) {
		options.SetLogger(logger)
	}
}
