package options

import (
	"time"

	"github.com/huoshan017/gsession/log"
)

const (
	DefaultWorkerCount      = 2
	DefaultBufferPoolSize   = 8
	DefaultBufferCapacity   = 65536
	DefaultTickSpan         = 100 * time.Millisecond
	DefaultEventChanLen     = 1024
	DefaultDialRetryCount   = 3
	DefaultDialRetryBackoff = 100 * time.Millisecond
	DefaultDialTimeout      = 3 * time.Second
	DefaultShutdownTimeout  = 3 * time.Second
	DefaultKeepAlivePeriod  = 30 * time.Second
)

// ServerOptions configure the tcp stream backend
type ServerOptions struct {
	Options
	workerCount         int
	readBufferPoolSize  int
	writeBufferPoolSize int
	readBufferCapacity  int
	writeBufferCapacity int
	tickSpan            time.Duration
	eventChanLen        int  // 每个IO分片事件通道长度
	connMaxCount        int  // 連接最大數, 0不限制
	reuseAddr           bool // 重用地址
	reusePort           bool // 重用端口
	noDelay             bool
	keepAlive           bool
	keepAlivePeriod     time.Duration
	dialRetryCount      int
	dialRetryBackoff    time.Duration
	dialTimeout         time.Duration
	shutdownTimeout     time.Duration // 优雅关闭时等待连接断开的最长时间
}

type ServerOption func(*ServerOptions)

func NewServerOptions(opts ...ServerOption) *ServerOptions {
	options := &ServerOptions{
		workerCount:         DefaultWorkerCount,
		readBufferPoolSize:  DefaultBufferPoolSize,
		writeBufferPoolSize: DefaultBufferPoolSize,
		readBufferCapacity:  DefaultBufferCapacity,
		writeBufferCapacity: DefaultBufferCapacity,
		tickSpan:            DefaultTickSpan,
		eventChanLen:        DefaultEventChanLen,
		noDelay:             true,
		keepAlive:           true,
		keepAlivePeriod:     DefaultKeepAlivePeriod,
		dialRetryCount:      DefaultDialRetryCount,
		dialRetryBackoff:    DefaultDialRetryBackoff,
		dialTimeout:         DefaultDialTimeout,
		shutdownTimeout:     DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func (options *ServerOptions) GetWorkerCount() int {
	return options.workerCount
}

func (options *ServerOptions) SetWorkerCount(count int) {
	options.workerCount = count
}

func (options *ServerOptions) GetReadBufferPoolSize() int {
	return options.readBufferPoolSize
}

func (options *ServerOptions) SetReadBufferPoolSize(size int) {
	options.readBufferPoolSize = size
}

func (options *ServerOptions) GetWriteBufferPoolSize() int {
	return options.writeBufferPoolSize
}

func (options *ServerOptions) SetWriteBufferPoolSize(size int) {
	options.writeBufferPoolSize = size
}

func (options *ServerOptions) GetReadBufferCapacity() int {
	return options.readBufferCapacity
}

func (options *ServerOptions) SetReadBufferCapacity(capacity int) {
	options.readBufferCapacity = capacity
}

func (options *ServerOptions) GetWriteBufferCapacity() int {
	return options.writeBufferCapacity
}

func (options *ServerOptions) SetWriteBufferCapacity(capacity int) {
	options.writeBufferCapacity = capacity
}

func (options *ServerOptions) GetTickSpan() time.Duration {
	return options.tickSpan
}

func (options *ServerOptions) SetTickSpan(span time.Duration) {
	options.tickSpan = span
}

func (options *ServerOptions) GetEventChanLen() int {
	return options.eventChanLen
}

func (options *ServerOptions) SetEventChanLen(length int) {
	options.eventChanLen = length
}

func (options *ServerOptions) GetConnMaxCount() int {
	return options.connMaxCount
}

func (options *ServerOptions) SetConnMaxCount(count int) {
	options.connMaxCount = count
}

func (options *ServerOptions) GetReuseAddr() bool {
	return options.reuseAddr
}

func (options *ServerOptions) SetReuseAddr(enable bool) {
	options.reuseAddr = enable
}

func (options *ServerOptions) GetReusePort() bool {
	return options.reusePort
}

func (options *ServerOptions) SetReusePort(enable bool) {
	options.reusePort = enable
}

func (options *ServerOptions) GetNoDelay() bool {
	return options.noDelay
}

func (options *ServerOptions) SetNoDelay(noDelay bool) {
	options.noDelay = noDelay
}

func (options *ServerOptions) GetKeepAlive() bool {
	return options.keepAlive
}

func (options *ServerOptions) SetKeepAlive(keepAlive bool) {
	options.keepAlive = keepAlive
}

func (options *ServerOptions) GetKeepAlivePeriod() time.Duration {
	return options.keepAlivePeriod
}

func (options *ServerOptions) SetKeepAlivePeriod(period time.Duration) {
	options.keepAlivePeriod = period
}

func (options *ServerOptions) GetDialRetryCount() int {
	return options.dialRetryCount
}

func (options *ServerOptions) SetDialRetryCount(count int) {
	options.dialRetryCount = count
}

func (options *ServerOptions) GetDialRetryBackoff() time.Duration {
	return options.dialRetryBackoff
}

func (options *ServerOptions) SetDialRetryBackoff(backoff time.Duration) {
	options.dialRetryBackoff = backoff
}

func (options *ServerOptions) GetDialTimeout() time.Duration {
	return options.dialTimeout
}

func (options *ServerOptions) SetDialTimeout(timeout time.Duration) {
	options.dialTimeout = timeout
}

func (options *ServerOptions) GetShutdownTimeout() time.Duration {
	return options.shutdownTimeout
}

func (options *ServerOptions) SetShutdownTimeout(timeout time.Duration) {
	options.shutdownTimeout = timeout
}

func WithWorkerCount(count int) ServerOption {
	return func(options *ServerOptions) {
		options.SetWorkerCount(count)
	}
}

func WithReadBufferPool(size, capacity int) ServerOption {
	return func(options *ServerOptions) {
		options.SetReadBufferPoolSize(size)
		options.SetReadBufferCapacity(capacity)
	}
}

func WithWriteBufferPool(size, capacity int) ServerOption {
	return func(options *ServerOptions) {
		options.SetWriteBufferPoolSize(size)
		options.SetWriteBufferCapacity(capacity)
	}
}

func WithTickSpan(span time.Duration) ServerOption {
	return func(options *ServerOptions) {
		options.SetTickSpan(span)
	}
}

func WithEventChanLen(length int) ServerOption {
	return func(options *ServerOptions) {
		options.SetEventChanLen(length)
	}
}

func WithConnMaxCount(count int) ServerOption {
	return func(options *ServerOptions) {
		options.SetConnMaxCount(count)
	}
}

func WithReuseAddr(enable bool) ServerOption {
	return func(options *ServerOptions) {
		options.SetReuseAddr(enable)
	}
}

func WithReusePort(enable bool) ServerOption {
	return func(options *ServerOptions) {
		options.SetReusePort(enable)
	}
}

func WithNoDelay(noDelay bool) ServerOption {
	return func(options *ServerOptions) {
		options.SetNoDelay(noDelay)
	}
}

func WithKeepAlive(keepAlive bool, period time.Duration) ServerOption {
	return func(options *ServerOptions) {
		options.SetKeepAlive(keepAlive)
		options.SetKeepAlivePeriod(period)
	}
}

func WithDialRetry(count int, backoff time.Duration) ServerOption {
	return func(options *ServerOptions) {
		options.SetDialRetryCount(count)
		options.SetDialRetryBackoff(backoff)
	}
}

func WithDialTimeout(timeout time.Duration) ServerOption {
	return func(options *ServerOptions) {
		options.SetDialTimeout(timeout)
	}
}

func WithShutdownTimeout(timeout time.Duration) ServerOption {
	return func(options *ServerOptions) {
		options.SetShutdownTimeout(timeout)
	}
}

func WithServerLogger(logger log.Logger) ServerOption {
	return func(options *ServerOptions) {
		options.SetLogger(logger)
	}
}
