// Package tcp is a net.Conn backed stream.Server.
package tcp

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/huoshan017/gsession/control"
	"github.com/huoshan017/gsession/log"
	"github.com/huoshan017/gsession/options"
	"github.com/huoshan017/gsession/stream"
	cmap "github.com/orcaman/concurrent-map"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	ErrServerStarted = errors.New("gsession: tcp server already started")
	ErrNoHandler     = errors.New("gsession: tcp server has no event handler")
)

type pendingConnect struct {
	addr       stream.Address
	attachment uint64
}

type Server struct {
	options   *options.ServerOptions
	logger    log.Logger
	handler   stream.EventHandler
	listener  net.Listener
	shards    []*shard
	conns     cmap.ConcurrentMap
	connSeq   atomic.Uint64
	connCount atomic.Int64

	mu      sync.Mutex
	pending []pendingConnect
	started atomic.Bool
	closing atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
}

func NewServer(opts ...options.ServerOption) *Server {
	o := options.NewServerOptions(opts...)
	if o.GetWorkerCount() < 1 {
		o.SetWorkerCount(1)
	}
	s := &Server{
		options: o,
		logger:  o.GetLogger(),
		conns:   cmap.New(),
	}
	s.shards = make([]*shard, o.GetWorkerCount())
	for i := range s.shards {
		s.shards[i] = newShard(i, s, o.GetEventChanLen())
	}
	return s
}

func (s *Server) SetEventHandler(handler stream.EventHandler) {
	s.handler = handler
}

func (s *Server) WorkerCount() int {
	return len(s.shards)
}

// Listen binds the acceptor, engines that only connect out skip it
func (s *Server) Listen(addr string) error {
	lc := net.ListenConfig{
		Control: control.GetControl(control.Options{
			ReuseAddr: s.options.GetReuseAddr(),
			ReusePort: s.options.GetReusePort(),
		}),
	}
	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	s.listener = listener
	return nil
}

func (s *Server) ListenAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Start() error {
	if s.handler == nil {
		return ErrNoHandler
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerStarted
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.group, _ = errgroup.WithContext(s.ctx)
	for _, sh := range s.shards {
		sh.ctx = s.ctx
		s.group.Go(sh.run)
	}
	if s.listener != nil {
		s.group.Go(s.serve)
	}
	s.group.Go(s.tick)

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, pc := range pending {
		s.Connect(pc.addr, pc.attachment)
	}
	return nil
}

func (s *Server) shardOf(key string) *shard {
	return s.shards[xxh3.HashString(key)%uint64(len(s.shards))]
}

func (s *Server) setupConn(c net.Conn) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(s.options.GetNoDelay())
	if s.options.GetKeepAlive() {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(s.options.GetKeepAlivePeriod())
	}
}

func (s *Server) addConn(c net.Conn) *conn {
	s.setupConn(c)
	cn := newConn(s, s.shardOf(c.RemoteAddr().String()), c)
	s.conns.Set(mapKey(cn.id), cn)
	s.connCount.Inc()
	cn.start()
	return cn
}

func (s *Server) removeConn(cn *conn) {
	if s.conns.RemoveCb(mapKey(cn.id), func(key string, v interface{}, exists bool) bool {
		return exists
	}) {
		s.connCount.Dec()
	}
}

// ConnCount is the number of open streams
func (s *Server) ConnCount() int {
	return int(s.connCount.Load())
}

func (s *Server) serve() error {
	var delay time.Duration
	for {
		c, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else {
					delay *= 2
				}
				if max := 1 * time.Second; delay > max {
					delay = max
				}
				time.Sleep(delay)
				continue
			}
			return errors.Wrap(err, "accept")
		}
		delay = 0
		if max := s.options.GetConnMaxCount(); max > 0 && s.ConnCount() >= max {
			s.logger.Warnf("connection limit %d reached, refusing %v", max, c.RemoteAddr())
			_ = c.Close()
			continue
		}
		cn := s.addConn(c)
		cn.shard.post(event{kind: eventAccept, conn: cn})
	}
}

func (s *Server) tick() error {
	ticker := time.NewTicker(s.options.GetTickSpan())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, sh := range s.shards {
				sh.post(event{kind: eventTick})
			}
		case <-s.ctx.Done():
			return nil
		}
	}
}

// Connect dials addr in the background and reports through OnConnect
func (s *Server) Connect(addr stream.Address, attachment uint64) {
	if !s.started.Load() {
		s.mu.Lock()
		s.pending = append(s.pending, pendingConnect{addr, attachment})
		s.mu.Unlock()
		return
	}
	s.group.Go(func() error {
		s.dial(addr, attachment)
		return nil
	})
}

func (s *Server) dial(addr stream.Address, attachment uint64) {
	backoff := s.options.GetDialRetryBackoff()
	tries := s.options.GetDialRetryCount()
	if tries < 1 {
		tries = 1
	}
	retrier := retry.NewRetrier(tries, backoff, 8*backoff)
	dialer := net.Dialer{Timeout: s.options.GetDialTimeout()}
	var c net.Conn
	err := retrier.RunContext(s.ctx, func(ctx context.Context) error {
		var err error
		c, err = dialer.DialContext(ctx, "tcp", addr.String())
		return err
	})
	if err != nil {
		s.logger.Debugf("dial %v: %v", addr, err)
		select {
		case <-time.After(backoff):
		case <-s.ctx.Done():
			return
		}
		s.shardOf(addr.String()).post(event{kind: eventConnectFailed, attachment: attachment})
		return
	}
	cn := s.addConn(c)
	cn.shard.post(event{kind: eventConnect, conn: cn, attachment: attachment})
}

// Shutdown stops accepting and disconnects every stream. A graceful shutdown
// waits for the disconnects to be handled before stopping the shards.
func (s *Server) Shutdown(graceful bool) error {
	if !s.started.CompareAndSwap(true, false) {
		return nil
	}
	var err error
	s.closing.Store(true)
	defer s.closing.Store(false)
	if s.listener != nil {
		err = multierr.Append(err, errors.Wrap(s.listener.Close(), "close listener"))
		s.listener = nil
	}
	var attachment uint64
	if graceful {
		attachment = stream.GracefulShutdown
	}
	s.conns.IterCb(func(key string, v interface{}) {
		v.(*conn).TransmitDisconnect(attachment)
	})
	if graceful {
		deadline := time.Now().Add(s.options.GetShutdownTimeout())
		for (s.ConnCount() > 0 || s.eventsPending()) && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
	}
	s.cancel()
	s.conns.IterCb(func(key string, v interface{}) {
		v.(*conn).abort()
	})
	err = multierr.Append(err, s.group.Wait())
	return err
}

func (s *Server) eventsPending() bool {
	for _, sh := range s.shards {
		if len(sh.events) > 0 {
			return true
		}
	}
	return false
}

func mapKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}
