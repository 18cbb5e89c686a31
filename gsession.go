// Package gsession pairs a NetworkEngine with the tcp stream backend for the
// common cases: a listening server or a client keeping connectors alive.
package gsession

import (
	"github.com/huoshan017/gsession/engine"
	"github.com/huoshan017/gsession/options"
	"github.com/huoshan017/gsession/stream"
	"github.com/huoshan017/gsession/stream/tcp"
	"github.com/pkg/errors"
)

type nodeOptions struct {
	server []options.ServerOption
	engine []options.EngineOption
}

type Option func(*nodeOptions)

func WithServerOptions(opts ...options.ServerOption) Option {
	return func(o *nodeOptions) {
		o.server = append(o.server, opts...)
	}
}

func WithEngineOptions(opts ...options.EngineOption) Option {
	return func(o *nodeOptions) {
		o.engine = append(o.engine, opts...)
	}
}

// Node is one engine, its worker and its tcp backend
type Node struct {
	server *tcp.Server
	engine *engine.NetworkEngine
	worker *engine.Worker
}

func newNode(handler engine.Handler, addr string, opts ...Option) (*Node, error) {
	var o nodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	n := &Node{
		server: tcp.NewServer(o.server...),
		worker: engine.NewWorker(handler),
	}
	if addr != "" {
		if err := n.server.Listen(addr); err != nil {
			return nil, err
		}
	}
	e, err := engine.NewNetworkEngine(n.server, n.worker, o.engine...)
	if err != nil {
		return nil, err
	}
	n.engine = e
	return n, nil
}

// NewServer listens on addr, sessions arrive through handler.OnSessionAccepted
func NewServer(addr string, handler engine.Handler, opts ...Option) (*Node, error) {
	if addr == "" {
		return nil, errors.New("gsession: server needs a listen address")
	}
	return newNode(handler, addr, opts...)
}

// NewClient only connects out, see Connect
func NewClient(handler engine.Handler, opts ...Option) (*Node, error) {
	return newNode(handler, "", opts...)
}

// Connect registers a connector that the engine keeps reconnecting until Disconnect
func (n *Node) Connect(addr string, attachment uint64) (uint64, error) {
	a, err := stream.ParseAddress(addr)
	if err != nil {
		return 0, err
	}
	return n.engine.RegisterConnectorSocket(a, attachment), nil
}

func (n *Node) Disconnect(connectorID uint64) {
	n.engine.UnregisterConnectorSocket(connectorID)
}

func (n *Node) Start() error {
	return n.engine.Start()
}

func (n *Node) Shutdown() error {
	return n.engine.Shutdown()
}

// Wait blocks until the worker stops
func (n *Node) Wait() {
	n.worker.Wait()
}

func (n *Node) Addr() string {
	if a := n.server.ListenAddr(); a != nil {
		return a.String()
	}
	return ""
}

func (n *Node) Engine() *engine.NetworkEngine {
	return n.engine
}
