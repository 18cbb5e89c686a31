package engine

import (
	"fmt"

	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
)

type ContextType uint8

const (
	SessionAccepted ContextType = iota
	SessionConnected
	SessionAbandoned
	SessionAlived
	SessionClosed
	SessionData
)

func (t ContextType) String() string {
	switch t {
	case SessionAccepted:
		return "SessionAccepted"
	case SessionConnected:
		return "SessionConnected"
	case SessionAbandoned:
		return "SessionAbandoned"
	case SessionAlived:
		return "SessionAlived"
	case SessionClosed:
		return "SessionClosed"
	case SessionData:
		return "SessionData"
	}
	return fmt.Sprintf("ContextType(%d)", uint8(t))
}

// SocketContext is one event handed to the worker. Contexts parsed from the
// same read are chained and processed in order.
type SocketContext struct {
	pool.Block
	Type       ContextType
	Header     packet.Header
	Payload    []byte // slice of Buffer, valid until Release
	Buffer     *pool.SocketBuffer
	Session    *SocketSession
	Attachment uint64
	next       *SocketContext
	arena      *pool.ObjectPool[*SocketContext]
}

func (c *SocketContext) Next() *SocketContext {
	return c.next
}

// Release drops the buffer and session references and recycles the context.
func (c *SocketContext) Release() {
	if c.Buffer != nil {
		c.Buffer.Release()
	}
	if c.Session != nil {
		c.Session.Release()
	}
	c.arena.Push(c)
}

func newContextArena(size int) *pool.ObjectPool[*SocketContext] {
	return pool.NewObjectPool(size, true, pool.Hooks[*SocketContext]{
		New: func(uint64) *SocketContext {
			return &SocketContext{}
		},
		Destruct: func(c *SocketContext) {
			c.Type = 0
			c.Header = packet.Header{}
			c.Payload = nil
			c.Buffer = nil
			c.Session = nil
			c.Attachment = 0
			c.next = nil
		},
	})
}

// contextChain collects the contexts of one read buffer
type contextChain struct {
	head  *SocketContext
	tail  *SocketContext
	count int
}

func (c *contextChain) append(ctx *SocketContext) {
	if c.tail == nil {
		c.head = ctx
	} else {
		c.tail.next = ctx
	}
	c.tail = ctx
	c.count++
}

func (c *contextChain) empty() bool {
	return c.head == nil
}

func (c *contextChain) reset() {
	c.head, c.tail, c.count = nil, nil, 0
}

func (c *contextChain) release() {
	for ctx := c.head; ctx != nil; {
		next := ctx.next
		ctx.Release()
		ctx = next
	}
	c.reset()
}
