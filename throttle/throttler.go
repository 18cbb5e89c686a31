package throttle

import (
	"errors"
	"time"

	"github.com/huoshan017/gsession/packet"
	"github.com/huoshan017/gsession/pool"
)

var ErrAllocateBufferFailed = errors.New("gsession: throttler could not allocate a write buffer")

type PostingPolicy uint8

const (
	Immediate PostingPolicy = iota + 1
	Throttle
)

// Sender is a session the throttler can write to. A failed allocation is
// expected to close the sender.
type Sender interface {
	ID() uint64
	TryAllocateWriteBuffer() *pool.SocketBuffer
	ReleaseWriteBuffer(buf *pool.SocketBuffer)
	SendBuffer(buf *pool.SocketBuffer)
}

type pending struct {
	sender Sender
	buffer *pool.SocketBuffer
}

// PacketThrottler coalesces the packets posted to one sender into as few
// writes as possible. Not safe for concurrent use, it lives on the worker goroutine.
type PacketThrottler struct {
	pendings  map[uint64]*pending
	tick      time.Duration
	lastFlush time.Time
}

func NewPacketThrottler(tick time.Duration) *PacketThrottler {
	return &PacketThrottler{
		pendings: make(map[uint64]*pending),
		tick:     tick,
	}
}

func (t *PacketThrottler) PostPacket(s Sender, p packet.Packet, policy PostingPolicy) error {
	return t.PostPacketWithError(s, p, packet.ErrorNone, policy)
}

func (t *PacketThrottler) PostPacketWithError(s Sender, p packet.Packet, code packet.ErrorCode, policy PostingPolicy) error {
	pd, ok := t.pendings[s.ID()]
	if !ok {
		pd = &pending{}
		t.pendings[s.ID()] = pd
	}
	pd.sender = s
	if pd.buffer == nil {
		if pd.buffer = s.TryAllocateWriteBuffer(); pd.buffer == nil {
			delete(t.pendings, s.ID())
			return ErrAllocateBufferFailed
		}
	}
	if err := t.store(pd, p, code); err != nil {
		if pd.buffer == nil {
			delete(t.pendings, s.ID())
		}
		return err
	}
	if policy == Immediate {
		t.send(pd)
		delete(t.pendings, s.ID())
	}
	return nil
}

func (t *PacketThrottler) store(pd *pending, p packet.Packet, code packet.ErrorCode) error {
	n, ok, err := packet.Serialize(pd.buffer.Free(), p, code)
	if err != nil {
		return err
	}
	if !ok {
		t.send(pd)
		if pd.buffer = pd.sender.TryAllocateWriteBuffer(); pd.buffer == nil {
			return ErrAllocateBufferFailed
		}
		if n, ok, err = packet.Serialize(pd.buffer.Free(), p, code); err != nil {
			return err
		}
		if !ok {
			panic("packet size overflow")
		}
	}
	pd.buffer.Length += n
	return nil
}

func (t *PacketThrottler) send(pd *pending) {
	if pd.buffer == nil {
		return
	}
	if pd.buffer.Length == 0 {
		pd.sender.ReleaseWriteBuffer(pd.buffer)
	} else {
		pd.sender.SendBuffer(pd.buffer)
	}
	pd.buffer = nil
}

// ForceFlushPacket sends every pending buffer
func (t *PacketThrottler) ForceFlushPacket() {
	for id, pd := range t.pendings {
		t.send(pd)
		delete(t.pendings, id)
	}
}

// TryFlushPacket flushes once the throttle tick has elapsed since the last flush
func (t *PacketThrottler) TryFlushPacket(now time.Time) {
	if now.Sub(t.lastFlush) < t.tick {
		return
	}
	t.lastFlush = now
	t.ForceFlushPacket()
}

// CleanUp drops what is pending for a sender that is going away
func (t *PacketThrottler) CleanUp(s Sender) {
	pd, ok := t.pendings[s.ID()]
	if !ok {
		return
	}
	if pd.buffer != nil {
		pd.sender.ReleaseWriteBuffer(pd.buffer)
	}
	delete(t.pendings, s.ID())
}

// Pending is the number of senders with unsent packets
func (t *PacketThrottler) Pending() int {
	return len(t.pendings)
}
