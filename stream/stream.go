package stream

import (
	"github.com/huoshan017/gsession/pool"
)

// GracefulShutdown is set in a disconnect attachment when the close was
// requested on purpose. Anything else counts as a lost connection.
const GracefulShutdown uint64 = 0x01

// TransferStream is one socket owned by an I/O backend. Transmit calls are
// asynchronous; their completions come back through EventHandler on the
// stream's I/O worker.
type TransferStream interface {
	ID() uint64
	WorkerIndex() int
	Address() Address

	// UserData is an opaque per stream slot for the event handler
	UserData() any
	SetUserData(data any)

	AllocateReadBuffer(mustAllocate bool) *pool.SocketBuffer
	ReleaseReadBuffer(buf *pool.SocketBuffer)
	AllocateWriteBuffer(mustAllocate bool) *pool.SocketBuffer
	ReleaseWriteBuffer(buf *pool.SocketBuffer)

	// TransmitRead reads into buf.Data[buf.Length:]. At most one read is in flight.
	TransmitRead(buf *pool.SocketBuffer, attachment uint64)
	// TransmitWrite sends buf.Bytes() and hands buf back through OnWrite
	TransmitWrite(buf *pool.SocketBuffer, attachment uint64)
	// TransmitDisconnect is idempotent, only the first attachment is kept
	TransmitDisconnect(attachment uint64)
}

// EventHandler receives a stream's events serially on its I/O worker.
type EventHandler interface {
	OnAccept(s TransferStream)
	// OnConnect gets a nil stream when the connection attempt failed
	OnConnect(s TransferStream, attachment uint64)
	OnRead(s TransferStream, buf *pool.SocketBuffer, attachment uint64)
	OnWrite(s TransferStream, buf *pool.SocketBuffer, attachment uint64)
	// OnDisconnect is the last event of a stream
	OnDisconnect(s TransferStream, attachment uint64)
	OnTick(workerIndex int)
}

type Server interface {
	SetEventHandler(handler EventHandler)
	WorkerCount() int
	Start() error
	Shutdown(graceful bool) error
	Connect(addr Address, attachment uint64)
}
