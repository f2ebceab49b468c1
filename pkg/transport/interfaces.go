package transport

import (
	"context"
	"errors"
	"net"
)

// ErrConnectionClosed is returned by links and connections after Close.
var ErrConnectionClosed = errors.New("connection closed")

// Link is one attachment to a bus.
type Link interface {
	// Send transmits a frame to every other link on the bus.
	Send(data []byte) error

	// Receive blocks until a frame arrives or the link is closed,
	// in which case it returns ErrConnectionClosed.
	Receive() ([]byte, error)

	// Close detaches the link and unblocks Receive.
	Close() error
}

// BusServer is a bus that remote nodes attach to.
type BusServer interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
	ConnectionCount() int
}

// FrameReadWriter provides length-prefixed frame I/O.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

var (
	_ Link            = (*HubConn)(nil)
	_ Link            = (*MemoryLink)(nil)
	_ BusServer       = (*Hub)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
