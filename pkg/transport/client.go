package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// DefaultConnectTimeout bounds Dial when ctx has no deadline.
const DefaultConnectTimeout = 5 * time.Second

// HubConn is a node's connection to a Hub. It implements Link.
type HubConn struct {
	conn    net.Conn
	framer  *Framer
	closeCh chan struct{}

	closeOnce sync.Once
	readMu    sync.Mutex
}

// Dial connects to the hub at address.
func Dial(ctx context.Context, address string) (*HubConn, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return newHubConn(conn), nil
}

func newHubConn(conn net.Conn) *HubConn {
	return &HubConn{
		conn:    conn,
		framer:  NewFramer(conn, DefaultMaxMessageSize),
		closeCh: make(chan struct{}),
	}
}

// LocalAddr returns the local network address.
func (c *HubConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the hub address.
func (c *HubConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send implements Link.
func (c *HubConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Receive implements Link.
func (c *HubConn) Receive() ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	data, err := c.framer.ReadFrame()
	if err != nil {
		select {
		case <-c.closeCh:
			return nil, ErrConnectionClosed
		default:
		}
		return nil, err
	}
	return data, nil
}

// Close implements Link.
func (c *HubConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
