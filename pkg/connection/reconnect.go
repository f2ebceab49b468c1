package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/transport"
)

// Connection errors.
var (
	ErrNotConnected = errors.New("not connected")
)

// State represents the link state.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// DialFunc opens a new link to the bus.
type DialFunc func(ctx context.Context) (transport.Link, error)

// HubDialer returns a DialFunc connecting to the hub at address.
func HubDialer(address string) DialFunc {
	return func(ctx context.Context) (transport.Link, error) {
		return transport.Dial(ctx, address)
	}
}

// Option configures a Link.
type Option func(*Link)

// WithBackoff replaces the default backoff.
func WithBackoff(b *Backoff) Option {
	return func(l *Link) { l.backoff = b }
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Link) { l.logger = logger }
}

// WithStateCallback registers a callback for state changes.
func WithStateCallback(fn func(oldState, newState State)) Option {
	return func(l *Link) { l.onStateChange = fn }
}

// Link is a transport.Link that re-dials its bus when the underlying
// connection drops. Frames sent while disconnected fail with
// ErrNotConnected.
type Link struct {
	mu      sync.RWMutex
	state   State
	current transport.Link

	dial    DialFunc
	backoff *Backoff
	logger  *slog.Logger
	recvCh  chan []byte

	onStateChange func(oldState, newState State)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLink creates a Link. Call Start to connect.
func NewLink(dial DialFunc, opts ...Option) *Link {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Link{
		state:   StateDisconnected,
		dial:    dial,
		backoff: NewBackoff(),
		logger:  slog.Default(),
		recvCh:  make(chan []byte, transport.DefaultMemoryQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start makes a first connection attempt and then keeps the link up in
// the background. A failed first attempt is not an error; the link keeps
// retrying.
func (l *Link) Start(ctx context.Context) {
	l.setState(StateConnecting)
	conn, err := l.dial(ctx)
	if err != nil {
		l.logger.Warn("bus link dial failed, retrying", "error", err)
		l.setState(StateReconnecting)
	} else {
		l.attach(conn)
	}

	l.wg.Add(1)
	go l.supervise()
}

// State returns the current link state.
func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsConnected reports whether a connection is up.
func (l *Link) IsConnected() bool {
	return l.State() == StateConnected
}

// Send implements transport.Link.
func (l *Link) Send(data []byte) error {
	l.mu.RLock()
	conn, state := l.current, l.state
	l.mu.RUnlock()

	if state == StateClosed {
		return transport.ErrConnectionClosed
	}
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Send(data)
}

// Receive implements transport.Link.
func (l *Link) Receive() ([]byte, error) {
	select {
	case data := <-l.recvCh:
		return data, nil
	case <-l.ctx.Done():
		return nil, transport.ErrConnectionClosed
	}
}

// Close implements transport.Link.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return nil
	}
	conn := l.current
	l.current = nil
	l.mu.Unlock()

	l.setState(StateClosed)
	l.cancel()
	if conn != nil {
		conn.Close()
	}
	l.wg.Wait()
	return nil
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	old := l.state
	if old == StateClosed {
		l.mu.Unlock()
		return
	}
	l.state = s
	fn := l.onStateChange
	l.mu.Unlock()

	if fn != nil && old != s {
		fn(old, s)
	}
}

func (l *Link) attach(conn transport.Link) {
	l.mu.Lock()
	l.current = conn
	l.mu.Unlock()
	l.backoff.Reset()
	l.setState(StateConnected)
}

// supervise pumps frames from the current connection and re-dials when it
// drops, until Close.
func (l *Link) supervise() {
	defer l.wg.Done()

	for {
		l.mu.RLock()
		conn := l.current
		l.mu.RUnlock()

		if conn != nil {
			l.pump(conn)
			l.mu.Lock()
			l.current = nil
			l.mu.Unlock()
			conn.Close()
			if l.ctx.Err() != nil {
				return
			}
			l.logger.Warn("bus link lost, reconnecting")
			l.setState(StateReconnecting)
		}

		delay := l.backoff.Next()
		select {
		case <-l.ctx.Done():
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(l.ctx, transport.DefaultConnectTimeout)
		next, err := l.dial(ctx)
		cancel()
		if err != nil {
			l.logger.Debug("bus link re-dial failed", "attempt", l.backoff.Attempts(), "error", err)
			continue
		}
		l.attach(next)
		l.logger.Info("bus link reconnected")
	}
}

func (l *Link) pump(conn transport.Link) {
	for {
		data, err := conn.Receive()
		if err != nil {
			return
		}
		select {
		case l.recvCh <- data:
		case <-l.ctx.Done():
			return
		default:
			// Receiver is not keeping up; drop like a congested bus.
		}
	}
}

var _ transport.Link = (*Link)(nil)
