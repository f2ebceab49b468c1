package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/transport"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

// Node errors.
var (
	ErrNotRunning     = errors.New("node not running")
	ErrAlreadyRunning = errors.New("node already running")
	ErrNoInterfaces   = errors.New("node has no bus interfaces")
	ErrAnonymous      = errors.New("anonymous node cannot use services")
	ErrCallTimeout    = errors.New("service call timed out")
	ErrSendFailed     = errors.New("send failed on all interfaces")
)

// DefaultDedupWindow is how long a received transfer is remembered for
// redundant-interface deduplication.
const DefaultDedupWindow = 500 * time.Millisecond

const inboundQueueSize = 256

// Config configures a Node.
type Config struct {
	// NodeID of this node; 0 makes the node anonymous.
	NodeID nodeid.NodeID

	// Clock drives timers (default: wall clock).
	Clock clock.Clock

	// Logger for operational logging (default: slog.Default()).
	Logger *slog.Logger

	// Tracer receives trace events (default: log.NoopLogger).
	Tracer log.Logger

	// DedupWindow overrides DefaultDedupWindow.
	DedupWindow time.Duration
}

type inboundFrame struct {
	iface int
	data  []byte
}

type periodic struct {
	interval time.Duration
	fn       func(now time.Time)
}

// Node is a bus node with a single event loop.
type Node struct {
	id     atomic.Uint32
	links  []transport.Link
	clock  clock.Clock
	logger *slog.Logger
	tracer log.Logger

	inbound chan inboundFrame
	calls   chan func()

	// Owned by the event loop.
	subscribers map[wire.DataTypeID][]MessageHandler
	services    map[wire.DataTypeID]ServiceHandler
	pending     map[callKey]*pendingCall
	transferIDs map[transferKey]uint8
	dedup       *deduplicator
	periodics   []periodic

	failures atomic.Uint64
	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a node on the given interfaces.
func New(cfg Config, links ...transport.Link) *Node {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = log.NoopLogger{}
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDedupWindow
	}

	n := &Node{
		links:       links,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		tracer:      cfg.Tracer,
		inbound:     make(chan inboundFrame, inboundQueueSize),
		calls:       make(chan func()),
		subscribers: make(map[wire.DataTypeID][]MessageHandler),
		services:    make(map[wire.DataTypeID]ServiceHandler),
		pending:     make(map[callKey]*pendingCall),
		transferIDs: make(map[transferKey]uint8),
		dedup:       newDeduplicator(cfg.DedupWindow),
	}
	n.id.Store(uint32(cfg.NodeID))
	return n
}

// Start launches the interface readers, the timers registered so far and
// the event loop.
func (n *Node) Start(ctx context.Context) error {
	if len(n.links) == 0 {
		return ErrNoInterfaces
	}
	if !n.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	n.ctx, n.cancel = context.WithCancel(ctx)

	for i, l := range n.links {
		n.wg.Add(1)
		go n.readLoop(i, l)
	}
	for _, p := range n.periodics {
		n.startTicker(p)
	}

	n.wg.Add(1)
	go n.loop()

	n.logger.Debug("node started", "node_id", n.NodeID(), "interfaces", len(n.links))
	return nil
}

// Stop stops the event loop and closes all interfaces.
func (n *Node) Stop() {
	if !n.running.CompareAndSwap(true, false) {
		return
	}
	n.cancel()
	for _, l := range n.links {
		l.Close()
	}
	n.wg.Wait()
}

// Do runs fn on the event loop and waits for it to return.
func (n *Node) Do(ctx context.Context, fn func()) error {
	if !n.running.Load() {
		return ErrNotRunning
	}
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case n.calls <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-n.ctx.Done():
		return ErrNotRunning
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn for the event loop without waiting. Returns false if the
// node stopped first.
func (n *Node) post(fn func()) bool {
	select {
	case n.calls <- fn:
		return true
	case <-n.ctx.Done():
		return false
	}
}

func (n *Node) loop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case in := <-n.inbound:
			n.handleFrame(in.iface, in.data)
		case fn := <-n.calls:
			fn()
		}
	}
}

func (n *Node) readLoop(iface int, l transport.Link) {
	defer n.wg.Done()
	for {
		data, err := l.Receive()
		if err != nil {
			if n.ctx.Err() == nil {
				n.logger.Warn("bus interface receive stopped", "iface", iface, "error", err)
			}
			return
		}
		select {
		case n.inbound <- inboundFrame{iface: iface, data: data}:
		case <-n.ctx.Done():
			return
		}
	}
}

// NodeID returns the node's ID (0 while anonymous).
func (n *Node) NodeID() nodeid.NodeID {
	return nodeid.NodeID(n.id.Load())
}

// SetNodeID assigns the node ID.
func (n *Node) SetNodeID(id nodeid.NodeID) error {
	if !id.IsValid() {
		return fmt.Errorf("%w: %d", wire.ErrInvalidNodeID, id)
	}
	n.id.Store(uint32(id))
	return nil
}

// Now returns the node clock time.
func (n *Node) Now() time.Time {
	return n.clock.Now()
}

// Clock returns the node clock.
func (n *Node) Clock() clock.Clock {
	return n.clock
}

// Logger returns the operational logger.
func (n *Node) Logger() *slog.Logger {
	return n.logger
}

// Tracer returns the trace event sink.
func (n *Node) Tracer() log.Logger {
	return n.tracer
}

// Trace emits a trace point event.
func (n *Node) Trace(code log.TraceCode, arg int64) {
	n.tracer.Log(log.NewTraceEvent(n.NodeID(), code, arg))
}

// NumInterfaces returns the number of bus interfaces.
func (n *Node) NumInterfaces() int {
	return len(n.links)
}
