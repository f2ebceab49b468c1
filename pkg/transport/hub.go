package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultHubPort is the TCP port a hub listens on by default.
const DefaultHubPort = 9382

// HubConfig configures a Hub.
type HubConfig struct {
	// Address to listen on (e.g. ":9382" or "127.0.0.1:0").
	Address string

	// MaxMessageSize is the maximum frame size (default: 4 KB).
	MaxMessageSize int

	// Logger for operational logging (default: slog.Default()).
	Logger *slog.Logger

	// OnConnect is called when a node attaches.
	OnConnect func(conn *HubPeer)

	// OnDisconnect is called when a node detaches.
	OnDisconnect func(conn *HubPeer)
}

// Hub is a TCP bus: every frame received from one peer is relayed to
// all other peers.
type Hub struct {
	config   HubConfig
	logger   *slog.Logger
	listener net.Listener

	peers   map[*HubPeer]struct{}
	peersMu sync.RWMutex

	relayed atomic.Uint64
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewHub creates a hub.
func NewHub(config HubConfig) *Hub {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultHubPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		config: config,
		logger: logger,
		peers:  make(map[*HubPeer]struct{}),
	}
}

// Start starts listening and accepting peers.
func (h *Hub) Start(ctx context.Context) error {
	if h.running.Load() {
		return fmt.Errorf("hub already running")
	}

	listener, err := net.Listen("tcp", h.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	h.listener = listener
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.running.Store(true)

	h.wg.Add(1)
	go h.acceptLoop()

	h.logger.Info("bus hub listening", "addr", listener.Addr().String())
	return nil
}

// Stop closes the listener and all peers.
func (h *Hub) Stop() error {
	if !h.running.Load() {
		return nil
	}
	h.running.Store(false)
	h.cancel()
	h.listener.Close()

	h.peersMu.Lock()
	for p := range h.peers {
		p.Close()
	}
	h.peersMu.Unlock()

	h.wg.Wait()
	return nil
}

// Addr returns the listen address.
func (h *Hub) Addr() net.Addr {
	if h.listener != nil {
		return h.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of attached peers.
func (h *Hub) ConnectionCount() int {
	h.peersMu.RLock()
	defer h.peersMu.RUnlock()
	return len(h.peers)
}

// RelayedFrames returns the number of frames received and relayed.
func (h *Hub) RelayedFrames() uint64 {
	return h.relayed.Load()
}

func (h *Hub) acceptLoop() {
	defer h.wg.Done()

	for h.running.Load() {
		conn, err := h.listener.Accept()
		if err != nil {
			if h.running.Load() && !errors.Is(err, net.ErrClosed) {
				h.logger.Warn("accept failed", "error", err)
			}
			continue
		}
		h.wg.Add(1)
		go h.handleConnection(conn)
	}
}

func (h *Hub) handleConnection(conn net.Conn) {
	defer h.wg.Done()

	peer := &HubPeer{
		conn:    conn,
		framer:  NewFramer(conn, h.config.MaxMessageSize),
		id:      uuid.New().String(),
		closeCh: make(chan struct{}),
	}

	h.peersMu.Lock()
	h.peers[peer] = struct{}{}
	h.peersMu.Unlock()

	h.logger.Debug("peer attached", "peer", peer.id, "remote", conn.RemoteAddr().String())
	if h.config.OnConnect != nil {
		h.config.OnConnect(peer)
	}

	for {
		data, err := peer.framer.ReadFrame()
		if err != nil {
			break
		}
		h.relayed.Add(1)
		h.relay(peer, data)
	}

	h.peersMu.Lock()
	delete(h.peers, peer)
	h.peersMu.Unlock()
	peer.Close()

	h.logger.Debug("peer detached", "peer", peer.id)
	if h.config.OnDisconnect != nil {
		h.config.OnDisconnect(peer)
	}
}

func (h *Hub) relay(from *HubPeer, data []byte) {
	h.peersMu.RLock()
	defer h.peersMu.RUnlock()

	for p := range h.peers {
		if p == from {
			continue
		}
		if err := p.framer.WriteFrame(data); err != nil {
			h.logger.Debug("relay failed", "peer", p.id, "error", err)
		}
	}
}

// HubPeer is the hub side of an attached node connection.
type HubPeer struct {
	conn      net.Conn
	framer    *Framer
	id        string
	closeCh   chan struct{}
	closeOnce sync.Once
}

// ID returns the unique peer identifier.
func (p *HubPeer) ID() string {
	return p.id
}

// RemoteAddr returns the remote address of the peer.
func (p *HubPeer) RemoteAddr() net.Addr {
	return p.conn.RemoteAddr()
}

// Close closes the peer connection.
func (p *HubPeer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closeCh)
		err = p.conn.Close()
	})
	return err
}
