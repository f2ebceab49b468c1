// Package simulation runs allocation clusters and devices on an in-process
// bus. It backs the end-to-end tests and the failure scenarios they
// exercise: leader loss, partitions and restarts.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/allocation"
	"github.com/dynalloc/dynalloc-go/pkg/allocator"
	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/raft"
	"github.com/dynalloc/dynalloc-go/pkg/storage"
	"github.com/dynalloc/dynalloc-go/pkg/transport"
)

const queryTimeout = time.Second

// ErrUnknownServer is returned for a node ID that is not a cluster member.
var ErrUnknownServer = errors.New("unknown server")

// FastRaft returns consensus timing suited to simulations.
func FastRaft() raft.Config {
	return raft.Config{
		UpdateInterval:    10 * time.Millisecond,
		ElectionTimeout:   150 * time.Millisecond,
		RequestTimeout:    20 * time.Millisecond,
		DiscoveryInterval: 20 * time.Millisecond,
	}
}

// Options configures a Cluster.
type Options struct {
	// Servers is the cluster size, 1..5.
	Servers int

	// Raft timing (default: FastRaft()).
	Raft raft.Config

	// Logger (default: discard).
	Logger *slog.Logger

	// Tracer receives the trace events of every node (default: none).
	Tracer log.Logger
}

// Server is one allocation server of a cluster.
type Server struct {
	ID      nodeid.NodeID
	Backend *storage.Memory

	node  *node.Node
	alloc *allocator.Server
	link  *transport.MemoryLink
}

// Running reports whether the server is up.
func (s *Server) Running() bool {
	return s.node != nil
}

// Cluster is a set of allocation servers on one MemoryBus.
type Cluster struct {
	opts    Options
	bus     *transport.MemoryBus
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	servers []*Server
	devices []*Device
}

// NewCluster starts a cluster with node IDs 1..opts.Servers.
func NewCluster(opts Options) (*Cluster, error) {
	if opts.Servers < 1 {
		return nil, fmt.Errorf("cluster needs at least one server")
	}
	if opts.Raft == (raft.Config{}) {
		opts.Raft = FastRaft()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Tracer == nil {
		opts.Tracer = log.NoopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cluster{opts: opts, bus: transport.NewMemoryBus(), ctx: ctx, cancel: cancel}
	for i := 1; i <= opts.Servers; i++ {
		s := &Server{ID: nodeid.NodeID(i), Backend: storage.NewMemory()}
		if err := c.start(s); err != nil {
			c.Close()
			return nil, err
		}
		c.servers = append(c.servers, s)
	}
	return c, nil
}

func (c *Cluster) start(s *Server) error {
	s.link = c.bus.Attach()
	s.node = node.New(node.Config{
		NodeID: s.ID,
		Logger: c.opts.Logger.With("node_id", s.ID),
		Tracer: c.opts.Tracer,
	}, s.link)
	s.alloc = allocator.New(s.node, s.Backend,
		allocator.WithRaftConfig(c.opts.Raft),
		allocator.WithDuplicateCheck(),
	)
	if err := s.alloc.Init(uint8(c.opts.Servers)); err != nil {
		s.link.Close()
		s.node = nil
		return fmt.Errorf("server %d: %w", s.ID, err)
	}
	if err := s.node.Start(c.ctx); err != nil {
		s.node = nil
		return fmt.Errorf("server %d: %w", s.ID, err)
	}
	return nil
}

// Close stops every server and device.
func (c *Cluster) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.devices {
		d.node.Stop()
	}
	for _, s := range c.servers {
		if s.node != nil {
			s.node.Stop()
			s.node = nil
		}
	}
	c.cancel()
}

// Bus returns the shared bus.
func (c *Cluster) Bus() *transport.MemoryBus {
	return c.bus
}

// Server returns the member with the given node ID.
func (c *Cluster) Server(id nodeid.NodeID) (*Server, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.servers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownServer, id)
}

// StopServer shuts a server down. Its persistent state survives.
func (c *Cluster) StopServer(id nodeid.NodeID) error {
	s, err := c.Server(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.node != nil {
		s.node.Stop()
		s.node = nil
	}
	return nil
}

// RestartServer starts a stopped server on its previous persistent state.
func (c *Cluster) RestartServer(id nodeid.NodeID) error {
	s, err := c.Server(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.node != nil {
		return fmt.Errorf("server %d is running", id)
	}
	return c.start(s)
}

// Status queries a running server.
func (c *Cluster) Status(id nodeid.NodeID) (allocator.Status, error) {
	var st allocator.Status
	err := c.onServer(id, func(s *Server) { st = s.alloc.Status() })
	return st, err
}

// Entries returns a running server's allocation log, oldest first.
func (c *Cluster) Entries(id nodeid.NodeID) ([]nodeid.EntryInfo, error) {
	var entries []nodeid.EntryInfo
	err := c.onServer(id, func(s *Server) { entries = s.alloc.Entries() })
	return entries, err
}

func (c *Cluster) onServer(id nodeid.NodeID, fn func(s *Server)) error {
	s, err := c.Server(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	n := s.node
	c.mu.Unlock()
	if n == nil {
		return node.ErrNotRunning
	}
	ctx, cancel := context.WithTimeout(c.ctx, queryTimeout)
	defer cancel()
	return n.Do(ctx, func() { fn(s) })
}

// Leader returns the running leader with the highest term.
func (c *Cluster) Leader() (nodeid.NodeID, bool) {
	var (
		leader nodeid.NodeID
		term   uint32
	)
	for _, id := range c.serverIDs() {
		st, err := c.Status(id)
		if err != nil || st.State != raft.StateLeader.String() {
			continue
		}
		if leader == 0 || st.Term > term {
			leader, term = id, st.Term
		}
	}
	return leader, leader != 0
}

// CommittedNodeID reports the node ID committed for uid in a server's log.
func (c *Cluster) CommittedNodeID(id nodeid.NodeID, uid nodeid.UniqueID) (nodeid.NodeID, bool) {
	entries, err := c.Entries(id)
	if err != nil {
		return 0, false
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Committed && e.Entry.UniqueID == uid {
			return e.Entry.NodeID, true
		}
	}
	return 0, false
}

// Partition splits the bus. Each group holds servers and devices that can
// still reach each other; everything not named is isolated.
func (c *Cluster) Partition(groups ...Group) {
	c.mu.Lock()
	defer c.mu.Unlock()
	segments := make([][]*transport.MemoryLink, len(groups))
	for i, g := range groups {
		for _, id := range g.Servers {
			for _, s := range c.servers {
				if s.ID == id && s.link != nil {
					segments[i] = append(segments[i], s.link)
				}
			}
		}
		for _, d := range g.Devices {
			segments[i] = append(segments[i], d.link)
		}
	}
	c.bus.Partition(segments...)
}

// Heal removes all partitions.
func (c *Cluster) Heal() {
	c.bus.Heal()
}

// Group is one side of a partition.
type Group struct {
	Servers []nodeid.NodeID
	Devices []*Device
}

func (c *Cluster) serverIDs() []nodeid.NodeID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]nodeid.NodeID, 0, len(c.servers))
	for _, s := range c.servers {
		if s.node != nil {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// NewDevice attaches an anonymous device with the given unique ID. It
// starts requesting a node ID immediately.
func (c *Cluster) NewDevice(uid nodeid.UniqueID, opts ...allocation.ClientOption) (*Device, error) {
	d := &Device{UniqueID: uid, link: c.bus.Attach(), done: make(chan struct{})}
	d.node = node.New(node.Config{
		Logger: c.opts.Logger.With("device", uid.Short()),
		Tracer: c.opts.Tracer,
	}, d.link)

	client, err := allocation.NewClient(d.node, uid, opts...)
	if err != nil {
		d.link.Close()
		return nil, err
	}
	client.OnAllocated(func(id, allocator nodeid.NodeID) {
		d.mu.Lock()
		d.allocated, d.allocator = id, allocator
		d.mu.Unlock()
		close(d.done)
	})

	if err := d.node.Start(c.ctx); err != nil {
		return nil, err
	}
	if err := d.node.Do(c.ctx, client.Start); err != nil {
		d.node.Stop()
		return nil, err
	}

	c.mu.Lock()
	c.devices = append(c.devices, d)
	c.mu.Unlock()
	return d, nil
}

// Device is an anonymous node obtaining a node ID.
type Device struct {
	UniqueID nodeid.UniqueID

	node *node.Node
	link *transport.MemoryLink
	done chan struct{}

	mu        sync.Mutex
	allocated nodeid.NodeID
	allocator nodeid.NodeID
}

// Allocated returns the obtained node ID and the allocator that granted
// it, or false while the exchange is still running.
func (d *Device) Allocated() (id, allocator nodeid.NodeID, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated, d.allocator, d.allocated != 0
}

// Wait blocks until the device has a node ID or ctx is done.
func (d *Device) Wait(ctx context.Context) (nodeid.NodeID, error) {
	select {
	case <-d.done:
		id, _, _ := d.Allocated()
		return id, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
