package raft

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/storage"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

const keyClusterSize = "cluster_size"

// Failure reason for a Discovery message with a different cluster size.
const FailureBadClusterSize = "raft bad cluster size received"

// ErrClusterSizeUnknown is returned by Init when no cluster size was
// configured and none is stored.
var ErrClusterSizeUnknown = errors.New("cluster size unknown")

type server struct {
	id           nodeid.NodeID
	nextIndex    uint32
	matchIndex   uint32
	lastResponse time.Time
}

// ClusterManager tracks the other allocation servers and the leader's
// per-server replication indices.
type ClusterManager struct {
	node    Node
	backend storage.Backend
	log     *Log

	clusterSize uint8
	servers     []*server
}

// NewClusterManager creates a cluster manager. Call Init before use.
func NewClusterManager(n Node, backend storage.Backend, l *Log) *ClusterManager {
	return &ClusterManager{node: n, backend: backend, log: l}
}

// Init sets the cluster size and starts discovery. A clusterSize of 0
// reads the size stored by a previous run.
func (m *ClusterManager) Init(clusterSize uint8, discoveryInterval time.Duration) error {
	if clusterSize == 0 {
		stored, err := readUint(m.backend, keyClusterSize, 8)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrClusterSizeUnknown
		}
		if err != nil {
			return err
		}
		clusterSize = uint8(stored)
	}
	if clusterSize < 1 || clusterSize > wire.MaxClusterSize {
		return fmt.Errorf("cluster size %d out of range 1..%d", clusterSize, wire.MaxClusterSize)
	}
	if err := m.backend.Set(keyClusterSize, strconv.Itoa(int(clusterSize))); err != nil {
		return err
	}
	m.clusterSize = clusterSize
	m.node.Trace(log.TraceRaftClusterSizeInited, int64(clusterSize))

	m.node.Subscribe(wire.DataTypeDiscovery, m.handleDiscovery)
	m.node.Every(discoveryInterval, func(time.Time) {
		if !m.IsClusterDiscovered() {
			m.broadcastDiscovery()
		}
	})
	return nil
}

func (m *ClusterManager) broadcastDiscovery() {
	msg := &wire.Discovery{
		ConfiguredClusterSize: m.clusterSize,
		KnownNodes:            append([]nodeid.NodeID{m.node.NodeID()}, m.KnownServers()...),
	}
	m.node.Trace(log.TraceRaftDiscoveryBroadcast, int64(len(msg.KnownNodes)))
	if err := m.node.Broadcast(msg); err != nil {
		m.node.Logger().Debug("discovery broadcast failed", "error", err)
	}
}

func (m *ClusterManager) handleDiscovery(t *node.Transfer) {
	if t.IsAnonymous() {
		return
	}
	var msg wire.Discovery
	if err := t.Decode(&msg); err != nil {
		return
	}
	m.node.Trace(log.TraceRaftDiscoveryReceived, int64(t.Source))

	if msg.ConfiguredClusterSize != m.clusterSize {
		m.node.Trace(log.TraceRaftBadClusterSizeReceived, int64(msg.ConfiguredClusterSize))
		m.node.RegisterInternalFailure(FailureBadClusterSize)
		return
	}

	m.addServer(t.Source)
	for _, id := range msg.KnownNodes {
		m.addServer(id)
	}

	// Help a peer that knows fewer servers than we do.
	if len(msg.KnownNodes) < m.NumKnownServers()+1 {
		m.broadcastDiscovery()
	}
}

func (m *ClusterManager) addServer(id nodeid.NodeID) {
	if id == m.node.NodeID() || !id.IsUnicast() || m.IsKnownServer(id) {
		return
	}
	if m.NumKnownServers() >= int(m.clusterSize)-1 {
		return
	}
	m.servers = append(m.servers, &server{
		id:           id,
		nextIndex:    m.log.LastIndex() + 1,
		lastResponse: m.node.Now(),
	})
	m.node.Trace(log.TraceRaftNewServerDiscovered, int64(id))
	m.node.Logger().Info("allocation server discovered", "server", id, "known", m.NumKnownServers())
}

func (m *ClusterManager) find(id nodeid.NodeID) *server {
	for _, s := range m.servers {
		if s.id == id {
			return s
		}
	}
	return nil
}

// ClusterSize returns the configured cluster size.
func (m *ClusterManager) ClusterSize() uint8 { return m.clusterSize }

// QuorumSize returns the number of servers (self included) that form a
// majority.
func (m *ClusterManager) QuorumSize() int { return int(m.clusterSize)/2 + 1 }

// NumKnownServers returns the number of other servers discovered.
func (m *ClusterManager) NumKnownServers() int { return len(m.servers) }

// IsKnownServer reports whether id was discovered.
func (m *ClusterManager) IsKnownServer(id nodeid.NodeID) bool { return m.find(id) != nil }

// IsClusterDiscovered reports whether all other servers are known.
func (m *ClusterManager) IsClusterDiscovered() bool {
	return m.NumKnownServers() == int(m.clusterSize)-1
}

// KnownServers returns the discovered servers sorted by node ID.
func (m *ClusterManager) KnownServers() []nodeid.NodeID {
	ids := make([]nodeid.NodeID, 0, len(m.servers))
	for _, s := range m.servers {
		ids = append(ids, s.id)
	}
	slices.Sort(ids)
	return ids
}

// ServerAt returns the i-th server in discovery order.
func (m *ClusterManager) ServerAt(i int) nodeid.NodeID {
	return m.servers[i].id
}

// NextIndex returns the next log index to send to id.
func (m *ClusterManager) NextIndex(id nodeid.NodeID) uint32 {
	if s := m.find(id); s != nil {
		return s.nextIndex
	}
	return 0
}

// MatchIndex returns the highest index known to be replicated on id.
func (m *ClusterManager) MatchIndex(id nodeid.NodeID) uint32 {
	if s := m.find(id); s != nil {
		return s.matchIndex
	}
	return 0
}

// RecordSuccess notes that id now holds the log up to matchIndex.
func (m *ClusterManager) RecordSuccess(id nodeid.NodeID, matchIndex uint32, now time.Time) {
	s := m.find(id)
	if s == nil {
		return
	}
	if matchIndex > s.matchIndex {
		s.matchIndex = matchIndex
	}
	s.nextIndex = matchIndex + 1
	s.lastResponse = now
}

// RecordMismatch steps the next index of id back by one, never below 1.
func (m *ClusterManager) RecordMismatch(id nodeid.NodeID, now time.Time) {
	s := m.find(id)
	if s == nil {
		return
	}
	if s.nextIndex > 1 {
		s.nextIndex--
	}
	s.lastResponse = now
}

// CountMatching returns how many other servers hold the entry at index.
func (m *ClusterManager) CountMatching(index uint32) int {
	n := 0
	for _, s := range m.servers {
		if s.matchIndex >= index {
			n++
		}
	}
	return n
}

// CountRespondedSince returns how many other servers responded after t.
func (m *ClusterManager) CountRespondedSince(t time.Time) int {
	n := 0
	for _, s := range m.servers {
		if !s.lastResponse.Before(t) {
			n++
		}
	}
	return n
}

// ResetAllServerIndices prepares replication state for a new leader term.
func (m *ClusterManager) ResetAllServerIndices(now time.Time) {
	for _, s := range m.servers {
		s.nextIndex = m.log.LastIndex() + 1
		s.matchIndex = 0
		s.lastResponse = now
	}
}
