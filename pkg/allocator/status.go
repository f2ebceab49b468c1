package allocator

import (
	"slices"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/raft"
)

// Status is an operator view of a server.
type Status struct {
	NodeID           nodeid.NodeID
	State            string
	Term             uint32
	CommitIndex      uint32
	LastIndex        uint32
	Leader           nodeid.NodeID
	ClusterSize      uint8
	KnownServers     []nodeid.NodeID
	Allocations      int
	InternalFailures uint64
}

type consensusStatus interface {
	State() raft.State
	CurrentTerm() uint32
	CommitIndex() uint32
	LastIndex() uint32
	LeaderID() nodeid.NodeID
	ClusterSize() uint8
	KnownServers() []nodeid.NodeID
	Entries() []nodeid.EntryInfo
}

type failureCounter interface {
	InternalFailureCount() uint64
}

// Status reports the server state. Call from the node's event loop.
func (s *Server) Status() Status {
	st := Status{NodeID: s.self}
	if c, ok := s.log.(consensusStatus); ok {
		st.State = c.State().String()
		st.Term = c.CurrentTerm()
		st.CommitIndex = c.CommitIndex()
		st.LastIndex = c.LastIndex()
		st.Leader = c.LeaderID()
		st.ClusterSize = c.ClusterSize()
		st.KnownServers = c.KnownServers()
		st.Allocations = len(c.Entries())
	}
	if f, ok := s.failures.(failureCounter); ok {
		st.InternalFailures = f.InternalFailureCount()
	}
	return st
}

// Entries returns the allocation log, oldest first. Call from the node's
// event loop.
func (s *Server) Entries() []nodeid.EntryInfo {
	var entries []nodeid.EntryInfo
	s.log.TraverseLogFromEndUntil(func(e nodeid.EntryInfo) bool {
		entries = append(entries, e)
		return false
	})
	slices.Reverse(entries)
	return entries
}
