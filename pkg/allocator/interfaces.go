package allocator

import (
	"github.com/dynalloc/dynalloc-go/pkg/allocation"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/raft"
)

// ConsensusLog is the replicated allocation log.
type ConsensusLog interface {
	Init(clusterSize uint8) error
	IsLeader() bool
	AreAllLogEntriesCommitted() bool
	TraverseLogFromEndUntil(match func(nodeid.EntryInfo) bool) (nodeid.EntryInfo, bool)
	AppendLog(uid nodeid.UniqueID, id nodeid.NodeID) error
}

// ResponsePublisher sends allocation responses on the bus.
type ResponsePublisher interface {
	Init() error
	BroadcastAllocationResponse(uid nodeid.UniqueID, id nodeid.NodeID) error
}

// NodeIDSelector picks a free node ID.
type NodeIDSelector interface {
	FindFreeNodeID(preferred nodeid.NodeID, isTaken func(nodeid.NodeID) bool) nodeid.NodeID
}

// FailureSink records internal failures. It never blocks.
type FailureSink interface {
	RegisterInternalFailure(reason string)
}

var (
	_ ConsensusLog      = (*raft.Core)(nil)
	_ ResponsePublisher = (*allocation.RequestManager)(nil)

	_ allocation.RequestHandler = (*Server)(nil)
	_ raft.LeaderMonitor        = (*Server)(nil)
)
