package allocator

import (
	"fmt"
	"log/slog"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

// Failure reasons reported to the FailureSink.
const (
	FailureAppend    = "raft log append new allocation"
	FailureBroadcast = "dynamic allocation final broadcast"
	FailureDuplicate = "duplicate committed allocation"
)

// Server is the allocation coordinator. It holds no locks: all methods are
// called from the single event loop that also drives its collaborators.
type Server struct {
	log       ConsensusLog
	publisher ResponsePublisher
	selector  NodeIDSelector
	failures  FailureSink
	logger    *slog.Logger

	duplicateCheck bool
	self           nodeid.NodeID
}

// Init initializes the consensus log and then the request transport,
// stopping at the first error. clusterSize 0 lets the log use the size
// stored by a previous run.
func (s *Server) Init(clusterSize uint8) error {
	if err := s.log.Init(clusterSize); err != nil {
		return fmt.Errorf("consensus log init: %w", err)
	}
	if err := s.publisher.Init(); err != nil {
		return fmt.Errorf("request transport init: %w", err)
	}
	return nil
}

// HandleAllocationRequest implements allocation.RequestHandler.
func (s *Server) HandleAllocationRequest(uid nodeid.UniqueID, preferred nodeid.NodeID) {
	info, found := s.log.TraverseLogFromEndUntil(func(e nodeid.EntryInfo) bool {
		return e.Entry.UniqueID == uid
	})

	if found {
		if !info.Committed {
			s.logger.Debug("allocation pending commit", "uid", uid.Short(), "node_id", info.Entry.NodeID)
			return
		}
		if s.duplicateCheck {
			s.checkDuplicate(uid)
		}
		s.logger.Debug("allocation already committed", "uid", uid.Short(), "node_id", info.Entry.NodeID)
		s.broadcast(uid, info.Entry.NodeID)
		return
	}

	if !s.log.IsLeader() {
		return
	}

	id := s.selector.FindFreeNodeID(preferred, s.IsNodeIDTaken)
	if !id.IsUnicast() {
		s.logger.Warn("no free node ID", "uid", uid.Short(), "preferred", preferred)
		return
	}

	if err := s.log.AppendLog(uid, id); err != nil {
		s.logger.Warn("allocation append failed", "uid", uid.Short(), "node_id", id, "error", err)
		s.failures.RegisterInternalFailure(FailureAppend)
		return
	}
	s.logger.Info("allocation appended", "uid", uid.Short(), "node_id", id, "preferred", preferred)
}

// CanPublishFollowupAllocationResponse implements
// allocation.RequestHandler. It is true only on a leader whose log has no
// uncommitted tail.
func (s *Server) CanPublishFollowupAllocationResponse() bool {
	return s.log.IsLeader() && s.log.AreAllLogEntriesCommitted()
}

// HandleLogCommitOnLeader implements raft.LeaderMonitor.
func (s *Server) HandleLogCommitOnLeader(entry nodeid.Entry) {
	s.logger.Info("allocation committed", "uid", entry.UniqueID.Short(), "node_id", entry.NodeID)
	s.broadcast(entry.UniqueID, entry.NodeID)
}

// IsNodeIDTaken reports whether any log entry, committed or not, holds id.
func (s *Server) IsNodeIDTaken(id nodeid.NodeID) bool {
	_, found := s.log.TraverseLogFromEndUntil(func(e nodeid.EntryInfo) bool {
		return e.Entry.NodeID == id
	})
	return found
}

func (s *Server) broadcast(uid nodeid.UniqueID, id nodeid.NodeID) {
	if err := s.publisher.BroadcastAllocationResponse(uid, id); err != nil {
		s.logger.Warn("allocation response failed", "uid", uid.Short(), "node_id", id, "error", err)
		s.failures.RegisterInternalFailure(FailureBroadcast)
	}
}

// checkDuplicate reports a second committed entry for uid. The most recent
// entry still decides the response.
func (s *Server) checkDuplicate(uid nodeid.UniqueID) {
	committed := 0
	s.log.TraverseLogFromEndUntil(func(e nodeid.EntryInfo) bool {
		if e.Committed && e.Entry.UniqueID == uid {
			committed++
		}
		return committed > 1
	})
	if committed > 1 {
		s.logger.Error("duplicate committed allocation", "uid", uid.Short())
		s.failures.RegisterInternalFailure(FailureDuplicate)
	}
}
