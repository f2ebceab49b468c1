package raft

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/storage"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

// ErrNotLeader is returned by AppendLog on a non-leader.
var ErrNotLeader = errors.New("not the leader")

// Failure reasons registered with the node.
const (
	FailurePersistState = "raft persist state"
	FailurePersistLog   = "raft persist log"
)

// State is the server role.
type State uint8

const (
	StateFollower State = iota
	StateCandidate
	StateLeader
)

func (s State) String() string {
	switch s {
	case StateFollower:
		return "FOLLOWER"
	case StateCandidate:
		return "CANDIDATE"
	case StateLeader:
		return "LEADER"
	default:
		return fmt.Sprintf("STATE(%d)", s)
	}
}

// LeaderMonitor is notified on the leader of each newly committed
// allocation, in log order.
type LeaderMonitor interface {
	HandleLogCommitOnLeader(entry nodeid.Entry)
}

// Core is the consensus engine. It is not safe for concurrent use: every
// method must be called on the node's event loop.
type Core struct {
	node    Node
	cfg     Config
	persist *PersistentState
	cluster *ClusterManager
	monitor LeaderMonitor
	rng     *rand.Rand

	state       State
	leaderID    nodeid.NodeID
	commitIndex uint32

	lastActivity    time.Time
	electionTimeout time.Duration
	votes           int
	nextServer      int
	pendingAppend   map[nodeid.NodeID]bool
	inited          bool
}

// NewCore creates an engine for n persisting to backend.
func NewCore(n Node, backend storage.Backend, cfg Config) *Core {
	persist := NewPersistentState(backend)
	return &Core{
		node:          n,
		cfg:           cfg.withDefaults(),
		persist:       persist,
		cluster:       NewClusterManager(n, backend, persist.Log()),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano() + int64(n.NodeID()))),
		pendingAppend: make(map[nodeid.NodeID]bool),
	}
}

// SetLeaderMonitor sets the commit observer. Call before Init.
func (c *Core) SetLeaderMonitor(m LeaderMonitor) {
	c.monitor = m
}

// Init loads persistent state, starts discovery and registers the
// engine's handlers and update timer. clusterSize 0 reuses the stored size.
func (c *Core) Init(clusterSize uint8) error {
	if c.inited {
		return errors.New("raft core already initialized")
	}
	if !c.node.NodeID().IsUnicast() {
		return fmt.Errorf("raft core needs a unicast node ID, have %d", c.node.NodeID())
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if err := c.persist.Init(); err != nil {
		return fmt.Errorf("persistent state: %w", err)
	}
	if err := c.cluster.Init(clusterSize, c.cfg.DiscoveryInterval); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}

	c.node.Serve(wire.DataTypeAppendEntries, c.handleAppendEntries)
	c.node.Serve(wire.DataTypeRequestVote, c.handleRequestVote)
	c.node.Every(c.cfg.UpdateInterval, c.update)

	c.registerActivity(c.node.Now())
	c.inited = true
	c.node.Trace(log.TraceRaftCoreInited, int64(c.persist.Log().LastIndex()))
	c.node.Logger().Info("raft core initialized",
		"term", c.persist.CurrentTerm(),
		"log_last_index", c.persist.Log().LastIndex(),
		"cluster_size", c.cluster.ClusterSize())
	return nil
}

func (c *Core) registerActivity(now time.Time) {
	c.lastActivity = now
	c.electionTimeout = c.cfg.ElectionTimeout + time.Duration(c.rng.Int63n(int64(c.cfg.ElectionTimeout)))
}

func (c *Core) switchState(s State) {
	if c.state == s {
		return
	}
	old := c.state
	c.state = s
	c.votes = 0
	clear(c.pendingAppend)
	if s != StateLeader {
		c.leaderID = nodeid.Broadcast
	}
	c.node.Trace(log.TraceRaftStateSwitch, int64(s))
	c.node.Tracer().Log(log.NewStateChangeEvent(c.node.NodeID(), old.String(), s.String(), c.persist.CurrentTerm()))
	c.node.Logger().Info("raft state switch", "from", old, "to", s, "term", c.persist.CurrentTerm())
}

// updateTerm moves to a newer term and clears the vote.
func (c *Core) updateTerm(term uint32) bool {
	if err := c.persist.SetCurrentTerm(term); err != nil {
		c.persistFailure(FailurePersistState, err)
		return false
	}
	if err := c.persist.ResetVotedFor(); err != nil {
		c.persistFailure(FailurePersistState, err)
		return false
	}
	return true
}

func (c *Core) persistFailure(reason string, err error) {
	c.node.Trace(log.TraceRaftPersistStateUpdateError, 0)
	c.node.Logger().Error("raft persistence failed", "reason", reason, "error", err)
	c.node.RegisterInternalFailure(reason)
	c.switchState(StateFollower)
}

func (c *Core) update(now time.Time) {
	switch c.state {
	case StateFollower, StateCandidate:
		if now.Sub(c.lastActivity) < c.electionTimeout {
			return
		}
		if c.cluster.NumKnownServers()+1 < c.cluster.QuorumSize() {
			// An election cannot be won yet.
			c.registerActivity(now)
			return
		}
		c.startElection(now)

	case StateLeader:
		if c.cluster.ClusterSize() > 1 &&
			c.cluster.CountRespondedSince(now.Add(-c.electionTimeout))+1 < c.cluster.QuorumSize() {
			c.node.Logger().Warn("raft leader lost quorum, stepping down", "term", c.persist.CurrentTerm())
			c.switchState(StateFollower)
			c.registerActivity(now)
			return
		}
		c.updateCommitIndex()
		c.replicateToNextServer()
	}
}

func (c *Core) startElection(now time.Time) {
	c.registerActivity(now)
	if !c.updateTerm(c.persist.CurrentTerm() + 1) {
		return
	}
	if err := c.persist.SetVotedFor(c.node.NodeID()); err != nil {
		c.persistFailure(FailurePersistState, err)
		return
	}
	c.switchState(StateCandidate)
	c.votes = 1

	term := c.persist.CurrentTerm()
	lg := c.persist.Log()
	req := &wire.RequestVoteRequest{
		Term:         term,
		LastLogIndex: lg.LastIndex(),
		LastLogTerm:  lg.LastTerm(),
	}
	c.node.Trace(log.TraceRaftVoteRequestInitiation, int64(term))
	for _, id := range c.cluster.KnownServers() {
		err := c.node.Call(id, req, c.cfg.RequestTimeout, func(resp *node.Transfer, err error) {
			c.handleRequestVoteResponse(term, resp, err)
		})
		if err != nil {
			c.node.Logger().Debug("vote request failed", "server", id, "error", err)
		}
	}

	if c.votes >= c.cluster.QuorumSize() {
		c.becomeLeader()
	}
}

func (c *Core) handleRequestVoteResponse(sentTerm uint32, t *node.Transfer, err error) {
	if err != nil {
		return
	}
	var resp wire.RequestVoteResponse
	if err := t.Decode(&resp); err != nil {
		return
	}
	if resp.Term > c.persist.CurrentTerm() {
		c.node.Trace(log.TraceRaftNewerTermInResponse, int64(resp.Term))
		if c.updateTerm(resp.Term) {
			c.switchState(StateFollower)
			c.registerActivity(c.node.Now())
		}
		return
	}
	if c.state != StateCandidate || sentTerm != c.persist.CurrentTerm() || !resp.VoteGranted {
		return
	}
	c.votes++
	c.node.Trace(log.TraceRaftVoteRequestSucceeded, int64(t.Source))
	if c.votes >= c.cluster.QuorumSize() {
		c.becomeLeader()
	}
}

func (c *Core) becomeLeader() {
	now := c.node.Now()
	c.switchState(StateLeader)
	c.leaderID = c.node.NodeID()
	c.cluster.ResetAllServerIndices(now)
	c.nextServer = 0
	c.node.Trace(log.TraceRaftElectionComplete, int64(c.persist.CurrentTerm()))

	if err := c.persist.Log().Append(nodeid.Entry{Term: c.persist.CurrentTerm()}); err != nil {
		c.persistFailure(FailurePersistLog, err)
		return
	}
	c.updateCommitIndex()
}

func (c *Core) replicateToNextServer() {
	n := c.cluster.NumKnownServers()
	if n == 0 {
		return
	}
	c.nextServer %= n
	id := c.cluster.ServerAt(c.nextServer)
	c.nextServer++

	if c.pendingAppend[id] {
		return
	}

	lg := c.persist.Log()
	next := c.cluster.NextIndex(id)
	if next == 0 {
		next = 1
	}
	prev, _ := lg.EntryAt(next - 1)
	req := &wire.AppendEntriesRequest{
		Term:         c.persist.CurrentTerm(),
		PrevLogTerm:  prev.Term,
		PrevLogIndex: next - 1,
		LeaderCommit: c.commitIndex,
	}
	if e, ok := lg.EntryAt(next); ok {
		req.Entries = []wire.LogEntry{wire.NewLogEntry(e)}
	}

	term := req.Term
	err := c.node.Call(id, req, c.cfg.RequestTimeout, func(resp *node.Transfer, err error) {
		c.handleAppendEntriesResponse(term, id, req, resp, err)
	})
	if err != nil {
		c.node.Trace(log.TraceRaftAppendEntriesCallFailure, int64(id))
		return
	}
	c.pendingAppend[id] = true
}

func (c *Core) handleAppendEntriesResponse(sentTerm uint32, id nodeid.NodeID, req *wire.AppendEntriesRequest, t *node.Transfer, err error) {
	delete(c.pendingAppend, id)
	if err != nil {
		c.node.Trace(log.TraceRaftAppendEntriesCallFailure, int64(id))
		return
	}
	var resp wire.AppendEntriesResponse
	if err := t.Decode(&resp); err != nil {
		return
	}
	if resp.Term > c.persist.CurrentTerm() {
		c.node.Trace(log.TraceRaftNewerTermInResponse, int64(resp.Term))
		if c.updateTerm(resp.Term) {
			c.switchState(StateFollower)
			c.registerActivity(c.node.Now())
		}
		return
	}
	if c.state != StateLeader || sentTerm != c.persist.CurrentTerm() {
		return
	}

	now := c.node.Now()
	if !resp.Success {
		c.node.Trace(log.TraceRaftAppendEntriesRespUnsuccessful, int64(id))
		c.cluster.RecordMismatch(id, now)
		return
	}
	c.cluster.RecordSuccess(id, req.PrevLogIndex+uint32(len(req.Entries)), now)
	c.updateCommitIndex()
}

// updateCommitIndex advances the commit index to the highest entry of the
// current term held by a quorum, and reports newly committed allocations.
func (c *Core) updateCommitIndex() {
	if c.state != StateLeader {
		return
	}
	lg := c.persist.Log()
	term := c.persist.CurrentTerm()

	for n := lg.LastIndex(); n > c.commitIndex; n-- {
		e, _ := lg.EntryAt(n)
		if e.Term != term {
			// Terms never decrease along the log.
			return
		}
		if c.cluster.CountMatching(n)+1 < c.cluster.QuorumSize() {
			continue
		}
		for i := c.commitIndex + 1; i <= n; i++ {
			committed, _ := lg.EntryAt(i)
			c.commitIndex = i
			if committed.IsNoop() {
				continue
			}
			c.node.Trace(log.TraceRaftNewEntryCommitted, int64(i))
			if c.monitor != nil {
				c.monitor.HandleLogCommitOnLeader(committed)
			}
			if c.state != StateLeader {
				return
			}
		}
		c.node.Trace(log.TraceRaftCommitIndexUpdate, int64(c.commitIndex))
		return
	}
}

func (c *Core) handleAppendEntries(t *node.Transfer) (wire.Payload, bool) {
	var req wire.AppendEntriesRequest
	if err := t.Decode(&req); err != nil {
		c.node.Trace(log.TraceRaftRequestIgnored, int64(t.Source))
		return nil, false
	}
	if !c.cluster.IsKnownServer(t.Source) && c.cluster.IsClusterDiscovered() {
		c.node.Trace(log.TraceRaftRequestIgnored, int64(t.Source))
		return nil, false
	}

	if req.Term < c.persist.CurrentTerm() {
		return &wire.AppendEntriesResponse{Term: c.persist.CurrentTerm(), Success: false}, true
	}
	if req.Term > c.persist.CurrentTerm() && !c.updateTerm(req.Term) {
		return nil, false
	}
	c.registerActivity(c.node.Now())
	c.switchState(StateFollower)
	c.leaderID = t.Source

	resp := &wire.AppendEntriesResponse{Term: c.persist.CurrentTerm()}
	lg := c.persist.Log()

	prev, ok := lg.EntryAt(req.PrevLogIndex)
	if !ok || prev.Term != req.PrevLogTerm {
		return resp, true
	}

	lastNew := req.PrevLogIndex
	for _, we := range req.Entries {
		e, err := we.Entry()
		if err != nil {
			return nil, false
		}
		lastNew++
		if existing, ok := lg.EntryAt(lastNew); ok {
			if existing.Term == e.Term {
				continue
			}
			if err := lg.RemoveEntriesFrom(lastNew); err != nil {
				c.persistFailure(FailurePersistLog, err)
				return nil, false
			}
		}
		if err := lg.Append(e); err != nil {
			c.persistFailure(FailurePersistLog, err)
			return nil, false
		}
		c.node.Trace(log.TraceRaftNewLogEntry, int64(lastNew))
	}

	if nc := min(req.LeaderCommit, lastNew); nc > c.commitIndex {
		c.commitIndex = nc
		c.node.Trace(log.TraceRaftCommitIndexUpdate, int64(c.commitIndex))
	}
	resp.Success = true
	return resp, true
}

func (c *Core) handleRequestVote(t *node.Transfer) (wire.Payload, bool) {
	var req wire.RequestVoteRequest
	if err := t.Decode(&req); err != nil {
		c.node.Trace(log.TraceRaftRequestIgnored, int64(t.Source))
		return nil, false
	}
	c.node.Trace(log.TraceRaftVoteRequestReceived, int64(t.Source))

	if req.Term > c.persist.CurrentTerm() {
		if !c.updateTerm(req.Term) {
			return nil, false
		}
		c.switchState(StateFollower)
	}

	resp := &wire.RequestVoteResponse{Term: c.persist.CurrentTerm()}
	canVote := !c.persist.IsVotedForSet() || c.persist.VotedFor() == t.Source
	if req.Term == c.persist.CurrentTerm() && canVote &&
		c.persist.Log().IsOtherLogUpToDate(req.LastLogTerm, req.LastLogIndex) {
		if err := c.persist.SetVotedFor(t.Source); err != nil {
			c.persistFailure(FailurePersistState, err)
			return nil, false
		}
		c.registerActivity(c.node.Now())
		resp.VoteGranted = true
	}
	return resp, true
}

// IsLeader reports whether this server is the leader.
func (c *Core) IsLeader() bool {
	return c.state == StateLeader
}

// AreAllLogEntriesCommitted reports whether the commit index has reached
// the end of the log.
func (c *Core) AreAllLogEntriesCommitted() bool {
	return c.commitIndex == c.persist.Log().LastIndex()
}

// TraverseLogFromEndUntil visits allocation entries from the newest to the
// oldest, including uncommitted ones, and returns the first one for which
// match returns true.
func (c *Core) TraverseLogFromEndUntil(match func(nodeid.EntryInfo) bool) (nodeid.EntryInfo, bool) {
	lg := c.persist.Log()
	for i := lg.LastIndex(); i > 0; i-- {
		e, _ := lg.EntryAt(i)
		if e.IsNoop() {
			continue
		}
		info := nodeid.EntryInfo{Entry: e, Committed: i <= c.commitIndex}
		if match(info) {
			return info, true
		}
	}
	return nodeid.EntryInfo{}, false
}

// AppendLog appends an allocation on the leader. Success means local
// acceptance only; the commit is reported to the LeaderMonitor later.
func (c *Core) AppendLog(uid nodeid.UniqueID, id nodeid.NodeID) error {
	if c.state != StateLeader {
		return ErrNotLeader
	}
	lg := c.persist.Log()
	if err := lg.Append(nodeid.Entry{Term: c.persist.CurrentTerm(), UniqueID: uid, NodeID: id}); err != nil {
		return err
	}
	c.node.Trace(log.TraceRaftNewLogEntry, int64(lg.LastIndex()))
	return nil
}

// Entries returns all allocation entries, oldest first.
func (c *Core) Entries() []nodeid.EntryInfo {
	lg := c.persist.Log()
	out := make([]nodeid.EntryInfo, 0, lg.LastIndex())
	for i := uint32(1); i <= lg.LastIndex(); i++ {
		e, _ := lg.EntryAt(i)
		if e.IsNoop() {
			continue
		}
		out = append(out, nodeid.EntryInfo{Entry: e, Committed: i <= c.commitIndex})
	}
	return out
}

// State returns the current role.
func (c *Core) State() State { return c.state }

// CurrentTerm returns the current term.
func (c *Core) CurrentTerm() uint32 { return c.persist.CurrentTerm() }

// CommitIndex returns the commit index.
func (c *Core) CommitIndex() uint32 { return c.commitIndex }

// LastIndex returns the index of the last log entry.
func (c *Core) LastIndex() uint32 { return c.persist.Log().LastIndex() }

// LeaderID returns the known leader, or 0.
func (c *Core) LeaderID() nodeid.NodeID { return c.leaderID }

// KnownServers returns the other discovered servers.
func (c *Core) KnownServers() []nodeid.NodeID { return c.cluster.KnownServers() }

// ClusterSize returns the configured cluster size.
func (c *Core) ClusterSize() uint8 { return c.cluster.ClusterSize() }
