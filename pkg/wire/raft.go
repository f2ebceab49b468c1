package wire

import (
	"fmt"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

// LogEntry is the wire form of one allocation log entry.
type LogEntry struct {
	Term     uint32        `cbor:"1,keyasint"`
	UniqueID []byte        `cbor:"2,keyasint"`
	NodeID   nodeid.NodeID `cbor:"3,keyasint"`
}

// NewLogEntry converts a log entry to its wire form.
func NewLogEntry(e nodeid.Entry) LogEntry {
	return LogEntry{Term: e.Term, UniqueID: e.UniqueID.Bytes(), NodeID: e.NodeID}
}

// Entry converts the wire form back into a log entry.
func (e LogEntry) Entry() (nodeid.Entry, error) {
	uid, err := nodeid.UniqueIDFromBytes(e.UniqueID)
	if err != nil {
		return nodeid.Entry{}, err
	}
	return nodeid.Entry{Term: e.Term, UniqueID: uid, NodeID: e.NodeID}, nil
}

// MaxEntriesPerRequest limits AppendEntries to one entry per call.
const MaxEntriesPerRequest = 1

// AppendEntriesRequest replicates log entries and acts as leader heartbeat.
//
// CBOR encoding:
//
//	{
//	  1: term,         // uint32
//	  2: prevLogTerm,  // uint32
//	  3: prevLogIndex, // uint32
//	  4: leaderCommit, // uint32
//	  5: entries       // [LogEntry]: at most one
//	}
type AppendEntriesRequest struct {
	Term         uint32     `cbor:"1,keyasint"`
	PrevLogTerm  uint32     `cbor:"2,keyasint"`
	PrevLogIndex uint32     `cbor:"3,keyasint"`
	LeaderCommit uint32     `cbor:"4,keyasint"`
	Entries      []LogEntry `cbor:"5,keyasint,omitempty"`
}

// DataType implements Payload.
func (*AppendEntriesRequest) DataType() DataTypeID { return DataTypeAppendEntries }

// Validate implements Payload.
func (r *AppendEntriesRequest) Validate() error {
	if r.Term == 0 {
		return fmt.Errorf("term must be non-zero")
	}
	if len(r.Entries) > MaxEntriesPerRequest {
		return fmt.Errorf("%d entries exceed %d", len(r.Entries), MaxEntriesPerRequest)
	}
	for _, e := range r.Entries {
		if len(e.UniqueID) != nodeid.UniqueIDLength {
			return fmt.Errorf("entry unique ID length %d", len(e.UniqueID))
		}
		if !e.NodeID.IsValid() {
			return fmt.Errorf("%w: entry node %d", ErrInvalidNodeID, e.NodeID)
		}
	}
	return nil
}

// AppendEntriesResponse answers an AppendEntriesRequest.
type AppendEntriesResponse struct {
	Term    uint32 `cbor:"1,keyasint"`
	Success bool   `cbor:"2,keyasint"`
}

// DataType implements Payload.
func (*AppendEntriesResponse) DataType() DataTypeID { return DataTypeAppendEntries }

// Validate implements Payload.
func (*AppendEntriesResponse) Validate() error { return nil }

// RequestVoteRequest is sent by candidates.
//
// CBOR encoding:
//
//	{
//	  1: term,         // uint32
//	  2: lastLogIndex, // uint32
//	  3: lastLogTerm   // uint32
//	}
type RequestVoteRequest struct {
	Term         uint32 `cbor:"1,keyasint"`
	LastLogIndex uint32 `cbor:"2,keyasint"`
	LastLogTerm  uint32 `cbor:"3,keyasint"`
}

// DataType implements Payload.
func (*RequestVoteRequest) DataType() DataTypeID { return DataTypeRequestVote }

// Validate implements Payload.
func (r *RequestVoteRequest) Validate() error {
	if r.Term == 0 {
		return fmt.Errorf("term must be non-zero")
	}
	return nil
}

// RequestVoteResponse answers a RequestVoteRequest.
type RequestVoteResponse struct {
	Term        uint32 `cbor:"1,keyasint"`
	VoteGranted bool   `cbor:"2,keyasint"`
}

// DataType implements Payload.
func (*RequestVoteResponse) DataType() DataTypeID { return DataTypeRequestVote }

// Validate implements Payload.
func (*RequestVoteResponse) Validate() error { return nil }
