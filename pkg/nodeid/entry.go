package nodeid

import "fmt"

// Entry is one record of the allocation log: UniqueID was given NodeID.
// Term is the consensus term in which the entry was created.
type Entry struct {
	Term     uint32
	UniqueID UniqueID
	NodeID   NodeID
}

// IsNoop reports whether the entry is a consensus-internal marker rather
// than an allocation.
func (e Entry) IsNoop() bool {
	return e.UniqueID.IsZero() && e.NodeID == Broadcast
}

// String returns a compact human-readable form.
func (e Entry) String() string {
	if e.IsNoop() {
		return fmt.Sprintf("term=%d noop", e.Term)
	}
	return fmt.Sprintf("term=%d uid=%s node=%d", e.Term, e.UniqueID, e.NodeID)
}

// EntryInfo is a read-only view of a log entry together with its commit
// state at the time it was observed.
type EntryInfo struct {
	Entry     Entry
	Committed bool
}
