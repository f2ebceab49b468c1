package node

import "github.com/dynalloc/dynalloc-go/pkg/log"

// RegisterInternalFailure records a non-fatal internal failure. It never
// blocks and may be called from any goroutine.
func (n *Node) RegisterInternalFailure(reason string) {
	count := n.failures.Add(1)
	n.logger.Warn("internal failure", "node_id", n.NodeID(), "reason", reason, "count", count)
	n.tracer.Log(log.NewFailureEvent(n.NodeID(), reason))
}

// InternalFailureCount returns the number of failures registered so far.
func (n *Node) InternalFailureCount() uint64 {
	return n.failures.Load()
}
