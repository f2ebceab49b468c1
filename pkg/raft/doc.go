// Package raft implements the replicated allocation log: a simplified Raft
// consensus engine tailored to dynamic node ID allocation.
//
// The engine runs on a node.Node event loop and keeps its persistent state
// (current term, vote and log) in a storage.Backend. It differs from
// textbook Raft in a few ways that suit a small bus:
//
//   - Cluster members are not configured; they find each other through
//     Discovery broadcasts. Only the cluster size (1..5) is configured.
//   - AppendEntries carries at most one entry, and the leader contacts
//     one follower per update interval in round-robin order.
//   - A new leader appends a no-op entry in its own term, so entries from
//     earlier terms can be committed.
//   - A leader that hears from fewer than a quorum of followers for an
//     election timeout steps down.
//
// On the leader, every newly committed allocation is reported exactly once
// to the LeaderMonitor.
//
// # Storage Keys
//
//	current_term         decimal
//	voted_for            decimal node ID, 0 = none
//	log_last_index       decimal
//	log<N>_term          decimal
//	log<N>_unique_id     32 hex digits
//	log<N>_node_id       decimal
//	cluster_size         decimal
package raft
