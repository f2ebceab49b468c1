// Package allocator implements the allocation server: the coordinator that
// decides, for every completed allocation request and every log commit,
// whether to grow the replicated log and what to announce on the bus.
//
// The Server sits between the request manager (package allocation), which
// delivers requests and publishes responses, and the consensus log
// (package raft), which replicates allocations and reports commits. Both
// collaborators see the Server only through the narrow interfaces they
// declare: allocation.RequestHandler and raft.LeaderMonitor.
//
// Decision table for a request (uid, preferred), based on the most recent
// log entry for uid:
//
//	no entry,  leader      select a free node ID and append it
//	no entry,  follower    ignore
//	uncommitted entry      ignore, wait for the commit
//	committed entry        announce the committed node ID
//
// Every commit observed on the leader is announced, whether or not a
// request is pending. Nothing is retried: failed appends and broadcasts
// are reported to the node's internal failure counter, and devices retry
// on their own schedule.
package allocator
