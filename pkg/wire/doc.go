// Package wire defines the CBOR wire format of the allocation bus.
//
// Every transfer on the bus is a Frame: a small envelope carrying the
// transfer kind, data type ID, source and destination node IDs, a transfer
// ID and the CBOR-encoded payload. Frames use integer map keys for
// compactness, as do all payload types.
//
// # Data Types
//
//   - Allocation (1): broadcast message used by the allocation exchange
//   - AppendEntries (30): Raft log replication service
//   - RequestVote (31): Raft leader election service
//   - Discovery (390): broadcast message for allocator cluster discovery
//
// # Anonymous Transfers
//
// A node that has no node ID yet sends with Source 0. Only messages may be
// anonymous; service requests and responses always carry both addresses.
package wire
