// Package nodeid defines the identifiers exchanged during dynamic node ID
// allocation and the log entry that binds them together.
//
// A device is named by its UniqueID, a 16-byte value derived from hardware
// (or a UUID). Once allocated, it is addressed on the bus by a NodeID, a
// 7-bit integer. The replicated allocation log stores Entry values, each
// binding one UniqueID to one NodeID.
//
// # Reserved Values
//
// NodeID 0 is the broadcast/anonymous address and doubles as the "no node
// ID" sentinel. The all-zero UniqueID never names a device; the consensus
// engine uses it to mark its internal no-op entries.
package nodeid
