// Package node implements a bus node: the single event loop that drives
// every protocol component of a process.
//
// A Node owns one or more redundant bus interfaces (transport.Link). Frames
// received on any interface, periodic callbacks and service call timeouts
// are all dispatched on one goroutine, so components registered with a
// node (consensus engine, allocation request manager, allocation client)
// never need locks. Code running elsewhere reaches the loop through Do.
//
// # Transfers
//
// Three transfer kinds exist: broadcast messages (Broadcast/Subscribe),
// service requests (Call/Serve) and service responses. Every outgoing
// frame is sent on all interfaces. Copies of the same transfer arriving on
// several interfaces are delivered once.
//
// # Anonymous Nodes
//
// A node created with NodeID 0 is anonymous: it may broadcast messages but
// cannot call or serve services. SetNodeID assigns an ID later, e.g. once
// dynamic allocation completes.
package node
