// Package transport emulates a shared bus for allocation nodes.
//
// A bus interface is a Link: every frame sent on a link is delivered to
// every other link attached to the same bus, never back to the sender.
// Nodes with redundant interfaces attach one link per bus.
//
// Two bus implementations are provided:
//   - Hub: a TCP relay. Nodes connect with Dial and exchange
//     length-prefixed frames; the hub forwards each frame to all other
//     connections.
//   - MemoryBus: an in-process bus used by tests and simulations. It can
//     partition attached links into groups that do not see each other.
//
// # Framing
//
// TCP connections carry frames prefixed with a 2-byte big-endian length.
//
//	┌────────────────────────────────┐
//	│      CBOR wire.Frame           │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
package transport
