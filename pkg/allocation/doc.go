// Package allocation implements the dynamic node ID allocation exchange on
// the bus.
//
// A device without a node ID (the allocatee) broadcasts its 16-byte unique
// ID anonymously. Because anonymous frames are short, the ID is normally
// sent in three stages of 6, 6 and 4 bytes. After each of the first two
// stages the leader answers with a follow-up carrying everything received
// so far; after the last stage the leader either re-announces an existing
// allocation or appends a new one to the replicated log and announces it
// once committed.
//
//	device                                   leader
//	  | -- stage 1: uid[0:6], first=true  -->  |
//	  | <-- follow-up: uid[0:6]  ------------  |
//	  | -- stage 2: uid[6:12] ------------->   |
//	  | <-- follow-up: uid[0:12] -----------   |
//	  | -- stage 3: uid[12:16], preferred -->  |
//	  | <-- allocation: uid, node ID -------   |
//
// Transports without the frame size limit may send all 16 bytes at once
// with the first-part flag set.
//
// RequestManager is the server side; Client is the allocatee side.
package allocation
