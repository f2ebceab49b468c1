package nodeid

import (
	"fmt"
	"strconv"
)

// NodeID is a bus address in the range 0..127.
type NodeID uint8

const (
	// Broadcast is the anonymous/broadcast address. It is never allocated
	// and is returned wherever "no node ID" must be expressed.
	Broadcast NodeID = 0

	// Max is the largest valid node ID.
	Max NodeID = 127

	// MaxRecommended is the largest node ID handed out by allocators.
	// 126 and 127 are left for diagnostic and debugging tools.
	MaxRecommended NodeID = 125
)

// IsValid reports whether n fits into the 7-bit node ID space.
func (n NodeID) IsValid() bool {
	return n <= Max
}

// IsUnicast reports whether n addresses a single node.
func (n NodeID) IsUnicast() bool {
	return n > Broadcast && n <= Max
}

// IsBroadcast reports whether n is the broadcast address.
func (n NodeID) IsBroadcast() bool {
	return n == Broadcast
}

// String returns the decimal representation.
func (n NodeID) String() string {
	return strconv.Itoa(int(n))
}

// ParseNodeID parses a decimal node ID.
func ParseNodeID(s string) (NodeID, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return Broadcast, fmt.Errorf("invalid node ID %q: %w", s, err)
	}
	n := NodeID(v)
	if !n.IsValid() {
		return Broadcast, fmt.Errorf("node ID %d out of range 0..%d", v, Max)
	}
	return n, nil
}
