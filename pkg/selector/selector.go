// Package selector finds a free node ID for a new allocation.
package selector

import "github.com/dynalloc/dynalloc-go/pkg/nodeid"

// Selector searches the node ID space for a free ID, preferring the one
// the device asked for.
type Selector struct {
	reserved map[nodeid.NodeID]struct{}
}

// Option configures a Selector.
type Option func(*Selector)

// WithReserved excludes ids from allocation, e.g. the node IDs of the
// allocation servers themselves or statically configured nodes.
func WithReserved(ids ...nodeid.NodeID) Option {
	return func(s *Selector) {
		for _, id := range ids {
			s.reserved[id] = struct{}{}
		}
	}
}

// New creates a Selector.
func New(opts ...Option) *Selector {
	s := &Selector{reserved: make(map[nodeid.NodeID]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindFreeNodeID returns the first free node ID, searching upward from
// preferred to MaxRecommended and then downward from preferred to 1.
// A non-unicast preferred value starts the search at MaxRecommended.
// Returns nodeid.Broadcast if every candidate is taken.
func (s *Selector) FindFreeNodeID(preferred nodeid.NodeID, isTaken func(nodeid.NodeID) bool) nodeid.NodeID {
	start := int(nodeid.MaxRecommended)
	if preferred.IsUnicast() {
		start = int(preferred)
	}

	for c := start; c <= int(nodeid.MaxRecommended); c++ {
		if s.free(nodeid.NodeID(c), isTaken) {
			return nodeid.NodeID(c)
		}
	}
	for c := start; c > 0; c-- {
		if s.free(nodeid.NodeID(c), isTaken) {
			return nodeid.NodeID(c)
		}
	}
	return nodeid.Broadcast
}

// IsReserved reports whether id was excluded via WithReserved.
func (s *Selector) IsReserved(id nodeid.NodeID) bool {
	_, ok := s.reserved[id]
	return ok
}

func (s *Selector) free(id nodeid.NodeID, isTaken func(nodeid.NodeID) bool) bool {
	return !s.IsReserved(id) && !isTaken(id)
}
