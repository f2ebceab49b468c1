package log

import (
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

// Event is one trace record. Exactly one of the type-specific fields is set.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// NodeID of the node that recorded the event. 0 for anonymous nodes.
	NodeID nodeid.NodeID `cbor:"2,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Trace       *TraceEvent       `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Failure     *FailureEvent     `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of a frame.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerBus is the node's frame I/O.
	LayerBus Layer = 0
	// LayerRaft is the consensus engine.
	LayerRaft Layer = 1
	// LayerAllocation is the allocation exchange and coordinator.
	LayerAllocation Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerBus:
		return "BUS"
	case LayerRaft:
		return "RAFT"
	case LayerAllocation:
		return "ALLOCATION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryFrame   Category = 0
	CategoryTrace   Category = 1
	CategoryState   Category = 2
	CategoryFailure Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryTrace:
		return "TRACE"
	case CategoryState:
		return "STATE"
	case CategoryFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent describes one frame crossing a bus interface.
type FrameEvent struct {
	Direction   Direction         `cbor:"1,keyasint"`
	Interface   uint8             `cbor:"2,keyasint"`
	Kind        wire.TransferKind `cbor:"3,keyasint"`
	DataType    wire.DataTypeID   `cbor:"4,keyasint"`
	Source      nodeid.NodeID     `cbor:"5,keyasint"`
	Destination nodeid.NodeID     `cbor:"6,keyasint,omitempty"`
	TransferID  uint8             `cbor:"7,keyasint"`
	Size        int               `cbor:"8,keyasint"`

	// Duplicate is set when a redundant copy was dropped.
	Duplicate bool `cbor:"9,keyasint,omitempty"`
}

// TraceEvent is a numbered trace point with a single numeric argument,
// e.g. the new commit index or the node ID of a newly discovered server.
type TraceEvent struct {
	Code     TraceCode `cbor:"1,keyasint"`
	Argument int64     `cbor:"2,keyasint"`
}

// StateChangeEvent records a consensus role change.
type StateChangeEvent struct {
	OldState string `cbor:"1,keyasint"`
	NewState string `cbor:"2,keyasint"`
	Term     uint32 `cbor:"3,keyasint"`
}

// FailureEvent records an internal failure reported by any component.
type FailureEvent struct {
	Reason string `cbor:"1,keyasint"`
}

// NewFrameEvent builds a bus frame event.
func NewFrameEvent(self nodeid.NodeID, dir Direction, iface uint8, f *wire.Frame) Event {
	return Event{
		Timestamp: time.Now(),
		NodeID:    self,
		Layer:     LayerBus,
		Category:  CategoryFrame,
		Frame: &FrameEvent{
			Direction:   dir,
			Interface:   iface,
			Kind:        f.Kind,
			DataType:    f.DataType,
			Source:      f.Source,
			Destination: f.Destination,
			TransferID:  f.TransferID,
			Size:        len(f.Payload),
		},
	}
}

// NewTraceEvent builds a trace point event. The layer is derived from the code.
func NewTraceEvent(self nodeid.NodeID, code TraceCode, arg int64) Event {
	return Event{
		Timestamp: time.Now(),
		NodeID:    self,
		Layer:     code.Layer(),
		Category:  CategoryTrace,
		Trace:     &TraceEvent{Code: code, Argument: arg},
	}
}

// NewStateChangeEvent builds a consensus role change event.
func NewStateChangeEvent(self nodeid.NodeID, oldState, newState string, term uint32) Event {
	return Event{
		Timestamp:   time.Now(),
		NodeID:      self,
		Layer:       LayerRaft,
		Category:    CategoryState,
		StateChange: &StateChangeEvent{OldState: oldState, NewState: newState, Term: term},
	}
}

// NewFailureEvent builds an internal failure event.
func NewFailureEvent(self nodeid.NodeID, reason string) Event {
	return Event{
		Timestamp: time.Now(),
		NodeID:    self,
		Layer:     LayerAllocation,
		Category:  CategoryFailure,
		Failure:   &FailureEvent{Reason: reason},
	}
}
