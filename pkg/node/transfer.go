package node

import (
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

// Transfer is a received frame as seen by handlers.
type Transfer struct {
	Kind        wire.TransferKind
	DataType    wire.DataTypeID
	Source      nodeid.NodeID
	Destination nodeid.NodeID
	TransferID  uint8
	Payload     []byte

	// Interface is the index of the link the first copy arrived on.
	Interface int

	// Timestamp is the node clock time of reception.
	Timestamp time.Time
}

// IsAnonymous reports whether the sender has no node ID.
func (t *Transfer) IsAnonymous() bool {
	return t.Source == nodeid.Broadcast
}

// Decode decodes and validates the payload into p.
func (t *Transfer) Decode(p wire.Payload) error {
	return wire.DecodePayload(t.Payload, p)
}

// MessageHandler handles a broadcast message.
type MessageHandler func(t *Transfer)

// ServiceHandler handles a service request. Returning ok=false sends no
// response and the caller times out.
type ServiceHandler func(req *Transfer) (resp wire.Payload, ok bool)

// ResponseHandler receives the outcome of a Call: the response transfer,
// or ErrCallTimeout.
type ResponseHandler func(resp *Transfer, err error)
