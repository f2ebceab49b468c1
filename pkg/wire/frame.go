package wire

import (
	"errors"
	"fmt"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

// TransferKind distinguishes broadcast messages from service calls.
type TransferKind uint8

const (
	KindMessage         TransferKind = 0
	KindServiceRequest  TransferKind = 1
	KindServiceResponse TransferKind = 2
)

// String returns the transfer kind name.
func (k TransferKind) String() string {
	switch k {
	case KindMessage:
		return "MESSAGE"
	case KindServiceRequest:
		return "REQUEST"
	case KindServiceResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// IsService reports whether k is a service request or response.
func (k TransferKind) IsService() bool {
	return k == KindServiceRequest || k == KindServiceResponse
}

// DataTypeID identifies the payload type of a frame.
type DataTypeID uint16

const (
	DataTypeAllocation    DataTypeID = 1
	DataTypeAppendEntries DataTypeID = 30
	DataTypeRequestVote   DataTypeID = 31
	DataTypeDiscovery     DataTypeID = 390
)

// String returns the data type name.
func (d DataTypeID) String() string {
	switch d {
	case DataTypeAllocation:
		return "Allocation"
	case DataTypeAppendEntries:
		return "AppendEntries"
	case DataTypeRequestVote:
		return "RequestVote"
	case DataTypeDiscovery:
		return "Discovery"
	default:
		return fmt.Sprintf("DataType(%d)", uint16(d))
	}
}

// MaxPayloadSize bounds the payload carried by a single frame.
const MaxPayloadSize = 1024

// Frame errors.
var (
	ErrAnonymousService    = errors.New("anonymous service transfer")
	ErrMissingDest         = errors.New("service transfer without destination")
	ErrUnexpectedDest      = errors.New("message transfer with destination")
	ErrPayloadTooLarge     = errors.New("payload too large")
	ErrInvalidNodeID       = errors.New("node ID out of range")
	ErrInvalidTransferKind = errors.New("invalid transfer kind")
)

// Frame is a single transfer on the bus.
//
// CBOR encoding:
//
//	{
//	  1: kind,        // uint8: 0=message, 1=request, 2=response
//	  2: dataType,    // uint16
//	  3: source,      // uint8: 0 = anonymous
//	  4: destination, // uint8: 0 for messages
//	  5: transferId,  // uint8
//	  6: payload      // bstr: CBOR-encoded payload
//	}
type Frame struct {
	Kind        TransferKind  `cbor:"1,keyasint"`
	DataType    DataTypeID    `cbor:"2,keyasint"`
	Source      nodeid.NodeID `cbor:"3,keyasint"`
	Destination nodeid.NodeID `cbor:"4,keyasint,omitempty"`
	TransferID  uint8         `cbor:"5,keyasint"`
	Payload     []byte        `cbor:"6,keyasint"`
}

// IsAnonymous reports whether the sender has no node ID.
func (f *Frame) IsAnonymous() bool {
	return f.Source == nodeid.Broadcast
}

// Validate checks addressing rules and size limits.
func (f *Frame) Validate() error {
	if f.Kind > KindServiceResponse {
		return fmt.Errorf("%w: %d", ErrInvalidTransferKind, f.Kind)
	}
	if !f.Source.IsValid() || !f.Destination.IsValid() {
		return ErrInvalidNodeID
	}
	if len(f.Payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Payload))
	}
	if f.Kind.IsService() {
		if f.IsAnonymous() {
			return ErrAnonymousService
		}
		if f.Destination == nodeid.Broadcast {
			return ErrMissingDest
		}
	} else if f.Destination != nodeid.Broadcast {
		return ErrUnexpectedDest
	}
	return nil
}

// String returns a compact description for logs.
func (f *Frame) String() string {
	return fmt.Sprintf("%s %s src=%d dst=%d tid=%d len=%d",
		f.Kind, f.DataType, f.Source, f.Destination, f.TransferID, len(f.Payload))
}
