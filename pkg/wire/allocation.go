package wire

import (
	"fmt"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

// Allocation is the dynamic node ID allocation message.
//
// Sent anonymously by a device (UniqueID carries one stage of its
// identity) and by the allocator (UniqueID carries everything received so
// far, or the full ID together with the allocated NodeID).
//
// CBOR encoding:
//
//	{
//	  1: nodeId,              // uint8: preferred (request) or allocated (response)
//	  2: firstPartOfUniqueId, // bool: set on the first stage of a request
//	  3: uniqueId             // bstr: 0..16 bytes
//	}
type Allocation struct {
	NodeID              nodeid.NodeID `cbor:"1,keyasint"`
	FirstPartOfUniqueID bool          `cbor:"2,keyasint,omitempty"`
	UniqueID            []byte        `cbor:"3,keyasint"`
}

// DataType implements Payload.
func (*Allocation) DataType() DataTypeID { return DataTypeAllocation }

// Validate implements Payload.
func (a *Allocation) Validate() error {
	if !a.NodeID.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidNodeID, a.NodeID)
	}
	if len(a.UniqueID) > nodeid.UniqueIDLength {
		return fmt.Errorf("unique ID length %d exceeds %d", len(a.UniqueID), nodeid.UniqueIDLength)
	}
	return nil
}

// Discovery is broadcast by allocation servers to find each other.
//
// CBOR encoding:
//
//	{
//	  1: configuredClusterSize, // uint8
//	  2: knownNodes             // [uint8]: includes the sender
//	}
type Discovery struct {
	ConfiguredClusterSize uint8           `cbor:"1,keyasint"`
	KnownNodes            []nodeid.NodeID `cbor:"2,keyasint"`
}

// MaxClusterSize is the largest supported allocator cluster.
const MaxClusterSize = 5

// DataType implements Payload.
func (*Discovery) DataType() DataTypeID { return DataTypeDiscovery }

// Validate implements Payload.
func (d *Discovery) Validate() error {
	if d.ConfiguredClusterSize == 0 || d.ConfiguredClusterSize > MaxClusterSize {
		return fmt.Errorf("cluster size %d out of range 1..%d", d.ConfiguredClusterSize, MaxClusterSize)
	}
	if len(d.KnownNodes) > MaxClusterSize {
		return fmt.Errorf("%d known nodes exceed %d", len(d.KnownNodes), MaxClusterSize)
	}
	for _, n := range d.KnownNodes {
		if !n.IsUnicast() {
			return fmt.Errorf("%w: known node %d", ErrInvalidNodeID, n)
		}
	}
	return nil
}
