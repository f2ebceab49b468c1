package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Frames and payloads use deterministic encoding. Decoding skips unknown
// keys so newer peers can add fields.
var (
	encMode = func() cbor.EncMode {
		em, err := cbor.EncOptions{
			Sort:          cbor.SortCanonical,
			IndefLength:   cbor.IndefLengthForbidden,
			NilContainers: cbor.NilContainerAsNull,
			Time:          cbor.TimeUnix,
		}.EncMode()
		if err != nil {
			panic(fmt.Sprintf("wire: encoder options: %v", err))
		}
		return em
	}()
	decMode = func() cbor.DecMode {
		dm, err := cbor.DecOptions{
			DupMapKey:   cbor.DupMapKeyQuiet,
			IndefLength: cbor.IndefLengthAllowed,
		}.DecMode()
		if err != nil {
			panic(fmt.Sprintf("wire: decoder options: %v", err))
		}
		return dm
	}()
)

// Marshal encodes v with the bus encoding.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// Payload is implemented by every message and service type carried in a
// frame.
type Payload interface {
	DataType() DataTypeID
	Validate() error
}

// EncodeFrame validates and encodes a frame.
func EncodeFrame(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return Marshal(f)
}

// DecodeFrame decodes and validates a frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return &f, nil
}

// EncodePayload validates and encodes a payload.
func EncodePayload(p Payload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", p.DataType(), err)
	}
	return Marshal(p)
}

// DecodePayload decodes data into p and validates the result.
func DecodePayload(data []byte, p Payload) error {
	if err := Unmarshal(data, p); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", p.DataType(), err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid %s payload: %w", p.DataType(), err)
	}
	return nil
}
