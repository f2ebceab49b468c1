package wire

import (
	"errors"
	"testing"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr error
	}{
		{
			name:  "anonymous message",
			frame: Frame{Kind: KindMessage, DataType: DataTypeAllocation, Source: 0},
		},
		{
			name:  "service request",
			frame: Frame{Kind: KindServiceRequest, DataType: DataTypeRequestVote, Source: 1, Destination: 2},
		},
		{
			name:    "anonymous service",
			frame:   Frame{Kind: KindServiceRequest, DataType: DataTypeRequestVote, Source: 0, Destination: 2},
			wantErr: ErrAnonymousService,
		},
		{
			name:    "service without destination",
			frame:   Frame{Kind: KindServiceResponse, DataType: DataTypeAppendEntries, Source: 1},
			wantErr: ErrMissingDest,
		},
		{
			name:    "message with destination",
			frame:   Frame{Kind: KindMessage, DataType: DataTypeDiscovery, Source: 1, Destination: 2},
			wantErr: ErrUnexpectedDest,
		},
		{
			name:    "source out of range",
			frame:   Frame{Kind: KindMessage, Source: 200},
			wantErr: ErrInvalidNodeID,
		},
		{
			name:    "payload too large",
			frame:   Frame{Kind: KindMessage, Source: 1, Payload: make([]byte, MaxPayloadSize+1)},
			wantErr: ErrPayloadTooLarge,
		},
		{
			name:    "bad kind",
			frame:   Frame{Kind: 7, Source: 1},
			wantErr: ErrInvalidTransferKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrameEncodeDecode(t *testing.T) {
	payload, err := EncodePayload(&Allocation{NodeID: 42, FirstPartOfUniqueID: true, UniqueID: []byte{1, 2, 3, 4, 5, 6}})
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	data, err := EncodeFrame(&Frame{Kind: KindMessage, DataType: DataTypeAllocation, TransferID: 9, Payload: payload})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if !f.IsAnonymous() {
		t.Error("expected anonymous frame")
	}
	if f.DataType != DataTypeAllocation || f.TransferID != 9 {
		t.Errorf("unexpected frame: %s", f)
	}

	var msg Allocation
	if err := DecodePayload(f.Payload, &msg); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if msg.NodeID != 42 || !msg.FirstPartOfUniqueID || len(msg.UniqueID) != 6 {
		t.Errorf("unexpected allocation: %+v", msg)
	}
}

func TestEncodeFrameRejectsInvalid(t *testing.T) {
	if _, err := EncodeFrame(&Frame{Kind: KindServiceRequest}); err == nil {
		t.Error("expected error for anonymous service request")
	}
}

func TestDecodeFrameGarbage(t *testing.T) {
	if _, err := DecodeFrame([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("expected decode error")
	}
}

func TestAllocationValidate(t *testing.T) {
	ok := &Allocation{NodeID: 127, UniqueID: make([]byte, 16)}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	long := &Allocation{UniqueID: make([]byte, 17)}
	if err := long.Validate(); err == nil {
		t.Error("expected error for 17-byte unique ID")
	}
	bad := &Allocation{NodeID: 128}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("Validate() = %v, want ErrInvalidNodeID", err)
	}
}

func TestDiscoveryValidate(t *testing.T) {
	if err := (&Discovery{ConfiguredClusterSize: 3, KnownNodes: []nodeid.NodeID{1, 2}}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&Discovery{ConfiguredClusterSize: 0}).Validate(); err == nil {
		t.Error("expected error for zero cluster size")
	}
	if err := (&Discovery{ConfiguredClusterSize: 6}).Validate(); err == nil {
		t.Error("expected error for cluster size 6")
	}
	if err := (&Discovery{ConfiguredClusterSize: 3, KnownNodes: []nodeid.NodeID{0}}).Validate(); err == nil {
		t.Error("expected error for broadcast known node")
	}
}

func TestAppendEntriesValidate(t *testing.T) {
	entry := NewLogEntry(nodeid.Entry{Term: 2, UniqueID: nodeid.UniqueID{1}, NodeID: 10})
	req := &AppendEntriesRequest{Term: 2, Entries: []LogEntry{entry}}
	if err := req.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	req.Entries = append(req.Entries, entry)
	if err := req.Validate(); err == nil {
		t.Error("expected error for two entries")
	}

	if err := (&AppendEntriesRequest{}).Validate(); err == nil {
		t.Error("expected error for zero term")
	}

	got, err := entry.Entry()
	if err != nil {
		t.Fatalf("Entry() failed: %v", err)
	}
	if got.NodeID != 10 || got.Term != 2 || got.UniqueID != (nodeid.UniqueID{1}) {
		t.Errorf("unexpected entry: %v", got)
	}
}

func TestDataTypeString(t *testing.T) {
	if DataTypeDiscovery.String() != "Discovery" {
		t.Errorf("got %q", DataTypeDiscovery.String())
	}
	if DataTypeID(7).String() != "DataType(7)" {
		t.Errorf("got %q", DataTypeID(7).String())
	}
	if KindServiceResponse.String() != "RESPONSE" {
		t.Errorf("got %q", KindServiceResponse.String())
	}
}
