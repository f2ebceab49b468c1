package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

func logOne(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterFrameEvent(t *testing.T) {
	frame := &wire.Frame{Kind: wire.KindServiceRequest, DataType: wire.DataTypeRequestVote, Source: 1, Destination: 2, TransferID: 7}
	entry := logOne(t, NewFrameEvent(1, DirectionOut, 1, frame))

	if entry["direction"] != "OUT" {
		t.Errorf("direction: got %v", entry["direction"])
	}
	if entry["data_type"] != "RequestVote" {
		t.Errorf("data_type: got %v", entry["data_type"])
	}
	if entry["dst"] != float64(2) {
		t.Errorf("dst: got %v", entry["dst"])
	}
	if entry["msg"] != "trace" {
		t.Errorf("msg: got %v", entry["msg"])
	}
}

func TestSlogAdapterTraceEvent(t *testing.T) {
	entry := logOne(t, NewTraceEvent(5, TraceAllocationRequestAccepted, 12))
	if entry["code"] != "AllocationRequestAccepted" {
		t.Errorf("code: got %v", entry["code"])
	}
	if entry["arg"] != float64(12) {
		t.Errorf("arg: got %v", entry["arg"])
	}
	if entry["layer"] != "ALLOCATION" {
		t.Errorf("layer: got %v", entry["layer"])
	}
}

func TestSlogAdapterStateAndFailure(t *testing.T) {
	entry := logOne(t, NewStateChangeEvent(1, "CANDIDATE", "LEADER", 4))
	if entry["new_state"] != "LEADER" || entry["term"] != float64(4) {
		t.Errorf("unexpected state entry: %v", entry)
	}

	entry = logOne(t, NewFailureEvent(1, "boom"))
	if entry["reason"] != "boom" || entry["category"] != "FAILURE" {
		t.Errorf("unexpected failure entry: %v", entry)
	}
}
