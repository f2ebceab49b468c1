package log

import (
	"sync"
	"testing"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(NewFailureEvent(1, "ignored"))
}

func TestMultiLoggerFansOut(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(NewTraceEvent(1, TraceRaftCoreInited, 0))
	m.Log(NewTraceEvent(1, TraceRaftElectionComplete, 2))

	if len(a.events) != 2 || len(b.events) != 2 {
		t.Errorf("got %d and %d events, want 2 each", len(a.events), len(b.events))
	}
}

func TestTraceCodeNames(t *testing.T) {
	if TraceRaftStateSwitch.String() != "RaftStateSwitch" {
		t.Errorf("got %q", TraceRaftStateSwitch.String())
	}
	if TraceCode(999).String() != "TraceCode(999)" {
		t.Errorf("got %q", TraceCode(999).String())
	}
	code, ok := ParseTraceCode("AllocationFollowupDenied")
	if !ok || code != TraceAllocationFollowupDenied {
		t.Errorf("ParseTraceCode: got %v, %v", code, ok)
	}
	if _, ok := ParseTraceCode("Nope"); ok {
		t.Error("expected unknown name to fail")
	}
	if TraceAllocationActivity.Layer() != LayerAllocation || TraceRaftCoreInited.Layer() != LayerRaft {
		t.Error("unexpected layer mapping")
	}
}
