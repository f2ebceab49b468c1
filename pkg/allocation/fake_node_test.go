package allocation

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

type fakeTimer struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

type fakeNode struct {
	id         nodeid.NodeID
	now        time.Time
	broadcasts []*wire.Allocation
	handler    node.MessageHandler
	timers     []*fakeTimer
	traces     []log.TraceCode

	broadcastErr error
	failures     []string
}

func newFakeNode(id nodeid.NodeID) *fakeNode {
	return &fakeNode{id: id, now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeNode) NodeID() nodeid.NodeID { return f.id }
func (f *fakeNode) Now() time.Time        { return f.now }

func (f *fakeNode) Broadcast(p wire.Payload) error {
	if f.broadcastErr != nil {
		return f.broadcastErr
	}
	f.broadcasts = append(f.broadcasts, p.(*wire.Allocation))
	return nil
}

func (f *fakeNode) RegisterInternalFailure(reason string) { f.failures = append(f.failures, reason) }

func (f *fakeNode) Subscribe(_ wire.DataTypeID, h node.MessageHandler) { f.handler = h }
func (f *fakeNode) Trace(code log.TraceCode, _ int64)                  { f.traces = append(f.traces, code) }
func (f *fakeNode) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fakeNode) After(d time.Duration, fn func()) func() {
	t := &fakeTimer{d: d, fn: fn}
	f.timers = append(f.timers, t)
	return func() { t.cancelled = true }
}

// fireTimer runs the single pending timer.
func (f *fakeNode) fireTimer(t *testing.T) time.Duration {
	t.Helper()
	var live []*fakeTimer
	for _, tm := range f.timers {
		if !tm.cancelled {
			live = append(live, tm)
		}
	}
	require.Len(t, live, 1, "expected exactly one pending timer")
	f.timers = nil
	live[0].cancelled = true
	live[0].fn()
	return live[0].d
}

func (f *fakeNode) lastBroadcast(t *testing.T) *wire.Allocation {
	t.Helper()
	require.NotEmpty(t, f.broadcasts)
	return f.broadcasts[len(f.broadcasts)-1]
}

func (f *fakeNode) deliver(t *testing.T, src nodeid.NodeID, msg *wire.Allocation) {
	t.Helper()
	require.NotNil(t, f.handler)
	data, err := wire.EncodePayload(msg)
	require.NoError(t, err)
	f.handler(&node.Transfer{
		Kind:     wire.KindMessage,
		DataType: wire.DataTypeAllocation,
		Source:   src,
		Payload:  data,
	})
}

func (f *fakeNode) traced(code log.TraceCode) bool {
	for _, c := range f.traces {
		if c == code {
			return true
		}
	}
	return false
}
