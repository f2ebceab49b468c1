package raft

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

type fakeCall struct {
	dest    nodeid.NodeID
	req     wire.Payload
	handler node.ResponseHandler
}

// fakeNode drives the engine synchronously from tests.
type fakeNode struct {
	id         nodeid.NodeID
	now        time.Time
	broadcasts []wire.Payload
	calls      []fakeCall
	subs       map[wire.DataTypeID]node.MessageHandler
	services   map[wire.DataTypeID]node.ServiceHandler
	periodic   []func(time.Time)
	failures   []string
	traces     []log.TraceCode
}

func newFakeNode(id nodeid.NodeID) *fakeNode {
	return &fakeNode{
		id:       id,
		now:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		subs:     make(map[wire.DataTypeID]node.MessageHandler),
		services: make(map[wire.DataTypeID]node.ServiceHandler),
	}
}

func (f *fakeNode) NodeID() nodeid.NodeID { return f.id }
func (f *fakeNode) Now() time.Time        { return f.now }

func (f *fakeNode) Broadcast(p wire.Payload) error {
	f.broadcasts = append(f.broadcasts, p)
	return nil
}

func (f *fakeNode) Call(dest nodeid.NodeID, req wire.Payload, _ time.Duration, h node.ResponseHandler) error {
	f.calls = append(f.calls, fakeCall{dest: dest, req: req, handler: h})
	return nil
}

func (f *fakeNode) Subscribe(dt wire.DataTypeID, h node.MessageHandler) { f.subs[dt] = h }
func (f *fakeNode) Serve(dt wire.DataTypeID, h node.ServiceHandler)     { f.services[dt] = h }

func (f *fakeNode) Every(_ time.Duration, fn func(time.Time)) {
	f.periodic = append(f.periodic, fn)
}

func (f *fakeNode) RegisterInternalFailure(reason string) { f.failures = append(f.failures, reason) }
func (f *fakeNode) Trace(code log.TraceCode, _ int64)     { f.traces = append(f.traces, code) }
func (f *fakeNode) Tracer() log.Logger                    { return log.NoopLogger{} }
func (f *fakeNode) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// advance moves the clock and runs every periodic callback once.
func (f *fakeNode) advance(d time.Duration) {
	f.now = f.now.Add(d)
	for _, fn := range f.periodic {
		fn(f.now)
	}
}

// takeCalls returns and clears the recorded calls.
func (f *fakeNode) takeCalls() []fakeCall {
	calls := f.calls
	f.calls = nil
	return calls
}

// deliver feeds a message from src to the subscribed handler.
func (f *fakeNode) deliver(t *testing.T, src nodeid.NodeID, p wire.Payload) {
	t.Helper()
	h, ok := f.subs[p.DataType()]
	require.True(t, ok, "no subscriber for %v", p.DataType())
	h(transferOf(t, wire.KindMessage, src, f.id, p))
}

// request feeds a service request from src and returns the response.
func (f *fakeNode) request(t *testing.T, src nodeid.NodeID, p wire.Payload) (wire.Payload, bool) {
	t.Helper()
	h, ok := f.services[p.DataType()]
	require.True(t, ok, "no server for %v", p.DataType())
	return h(transferOf(t, wire.KindServiceRequest, src, f.id, p))
}

func (f *fakeNode) hasFailure(reason string) bool {
	for _, r := range f.failures {
		if r == reason {
			return true
		}
	}
	return false
}

// respond completes call c with p as if sent by its destination.
func respond(t *testing.T, c fakeCall, p wire.Payload) {
	t.Helper()
	c.handler(transferOf(t, wire.KindServiceResponse, c.dest, 0, p), nil)
}

func transferOf(t *testing.T, kind wire.TransferKind, src, dst nodeid.NodeID, p wire.Payload) *node.Transfer {
	t.Helper()
	data, err := wire.EncodePayload(p)
	require.NoError(t, err)
	return &node.Transfer{Kind: kind, DataType: p.DataType(), Source: src, Destination: dst, Payload: data}
}
