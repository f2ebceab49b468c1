package allocation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

type request struct {
	uid       nodeid.UniqueID
	preferred nodeid.NodeID
}

type stubHandler struct {
	canPublish bool
	requests   []request
}

func (h *stubHandler) CanPublishFollowupAllocationResponse() bool { return h.canPublish }

func (h *stubHandler) HandleAllocationRequest(uid nodeid.UniqueID, preferred nodeid.NodeID) {
	h.requests = append(h.requests, request{uid, preferred})
}

func testUID() nodeid.UniqueID {
	var u nodeid.UniqueID
	for i := range u {
		u[i] = byte(i + 1)
	}
	return u
}

func newManager(t *testing.T, canPublish bool) (*RequestManager, *fakeNode, *stubHandler) {
	t.Helper()
	n := newFakeNode(10)
	h := &stubHandler{canPublish: canPublish}
	m := NewRequestManager(n, h)
	require.NoError(t, m.Init())
	return m, n, h
}

func stage(uid nodeid.UniqueID, from, to int, first bool, preferred nodeid.NodeID) *wire.Allocation {
	return &wire.Allocation{NodeID: preferred, FirstPartOfUniqueID: first, UniqueID: uid[from:to]}
}

func TestRequestManagerThreeStageExchange(t *testing.T) {
	_, n, h := newManager(t, true)
	uid := testUID()

	n.deliver(t, 0, stage(uid, 0, 6, true, 0))
	assert.Equal(t, uid[:6], n.lastBroadcast(t).UniqueID)
	assert.Equal(t, nodeid.NodeID(0), n.lastBroadcast(t).NodeID)

	n.now = n.now.Add(100 * time.Millisecond)
	n.deliver(t, 0, stage(uid, 6, 12, false, 0))
	assert.Equal(t, uid[:12], n.lastBroadcast(t).UniqueID)

	n.now = n.now.Add(100 * time.Millisecond)
	n.deliver(t, 0, stage(uid, 12, 16, false, 42))
	require.Len(t, h.requests, 1)
	assert.Equal(t, request{uid, 42}, h.requests[0])
	assert.Len(t, n.broadcasts, 2, "no follow-up after the last stage")
}

func TestRequestManagerSingleStage(t *testing.T) {
	_, n, h := newManager(t, false)
	uid := testUID()

	n.deliver(t, 0, stage(uid, 0, 16, true, 7))
	require.Len(t, h.requests, 1)
	assert.Equal(t, request{uid, 7}, h.requests[0])
	assert.Empty(t, n.broadcasts)
}

func TestRequestManagerFollowupDenied(t *testing.T) {
	_, n, h := newManager(t, false)
	uid := testUID()

	n.deliver(t, 0, stage(uid, 0, 6, true, 0))
	assert.Empty(t, n.broadcasts)
	assert.True(t, n.traced(log.TraceAllocationFollowupDenied))

	// The partial ID was dropped, so stage 2 is now unexpected.
	n.deliver(t, 0, stage(uid, 6, 12, false, 0))
	assert.True(t, n.traced(log.TraceAllocationUnexpectedStage))
	assert.Empty(t, h.requests)
}

func TestRequestManagerFollowupBroadcastFailure(t *testing.T) {
	_, n, h := newManager(t, true)
	n.broadcastErr = errors.New("bus down")
	uid := testUID()

	n.deliver(t, 0, stage(uid, 0, 6, true, 0))
	assert.Equal(t, []string{"allocation follow-up broadcast"}, n.failures)

	// The exchange stays open; the next stage is still accepted.
	n.broadcastErr = nil
	n.deliver(t, 0, stage(uid, 6, 12, false, 0))
	assert.Equal(t, uid[:12], n.lastBroadcast(t).UniqueID)
	assert.Len(t, n.failures, 1)
	assert.Empty(t, h.requests)
}

func TestRequestManagerIgnoresNonAnonymous(t *testing.T) {
	_, n, h := newManager(t, true)
	uid := testUID()

	n.deliver(t, 11, stage(uid, 0, 16, true, 7))
	assert.Empty(t, h.requests)
	assert.Empty(t, n.traces)
}

func TestRequestManagerBadRequests(t *testing.T) {
	tests := []struct {
		name string
		msg  *wire.Allocation
	}{
		{"first stage too short", &wire.Allocation{FirstPartOfUniqueID: true, UniqueID: []byte{1, 2, 3}}},
		{"follow-up of odd size", &wire.Allocation{UniqueID: []byte{1, 2, 3, 4, 5}}},
		{"full ID without first flag", &wire.Allocation{UniqueID: make([]byte, 16)}},
		{"empty", &wire.Allocation{FirstPartOfUniqueID: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n, h := newManager(t, true)
			n.deliver(t, 0, tt.msg)
			assert.True(t, n.traced(log.TraceAllocationBadRequest))
			assert.Empty(t, h.requests)
			assert.Empty(t, n.broadcasts)
		})
	}
}

func TestRequestManagerZeroUniqueID(t *testing.T) {
	_, n, h := newManager(t, true)

	n.deliver(t, 0, &wire.Allocation{FirstPartOfUniqueID: true, UniqueID: make([]byte, 16)})
	assert.Empty(t, h.requests)
	assert.True(t, n.traced(log.TraceAllocationBadRequest))
}

func TestRequestManagerUnexpectedStage(t *testing.T) {
	_, n, h := newManager(t, true)
	uid := testUID()

	n.deliver(t, 0, stage(uid, 12, 16, false, 0))
	assert.True(t, n.traced(log.TraceAllocationUnexpectedStage))

	n.deliver(t, 0, stage(uid, 0, 6, true, 0))
	n.deliver(t, 0, stage(uid, 12, 16, false, 0))
	assert.Empty(t, h.requests)
	assert.Len(t, n.broadcasts, 1)

	// The accumulated stage 1 is still valid.
	n.deliver(t, 0, stage(uid, 6, 12, false, 0))
	n.deliver(t, 0, stage(uid, 12, 16, false, 0))
	require.Len(t, h.requests, 1)
}

func TestRequestManagerFollowupTimeout(t *testing.T) {
	_, n, h := newManager(t, true)
	uid := testUID()

	n.deliver(t, 0, stage(uid, 0, 6, true, 0))
	n.now = n.now.Add(FollowupTimeout + time.Millisecond)

	n.deliver(t, 0, stage(uid, 6, 12, false, 0))
	assert.True(t, n.traced(log.TraceAllocationFollowupTimeout))
	assert.True(t, n.traced(log.TraceAllocationUnexpectedStage))
	assert.Len(t, n.broadcasts, 1)

	// A new exchange starts cleanly.
	n.deliver(t, 0, stage(uid, 0, 6, true, 0))
	n.deliver(t, 0, stage(uid, 6, 12, false, 0))
	n.deliver(t, 0, stage(uid, 12, 16, false, 0))
	require.Len(t, h.requests, 1)
}

func TestRequestManagerCustomFollowupTimeout(t *testing.T) {
	n := newFakeNode(10)
	h := &stubHandler{canPublish: true}
	m := NewRequestManager(n, h, WithFollowupTimeout(50*time.Millisecond))
	require.NoError(t, m.Init())
	assert.Error(t, m.Init())
	uid := testUID()

	n.deliver(t, 0, stage(uid, 0, 6, true, 0))
	n.now = n.now.Add(60 * time.Millisecond)
	n.deliver(t, 0, stage(uid, 6, 12, false, 0))
	assert.True(t, n.traced(log.TraceAllocationFollowupTimeout))
}

func TestRequestManagerBroadcastResponse(t *testing.T) {
	m, n, _ := newManager(t, true)
	uid := testUID()

	require.NoError(t, m.BroadcastAllocationResponse(uid, 42))
	msg := n.lastBroadcast(t)
	assert.Equal(t, nodeid.NodeID(42), msg.NodeID)
	assert.Equal(t, uid[:], msg.UniqueID)
	assert.False(t, msg.FirstPartOfUniqueID)
}
