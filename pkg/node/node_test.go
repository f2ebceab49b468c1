package node

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/transport"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

type recordingTracer struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingTracer) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingTracer) count(match func(log.Event) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if match(e) {
			n++
		}
	}
	return n
}

func startNode(t *testing.T, cfg Config, links ...transport.Link) *Node {
	t.Helper()
	n := New(cfg, links...)
	require.NoError(t, n.Start(context.Background()))
	t.Cleanup(n.Stop)
	return n
}

func do(t *testing.T, n *Node, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, n.Do(ctx, fn))
}

func TestBroadcastSubscribe(t *testing.T) {
	bus := transport.NewMemoryBus()

	received := make(chan *Transfer, 1)
	rx := New(Config{NodeID: 2}, bus.Attach())
	rx.Subscribe(wire.DataTypeAllocation, func(tr *Transfer) { received <- tr })
	require.NoError(t, rx.Start(context.Background()))
	defer rx.Stop()

	tx := startNode(t, Config{}, bus.Attach())
	do(t, tx, func() {
		require.NoError(t, tx.Broadcast(&wire.Allocation{FirstPartOfUniqueID: true, UniqueID: []byte{1, 2, 3, 4, 5, 6}}))
	})

	select {
	case tr := <-received:
		assert.True(t, tr.IsAnonymous())
		var msg wire.Allocation
		require.NoError(t, tr.Decode(&msg))
		assert.True(t, msg.FirstPartOfUniqueID)
		assert.Len(t, msg.UniqueID, 6)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestCallServe(t *testing.T) {
	bus := transport.NewMemoryBus()

	server := New(Config{NodeID: 10}, bus.Attach())
	server.Serve(wire.DataTypeRequestVote, func(req *Transfer) (wire.Payload, bool) {
		var r wire.RequestVoteRequest
		if err := req.Decode(&r); err != nil {
			return nil, false
		}
		return &wire.RequestVoteResponse{Term: r.Term, VoteGranted: true}, true
	})
	require.NoError(t, server.Start(context.Background()))
	defer server.Stop()

	client := startNode(t, Config{NodeID: 11}, bus.Attach())

	result := make(chan *Transfer, 1)
	do(t, client, func() {
		err := client.Call(10, &wire.RequestVoteRequest{Term: 3}, time.Second, func(resp *Transfer, err error) {
			assert.NoError(t, err)
			result <- resp
		})
		require.NoError(t, err)
	})

	select {
	case resp := <-result:
		assert.Equal(t, nodeid.NodeID(10), resp.Source)
		var r wire.RequestVoteResponse
		require.NoError(t, resp.Decode(&r))
		assert.True(t, r.VoteGranted)
		assert.Equal(t, uint32(3), r.Term)
	case <-time.After(2 * time.Second):
		t.Fatal("no response")
	}

	do(t, client, func() { assert.Equal(t, 0, client.PendingCalls()) })
}

func TestCallTimeout(t *testing.T) {
	bus := transport.NewMemoryBus()

	// Server that never answers.
	server := New(Config{NodeID: 10}, bus.Attach())
	server.Serve(wire.DataTypeAppendEntries, func(*Transfer) (wire.Payload, bool) { return nil, false })
	require.NoError(t, server.Start(context.Background()))
	defer server.Stop()

	client := startNode(t, Config{NodeID: 11}, bus.Attach())

	result := make(chan error, 1)
	do(t, client, func() {
		err := client.Call(10, &wire.AppendEntriesRequest{Term: 1}, 50*time.Millisecond, func(_ *Transfer, err error) {
			result <- err
		})
		require.NoError(t, err)
	})

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrCallTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout handler not called")
	}
}

func TestAnonymousNodeCannotCall(t *testing.T) {
	bus := transport.NewMemoryBus()
	n := startNode(t, Config{}, bus.Attach())
	do(t, n, func() {
		err := n.Call(5, &wire.RequestVoteRequest{Term: 1}, time.Second, func(*Transfer, error) {})
		assert.ErrorIs(t, err, ErrAnonymous)
	})
}

func TestServiceRequestForOtherNodeIgnored(t *testing.T) {
	bus := transport.NewMemoryBus()

	var served atomic.Int32
	other := New(Config{NodeID: 12}, bus.Attach())
	other.Serve(wire.DataTypeRequestVote, func(*Transfer) (wire.Payload, bool) {
		served.Add(1)
		return nil, false
	})
	require.NoError(t, other.Start(context.Background()))
	defer other.Stop()

	client := startNode(t, Config{NodeID: 11}, bus.Attach())
	do(t, client, func() {
		require.NoError(t, client.Call(10, &wire.RequestVoteRequest{Term: 1}, time.Second, func(*Transfer, error) {}))
	})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), served.Load())
}

func TestRedundantInterfacesDeduplicated(t *testing.T) {
	busA := transport.NewMemoryBus()
	busB := transport.NewMemoryBus()

	tracer := &recordingTracer{}
	var count atomic.Int32
	rx := New(Config{NodeID: 2, Tracer: tracer}, busA.Attach(), busB.Attach())
	rx.Subscribe(wire.DataTypeDiscovery, func(*Transfer) { count.Add(1) })
	require.NoError(t, rx.Start(context.Background()))
	defer rx.Stop()

	tx := startNode(t, Config{NodeID: 1}, busA.Attach(), busB.Attach())
	do(t, tx, func() {
		require.NoError(t, tx.Broadcast(&wire.Discovery{ConfiguredClusterSize: 3, KnownNodes: []nodeid.NodeID{1}}))
	})

	require.Eventually(t, func() bool {
		return tracer.count(func(e log.Event) bool { return e.Frame != nil && e.Frame.Duplicate }) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), count.Load())

	// A second broadcast carries a new transfer ID and is delivered.
	do(t, tx, func() {
		require.NoError(t, tx.Broadcast(&wire.Discovery{ConfiguredClusterSize: 3, KnownNodes: []nodeid.NodeID{1}}))
	})
	require.Eventually(t, func() bool { return count.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcastSurvivesOneFailedInterface(t *testing.T) {
	busA := transport.NewMemoryBus()
	busB := transport.NewMemoryBus()

	received := make(chan struct{}, 1)
	rx := New(Config{NodeID: 2}, busB.Attach())
	rx.Subscribe(wire.DataTypeAllocation, func(*Transfer) { received <- struct{}{} })
	require.NoError(t, rx.Start(context.Background()))
	defer rx.Stop()

	broken := busA.Attach()
	tx := startNode(t, Config{NodeID: 1}, broken, busB.Attach())
	broken.Close()

	do(t, tx, func() {
		require.NoError(t, tx.Broadcast(&wire.Allocation{NodeID: 5, UniqueID: make([]byte, 16)}))
	})
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("not received over the healthy interface")
	}
}

func TestBroadcastAllInterfacesFailed(t *testing.T) {
	bus := transport.NewMemoryBus()
	l := bus.Attach()
	n := startNode(t, Config{NodeID: 1}, l)
	l.Close()

	do(t, n, func() {
		err := n.Broadcast(&wire.Allocation{})
		assert.ErrorIs(t, err, ErrSendFailed)
	})
}

func TestEveryWithMockClock(t *testing.T) {
	mock := clock.NewMock()
	bus := transport.NewMemoryBus()

	var ticks atomic.Int32
	n := New(Config{NodeID: 1, Clock: mock}, bus.Attach())
	n.Every(100*time.Millisecond, func(time.Time) { ticks.Add(1) })
	require.NoError(t, n.Start(context.Background()))
	defer n.Stop()

	mock.Add(100 * time.Millisecond)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	mock.Add(100 * time.Millisecond)
	require.Eventually(t, func() bool { return ticks.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestAfterCancel(t *testing.T) {
	mock := clock.NewMock()
	n := startNode(t, Config{NodeID: 1, Clock: mock}, transport.NewMemoryBus().Attach())

	var fired atomic.Int32
	var cancel func()
	do(t, n, func() {
		n.After(50*time.Millisecond, func() { fired.Add(1) })
		cancel = n.After(50*time.Millisecond, func() { fired.Add(10) })
	})
	do(t, n, cancel)

	mock.Add(60 * time.Millisecond)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestRegisterInternalFailure(t *testing.T) {
	tracer := &recordingTracer{}
	n := New(Config{NodeID: 4, Tracer: tracer}, transport.NewMemoryBus().Attach())

	n.RegisterInternalFailure("raft log append new allocation")
	n.RegisterInternalFailure("dynamic allocation final broadcast")

	assert.Equal(t, uint64(2), n.InternalFailureCount())
	assert.Equal(t, 2, tracer.count(func(e log.Event) bool { return e.Failure != nil }))
}

func TestLifecycleErrors(t *testing.T) {
	n := New(Config{NodeID: 1})
	assert.ErrorIs(t, n.Start(context.Background()), ErrNoInterfaces)
	assert.ErrorIs(t, n.Do(context.Background(), func() {}), ErrNotRunning)

	n = startNode(t, Config{NodeID: 1}, transport.NewMemoryBus().Attach())
	assert.ErrorIs(t, n.Start(context.Background()), ErrAlreadyRunning)
	n.Stop()
	n.Stop()
	assert.True(t, errors.Is(n.Do(context.Background(), func() {}), ErrNotRunning))
}

func TestSetNodeID(t *testing.T) {
	n := New(Config{}, transport.NewMemoryBus().Attach())
	assert.Equal(t, nodeid.Broadcast, n.NodeID())
	require.NoError(t, n.SetNodeID(42))
	assert.Equal(t, nodeid.NodeID(42), n.NodeID())
	assert.Error(t, n.SetNodeID(200))
}
