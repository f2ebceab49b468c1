package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynalloc/dynalloc-go/pkg/allocation"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/raft"
)

const (
	settleTimeout   = 10 * time.Second
	allocateTimeout = 20 * time.Second
	pollInterval    = 20 * time.Millisecond
)

func newCluster(t *testing.T, servers int) *Cluster {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping simulation in short mode")
	}
	c, err := NewCluster(Options{Servers: servers})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func waitLeader(t *testing.T, c *Cluster) nodeid.NodeID {
	t.Helper()
	var leader nodeid.NodeID
	require.Eventually(t, func() bool {
		var ok bool
		leader, ok = c.Leader()
		return ok
	}, settleTimeout, pollInterval, "no leader elected")
	return leader
}

func allocate(t *testing.T, c *Cluster, uid nodeid.UniqueID, opts ...allocation.ClientOption) nodeid.NodeID {
	t.Helper()
	d, err := c.NewDevice(uid, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), allocateTimeout)
	defer cancel()
	id, err := d.Wait(ctx)
	require.NoError(t, err, "device %s got no node ID", uid.Short())
	return id
}

func uid(b byte) nodeid.UniqueID {
	var u nodeid.UniqueID
	for i := range u {
		u[i] = b + byte(i)
	}
	return u
}

func TestSingleServerAllocates(t *testing.T) {
	c := newCluster(t, 1)
	waitLeader(t, c)

	id := allocate(t, c, uid(0x10))
	assert.True(t, id.IsUnicast())
	assert.NotEqual(t, nodeid.NodeID(1), id, "the server's own ID is never allocated")

	got, ok := c.CommittedNodeID(1, uid(0x10))
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestClusterAllocatesAndReplicates(t *testing.T) {
	c := newCluster(t, 3)
	waitLeader(t, c)

	id := allocate(t, c, uid(0x20), allocation.WithPreferredNodeID(42))
	assert.Equal(t, nodeid.NodeID(42), id)

	for _, server := range []nodeid.NodeID{1, 2, 3} {
		require.Eventually(t, func() bool {
			got, ok := c.CommittedNodeID(server, uid(0x20))
			return ok && got == id
		}, settleTimeout, pollInterval, "server %d never committed the allocation", server)
	}
}

func TestAllocationIsStablePerUniqueID(t *testing.T) {
	c := newCluster(t, 3)
	waitLeader(t, c)

	first := allocate(t, c, uid(0x30))
	second := allocate(t, c, uid(0x30), allocation.WithPreferredNodeID(7))
	assert.Equal(t, first, second, "a known unique ID keeps its node ID")

	other := allocate(t, c, uid(0x40), allocation.WithSingleStage())
	assert.NotEqual(t, first, other)
}

func TestSurvivesLeaderLoss(t *testing.T) {
	c := newCluster(t, 3)
	leader := waitLeader(t, c)

	before := allocate(t, c, uid(0x50))
	require.NoError(t, c.StopServer(leader))

	var next nodeid.NodeID
	require.Eventually(t, func() bool {
		var ok bool
		next, ok = c.Leader()
		return ok && next != leader
	}, settleTimeout, pollInterval, "no new leader after leader loss")

	after := allocate(t, c, uid(0x60))
	assert.NotEqual(t, before, after)
	assert.Equal(t, before, allocate(t, c, uid(0x50)))

	st, err := c.Status(next)
	require.NoError(t, err)
	assert.Greater(t, st.Term, uint32(1))
}

func TestMinorityPartitionNeverCommits(t *testing.T) {
	c := newCluster(t, 3)
	leader := waitLeader(t, c)

	var majority []nodeid.NodeID
	for _, id := range []nodeid.NodeID{1, 2, 3} {
		if id != leader {
			majority = append(majority, id)
		}
	}

	device, err := c.NewDevice(uid(0x70))
	require.NoError(t, err)
	c.Partition(
		Group{Servers: []nodeid.NodeID{leader}, Devices: []*Device{device}},
		Group{Servers: majority},
	)

	time.Sleep(3 * time.Second)
	_, _, ok := device.Allocated()
	assert.False(t, ok, "a minority must not grant node IDs")
	_, committed := c.CommittedNodeID(leader, uid(0x70))
	assert.False(t, committed)

	st, err := c.Status(leader)
	require.NoError(t, err)
	assert.NotEqual(t, raft.StateLeader.String(), st.State, "isolated leader steps down")

	c.Heal()
	ctx, cancel := context.WithTimeout(context.Background(), allocateTimeout)
	defer cancel()
	id, err := device.Wait(ctx)
	require.NoError(t, err)

	for _, server := range []nodeid.NodeID{1, 2, 3} {
		require.Eventually(t, func() bool {
			got, ok := c.CommittedNodeID(server, uid(0x70))
			return ok && got == id
		}, settleTimeout, pollInterval)
	}
}

func TestCommittedAllocationSurvivesRestart(t *testing.T) {
	c := newCluster(t, 3)
	waitLeader(t, c)

	id := allocate(t, c, uid(0x80))
	for _, server := range []nodeid.NodeID{1, 2, 3} {
		require.Eventually(t, func() bool {
			_, ok := c.CommittedNodeID(server, uid(0x80))
			return ok
		}, settleTimeout, pollInterval)
	}

	for _, server := range []nodeid.NodeID{1, 2, 3} {
		require.NoError(t, c.StopServer(server))
	}
	for _, server := range []nodeid.NodeID{1, 2, 3} {
		require.NoError(t, c.RestartServer(server))
	}
	waitLeader(t, c)

	assert.Equal(t, id, allocate(t, c, uid(0x80)))
}

func TestUnknownServer(t *testing.T) {
	c := newCluster(t, 1)
	_, err := c.Status(9)
	assert.ErrorIs(t, err, ErrUnknownServer)
	assert.Error(t, c.RestartServer(1), "running server cannot be restarted")
}
