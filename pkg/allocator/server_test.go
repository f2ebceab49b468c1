package allocator

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dynalloc/dynalloc-go/pkg/allocator/mocks"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/selector"
)

type fixture struct {
	log      *mocks.MockConsensusLog
	pub      *mocks.MockResponsePublisher
	sel      *mocks.MockNodeIDSelector
	failures *mocks.MockFailureSink
	server   *Server
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		log:      mocks.NewMockConsensusLog(t),
		pub:      mocks.NewMockResponsePublisher(t),
		sel:      mocks.NewMockNodeIDSelector(t),
		failures: mocks.NewMockFailureSink(t),
	}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	f.server = NewWithComponents(Components{
		Log:       f.log,
		Publisher: f.pub,
		Selector:  f.sel,
		Failures:  f.failures,
	}, opts...)
	return f
}

// withLog makes traversals scan entries, oldest first, from the end.
func (f *fixture) withLog(entries ...nodeid.EntryInfo) {
	f.log.EXPECT().TraverseLogFromEndUntil(mock.Anything).RunAndReturn(
		func(match func(nodeid.EntryInfo) bool) (nodeid.EntryInfo, bool) {
			for i := len(entries) - 1; i >= 0; i-- {
				if match(entries[i]) {
					return entries[i], true
				}
			}
			return nodeid.EntryInfo{}, false
		})
}

// withRealSelector routes selection through the default search.
func (f *fixture) withRealSelector() {
	f.sel.EXPECT().FindFreeNodeID(mock.Anything, mock.Anything).RunAndReturn(selector.New().FindFreeNodeID)
}

func uidN(n byte) nodeid.UniqueID {
	var u nodeid.UniqueID
	for i := range u {
		u[i] = n
	}
	return u
}

func committed(u nodeid.UniqueID, id nodeid.NodeID) nodeid.EntryInfo {
	return nodeid.EntryInfo{Entry: nodeid.Entry{Term: 1, UniqueID: u, NodeID: id}, Committed: true}
}

func pending(u nodeid.UniqueID, id nodeid.NodeID) nodeid.EntryInfo {
	return nodeid.EntryInfo{Entry: nodeid.Entry{Term: 1, UniqueID: u, NodeID: id}}
}

func TestLeaderAppendsPreferredNodeID(t *testing.T) {
	f := newFixture(t)
	f.withLog()
	f.withRealSelector()
	f.log.EXPECT().IsLeader().Return(true)
	f.log.EXPECT().AppendLog(uidN(1), nodeid.NodeID(5)).Return(nil).Once()

	f.server.HandleAllocationRequest(uidN(1), 5)
}

func TestLeaderAppendsOtherNodeIDWhenPreferredTaken(t *testing.T) {
	f := newFixture(t)
	f.withLog(committed(uidN(9), 5), pending(uidN(8), 6))
	f.withRealSelector()
	f.log.EXPECT().IsLeader().Return(true)
	f.log.EXPECT().AppendLog(uidN(1), nodeid.NodeID(7)).Return(nil).Once()

	f.server.HandleAllocationRequest(uidN(1), 5)
}

func TestSelectedNodeIDIsNeverInLog(t *testing.T) {
	var entries []nodeid.EntryInfo
	taken := map[nodeid.NodeID]bool{}
	for i := 1; i <= 20; i++ {
		id := nodeid.NodeID(i * 3)
		taken[id] = true
		if i%2 == 0 {
			entries = append(entries, committed(uidN(byte(100+i)), id))
		} else {
			entries = append(entries, pending(uidN(byte(100+i)), id))
		}
	}

	for _, preferred := range []nodeid.NodeID{0, 3, 30, 60, 125} {
		f := newFixture(t)
		f.withLog(entries...)
		f.withRealSelector()
		f.log.EXPECT().IsLeader().Return(true)

		var appended nodeid.NodeID
		f.log.EXPECT().AppendLog(uidN(1), mock.Anything).
			Run(func(_ nodeid.UniqueID, id nodeid.NodeID) { appended = id }).
			Return(nil).Once()

		f.server.HandleAllocationRequest(uidN(1), preferred)
		assert.True(t, appended.IsUnicast(), "preferred %d", preferred)
		assert.False(t, taken[appended], "preferred %d got taken ID %d", preferred, appended)
	}
}

func TestFollowerIgnoresUnseenRequest(t *testing.T) {
	f := newFixture(t)
	f.withLog()
	f.log.EXPECT().IsLeader().Return(false)

	f.server.HandleAllocationRequest(uidN(2), 3)
}

func TestCommittedAllocationIsAnnounced(t *testing.T) {
	f := newFixture(t)
	f.withLog(committed(uidN(1), 5))
	f.pub.EXPECT().BroadcastAllocationResponse(uidN(1), nodeid.NodeID(5)).Return(nil).Times(3)

	// The preference no longer matters, and repeats give the same answer.
	for _, preferred := range []nodeid.NodeID{9, 5, 0} {
		f.server.HandleAllocationRequest(uidN(1), preferred)
	}
}

func TestCommittedAllocationOnFollowerIsAnnounced(t *testing.T) {
	f := newFixture(t)
	f.withLog(committed(uidN(1), 5), committed(uidN(2), 6))
	f.pub.EXPECT().BroadcastAllocationResponse(uidN(1), nodeid.NodeID(5)).Return(nil).Once()

	f.server.HandleAllocationRequest(uidN(1), 9)
}

func TestPendingAllocationIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.withLog(pending(uidN(3), 7))

	f.server.HandleAllocationRequest(uidN(3), 7)
	f.server.HandleAllocationRequest(uidN(3), 1)
}

func TestMostRecentMatchWins(t *testing.T) {
	f := newFixture(t)
	f.withLog(committed(uidN(1), 5), committed(uidN(1), 9))
	f.pub.EXPECT().BroadcastAllocationResponse(uidN(1), nodeid.NodeID(9)).Return(nil).Once()

	f.server.HandleAllocationRequest(uidN(1), 5)
}

func TestDuplicateCheckReportsButDoesNotChangeDecision(t *testing.T) {
	f := newFixture(t, WithDuplicateCheck())
	f.withLog(committed(uidN(1), 5), committed(uidN(2), 6), committed(uidN(1), 9))
	f.failures.EXPECT().RegisterInternalFailure(FailureDuplicate).Once()
	f.pub.EXPECT().BroadcastAllocationResponse(uidN(1), nodeid.NodeID(9)).Return(nil).Once()

	f.server.HandleAllocationRequest(uidN(1), 5)
}

func TestDuplicateCheckQuietOnSingleEntry(t *testing.T) {
	f := newFixture(t, WithDuplicateCheck())
	f.withLog(committed(uidN(1), 5), committed(uidN(2), 6))
	f.pub.EXPECT().BroadcastAllocationResponse(uidN(1), nodeid.NodeID(5)).Return(nil).Once()

	f.server.HandleAllocationRequest(uidN(1), 5)
}

func TestNoFreeNodeIDIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.withLog()
	f.log.EXPECT().IsLeader().Return(true)
	f.sel.EXPECT().FindFreeNodeID(nodeid.NodeID(5), mock.Anything).Return(nodeid.Broadcast).Once()

	f.server.HandleAllocationRequest(uidN(1), 5)
}

func TestAppendFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.withLog()
	f.log.EXPECT().IsLeader().Return(true)
	f.sel.EXPECT().FindFreeNodeID(nodeid.NodeID(5), mock.Anything).Return(nodeid.NodeID(5)).Once()
	f.log.EXPECT().AppendLog(uidN(1), nodeid.NodeID(5)).Return(errors.New("disk full")).Once()
	f.failures.EXPECT().RegisterInternalFailure(FailureAppend).Once()

	f.server.HandleAllocationRequest(uidN(1), 5)
}

func TestBroadcastFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.withLog(committed(uidN(1), 5))
	f.pub.EXPECT().BroadcastAllocationResponse(uidN(1), nodeid.NodeID(5)).Return(errors.New("bus down")).Twice()
	f.failures.EXPECT().RegisterInternalFailure(FailureBroadcast).Twice()

	f.server.HandleAllocationRequest(uidN(1), 5)
	f.server.HandleLogCommitOnLeader(nodeid.Entry{Term: 1, UniqueID: uidN(1), NodeID: 5})
}

func TestLeaderCommitIsAnnounced(t *testing.T) {
	f := newFixture(t)
	f.pub.EXPECT().BroadcastAllocationResponse(uidN(4), nodeid.NodeID(5)).Return(nil).Once()

	f.server.HandleLogCommitOnLeader(nodeid.Entry{Term: 2, UniqueID: uidN(4), NodeID: 5})
}

func TestCanPublishFollowupAllocationResponse(t *testing.T) {
	tests := []struct {
		leader       bool
		allCommitted bool
		want         bool
	}{
		{leader: true, allCommitted: true, want: true},
		{leader: true, allCommitted: false, want: false},
		{leader: false, allCommitted: true, want: false},
		{leader: false, allCommitted: false, want: false},
	}
	for _, tt := range tests {
		f := newFixture(t)
		f.log.EXPECT().IsLeader().Return(tt.leader)
		f.log.EXPECT().AreAllLogEntriesCommitted().Return(tt.allCommitted).Maybe()

		assert.Equal(t, tt.want, f.server.CanPublishFollowupAllocationResponse(),
			"leader=%v allCommitted=%v", tt.leader, tt.allCommitted)
	}
}

func TestIsNodeIDTakenIncludesPendingEntries(t *testing.T) {
	f := newFixture(t)
	f.withLog(committed(uidN(1), 5), pending(uidN(2), 6))

	assert.True(t, f.server.IsNodeIDTaken(5))
	assert.True(t, f.server.IsNodeIDTaken(6))
	assert.False(t, f.server.IsNodeIDTaken(7))
}

func TestInitOrder(t *testing.T) {
	f := newFixture(t)
	mock.InOrder(
		f.log.EXPECT().Init(uint8(3)).Return(nil).Call,
		f.pub.EXPECT().Init().Return(nil).Call,
	)

	require.NoError(t, f.server.Init(3))
}

func TestInitStopsAtConsensusLogFailure(t *testing.T) {
	f := newFixture(t)
	errStorage := errors.New("storage unavailable")
	f.log.EXPECT().Init(uint8(0)).Return(errStorage).Once()

	err := f.server.Init(0)
	assert.ErrorIs(t, err, errStorage)
}

func TestInitReportsTransportFailure(t *testing.T) {
	f := newFixture(t)
	errTransport := errors.New("already initialized")
	f.log.EXPECT().Init(uint8(1)).Return(nil).Once()
	f.pub.EXPECT().Init().Return(errTransport).Once()

	err := f.server.Init(1)
	assert.ErrorIs(t, err, errTransport)
}

func TestEntriesOldestFirst(t *testing.T) {
	f := newFixture(t)
	f.withLog(committed(uidN(1), 5), committed(uidN(2), 6), pending(uidN(3), 7))

	entries := f.server.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, nodeid.NodeID(5), entries[0].Entry.NodeID)
	assert.Equal(t, nodeid.NodeID(7), entries[2].Entry.NodeID)
	assert.False(t, entries[2].Committed)

	// Without engine status the view is limited.
	st := f.server.Status()
	assert.Empty(t, st.State)
	assert.Equal(t, uint64(0), st.InternalFailures)
}
