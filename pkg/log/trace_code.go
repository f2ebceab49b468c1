package log

import "fmt"

// TraceCode identifies a trace point. Codes below 100 belong to the
// consensus engine, codes from 100 to the allocation exchange.
type TraceCode uint16

const (
	TraceRaftStateSwitch TraceCode = iota + 1
	TraceRaftNewLogEntry
	TraceRaftCommitIndexUpdate
	TraceRaftNewerTermInResponse
	TraceRaftNewEntryCommitted
	TraceRaftAppendEntriesCallFailure
	TraceRaftAppendEntriesRespUnsuccessful
	TraceRaftElectionComplete
	TraceRaftVoteRequestInitiation
	TraceRaftVoteRequestReceived
	TraceRaftVoteRequestSucceeded
	TraceRaftRequestIgnored
	TraceRaftPersistStateUpdateError
	TraceRaftDiscoveryBroadcast
	TraceRaftNewServerDiscovered
	TraceRaftDiscoveryReceived
	TraceRaftClusterSizeInited
	TraceRaftBadClusterSizeReceived
	TraceRaftCoreInited
)

const (
	TraceAllocationFollowupResponse TraceCode = iota + 100
	TraceAllocationFollowupDenied
	TraceAllocationFollowupTimeout
	TraceAllocationBadRequest
	TraceAllocationUnexpectedStage
	TraceAllocationRequestAccepted
	TraceAllocationExchangeComplete
	TraceAllocationResponse
	TraceAllocationActivity
)

var traceCodeNames = map[TraceCode]string{
	TraceRaftStateSwitch:                   "RaftStateSwitch",
	TraceRaftNewLogEntry:                   "RaftNewLogEntry",
	TraceRaftCommitIndexUpdate:             "RaftCommitIndexUpdate",
	TraceRaftNewerTermInResponse:           "RaftNewerTermInResponse",
	TraceRaftNewEntryCommitted:             "RaftNewEntryCommitted",
	TraceRaftAppendEntriesCallFailure:      "RaftAppendEntriesCallFailure",
	TraceRaftAppendEntriesRespUnsuccessful: "RaftAppendEntriesRespUnsuccessful",
	TraceRaftElectionComplete:              "RaftElectionComplete",
	TraceRaftVoteRequestInitiation:         "RaftVoteRequestInitiation",
	TraceRaftVoteRequestReceived:           "RaftVoteRequestReceived",
	TraceRaftVoteRequestSucceeded:          "RaftVoteRequestSucceeded",
	TraceRaftRequestIgnored:                "RaftRequestIgnored",
	TraceRaftPersistStateUpdateError:       "RaftPersistStateUpdateError",
	TraceRaftDiscoveryBroadcast:            "RaftDiscoveryBroadcast",
	TraceRaftNewServerDiscovered:           "RaftNewServerDiscovered",
	TraceRaftDiscoveryReceived:             "RaftDiscoveryReceived",
	TraceRaftClusterSizeInited:             "RaftClusterSizeInited",
	TraceRaftBadClusterSizeReceived:        "RaftBadClusterSizeReceived",
	TraceRaftCoreInited:                    "RaftCoreInited",
	TraceAllocationFollowupResponse:        "AllocationFollowupResponse",
	TraceAllocationFollowupDenied:          "AllocationFollowupDenied",
	TraceAllocationFollowupTimeout:         "AllocationFollowupTimeout",
	TraceAllocationBadRequest:              "AllocationBadRequest",
	TraceAllocationUnexpectedStage:         "AllocationUnexpectedStage",
	TraceAllocationRequestAccepted:         "AllocationRequestAccepted",
	TraceAllocationExchangeComplete:        "AllocationExchangeComplete",
	TraceAllocationResponse:                "AllocationResponse",
	TraceAllocationActivity:                "AllocationActivity",
}

// String returns the trace code name.
func (c TraceCode) String() string {
	if name, ok := traceCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("TraceCode(%d)", uint16(c))
}

// Layer returns the layer the code belongs to.
func (c TraceCode) Layer() Layer {
	if c >= TraceAllocationFollowupResponse {
		return LayerAllocation
	}
	return LayerRaft
}

// ParseTraceCode looks up a trace code by name.
func ParseTraceCode(name string) (TraceCode, bool) {
	for code, n := range traceCodeNames {
		if n == name {
			return code, true
		}
	}
	return 0, false
}
