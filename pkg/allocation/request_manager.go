package allocation

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

// Exchange timing and sizes.
const (
	MaxLengthOfUniqueIDInRequest = 6
	FollowupTimeout              = 500 * time.Millisecond
	MinRequestPeriod             = 600 * time.Millisecond
	MaxRequestPeriod             = 1 * time.Second
	MaxFollowupDelay             = 400 * time.Millisecond
)

const lastStageLength = nodeid.UniqueIDLength - 2*MaxLengthOfUniqueIDInRequest

// RequestHandler decides on completed allocation requests.
type RequestHandler interface {
	// CanPublishFollowupAllocationResponse reports whether an unfinished
	// exchange may be advanced.
	CanPublishFollowupAllocationResponse() bool

	// HandleAllocationRequest is called once the full unique ID of a
	// device has been received.
	HandleAllocationRequest(uid nodeid.UniqueID, preferred nodeid.NodeID)
}

// Node is the subset of *node.Node the request manager uses.
type Node interface {
	Now() time.Time
	Broadcast(p wire.Payload) error
	Subscribe(dt wire.DataTypeID, h node.MessageHandler)
	Trace(code log.TraceCode, arg int64)
	Logger() *slog.Logger
	RegisterInternalFailure(reason string)
}

// RequestManager runs the server side of the allocation exchange. It is
// driven by the node's event loop and must not be used from other
// goroutines.
type RequestManager struct {
	node            Node
	handler         RequestHandler
	followupTimeout time.Duration

	current      []byte
	lastActivity time.Time
	inited       bool
}

// RequestManagerOption configures a RequestManager.
type RequestManagerOption func(*RequestManager)

// WithFollowupTimeout overrides FollowupTimeout.
func WithFollowupTimeout(d time.Duration) RequestManagerOption {
	return func(m *RequestManager) {
		if d > 0 {
			m.followupTimeout = d
		}
	}
}

// NewRequestManager creates a request manager reporting to handler.
func NewRequestManager(n Node, handler RequestHandler, opts ...RequestManagerOption) *RequestManager {
	m := &RequestManager{
		node:            n,
		handler:         handler,
		followupTimeout: FollowupTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init subscribes to allocation messages.
func (m *RequestManager) Init() error {
	if m.inited {
		return errors.New("request manager already initialized")
	}
	m.node.Subscribe(wire.DataTypeAllocation, m.handleAllocation)
	m.inited = true
	return nil
}

// BroadcastAllocationResponse announces that uid owns id.
func (m *RequestManager) BroadcastAllocationResponse(uid nodeid.UniqueID, id nodeid.NodeID) error {
	m.node.Trace(log.TraceAllocationResponse, int64(id))
	return m.node.Broadcast(&wire.Allocation{NodeID: id, UniqueID: uid.Bytes()})
}

// detectStage returns the exchange stage of msg, or 0 if the message has
// an impossible shape.
func detectStage(msg *wire.Allocation) int {
	n := len(msg.UniqueID)
	switch {
	case msg.FirstPartOfUniqueID && (n == MaxLengthOfUniqueIDInRequest || n == nodeid.UniqueIDLength):
		return 1
	case !msg.FirstPartOfUniqueID && n == MaxLengthOfUniqueIDInRequest:
		return 2
	case !msg.FirstPartOfUniqueID && n == lastStageLength:
		return 3
	default:
		return 0
	}
}

func (m *RequestManager) expectedStage() int {
	switch {
	case len(m.current) >= 2*MaxLengthOfUniqueIDInRequest:
		return 3
	case len(m.current) >= MaxLengthOfUniqueIDInRequest:
		return 2
	default:
		return 1
	}
}

func (m *RequestManager) reset() {
	m.current = m.current[:0]
}

func (m *RequestManager) handleAllocation(t *node.Transfer) {
	// Responses of other allocators are not requests.
	if !t.IsAnonymous() {
		return
	}

	var msg wire.Allocation
	if err := t.Decode(&msg); err != nil {
		m.node.Trace(log.TraceAllocationBadRequest, int64(len(t.Payload)))
		return
	}
	m.node.Trace(log.TraceAllocationActivity, int64(len(msg.UniqueID)))

	now := m.node.Now()
	if now.Sub(m.lastActivity) > m.followupTimeout && len(m.current) > 0 {
		m.node.Trace(log.TraceAllocationFollowupTimeout, int64(len(m.current)))
		m.reset()
	}

	stage := detectStage(&msg)
	if stage == 0 {
		m.node.Trace(log.TraceAllocationBadRequest, int64(len(msg.UniqueID)))
		return
	}
	if stage != m.expectedStage() {
		m.node.Trace(log.TraceAllocationUnexpectedStage, int64(stage))
		return
	}

	m.current = append(m.current, msg.UniqueID...)
	m.node.Trace(log.TraceAllocationRequestAccepted, int64(len(m.current)))

	if len(m.current) == nodeid.UniqueIDLength {
		uid, _ := nodeid.UniqueIDFromBytes(m.current)
		m.reset()
		if uid.IsZero() {
			m.node.Trace(log.TraceAllocationBadRequest, 0)
			return
		}
		m.node.Trace(log.TraceAllocationExchangeComplete, int64(msg.NodeID))
		m.handler.HandleAllocationRequest(uid, msg.NodeID)
	} else {
		if !m.handler.CanPublishFollowupAllocationResponse() {
			m.node.Trace(log.TraceAllocationFollowupDenied, int64(len(m.current)))
			m.reset()
			return
		}
		m.node.Trace(log.TraceAllocationFollowupResponse, int64(len(m.current)))
		followup := &wire.Allocation{UniqueID: append([]byte(nil), m.current...)}
		if err := m.node.Broadcast(followup); err != nil {
			m.node.Logger().Debug("allocation follow-up broadcast failed", "error", err)
			m.node.RegisterInternalFailure("allocation follow-up broadcast")
		}
	}

	m.lastActivity = now
}
