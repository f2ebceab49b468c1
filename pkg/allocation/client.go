package allocation

import (
	"bytes"
	"errors"
	"math/rand"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

// ErrNotAnonymous is returned by NewClient for a node that already has a
// node ID.
var ErrNotAnonymous = errors.New("allocation client requires an anonymous node")

// ClientNode is the subset of *node.Node the client uses.
type ClientNode interface {
	Node
	NodeID() nodeid.NodeID
	After(d time.Duration, fn func()) (cancel func())
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPreferredNodeID asks the allocator for a specific node ID.
func WithPreferredNodeID(id nodeid.NodeID) ClientOption {
	return func(c *Client) { c.preferred = id }
}

// WithSingleStage sends the whole unique ID in one message.
func WithSingleStage() ClientOption {
	return func(c *Client) { c.singleStage = true }
}

// WithSeed makes the request timing reproducible.
func WithSeed(seed int64) ClientOption {
	return func(c *Client) { c.rng = rand.New(rand.NewSource(seed)) }
}

// Client obtains a node ID for an anonymous node. Like the node it runs
// on, it is driven by the event loop.
type Client struct {
	node        ClientNode
	uid         nodeid.UniqueID
	preferred   nodeid.NodeID
	singleStage bool
	rng         *rand.Rand

	allocated   nodeid.NodeID
	allocator   nodeid.NodeID
	cancelTimer func()
	onAllocated []func(id, allocator nodeid.NodeID)
}

// NewClient creates a client for uid and subscribes it to allocation
// messages. Call before the node starts or from the event loop.
func NewClient(n ClientNode, uid nodeid.UniqueID, opts ...ClientOption) (*Client, error) {
	if n.NodeID() != nodeid.Broadcast {
		return nil, ErrNotAnonymous
	}
	if uid.IsZero() {
		return nil, nodeid.ErrInvalidUniqueID
	}
	c := &Client{
		node: n,
		uid:  uid,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	n.Subscribe(wire.DataTypeAllocation, c.handleAllocation)
	return c, nil
}

// OnAllocated registers fn to be called once the allocation completes.
func (c *Client) OnAllocated(fn func(id, allocator nodeid.NodeID)) {
	c.onAllocated = append(c.onAllocated, fn)
}

// Start schedules the first request. Call from the event loop of a
// running node.
func (c *Client) Start() {
	c.restartRequestTimer()
}

// Stop cancels pending requests.
func (c *Client) Stop() {
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
}

// IsAllocationComplete reports whether a node ID was obtained.
func (c *Client) IsAllocationComplete() bool {
	return c.allocated.IsUnicast()
}

// AllocatedNodeID returns the obtained node ID, or 0.
func (c *Client) AllocatedNodeID() nodeid.NodeID { return c.allocated }

// AllocatorNodeID returns the node ID of the allocator that answered.
func (c *Client) AllocatorNodeID() nodeid.NodeID { return c.allocator }

func (c *Client) randomDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(c.rng.Int63n(int64(hi-lo)))
}

func (c *Client) schedule(d time.Duration, fn func()) {
	c.Stop()
	c.cancelTimer = c.node.After(d, fn)
}

func (c *Client) restartRequestTimer() {
	c.schedule(c.randomDuration(MinRequestPeriod, MaxRequestPeriod), c.sendFirstStage)
}

func (c *Client) sendFirstStage() {
	if c.IsAllocationComplete() {
		return
	}
	part := c.uid[:MaxLengthOfUniqueIDInRequest]
	if c.singleStage {
		part = c.uid[:]
	}
	c.send(part, true)
	c.restartRequestTimer()
}

func (c *Client) send(part []byte, first bool) {
	msg := &wire.Allocation{
		NodeID:              c.preferred,
		FirstPartOfUniqueID: first,
		UniqueID:            part,
	}
	if err := c.node.Broadcast(msg); err != nil {
		c.node.Logger().Debug("allocation request failed", "error", err)
	}
}

func (c *Client) handleAllocation(t *node.Transfer) {
	if c.IsAllocationComplete() || t.IsAnonymous() {
		return
	}
	var msg wire.Allocation
	if err := t.Decode(&msg); err != nil {
		return
	}

	received := msg.UniqueID
	if len(received) == 0 || !bytes.HasPrefix(c.uid[:], received) {
		// Someone else's exchange; start over with a fresh period.
		c.restartRequestTimer()
		return
	}

	if len(received) == nodeid.UniqueIDLength {
		if !msg.NodeID.IsUnicast() {
			c.restartRequestTimer()
			return
		}
		c.Stop()
		c.allocated = msg.NodeID
		c.allocator = t.Source
		c.node.Logger().Info("node ID allocated", "node_id", c.allocated, "allocator", c.allocator)
		for _, fn := range c.onAllocated {
			fn(c.allocated, c.allocator)
		}
		return
	}

	offset := len(received)
	end := min(offset+MaxLengthOfUniqueIDInRequest, nodeid.UniqueIDLength)
	part := append([]byte(nil), c.uid[offset:end]...)
	c.schedule(c.randomDuration(0, MaxFollowupDelay), func() {
		c.send(part, false)
		c.restartRequestTimer()
	})
}
