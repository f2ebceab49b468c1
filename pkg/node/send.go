package node

import (
	"fmt"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

type transferKey struct {
	kind     wire.TransferKind
	dataType wire.DataTypeID
	dest     nodeid.NodeID
}

type callKey struct {
	server     nodeid.NodeID
	dataType   wire.DataTypeID
	transferID uint8
}

type pendingCall struct {
	handler ResponseHandler
	cancel  func()
}

// Subscribe registers a handler for broadcast messages of type dt.
// Call before Start or from the event loop.
func (n *Node) Subscribe(dt wire.DataTypeID, h MessageHandler) {
	n.subscribers[dt] = append(n.subscribers[dt], h)
}

// Serve registers the handler for service requests of type dt, replacing
// any previous one. Call before Start or from the event loop.
func (n *Node) Serve(dt wire.DataTypeID, h ServiceHandler) {
	n.services[dt] = h
}

// Broadcast sends a message on all interfaces. Call from the event loop.
func (n *Node) Broadcast(p wire.Payload) error {
	return n.send(wire.KindMessage, p, nodeid.Broadcast, n.nextTransferID(wire.KindMessage, p.DataType(), nodeid.Broadcast))
}

// Call sends a service request to dest and arranges for h to be called
// exactly once with the response or ErrCallTimeout. Call from the event
// loop.
func (n *Node) Call(dest nodeid.NodeID, req wire.Payload, timeout time.Duration, h ResponseHandler) error {
	if n.NodeID() == nodeid.Broadcast {
		return ErrAnonymous
	}
	tid := n.nextTransferID(wire.KindServiceRequest, req.DataType(), dest)
	key := callKey{server: dest, dataType: req.DataType(), transferID: tid}

	if old, ok := n.pending[key]; ok {
		// Transfer ID wrapped before the old call finished.
		delete(n.pending, key)
		old.cancel()
		old.handler(nil, ErrCallTimeout)
	}

	if err := n.send(wire.KindServiceRequest, req, dest, tid); err != nil {
		return err
	}

	pc := &pendingCall{handler: h}
	pc.cancel = n.After(timeout, func() {
		if cur, ok := n.pending[key]; ok && cur == pc {
			delete(n.pending, key)
			h(nil, ErrCallTimeout)
		}
	})
	n.pending[key] = pc
	return nil
}

// PendingCalls returns the number of calls awaiting a response.
// Call from the event loop.
func (n *Node) PendingCalls() int {
	return len(n.pending)
}

func (n *Node) nextTransferID(kind wire.TransferKind, dt wire.DataTypeID, dest nodeid.NodeID) uint8 {
	key := transferKey{kind: kind, dataType: dt, dest: dest}
	tid := n.transferIDs[key]
	n.transferIDs[key] = tid + 1
	return tid
}

func (n *Node) send(kind wire.TransferKind, p wire.Payload, dest nodeid.NodeID, tid uint8) error {
	payload, err := wire.EncodePayload(p)
	if err != nil {
		return err
	}
	frame := &wire.Frame{
		Kind:        kind,
		DataType:    p.DataType(),
		Source:      n.NodeID(),
		Destination: dest,
		TransferID:  tid,
		Payload:     payload,
	}
	data, err := wire.EncodeFrame(frame)
	if err != nil {
		return err
	}

	var lastErr error
	sent := 0
	for i, l := range n.links {
		if err := l.Send(data); err != nil {
			lastErr = err
			continue
		}
		sent++
		n.tracer.Log(log.NewFrameEvent(n.NodeID(), log.DirectionOut, uint8(i), frame))
	}
	if sent == 0 {
		return fmt.Errorf("%w: %s: %v", ErrSendFailed, frame, lastErr)
	}
	return nil
}
