package node

import (
	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

func (n *Node) handleFrame(iface int, data []byte) {
	frame, err := wire.DecodeFrame(data)
	if err != nil {
		n.logger.Debug("dropping malformed frame", "iface", iface, "error", err)
		return
	}

	self := n.NodeID()
	if frame.Kind.IsService() && frame.Destination != self {
		return
	}

	now := n.clock.Now()
	ev := log.NewFrameEvent(self, log.DirectionIn, uint8(iface), frame)
	if n.dedup.seen(frame, now) {
		ev.Frame.Duplicate = true
		n.tracer.Log(ev)
		return
	}
	n.tracer.Log(ev)

	t := &Transfer{
		Kind:        frame.Kind,
		DataType:    frame.DataType,
		Source:      frame.Source,
		Destination: frame.Destination,
		TransferID:  frame.TransferID,
		Payload:     frame.Payload,
		Interface:   iface,
		Timestamp:   now,
	}

	switch frame.Kind {
	case wire.KindMessage:
		for _, h := range n.subscribers[frame.DataType] {
			h(t)
		}
	case wire.KindServiceRequest:
		n.handleRequest(t)
	case wire.KindServiceResponse:
		n.handleResponse(t)
	}
}

func (n *Node) handleRequest(t *Transfer) {
	h, ok := n.services[t.DataType]
	if !ok {
		return
	}
	resp, ok := h(t)
	if !ok || resp == nil {
		return
	}
	if err := n.send(wire.KindServiceResponse, resp, t.Source, t.TransferID); err != nil {
		n.logger.Debug("service response not sent", "data_type", t.DataType.String(), "dest", t.Source, "error", err)
	}
}

func (n *Node) handleResponse(t *Transfer) {
	key := callKey{server: t.Source, dataType: t.DataType, transferID: t.TransferID}
	pc, ok := n.pending[key]
	if !ok {
		return
	}
	delete(n.pending, key)
	pc.cancel()
	pc.handler(t, nil)
}
