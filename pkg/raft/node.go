package raft

import (
	"log/slog"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

// Node is the subset of *node.Node the engine runs on. All callbacks are
// delivered on the node's event loop.
type Node interface {
	NodeID() nodeid.NodeID
	Now() time.Time
	Broadcast(p wire.Payload) error
	Call(dest nodeid.NodeID, req wire.Payload, timeout time.Duration, h node.ResponseHandler) error
	Subscribe(dt wire.DataTypeID, h node.MessageHandler)
	Serve(dt wire.DataTypeID, h node.ServiceHandler)
	Every(interval time.Duration, fn func(now time.Time))
	RegisterInternalFailure(reason string)
	Trace(code log.TraceCode, arg int64)
	Tracer() log.Logger
	Logger() *slog.Logger
}

var _ Node = (*node.Node)(nil)
