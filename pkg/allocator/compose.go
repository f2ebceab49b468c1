package allocator

import (
	"log/slog"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/allocation"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/raft"
	"github.com/dynalloc/dynalloc-go/pkg/selector"
	"github.com/dynalloc/dynalloc-go/pkg/storage"
)

type options struct {
	logger          *slog.Logger
	selector        NodeIDSelector
	raftConfig      raft.Config
	followupTimeout time.Duration
	duplicateCheck  bool
}

// Option configures a Server.
type Option func(*options)

// WithLogger sets the logger (default: the node's logger, or
// slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSelector replaces the default node ID selector.
func WithSelector(sel NodeIDSelector) Option {
	return func(o *options) { o.selector = sel }
}

// WithRaftConfig sets the consensus timing. Only used by New.
func WithRaftConfig(cfg raft.Config) Option {
	return func(o *options) { o.raftConfig = cfg }
}

// WithFollowupTimeout sets the allocation exchange stage timeout. Only
// used by New.
func WithFollowupTimeout(d time.Duration) Option {
	return func(o *options) { o.followupTimeout = d }
}

// WithDuplicateCheck makes the server report a second committed entry for
// the same unique ID as an internal failure. Decisions are unaffected.
func WithDuplicateCheck() Option {
	return func(o *options) { o.duplicateCheck = true }
}

// Components are the collaborators of a Server.
type Components struct {
	Log       ConsensusLog
	Publisher ResponsePublisher
	Selector  NodeIDSelector
	Failures  FailureSink
}

// NewWithComponents creates a Server on the given collaborators. A nil
// Selector selects the default search.
func NewWithComponents(c Components, opts ...Option) *Server {
	o := applyOptions(opts)
	sel := c.Selector
	if sel == nil {
		sel = o.selector
	}
	if sel == nil {
		sel = selector.New()
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		log:            c.Log,
		publisher:      c.Publisher,
		selector:       sel,
		failures:       c.Failures,
		logger:         logger,
		duplicateCheck: o.duplicateCheck,
	}
}

// New creates a Server running on n with its consensus state in backend.
// The server's own node ID is never allocated. Call Init from the node's
// event loop, or before starting the node.
func New(n *node.Node, backend storage.Backend, opts ...Option) *Server {
	o := applyOptions(opts)
	if o.logger == nil {
		o.logger = n.Logger()
	}
	if o.selector == nil {
		o.selector = selector.New(selector.WithReserved(n.NodeID()))
	}

	core := raft.NewCore(n, backend, o.raftConfig)
	s := &Server{
		log:            core,
		selector:       o.selector,
		failures:       n,
		logger:         o.logger,
		duplicateCheck: o.duplicateCheck,
		self:           n.NodeID(),
	}
	core.SetLeaderMonitor(s)
	s.publisher = allocation.NewRequestManager(n, s, allocation.WithFollowupTimeout(o.followupTimeout))
	return s
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
