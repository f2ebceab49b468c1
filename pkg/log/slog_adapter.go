package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.Uint64("node_id", uint64(event.NodeID)),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Frame != nil:
		f := event.Frame
		attrs = append(attrs,
			slog.String("direction", f.Direction.String()),
			slog.Uint64("iface", uint64(f.Interface)),
			slog.String("kind", f.Kind.String()),
			slog.String("data_type", f.DataType.String()),
			slog.Uint64("src", uint64(f.Source)),
			slog.Uint64("tid", uint64(f.TransferID)),
			slog.Int("size", f.Size),
		)
		if f.Destination != 0 {
			attrs = append(attrs, slog.Uint64("dst", uint64(f.Destination)))
		}
		if f.Duplicate {
			attrs = append(attrs, slog.Bool("duplicate", true))
		}
	case event.Trace != nil:
		attrs = append(attrs,
			slog.String("code", event.Trace.Code.String()),
			slog.Int64("arg", event.Trace.Argument),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
			slog.Uint64("term", uint64(event.StateChange.Term)),
		)
	case event.Failure != nil:
		attrs = append(attrs, slog.String("reason", event.Failure.Reason))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
