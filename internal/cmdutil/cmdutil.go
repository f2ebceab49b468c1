// Package cmdutil holds the setup shared by the dynalloc commands: logging,
// trace capture and bus interface wiring.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dynalloc/dynalloc-go/pkg/connection"
	"github.com/dynalloc/dynalloc-go/pkg/discovery"
	"github.com/dynalloc/dynalloc-go/pkg/log"
	"github.com/dynalloc/dynalloc-go/pkg/transport"
)

// ParseLevel maps a log level name to an slog level. Unknown names map to
// info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// OpenTracer builds the trace sink: a CBOR file when path is set, plus the
// slog adapter when withSlog is set. The returned close function is never
// nil.
func OpenTracer(path string, withSlog bool, logger *slog.Logger) (log.Logger, func() error, error) {
	var sinks []log.Logger
	closeFn := func() error { return nil }

	if path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, closeFn, fmt.Errorf("open trace file: %w", err)
		}
		sinks = append(sinks, fl)
		closeFn = fl.Close
	}
	if withSlog {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	switch len(sinks) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return sinks[0], closeFn, nil
	default:
		return log.NewMultiLogger(sinks...), closeFn, nil
	}
}

// HubBrowser finds hubs. *discovery.Browser implements it.
type HubBrowser interface {
	FindHubs(ctx context.Context, timeout time.Duration) ([]*discovery.Hub, error)
}

// ResolveHubs returns the configured hub addresses followed by one
// discovered hub per bus, without duplicates. browser may be nil.
func ResolveHubs(ctx context.Context, hubs []string, browser HubBrowser, timeout time.Duration) ([]string, error) {
	addrs := slices.Clone(hubs)
	if browser != nil {
		found, err := browser.FindHubs(ctx, timeout)
		if err != nil {
			return nil, fmt.Errorf("hub discovery: %w", err)
		}
		for _, h := range discovery.SelectInterfaces(found) {
			addrs = append(addrs, h.Address())
		}
	}

	out := addrs[:0]
	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no bus hubs configured or discovered")
	}
	return out, nil
}

// DialLinks starts one reconnecting link per hub address. Each address is
// a redundant interface of the same bus.
func DialLinks(ctx context.Context, addrs []string, logger *slog.Logger) ([]transport.Link, []*connection.Link) {
	links := make([]transport.Link, 0, len(addrs))
	conns := make([]*connection.Link, 0, len(addrs))
	for _, addr := range addrs {
		l := connection.NewLink(connection.HubDialer(addr),
			connection.WithLogger(logger.With("hub", addr)),
			connection.WithStateCallback(func(oldState, newState connection.State) {
				logger.Info("bus link state", "hub", addr, "from", oldState, "to", newState)
			}),
		)
		l.Start(ctx)
		links = append(links, l)
		conns = append(conns, l)
	}
	return links, conns
}
