// Command alloc-client requests a node ID from the allocation servers on
// the bus, the way an anonymous device does at boot.
//
// Usage:
//
//	alloc-client [flags]
//
// Flags:
//
//	-uid string         Unique ID (32 hex digits or UUID notation)
//	-vendor string      Vendor name for deriving the unique ID
//	-serial string      Serial number for deriving the unique ID
//	-preferred int      Preferred node ID (0 = no preference)
//	-single-stage       Send the whole unique ID in one message
//	-hubs string        Comma-separated hub addresses
//	-discover           Add hubs found over mDNS
//	-timeout duration   Give up after this long (default 30s)
//	-trace string       Write trace events to this file
//	-log-level string   Log level: debug, info, warn, error
//
// Without -uid or -serial a random unique ID is used.
//
// Examples:
//
//	alloc-client -vendor acme -serial SN-0042 -preferred 42
//	alloc-client -uid 6ba7b810-9dad-11d1-80b4-00c04fd430c8 -hubs 10.0.0.1:9382,10.0.1.1:9382
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dynalloc/dynalloc-go/internal/cmdutil"
	"github.com/dynalloc/dynalloc-go/pkg/allocation"
	"github.com/dynalloc/dynalloc-go/pkg/discovery"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/transport"
)

var (
	uidFlag     string
	vendor      string
	serial      string
	preferred   uint
	singleStage bool
	hubs        string
	discover    bool
	timeout     time.Duration
	traceFile   string
	logLevel    string
)

func init() {
	flag.StringVar(&uidFlag, "uid", "", "Unique ID (32 hex digits or UUID notation)")
	flag.StringVar(&vendor, "vendor", "dynalloc", "Vendor name for deriving the unique ID")
	flag.StringVar(&serial, "serial", "", "Serial number for deriving the unique ID")
	flag.UintVar(&preferred, "preferred", 0, "Preferred node ID (0 = no preference)")
	flag.BoolVar(&singleStage, "single-stage", false, "Send the whole unique ID in one message")
	flag.StringVar(&hubs, "hubs", fmt.Sprintf("localhost:%d", transport.DefaultHubPort), "Comma-separated hub addresses")
	flag.BoolVar(&discover, "discover", false, "Add hubs found over mDNS")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	flag.StringVar(&traceFile, "trace", "", "Write trace events to this file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger := cmdutil.NewLogger(logLevel, os.Stderr)
	slog.SetDefault(logger)

	uid, err := resolveUniqueID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	id, allocator, err := run(uid, logger)
	if err != nil {
		logger.Error("allocation failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("unique_id=%s node_id=%d allocator=%d\n", uid, id, allocator)
}

func resolveUniqueID() (nodeid.UniqueID, error) {
	switch {
	case uidFlag != "":
		return nodeid.ParseUniqueID(uidFlag)
	case serial != "":
		return nodeid.DeriveUniqueID(vendor, serial)
	default:
		return nodeid.NewRandomUniqueID(), nil
	}
}

func run(uid nodeid.UniqueID, logger *slog.Logger) (nodeid.NodeID, nodeid.NodeID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, closeTrace, err := cmdutil.OpenTracer(traceFile, false, logger)
	if err != nil {
		return 0, 0, err
	}
	defer closeTrace()

	var browser cmdutil.HubBrowser
	if discover {
		browser = discovery.NewBrowser(discovery.Config{})
	}
	addrs, err := cmdutil.ResolveHubs(sigCtx, strings.Split(hubs, ","), browser, 2*time.Second)
	if err != nil {
		return 0, 0, err
	}
	links, _ := cmdutil.DialLinks(sigCtx, addrs, logger)

	n := node.New(node.Config{Logger: logger, Tracer: tracer}, links...)

	var opts []allocation.ClientOption
	if preferred != 0 {
		opts = append(opts, allocation.WithPreferredNodeID(nodeid.NodeID(preferred)))
	}
	if singleStage {
		opts = append(opts, allocation.WithSingleStage())
	}
	client, err := allocation.NewClient(n, uid, opts...)
	if err != nil {
		return 0, 0, err
	}

	type result struct{ id, allocator nodeid.NodeID }
	done := make(chan result, 1)
	client.OnAllocated(func(id, allocator nodeid.NodeID) {
		if err := n.SetNodeID(id); err != nil {
			logger.Warn("cannot adopt allocated node ID", "node_id", id, "error", err)
		}
		done <- result{id, allocator}
	})

	if err := n.Start(sigCtx); err != nil {
		return 0, 0, err
	}
	defer n.Stop()

	logger.Info("requesting node ID", "unique_id", uid, "preferred", preferred, "interfaces", len(addrs))
	if err := n.Do(sigCtx, client.Start); err != nil {
		return 0, 0, err
	}

	select {
	case r := <-done:
		return r.id, r.allocator, nil
	case <-sigCtx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, 0, fmt.Errorf("no allocation within %s", timeout)
		}
		return 0, 0, sigCtx.Err()
	}
}
