// Command allocd runs a dynamic node ID allocation server.
//
// A cluster of one to five allocd instances replicates the allocation
// table with Raft. Anonymous devices on the bus request a node ID and the
// current leader answers once the allocation is committed.
//
// Usage:
//
//	allocd [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-node-id int          Node ID of this server (1-127)
//	-cluster-size int     Number of servers (1-5, 0 = use stored value)
//	-storage string       Storage kind: memory, dir, bolt, sqlite
//	-storage-path string  Storage file or directory
//	-hubs string          Comma-separated hub addresses, one per interface
//	-discover             Add hubs found over mDNS
//	-trace string         Write trace events to this file
//	-log-level string     Log level: debug, info, warn, error
//	-interactive          Start the operator console
//
// Examples:
//
//	# Single server on the local hub
//	allocd -node-id 1
//
//	# Member of a three-server cluster on two redundant buses
//	allocd -node-id 2 -cluster-size 3 -storage bolt -storage-path /var/lib/dynalloc/2.db \
//	    -hubs 10.0.0.1:9382,10.0.1.1:9382
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dynalloc/dynalloc-go/cmd/allocd/interactive"
	"github.com/dynalloc/dynalloc-go/internal/cmdutil"
	"github.com/dynalloc/dynalloc-go/pkg/allocator"
	"github.com/dynalloc/dynalloc-go/pkg/config"
	"github.com/dynalloc/dynalloc-go/pkg/discovery"
	"github.com/dynalloc/dynalloc-go/pkg/node"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/selector"
	"github.com/dynalloc/dynalloc-go/pkg/storage"
)

var (
	configFile      string
	nodeIDFlag      uint
	clusterSize     uint
	storageKind     string
	storagePath     string
	hubs            string
	discover        bool
	traceFile       string
	logLevel        string
	interactiveMode bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.UintVar(&nodeIDFlag, "node-id", 0, "Node ID of this server (1-127)")
	flag.UintVar(&clusterSize, "cluster-size", 1, "Number of servers (1-5, 0 = use stored value)")
	flag.StringVar(&storageKind, "storage", string(storage.KindMemory), "Storage kind: memory, dir, bolt, sqlite")
	flag.StringVar(&storagePath, "storage-path", "", "Storage file or directory")
	flag.StringVar(&hubs, "hubs", "", "Comma-separated hub addresses, one per interface")
	flag.BoolVar(&discover, "discover", false, "Add hubs found over mDNS")
	flag.StringVar(&traceFile, "trace", "", "Write trace events to this file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&interactiveMode, "interactive", false, "Start the operator console")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cmdutil.NewLogger(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("allocd failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags that were set
// explicitly on the command line.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "node-id":
			cfg.NodeID = nodeid.NodeID(nodeIDFlag)
		case "cluster-size":
			cfg.ClusterSize = uint8(clusterSize)
		case "storage":
			cfg.Storage.Kind = storage.Kind(storageKind)
		case "storage-path":
			cfg.Storage.Path = storagePath
		case "hubs":
			cfg.Bus.Hubs = strings.Split(hubs, ",")
		case "discover":
			cfg.Bus.Discover = discover
		case "trace":
			cfg.Trace.File = traceFile
		case "log-level":
			cfg.LogLevel = logLevel
		}
	})

	return cfg, cfg.Validate()
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, closeTrace, err := cmdutil.OpenTracer(cfg.Trace.File, cfg.Trace.Slog, logger)
	if err != nil {
		return err
	}
	defer closeTrace()

	backend, closer, err := storage.Open(cfg.Storage.Kind, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closer.Close()

	var browser cmdutil.HubBrowser
	if cfg.Bus.Discover {
		browser = discovery.NewBrowser(discovery.Config{})
	}
	addrs, err := cmdutil.ResolveHubs(ctx, cfg.Bus.Hubs, browser, cfg.Bus.DiscoverTimeout)
	if err != nil {
		return err
	}
	links, _ := cmdutil.DialLinks(ctx, addrs, logger)

	n := node.New(node.Config{NodeID: cfg.NodeID, Logger: logger, Tracer: tracer}, links...)

	opts := []allocator.Option{
		allocator.WithRaftConfig(cfg.RaftTiming()),
		allocator.WithFollowupTimeout(cfg.Allocation.FollowupTimeout),
	}
	if len(cfg.Allocation.Reserved) > 0 {
		reserved := append([]nodeid.NodeID{cfg.NodeID}, cfg.Allocation.Reserved...)
		opts = append(opts, allocator.WithSelector(selector.New(selector.WithReserved(reserved...))))
	}
	if cfg.Allocation.DuplicateCheck {
		opts = append(opts, allocator.WithDuplicateCheck())
	}

	srv := allocator.New(n, backend, opts...)
	if err := srv.Init(cfg.ClusterSize); err != nil {
		for _, l := range links {
			l.Close()
		}
		return fmt.Errorf("init allocator: %w", err)
	}
	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	defer n.Stop()

	logger.Info("allocation server started",
		"node_id", cfg.NodeID,
		"cluster_size", cfg.ClusterSize,
		"storage", cfg.Storage.Kind,
		"interfaces", len(addrs))

	if interactiveMode {
		console, err := interactive.New(srv, n)
		if err != nil {
			return err
		}
		slog.SetDefault(cmdutil.NewLogger(cfg.LogLevel, console.Stdout()))
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}
	return nil
}
