// Command busd runs a bus hub: a TCP relay that forwards every frame to
// all attached nodes. Run one busd per redundant bus interface.
//
// Usage:
//
//	busd [flags]
//
// Flags:
//
//	-listen string     Listen address (default ":9382")
//	-bus string        Bus name advertised over mDNS (default "A")
//	-name string       mDNS instance name (default "dynalloc-bus-<bus>")
//	-advertise         Advertise the hub over mDNS
//	-iface string      Network interface for mDNS (default: all)
//	-log-level string  Log level: debug, info, warn, error
//
// Examples:
//
//	# Two redundant buses on one host
//	busd -listen :9382 -bus A -advertise
//	busd -listen :9383 -bus B -advertise
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dynalloc/dynalloc-go/internal/cmdutil"
	"github.com/dynalloc/dynalloc-go/pkg/discovery"
	"github.com/dynalloc/dynalloc-go/pkg/transport"
)

const statsInterval = time.Minute

var (
	listen    string
	busName   string
	instance  string
	advertise bool
	iface     string
	logLevel  string
)

func init() {
	flag.StringVar(&listen, "listen", fmt.Sprintf(":%d", transport.DefaultHubPort), "Listen address")
	flag.StringVar(&busName, "bus", "A", "Bus name advertised over mDNS")
	flag.StringVar(&instance, "name", "", "mDNS instance name (default \"dynalloc-bus-<bus>\")")
	flag.BoolVar(&advertise, "advertise", false, "Advertise the hub over mDNS")
	flag.StringVar(&iface, "iface", "", "Network interface for mDNS (default: all)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger := cmdutil.NewLogger(logLevel, os.Stderr)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("busd failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := transport.NewHub(transport.HubConfig{
		Address: listen,
		Logger:  logger,
		OnConnect: func(p *transport.HubPeer) {
			logger.Info("node attached", "peer", p.ID(), "remote", p.RemoteAddr())
		},
		OnDisconnect: func(p *transport.HubPeer) {
			logger.Info("node detached", "peer", p.ID())
		},
	})
	if err := hub.Start(ctx); err != nil {
		return fmt.Errorf("start hub: %w", err)
	}
	defer hub.Stop()
	logger.Info("hub listening", "address", hub.Addr(), "bus", busName)

	if advertise {
		port := hub.Addr().(*net.TCPAddr).Port
		name := instance
		if name == "" {
			name = "dynalloc-bus-" + busName
		}
		adv := discovery.NewAdvertiser(discovery.Config{Interface: iface})
		if err := adv.Advertise(name, port, busName); err != nil {
			return err
		}
		defer adv.Stop()
		logger.Info("hub advertised", "instance", name, "service", discovery.ServiceType)
	}

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig,
				"nodes", hub.ConnectionCount(), "relayed", hub.RelayedFrames())
			return nil
		case <-ticker.C:
			logger.Info("hub stats", "nodes", hub.ConnectionCount(), "relayed", hub.RelayedFrames())
		}
	}
}
