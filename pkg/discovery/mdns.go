package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Config selects the network interface and record TTL.
type Config struct {
	// Interface restricts mDNS to one network interface; empty means all.
	Interface string

	// TTL of advertised records; 0 uses the zeroconf default.
	TTL time.Duration
}

func (c Config) interfaces() []net.Interface {
	if c.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(c.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertiser publishes a hub over mDNS.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser.
func NewAdvertiser(config Config) *Advertiser {
	return &Advertiser{config: config}
}

// Advertise registers the hub, replacing a previous registration.
func (a *Advertiser) Advertise(instance string, port int, bus string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(instance, ServiceType, Domain, port, EncodeTXT(bus), a.config.interfaces(), opts...)
	if err != nil {
		return fmt.Errorf("failed to register hub service: %w", err)
	}
	a.server = server
	return nil
}

// Stop withdraws the registration.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Browser finds hubs over mDNS.
type Browser struct {
	config Config
}

// NewBrowser creates a browser.
func NewBrowser(config Config) *Browser {
	return &Browser{config: config}
}

func (b *Browser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if ifaces := b.config.interfaces(); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	return opts
}

// Browse reports hubs until ctx is done. A hub seen on several network
// interfaces is reported once, when first seen.
func (b *Browser) Browse(ctx context.Context) (<-chan *Hub, error) {
	out := make(chan *Hub)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		seen := make(map[string]*Hub)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				hub, err := hubFromEntry(entry)
				if err != nil {
					continue
				}
				if existing, found := seen[hub.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, hub.Addresses)
					continue
				}
				seen[hub.Instance] = hub
				select {
				case out <- hub:
				case <-ctx.Done():
					return
				}
			case entry, ok := <-removed:
				if ok {
					delete(seen, entry.Instance)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...)
	}()

	return out, nil
}

// FindHubs browses for timeout and returns everything found.
func (b *Browser) FindHubs(ctx context.Context, timeout time.Duration) ([]*Hub, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	var hubs []*Hub
	for h := range found {
		hubs = append(hubs, h)
	}
	return hubs, nil
}

func hubFromEntry(entry *zeroconf.ServiceEntry) (*Hub, error) {
	bus, version, err := DecodeTXT(entry.Text)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return &Hub{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      entry.Port,
		Addresses: addrs,
		Bus:       bus,
		Version:   version,
	}, nil
}
