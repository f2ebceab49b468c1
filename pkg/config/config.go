// Package config loads the allocation server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dynalloc/dynalloc-go/pkg/allocation"
	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/raft"
	"github.com/dynalloc/dynalloc-go/pkg/storage"
	"github.com/dynalloc/dynalloc-go/pkg/transport"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

// Config is the allocd configuration.
//
// Example:
//
//	node_id: 1
//	cluster_size: 3
//	storage:
//	  kind: bolt
//	  path: /var/lib/dynalloc/state.db
//	bus:
//	  hubs: ["10.0.0.1:9382", "10.0.1.1:9382"]
//	raft:
//	  update_interval: 100ms
//	  election_timeout: 1s
//	allocation:
//	  reserved: [1, 2, 3]
//	trace:
//	  file: allocd.dlog
//	log_level: info
type Config struct {
	NodeID      nodeid.NodeID `yaml:"node_id"`
	ClusterSize uint8         `yaml:"cluster_size"`

	Storage    StorageConfig    `yaml:"storage"`
	Bus        BusConfig        `yaml:"bus"`
	Raft       RaftConfig       `yaml:"raft"`
	Allocation AllocationConfig `yaml:"allocation"`
	Trace      TraceConfig      `yaml:"trace"`

	LogLevel string `yaml:"log_level"`
}

// StorageConfig selects the persistent state backend.
type StorageConfig struct {
	Kind storage.Kind `yaml:"kind"`
	Path string       `yaml:"path"`
}

// BusConfig lists the bus interfaces. Each hub address is one redundant
// interface. With Discover set, hubs advertised over mDNS are added.
type BusConfig struct {
	Hubs            []string      `yaml:"hubs"`
	Discover        bool          `yaml:"discover"`
	DiscoverTimeout time.Duration `yaml:"discover_timeout"`
}

// RaftConfig holds the consensus timing.
type RaftConfig struct {
	UpdateInterval    time.Duration `yaml:"update_interval"`
	ElectionTimeout   time.Duration `yaml:"election_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	DiscoveryInterval time.Duration `yaml:"discovery_interval"`
}

// AllocationConfig tunes the allocation exchange.
type AllocationConfig struct {
	FollowupTimeout time.Duration   `yaml:"followup_timeout"`
	Reserved        []nodeid.NodeID `yaml:"reserved"`
	DuplicateCheck  bool            `yaml:"duplicate_check"`
}

// TraceConfig enables trace capture.
type TraceConfig struct {
	File string `yaml:"file"`
	Slog bool   `yaml:"slog"`
}

// Default returns a configuration for a single-server cluster on the local
// hub with in-memory storage.
func Default() Config {
	r := raft.DefaultConfig()
	return Config{
		ClusterSize: 1,
		Storage:     StorageConfig{Kind: storage.KindMemory},
		Bus: BusConfig{
			Hubs:            []string{fmt.Sprintf("localhost:%d", transport.DefaultHubPort)},
			DiscoverTimeout: 2 * time.Second,
		},
		Raft: RaftConfig{
			UpdateInterval:    r.UpdateInterval,
			ElectionTimeout:   r.ElectionTimeout,
			RequestTimeout:    r.RequestTimeout,
			DiscoveryInterval: r.DiscoveryInterval,
		},
		Allocation: AllocationConfig{FollowupTimeout: allocation.FollowupTimeout},
		LogLevel:   "info",
	}
}

// Load reads path over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("YAML parse error: %w", err)
	}
	return cfg, nil
}

// RaftTiming converts the timing section.
func (c Config) RaftTiming() raft.Config {
	return raft.Config{
		UpdateInterval:    c.Raft.UpdateInterval,
		ElectionTimeout:   c.Raft.ElectionTimeout,
		RequestTimeout:    c.Raft.RequestTimeout,
		DiscoveryInterval: c.Raft.DiscoveryInterval,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if !c.NodeID.IsUnicast() {
		errs = append(errs, fmt.Errorf("node_id %d: must be 1..%d", c.NodeID, nodeid.Max))
	}
	if c.ClusterSize > wire.MaxClusterSize {
		errs = append(errs, fmt.Errorf("cluster_size %d: must be 0..%d", c.ClusterSize, wire.MaxClusterSize))
	}
	switch c.Storage.Kind {
	case storage.KindMemory:
	case storage.KindDir, storage.KindBolt, storage.KindSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path required for kind %q", c.Storage.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.kind %q unknown", c.Storage.Kind))
	}
	if len(c.Bus.Hubs) == 0 && !c.Bus.Discover {
		errs = append(errs, errors.New("bus: no hubs and discovery disabled"))
	}
	if err := c.RaftTiming().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("raft: %w", err))
	}
	for _, id := range c.Allocation.Reserved {
		if !id.IsUnicast() {
			errs = append(errs, fmt.Errorf("allocation.reserved: %d is not a unicast node ID", id))
		}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q unknown", c.LogLevel))
	}
	return errors.Join(errs...)
}
