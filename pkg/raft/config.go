package raft

import (
	"fmt"
	"time"
)

// Config holds the engine timing.
type Config struct {
	// UpdateInterval is the period of the engine's main update. The leader
	// sends one AppendEntries call per update.
	UpdateInterval time.Duration

	// ElectionTimeout is the base election timeout. The effective timeout
	// is randomized in [ElectionTimeout, 2*ElectionTimeout).
	ElectionTimeout time.Duration

	// RequestTimeout bounds AppendEntries and RequestVote calls.
	RequestTimeout time.Duration

	// DiscoveryInterval is the period of Discovery broadcasts while the
	// cluster is incomplete.
	DiscoveryInterval time.Duration
}

// Defaults.
const (
	DefaultUpdateInterval    = 100 * time.Millisecond
	DefaultElectionTimeout   = 1 * time.Second
	DefaultDiscoveryInterval = 1 * time.Second
)

// DefaultConfig returns the default timing.
func DefaultConfig() Config {
	return Config{
		UpdateInterval:    DefaultUpdateInterval,
		ElectionTimeout:   DefaultElectionTimeout,
		RequestTimeout:    2 * DefaultUpdateInterval,
		DiscoveryInterval: DefaultDiscoveryInterval,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = d.UpdateInterval
	}
	if c.ElectionTimeout <= 0 {
		c.ElectionTimeout = d.ElectionTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 2 * c.UpdateInterval
	}
	if c.DiscoveryInterval <= 0 {
		c.DiscoveryInterval = d.DiscoveryInterval
	}
	return c
}

// Validate checks that the timing can sustain a stable leader.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.ElectionTimeout < 2*c.UpdateInterval {
		return fmt.Errorf("election timeout %v must be at least twice the update interval %v", c.ElectionTimeout, c.UpdateInterval)
	}
	if c.RequestTimeout > c.ElectionTimeout {
		return fmt.Errorf("request timeout %v exceeds election timeout %v", c.RequestTimeout, c.ElectionTimeout)
	}
	return nil
}
