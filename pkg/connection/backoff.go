package connection

import (
	"math/rand"
	"time"
)

// Re-dial delays. The delay doubles per failed attempt up to MaxBackoff.
const (
	InitialBackoff = 100 * time.Millisecond
	MaxBackoff     = 5 * time.Second
	JitterFactor   = 0.25
)

// BackoffConfig customizes a Backoff. Zero durations take the defaults;
// Jitter is the largest random fraction added to each delay.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  float64
}

// Backoff yields the delays between re-dial attempts of one link. It is
// not safe for concurrent use.
type Backoff struct {
	cfg      BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a backoff with the default delays and jitter.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Jitter: JitterFactor})
}

// NewBackoffWithConfig creates a backoff with custom delays.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = max(MaxBackoff, cfg.Initial)
	}
	return &Backoff{cfg: cfg, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Next returns the delay before the next attempt.
func (b *Backoff) Next() time.Duration {
	d := b.cfg.Max
	if b.attempts < 32 {
		if shifted := b.cfg.Initial << b.attempts; shifted > 0 && shifted < d {
			d = shifted
		}
	}
	b.attempts++
	if b.cfg.Jitter > 0 {
		d += time.Duration(float64(d) * b.cfg.Jitter * b.rng.Float64())
	}
	return d
}

// Reset starts over from the initial delay. Call after a successful dial.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}
