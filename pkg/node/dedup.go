package node

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/wire"
)

type dedupKey struct {
	kind       wire.TransferKind
	dataType   wire.DataTypeID
	source     nodeid.NodeID
	dest       nodeid.NodeID
	transferID uint8
	digest     uint64
}

// deduplicator drops copies of a transfer that arrive on redundant
// interfaces within a time window. Owned by the event loop.
type deduplicator struct {
	window    time.Duration
	entries   map[dedupKey]time.Time
	lastSweep time.Time
}

func newDeduplicator(window time.Duration) *deduplicator {
	return &deduplicator{window: window, entries: make(map[dedupKey]time.Time)}
}

// seen records the frame and reports whether an identical transfer was
// recorded within the window.
func (d *deduplicator) seen(f *wire.Frame, now time.Time) bool {
	if now.Sub(d.lastSweep) >= d.window {
		d.sweep(now)
	}

	key := dedupKey{
		kind:       f.Kind,
		dataType:   f.DataType,
		source:     f.Source,
		dest:       f.Destination,
		transferID: f.TransferID,
		digest:     xxhash.Sum64(f.Payload),
	}
	if at, ok := d.entries[key]; ok && now.Sub(at) < d.window {
		return true
	}
	d.entries[key] = now
	return false
}

func (d *deduplicator) sweep(now time.Time) {
	for k, at := range d.entries {
		if now.Sub(at) >= d.window {
			delete(d.entries, k)
		}
	}
	d.lastSweep = now
}

func (d *deduplicator) size() int {
	return len(d.entries)
}
