package transport

import (
	"sync"
)

// DefaultMemoryQueueSize is the per-link receive queue of a MemoryBus.
// Frames arriving at a full queue are dropped, as on a congested bus.
const DefaultMemoryQueueSize = 256

// MemoryBus is an in-process bus.
type MemoryBus struct {
	mu      sync.RWMutex
	links   map[*MemoryLink]struct{}
	dropped uint64
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{links: make(map[*MemoryLink]struct{})}
}

// Attach creates a new link on the bus.
func (b *MemoryBus) Attach() *MemoryLink {
	l := &MemoryLink{
		bus:     b,
		queue:   make(chan []byte, DefaultMemoryQueueSize),
		closeCh: make(chan struct{}),
	}
	b.mu.Lock()
	b.links[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Partition places each group of links into its own segment. Links not
// named in any group are isolated from everything. Heal undoes it.
func (b *MemoryBus) Partition(groups ...[]*MemoryLink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for l := range b.links {
		l.segment = -1
	}
	for i, g := range groups {
		for _, l := range g {
			l.segment = i + 1
		}
	}
}

// Heal removes all partitions.
func (b *MemoryBus) Heal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for l := range b.links {
		l.segment = 0
	}
}

// Dropped returns the number of frames dropped at full queues.
func (b *MemoryBus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

func (b *MemoryBus) deliver(from *MemoryLink, data []byte) {
	b.mu.RLock()
	var full int
	for l := range b.links {
		if l == from || !from.reaches(l) {
			continue
		}
		frame := make([]byte, len(data))
		copy(frame, data)
		select {
		case l.queue <- frame:
		default:
			full++
		}
	}
	b.mu.RUnlock()

	if full > 0 {
		b.mu.Lock()
		b.dropped += uint64(full)
		b.mu.Unlock()
	}
}

func (b *MemoryBus) detach(l *MemoryLink) {
	b.mu.Lock()
	delete(b.links, l)
	b.mu.Unlock()
}

// MemoryLink is a link on a MemoryBus.
type MemoryLink struct {
	bus     *MemoryBus
	queue   chan []byte
	closeCh chan struct{}
	once    sync.Once

	// segment is guarded by bus.mu. 0 = unpartitioned, -1 = isolated.
	segment int
}

func (l *MemoryLink) reaches(other *MemoryLink) bool {
	if l.segment < 0 || other.segment < 0 {
		return false
	}
	return l.segment == other.segment
}

// Send implements Link.
func (l *MemoryLink) Send(data []byte) error {
	select {
	case <-l.closeCh:
		return ErrConnectionClosed
	default:
	}
	l.bus.deliver(l, data)
	return nil
}

// Receive implements Link.
func (l *MemoryLink) Receive() ([]byte, error) {
	select {
	case data := <-l.queue:
		return data, nil
	case <-l.closeCh:
		return nil, ErrConnectionClosed
	}
}

// Close implements Link.
func (l *MemoryLink) Close() error {
	l.once.Do(func() {
		close(l.closeCh)
		l.bus.detach(l)
	})
	return nil
}
