package node

import "time"

// Every calls fn on the event loop once per interval. Timers registered
// before Start begin ticking when the node starts; timers registered from
// the loop afterwards start immediately.
func (n *Node) Every(interval time.Duration, fn func(now time.Time)) {
	p := periodic{interval: interval, fn: fn}
	if n.running.Load() {
		n.startTicker(p)
		return
	}
	n.periodics = append(n.periodics, p)
}

func (n *Node) startTicker(p periodic) {
	ticker := n.clock.Ticker(p.interval)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-n.ctx.Done():
				return
			case <-ticker.C:
				if !n.post(func() { p.fn(n.clock.Now()) }) {
					return
				}
			}
		}
	}()
}

// After calls fn once on the event loop after d. The returned function
// cancels the callback if it has not run yet; it must be called from the
// loop.
func (n *Node) After(d time.Duration, fn func()) (cancel func()) {
	cancelled := false
	t := n.clock.AfterFunc(d, func() {
		n.post(func() {
			if !cancelled {
				fn()
			}
		})
	})
	return func() {
		cancelled = true
		t.Stop()
	}
}
