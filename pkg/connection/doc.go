// Package connection keeps bus hub links alive.
//
// A hub link that drops is re-dialed with exponential backoff:
//
//  1. Initial delay: 100 milliseconds
//  2. Exponential increase: 200ms, 400ms, 800ms, ...
//  3. Maximum delay: 5 seconds
//  4. Reset to the initial delay on a successful reconnection
//
// Jitter of up to 25% of the base delay is added so that redundant
// interfaces of many nodes do not re-dial in lockstep:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// While a link is down, frames sent on it are dropped. A redundant
// interface keeps the node reachable in the meantime.
package connection
