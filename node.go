// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

// flags for a TimerNode, packed into its tInfo.
const (
	fHead     = 1 // this is the list/bucket sentinel head (debugging)
	fCanceled = 2 // cancel() was called, producer-writable
	fFired    = 4 // fire() already ran, terminal
	fRemoved  = 8 // unlinked from its bucket, terminal (debugging)
)

// A Callback is a zero-argument function run by an Executor when a timer
// expires.
type Callback func()

// A Cancellable is the capability returned by Schedule: best-effort,
// idempotent, thread-safe cancellation of a pending timer.
type Cancellable interface {
	// Cancel requests that the timer not fire. It is safe to call from any
	// goroutine, any number of times, including after the timer has already
	// fired. It does not guarantee suppression if the callback has already
	// begun executing on its executor.
	Cancel()
}

// noopCancellable is returned for timers that never touch the wheel (the
// zero-delay fast path); canceling it is a harmless no-op.
type noopCancellable struct{}

func (noopCancellable) Cancel() {}

// TimerNode is the intrusive doubly-linked list cell for a single
// registered timer. Only the wheel worker goroutine ever mutates next/prev
// or links the node into a bucket; producer
// goroutines touch only the canceled flag, via Cancel.
type TimerNode struct {
	next *TimerNode
	prev *TimerNode

	info tInfo // flags + bucket index, CAS-mutated

	expire Ticks // absolute expiry, in wheel ticks

	cb       Callback
	executor Executor
	wheel    *Wheel
}

// Detached reports whether the node is not currently linked into any
// bucket's chain.
func (n *TimerNode) Detached() bool {
	return n == n.next || (n.next == nil && n.prev == nil)
}

// Exp returns the node's absolute expiry, in wheel ticks (debugging use).
func (n *TimerNode) Exp() Ticks {
	return n.expire
}

// Cancel implements Cancellable. It is safe to call concurrently with the
// worker and with other Cancel calls; it only ever mutates the atomic
// canceled flag and pushes an event, never next/prev.
func (n *TimerNode) Cancel() {
	n.info.setFlags(fCanceled)
	if n.wheel != nil {
		n.wheel.queue.push(&event{kind: evCancel, node: n})
	}
}

// canceled reports whether Cancel has been called on this node. Read with
// acquire semantics (via the atomic load inside tInfo.flags) so that a
// Register processed after a reordered Cancel still observes it, per
// the scheduler's drain-order discussion.
func (n *TimerNode) canceled() bool {
	return n.info.flags()&fCanceled != 0
}

// fire submits the node's callback to its executor. It must only be called
// by the worker, on a node it has just unlinked from a bucket. Non-fatal
// submission errors are forwarded to the wheel's fault hook; fatal errors
// (panics from Execute) are allowed to propagate and will terminate the
// worker.
func (n *TimerNode) fire() {
	n.info.setFlags(fFired)
	if n.wheel != nil {
		n.wheel.metrics.Counter(MetricFiredTotal).Inc()
		n.wheel.adjustActive(-1)
	}
	if err := n.executor.Execute(n.cb); err != nil {
		if n.wheel != nil {
			n.wheel.reportFault(n, err)
		}
	}
}
