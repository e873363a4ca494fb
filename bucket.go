// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

// bucket is one spoke of the wheel: it owns a chain of timer nodes whose
// expiry maps to this slot, and knows how to prune (unlink expired/canceled
// entries) and fire on demand. Only the wheel worker ever touches a bucket.
type bucket struct {
	lst nodeList
}

func (b *bucket) init(idx uint16) {
	b.lst.init(idx)
}

// add links n at the head of the bucket's chain (O(1)). n must be detached.
func (b *bucket) add(n *TimerNode) {
	b.lst.insert(n)
}

// prune walks the bucket's chain once, unlinking and firing every node
// whose expiry is at or before now, and unlinking (without firing) any
// node found canceled. Firing order within a bucket is insertion order
// reversed (LIFO), since inserts go to the head; no ordering is exposed to
// callers. Returns the number of nodes fired, for the caller's trace span.
func (b *bucket) prune(w *Wheel, now Ticks) int {
	fired := 0
	b.lst.forEachSafeRm(func(l *nodeList, n *TimerNode) bool {
		if n.canceled() {
			// A canceled node should normally have been unlinked while
			// folding its Cancel event during drain; observing one here is
			// a soft anomaly, not a correctness bug, and is still safely
			// removed.
			if WARNon() {
				WARN("prune: canceled node observed in bucket %d"+
					" (expected to be unlinked at drain): %p\n",
					l.bucketIdx, n)
			}
			l.rm(n)
			w.metrics.Counter(MetricCanceledTotal).Inc()
			w.adjustActive(-1)
			w.emitAnomaly(n)
			return true
		}
		if n.expire.LE(now) {
			l.rm(n)
			n.fire()
			fired++
			return true
		}
		return true
	})
	return fired
}
