// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

import (
	"context"
	"strconv"
	"time"
)

// run is the wheel's single worker goroutine: drain registered/canceled
// events into buckets, advance the wheel by however many ticks wall-clock
// time has actually moved, prune each newly-crossed bucket, then sleep
// until the next tick boundary (compensating for work already done this
// iteration). It is the only goroutine that ever touches buckets or
// next/prev links.
func (w *Wheel) run() {
	defer w.wg.Done()
	defer close(w.stoppedCh)
	defer w.state.Store(int32(stateStopped))

	lastIndex := w.tickIndex(w.clock.Now())

	for {
		w.foldEvents()

		tickStart := w.clock.Now()
		nowIndex := w.tickIndex(tickStart)

		if ticks := tickDelta(lastIndex, nowIndex, uint64(w.wheelSize)); ticks > 0 {
			w.advance(lastIndex, ticks, nowIndex)
		}
		lastIndex = nowIndex

		if w.state.Load() != int32(stateRunning) {
			return
		}

		w.sleepUntilNextTick(tickStart)

		if w.state.Load() != int32(stateRunning) {
			return
		}
	}
}

// tickIndex converts a wall-clock instant to the wheel's tick index.
func (w *Wheel) tickIndex(t time.Time) Ticks {
	return NewTicks(uint64(t.UnixMilli()) / uint64(w.tickMillis))
}

// tickDelta returns how many ticks have elapsed between last and now,
// clamped to wheelSize: a wheel that was starved for longer than one full
// revolution only ever needs to prune each bucket once. Time moving
// backward (a clock adjustment) yields zero ticks rather than a wrapped
// huge value, relying on Ticks' wraparound-safe comparisons.
func tickDelta(last, now Ticks, wheelSize uint64) uint64 {
	if now.LT(last) {
		return 0
	}
	return minUint64(now.Sub(last).Val(), wheelSize)
}

// advance prunes each bucket crossed since the last tick, starting right
// after lastIndex through nowIndex inclusive, wrapped into the bucket
// array. It emits one trace span covering the whole batch.
func (w *Wheel) advance(lastIndex Ticks, ticks uint64, nowIndex Ticks) {
	_, span := w.tracer.StartSpan(context.Background(), TickSpan)
	defer span.Finish()

	fired := 0
	for i := uint64(0); i < ticks; i++ {
		idx := uint16((lastIndex.Val() + i + 1) % uint64(w.wheelSize))
		fired += w.buckets[idx].prune(w, nowIndex)
	}
	span.SetTag(TagTicks, strconv.FormatUint(ticks, 10))
	span.SetTag(TagFired, strconv.Itoa(fired))
}

// sleepUntilNextTick sleeps for the remainder of the tick that started at
// tickStart, accounting for the work the worker just did, or returns
// immediately if that work already overran the tick. It wakes early if
// Shutdown is called mid-sleep.
func (w *Wheel) sleepUntilNextTick(tickStart time.Time) {
	elapsed := w.clock.Now().Sub(tickStart)
	tick := time.Duration(w.tickMillis) * time.Millisecond
	remaining := tick - elapsed
	if remaining <= 0 {
		return
	}
	select {
	case <-w.clock.After(remaining):
	case <-w.stopCh:
	}
}

// foldEvents drains the intake queue once and applies every event to the
// bucket array: Register links a node (unless it was already canceled
// before the worker got to it), Cancel unlinks one if it was already
// linked. Events are processed in whatever order drain() returns them
// (LIFO); a Register/Cancel pair for the same node resolves correctly
// regardless of order, since Cancel sets the canceled flag before it
// pushes its event.
func (w *Wheel) foldEvents() {
	for e := w.queue.drain(); e != nil && e.kind != evTail; e = e.next {
		n := e.node
		switch e.kind {
		case evRegister:
			if n.canceled() {
				w.metrics.Counter(MetricCanceledTotal).Inc()
				w.adjustActive(-1)
				continue
			}
			idx := uint16(n.expire.Val() % uint64(w.wheelSize))
			w.buckets[idx].add(n)
		case evCancel:
			if n.Detached() {
				// Either not yet registered (the Register event is still
				// queued or hasn't arrived; the canceled flag it will see
				// keeps it from ever linking) or already fired and unlinked.
				continue
			}
			idx := n.info.bucket()
			w.buckets[idx].lst.rm(n)
			w.metrics.Counter(MetricCanceledTotal).Inc()
			w.adjustActive(-1)
		}
	}
}
