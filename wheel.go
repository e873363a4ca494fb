// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package wtimer provides a low-resolution, hashed timing wheel for
// scheduling one-shot callbacks with millisecond-range accuracy, optimized
// for workloads that register and cancel far more timers than ever fire.
package wtimer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

const NAME = "wtimer"

// Metrics keys.
const (
	MetricScheduledTotal = metricz.Key("wtimer.scheduled.total")
	MetricCanceledTotal  = metricz.Key("wtimer.canceled.total")
	MetricFiredTotal     = metricz.Key("wtimer.fired.total")
	MetricFaultsTotal    = metricz.Key("wtimer.faults.total")
	MetricActiveGauge    = metricz.Key("wtimer.active")
)

// Trace spans and tags.
const (
	TickSpan = tracez.Key("wtimer.tick")

	TagTicks = tracez.Tag("wtimer.ticks")
	TagFired = tracez.Tag("wtimer.fired")
)

// Hook event keys.
const (
	EventFault   = hookz.Key("wtimer.fault")
	EventAnomaly = hookz.Key("wtimer.anomaly")
)

// WheelEvent is delivered to fault and anomaly hook subscribers.
type WheelEvent struct {
	Timestamp time.Time
	Err       error // set for fault events, nil for anomaly events
}

type wheelState int32

const (
	stateRunning wheelState = iota
	stateShuttingDown
	stateStopped
)

// Wheel is a hashed timing wheel: a fixed-size array of buckets advanced
// once per tick by a single dedicated worker goroutine. Any number of
// producer goroutines may call Schedule/ScheduleOn and Cancel concurrently.
type Wheel struct {
	name       string
	wheelSize  int
	tickMillis int64

	buckets []bucket
	queue   eventQueue
	clock   Clock

	state  atomic.Int32
	active atomic.Int64 // mirrors MetricActiveGauge, which only supports Set

	stopCh    chan struct{} // closed to request shutdown
	stoppedCh chan struct{} // closed once the worker has exited
	wg        sync.WaitGroup

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[WheelEvent]
}

// Option configures a Wheel at construction time.
type Option func(*Wheel)

// WithClock injects a custom clock, e.g. clockz.NewFakeClock() for
// deterministic tests of tick advancement and clock-jump handling.
func WithClock(c Clock) Option {
	return func(w *Wheel) { w.clock = c }
}

// WithName sets a diagnostic name, used as the logging prefix in place of
// the default size/tick-derived name.
func WithName(name string) Option {
	return func(w *Wheel) { w.name = name }
}

// New validates its parameters, builds the wheel, and starts its worker
// goroutine. wheelSize must be > 0 (and fit in a uint16 bucket index);
// tickDuration must be at least one millisecond.
func New(wheelSize int, tickDuration time.Duration, opts ...Option) (*Wheel, error) {
	if wheelSize <= 0 || wheelSize > int(bucketNone) {
		return nil, ErrInvalidWheelSize
	}
	if tickDuration <= 0 {
		return nil, ErrInvalidTickDuration
	}

	w := &Wheel{
		wheelSize:  wheelSize,
		tickMillis: tickDuration.Milliseconds(),
		buckets:    make([]bucket, wheelSize),
		clock:      defaultClock(),
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
		metrics:    metricz.New(),
		tracer:     tracez.New(),
		hooks:      hookz.New[WheelEvent](),
	}
	if w.tickMillis <= 0 {
		// sub-millisecond tick durations round to zero ticks; reject rather
		// than spin the worker in a tight loop.
		return nil, ErrInvalidTickDuration
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name == "" {
		w.name = fmt.Sprintf("%s[size=%d tick=%s]", NAME, wheelSize, tickDuration)
	}
	for i := range w.buckets {
		w.buckets[i].init(uint16(i))
	}
	w.queue.init()

	w.metrics.Counter(MetricScheduledTotal)
	w.metrics.Counter(MetricCanceledTotal)
	w.metrics.Counter(MetricFiredTotal)
	w.metrics.Counter(MetricFaultsTotal)
	w.metrics.Gauge(MetricActiveGauge)

	w.state.Store(int32(stateRunning))
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Schedule runs cb after delay, on the wheel's inline/direct executor. See
// ScheduleOn for running on a caller-supplied Executor.
func (w *Wheel) Schedule(cb Callback, delay time.Duration) (Cancellable, error) {
	return w.ScheduleOn(cb, DirectExecutor{}, delay)
}

// ScheduleOn runs cb on executor after delay, returning a Cancellable.
// If delay <= 0, cb is submitted to executor immediately, synchronously on
// the calling goroutine, bypassing the wheel entirely, and a no-op
// Cancellable is returned.
func (w *Wheel) ScheduleOn(cb Callback, executor Executor, delay time.Duration) (Cancellable, error) {
	if cb == nil || executor == nil {
		return nil, ErrInvalidParameters
	}
	if w.state.Load() != int32(stateRunning) {
		return nil, ErrNotRunning
	}

	if delay <= 0 {
		w.metrics.Counter(MetricScheduledTotal).Inc()
		w.metrics.Counter(MetricFiredTotal).Inc()
		if err := executor.Execute(cb); err != nil {
			w.reportFault(nil, err)
		}
		return noopCancellable{}, nil
	}

	now := w.clock.Now()
	expireMillis := now.UnixMilli() + delay.Milliseconds()
	expireIdx := ticksRoundUp(uint64(expireMillis), uint64(w.tickMillis))

	n := &TimerNode{cb: cb, executor: executor, wheel: w, expire: expireIdx}
	n.info.setBucket(bucketNone)

	w.metrics.Counter(MetricScheduledTotal).Inc()
	w.adjustActive(1)
	w.queue.push(&event{kind: evRegister, node: n})
	return n, nil
}

// adjustActive updates the active-timer count and reflects it in the
// gauge; metricz's Gauge only exposes Set, so the running count is kept
// alongside it.
func (w *Wheel) adjustActive(delta int64) {
	v := w.active.Add(delta)
	w.metrics.Gauge(MetricActiveGauge).Set(float64(v))
}

// Shutdown requests the worker to stop after finishing its current tick and
// returns immediately, without waiting for it. Once Shutdown has been
// called, subsequent Schedule/ScheduleOn calls fail with ErrNotRunning. Use
// Done to observe when the worker has actually exited.
func (w *Wheel) Shutdown() {
	if w.state.CompareAndSwap(int32(stateRunning), int32(stateShuttingDown)) {
		close(w.stopCh)
	}
}

// Done returns a channel that is closed once the worker goroutine has
// fully exited (after Shutdown has been called and the current tick, if
// any, has finished).
func (w *Wheel) Done() <-chan struct{} {
	return w.stoppedCh
}

// Metrics returns the wheel's metrics registry (scheduled/canceled/fired/
// fault counters and an active-timer gauge).
func (w *Wheel) Metrics() *metricz.Registry {
	return w.metrics
}

// Tracer returns the wheel's tracer, which emits one span per worker pass
// that advances the wheel, covering every tick crossed in that pass.
func (w *Wheel) Tracer() *tracez.Tracer {
	return w.tracer
}

// OnFault registers a handler invoked when a timer's Executor.Execute
// returns a non-fatal error. Every such fault is also logged at error
// level, whether or not a handler is registered.
func (w *Wheel) OnFault(handler func(context.Context, WheelEvent) error) error {
	_, err := w.hooks.Hook(EventFault, handler)
	return err
}

// OnAnomaly registers a handler invoked when the worker observes a
// canceled node during bucket pruning that was expected to have already
// been unlinked during event drain.
func (w *Wheel) OnAnomaly(handler func(context.Context, WheelEvent) error) error {
	_, err := w.hooks.Hook(EventAnomaly, handler)
	return err
}

func (w *Wheel) reportFault(_ *TimerNode, err error) {
	w.metrics.Counter(MetricFaultsTotal).Inc()
	if ERRon() {
		ERR("%s: executor submit failed: %s\n", w.name, err)
	}
	_ = w.hooks.Emit(context.Background(), EventFault, WheelEvent{
		Timestamp: w.clock.Now(),
		Err:       err,
	})
}

func (w *Wheel) emitAnomaly(_ *TimerNode) {
	_ = w.hooks.Emit(context.Background(), EventAnomaly, WheelEvent{
		Timestamp: w.clock.Now(),
	})
}
