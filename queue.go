// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

import (
	"sync/atomic"
)

// eventKind distinguishes the two producer-visible event variants from the
// non-nullable Tail sentinel.
type eventKind uint8

const (
	evRegister eventKind = iota
	evCancel
	evTail
)

// event is one entry of the singly-linked MPSC intake chain.
type event struct {
	kind eventKind
	node *TimerNode
	next *event
}

// tailEvent is the shared, immutable Tail sentinel: a non-nullable chain
// terminator so the intake is never an actual nil pointer.
var tailEvent = &event{kind: evTail}

// eventQueue is a lock-free, wait-free-per-attempt MPSC intake: any number
// of producer goroutines may push Register/Cancel events; only the wheel
// worker ever drains it.
type eventQueue struct {
	head atomic.Pointer[event]
}

func (q *eventQueue) init() {
	q.head.Store(tailEvent)
}

// push links e in front of the current head and retries the CAS until it
// succeeds. Safe to call from any goroutine, concurrently.
func (q *eventQueue) push(e *event) {
	for {
		old := q.head.Load()
		e.next = old
		if q.head.CompareAndSwap(old, e) {
			return
		}
	}
}

// drain atomically swaps the head with the Tail sentinel and returns the
// chain that was there before (newest-pushed event first: LIFO order).
// Only the worker should call this. Returns tailEvent if the queue was
// empty.
func (q *eventQueue) drain() *event {
	return q.head.Swap(tailEvent)
}
