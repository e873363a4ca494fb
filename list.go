// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

// nodeList is an intrusive doubly-linked circular list with a sentinel
// head, used as a bucket's chain of timer nodes. There is no internal
// locking: the wheel worker is the sole mutator.
type nodeList struct {
	head      TimerNode // used only as list head (only next & prev valid)
	bucketIdx uint16    // mostly for debugging
}

// init initializes a list head as an empty circular list.
func (lst *nodeList) init(idx uint16) {
	lst.forceEmpty()
	lst.bucketIdx = idx
	lst.head.info.setFlags(fHead)
	lst.head.info.setBucket(idx)
}

// forceEmpty re-initializes the list head, dropping all entries.
func (lst *nodeList) forceEmpty() {
	lst.head.next = &lst.head
	lst.head.prev = &lst.head
}

// isEmpty returns true if the list is empty.
func (lst *nodeList) isEmpty() bool {
	return lst.head.next == &lst.head
}

// insert adds a new TimerNode entry at the head of the list (O(1)).
// n must be detached. There's no internal locking.
func (lst *nodeList) insert(n *TimerNode) {
	if !isDetached(n) {
		PANIC("nodeList insert called on an entry not detached:"+
			" bucket %d n: %p next %p prev %p\n",
			lst.bucketIdx, n, n.next, n.prev)
	}

	n.prev = &lst.head
	n.next = lst.head.next
	n.next.prev = n
	lst.head.next = n

	if idx := n.info.bucket(); idx != bucketNone {
		PANIC("nodeList insert called on an entry already on bucket %d"+
			" (target bucket %d)\n", idx, lst.bucketIdx)
	}
	n.info.setBucket(lst.bucketIdx)
}

// rm removes a TimerNode entry from the list.
func (lst *nodeList) rm(n *TimerNode) {
	if n == nil || n.next == nil || n.prev == nil {
		PANIC("called with nil-detached element %p\n", n)
	}
	if n.next == n || n.prev == n {
		if n == &lst.head {
			PANIC("trying to rm list head %p\n", n)
		}
		PANIC("called with detached element %p: expire %s\n", n, n.expire)
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	// mark n as detached
	n.next = n
	n.prev = n

	if idx := n.info.bucket(); idx != lst.bucketIdx {
		PANIC("nodeList rm called on an entry from a different bucket:"+
			" %d != %d\n", idx, lst.bucketIdx)
	}
	n.info.setBucket(bucketNone)
	n.info.setFlags(fRemoved)
}

// forEachSafeRm iterates the entire list calling f(lst, n) for each
// element, supporting removal of the current element (but not of other
// elements) from f.
func (lst *nodeList) forEachSafeRm(f func(l *nodeList, n *TimerNode) bool) {
	cont := true
	s := lst.head.next
	for v, nxt := s, s.next; v != &lst.head && cont; v, nxt = nxt, nxt.next {
		cont = f(lst, v)
	}
}

// isDetached reports whether n is not part of any list.
func isDetached(n *TimerNode) bool {
	return n.Detached()
}
