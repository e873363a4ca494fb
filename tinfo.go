// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

import (
	"fmt"
	"sync/atomic"
)

// tInfo encodes a node's current flags and the bucket it is linked into
// (if any). It is accessed atomically via CAS loops, same style as the
// teacher's tInfo, but simplified to a single wheel level: there is no
// wheel-number field, only a bucket index.
//
// Internal encoding format:
//   31      24        16                0
//   | flags | reserved |   bucketIndex   |
//
type tInfo struct {
	atomicV uint32
}

const (
	bIdxMask   = 65535
	flgsBpos   = 24
	bucketNone = uint16(65535) // sentinel: not linked into any bucket
)

func (t *tInfo) setFlags(mask uint8) {
	f := uint32(mask) << flgsBpos
	for {
		crt := atomic.LoadUint32(&t.atomicV)
		if atomic.CompareAndSwapUint32(&t.atomicV, crt, crt|f) {
			break
		}
	}
}

func (t *tInfo) setBucket(idx uint16) {
	v := uint32(idx)
	resetM := uint32(bIdxMask)
	for {
		crt := atomic.LoadUint32(&t.atomicV)
		if atomic.CompareAndSwapUint32(&t.atomicV, crt, (crt & ^resetM)|v) {
			break
		}
	}
}

func (t *tInfo) flags() uint8 {
	f, _ := t.getAll()
	return f
}

// bucket returns the bucket index the node is currently linked into, or
// bucketNone if detached.
func (t *tInfo) bucket() uint16 {
	_, idx := t.getAll()
	return idx
}

// getAll atomically returns flags and bucket index.
func (t *tInfo) getAll() (uint8, uint16) {
	crt := atomic.LoadUint32(&t.atomicV)
	f := crt >> flgsBpos
	idx := crt & bIdxMask
	return uint8(f), uint16(idx)
}

// String converts a tInfo value to a string, useful for debugging.
func (t tInfo) String() string {
	f, idx := t.getAll()
	return fmt.Sprintf("%02x:%d", f, idx)
}
