// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

import (
	"github.com/zoobzio/clockz"
)

// Clock is re-exported so callers can inject a fake clock (clockz.NewFakeClock)
// in tests without importing clockz directly, the same WithClock/getClock
// pattern used throughout the rest of the pack's connectors.
type Clock = clockz.Clock

func defaultClock() Clock {
	return clockz.RealClock
}
