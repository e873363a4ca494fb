// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

import (
	"errors"
)

var ErrInvalidWheelSize = errors.New("wheel size must be > 0")
var ErrInvalidTickDuration = errors.New("tick duration must be finite and > 0")
var ErrNotRunning = errors.New("wheel is not running")
var ErrInvalidParameters = errors.New("invalid parameters")
