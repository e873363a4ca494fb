// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package wtimer

import (
	"github.com/intuitivelabs/slog"
)

// Log is the package's logger. Callers may reconfigure its level (e.g. to
// slog.LDBG during development) or replace its output; by default it logs
// at notice level and above.
var Log = slog.Log{
	Level:  slog.LNOTICE,
	Prefix: "wtimer: ",
}

func DBGon() bool  { return Log.DBGon() }
func WARNon() bool { return Log.WARNon() }
func ERRon() bool  { return Log.ERRon() }

func DBG(f string, a ...interface{}) { Log.DBG(f, a...) }
func WARN(f string, a ...interface{}) {
	Log.WARN(f, a...)
}
func ERR(f string, a ...interface{}) { Log.ERR(f, a...) }

// BUG logs an internal invariant violation that was nevertheless handled
// safely. It never panics.
func BUG(f string, a ...interface{}) { Log.BUG(f, a...) }

// PANIC logs an unrecoverable invariant violation and panics. Used only for
// conditions that indicate list/bucket corruption.
func PANIC(f string, a ...interface{}) {
	Log.PANIC(f, a...)
}
