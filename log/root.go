// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package log

import "os"

var root = &logger{ctx: nil, h: new(swapHandler)}

func init() {
	root.h.Swap(NewTerminalHandler(os.Stderr, LvlInfo))
}

// Root returns the root logger.
func Root() Logger { return root }

// SetDefault replaces the root logger's handler, redirecting output from
// every Logger derived from it (including the package-level Trace/Debug/...
// functions).
func SetDefault(h Handler) { root.h.Swap(h) }

// SetLevel replaces the root logger's handler with a terminal handler that
// writes to wr and drops records above lvl; a handler installed earlier
// with SetDefault is discarded.
func SetLevel(lvl Lvl, wr *os.File) { root.h.Swap(NewTerminalHandler(wr, lvl)) }

func Trace(msg string, ctx ...interface{}) { root.write(msg, LvlTrace, ctx) }
func Debug(msg string, ctx ...interface{}) { root.write(msg, LvlDebug, ctx) }
func Info(msg string, ctx ...interface{})  { root.write(msg, LvlInfo, ctx) }
func Warn(msg string, ctx ...interface{})  { root.write(msg, LvlWarn, ctx) }
func Error(msg string, ctx ...interface{}) { root.write(msg, LvlError, ctx) }
func Crit(msg string, ctx ...interface{}) {
	root.write(msg, LvlCrit, ctx)
	os.Exit(1)
}
