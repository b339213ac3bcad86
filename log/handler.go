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

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Handler dispatches Records to their destination; terminal, file, discard,
// or any combination thereof.
type Handler interface {
	Log(r *Record) error
}

// FuncHandler turns a plain function into a Handler.
type FuncHandler func(r *Record) error

func (h FuncHandler) Log(r *Record) error { return h(r) }

// StreamHandler writes log records to wr, formatted with fmtr. Writes are
// serialized with a mutex since wr is typically shared (stdout/stderr).
func StreamHandler(wr io.Writer, fmtr Format) Handler {
	h := FuncHandler(func(r *Record) error {
		_, err := wr.Write(fmtr.Format(r))
		return err
	})
	return syncHandler(h, wr)
}

// syncHandler wraps h with a mutex when wr might be written to
// concurrently by other handlers sharing the same writer.
func syncHandler(h Handler, wr io.Writer) Handler {
	var mu sync.Mutex
	return FuncHandler(func(r *Record) error {
		mu.Lock()
		defer mu.Unlock()
		return h.Log(r)
	})
}

// LvlFilterHandler drops records above the given level before passing the
// rest through to h.
func LvlFilterHandler(maxLvl Lvl, h Handler) Handler {
	return FuncHandler(func(r *Record) error {
		if r.Lvl > maxLvl {
			return nil
		}
		return h.Log(r)
	})
}

// MultiHandler dispatches every record to each of the given handlers in
// turn, continuing past individual handler errors.
func MultiHandler(hs ...Handler) Handler {
	return FuncHandler(func(r *Record) error {
		for _, h := range hs {
			_ = h.Log(r)
		}
		return nil
	})
}

// DiscardHandler discards every record; useful as the default handler in
// tests and library code that has not opted into logging.
func DiscardHandler() Handler {
	return FuncHandler(func(r *Record) error { return nil })
}

// swapHandler wraps a Handler behind an atomic pointer so the root logger's
// output can be reconfigured at runtime (SetDefault/SetLevel) without
// requiring every in-flight logger to be recreated.
type swapHandler struct {
	handler atomic.Value
}

func (h *swapHandler) Log(r *Record) error {
	return h.get().Log(r)
}

func (h *swapHandler) get() Handler {
	return h.handler.Load().(Handler)
}

func (h *swapHandler) Swap(newHandler Handler) {
	h.handler.Store(newHandler)
}

// NewTerminalHandler builds the handler used by the root logger by default:
// a level-filtered, optionally colorized terminal writer. Color is enabled
// automatically when wr is a real terminal.
func NewTerminalHandler(wr io.Writer, lvl Lvl) Handler {
	useColor := false
	if f, ok := wr.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		if useColor {
			wr = colorable.NewColorable(f)
		}
	}
	return LvlFilterHandler(lvl, StreamHandler(wr, TerminalFormat(useColor)))
}
