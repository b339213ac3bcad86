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
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

const timeFormat = "01-02|15:04:05.000"
const floatFormat = 'f'
const termMsgJust = 40

// Format turns a Record into wire bytes for a particular output sink.
type Format interface {
	Format(r *Record) []byte
}

// FormatFunc turns a plain function into a Format.
type FormatFunc func(*Record) []byte

func (f FormatFunc) Format(r *Record) []byte { return f(r) }

var lvlColor = map[Lvl]*color.Color{
	LvlCrit:  color.New(color.FgMagenta, color.Bold),
	LvlError: color.New(color.FgRed),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

// TerminalFormat renders a Record the way a human reads a scrolling log:
// "LVL [timestamp] message          key=value key=value". When useColor is
// true, the level tag is colorized per severity.
func TerminalFormat(useColor bool) Format {
	return FormatFunc(func(r *Record) []byte {
		var b bytes.Buffer

		lvl := r.Lvl.AlignedString()
		if useColor {
			if c, ok := lvlColor[r.Lvl]; ok {
				lvl = c.Sprint(lvl)
			}
		}
		fmt.Fprintf(&b, "%s[%s] %s ", lvl, r.Time.Format(timeFormat), r.Msg)

		// Try to justify the log output for short messages.
		length := b.Len()
		if len(r.Ctx) > 0 && length < termMsgJust {
			b.Write(bytes.Repeat([]byte{' '}, termMsgJust-length))
		}
		logfmtPairs(&b, r.Ctx, useColor)
		b.WriteByte('\n')
		return b.Bytes()
	})
}

// LogfmtFormat renders a Record as plain, uncolored logfmt — the format
// used for non-terminal sinks such as log files.
func LogfmtFormat() Format {
	return FormatFunc(func(r *Record) []byte {
		var b bytes.Buffer
		fmt.Fprintf(&b, "t=%s lvl=%s msg=%s", r.Time.Format(timeFormat), r.Lvl, formatLogfmtValue(r.Msg))
		if len(r.Ctx) > 0 {
			b.WriteByte(' ')
			logfmtPairs(&b, r.Ctx, false)
		}
		b.WriteByte('\n')
		return b.Bytes()
	})
}

func logfmtPairs(b *bytes.Buffer, ctx []interface{}, useColor bool) {
	for i := 0; i < len(ctx); i += 2 {
		if i != 0 {
			b.WriteByte(' ')
		}
		k, ok := ctx[i].(string)
		if !ok {
			k = fmt.Sprint(ctx[i])
		}
		v := formatLogfmtValue(ctx[i+1])
		if useColor {
			fmt.Fprintf(b, "%s=%s", color.New(color.Faint).Sprint(k), v)
		} else {
			fmt.Fprintf(b, "%s=%s", k, v)
		}
	}
}

func formatLogfmtValue(value interface{}) string {
	if value == nil {
		return "nil"
	}
	switch v := value.(type) {
	case time.Time:
		return v.Format(timeFormat)
	case error:
		return quoteIfNeeded(v.Error())
	case fmt.Stringer:
		return quoteIfNeeded(v.String())
	case float32:
		return strconv.FormatFloat(float64(v), floatFormat, 3, 64)
	case float64:
		return strconv.FormatFloat(v, floatFormat, 3, 64)
	case string:
		return quoteIfNeeded(v)
	default:
		return quoteIfNeeded(fmt.Sprintf("%+v", value))
	}
}

func quoteIfNeeded(s string) string {
	if !strings.ContainsAny(s, " \t\n\"=") {
		return s
	}
	return strconv.Quote(s)
}
