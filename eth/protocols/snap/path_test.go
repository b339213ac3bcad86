// Copyright 2015 The go-ethereum Authors
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

package snap

import (
	"bytes"
	"testing"
)

func TestHexToCompactRoundTrip(t *testing.T) {
	tests := [][]byte{
		{1, 2, 3, 4, 5, 0x10}, // odd length, leaf
		{1, 2, 3, 4, 0x10},    // even length, leaf
		{1, 2, 3, 4},          // even length, no leaf
		{1, 2, 3},             // odd length, no leaf
		{0x10},                // empty path, leaf
	}
	for _, hex := range tests {
		compact := HexToCompact(hex)
		got := CompactToHex(compact)
		if !bytes.Equal(got, hex) {
			t.Fatalf("round trip mismatch: hex=%x compact=%x got=%x", hex, compact, got)
		}
	}
}

func TestHexToCompactKnownVectors(t *testing.T) {
	cases := []struct {
		hex     []byte
		compact []byte
	}{
		{[]byte{1, 2, 3, 4, 5, 0x10}, []byte{0x31, 0x23, 0x45}},
		{[]byte{1, 2, 3, 4}, []byte{0x00, 0x12, 0x34}},
	}
	for _, c := range cases {
		if got := HexToCompact(c.hex); !bytes.Equal(got, c.compact) {
			t.Fatalf("HexToCompact(%x) = %x, want %x", c.hex, got, c.compact)
		}
	}
}
