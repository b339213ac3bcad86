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

// HexToCompact encodes a hex-nibble trie path (one nibble per byte, an
// optional terminator nibble of 0x10 marking a leaf) into the compact
// two-nibbles-per-byte form GET_TRIE_NODES carries on the wire. Bit 5 of
// the first byte flags a leaf, bit 4 flags an odd nibble
// count, per the standard Merkle-Patricia hex-prefix convention.
func HexToCompact(hex []byte) []byte {
	terminator := byte(0)
	if hasTerm(hex) {
		terminator = 1
		hex = hex[:len(hex)-1]
	}
	buf := make([]byte, len(hex)/2+1)
	buf[0] = terminator << 5
	if len(hex)&1 == 1 {
		buf[0] |= 1 << 4
		buf[0] |= hex[0]
		hex = hex[1:]
	}
	decodeNibbles(hex, buf[1:])
	return buf
}

// CompactToHex reverses HexToCompact, expanding a wire path back into one
// nibble per byte with the leaf terminator appended when the leaf flag is
// set.
func CompactToHex(compact []byte) []byte {
	if len(compact) == 0 {
		return compact
	}
	base := keybytesToHexNoTerm(compact)
	base = base[:len(base)-1]
	if compact[0]&(1<<5) != 0 {
		base = append(base, 0x10)
	}
	if compact[0]&(1<<4) == 0 {
		base = base[2:]
	} else {
		base = base[1:]
	}
	return base
}

func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == 0x10
}

func decodeNibbles(nibbles []byte, bytes []byte) {
	for bi, ni := 0, 0; ni < len(nibbles); bi, ni = bi+1, ni+2 {
		bytes[bi] = nibbles[ni]<<4 | nibbles[ni+1]
	}
}

func keybytesToHexNoTerm(str []byte) []byte {
	l := len(str)*2 + 1
	out := make([]byte, l)
	for i, b := range str {
		out[i*2] = b / 16
		out[i*2+1] = b % 16
	}
	out[l-1] = 0x10
	return out
}
