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

// Package snap implements the SNAP subprotocol: a pure request/response
// protocol for synchronizing account, storage, bytecode and trie-node
// state ranges, with no STATUS handshake of its own.
package snap

// ProtocolName is the official short name used during capability
// negotiation.
const ProtocolName = "snap"

// ProtocolVersions are the supported snap protocol versions.
var ProtocolVersions = []uint{SNAP1}

const SNAP1 = 1

// protocolLength is the number of message codes reserved for snap/1.
const protocolLength = 8

// Message codes, relative to the capability's base offset.
const (
	GetAccountRangeMsg  = 0x00
	AccountRangeMsg     = 0x01
	GetStorageRangesMsg = 0x02
	StorageRangesMsg    = 0x03
	GetByteCodesMsg     = 0x04
	ByteCodesMsg        = 0x05
	GetTrieNodesMsg     = 0x06
	TrieNodesMsg        = 0x07
)

func validateCode(code uint64) error {
	if code > TrieNodesMsg {
		return errInvalidMsgCode
	}
	return nil
}

// Err is the distinct-kind error taxonomy for this subprotocol.
type Err int

const (
	ErrDecode Err = iota
	ErrInvalidMsgCode
	ErrRequestTimeout
	ErrSessionClosed
)

func (e Err) Error() string {
	switch e {
	case ErrDecode:
		return "invalid message"
	case ErrInvalidMsgCode:
		return "invalid message code"
	case ErrRequestTimeout:
		return "request timed out"
	case ErrSessionClosed:
		return "session closed"
	default:
		return "unknown error"
	}
}

var errInvalidMsgCode = ErrInvalidMsgCode
