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

// Package eth implements the ETH wire subprotocol: the STATUS handshake,
// block/transaction/receipt announcement and request/response messages, and
// serving stubs that answer incoming requests from external chain, receipt
// and transaction-pool collaborators.
package eth

import "fmt"

// ProtocolName is the official short name of the protocol used during
// devp2p capability negotiation.
const ProtocolName = "eth"

// ProtocolVersions are the supported versions of the eth protocol, in
// descending order so capability negotiation prefers the newest.
var ProtocolVersions = []uint{ETH68, ETH67, ETH66, ETH65, ETH64, ETH63, ETH62}

const (
	ETH62 = 62
	ETH63 = 63
	ETH64 = 64
	ETH65 = 65
	ETH66 = 66
	ETH67 = 67
	ETH68 = 68
)

// protocolLengths is the number of message codes reserved for each version:
// eth/62 never grew past GET_RECEIPTS/RECEIPTS-less traffic so it reserves
// only 8 codes; every version from eth/63 onward reserves 17 to leave room
// for GET_NODE_DATA/NODE_DATA/GET_RECEIPTS/RECEIPTS plus the pooled
// transaction codes added in eth/65.
var protocolLengths = map[uint]uint64{ETH62: 8, ETH63: 17, ETH64: 17, ETH65: 17, ETH66: 17, ETH67: 17, ETH68: 17}

// Message codes, relative to the capability's base offset.
const (
	StatusMsg                     = 0x00
	NewBlockHashesMsg              = 0x01
	TransactionsMsg                = 0x02
	GetBlockHeadersMsg             = 0x03
	BlockHeadersMsg                = 0x04
	GetBlockBodiesMsg              = 0x05
	BlockBodiesMsg                 = 0x06
	NewBlockMsg                    = 0x07
	NewPooledTransactionHashesMsg  = 0x08
	GetPooledTransactionsMsg       = 0x09
	PooledTransactionsMsg          = 0x0a
	GetNodeDataMsg                 = 0x0d
	NodeDataMsg                    = 0x0e
	GetReceiptsMsg                 = 0x0f
	ReceiptsMsg                    = 0x10
)

// minVersion gives the lowest eth protocol version each message code is
// valid on, matching the exact table the spec derives its wire format from.
var minVersion = map[uint64]uint{
	StatusMsg:                    ETH62,
	NewBlockHashesMsg:            ETH62,
	TransactionsMsg:              ETH62,
	GetBlockHeadersMsg:           ETH62,
	BlockHeadersMsg:              ETH62,
	GetBlockBodiesMsg:            ETH62,
	BlockBodiesMsg:               ETH62,
	NewBlockMsg:                  ETH62,
	NewPooledTransactionHashesMsg: ETH65,
	GetPooledTransactionsMsg:     ETH65,
	PooledTransactionsMsg:        ETH65,
	GetNodeDataMsg:               ETH63,
	NodeDataMsg:                  ETH63,
	GetReceiptsMsg:               ETH63,
	ReceiptsMsg:                  ETH63,
}

// maxVersion gives the highest eth protocol version each message code is
// still valid on; GET_NODE_DATA/NODE_DATA were retired after eth/66 when
// state sync moved entirely onto the snap protocol.
var maxVersion = map[uint64]uint{
	GetNodeDataMsg: ETH66,
	NodeDataMsg:    ETH66,
}

// validateCode reports whether code is a legal message on the given
// negotiated eth version.
func validateCode(version uint, code uint64) error {
	min, known := minVersion[code]
	if !known {
		return fmt.Errorf("%w: code %#x", errInvalidMsgCode, code)
	}
	if version < min {
		return fmt.Errorf("%w: code %#x requires eth/%d, have eth/%d", errInvalidMsgCode, code, min, version)
	}
	if max, capped := maxVersion[code]; capped && version > max {
		return fmt.Errorf("%w: code %#x retired after eth/%d, have eth/%d", errInvalidMsgCode, code, max, version)
	}
	return nil
}

// Err is the distinct-kind error taxonomy used by the eth subprotocol,
// mirroring the DiscReason pattern the base protocol uses: a small closed
// set of sentinel values tested with errors.Is rather than string matching.
type Err int

const (
	ErrMsgTooLarge Err = iota
	ErrDecode
	ErrInvalidMsgCode
	ErrProtocolVersionMismatch
	ErrNetworkIDMismatch
	ErrGenesisMismatch
	ErrForkIDMismatch
	ErrNoStatusMsg
	ErrStatusAlreadyReceived
	ErrRequestTimeout
	ErrSessionClosed
)

func (e Err) Error() string {
	switch e {
	case ErrMsgTooLarge:
		return "message too large"
	case ErrDecode:
		return "invalid message"
	case ErrInvalidMsgCode:
		return "invalid message code"
	case ErrProtocolVersionMismatch:
		return "protocol version mismatch"
	case ErrNetworkIDMismatch:
		return "network ID mismatch"
	case ErrGenesisMismatch:
		return "genesis block mismatch"
	case ErrForkIDMismatch:
		return "fork ID mismatch"
	case ErrNoStatusMsg:
		return "no status message"
	case ErrStatusAlreadyReceived:
		return "extra status message"
	case ErrRequestTimeout:
		return "request timed out"
	case ErrSessionClosed:
		return "session closed"
	default:
		return "unknown error"
	}
}

var errInvalidMsgCode = ErrInvalidMsgCode
