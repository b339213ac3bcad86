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
	"math/big"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/rlp"
)

// GetAccountRangePacket requests a contiguous run of accounts from the
// state trie rooted at Root, starting at Origin (inclusive) and not
// exceeding Limit (inclusive), capped at Bytes of response size.
type GetAccountRangePacket struct {
	RequestId uint64
	Root      common.Hash
	Origin    common.Hash
	Limit     common.Hash
	Bytes     uint64
}

// AccountData is one entry of an AccountRangePacket: the account's trie
// key (keccak256 of its address) and its RLP-encoded body, in the "slim"
// form that omits an empty storage root/code hash.
type AccountData struct {
	Hash common.Hash
	Body rlp.RawValue
}

// AccountRangePacket is the response to GetAccountRangePacket: the
// accounts found plus a Merkle proof bracketing the returned range so the
// requester can verify completeness without trusting the responder.
type AccountRangePacket struct {
	RequestId uint64
	Accounts  []*AccountData
	Proof     [][]byte
}

// GetStorageRangesPacket requests storage slot ranges for one or more
// accounts under the same state Root, since neighbouring accounts' slots
// are commonly fetched together during a sync pass.
type GetStorageRangesPacket struct {
	RequestId uint64
	Root      common.Hash
	Accounts  []common.Hash
	Origin    []byte
	Limit     []byte
	Bytes     uint64
}

// StorageData is one storage slot: its trie key and RLP-encoded value.
type StorageData struct {
	Hash common.Hash
	Body []byte
}

// StorageRangesPacket is the response to GetStorageRangesPacket: one
// slot slice per requested account, in the same order, plus a single
// proof covering the last (possibly partial) account's range.
type StorageRangesPacket struct {
	RequestId uint64
	Slots     [][]*StorageData
	Proof     [][]byte
}

// GetByteCodesPacket requests contract bytecode by codehash.
type GetByteCodesPacket struct {
	RequestId uint64
	Hashes    []common.Hash
	Bytes     uint64
}

// ByteCodesPacket is the response to GetByteCodesPacket; a missing
// codehash is simply omitted rather than padded with an empty code, so
// this slice may be shorter than the request.
type ByteCodesPacket struct {
	RequestId uint64
	Codes     [][]byte
}

// TrieNodePathSet is the path-set for one account: index 0 is the
// compact-encoded path into the account trie, and any further elements
// are compact-encoded paths into that account's storage trie.
type TrieNodePathSet [][]byte

// GetTrieNodesPacket requests raw trie nodes by path rather than by hash,
// letting the responder answer from whatever state it currently holds
// without the requester needing to know the node's hash in advance.
type GetTrieNodesPacket struct {
	RequestId uint64
	Root      common.Hash
	Paths     []TrieNodePathSet
	Bytes     uint64
}

// TrieNodesPacket is the response to GetTrieNodesPacket; a path with no
// matching node is simply omitted.
type TrieNodesPacket struct {
	RequestId uint64
	Nodes     [][]byte
}

// Account is the minimal state-trie account body this package round-trips:
// enough fields to distinguish the slim and full RLP encodings without
// depending on a full state/trie library.
type Account struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash
	CodeHash []byte
}
