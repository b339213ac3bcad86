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

package eth

import (
	"fmt"
	"io"

	"github.com/holiman/uint256"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/forkid"
	"github.com/nodalchain/nodalchain/rlp"
	"github.com/nodalchain/nodalchain/types"
)

// StatusPacket is the network packet for the STATUS message, sent exactly
// once by each side immediately after the Hello handshake resolves.
type StatusPacket struct {
	ProtocolVersion uint32
	NetworkID       uint64
	TD              *uint256.Int
	Head            common.Hash
	Genesis         common.Hash
	ForkID          forkid.ID `rlp:"tail"`
}

// HashOrNumber is the GET_BLOCK_HEADERS origin: either a block hash or a
// block number, encoded/decoded as whichever of the two is set (exactly one
// of them always is).
type HashOrNumber struct {
	Hash   common.Hash
	Number uint64
}

func (hn HashOrNumber) EncodeRLP(w io.Writer) error {
	if hn.Hash != (common.Hash{}) {
		if hn.Number != 0 {
			return fmt.Errorf("eth: both origin hash and number set")
		}
		return rlp.Encode(w, hn.Hash)
	}
	return rlp.Encode(w, hn.Number)
}

func (hn *HashOrNumber) DecodeRLP(s *rlp.Stream) error {
	raw, err := s.Raw()
	if err != nil {
		return err
	}
	if len(raw) == 33 && raw[0] == 0xa0 { // 0x80+32, a 32-byte RLP string
		var h common.Hash
		if err := rlp.DecodeBytes(raw, &h); err != nil {
			return err
		}
		hn.Hash, hn.Number = h, 0
		return nil
	}
	var num uint64
	if err := rlp.DecodeBytes(raw, &num); err != nil {
		return fmt.Errorf("eth: invalid origin in GetBlockHeaders: %w", err)
	}
	hn.Hash, hn.Number = common.Hash{}, num
	return nil
}

// GetBlockHeadersRequest is the payload of a GET_BLOCK_HEADERS request.
type GetBlockHeadersRequest struct {
	Origin  HashOrNumber
	Amount  uint64
	Skip    uint64
	Reverse bool
}

// GetBlockHeadersPacket is the eth/66+ wire form, carrying the request ID
// every request/response pair is correlated by.
type GetBlockHeadersPacket struct {
	RequestId uint64
	*GetBlockHeadersRequest
}

// BlockHeadersPacket is the eth/66+ wire form of the BLOCK_HEADERS response.
type BlockHeadersPacket struct {
	RequestId uint64
	Headers   []*types.Header
}

// GetBlockBodiesPacket is the eth/66+ wire form of GET_BLOCK_BODIES: a list
// of block hashes to fetch bodies for.
type GetBlockBodiesPacket struct {
	RequestId uint64
	Hashes    []common.Hash
}

// BlockBodiesPacket is the eth/66+ wire form of the BLOCK_BODIES response.
type BlockBodiesPacket struct {
	RequestId uint64
	Bodies    []*types.Body
}

// NewBlockHashesPacket is the NEW_BLOCK_HASHES announcement: pairs of
// (hash, number) for blocks the sender has but may not have yet
// propagated in full.
type NewBlockHashesPacket []struct {
	Hash   common.Hash
	Number uint64
}

// TransactionsPacket is the TRANSACTIONS announcement: full transaction
// bodies broadcast without solicitation. Blob transactions are excluded;
// they only ever travel in their network-wrapper form via
// PooledTransactionsPacket.
type TransactionsPacket []*types.Transaction

// NewBlockPacket is the NEW_BLOCK announcement.
type NewBlockPacket struct {
	Block *types.Block
	TD    *uint256.Int
}

// NewPooledTransactionHashesPacket65 is the pre-eth/68 NEW_POOLED_TX_HASHES
// format: a flat list of transaction hashes.
type NewPooledTransactionHashesPacket65 []common.Hash

// NewPooledTransactionHashesPacket68 is the eth/68 NEW_POOLED_TX_HASHES
// format: three parallel arrays (type, size, hash) instead of a flat hash
// list, letting the receiver prioritize which pooled transactions to fetch.
type NewPooledTransactionHashesPacket68 struct {
	Types  []byte
	Sizes  []uint32
	Hashes []common.Hash
}

// GetPooledTransactionsRequest is the payload of a
// GET_POOLED_TRANSACTIONS request: the hashes being asked for.
type GetPooledTransactionsRequest []common.Hash

// GetPooledTransactionsPacket is the eth/66+ wire form.
type GetPooledTransactionsPacket struct {
	RequestId uint64
	GetPooledTransactionsRequest
}

// PooledTransactionsPacket is the eth/66+ wire form of the
// POOLED_TRANSACTIONS response.
type PooledTransactionsPacket struct {
	RequestId    uint64
	Transactions []*types.Transaction
}

// GetNodeDataPacket is the eth/63..66 wire form of GET_NODE_DATA: a list of
// trie/state node hashes. Retired after eth/66 in favour of snap.
type GetNodeDataPacket struct {
	RequestId uint64
	Hashes    []common.Hash
}

// NodeDataPacket is the eth/63..66 response to GetNodeDataPacket.
type NodeDataPacket struct {
	RequestId uint64
	Data      [][]byte
}

// GetReceiptsPacket is the eth/66+ wire form of GET_RECEIPTS.
type GetReceiptsPacket struct {
	RequestId uint64
	Hashes    []common.Hash
}

// ReceiptsPacket is the eth/66+ response to GetReceiptsPacket.
type ReceiptsPacket struct {
	RequestId uint64
	Receipts  [][]*types.Receipt
}
