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
	"github.com/holiman/uint256"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/forkid"
	"github.com/nodalchain/nodalchain/types"
)

// Chain is the external chain-store/execution-engine collaborator this
// package serves GET_BLOCK_HEADERS/GET_BLOCK_BODIES requests from and
// validates STATUS handshakes against. It is supplied by the embedder;
// this package never decides consensus or stores blocks itself.
type Chain interface {
	// GenesisHash is the chain's genesis block hash, checked byte-for-byte
	// against every STATUS handshake.
	GenesisHash() common.Hash

	// NetworkID is the STATUS networkId field this chain serves.
	NetworkID() uint64

	// CurrentHead returns the local head's hash and total difficulty.
	CurrentHead() (hash common.Hash, td *uint256.Int)

	// ForkID returns the EIP-2124 fork identifier advertised in STATUS for
	// protocol versions >= 64.
	ForkID() forkid.ID

	// ForkFilter returns the validator STATUS runs the remote peer's
	// announced ForkID through.
	ForkFilter() forkid.Filter

	// GetHeaders answers GET_BLOCK_HEADERS. origin is either a hash or a
	// number; at most max headers are returned, every skip-th one,
	// walking backward when reverse is true. Running past the local head
	// yields a short (possibly empty) slice, never an error.
	GetHeaders(origin HashOrNumber, max, skip uint64, reverse bool) []*types.Header

	// GetBodies answers GET_BLOCK_BODIES; a missing hash yields a nil
	// entry at that position, not a shortened slice.
	GetBodies(hashes []common.Hash) []*types.Body
}

// ReceiptStore answers GET_RECEIPTS. A block hash with no stored receipts
// (unknown block) yields a nil entry, not an error.
type ReceiptStore interface {
	GetReceipts(hash common.Hash) []*types.Receipt
}

// TxPool answers GET_POOLED_TRANSACTIONS and receives announced
// transactions/hashes from TRANSACTIONS and NEW_POOLED_TX_HASHES.
type TxPool interface {
	GetByHash(hashes []common.Hash) []*types.Transaction
	HandleAnnouncedTxs(txs []*types.Transaction, peer *Peer)
	HandleAnnouncedTxHashes(types []byte, sizes []uint32, hashes []common.Hash, peer *Peer)
}

// Synchronizer consumes block announcements and drives chain sync.
type Synchronizer interface {
	HandleNewBlock(block *types.Block, td *uint256.Int, peer *Peer)
	HandleNewBlockHashes(hashes []common.Hash, numbers []uint64, peer *Peer)
}

// Backend bundles the external collaborators a running eth protocol
// instance dispatches into; it is the single argument MakeProtocols needs
// besides the supported version set.
type Backend struct {
	Chain   Chain
	Receipts ReceiptStore
	TxPool   TxPool
	Sync     Synchronizer
}
