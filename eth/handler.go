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

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/p2p"
	"github.com/nodalchain/nodalchain/rlp"
	"github.com/nodalchain/nodalchain/types"
)

const (
	maxHeadersServed = 1024
	softResponseCap  = 2 * 1024 * 1024
)

// Run drives a single negotiated eth session: it performs the STATUS
// handshake and then loops reading and dispatching frames until the
// connection ends, exactly the shape p2p.Protocol.Run expects.
func Run(version uint, p *p2p.Peer, rw p2p.MsgReadWriter, backend *Backend) error {
	headHash, headTD, err := Handshake(rw, version, backend.Chain)
	if err != nil {
		return err
	}
	peer := NewPeer(version, p, rw)
	peer.SetHead(headHash, headTD)
	defer peer.close()

	for {
		msg, err := rw.ReadMsg()
		if err != nil {
			return err
		}
		if err := handleMessage(peer, backend, msg); err != nil {
			return err
		}
		msg.Discard()
	}
}

func handleMessage(peer *Peer, backend *Backend, msg p2p.Msg) error {
	if err := validateCode(peer.version, msg.Code); err != nil {
		return err
	}
	switch msg.Code {
	case StatusMsg:
		return ErrStatusAlreadyReceived

	case NewBlockHashesMsg:
		var ann NewBlockHashesPacket
		if err := msg.Decode(&ann); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		hashes := make([]common.Hash, len(ann))
		numbers := make([]uint64, len(ann))
		for i, a := range ann {
			peer.MarkBlock(a.Hash)
			hashes[i], numbers[i] = a.Hash, a.Number
		}
		if backend.Sync != nil {
			backend.Sync.HandleNewBlockHashes(hashes, numbers, peer)
		}
		return nil

	case TransactionsMsg:
		var txs TransactionsPacket
		if err := msg.Decode(&txs); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		for _, tx := range txs {
			peer.MarkTransaction(tx.Hash())
		}
		if backend.TxPool != nil {
			backend.TxPool.HandleAnnouncedTxs(txs, peer)
		}
		return nil

	case GetBlockHeadersMsg:
		var req GetBlockHeadersPacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		amount := req.Amount
		if amount > maxHeadersServed {
			amount = maxHeadersServed
		}
		var headers []*types.Header
		if backend.Chain != nil {
			headers = backend.Chain.GetHeaders(req.Origin, amount, req.Skip, req.Reverse)
		}
		return p2p.Send(peer.rw, BlockHeadersMsg, &BlockHeadersPacket{RequestId: req.RequestId, Headers: headers})

	case BlockHeadersMsg:
		var resp BlockHeadersPacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, resp.Headers)
		return nil

	case GetBlockBodiesMsg:
		var req GetBlockBodiesPacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		var bodies []*types.Body
		if backend.Chain != nil {
			bodies = capBySize(backend.Chain.GetBodies(req.Hashes), softResponseCap)
		}
		return p2p.Send(peer.rw, BlockBodiesMsg, &BlockBodiesPacket{RequestId: req.RequestId, Bodies: bodies})

	case BlockBodiesMsg:
		var resp BlockBodiesPacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, resp.Bodies)
		return nil

	case NewBlockMsg:
		var ann NewBlockPacket
		if err := msg.Decode(&ann); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if ann.Block != nil {
			peer.MarkBlock(ann.Block.Hash())
			peer.SetHead(ann.Block.Hash(), ann.TD)
		}
		if backend.Sync != nil {
			backend.Sync.HandleNewBlock(ann.Block, ann.TD, peer)
		}
		return nil

	case NewPooledTransactionHashesMsg:
		if peer.version >= ETH68 {
			var ann NewPooledTransactionHashesPacket68
			if err := msg.Decode(&ann); err != nil {
				return fmt.Errorf("%w: %v", ErrDecode, err)
			}
			if len(ann.Types) != len(ann.Hashes) || len(ann.Sizes) != len(ann.Hashes) {
				return fmt.Errorf("%w: mismatched pooled-tx-hash arrays", ErrDecode)
			}
			for _, h := range ann.Hashes {
				peer.MarkTransaction(h)
			}
			if backend.TxPool != nil {
				backend.TxPool.HandleAnnouncedTxHashes(ann.Types, ann.Sizes, ann.Hashes, peer)
			}
		} else {
			var ann NewPooledTransactionHashesPacket65
			if err := msg.Decode(&ann); err != nil {
				return fmt.Errorf("%w: %v", ErrDecode, err)
			}
			for _, h := range ann {
				peer.MarkTransaction(h)
			}
			if backend.TxPool != nil {
				backend.TxPool.HandleAnnouncedTxHashes(nil, nil, ann, peer)
			}
		}
		return nil

	case GetPooledTransactionsMsg:
		var req GetPooledTransactionsPacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		var txs []*types.Transaction
		if backend.TxPool != nil {
			txs = backend.TxPool.GetByHash(req.GetPooledTransactionsRequest)
		}
		return p2p.Send(peer.rw, PooledTransactionsMsg, &PooledTransactionsPacket{RequestId: req.RequestId, Transactions: txs})

	case PooledTransactionsMsg:
		var resp PooledTransactionsPacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, resp.Transactions)
		return nil

	case GetNodeDataMsg:
		var req GetNodeDataPacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return p2p.Send(peer.rw, NodeDataMsg, &NodeDataPacket{RequestId: req.RequestId, Data: [][]byte{}})

	case NodeDataMsg:
		var resp NodeDataPacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, resp.Data)
		return nil

	case GetReceiptsMsg:
		var req GetReceiptsPacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		var receipts [][]*types.Receipt
		if backend.Receipts != nil {
			size := 0
			for _, hash := range req.Hashes {
				if size >= softResponseCap {
					break
				}
				rs := backend.Receipts.GetReceipts(hash)
				receipts = append(receipts, rs)
				if enc, err := rlp.EncodeToBytes(rs); err == nil {
					size += len(enc)
				}
			}
		}
		return p2p.Send(peer.rw, ReceiptsMsg, &ReceiptsPacket{RequestId: req.RequestId, Receipts: receipts})

	case ReceiptsMsg:
		var resp ReceiptsPacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, resp.Receipts)
		return nil

	default:
		return fmt.Errorf("%w: %#x", ErrInvalidMsgCode, msg.Code)
	}
}

// capBySize truncates bodies right after the body whose accumulated RLP size
// reaches or passes the soft response cap; that body is still included.
func capBySize(bodies []*types.Body, limit int) []*types.Body {
	size := 0
	for i, b := range bodies {
		enc, err := rlp.EncodeToBytes(b)
		if err != nil {
			continue
		}
		size += len(enc)
		if size >= limit {
			return bodies[:i+1]
		}
	}
	return bodies
}
