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
	"fmt"

	"github.com/nodalchain/nodalchain/p2p"
)

// Run drives a single negotiated snap session. Unlike eth, there is no
// handshake: the dispatch loop starts reading frames immediately.
func Run(p *p2p.Peer, rw p2p.MsgReadWriter, backend *Backend) error {
	peer := NewPeer(p, rw)
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
	if err := validateCode(msg.Code); err != nil {
		return err
	}
	switch msg.Code {
	case GetAccountRangeMsg:
		var req GetAccountRangePacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		var accounts []*AccountData
		var proof [][]byte
		if backend.State != nil {
			accounts, proof = backend.State.AccountRange(req.Root, req.Origin, req.Limit, req.Bytes)
		}
		return p2p.Send(peer.rw, AccountRangeMsg, &AccountRangePacket{RequestId: req.RequestId, Accounts: accounts, Proof: proof})

	case AccountRangeMsg:
		var resp AccountRangePacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, &resp)
		return nil

	case GetStorageRangesMsg:
		var req GetStorageRangesPacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		var slots [][]*StorageData
		var proof [][]byte
		if backend.State != nil {
			slots, proof = backend.State.StorageRanges(req.Root, req.Accounts, req.Origin, req.Limit, req.Bytes)
		}
		return p2p.Send(peer.rw, StorageRangesMsg, &StorageRangesPacket{RequestId: req.RequestId, Slots: slots, Proof: proof})

	case StorageRangesMsg:
		var resp StorageRangesPacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, &resp)
		return nil

	case GetByteCodesMsg:
		var req GetByteCodesPacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		var codes [][]byte
		if backend.State != nil {
			codes = backend.State.ByteCodes(req.Hashes, req.Bytes)
		}
		return p2p.Send(peer.rw, ByteCodesMsg, &ByteCodesPacket{RequestId: req.RequestId, Codes: codes})

	case ByteCodesMsg:
		var resp ByteCodesPacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, resp.Codes)
		return nil

	case GetTrieNodesMsg:
		var req GetTrieNodesPacket
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		var nodes [][]byte
		if backend.State != nil {
			nodes = backend.State.TrieNodes(req.Root, req.Paths, req.Bytes)
		}
		return p2p.Send(peer.rw, TrieNodesMsg, &TrieNodesPacket{RequestId: req.RequestId, Nodes: nodes})

	case TrieNodesMsg:
		var resp TrieNodesPacket
		if err := msg.Decode(&resp); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		peer.deliver(resp.RequestId, resp.Nodes)
		return nil

	default:
		return fmt.Errorf("%w: %#x", ErrInvalidMsgCode, msg.Code)
	}
}
