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
	"time"

	"github.com/holiman/uint256"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/p2p"
)

// statusTimeout bounds how long the STATUS exchange may take; it mirrors
// the base protocol's own handshake budget.
const statusTimeout = 8 * time.Second

// Handshake runs the STATUS exchange over rw: both sides send their own
// StatusPacket concurrently and each validates the other's, exactly like
// the base protocol's Hello exchange this package is layered on top of.
// The returned head hash/TD become the peer's initial announced head.
func Handshake(rw p2p.MsgReadWriter, version uint, chain Chain) (headHash common.Hash, headTD *uint256.Int, err error) {
	headHash, headTD = chain.CurrentHead()

	ours := &StatusPacket{
		ProtocolVersion: uint32(version),
		NetworkID:       chain.NetworkID(),
		TD:              headTD,
		Head:            headHash,
		Genesis:         chain.GenesisHash(),
	}
	if version >= 64 {
		ours.ForkID = chain.ForkID()
	}

	errc := make(chan error, 2)
	var theirs StatusPacket
	go func() { errc <- p2p.Send(rw, StatusMsg, ours) }()
	go func() { errc <- readStatus(rw, version, chain, &theirs) }()

	timeout := time.NewTimer(statusTimeout)
	defer timeout.Stop()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errc:
			if err != nil {
				return common.Hash{}, nil, err
			}
		case <-timeout.C:
			return common.Hash{}, nil, fmt.Errorf("%w: status handshake", ErrNoStatusMsg)
		}
	}
	return theirs.Head, theirs.TD, nil
}

// readStatus reads the peer's STATUS message, rejecting any other code
// arriving before it, and validates protocol version, network ID, genesis
// hash and (where applicable) fork ID against chain.
func readStatus(rw p2p.MsgReadWriter, version uint, chain Chain, status *StatusPacket) error {
	msg, err := rw.ReadMsg()
	if err != nil {
		return err
	}
	if msg.Code != StatusMsg {
		return fmt.Errorf("%w: code %#x before status", ErrNoStatusMsg, msg.Code)
	}
	if err := msg.Decode(status); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if status.NetworkID != chain.NetworkID() {
		return fmt.Errorf("%w: %d (want %d)", ErrNetworkIDMismatch, status.NetworkID, chain.NetworkID())
	}
	if status.Genesis != chain.GenesisHash() {
		return fmt.Errorf("%w: %x (want %x)", ErrGenesisMismatch, status.Genesis, chain.GenesisHash())
	}
	if uint(status.ProtocolVersion) != version {
		return fmt.Errorf("%w: %d (want %d)", ErrProtocolVersionMismatch, status.ProtocolVersion, version)
	}
	if version >= 64 {
		if filter := chain.ForkFilter(); filter != nil {
			if err := filter(status.ForkID); err != nil {
				return fmt.Errorf("%w: %v", ErrForkIDMismatch, err)
			}
		}
	}
	return nil
}
