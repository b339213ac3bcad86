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

package p2p

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"io/ioutil"
	"net"
	"time"

	"github.com/nodalchain/nodalchain/p2p/rlpx"
	"github.com/nodalchain/nodalchain/rlp"
)

// transport is the interface implemented by the RLPx wire connection, kept
// distinct from the concrete type so protocol-level code (Peer, Server) can
// be tested against an in-memory substitute such as p2ptest.MsgPipe.
type transport interface {
	// doEncHandshake runs the RLPx ECIES handshake and returns the
	// remote node's static public key.
	doEncHandshake(prv *ecdsa.PrivateKey) (*ecdsa.PublicKey, error)
	// doProtoHandshake runs the devp2p Hello exchange.
	doProtoHandshake(our *protoHandshake) (*protoHandshake, error)
	// close signals the connection to shut down, optionally sending a
	// disconnect reason first.
	close(err error)
	MsgReadWriter
}

// rlpxTransport adapts a single-message-per-call *rlpx.Conn onto the p2p
// package's Msg/MsgReadWriter model: every devp2p message, whether it
// belongs to the base protocol or a negotiated subprotocol, is exactly one
// RLPx frame.
type rlpxTransport struct {
	conn *rlpx.Conn
}

func newRLPX(fd net.Conn, dialDest *ecdsa.PublicKey) transport {
	return &rlpxTransport{conn: rlpx.NewConn(fd, dialDest)}
}

func (t *rlpxTransport) doEncHandshake(prv *ecdsa.PrivateKey) (*ecdsa.PublicKey, error) {
	t.conn.SetDeadline(time.Now().Add(handshakeTimeout))
	return t.conn.Handshake(prv)
}

// doProtoHandshake negotiates the base devp2p protocol (Hello message). The
// protocol handshake is the first authenticated message and also verifies
// that the RLPx encryption handshake worked and the remote side provided
// the right public key.
func (t *rlpxTransport) doProtoHandshake(our *protoHandshake) (their *protoHandshake, err error) {
	t.conn.SetDeadline(time.Now().Add(handshakeTimeout))

	// Writing our handshake happens concurrently, we prefer returning the
	// handshake read error. If the remote side disconnects us early with
	// a valid reason, we should return it as the error so it can be
	// tracked elsewhere.
	werr := make(chan error, 1)
	go func() { werr <- Send(t, handshakeMsg, our) }()
	if their, err = readProtocolHandshake(t, our); err != nil {
		<-werr // make sure the write terminates too
		return nil, err
	}
	if err := <-werr; err != nil {
		return nil, fmt.Errorf("write error: %v", err)
	}
	// Hello itself is never compressed; compression starts with the next
	// message when both sides advertised protocol version 5 or later.
	t.conn.SetSnappy(our.Version >= 5 && their.Version >= 5)
	return their, nil
}

func readProtocolHandshake(rw MsgReader, our *protoHandshake) (*protoHandshake, error) {
	msg, err := rw.ReadMsg()
	if err != nil {
		return nil, err
	}
	if msg.Size > baseProtocolMaxMsgSize {
		return nil, fmt.Errorf("message too big")
	}
	if msg.Code == discMsg {
		// Disconnect before protocol handshake is valid according to the
		// wire format and we send it ourselves if the post-handshake
		// checks fail. We can't return the reason directly, though,
		// because it would be echoed back otherwise.
		var reason [1]DiscReason
		rlp.Decode(msg.Payload, &reason)
		return nil, reason[0]
	}
	if msg.Code != handshakeMsg {
		return nil, fmt.Errorf("expected handshake, got %x", msg.Code)
	}
	var hs protoHandshake
	if err := msg.Decode(&hs); err != nil {
		return nil, err
	}
	if hs.Version != our.Version {
		return nil, DiscIncompatibleVersion
	}
	if (hs.ID == NodeID{}) {
		return nil, DiscInvalidIdentity
	}
	return &hs, nil
}

func (t *rlpxTransport) close(err error) {
	// Tell the remote end why we're disconnecting if possible.
	if r, ok := err.(DiscReason); ok && r != DiscNetworkError {
		t.conn.SetWriteDeadline(time.Now().Add(discWriteTimeout))
		SendItems(t, discMsg, r)
	}
	t.conn.Close()
}

func (t *rlpxTransport) ReadMsg() (Msg, error) {
	code, data, _, err := t.conn.Read()
	if err != nil {
		return Msg{}, err
	}
	if uint32(len(data)) > baseProtocolMaxMsgSize && code < baseProtocolLength {
		return Msg{}, fmt.Errorf("message too big")
	}
	return Msg{
		Code:       code,
		Size:       uint32(len(data)),
		Payload:    bytes.NewReader(data),
		ReceivedAt: time.Now(),
	}, nil
}

func (t *rlpxTransport) WriteMsg(msg Msg) error {
	payload, err := ioutil.ReadAll(msg.Payload)
	if err != nil {
		return err
	}
	_, err = t.conn.Write(msg.Code, payload)
	return err
}

const (
	handshakeTimeout = 8 * time.Second
	discWriteTimeout = 1 * time.Second
)
