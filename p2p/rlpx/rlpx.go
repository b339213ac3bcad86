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

// Package rlpx implements the RLPx transport protocol: an ECIES-encrypted
// handshake establishing per-connection AES-CTR/keccak-MAC secrets,
// followed by a framed message codec. Unlike the pre-2015 wire format,
// RLPx sessions here carry one message per frame (no chunked streaming):
// each call to Write sends exactly one message, and each call to Read
// returns exactly one.
package rlpx

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// Conn is a single RLPx connection. Methods on Conn are not safe for
// concurrent use except where noted.
type Conn struct {
	dialDest *ecdsa.PublicKey
	conn     net.Conn
	session  *sessionState

	snappyEnabled bool
}

// sessionState holds the frame codec (encryption and MAC state) for one
// RLPx session and the locks that serialize its read and write sides.
type sessionState struct {
	rmu, wmu sync.Mutex
	enc      *frameCodec
}

// NewConn wraps fd as a not-yet-handshaken RLPx connection. dialDest is the
// remote static public key when dialing, or nil when accepting.
func NewConn(fd net.Conn, dialDest *ecdsa.PublicKey) *Conn {
	return &Conn{conn: fd, dialDest: dialDest}
}

// SetSnappy enables or disables snappy compression of frame payloads. It
// must only be toggled after the Hello exchange, and only when both peers
// advertised protocol version >= 5.
func (c *Conn) SetSnappy(snappy bool) {
	c.snappyEnabled = snappy
}

// SetDeadline sets the read/write deadline on the underlying connection.
func (c *Conn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

// SetReadDeadline sets the read deadline on the underlying connection.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }

// SetWriteDeadline sets the write deadline on the underlying connection.
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

// Close closes the underlying network connection.
func (c *Conn) Close() error { return c.conn.Close() }

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Handshake runs the RLPx encryption handshake. prv is this node's static
// identity key. It must be called exactly once, before any Read or Write.
func (c *Conn) Handshake(prv *ecdsa.PrivateKey) (*ecdsa.PublicKey, error) {
	var (
		sec secrets
		err error
	)
	if c.dialDest != nil {
		sec, err = initiatorEncHandshake(c.conn, prv, c.dialDest)
	} else {
		sec, err = receiverEncHandshake(c.conn, prv)
	}
	if err != nil {
		return nil, fmt.Errorf("rlpx handshake: %w", err)
	}
	c.session = &sessionState{enc: newFrameCodec(sec)}
	return sec.RemoteID, nil
}

// Read reads a single message from the connection, returning its devp2p
// message code, decompressed payload, and the number of bytes the message
// occupied on the wire (before decompression), used for accounting.
func (c *Conn) Read() (code uint64, data []byte, wireSize int, err error) {
	if c.session == nil {
		return 0, nil, 0, errors.New("rlpx: Read called before Handshake")
	}
	c.session.rmu.Lock()
	defer c.session.rmu.Unlock()

	frame, err := c.session.enc.readFrame(c.conn)
	if err != nil {
		return 0, nil, 0, err
	}
	code, rest, err := splitFrameCode(frame)
	if err != nil {
		return 0, nil, 0, err
	}
	wireSize = len(rest)
	if c.snappyEnabled {
		data, err = snappy.Decode(nil, rest)
		if err != nil {
			return 0, nil, 0, fmt.Errorf("rlpx: snappy decode: %w", err)
		}
	} else {
		data = rest
	}
	return code, data, wireSize, nil
}

// Write sends a single message with the given devp2p code and payload,
// returning the number of bytes written on the wire (after compression).
func (c *Conn) Write(code uint64, data []byte) (uint32, error) {
	if c.session == nil {
		return 0, errors.New("rlpx: Write called before Handshake")
	}
	c.session.wmu.Lock()
	defer c.session.wmu.Unlock()

	if c.snappyEnabled {
		data = snappy.Encode(nil, data)
	}
	frame := joinFrameCode(code, data)
	if err := c.session.enc.writeFrame(c.conn, frame); err != nil {
		return 0, err
	}
	return uint32(len(frame)), nil
}
