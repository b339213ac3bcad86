// Copyright 2014 The go-ethereum Authors
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
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/nodalchain/nodalchain/rlp"
)

// devp2p base protocol message codes, always occupying the first slots of
// protocol offset 0 regardless of which subprotocols are negotiated.
const (
	handshakeMsg = 0x00
	discMsg      = 0x01
	pingMsg      = 0x02
	pongMsg      = 0x03
)

// baseProtocolMaxMsgSize bounds the size of Hello/Disconnect/Ping/Pong
// messages; subprotocols set their own limits.
const baseProtocolMaxMsgSize = 2 * 1024

// Msg defines the structure of a devp2p message. Note that a Msg can only
// be sent once since the Payload reader is consumed during sending. It is
// also not safe to create a Msg and send it multiple times.
type Msg struct {
	Code       uint64
	Size       uint32 // size of the paylod
	Payload    io.Reader
	ReceivedAt time.Time
}

// Decode parses the RLP content of a message into val, which must be a
// pointer. It calls rlp.Decode and is suitable for all decoding operations.
func (msg Msg) Decode(val interface{}) error {
	s := rlp.NewStream(msg.Payload, uint64(msg.Size))
	if err := s.Decode(val); err != nil {
		return fmt.Errorf("devp2p: %w (size %d, code %x)", err, msg.Size, msg.Code)
	}
	return nil
}

func (msg Msg) String() string {
	return fmt.Sprintf("msg #%d (%d bytes)", msg.Code, msg.Size)
}

// Discard reads any remaining payload data into a black hole.
func (msg Msg) Discard() error {
	_, err := io.Copy(ioutil.Discard, msg.Payload)
	return err
}

// MsgReader reads devp2p messages.
type MsgReader interface {
	ReadMsg() (Msg, error)
}

// MsgWriter writes devp2p messages. WriteMsg must be safe to call from
// multiple goroutines concurrently; it is up to the implementation to
// ensure that messages don't interleave.
type MsgWriter interface {
	// WriteMsg sends a message. It will block until the message's
	// Payload has been consumed by the other end.
	//
	// Note that messages can be sent only once because their
	// payload reader is drained.
	WriteMsg(Msg) error
}

// MsgReadWriter provides reading and writing of encoded messages. Implementations
// should ensure that ReadMsg and WriteMsg can be called concurrently with each other.
type MsgReadWriter interface {
	MsgReader
	MsgWriter
}

// Send writes an RLP-encoded message with the given code.
func Send(w MsgWriter, msgcode uint64, data interface{}) error {
	size, r, err := rlp.EncodeToReader(data)
	if err != nil {
		return err
	}
	return w.WriteMsg(Msg{Code: msgcode, Size: uint32(size), Payload: r})
}

// SendItems writes an RLP with the given code and data elements. For a call
// such as:
//
//	SendItems(w, code, e1, e2, e3)
//
// the message payload will be an RLP list containing the items:
//
//	[e1, e2, e3]
func SendItems(w MsgWriter, msgcode uint64, elems ...interface{}) error {
	return Send(w, msgcode, elems)
}

// eofSignal wraps a reader with eof signaling. the eof channel is
// closed when the wrapped reader returns an error or when count bytes
// have been read.
type eofSignal struct {
	wrapped io.Reader
	count   uint32 // number of bytes left
	eof     chan<- struct{}
}

func (r *eofSignal) Read(buf []byte) (int, error) {
	if r.count == 0 {
		if r.eof != nil {
			r.eof <- struct{}{}
			r.eof = nil
		}
		return 0, io.EOF
	}
	max := len(buf)
	if int(r.count) < len(buf) {
		max = int(r.count)
	}
	n, err := r.wrapped.Read(buf[:max])
	r.count -= uint32(n)
	if (err != nil || r.count == 0) && r.eof != nil {
		r.eof <- struct{}{}
		r.eof = nil
	}
	return n, err
}

// ExpectMsg reads a message from r and verifies that its content matches
// the provided value. Used by protocol tests.
func ExpectMsg(r MsgReader, code uint64, content interface{}) error {
	msg, err := r.ReadMsg()
	if err != nil {
		return err
	}
	if msg.Code != code {
		return fmt.Errorf("message code mismatch: got %d, expected %d", msg.Code, code)
	}
	if content == nil {
		return msg.Discard()
	}
	contentEnc, err := rlp.EncodeToBytes(content)
	if err != nil {
		panic("content encode error: " + err.Error())
	}
	if int(msg.Size) != len(contentEnc) {
		return fmt.Errorf("message size mismatch: got %d, want %d", msg.Size, len(contentEnc))
	}
	actualContent, err := ioutil.ReadAll(msg.Payload)
	if err != nil {
		return err
	}
	if !bytes.Equal(actualContent, contentEnc) {
		return fmt.Errorf("message payload mismatch:\ngot:  %x\nwant: %x", actualContent, contentEnc)
	}
	return nil
}

var errClosed = errors.New("p2p: remote disconnected")

// msgEventer wraps a MsgReadWriter and sends events whenever a message is
// sent or received through the wrapped connection; used by the Peer to
// publish frame-level events on the event bus.
type msgEventer struct {
	MsgReadWriter

	feed     msgEventFeed
	peerID   string
	protocol string
}

// msgEventFeed is the minimal interface the Peer's base-protocol event
// reporting needs from the module's event bus, implemented by
// *Feed (see feed.go) in production and by a no-op in tests.
type msgEventFeed interface {
	SendMsgEvent(MsgEvent)
}

// MsgEvent is reported on the event bus for every message sent or
// received on a peer connection.
type MsgEvent struct {
	PeerID   string
	Protocol string
	Code     uint64
	Size     uint32
	Received bool
	RemoteAddress string
}

func newMsgEventer(rw MsgReadWriter, feed msgEventFeed, peerID, protocol, remoteAddr string) *msgEventer {
	return &msgEventer{MsgReadWriter: rw, feed: feed, peerID: peerID, protocol: protocol}
}

func (self *msgEventer) ReadMsg() (Msg, error) {
	msg, err := self.MsgReadWriter.ReadMsg()
	if err != nil {
		return msg, err
	}
	if self.feed != nil {
		self.feed.SendMsgEvent(MsgEvent{
			PeerID:   self.peerID,
			Protocol: self.protocol,
			Code:     msg.Code,
			Size:     msg.Size,
			Received: true,
		})
	}
	return msg, nil
}

func (self *msgEventer) WriteMsg(msg Msg) error {
	err := self.MsgReadWriter.WriteMsg(msg)
	if err != nil {
		return err
	}
	if self.feed != nil {
		self.feed.SendMsgEvent(MsgEvent{
			PeerID:   self.peerID,
			Protocol: self.protocol,
			Code:     msg.Code,
			Size:     msg.Size,
			Received: false,
		})
	}
	return nil
}
