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
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/nodalchain/nodalchain/crypto"
	"github.com/nodalchain/nodalchain/log"
	"github.com/nodalchain/nodalchain/rlp"
)

// NodeID is the 64-byte uncompressed secp256k1 public key (without the
// 0x04 format byte) that identifies a node, matching the identity scheme
// of the RLPx handshake.
type NodeID [64]byte

func (n NodeID) String() string { return hex.EncodeToString(n[:]) }

func (n NodeID) TerminalString() string {
	return hex.EncodeToString(n[:8])
}

// Cap is a peer capability, identifying one version of a subprotocol.
type Cap struct {
	Name    string
	Version uint
}

func (cap Cap) String() string {
	return fmt.Sprintf("%s/%d", cap.Name, cap.Version)
}

type capsByNameAndVersion []Cap

func (cs capsByNameAndVersion) Len() int      { return len(cs) }
func (cs capsByNameAndVersion) Swap(i, j int) { cs[i], cs[j] = cs[j], cs[i] }
func (cs capsByNameAndVersion) Less(i, j int) bool {
	return cs[i].Name < cs[j].Name || (cs[i].Name == cs[j].Name && cs[i].Version < cs[j].Version)
}

// Protocol represents a P2P subprotocol implementation.
type Protocol struct {
	// Name should contain the official protocol name, often a
	// three-letter word.
	Name string

	// Version should contain the version number of the protocol.
	Version uint

	// Length should contain the number of message codes used
	// by the protocol.
	Length uint64

	// Run is called in a new groutine when the protocol has been
	// negotiated with a peer. It should read and write messages from
	// rw. The Payload for each message must be fully consumed.
	//
	// The peer connection is closed when Run returns. It should return
	// any protocol-level error (such as an invalid handshake) to
	// disconnect the peer with a reason matching the error, or nil for a
	// clean shutdown.
	Run func(peer *Peer, rw MsgReadWriter) error

	// NodeInfo is an optional helper method to retrieve protocol
	// specific metadata about the host node.
	NodeInfo func() interface{}

	// PeerInfo is an optional helper method to retrieve protocol
	// specific metadata about a certain peer in the network.
	PeerInfo func(id NodeID) interface{}
}

func (p Protocol) cap() Cap {
	return Cap{p.Name, p.Version}
}

// protoHandshake is the RLP structure of the protocol handshake (Hello,
// devp2p message code 0x00).
type protoHandshake struct {
	Version    uint
	Name       string
	Caps       []Cap
	ListenPort uint64
	ID         NodeID

	// Ignored additional fields (for forward compatibility).
	Rest []rlp.RawValue `rlp:"tail"`
}

func (hs *protoHandshake) String() string {
	return fmt.Sprintf("Handshake{Version: %d, Name: %s, Caps: %v, ListenPort:%d, NodeID: %s}",
		hs.Version, hs.Name, hs.Caps, hs.ListenPort, hs.ID.TerminalString())
}

// PeerInfo represents a short summary of the information known about a
// connected peer, used by RPC/debug endpoints.
type PeerInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Caps    []string `json:"caps"`
	Network struct {
		LocalAddress  string `json:"localAddress"`
		RemoteAddress string `json:"remoteAddress"`
		Inbound       bool   `json:"inbound"`
		Trusted       bool   `json:"trusted"`
		Static        bool   `json:"static"`
	} `json:"network"`
	Protocols map[string]interface{} `json:"protocols"`
}

// protoRW multiplexes a single negotiated subprotocol's messages over the
// peer's connection. It applies an offset to outgoing codes and removes it
// from incoming ones, implementing the capability-offset scheme.
type protoRW struct {
	Protocol
	in     chan Msg // receives read messages
	closed <-chan struct{}
	wstart <-chan struct{}
	werr   chan<- error
	offset uint64
	w      MsgWriter
}

func (rw *protoRW) WriteMsg(msg Msg) (err error) {
	if msg.Code >= rw.Length {
		return newPeerError(errInvalidMsgCode, "not handled")
	}
	msg.Code += rw.offset
	select {
	case <-rw.wstart:
		err = rw.w.WriteMsg(msg)
		// Report write status back to Peer.run. It will initiate
		// shutdown if the error is non-nil and unblock the next write
		// otherwise. The calling protocol code should exit for errors
		// as well but we don't want to rely on that.
		rw.werr <- err
	case <-rw.closed:
		err = fmt.Errorf("shutting down")
	}
	return err
}

func (rw *protoRW) ReadMsg() (Msg, error) {
	select {
	case msg := <-rw.in:
		return msg, nil
	case <-rw.closed:
		return Msg{}, io.EOF
	}
}

// Peer represents a connected remote node.
type Peer struct {
	rw      transport
	running map[string]*protoRW
	log     loggerish
	created time.Time

	wg       sync.WaitGroup
	protoErr chan error
	closed   chan struct{}
	disc     chan DiscReason

	events  peerEvents
	msgFeed msgEventFeed

	caps       []Cap
	remoteID   NodeID
	remoteAddr net.Addr
	localAddr  net.Addr
	inbound    bool
}

// peerEvents is the minimal event-publishing surface the Peer uses; it is
// satisfied by *Feed (see feed.go) in production code and left nil in
// protocol unit tests that construct a Peer directly.
type peerEvents interface {
	SendPeerEvent(PeerEvent)
}

// PeerEvent is reported on the event bus when a peer connects or
// disconnects, implementing the "peer connectivity timeline" requirement
// (component I) of the networking spec. Only PeerEventConnect and
// PeerEventDisconnect are sent; per-message traffic is reported as MsgEvent.
type PeerEvent struct {
	Type     PeerEventType
	Peer     NodeID
	Error    string
	Protocol string
}

// PeerEventType enumerates the kinds of events Peer/Server publish.
type PeerEventType int

const (
	PeerEventConnect PeerEventType = iota
	PeerEventDisconnect
	PeerEventMsgSend
	PeerEventMsgRecv
)

// loggerish is the minimal structured-logging surface the p2p package
// needs, satisfied by log.Logger (see package log) and easily stubbed in
// tests.
type loggerish interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

// NewPeer returns a peer for testing purposes, not connected to a real
// network but with a fixed identity and capability set, matching the
// teacher's original p2p testing harness.
func NewPeer(id NodeID, name string, caps []Cap) *Peer {
	pipe, _ := net.Pipe()
	rw := newRLPX(pipe, nil)
	peer := newPeer(id, rw, nil, caps, pipe.RemoteAddr(), pipe.LocalAddr(), false, nil)
	close(peer.closed) // ensure Disconnect on an un-run test peer is a no-op
	return peer
}

func newPeer(id NodeID, rw transport, protocols []Protocol, caps []Cap, remoteAddr, localAddr net.Addr, inbound bool, events peerEvents) *Peer {
	protomap := matchProtocols(protocols, caps, rw)
	p := &Peer{
		rw:         rw,
		running:    protomap,
		created:    time.Now(),
		disc:       make(chan DiscReason),
		protoErr:   make(chan error, len(protomap)+1),
		closed:     make(chan struct{}),
		caps:       caps,
		remoteID:   id,
		remoteAddr: remoteAddr,
		localAddr:  localAddr,
		inbound:    inbound,
		events:     events,
		log:        log.New("id", id.TerminalString()),
	}
	if feed, ok := events.(msgEventFeed); ok {
		p.msgFeed = feed
	}
	return p
}

// ID returns the node's public key, here used as its unique identifier.
func (p *Peer) ID() NodeID { return p.remoteID }

// Caps returns the capabilities (supported subprotocols) of the remote
// peer.
func (p *Peer) Caps() []Cap { return p.caps }

// RemoteAddr returns the remote address of the network connection.
func (p *Peer) RemoteAddr() net.Addr { return p.remoteAddr }

// LocalAddr returns the local address of the network connection.
func (p *Peer) LocalAddr() net.Addr { return p.localAddr }

// Inbound returns true if the peer is an inbound connection.
func (p *Peer) Inbound() bool { return p.inbound }

func (p *Peer) String() string {
	return fmt.Sprintf("Peer %s %v", p.remoteID.TerminalString(), p.caps)
}

// Info gathers and returns a collection of metadata known about a peer.
func (p *Peer) Info() *PeerInfo {
	info := &PeerInfo{
		ID:        p.ID().String(),
		Caps:      make([]string, 0, len(p.caps)),
		Protocols: make(map[string]interface{}),
	}
	for _, cap := range p.caps {
		info.Caps = append(info.Caps, cap.String())
	}
	info.Network.LocalAddress = p.LocalAddr().String()
	info.Network.RemoteAddress = p.RemoteAddr().String()
	info.Network.Inbound = p.inbound
	for _, proto := range p.running {
		protoInfo := interface{}("handshake")
		if query := proto.Protocol.PeerInfo; query != nil {
			if metadata := query(p.ID()); metadata != nil {
				protoInfo = metadata
			}
		}
		info.Protocols[proto.Name] = protoInfo
	}
	return info
}

// NodeIDFromPubkey converts a secp256k1 public key into the raw 64-byte
// identity format used throughout the p2p package.
func NodeIDFromPubkey(pub *ecdsa.PublicKey) NodeID {
	var id NodeID
	pubBytes := elliptic.Marshal(pub.Curve, pub.X, pub.Y)
	copy(id[:], pubBytes[1:])
	return id
}

// Pubkey recovers the secp256k1 public key from a node ID, the inverse of
// NodeIDFromPubkey.
func (n NodeID) Pubkey() (*ecdsa.PublicKey, error) {
	p := &ecdsa.PublicKey{Curve: crypto.S256(), X: new(big.Int), Y: new(big.Int)}
	half := len(n) / 2
	p.X.SetBytes(n[:half])
	p.Y.SetBytes(n[half:])
	if !p.Curve.IsOnCurve(p.X, p.Y) {
		return nil, errInvalidPubkey
	}
	return p, nil
}

var errInvalidPubkey = fmt.Errorf("invalid secp256k1 public key")

// Disconnect terminates the peer connection with the given reason. It
// returns immediately and does not wait until the connection is closed.
func (p *Peer) Disconnect(reason DiscReason) {
	select {
	case p.disc <- reason:
	case <-p.closed:
	}
}

// run is the main loop driving a connected peer: it dispatches incoming
// frames to the negotiated subprotocol readers and waits for any protocol
// to exit or for an externally requested disconnect.
func (p *Peer) run() (remoteRequested bool, err error) {
	var (
		writeStart = make(chan struct{}, 1)
		writeErr   = make(chan error, 1)
		readErr    = make(chan error, 1)
		reason     DiscReason
	)
	p.wg.Add(2)
	go p.readLoop(readErr)
	go p.pingLoop()

	writeStart <- struct{}{}
	p.startProtocols(writeStart, writeErr)

	if p.events != nil {
		p.events.SendPeerEvent(PeerEvent{Type: PeerEventConnect, Peer: p.remoteID})
	}
	p.log.Debug("Adding p2p peer", "addr", p.RemoteAddr(), "peers", len(p.running))

loop:
	for {
		select {
		case err = <-writeErr:
			if err != nil {
				reason = discReasonForError(err)
				break loop
			}
			writeStart <- struct{}{}
		case err = <-readErr:
			if r, ok := err.(DiscReason); ok {
				remoteRequested = true
				reason = r
			} else {
				reason = discReasonForError(err)
			}
			break loop
		case err = <-p.protoErr:
			reason = discReasonForError(err)
			break loop
		case reason = <-p.disc:
			break loop
		}
	}

	close(p.closed)
	p.rw.close(reason)
	p.wg.Wait()
	p.log.Debug("Removing p2p peer", "addr", p.RemoteAddr(), "reason", reason, "err", err)

	if p.events != nil {
		p.events.SendPeerEvent(PeerEvent{Type: PeerEventDisconnect, Peer: p.remoteID, Error: reason.String()})
	}
	return remoteRequested, err
}

func (p *Peer) pingLoop() {
	ping := time.NewTicker(15 * time.Second)
	defer p.wg.Done()
	defer ping.Stop()
	for {
		select {
		case <-ping.C:
			if err := SendItems(p.rw, pingMsg); err != nil {
				p.protoErr <- err
				return
			}
		case <-p.closed:
			return
		}
	}
}

func (p *Peer) readLoop(errc chan<- error) {
	defer p.wg.Done()
	for {
		msg, err := p.rw.ReadMsg()
		if err != nil {
			errc <- err
			return
		}
		msg.ReceivedAt = time.Now()
		if err := p.handle(msg); err != nil {
			errc <- err
			return
		}
	}
}

func (p *Peer) handle(msg Msg) error {
	switch {
	case msg.Code == pingMsg:
		msg.Discard()
		go SendItems(p.rw, pongMsg)
	case msg.Code == discMsg:
		var reason [1]DiscReason
		rlp.Decode(msg.Payload, &reason)
		return reason[0]
	case msg.Code < baseProtocolLength:
		return msg.Discard()
	default:
		proto, err := p.getProto(msg.Code)
		if err != nil {
			return err
		}
		select {
		case proto.in <- msg:
			return nil
		case <-p.closed:
			return io.EOF
		}
	}
	return nil
}

// baseProtocolLength is the number of message codes reserved by the base
// devp2p protocol (Hello/Disconnect/Ping/Pong plus headroom), matching the
// spec's capability offset assignment starting point.
const baseProtocolLength = 16

func (p *Peer) startProtocols(writeStart <-chan struct{}, writeErr chan<- error) {
	p.wg.Add(len(p.running))
	for _, proto := range p.running {
		proto := proto
		proto.closed = p.closed
		proto.wstart = writeStart
		proto.werr = writeErr
		go func() {
			defer p.wg.Done()
			var rw MsgReadWriter = proto
			if p.msgFeed != nil {
				rw = newMsgEventer(proto, p.msgFeed, p.remoteID.String(), proto.Name, p.RemoteAddr().String())
			}
			err := proto.Run(p, rw)
			if err == nil {
				err = errProtocolReturned
			}
			p.protoErr <- err
		}()
	}
}

var errProtocolReturned = fmt.Errorf("protocol returned")
var errInvalidMsgCode = fmt.Errorf("invalid message code")

func (p *Peer) getProto(code uint64) (*protoRW, error) {
	for _, proto := range p.running {
		if code >= proto.offset && code < proto.offset+proto.Length {
			return proto, nil
		}
	}
	return nil, newPeerError(errInvalidMsgCode, "%d", code)
}

func newPeerError(kind error, format string, v ...interface{}) error {
	return fmt.Errorf("%v: "+format, append([]interface{}{kind}, v...)...)
}

// matchProtocols creates structures for matching named subprotocols.
//
// protocols is the list of locally supported protocols, sorted by name
// and version. caps is the list of capabilities advertised by the remote
// peer. Only capabilities present in both lists are started; when both
// sides support multiple versions of the same protocol name, the highest
// common version wins. Message-code offsets are assigned to the
// intersection sorted by (name, version), starting right after
// baseProtocolLength, so both peers compute identical offsets
// independently.
func matchProtocols(protocols []Protocol, caps []Cap, rw MsgReadWriter) map[string]*protoRW {
	sort.Sort(capsByNameAndVersion(caps))

	offset := uint64(baseProtocolLength)
	result := make(map[string]*protoRW)

outer:
	for _, cap := range caps {
		for _, proto := range protocols {
			if proto.Name == cap.Name && proto.Version == cap.Version {
				// If an old protocol version matched, revert it.
				if old := result[cap.Name]; old != nil {
					offset -= old.Length
				}
				result[cap.Name] = &protoRW{Protocol: proto, offset: offset, in: make(chan Msg), w: rw}
				offset += proto.Length
				continue outer
			}
		}
	}
	return result
}
