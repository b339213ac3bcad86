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
	"context"
	"crypto/ecdsa"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/nodalchain/nodalchain/event"
)

// Config holds Server options.
type Config struct {
	// PrivateKey is the node's identity key. It must be set.
	PrivateKey *ecdsa.PrivateKey

	// MaxPeers is the maximum number of peers the server will keep
	// connected, inbound and outbound combined.
	MaxPeers int

	// MaxPendingPeers bounds the number of connections that are
	// currently in the RLPx/protocol handshake; inbound and outbound
	// connections share this one limit.
	MaxPendingPeers int

	// DialRatio is not read by the server: inbound and dialed
	// connections share MaxPeers, and no fraction of it is reserved for
	// dialed connections.
	DialRatio int

	// ListenAddr is the TCP address to listen on, e.g. ":30303". Leave
	// empty to disable listening (outbound-only node).
	ListenAddr string

	// BootstrapNodes seed the dial scheduler on startup, retried with
	// exponential backoff (capped at 60s) until a live session is
	// established with each one.
	BootstrapNodes []DiscoveredPeer

	// Discovery is the external node-discovery collaborator. When set,
	// the server consumes its event stream and dials every candidate it
	// emits, subject to the ban list and MaxPeers. The server never
	// implements discovery table maintenance itself.
	Discovery Discovery

	// Protocols is the list of subprotocols this node supports. The
	// server advertises their capabilities in every Hello message.
	Protocols []Protocol

	// Name is the client identifier announced in the Hello message.
	Name string
}

// Server manages the peer-to-peer networking stack: it listens for
// inbound connections, dials out to discovered nodes up to MaxPeers, runs
// the RLPx and devp2p handshakes on every connection, and hands
// established peers off to the negotiated Protocol.Run implementations.
type Server struct {
	Config

	lock     sync.Mutex
	running  bool
	listener net.Listener

	peerOp     chan peerOpFunc
	peerOpDone chan struct{}

	quit        chan struct{}
	loopWG      sync.WaitGroup
	dialSem     *semaphore.Weighted
	dialGroup   singleflight.Group
	banList     *banList
	established chan *establishedConn

	events *Feed
}

// SubscribeEvents registers ch to receive every PeerEvent the server
// publishes (peer connect and disconnect). The subscription must be read
// from continuously; a blocked subscriber stalls peer setup and teardown
// for every other peer.
func (srv *Server) SubscribeEvents(ch chan<- PeerEvent) event.Subscription {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	if srv.events == nil {
		srv.events = new(Feed)
	}
	return srv.events.SubscribePeerEvents(ch)
}

type peerOpFunc func(map[NodeID]*Peer)

const (
	defaultMaxPendingPeers = 50
	defaultDialRatio       = 3
	dialHistoryExpiration  = 30 * time.Second
	frameReadTimeout       = 90 * time.Second
)

// Start allocates the listener and dial-scheduling resources and begins
// accepting connections. It returns once the listener is bound (if
// ListenAddr is set); the accept/dial loops continue running in the
// background until Stop is called.
func (srv *Server) Start() error {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	if srv.running {
		return fmt.Errorf("server already running")
	}
	if srv.PrivateKey == nil {
		return fmt.Errorf("Server.PrivateKey must be set")
	}
	srv.running = true
	srv.quit = make(chan struct{})
	srv.peerOp = make(chan peerOpFunc)
	srv.peerOpDone = make(chan struct{})
	srv.banList = newBanList(10 * time.Minute)
	srv.established = make(chan *establishedConn)
	if srv.events == nil {
		srv.events = new(Feed)
	}

	maxPending := srv.MaxPendingPeers
	if maxPending == 0 {
		maxPending = defaultMaxPendingPeers
	}
	srv.dialSem = semaphore.NewWeighted(int64(maxPending))

	if srv.ListenAddr != "" {
		listener, err := net.Listen("tcp", srv.ListenAddr)
		if err != nil {
			return err
		}
		srv.listener = listener
	}

	srv.loopWG.Add(1)
	go srv.run()
	if srv.listener != nil {
		srv.loopWG.Add(1)
		go srv.listenLoop()
	}
	for _, n := range srv.BootstrapNodes {
		go srv.dialBootstrap(n)
	}
	if srv.Discovery != nil {
		srv.loopWG.Add(1)
		go srv.runDiscovery()
	}
	return nil
}

// Stop terminates the server and all active peer connections.
func (srv *Server) Stop() {
	srv.lock.Lock()
	if !srv.running {
		srv.lock.Unlock()
		return
	}
	srv.running = false
	if srv.listener != nil {
		srv.listener.Close()
	}
	close(srv.quit)
	srv.lock.Unlock()
	srv.loopWG.Wait()
}

// AddPeer injects a node as a static dial target: the server will keep
// trying to maintain a connection to it, redialing with backoff on
// failure, for as long as the server runs.
func (srv *Server) AddPeer(pub *ecdsa.PublicKey, addr string) {
	go srv.dialStatic(pub, addr)
}

// PeerCount returns the number of currently connected peers.
func (srv *Server) PeerCount() int {
	var count int
	select {
	case srv.peerOp <- func(peers map[NodeID]*Peer) { count = len(peers) }:
		<-srv.peerOpDone
	case <-srv.quit:
	}
	return count
}

// Peers returns all currently connected peers.
func (srv *Server) Peers() []*Peer {
	var peers []*Peer
	select {
	case srv.peerOp <- func(ps map[NodeID]*Peer) {
		for _, p := range ps {
			peers = append(peers, p)
		}
	}:
		<-srv.peerOpDone
	case <-srv.quit:
	}
	return peers
}

// run is the peer-table serialization loop: every read or mutation of
// srv.peers happens here so concurrent dial/accept/disconnect goroutines
// never race on the map.
func (srv *Server) run() {
	defer srv.loopWG.Done()
	peers := make(map[NodeID]*Peer)
	taskdone := make(chan *Peer)

running:
	for {
		select {
		case op := <-srv.peerOp:
			op(peers)
			srv.peerOpDone <- struct{}{}
		case p := <-taskdone:
			delete(peers, p.ID())
		case c := <-srv.established:
			if err := srv.checkpoint(peers, c.id); err != nil {
				c.rw.close(discReasonForError(err))
				continue
			}
			p := newPeer(c.id, c.rw, srv.Protocols, c.caps, c.remoteAddr, c.localAddr, c.inbound, srv.events)
			peers[c.id] = p
			go func() {
				_, err := p.run()
				if err != nil {
					if reason := discReasonForError(err); reason == DiscProtocolError || reason == DiscSubprotocolError {
						srv.banList.ban(tcpIP(p.RemoteAddr()))
					}
				}
				select {
				case taskdone <- p:
				case <-srv.quit:
				}
			}()
		case <-srv.quit:
			break running
		}
	}
	for _, p := range peers {
		p.Disconnect(DiscQuitting)
	}
}

type establishedConn struct {
	rw         transport
	id         NodeID
	caps       []Cap
	remoteAddr net.Addr
	localAddr  net.Addr
	inbound    bool
}

func (srv *Server) checkpoint(peers map[NodeID]*Peer, id NodeID) error {
	if _, ok := peers[id]; ok {
		return fmt.Errorf("already connected")
	}
	if len(peers) >= srv.maxPeers() {
		return fmt.Errorf("too many peers")
	}
	return nil
}

// maxPeers returns the configured peer cap, or the spec's default of 25
// when unset.
func (srv *Server) maxPeers() int {
	if srv.MaxPeers == 0 {
		return 25
	}
	return srv.MaxPeers
}

// isConnected reports whether id currently has a live session.
func (srv *Server) isConnected(id NodeID) bool {
	var found bool
	select {
	case srv.peerOp <- func(peers map[NodeID]*Peer) { _, found = peers[id] }:
		<-srv.peerOpDone
	case <-srv.quit:
	}
	return found
}

// listenLoop accepts inbound TCP connections and hands each one to
// setupConn for the RLPx+devp2p handshake, bounded by dialSem so a burst
// of inbound dials cannot spawn unbounded concurrent handshakes.
func (srv *Server) listenLoop() {
	defer srv.loopWG.Done()
	for {
		fd, err := srv.listener.Accept()
		if err != nil {
			return
		}
		remoteIP := tcpIP(fd.RemoteAddr())
		if srv.banList.banned(remoteIP) {
			fd.Close()
			continue
		}
		if err := srv.dialSem.Acquire(context.Background(), 1); err != nil {
			fd.Close()
			return
		}
		go func() {
			defer srv.dialSem.Release(1)
			srv.setupConn(fd, nil, true)
		}()
	}
}

// dialStatic repeatedly attempts to connect to a statically configured
// node, backing off exponentially between failures, until the server
// stops.
func (srv *Server) dialStatic(pub *ecdsa.PublicKey, addr string) {
	id := NodeIDFromPubkey(pub)
	backoff := time.Second
	const maxBackoff = 2 * time.Minute
	for {
		select {
		case <-srv.quit:
			return
		default:
		}
		key := id.String()
		_, err, _ := srv.dialGroup.Do(key, func() (interface{}, error) {
			return nil, srv.dialOnce(pub, addr)
		})
		if err == nil {
			backoff = time.Second
		} else {
			select {
			case <-time.After(backoff):
			case <-srv.quit:
				return
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
		}
	}
}

// dialBootstrap repeatedly attempts to connect to a seeded bootstrap
// node, backing off exponentially (capped at 60s) until a live session
// is established or the server stops, per the discovery adapter's
// bootstrap-retry rule.
func (srv *Server) dialBootstrap(n DiscoveredPeer) {
	id := NodeIDFromPubkey(n.Pub)
	backoff := time.Second
	const maxBackoff = 60 * time.Second
	for {
		select {
		case <-srv.quit:
			return
		default:
		}
		if srv.isConnected(id) {
			return
		}
		if err := srv.dialOnce(n.Pub, n.addr()); err == nil {
			return
		}
		select {
		case <-time.After(backoff):
		case <-srv.quit:
			return
		}
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// runDiscovery consumes candidates from the external discovery
// collaborator and hands each one to the dial scheduler, filtering out
// banned addresses and refusing to dial once the peer cap is reached.
func (srv *Server) runDiscovery() {
	defer srv.loopWG.Done()
	events := srv.Discovery.Events()
	for {
		select {
		case n, ok := <-events:
			if !ok {
				return
			}
			if srv.banList.banned(n.IP) {
				continue
			}
			if srv.PeerCount() >= srv.maxPeers() {
				continue
			}
			if srv.isConnected(NodeIDFromPubkey(n.Pub)) {
				continue
			}
			srv.AddPeer(n.Pub, n.addr())
		case <-srv.quit:
			return
		}
	}
}

func (srv *Server) dialOnce(pub *ecdsa.PublicKey, addr string) error {
	if err := srv.dialSem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer srv.dialSem.Release(1)

	dialer := net.Dialer{Timeout: 15 * time.Second}
	fd, err := dialer.Dial("tcp", addr)
	if err != nil {
		return err
	}
	return srv.setupConn(fd, pub, false)
}

// setupConn drives the RLPx encryption handshake and devp2p Hello
// exchange for one connection and, on success, publishes it on
// srv.established for the run loop to admit.
func (srv *Server) setupConn(fd net.Conn, dialDest *ecdsa.PublicKey, inbound bool) error {
	fd.SetDeadline(time.Now().Add(handshakeTimeout))
	t := newRLPX(fd, dialDest)

	remotePubkey, err := t.doEncHandshake(srv.PrivateKey)
	if err != nil {
		fd.Close()
		return err
	}
	if dialDest != nil {
		want := NodeIDFromPubkey(dialDest)
		got := NodeIDFromPubkey(remotePubkey)
		if want != got {
			t.close(DiscUnexpectedIdentity)
			return fmt.Errorf("unexpected identity")
		}
	}

	our := &protoHandshake{
		Version: baseProtocolVersion,
		Name:    srv.Name,
		Caps:    protocolCaps(srv.Protocols),
		ID:      NodeIDFromPubkey(&srv.PrivateKey.PublicKey),
	}
	their, err := t.doProtoHandshake(our)
	if err != nil {
		t.close(discReasonForError(err))
		return err
	}
	remoteID := NodeIDFromPubkey(remotePubkey)
	if their.ID != remoteID {
		t.close(DiscUnexpectedIdentity)
		return fmt.Errorf("handshake ID mismatch")
	}

	fd.SetDeadline(time.Time{})
	conn := &establishedConn{
		rw:         t,
		id:         remoteID,
		caps:       their.Caps,
		remoteAddr: fd.RemoteAddr(),
		localAddr:  fd.LocalAddr(),
		inbound:    inbound,
	}
	select {
	case srv.established <- conn:
		return nil
	case <-srv.quit:
		t.close(DiscQuitting)
		return fmt.Errorf("server stopped")
	}
}

// baseProtocolVersion is the version advertised in the Hello message;
// protocol version 5 is the minimum that enables Snappy compression.
const baseProtocolVersion = 5

func protocolCaps(protos []Protocol) []Cap {
	caps := make([]Cap, len(protos))
	for i, p := range protos {
		caps[i] = p.cap()
	}
	return caps
}

func tcpIP(addr net.Addr) net.IP {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP
	}
	return nil
}

// banList is a windowed record of misbehaving remote addresses, modeled
// on the expire-then-rebuild GC sweep used by the Kademlia table's own
// bucket maintenance: entries older than the window are dropped lazily on
// the next banned() or ban() call rather than by a background timer.
type banList struct {
	mu     sync.Mutex
	window time.Duration
	until  map[string]time.Time
}

func newBanList(window time.Duration) *banList {
	return &banList{window: window, until: make(map[string]time.Time)}
}

func (b *banList) ban(ip net.IP) {
	if ip == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until[ip.String()] = time.Now().Add(b.window)
}

func (b *banList) banned(ip net.IP) bool {
	if ip == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := ip.String()
	deadline, ok := b.until[key]
	if !ok {
		return false
	}
	if time.Now().After(deadline) {
		delete(b.until, key)
		return false
	}
	return true
}
