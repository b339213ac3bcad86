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
	"crypto/ecdsa"
	"net"
	"strconv"
)

// DiscoveredPeer is a dial candidate surfaced by the external discovery
// collaborator: a node identity plus the network address it advertised.
// The server never resolves or verifies these fields itself, it only
// dials them.
type DiscoveredPeer struct {
	Pub     *ecdsa.PublicKey
	IP      net.IP
	TCPPort uint16
	UDPPort uint16
}

func (d DiscoveredPeer) addr() string {
	return net.JoinHostPort(d.IP.String(), strconv.Itoa(int(d.TCPPort)))
}

// Discovery is the node-discovery collaborator the server dials against.
// Kademlia table maintenance, bonding, and the UDP find-node protocol
// live entirely on the other side of this interface; the server only
// consumes the candidate stream it produces.
type Discovery interface {
	Events() <-chan DiscoveredPeer
}
