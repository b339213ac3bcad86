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
	"net"
	"testing"
	"time"
)

func TestBanListExpires(t *testing.T) {
	b := newBanList(20 * time.Millisecond)
	ip := net.ParseIP("203.0.113.1")
	if b.banned(ip) {
		t.Fatal("unbanned address reported banned")
	}
	b.ban(ip)
	if !b.banned(ip) {
		t.Fatal("banned address not reported banned")
	}
	time.Sleep(40 * time.Millisecond)
	if b.banned(ip) {
		t.Fatal("ban did not expire after the window elapsed")
	}
}

func TestBanListNilIP(t *testing.T) {
	b := newBanList(time.Minute)
	b.ban(nil)
	if b.banned(nil) {
		t.Fatal("nil IP must never be reported banned")
	}
}

func TestServerMaxPeersDefault(t *testing.T) {
	srv := &Server{}
	if got := srv.maxPeers(); got != 25 {
		t.Fatalf("maxPeers() default = %d, want 25", got)
	}
	srv.MaxPeers = 100
	if got := srv.maxPeers(); got != 100 {
		t.Fatalf("maxPeers() with MaxPeers set = %d, want 100", got)
	}
}

func TestDiscoveredPeerAddr(t *testing.T) {
	d := DiscoveredPeer{IP: net.ParseIP("198.51.100.7"), TCPPort: 30303}
	if got, want := d.addr(), "198.51.100.7:30303"; got != want {
		t.Fatalf("addr() = %q, want %q", got, want)
	}
}
