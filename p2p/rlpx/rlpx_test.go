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

package rlpx

import (
	"bytes"
	"crypto/ecdsa"
	"net"
	"reflect"
	"testing"

	"github.com/nodalchain/nodalchain/crypto"
)

func TestHandshakeAndFrame(t *testing.T) {
	prv0, _ := crypto.GenerateKey()
	prv1, _ := crypto.GenerateKey()
	fd0, fd1 := net.Pipe()

	c0 := NewConn(fd0, &prv1.PublicKey) // dialer
	c1 := NewConn(fd1, nil)             // listener

	type result struct {
		remote *ecdsa.PublicKey
		err    error
	}
	out := make(chan result, 2)
	go func() {
		rk, err := c0.Handshake(prv0)
		out <- result{rk, err}
	}()
	go func() {
		rk, err := c1.Handshake(prv1)
		out <- result{rk, err}
	}()
	r1, r2 := <-out, <-out
	if r1.err != nil {
		t.Fatalf("handshake error: %v", r1.err)
	}
	if r2.err != nil {
		t.Fatalf("handshake error: %v", r2.err)
	}

	if !reflect.DeepEqual(c0.session.enc.egressMAC, c1.session.enc.ingressMAC) {
		t.Fatal("egress/ingress MAC mismatch (dialer egress vs listener ingress)")
	}
	if !reflect.DeepEqual(c0.session.enc.ingressMAC, c1.session.enc.egressMAC) {
		t.Fatal("ingress/egress MAC mismatch (dialer ingress vs listener egress)")
	}

	payload := []byte("hello devp2p")
	writeErr := make(chan error, 1)
	go func() {
		_, err := c0.Write(42, payload)
		writeErr <- err
	}()

	code, data, _, err := c1.Read()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if err := <-writeErr; err != nil {
		t.Fatalf("write error: %v", err)
	}
	if code != 42 {
		t.Fatalf("wrong code: got %d want 42", code)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("wrong payload: got %q want %q", data, payload)
	}
}

func TestSplitJoinFrameCode(t *testing.T) {
	frame := joinFrameCode(16, []byte("some payload"))
	code, rest, err := splitFrameCode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if code != 16 {
		t.Fatalf("got code %d, want 16", code)
	}
	if string(rest) != "some payload" {
		t.Fatalf("got rest %q", rest)
	}
}
