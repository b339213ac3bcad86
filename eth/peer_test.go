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
	"sync"
	"testing"

	"github.com/nodalchain/nodalchain/common"
)

func TestDedupeHashesPreservesFirstOccurrenceOrder(t *testing.T) {
	a := common.BytesToHash([]byte("a"))
	b := common.BytesToHash([]byte("b"))
	in := []common.Hash{a, b, a, a, b}
	got := dedupeHashes(in)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("dedupeHashes(%v) = %v, want [a b]", in, got)
	}
}

func TestHashListKeyIgnoresInputOrder(t *testing.T) {
	a := common.BytesToHash([]byte("a"))
	b := common.BytesToHash([]byte("b"))
	k1 := hashListKey("getheaders", []common.Hash{a, b})
	k2 := hashListKey("getheaders", []common.Hash{b, a})
	if k1 != k2 {
		t.Fatalf("hashListKey should be order independent: %q != %q", k1, k2)
	}
}

func TestHashListKeyDistinguishesVerb(t *testing.T) {
	a := common.BytesToHash([]byte("a"))
	if hashListKey("bodies", []common.Hash{a}) == hashListKey("receipts", []common.Hash{a}) {
		t.Fatal("hashListKey must not collide across different request verbs")
	}
}

func newTestPeer() *Peer {
	return NewPeer(ETH68, nil, nil)
}

func TestConcurrentIdenticalRequestsShareOneInFlightCall(t *testing.T) {
	p := newTestPeer()

	var sends int
	send := func(reqID uint64) error {
		sends++
		return nil
	}

	var wg sync.WaitGroup
	waiters := make([]func() (interface{}, error), 5)
	for i := range waiters {
		wait, err := p.request("same-key", send)
		if err != nil {
			t.Fatal(err)
		}
		waiters[i] = wait
	}
	if sends != 1 {
		t.Fatalf("expected exactly one send for 5 identical dedup keys, got %d", sends)
	}

	if !p.deliver(1, "answer") {
		t.Fatal("deliver failed to find the single in-flight request")
	}
	wg.Add(len(waiters))
	for _, wait := range waiters {
		wait := wait
		go func() {
			defer wg.Done()
			v, err := wait()
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if v != "answer" {
				t.Errorf("got %v, want %q", v, "answer")
			}
		}()
	}
	wg.Wait()
}

func TestCloseFailsAllPending(t *testing.T) {
	p := newTestPeer()
	wait, err := p.request("k", func(reqID uint64) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	p.close()
	if _, err := wait(); err != ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed after close, got %v", err)
	}
	if _, err := p.request("k2", func(reqID uint64) error { return nil }); err != ErrSessionClosed {
		t.Fatalf("expected request on a closed peer to fail immediately, got %v", err)
	}
}
