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

package snap

import (
	"sync"
	"testing"

	"github.com/nodalchain/nodalchain/common"
)

func newTestPeer() *Peer {
	return NewPeer(nil, nil)
}

func TestConcurrentIdenticalRequestsShareOneInFlightCall(t *testing.T) {
	p := newTestPeer()

	var sends int
	send := func(reqID uint64) error {
		sends++
		return nil
	}

	waiters := make([]func() (interface{}, error), 4)
	for i := range waiters {
		wait, err := p.request("same-key", send)
		if err != nil {
			t.Fatal(err)
		}
		waiters[i] = wait
	}
	if sends != 1 {
		t.Fatalf("expected exactly one send for 4 identical dedup keys, got %d", sends)
	}

	if !p.deliver(1, "answer") {
		t.Fatal("deliver failed to find the single in-flight request")
	}

	var wg sync.WaitGroup
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
}

func TestHashKeyIgnoresOrder(t *testing.T) {
	a := common.BytesToHash([]byte("a"))
	b := common.BytesToHash([]byte("b"))
	if hashKey("bytecodes", []common.Hash{a, b}) != hashKey("bytecodes", []common.Hash{b, a}) {
		t.Fatal("hashKey should be order independent")
	}
}
