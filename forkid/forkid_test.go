// Copyright 2019 The go-ethereum Authors
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

package forkid

import (
	"math"
	"testing"

	"github.com/nodalchain/nodalchain/common"
)

var testGenesis = common.BytesToHash([]byte("test genesis block"))

func TestGatherForksSortsDedupsAndStripsZero(t *testing.T) {
	got := GatherForks([]uint64{10, 0, 5, 10, 0, 20})
	want := []uint64{5, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("GatherForks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("GatherForks = %v, want %v", got, want)
		}
	}
}

func TestNewIDFromScheduleReportsNextUpcomingFork(t *testing.T) {
	blocks := []uint64{10, 20}
	id := NewIDFromSchedule(testGenesis, blocks, nil, 15, 0)
	if id.Next != 20 {
		t.Fatalf("Next = %d, want 20 (head 15 has passed fork 10 but not 20)", id.Next)
	}
}

func TestNewIDFromScheduleReportsZeroNextPastAllForks(t *testing.T) {
	blocks := []uint64{10, 20}
	id := NewIDFromSchedule(testGenesis, blocks, nil, 1000, 0)
	if id.Next != 0 {
		t.Fatalf("Next = %d, want 0 once every known fork has passed", id.Next)
	}
}

func TestFilterAcceptsIdenticalSchedule(t *testing.T) {
	blocks := []uint64{10, 20}
	head := func() (uint64, uint64) { return 15, 0 }
	filter := NewFilter(testGenesis, blocks, nil, head)

	id := NewIDFromSchedule(testGenesis, blocks, nil, 15, 0)
	if err := filter(id); err != nil {
		t.Fatalf("expected identical schedules to validate, got %v", err)
	}
}

func TestFilterDetectsRemoteStale(t *testing.T) {
	blocks := []uint64{10, 20}
	head := func() (uint64, uint64) { return 25, 0 } // local has passed both forks
	filter := NewFilter(testGenesis, blocks, nil, head)

	// The remote has passed fork 10 (same checksum position as the local
	// chain there) but announces a Next that is neither 0 nor the real
	// upcoming fork the local chain has already passed.
	base := NewIDFromSchedule(testGenesis, blocks, nil, 15, 0)
	remote := ID{Hash: base.Hash, Next: 999}
	if err := filter(remote); err != ErrRemoteStale {
		t.Fatalf("expected ErrRemoteStale, got %v", err)
	}
}

func TestFilterDetectsLocalIncompatibleOrStale(t *testing.T) {
	blocks := []uint64{10, 20}
	head := func() (uint64, uint64) { return 15, 0 }
	filter := NewFilter(testGenesis, blocks, nil, head)

	bogus := ID{Hash: [4]byte{0xde, 0xad, 0xbe, 0xef}, Next: 5}
	if err := filter(bogus); err != ErrLocalIncompatibleOrStale {
		t.Fatalf("expected ErrLocalIncompatibleOrStale, got %v", err)
	}
}

func TestFilterAllowsUnknownChecksumWithMaxNext(t *testing.T) {
	blocks := []uint64{10, 20}
	head := func() (uint64, uint64) { return 15, 0 }
	filter := NewFilter(testGenesis, blocks, nil, head)

	bogus := ID{Hash: [4]byte{0xde, 0xad, 0xbe, 0xef}, Next: math.MaxUint64}
	if err := filter(bogus); err != nil {
		t.Fatalf("a remote announcing math.MaxUint64 as Next must never be rejected, got %v", err)
	}
}
