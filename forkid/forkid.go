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

// Package forkid implements EIP-2124 (https://eips.ethereum.org/EIPS/eip-2124):
// a compact fork identifier that lets two peers judge, from four bytes
// exchanged in the STATUS handshake, whether their fork schedules agree far
// enough to be worth talking to each other.
package forkid

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
	"sort"

	"github.com/nodalchain/nodalchain/common"
)

var (
	// ErrRemoteStale is returned by a Filter if the remote is stuck on a
	// fork the local chain has already passed, and knows of no newer fork
	// to explain the mismatch.
	ErrRemoteStale = errors.New("forkid: remote needs software update")

	// ErrLocalIncompatibleOrStale is returned by a Filter if the local
	// fork checksum never matches anything the remote could have passed
	// through, meaning the two chains have diverged.
	ErrLocalIncompatibleOrStale = errors.New("forkid: local incompatible or needs update")
)

// ID is an EIP-2124 fork identifier, carried on the wire as part of the ETH
// STATUS message for protocol versions 64 and above.
type ID struct {
	Hash [4]byte // CRC32 checksum of the genesis hash and every fork already passed
	Next uint64  // Block number or timestamp of the next upcoming fork, 0 if none known
}

// Chain is the minimal view over a chain's fork schedule that NewID needs.
// A caller backs this with its own chain/config types; this package only
// ever reads the genesis hash, the fork boundaries and the current head.
type Chain interface {
	// Genesis returns the hash of the chain's genesis block.
	Genesis() common.Hash

	// Forks returns every block-number-activated fork boundary and every
	// timestamp-activated fork boundary the local chain configuration
	// knows about. Both slices must be sorted ascending and contain no
	// zero or duplicate entries; GatherForks produces schedules in this
	// shape from an unordered set of raw activation numbers.
	Forks() (blocks []uint64, times []uint64)

	// Head returns the current local head block number and its timestamp.
	Head() (head uint64, time uint64)
}

// NewID calculates the fork ID for the given chain's current head.
func NewID(chain Chain) ID {
	head, time := chain.Head()
	blocks, times := chain.Forks()
	return NewIDFromSchedule(chain.Genesis(), blocks, times, head, time)
}

// NewIDFromSchedule is the pure function form of NewID, taking the fork
// schedule directly. It lets callers validating a remote's announced ID
// recompute what they expect a given head to carry without needing a full
// Chain implementation.
func NewIDFromSchedule(genesis common.Hash, blockForks, timeForks []uint64, head, headTime uint64) ID {
	hash := crc32.ChecksumIEEE(genesis[:])
	for _, fork := range blockForks {
		if fork <= head {
			hash = checksumUpdate(hash, fork)
			continue
		}
		return ID{Hash: checksumToBytes(hash), Next: fork}
	}
	for _, fork := range timeForks {
		if fork <= headTime {
			hash = checksumUpdate(hash, fork)
			continue
		}
		return ID{Hash: checksumToBytes(hash), Next: fork}
	}
	return ID{Hash: checksumToBytes(hash), Next: 0}
}

func checksumUpdate(hash uint32, fork uint64) uint32 {
	var blob [8]byte
	binary.BigEndian.PutUint64(blob[:], fork)
	return crc32.Update(hash, crc32.IEEETable, blob[:])
}

func checksumToBytes(hash uint32) [4]byte {
	var blob [4]byte
	binary.BigEndian.PutUint32(blob[:], hash)
	return blob
}

// GatherForks sorts, deduplicates and strips the zero entry from a set of
// raw fork-activation numbers, matching the shape Chain.Forks implementations
// are expected to return.
func GatherForks(raw []uint64) []uint64 {
	set := make(map[uint64]struct{}, len(raw))
	for _, n := range raw {
		if n != 0 {
			set[n] = struct{}{}
		}
	}
	out := make([]uint64, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Filter validates a remotely announced fork ID against the local chain's
// fork schedule, to be called once per STATUS handshake. Build one with
// NewFilter and reuse it for every incoming connection.
type Filter func(id ID) error

// NewFilter creates a Filter for a local chain definition. head is called
// each time the filter runs, so it should report the chain's live head
// rather than a value captured at filter-creation time.
func NewFilter(genesis common.Hash, blockForks, timeForks []uint64, head func() (uint64, uint64)) Filter {
	forks := append(append([]uint64{}, blockForks...), timeForks...)
	sums := checksums(genesis, forks)
	return func(id ID) error {
		localHead, localTime := head()
		return validate(forks, sums, blockForks, localHead, localTime, id)
	}
}

// checksums returns the running CRC32 checksum after each fork in forks has
// been folded in, checksums[0] being the genesis-only checksum.
func checksums(genesis common.Hash, forks []uint64) []uint32 {
	sums := make([]uint32, len(forks)+1)
	sums[0] = crc32.ChecksumIEEE(genesis[:])
	for i, fork := range forks {
		sums[i+1] = checksumUpdate(sums[i], fork)
	}
	return sums
}

// validate implements the EIP-2124 compatibility rule: find where the
// remote's checksum sits in the local fork history, then compare the
// remote's claimed next fork against what actually comes next locally.
func validate(forks []uint64, sums []uint32, blockForks []uint64, head, headTime uint64, id ID) error {
	remoteHash := binary.BigEndian.Uint32(id.Hash[:])

	for i, sum := range sums {
		if sum != remoteHash {
			continue
		}
		// Remote's checksum matches our state after passing the first i
		// forks. If the remote is unaware of any fork, or its announced
		// next fork exactly matches ours, or it claims a fork we have not
		// reached ourselves yet, we are compatible.
		if i == len(forks) {
			return nil // remote has passed every fork we know about
		}
		localNext := forks[i]
		if id.Next == 0 || id.Next == localNext {
			return nil
		}
		localHeadValue := headTime
		if i < len(blockForks) {
			localHeadValue = head
		}
		if localHeadValue >= localNext {
			// We have already passed the fork the remote doesn't know
			// about yet; it needs a software update.
			return ErrRemoteStale
		}
		return nil
	}
	// The remote's checksum never appeared in our own fork history: either
	// it is ahead of us on forks we don't know about (signalled by a
	// maximal Next, which we cannot contradict), or its history has
	// diverged from ours.
	if id.Next == math.MaxUint64 {
		return nil
	}
	return ErrLocalIncompatibleOrStale
}
