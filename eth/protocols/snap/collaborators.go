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

import "github.com/nodalchain/nodalchain/common"

// StateStore is the external state-trie collaborator this package serves
// every GET_* request from; it is supplied by the embedder and owns all
// trie-walking and proof-generation logic, which is explicitly out of
// scope for the networking layer itself.
type StateStore interface {
	// AccountRange returns the accounts from origin (inclusive) up to limit,
	// keeping the response within about maxBytes, in the state trie rooted
	// at root, along with a Merkle
	// proof bracketing the range. An unknown root yields a nil slice and
	// nil proof, not an error.
	AccountRange(root, origin, limit common.Hash, maxBytes uint64) (accounts []*AccountData, proof [][]byte)

	// StorageRanges returns, for each requested account under root, the
	// storage slots in [origin, limit], plus a single proof for the last
	// account's range.
	StorageRanges(root common.Hash, accounts []common.Hash, origin, limit []byte, maxBytes uint64) (slots [][]*StorageData, proof [][]byte)

	// ByteCodes returns contract bytecode by codehash; a hash this store
	// has no code for is simply omitted from the result.
	ByteCodes(hashes []common.Hash, maxBytes uint64) [][]byte

	// TrieNodes returns raw trie node bytes by compact-encoded path,
	// rooted at root; a path with no matching node is omitted.
	TrieNodes(root common.Hash, paths []TrieNodePathSet, maxBytes uint64) [][]byte
}

// Backend bundles the collaborator a running snap protocol instance
// serves requests from.
type Backend struct {
	State StateStore
}
