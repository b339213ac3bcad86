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
	"math/big"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/crypto"
	"github.com/nodalchain/nodalchain/rlp"
)

// emptyRoot and emptyCode are the well-known hashes of an empty Merkle
// trie node and an empty byte string, the two values the slim account
// encoding omits when present.
var (
	emptyRoot = common.BytesToHash(crypto.Keccak256([]byte{0x80}))
	emptyCode = crypto.Keccak256(nil)
)

// slimAccount is the wire form AccountData.Body carries: Root/CodeHash
// are nil (zero-length RLP string) when they equal the empty-trie /
// empty-code sentinel, saving 64 bytes on the overwhelming majority of
// externally owned accounts.
type slimAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     []byte
	CodeHash []byte
}

// SlimAccountRLP encodes acc in the space-saving slim form used on the
// wire.
func SlimAccountRLP(acc Account) ([]byte, error) {
	s := slimAccount{Nonce: acc.Nonce, Balance: acc.Balance}
	if acc.Root != emptyRoot && !acc.Root.IsZero() {
		s.Root = acc.Root.Bytes()
	}
	if len(acc.CodeHash) != 0 && string(acc.CodeHash) != string(emptyCode) {
		s.CodeHash = acc.CodeHash
	}
	return rlp.EncodeToBytes(&s)
}

// FullAccountRLP expands a slim-encoded account body, replacing an absent
// Root/CodeHash with the empty-trie/empty-code sentinel, and returns the
// canonical 4-field account the full state trie stores.
func FullAccountRLP(slim []byte) (Account, error) {
	var s slimAccount
	if err := rlp.DecodeBytes(slim, &s); err != nil {
		return Account{}, err
	}
	acc := Account{Nonce: s.Nonce, Balance: s.Balance, CodeHash: s.CodeHash}
	if len(s.Root) == 0 {
		acc.Root = emptyRoot
	} else {
		acc.Root = common.BytesToHash(s.Root)
	}
	if len(acc.CodeHash) == 0 {
		acc.CodeHash = emptyCode
	}
	return acc, nil
}
