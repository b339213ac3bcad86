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
	"bytes"
	"math/big"
	"testing"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/rlp"
)

func TestSlimAccountOmitsEmptySentinels(t *testing.T) {
	acc := Account{Nonce: 7, Balance: big.NewInt(42), Root: emptyRoot, CodeHash: emptyCode}
	enc, err := SlimAccountRLP(acc)
	if err != nil {
		t.Fatal(err)
	}
	var s slimAccount
	if err := rlp.DecodeBytes(enc, &s); err != nil {
		t.Fatal(err)
	}
	if len(s.Root) != 0 || len(s.CodeHash) != 0 {
		t.Fatalf("expected empty-trie/empty-code to be omitted, got root=%x codeHash=%x", s.Root, s.CodeHash)
	}
}

func TestSlimFullAccountRoundTrip(t *testing.T) {
	contractHash := common.BytesToHash([]byte("contract root"))
	codeHash := []byte("some code hash....some code hash")
	acc := Account{Nonce: 3, Balance: big.NewInt(1000), Root: contractHash, CodeHash: codeHash}

	enc, err := SlimAccountRLP(acc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := FullAccountRLP(enc)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nonce != acc.Nonce || got.Balance.Cmp(acc.Balance) != 0 {
		t.Fatalf("nonce/balance mismatch: got %+v want %+v", got, acc)
	}
	if got.Root != acc.Root {
		t.Fatalf("root mismatch: got %x want %x", got.Root, acc.Root)
	}
	if !bytes.Equal(got.CodeHash, acc.CodeHash) {
		t.Fatalf("codeHash mismatch: got %x want %x", got.CodeHash, acc.CodeHash)
	}
}

func TestFullAccountExpandsEmptySentinels(t *testing.T) {
	acc := Account{Nonce: 1, Balance: big.NewInt(0)}
	enc, err := SlimAccountRLP(acc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := FullAccountRLP(enc)
	if err != nil {
		t.Fatal(err)
	}
	if got.Root != emptyRoot {
		t.Fatalf("expected empty root sentinel, got %x", got.Root)
	}
	if !bytes.Equal(got.CodeHash, emptyCode) {
		t.Fatalf("expected empty code sentinel, got %x", got.CodeHash)
	}
}
