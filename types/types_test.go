package types

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/rlp"
)

func legacyTxRLP(t *testing.T, nonce uint64) []byte {
	t.Helper()
	enc, err := rlp.EncodeToBytes([]interface{}{nonce, big.NewInt(1), uint64(21000), common.Address{}, big.NewInt(0), []byte{}})
	if err != nil {
		t.Fatal(err)
	}
	return enc
}

func TestLegacyTransactionRoundTrip(t *testing.T) {
	raw := legacyTxRLP(t, 7)
	tx := NewTransaction(LegacyTxType, rlp.RawValue(raw))

	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		t.Fatal(err)
	}
	// A legacy transaction must be a bare RLP list on the wire, not a
	// string-wrapped envelope.
	if enc[0] < 0xc0 {
		t.Fatalf("legacy transaction must encode as a bare list, got leading byte %#x", enc[0])
	}

	var decoded Transaction
	if err := rlp.DecodeBytes(enc, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type() != LegacyTxType {
		t.Fatalf("decoded type = %d, want LegacyTxType", decoded.Type())
	}
	if decoded.Hash() != tx.Hash() {
		t.Fatalf("decoded hash mismatch: got %x want %x", decoded.Hash(), tx.Hash())
	}
}

func TestTypedTransactionRoundTrip(t *testing.T) {
	raw := legacyTxRLP(t, 3)
	tx := NewTransaction(DynamicFeeTxType, rlp.RawValue(raw))

	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		t.Fatal(err)
	}
	// A typed transaction must be wrapped as an RLP string, so its
	// leading byte can never be a list prefix.
	if enc[0] >= 0xc0 {
		t.Fatalf("typed transaction must not encode as a bare list, got leading byte %#x", enc[0])
	}

	var decoded Transaction
	if err := rlp.DecodeBytes(enc, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type() != DynamicFeeTxType {
		t.Fatalf("decoded type = %d, want DynamicFeeTxType", decoded.Type())
	}
	if decoded.Hash() != tx.Hash() {
		t.Fatalf("decoded hash mismatch: got %x want %x", decoded.Hash(), tx.Hash())
	}
}

func TestHeaderHashIsStableAndDependsOnFields(t *testing.T) {
	h1 := &Header{Number: big.NewInt(1), Difficulty: uint256.NewInt(100), GasLimit: 30_000_000}
	h2 := &Header{Number: big.NewInt(1), Difficulty: uint256.NewInt(100), GasLimit: 30_000_000}
	if h1.Hash() != h2.Hash() {
		t.Fatal("identical headers must hash identically")
	}
	h3 := &Header{Number: big.NewInt(2), Difficulty: uint256.NewInt(100), GasLimit: 30_000_000}
	if h1.Hash() == h3.Hash() {
		t.Fatal("headers differing only in Number must hash differently")
	}
}

func TestHeaderNumberU64HandlesNilNumber(t *testing.T) {
	h := &Header{}
	if h.NumberU64() != 0 {
		t.Fatalf("NumberU64() on a header with nil Number = %d, want 0", h.NumberU64())
	}
}

func TestBlockRLPRoundTrip(t *testing.T) {
	header := &Header{Number: big.NewInt(5), Difficulty: uint256.NewInt(1)}
	tx := NewTransaction(LegacyTxType, rlp.RawValue(legacyTxRLP(t, 1)))
	block := NewBlock(header, []*Transaction{tx}, nil)

	enc, err := rlp.EncodeToBytes(block)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Block
	if err := rlp.DecodeBytes(enc, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.NumberU64() != block.NumberU64() {
		t.Fatalf("decoded block number = %d, want %d", decoded.NumberU64(), block.NumberU64())
	}
	if len(decoded.Transactions()) != 1 {
		t.Fatalf("expected 1 transaction after round trip, got %d", len(decoded.Transactions()))
	}
	if decoded.Transactions()[0].Hash() != tx.Hash() {
		t.Fatal("decoded transaction hash mismatch")
	}
	if !bytes.Equal(decoded.Header().Extra, block.Header().Extra) {
		t.Fatal("decoded header Extra mismatch")
	}
}
