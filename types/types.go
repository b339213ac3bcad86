// Package types defines the minimal chain data model needed to encode and
// decode wire messages: headers, blocks, transactions and receipts. It
// intentionally omits EVM execution, state tries and signature validation —
// those live in an external collaborator; this package only needs to
// round-trip RLP and expose the handful of accessors the protocol layers
// use for routing and logging.
package types

import (
	"fmt"
	"io"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/nodalchain/nodalchain/common"
	"github.com/nodalchain/nodalchain/crypto"
	"github.com/nodalchain/nodalchain/rlp"
)

// Header represents a block header.
type Header struct {
	ParentHash  common.Hash
	UncleHash   common.Hash
	Coinbase    common.Address
	Root        common.Hash
	TxHash      common.Hash
	ReceiptHash common.Hash
	Bloom       [256]byte
	Difficulty  *uint256.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   common.Hash
	Nonce       [8]byte

	// BaseFee is non-nil from the London fork onward (EIP-1559).
	BaseFee *big.Int `rlp:"tail"`
}

// Hash returns the keccak256 hash of the RLP encoding of the header. It is
// not cached since this package is wire-only and headers here are
// short-lived decode targets.
func (h *Header) Hash() common.Hash {
	enc, _ := rlp.EncodeToBytes(h)
	return common.Hash(crypto.Keccak256Hash(enc))
}

// NumberU64 returns the block number as a uint64.
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}

// Body holds the non-header parts of a block relevant to wire encoding:
// the full transaction list and uncle headers.
type Body struct {
	Transactions []*Transaction
	Uncles       []*Header
}

// Block is a header paired with its body; it encodes as the full-block
// wire shape [header, transactions, uncles] (see extblock).
type Block struct {
	header       *Header
	transactions []*Transaction
	uncles       []*Header
}

// NewBlock assembles a Block from a header and body, copying none of the
// inputs — callers must not mutate them afterwards.
func NewBlock(header *Header, txs []*Transaction, uncles []*Header) *Block {
	return &Block{header: header, transactions: txs, uncles: uncles}
}

func (b *Block) Header() *Header              { return b.header }
func (b *Block) Transactions() []*Transaction { return b.transactions }
func (b *Block) Uncles() []*Header            { return b.uncles }
func (b *Block) Hash() common.Hash            { return b.header.Hash() }
func (b *Block) NumberU64() uint64            { return b.header.NumberU64() }

// "external" RLP encoding of a Block matches go-ethereum's wire shape:
// [header, transactions, uncles].
type extblock struct {
	Header *Header
	Txs    []*Transaction
	Uncles []*Header
}

func (b *Block) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &extblock{Header: b.header, Txs: b.transactions, Uncles: b.uncles})
}

func (b *Block) DecodeRLP(s *rlp.Stream) error {
	var eb extblock
	if err := s.Decode(&eb); err != nil {
		return err
	}
	b.header, b.transactions, b.uncles = eb.Header, eb.Txs, eb.Uncles
	return nil
}

// TxType enumerates the EIP-2718 typed transaction envelope kinds this
// module recognizes on the wire.
type TxType byte

const (
	LegacyTxType TxType = iota
	AccessListTxType
	DynamicFeeTxType
	BlobTxType
)

// Transaction is a thin typed-envelope wrapper: for the wire layer's
// purposes a transaction is its type tag plus an opaque RLP payload for
// the type-specific fields, plus the handful of accessors request-serving
// code needs (hash, size, type).
type Transaction struct {
	typ  TxType
	hash common.Hash

	// inner carries the type-specific fields (nonce, gas, value, data,
	// signature, ...). It is kept as a raw RLP value so this package
	// does not need to know every transaction type's exact field set —
	// callers that need full semantics decode it with their own richer
	// types package.
	inner rlp.RawValue
}

func NewTransaction(typ TxType, inner rlp.RawValue) *Transaction {
	tx := &Transaction{typ: typ, inner: inner}
	tx.hash = common.Hash(crypto.Keccak256Hash(tx.marshalBinary()))
	return tx
}

func (tx *Transaction) Type() TxType      { return tx.typ }
func (tx *Transaction) Hash() common.Hash { return tx.hash }
func (tx *Transaction) Size() int         { return len(tx.inner) + 1 }

func (tx *Transaction) marshalBinary() []byte {
	if tx.typ == LegacyTxType {
		return tx.inner
	}
	return append([]byte{byte(tx.typ)}, tx.inner...)
}

// EncodeRLP implements rlp.Encoder using the EIP-2718 typed-envelope
// convention: legacy transactions encode as a bare RLP list, typed
// transactions encode as an RLP string wrapping (type-byte || payload).
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	if tx.typ == LegacyTxType {
		_, err := w.Write(tx.inner)
		return err
	}
	return rlp.Encode(w, tx.marshalBinary())
}

// DecodeRLP implements rlp.Decoder. A legacy transaction is encoded as a
// bare RLP list (leading byte >= 0xc0); a typed transaction is wrapped in
// an RLP string whose first content byte is the type tag.
func (tx *Transaction) DecodeRLP(s *rlp.Stream) error {
	raw, err := s.Raw()
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("types: empty transaction encoding")
	}
	if raw[0] >= 0xc0 {
		tx.typ = LegacyTxType
		tx.inner = append(rlp.RawValue(nil), raw...)
	} else {
		var wrapped []byte
		if err := rlp.DecodeBytes(raw, &wrapped); err != nil {
			return err
		}
		if len(wrapped) == 0 {
			return fmt.Errorf("types: empty typed transaction envelope")
		}
		tx.typ = TxType(wrapped[0])
		tx.inner = append(rlp.RawValue(nil), wrapped[1:]...)
	}
	tx.hash = common.Hash(crypto.Keccak256Hash(tx.marshalBinary()))
	return nil
}

// Receipt is the minimal wire-round-trip form of a transaction receipt.
type Receipt struct {
	Type              TxType
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             [256]byte
	Logs              []*Log
}

// Log is a single EVM log entry.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}
