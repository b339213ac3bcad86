// Package common provides the small set of fixed-size wire types shared by
// the RLPx transport and its subprotocols: 32-byte hashes and 20-byte
// addresses, with hex encoding helpers. It deliberately stays much smaller
// than a full execution-client "common" package — state, trie and account
// representations belong to the external collaborators described in the
// networking spec, not to the transport.
package common

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// HashLength is the expected length of the hash in bytes.
	HashLength = 32
	// AddressLength is the expected length of the address in bytes.
	AddressLength = 20
)

// Hash represents the 32 byte Keccak256 hash of arbitrary data.
type Hash [HashLength]byte

// BytesToHash sets b to hash. If b is larger than len(h), b will be cropped
// from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash sets byte representation of s to hash. If s is larger than
// len(h), s will be cropped from the left.
func HexToHash(s string) Hash { return BytesToHash(FromHex(s)) }

// SetBytes sets the hash to the value of b. If b is larger than len(h), b
// will be cropped from the left.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns a 0x-prefixed hex string representation of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is the all-zero value.
func (h Hash) IsZero() bool { return h == Hash{} }

// Address represents the 20 byte address of an Ethereum account.
type Address [AddressLength]byte

// BytesToAddress sets b to address. If b is larger than len(a), b will be
// cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress sets byte representation of s to address.
func HexToAddress(s string) Address { return BytesToAddress(FromHex(s)) }

// SetBytes sets the address to the value of b.
func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

func (a Address) Bytes() []byte { return a[:] }
func (a Address) Hex() string   { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) String() string { return a.Hex() }

// FromHex decodes a hex string, accepting an optional 0x prefix.
func FromHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// Bytes2Hex returns the hexadecimal encoding of b.
func Bytes2Hex(b []byte) string { return hex.EncodeToString(b) }

// Big converts a hash to a big.Int.
func (h Hash) Big() *big.Int { return new(big.Int).SetBytes(h[:]) }

// String implements fmt.Stringer for a slice of hashes, used by tests and
// log output.
type HashList []Hash

func (hl HashList) String() string {
	return fmt.Sprintf("%d hashes", len(hl))
}
