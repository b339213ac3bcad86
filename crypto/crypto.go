// Package crypto provides the secp256k1/Keccak256 primitives used by the
// RLPx handshake and the node identity scheme: key generation, signing and
// recovery, and the ECIES encryption used for the auth/ack handshake
// messages. It wraps github.com/btcsuite/btcd/btcec/v2 for curve arithmetic
// and golang.org/x/crypto/sha3 for Keccak256, rather than reimplementing
// either, the way the upstream node's crypto package wraps libsecp256k1.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

const (
	// DigestLength is the length of a Keccak256 hash in bytes.
	DigestLength = 32
	// SignatureLength is the length of an ECDSA signature including the
	// recovery id byte.
	SignatureLength = 64 + 1
)

// S256 returns the secp256k1 curve used throughout RLPx.
func S256() elliptic.Curve {
	return btcec.S256()
}

// Keccak256 returns the Keccak256 hash of the concatenation of the input
// slices.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash returns the Keccak256 hash as a fixed-size array, useful for
// node ID derivation.
func Keccak256Hash(data ...[]byte) (h [DigestLength]byte) {
	copy(h[:], Keccak256(data...))
	return h
}

// NewKeccakState returns a fresh Keccak256 hash.Hash, used to seed the
// RLPx frame MAC states.
func NewKeccakState() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

// GenerateKey generates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return key.ToECDSA(), nil
}

// ToECDSA converts a private key byte slice into an ecdsa.PrivateKey.
func ToECDSA(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("crypto: invalid private key length %d", len(d))
	}
	priv, _ := btcec.PrivKeyFromBytes(d)
	return priv.ToECDSA(), nil
}

// FromECDSA exports a private key into a 32 byte slice.
func FromECDSA(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return priv.D.FillBytes(make([]byte, 32))
}

// FromECDSAPub marshals a public key in the 65-byte uncompressed form
// (0x04 || X || Y).
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(S256(), pub.X, pub.Y)
}

// UnmarshalPubkey parses a public key in the 65-byte uncompressed form.
func UnmarshalPubkey(pub []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(S256(), pub)
	if x == nil {
		return nil, errors.New("crypto: invalid public key")
	}
	return &ecdsa.PublicKey{Curve: S256(), X: x, Y: y}, nil
}

// Sign creates a recoverable ECDSA signature. The produced signature is in
// the 65-byte [R || S || V] format where V is 0 or 1, matching the format
// used in the RLPx auth message (signed(ephemeral-key) || ...).
func Sign(digest []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(digest) != DigestLength {
		return nil, fmt.Errorf("crypto: hash is required to be exactly %d bytes (%d)", DigestLength, len(digest))
	}
	priv, _ := btcec.PrivKeyFromBytes(FromECDSA(prv))
	compact := btcecdsa.SignCompact(priv, digest, false)
	// compact is [recovery_id+27, R, S]; rearrange to [R || S || V].
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27
	return sig, nil
}

// Ecrecover returns the uncompressed public key (65 bytes) that created the
// given signature.
func Ecrecover(digest, sig []byte) ([]byte, error) {
	pub, err := SigToPub(digest, sig)
	if err != nil {
		return nil, err
	}
	return FromECDSAPub(pub), nil
}

// SigToPub recovers the public key from a [R || S || V] signature.
func SigToPub(digest, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, errors.New("crypto: invalid signature length")
	}
	compact := make([]byte, SignatureLength)
	compact[0] = sig[64] + 27
	copy(compact[1:], sig[:64])

	pub, _, err := btcecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return nil, err
	}
	return pub.ToECDSA(), nil
}

// VerifySignature checks that sig (in [R || S] or [R || S || V] form) is a
// valid signature of digest by the given 65-byte uncompressed public key.
func VerifySignature(pubkey, digest, sig []byte) bool {
	if len(sig) < 64 {
		return false
	}
	pub, err := UnmarshalPubkey(pubkey)
	if err != nil {
		return false
	}
	r := new(btcec.ModNScalar)
	r.SetByteSlice(sig[:32])
	s := new(btcec.ModNScalar)
	s.SetByteSlice(sig[32:64])
	signature := btcecdsa.NewSignature(r, s)

	btcpub, err := btcec.ParsePubKey(FromECDSACompressed(pub))
	if err != nil {
		return false
	}
	return signature.Verify(digest, btcpub)
}

// FromECDSACompressed returns the 33-byte compressed form of a public key.
func FromECDSACompressed(pub *ecdsa.PublicKey) []byte {
	return elliptic.MarshalCompressed(S256(), pub.X, pub.Y)
}

// randReader is the randomness source for the ECIES IV in Encrypt; a
// package-level var so tests can substitute a deterministic reader.
var randReader io.Reader = rand.Reader
