package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"io"
)

// ErrInvalidMessage is returned by Decrypt when the ciphertext is malformed
// or its MAC does not verify.
var ErrInvalidMessage = errors.New("crypto: invalid ECIES message")

// EciesOverhead is the number of bytes ECIES adds on top of the plaintext:
// a 65-byte uncompressed ephemeral public key, a 16-byte IV, and a 32-byte
// HMAC-SHA256 tag.
const EciesOverhead = 65 + 16 + 32

// Encrypt implements the ECIES scheme used by the RLPx handshake: an
// ephemeral keypair is generated, its shared secret with pub is used to
// derive an AES-CTR key and an HMAC-SHA256 key via a simple KDF, and the
// ciphertext is tagged with an HMAC over the IV and ciphertext. s1 is
// unused; s2, when non-empty, is appended to the MAC input (the RLPx
// handshake passes the 2-byte EIP-8 length prefix as s2).
func Encrypt(pub *ecdsa.PublicKey, message, s1, s2 []byte) ([]byte, error) {
	ephPriv, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	ke, km, err := deriveKeys(ephPriv, pub)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, 16)
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return nil, err
	}
	ciphertext, err := aesCTR(ke, iv, message)
	if err != nil {
		return nil, err
	}

	ephPub := FromECDSAPub(&ephPriv.PublicKey)
	tag := macTag(km, iv, ciphertext, s2)

	out := make([]byte, 0, len(ephPub)+len(iv)+len(ciphertext)+len(tag))
	out = append(out, ephPub...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, tag...)
	return out, nil
}

// Decrypt reverses Encrypt using the local private key.
func Decrypt(prv *ecdsa.PrivateKey, msg, s1, s2 []byte) ([]byte, error) {
	if len(msg) < EciesOverhead {
		return nil, ErrInvalidMessage
	}
	ephPub, err := UnmarshalPubkey(msg[:65])
	if err != nil {
		return nil, ErrInvalidMessage
	}
	iv := msg[65:81]
	ciphertext := msg[81 : len(msg)-32]
	tag := msg[len(msg)-32:]

	ke, km, err := deriveKeys(prv, ephPub)
	if err != nil {
		return nil, err
	}
	want := macTag(km, iv, ciphertext, s2)
	if !hmac.Equal(want, tag) {
		return nil, ErrInvalidMessage
	}
	return aesCTR(ke, iv, ciphertext)
}

// deriveKeys computes the shared secret between priv and pub via ECDH, then
// splits a SHA256-based KDF output into an AES key and a MAC key, mirroring
// the two-key split used by the upstream node's ecies package.
func deriveKeys(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) (ke, km []byte, err error) {
	secret, err := GenerateShared(priv, pub)
	if err != nil {
		return nil, nil, err
	}
	k := concatKDF(secret, 32)
	ke = k[:16]
	kmRaw := sha256.Sum256(k[16:32])
	km = kmRaw[:]
	return ke, km, nil
}

// GenerateShared computes the X coordinate of priv*pub as a 32-byte secret.
func GenerateShared(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) ([]byte, error) {
	if pub == nil || pub.X == nil {
		return nil, errors.New("crypto: nil public key")
	}
	x, _ := S256().ScalarMult(pub.X, pub.Y, FromECDSA(priv))
	return x.FillBytes(make([]byte, 32)), nil
}

// concatKDF implements the NIST SP 800-56 concatenation KDF using SHA256,
// the same construction the handshake's predecessor used for AES/MAC key
// derivation.
func concatKDF(secret []byte, outLen int) []byte {
	out := make([]byte, 0, outLen)
	for counter := uint32(1); len(out) < outLen; counter++ {
		h := sha256.New()
		var ctr [4]byte
		ctr[0] = byte(counter >> 24)
		ctr[1] = byte(counter >> 16)
		ctr[2] = byte(counter >> 8)
		ctr[3] = byte(counter)
		h.Write(ctr[:])
		h.Write(secret)
		out = append(out, h.Sum(nil)...)
	}
	return out[:outLen]
}

func macTag(km, iv, ciphertext, shared2 []byte) []byte {
	mac := hmac.New(sha256.New, km)
	mac.Write(iv)
	mac.Write(ciphertext)
	if len(shared2) > 0 {
		mac.Write(shared2)
	}
	return mac.Sum(nil)
}

func aesCTR(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}
