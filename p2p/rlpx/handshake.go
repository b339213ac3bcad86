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

package rlpx

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"hash"
	"io"

	"github.com/nodalchain/nodalchain/crypto"
	"github.com/nodalchain/nodalchain/rlp"
)

const (
	sigLen = crypto.SignatureLength // 65
	pubLen = 64                     // 512 bit public key, no format byte
	shaLen = 32                     // hash/nonce length

	authMsgLen  = sigLen + shaLen + pubLen + shaLen + 1
	authRespLen = pubLen + shaLen + 1

	eip8AuthMinPad  = 100
	eip8AuthRespPad = 100
)

// encHandshake carries the state needed to negotiate the RLPx connection
// secrets. The initiator always sends the EIP-8 (RLP-wrapped, length
// prefixed) auth message. On receipt, readHandshakeMsg first tries to
// decrypt a legacy fixed-length packet and falls back to EIP-8 framing, but
// the decrypted auth and auth-ack bodies are always decoded as EIP-8 RLP, so
// a legacy (non-RLP) handshake message is rejected.
type encHandshake struct {
	initiator            bool
	remotePub            *ecdsa.PublicKey
	initNonce, respNonce []byte
	randomPrivKey        *ecdsa.PrivateKey
	remoteRandomPub      *ecdsa.PublicKey
}

// secrets holds the per-direction keys derived once the handshake
// completes.
type secrets struct {
	RemoteID              *ecdsa.PublicKey
	AES, MAC              []byte
	EgressMAC, IngressMAC hash.Hash
}

// authMsgV4 is the RLP structure of the EIP-8 auth message. Extra list
// elements from future protocol versions are tolerated via the Rest field.
type authMsgV4 struct {
	Signature       [sigLen]byte
	InitiatorPubkey [pubLen]byte
	Nonce           [shaLen]byte
	Version         uint

	Rest []rlp.RawValue `rlp:"tail"`
}

// authRespV4 is the RLP structure of the EIP-8 auth-ack message.
type authRespV4 struct {
	RandomPubkey [pubLen]byte
	Nonce        [shaLen]byte
	Version      uint

	Rest []rlp.RawValue `rlp:"tail"`
}

const handshakeVersion = 4

// initiatorEncHandshake runs the dialing side of the handshake on conn.
func initiatorEncHandshake(conn io.ReadWriter, prv *ecdsa.PrivateKey, remoteID *ecdsa.PublicKey) (secrets, error) {
	h, err := newInitiatorHandshake(remoteID)
	if err != nil {
		return secrets{}, err
	}
	authPacket, err := h.sealEIP8(h.authMsg(prv))
	if err != nil {
		return secrets{}, err
	}
	if _, err := conn.Write(authPacket); err != nil {
		return secrets{}, err
	}

	authRespPacket, resp, err := readHandshakeMsg(conn, authRespLen+crypto.EciesOverhead, prv)
	if err != nil {
		return secrets{}, err
	}
	if err := h.decodeAuthResp(resp); err != nil {
		return secrets{}, err
	}
	return h.secrets(authPacket, authRespPacket)
}

func newInitiatorHandshake(remoteID *ecdsa.PublicKey) (*encHandshake, error) {
	nonce := make([]byte, shaLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ephKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &encHandshake{
		initiator:     true,
		remotePub:     remoteID,
		initNonce:     nonce,
		randomPrivKey: ephKey,
	}, nil
}

// authMsg builds the plaintext auth message.
//
//	signed(ecdhe-random-privkey, keccak256(static-shared-secret ^ nonce))
//	|| ecdhe-random-pubkey || nonce || version
func (h *encHandshake) authMsg(prv *ecdsa.PrivateKey) *authMsgV4 {
	staticShared, _ := crypto.GenerateShared(prv, h.remotePub)
	token := crypto.Keccak256(staticShared)
	signed := xor(token, h.initNonce)
	signature, _ := crypto.Sign(signed, h.randomPrivKey)

	msg := new(authMsgV4)
	copy(msg.Signature[:], signature)
	copy(msg.InitiatorPubkey[:], crypto.FromECDSAPub(&prv.PublicKey)[1:])
	copy(msg.Nonce[:], h.initNonce)
	msg.Version = handshakeVersion
	return msg
}

// decodeAuthResp parses the auth-ack message after EIP-8/legacy framing has
// already been stripped by readHandshakeMsg.
func (h *encHandshake) decodeAuthResp(plain []byte) error {
	var resp authRespV4
	if err := rlp.DecodeBytes(plain, &resp); err != nil {
		return fmt.Errorf("rlpx: invalid auth-ack message: %w", err)
	}
	pub, err := importPublicKey(resp.RandomPubkey[:])
	if err != nil {
		return err
	}
	h.remoteRandomPub = pub
	h.respNonce = append([]byte{}, resp.Nonce[:]...)
	return nil
}

// receiverEncHandshake runs the listening side of the handshake on conn.
func receiverEncHandshake(conn io.ReadWriter, prv *ecdsa.PrivateKey) (secrets, error) {
	authPacket, plain, err := readHandshakeMsg(conn, authMsgLen+crypto.EciesOverhead, prv)
	if err != nil {
		return secrets{}, err
	}
	h, err := decodeAuthMsg(prv, plain)
	if err != nil {
		return secrets{}, err
	}

	respPacket, err := h.sealEIP8(h.authResp())
	if err != nil {
		return secrets{}, err
	}
	if _, err := conn.Write(respPacket); err != nil {
		return secrets{}, err
	}
	return h.secrets(authPacket, respPacket)
}

func decodeAuthMsg(prv *ecdsa.PrivateKey, plain []byte) (*encHandshake, error) {
	var msg authMsgV4
	if err := rlp.DecodeBytes(plain, &msg); err != nil {
		return nil, fmt.Errorf("rlpx: invalid auth message: %w", err)
	}

	h := new(encHandshake)
	ephKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	h.randomPrivKey = ephKey
	h.respNonce = make([]byte, shaLen)
	if _, err := rand.Read(h.respNonce); err != nil {
		return nil, err
	}

	remotePub, err := importPublicKey(msg.InitiatorPubkey[:])
	if err != nil {
		return nil, fmt.Errorf("rlpx: bad remote identity: %w", err)
	}
	h.remotePub = remotePub
	h.initNonce = append([]byte{}, msg.Nonce[:]...)

	staticShared, err := crypto.GenerateShared(prv, remotePub)
	if err != nil {
		return nil, err
	}
	token := crypto.Keccak256(staticShared)
	signed := xor(token, h.initNonce)
	remoteRandomPubBytes, err := crypto.Ecrecover(signed, msg.Signature[:])
	if err != nil {
		return nil, fmt.Errorf("rlpx: could not recover ephemeral pubkey: %w", err)
	}
	remoteRandomPub, err := crypto.UnmarshalPubkey(remoteRandomPubBytes)
	if err != nil {
		return nil, err
	}
	h.remoteRandomPub = remoteRandomPub
	return h, nil
}

func (h *encHandshake) authResp() *authRespV4 {
	resp := new(authRespV4)
	copy(resp.RandomPubkey[:], crypto.FromECDSAPub(&h.randomPrivKey.PublicKey)[1:])
	copy(resp.Nonce[:], h.respNonce)
	resp.Version = handshakeVersion
	return resp
}

// secrets derives the AES/MAC keys and the seeded ingress/egress MAC hash
// states from the completed handshake, following the chain: ephemeral ECDH
// -> shared-secret -> aes-secret -> mac-secret -> seeded keccak states.
func (h *encHandshake) secrets(authPacket, authRespPacket []byte) (secrets, error) {
	ecdheSecret, err := crypto.GenerateShared(h.randomPrivKey, h.remoteRandomPub)
	if err != nil {
		return secrets{}, err
	}

	sharedSecret := crypto.Keccak256(ecdheSecret, crypto.Keccak256(h.respNonce, h.initNonce))
	aesSecret := crypto.Keccak256(ecdheSecret, sharedSecret)
	s := secrets{
		RemoteID: h.remotePub,
		AES:      aesSecret,
		MAC:      crypto.Keccak256(ecdheSecret, aesSecret),
	}

	mac1 := crypto.NewKeccakState()
	mac1.Write(xor(s.MAC, h.respNonce))
	mac1.Write(authPacket)
	mac2 := crypto.NewKeccakState()
	mac2.Write(xor(s.MAC, h.initNonce))
	mac2.Write(authRespPacket)
	if h.initiator {
		s.EgressMAC, s.IngressMAC = mac1, mac2
	} else {
		s.EgressMAC, s.IngressMAC = mac2, mac1
	}
	return s, nil
}

// sealEIP8 wraps msg in the RLP-encoded, length-prefixed, padded EIP-8
// envelope and encrypts it with ECIES under the remote static key.
func (h *encHandshake) sealEIP8(msg interface{}) ([]byte, error) {
	buf := new(bytesBuffer)
	if err := rlp.Encode(buf, msg); err != nil {
		return nil, err
	}
	// 100..250 random padding bytes.
	var n [1]byte
	if _, err := rand.Read(n[:]); err != nil {
		return nil, err
	}
	pad := eip8AuthMinPad + int(n[0])%151
	padding := make([]byte, pad)
	if _, err := rand.Read(padding); err != nil {
		return nil, err
	}
	buf.b = append(buf.b, padding...)

	prefix := make([]byte, 2)
	size := len(buf.b) + crypto.EciesOverhead
	prefix[0] = byte(size >> 8)
	prefix[1] = byte(size)

	enc, err := crypto.Encrypt(h.remotePub, buf.b, nil, prefix)
	if err != nil {
		return nil, err
	}
	return append(prefix, enc...), nil
}

// readHandshakeMsg reads either an EIP-8 or legacy fixed-size handshake
// packet, returning the exact bytes read (for MAC derivation) and the
// decrypted plaintext payload. legacySize is the total wire size of the
// legacy (non-EIP-8) packet for this message kind.
func readHandshakeMsg(r io.Reader, legacySize int, prv *ecdsa.PrivateKey) (packet, plain []byte, err error) {
	buf := make([]byte, legacySize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, nil, err
	}

	// Try the legacy framing first: it is a single ECIES ciphertext of
	// exactly legacySize bytes with no length prefix.
	if dec, err := crypto.Decrypt(prv, buf, nil, nil); err == nil {
		return buf, dec, nil
	}

	// Fall back to EIP-8: the first two bytes are a big-endian length
	// prefix covering the ciphertext that follows the prefix itself.
	prefix := buf[:2]
	size := int(prefix[0])<<8 | int(prefix[1])
	total := 2 + size
	if total < legacySize {
		return nil, nil, fmt.Errorf("rlpx: handshake size underflow: need at least %d bytes, prefix says %d", legacySize, total)
	}
	rest := make([]byte, total-legacySize)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, nil, err
	}
	packet = append(buf, rest...)
	dec, err := crypto.Decrypt(prv, packet[2:], nil, packet[:2])
	if err != nil {
		return nil, nil, err
	}
	return packet, dec, nil
}

// importPublicKey unmarshals a 64 or 65 byte public key.
func importPublicKey(pubKey []byte) (*ecdsa.PublicKey, error) {
	switch len(pubKey) {
	case 64:
		withPrefix := append([]byte{0x04}, pubKey...)
		return crypto.UnmarshalPubkey(withPrefix)
	case 65:
		return crypto.UnmarshalPubkey(pubKey)
	default:
		return nil, fmt.Errorf("rlpx: invalid public key length %d (want 64 or 65)", len(pubKey))
	}
}

func xor(one, other []byte) []byte {
	out := make([]byte, len(one))
	for i := range one {
		out[i] = one[i] ^ other[i]
	}
	return out
}

// bytesBuffer is a tiny io.Writer over a growable slice, avoiding a
// dependency on bytes.Buffer just to capture the RLP encoding before
// padding/encryption.
type bytesBuffer struct{ b []byte }

func (w *bytesBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
