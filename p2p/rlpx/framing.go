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
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/nodalchain/nodalchain/rlp"
)

const (
	frameHeaderSize     = 16 // encoded header, before padding/MAC
	frameHeaderFullSize = 32 // encoded header + its MAC
	maxUint24           = 1<<24 - 1
)

var zero16 = make([]byte, 16)

// frameCodec implements the AES-CTR encryption and keccak-running-MAC
// scheme used to authenticate every RLPx frame. There is no chunking: a
// frame is exactly one devp2p message, optionally larger than any fixed
// buffer size, so framing only deals with header + padded body + MAC.
type frameCodec struct {
	macCipher cipher.Block

	enc       cipher.Stream
	egressMAC hash.Hash

	dec        cipher.Stream
	ingressMAC hash.Hash
}

func newFrameCodec(s secrets) *frameCodec {
	macc, err := aes.NewCipher(s.MAC)
	if err != nil {
		panic("rlpx: invalid MAC secret: " + err.Error())
	}
	encc, err := aes.NewCipher(s.AES)
	if err != nil {
		panic("rlpx: invalid AES secret: " + err.Error())
	}
	// An all-zero IV is safe here because the AES key is single-use,
	// derived fresh for every handshake.
	iv := make([]byte, encc.BlockSize())
	return &frameCodec{
		macCipher:  macc,
		enc:        cipher.NewCTR(encc, iv),
		dec:        cipher.NewCTR(encc, iv),
		egressMAC:  s.EgressMAC,
		ingressMAC: s.IngressMAC,
	}
}

// writeFrame encrypts and sends content as a single RLPx frame.
func (f *frameCodec) writeFrame(conn io.Writer, content []byte) error {
	if len(content) > maxUint24 {
		return errors.New("rlpx: frame content too large")
	}
	headbuf := make([]byte, frameHeaderSize)
	putInt24(headbuf, uint32(len(content)))
	// Header is [size(3) || rlp([]) (1 byte 0xc0) || zero-padding]; the
	// second list element used to carry capability-id/context-id in the
	// old chunked protocol no longer applies, so the header list is
	// always empty.
	headbuf[3] = 0xc0
	f.enc.XORKeyStream(headbuf, headbuf)
	headMAC := updateMAC(f.egressMAC, f.macCipher, headbuf)

	wbuf := make([]byte, 0, frameHeaderFullSize+len(content)+16+16)
	wbuf = append(wbuf, headbuf...)
	wbuf = append(wbuf, headMAC...)

	bodyStart := len(wbuf)
	wbuf = append(wbuf, content...)
	if padding := len(content) % 16; padding > 0 {
		wbuf = append(wbuf, zero16[:16-padding]...)
	}
	f.enc.XORKeyStream(wbuf[bodyStart:], wbuf[bodyStart:])
	f.egressMAC.Write(wbuf[bodyStart:])
	bodyMAC := updateMAC(f.egressMAC, f.macCipher, f.egressMAC.Sum(nil))
	wbuf = append(wbuf, bodyMAC...)

	_, err := conn.Write(wbuf)
	return err
}

// readFrame reads and decrypts a single RLPx frame, returning its content.
func (f *frameCodec) readFrame(conn io.Reader) ([]byte, error) {
	headbuf := make([]byte, frameHeaderFullSize)
	if _, err := io.ReadFull(conn, headbuf); err != nil {
		return nil, err
	}
	shouldMAC := updateMAC(f.ingressMAC, f.macCipher, headbuf[:frameHeaderSize])
	if !hmac.Equal(shouldMAC, headbuf[frameHeaderSize:]) {
		return nil, errors.New("rlpx: bad header MAC")
	}
	f.dec.XORKeyStream(headbuf[:frameHeaderSize], headbuf[:frameHeaderSize])
	fsize := readInt24(headbuf)
	if fsize > maxUint24 {
		return nil, fmt.Errorf("rlpx: frame size %d exceeds maximum", fsize)
	}

	rsize := fsize // rounded up to the next 16-byte boundary
	if padding := fsize % 16; padding > 0 {
		rsize += 16 - padding
	}
	framebuf := make([]byte, rsize+16)
	if _, err := io.ReadFull(conn, framebuf); err != nil {
		return nil, err
	}
	body, mac := framebuf[:rsize], framebuf[rsize:]
	f.ingressMAC.Write(body)
	shouldMAC = updateMAC(f.ingressMAC, f.macCipher, f.ingressMAC.Sum(nil))
	if !hmac.Equal(shouldMAC, mac) {
		return nil, errors.New("rlpx: bad frame body MAC")
	}
	f.dec.XORKeyStream(body, body)
	return body[:fsize], nil
}

// updateMAC reseeds mac with an AES-encrypted copy of its current digest
// XORed with seed, then returns the first 16 bytes of the updated digest.
// This is the running-MAC construction from the RLPx spec: the MAC state
// never simply hashes plaintext, it is repeatedly folded through the block
// cipher so that header and body MACs cannot be computed independently of
// frame order.
func updateMAC(mac hash.Hash, block cipher.Block, seed []byte) []byte {
	aesbuf := make([]byte, aes.BlockSize)
	block.Encrypt(aesbuf, mac.Sum(nil))
	for i := range aesbuf {
		aesbuf[i] ^= seed[i]
	}
	mac.Write(aesbuf)
	return mac.Sum(nil)[:16]
}

func readInt24(b []byte) uint32 {
	return uint32(b[2]) | uint32(b[1])<<8 | uint32(b[0])<<16
}

func putInt24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// joinFrameCode prepends the RLP encoding of the devp2p message code to
// data, producing the bytes that become one frame's content.
func joinFrameCode(code uint64, data []byte) []byte {
	codeBytes, _ := rlp.EncodeToBytes(code)
	out := make([]byte, 0, len(codeBytes)+len(data))
	out = append(out, codeBytes...)
	out = append(out, data...)
	return out
}

// splitFrameCode parses the leading RLP-encoded message code from frame
// content and returns it along with the remaining payload bytes.
func splitFrameCode(frame []byte) (code uint64, rest []byte, err error) {
	s := rlp.NewStream(bytes.NewReader(frame), uint64(len(frame)))
	if err := s.Decode(&code); err != nil {
		return 0, nil, fmt.Errorf("rlpx: invalid message code: %w", err)
	}
	codeSize := rlp.IntSize(code)
	if codeSize > len(frame) {
		return 0, nil, errors.New("rlpx: truncated frame")
	}
	return code, frame[codeSize:], nil
}
