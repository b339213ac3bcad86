package crypto

import (
	"bytes"
	"testing"
)

func TestSignAndRecover(t *testing.T) {
	prv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	digest := Keccak256([]byte("hello rlpx"))
	sig, err := Sign(digest, prv)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != SignatureLength {
		t.Fatalf("unexpected signature length %d", len(sig))
	}
	recovered, err := Ecrecover(digest, sig)
	if err != nil {
		t.Fatal(err)
	}
	want := FromECDSAPub(&prv.PublicKey)
	if !bytes.Equal(recovered, want) {
		t.Fatalf("recovered key mismatch:\ngot  %x\nwant %x", recovered, want)
	}
	if !VerifySignature(want, digest, sig[:64]) {
		t.Fatal("VerifySignature rejected a valid signature")
	}
}

func TestECIESRoundTrip(t *testing.T) {
	prv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("auth message payload")
	ct, err := Encrypt(&prv.PublicKey, msg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	pt, err := Decrypt(prv, ct, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, msg) {
		t.Fatalf("decrypted mismatch: got %q want %q", pt, msg)
	}
}

func TestECIESRejectsTamperedCiphertext(t *testing.T) {
	prv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	ct, err := Encrypt(&prv.PublicKey, []byte("payload"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ct[len(ct)-1] ^= 0xff
	if _, err := Decrypt(prv, ct, nil, nil); err == nil {
		t.Fatal("expected decrypt to fail on tampered ciphertext")
	}
}

func TestFromToECDSA(t *testing.T) {
	prv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	b := FromECDSA(prv)
	prv2, err := ToECDSA(b)
	if err != nil {
		t.Fatal(err)
	}
	if prv.D.Cmp(prv2.D) != 0 {
		t.Fatal("round-tripped private key mismatch")
	}
}
