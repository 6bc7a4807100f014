package nostrkey

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func TestGenerateAndBech32RoundTrip(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(kp.PrivateKey) != keyLen || len(kp.PublicKey) != keyLen {
		t.Fatalf("unexpected key lengths: priv=%d pub=%d", len(kp.PrivateKey), len(kp.PublicKey))
	}

	npub, err := Npub(kp.PublicKey)
	if err != nil {
		t.Fatalf("npub encode: %v", err)
	}
	nsec, err := Nsec(kp.PrivateKey)
	if err != nil {
		t.Fatalf("nsec encode: %v", err)
	}

	hrp, data, err := DecodeBech32(npub)
	if err != nil {
		t.Fatalf("npub decode: %v", err)
	}
	if hrp != HRPPublic || !bytes.Equal(data, kp.PublicKey) {
		t.Fatalf("npub round trip mismatch")
	}

	hrp, data, err = DecodeBech32(nsec)
	if err != nil {
		t.Fatalf("nsec decode: %v", err)
	}
	if hrp != HRPPrivate || !bytes.Equal(data, kp.PrivateKey) {
		t.Fatalf("nsec round trip mismatch")
	}
}

func TestPublicKeyFromPrivateMatchesGenerate(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	derived, err := PublicKeyFromPrivate(kp.PrivateKey)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(derived, kp.PublicKey) {
		t.Fatal("derived public key does not match generated pair")
	}
}

func TestSignProducesSixtyFourBytes(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	hash := sha256.Sum256([]byte("hello nostr"))
	sig, err := Sign(kp.PrivateKey, hash[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("expected 64-byte signature, got %d", len(sig))
	}
}

func TestPublicKeyFromPrivateRejectsWrongLength(t *testing.T) {
	if _, err := PublicKeyFromPrivate([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short private key")
	}
}
