// Package nostrkey implements NIP-01 secp256k1/Schnorr key material and
// NIP-19 bech32 (npub/nsec) encoding for the identity subsystem: key
// generation, bech32 codec, and Schnorr signing, independent of whatever
// relay transport ends up publishing the result.
package nostrkey

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/nostr-mcp/goostr/internal/apperr"
)

const (
	HRPPublic  = "npub"
	HRPPrivate = "nsec"
	keyLen     = 32
)

// KeyPair holds a freshly generated identity's raw material.
type KeyPair struct {
	PrivateKey []byte // 32 bytes
	PublicKey  []byte // 32 bytes, x-only per BIP-340
}

// Generate creates a new random secp256k1 key pair.
func Generate() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "generating key", err)
	}
	pub := schnorr.SerializePubKey(priv.PubKey())
	return &KeyPair{PrivateKey: priv.Serialize(), PublicKey: pub}, nil
}

// PublicKeyFromPrivate derives the x-only public key for a 32-byte secret.
func PublicKeyFromPrivate(priv []byte) ([]byte, error) {
	if len(priv) != keyLen {
		return nil, apperr.Newf(apperr.InvalidParams, "private key must be %d bytes", keyLen)
	}
	_, pub := btcec.PrivKeyFromBytes(priv)
	return schnorr.SerializePubKey(pub), nil
}

// Sign produces a BIP-340 Schnorr signature over a 32-byte message hash.
func Sign(priv []byte, hash []byte) ([]byte, error) {
	if len(priv) != keyLen {
		return nil, apperr.Newf(apperr.InvalidParams, "private key must be %d bytes", keyLen)
	}
	p, _ := btcec.PrivKeyFromBytes(priv)
	sig, err := schnorr.Sign(p, hash, schnorr.FastSign())
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "signing", err)
	}
	return sig.Serialize(), nil
}

// EncodeBech32 encodes 32 raw bytes under the given human-readable prefix.
func EncodeBech32(hrp string, data []byte) (string, error) {
	converted, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "converting bits for bech32", err)
	}
	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "bech32 encode", err)
	}
	return encoded, nil
}

// DecodeBech32 reverses EncodeBech32, returning the decoded raw bytes and
// the human-readable prefix actually found in s. The length of the decoded
// data is not checked.
func DecodeBech32(s string) (hrp string, data []byte, err error) {
	hrp, values, err := bech32.Decode(s)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.InvalidParams, "bech32 decode", err)
	}
	raw, err := bech32.ConvertBits(values, 5, 8, false)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.InvalidParams, "converting bits from bech32", err)
	}
	return hrp, raw, nil
}

func Npub(pub []byte) (string, error)  { return EncodeBech32(HRPPublic, pub) }
func Nsec(priv []byte) (string, error) { return EncodeBech32(HRPPrivate, priv) }
