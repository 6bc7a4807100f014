package signing

import (
	"context"

	"github.com/nostr-mcp/goostr/internal/nostrkey"
)

// LocalSigner signs with a private key held in process memory, sourced
// from the OS keyring when the active-client cache builds a client and
// kept until that cached client is invalidated.
type LocalSigner struct {
	pubHex string
	priv   []byte
}

// NewLocalSigner wraps a 32-byte secp256k1 private key and its derived
// public key hex.
func NewLocalSigner(priv []byte, pubHex string) *LocalSigner {
	return &LocalSigner{pubHex: pubHex, priv: priv}
}

func (s *LocalSigner) PublicKeyHex() string { return s.pubHex }

func (s *LocalSigner) Sign(_ context.Context, eventID []byte) ([]byte, error) {
	return nostrkey.Sign(s.priv, eventID)
}

// Zero wipes the retained private key; callers should call this when the
// cache entry holding this signer is discarded.
func (s *LocalSigner) Zero() {
	for i := range s.priv {
		s.priv[i] = 0
	}
}
