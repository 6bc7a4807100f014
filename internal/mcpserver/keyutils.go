package mcpserver

import (
	"encoding/hex"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/nostrkey"
)

type verifyResult struct {
	Valid bool   `json:"valid"`
	Kind  string `json:"kind"`
}

// verifyKey classifies key as npub, nsec, hex-priv, or invalid.
// There is no way to distinguish a raw hex public key from a raw hex
// private key by value alone, so hex material is reported as hex-priv —
// the form accepted by nostr_keys_import/derive_public.
func verifyKey(key string) verifyResult {
	switch {
	case len(key) > 5 && key[:5] == nostrkey.HRPPublic+"1":
		if hrp, data, err := nostrkey.DecodeBech32(key); err == nil && hrp == nostrkey.HRPPublic && len(data) == 32 {
			return verifyResult{Valid: true, Kind: "npub"}
		}
	case len(key) > 5 && key[:5] == nostrkey.HRPPrivate+"1":
		if hrp, data, err := nostrkey.DecodeBech32(key); err == nil && hrp == nostrkey.HRPPrivate && len(data) == 32 {
			return verifyResult{Valid: true, Kind: "nsec"}
		}
	case len(key) == 64:
		if data, err := hex.DecodeString(key); err == nil && len(data) == 32 {
			return verifyResult{Valid: true, Kind: "hex-priv"}
		}
	}
	return verifyResult{Valid: false, Kind: "invalid"}
}

type derivePublicResult struct {
	PublicKeyNpub string `json:"public_key_npub"`
	PublicKeyHex  string `json:"public_key_hex"`
}

func derivePublic(material string) (derivePublicResult, error) {
	var priv []byte
	switch {
	case len(material) > 5 && material[:5] == nostrkey.HRPPrivate+"1":
		hrp, data, err := nostrkey.DecodeBech32(material)
		if err != nil || hrp != nostrkey.HRPPrivate {
			return derivePublicResult{}, apperr.New(apperr.InvalidParams, "invalid nsec material")
		}
		priv = data
	case len(material) == 64:
		data, err := hex.DecodeString(material)
		if err != nil {
			return derivePublicResult{}, apperr.Wrap(apperr.InvalidParams, "invalid hex material", err)
		}
		priv = data
	default:
		return derivePublicResult{}, apperr.New(apperr.InvalidParams, "unrecognized private key material")
	}

	pub, err := nostrkey.PublicKeyFromPrivate(priv)
	if err != nil {
		return derivePublicResult{}, err
	}
	npub, err := nostrkey.Npub(pub)
	if err != nil {
		return derivePublicResult{}, err
	}
	return derivePublicResult{PublicKeyNpub: npub, PublicKeyHex: hex.EncodeToString(pub)}, nil
}
