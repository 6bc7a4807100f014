package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/signing"
)

// BuildAndSign constructs a NIP-01 event, computes its canonical id, and
// signs it with signer. A nil signer (a read-only ActiveClient) is
// reported as NoActiveKey rather than attempted.
func BuildAndSign(ctx context.Context, signer signing.Signer, kind int, tags [][]string, content string) (Event, error) {
	if signer == nil {
		return Event{}, apperr.New(apperr.NoActiveKey, "active identity has no signer")
	}
	if tags == nil {
		tags = [][]string{}
	}

	ev := Event{
		PubKey:    signer.PublicKeyHex(),
		CreatedAt: time.Now().Unix(),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}

	idHash, err := computeID(ev)
	if err != nil {
		return Event{}, err
	}
	ev.ID = hex.EncodeToString(idHash)

	sig, err := signer.Sign(ctx, idHash)
	if err != nil {
		return Event{}, apperr.Wrap(apperr.PublishFailed, "signing event", err)
	}
	ev.Sig = hex.EncodeToString(sig)
	return ev, nil
}

// computeID serializes the event the way NIP-01 mandates for id
// computation: [0, pubkey, created_at, kind, tags, content].
func computeID(ev Event) ([]byte, error) {
	arr := []any{0, ev.PubKey, ev.CreatedAt, ev.Kind, ev.Tags, ev.Content}
	b, err := json.Marshal(arr)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "serializing event for id", err)
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}
