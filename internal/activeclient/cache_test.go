package activeclient

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/keystore"
	"github.com/nostr-mcp/goostr/internal/nostrkey"
	"github.com/nostr-mcp/goostr/internal/secretstore"
	"github.com/nostr-mcp/goostr/internal/settings"
	"github.com/nostr-mcp/goostr/internal/signing"
)

type fakeRelay struct {
	url       string
	readWrite string
	connected bool
}

func (f *fakeRelay) URL() string       { return f.url }
func (f *fakeRelay) ReadWrite() string { return f.readWrite }
func (f *fakeRelay) Connect(context.Context) error {
	f.connected = true
	return nil
}
func (f *fakeRelay) Disconnect(bool) error { f.connected = false; return nil }
func (f *fakeRelay) Status() string {
	if f.connected {
		return "connected"
	}
	return "disconnected"
}

func newFixture(t *testing.T) (*keystore.KeyStore, *settings.Store, secretstore.Store, *Cache) {
	t.Helper()
	dir := t.TempDir()
	secret := []byte("0123456789abcdef0123456789abcdef")

	secrets := secretstore.NewMemory()
	ks, err := keystore.LoadOrInit(filepath.Join(dir, "keys.enc"), filepath.Join(dir, "keys.json"), secret, secrets, nil)
	if err != nil {
		t.Fatalf("keystore load: %v", err)
	}
	st, err := settings.LoadOrInit(filepath.Join(dir, "settings.enc"), secret)
	if err != nil {
		t.Fatalf("settings load: %v", err)
	}

	factory := func(url, rw string) signing.RelayHandle {
		return &fakeRelay{url: url, readWrite: rw}
	}
	cache := New(ks, st, secrets, nil, factory)
	return ks, st, secrets, cache
}

func TestEnsureFailsWithoutActiveIdentity(t *testing.T) {
	_, _, _, cache := newFixture(t)
	_, err := cache.Ensure(context.Background())
	if apperr.Of(err) != apperr.NoActiveKey {
		t.Fatalf("expected NoActiveKey, got %v", err)
	}
}

func TestEnsureBuildsSignedClient(t *testing.T) {
	ks, _, _, cache := newFixture(t)
	if _, err := ks.Generate("alice", true, true); err != nil {
		t.Fatalf("generate: %v", err)
	}

	client, err := cache.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if client.ReadOnly() {
		t.Fatal("expected a signed client since the secret was persisted")
	}
	if client.ActiveLabel != "alice" {
		t.Fatalf("expected active label alice, got %q", client.ActiveLabel)
	}
}

func TestEnsureRebuildsOnSetActive(t *testing.T) {
	ks, _, _, cache := newFixture(t)
	if _, err := ks.Generate("alice", true, true); err != nil {
		t.Fatalf("generate alice: %v", err)
	}
	if _, err := ks.Generate("bob", false, true); err != nil {
		t.Fatalf("generate bob: %v", err)
	}

	first, err := cache.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure first: %v", err)
	}
	if first.ActiveLabel != "alice" {
		t.Fatalf("expected alice first, got %q", first.ActiveLabel)
	}

	if _, err := ks.SetActive("bob"); err != nil {
		t.Fatalf("set_active bob: %v", err)
	}

	second, err := cache.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure second: %v", err)
	}
	if second.ActiveLabel != "bob" {
		t.Fatalf("expected cache to rebuild for bob, got %q", second.ActiveLabel)
	}
	if first == second {
		t.Fatal("expected a distinct client instance after set_active invalidated the cache")
	}
}

func TestEnsureBuildsReadOnlyClientWithoutSecret(t *testing.T) {
	ks, _, _, cache := newFixture(t)
	if _, err := ks.Generate("alice", true, false); err != nil {
		t.Fatalf("generate: %v", err)
	}

	client, err := cache.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !client.ReadOnly() {
		t.Fatal("expected a read-only client since no secret was persisted")
	}
}

func TestEnsureConnectsConfiguredRelays(t *testing.T) {
	ks, st, _, cache := newFixture(t)
	entry, err := ks.Generate("alice", true, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, pubBytes, err := nostrkey.DecodeBech32(entry.PublicKey)
	if err != nil {
		t.Fatalf("decode npub: %v", err)
	}
	pubHex := hex.EncodeToString(pubBytes)

	if err := st.Save(pubHex, settings.KeySettings{Relays: []string{"wss://relay.example"}}); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	client, err := cache.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(client.Relays) != 1 || client.Relays[0].URL() != "wss://relay.example" {
		t.Fatalf("expected one connected relay, got %+v", client.Relays)
	}
	if client.Relays[0].Status() != "connected" {
		t.Fatalf("expected relay to report connected, got %q", client.Relays[0].Status())
	}
}
