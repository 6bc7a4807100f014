package keystore

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/envelope"
	"github.com/nostr-mcp/goostr/internal/secretstore"
)

func newTestStore(t *testing.T) (*KeyStore, string, []byte) {
	t.Helper()
	return newTestStoreWithSecrets(t, secretstore.NewMemory())
}

func newTestStoreWithSecrets(t *testing.T, secrets secretstore.Store) (*KeyStore, string, []byte) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.enc")
	legacy := filepath.Join(dir, "keys.json")
	secret := []byte("0123456789abcdef0123456789abcdef")

	ks, err := LoadOrInit(path, legacy, secret, secrets, nil)
	if err != nil {
		t.Fatalf("load_or_init: %v", err)
	}
	return ks, path, secret
}

// failingSecrets wraps a Memory store and injects a keyring failure for one
// label's Set call, to exercise the "keyring failure after index persist is
// logged, not fatal" path.
type failingSecrets struct {
	*secretstore.Memory
	failSetFor string
}

func (f *failingSecrets) Set(label, secret string) error {
	if label == f.failSetFor {
		return apperr.New(apperr.Keyring, "injected keyring failure")
	}
	return f.Memory.Set(label, secret)
}

func TestGenerateThenListShowsActive(t *testing.T) {
	ks, _, _ := newTestStore(t)

	entry, err := ks.Generate("alice", true, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if entry.Label != "alice" || entry.PublicKey[:5] != "npub1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	list := ks.List()
	if len(list) != 1 || list[0].Label != "alice" {
		t.Fatalf("unexpected list: %+v", list)
	}
	active := ks.Active()
	if active == nil || active.Label != "alice" {
		t.Fatalf("expected alice active, got %+v", active)
	}
}

func TestGenerateDuplicateLabelFails(t *testing.T) {
	ks, _, _ := newTestStore(t)
	if _, err := ks.Generate("alice", true, true); err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err := ks.Generate("alice", false, false)
	if !errors.Is(err, ErrLabelExists) {
		t.Fatalf("expected ErrLabelExists, got %v", err)
	}
}

func TestImportHexThenExportBech32(t *testing.T) {
	ks, _, _ := newTestStore(t)
	material := strings.Repeat("0", 62) + "01"

	if _, err := ks.Import("bob", material, true, true); err != nil {
		t.Fatalf("import: %v", err)
	}

	result, err := ks.Export("bob", "bech32", true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.PrivateKeyNsec == "" || result.PrivateKeyNsec[:4] != "nsec" {
		t.Fatalf("expected nsec private key, got %+v", result)
	}
	if result.PrivateKeyHex != "" {
		t.Fatalf("expected no hex private key for bech32 format, got %q", result.PrivateKeyHex)
	}
}

func TestRemoveClearsActiveAndKeyring(t *testing.T) {
	ks, _, _ := newTestStore(t)
	if _, err := ks.Generate("alice", true, true); err != nil {
		t.Fatalf("generate: %v", err)
	}

	removed, ok, err := ks.Remove("alice")
	if err != nil || !ok || removed.Label != "alice" {
		t.Fatalf("remove: %v %v %+v", err, ok, removed)
	}
	if ks.Active() != nil {
		t.Fatal("expected no active entry after removing it")
	}

	_, found, err := ks.secrets.Get("alice")
	if err != nil {
		t.Fatalf("keyring get: %v", err)
	}
	if found {
		t.Fatal("expected keyring entry to be gone after remove")
	}
}

func TestRenamePreservesPublicKeyAndMovesSecret(t *testing.T) {
	ks, _, _ := newTestStore(t)
	before, err := ks.Generate("dave", true, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	renamed, err := ks.Rename("dave", "dan")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.PublicKey != before.PublicKey {
		t.Fatalf("public key changed across rename: %q vs %q", renamed.PublicKey, before.PublicKey)
	}
	if ks.ActiveLabel() != "dan" {
		t.Fatalf("expected active label to follow rename, got %q", ks.ActiveLabel())
	}

	if _, found, _ := ks.secrets.Get("dave"); found {
		t.Fatal("expected old label secret to be gone")
	}
	if _, found, _ := ks.secrets.Get("dan"); !found {
		t.Fatal("expected secret to move to new label")
	}
}

func TestRenameSurvivesKeyringSetFailure(t *testing.T) {
	secrets := &failingSecrets{Memory: secretstore.NewMemory(), failSetFor: "dan"}
	ks, path, secret := newTestStoreWithSecrets(t, secrets)

	before, err := ks.Generate("dave", true, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	renamed, err := ks.Rename("dave", "dan")
	if err != nil {
		t.Fatalf("rename should succeed despite keyring failure: %v", err)
	}
	if renamed.PublicKey != before.PublicKey {
		t.Fatalf("public key changed across rename: %q vs %q", renamed.PublicKey, before.PublicKey)
	}
	if ks.ActiveLabel() != "dan" {
		t.Fatalf("expected active label to follow rename despite keyring failure, got %q", ks.ActiveLabel())
	}

	reloaded, err := LoadOrInit(path, filepath.Join(filepath.Dir(path), "keys.json"), secret, secrets, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ActiveLabel() != "dan" {
		t.Fatalf("expected index to persist the rename even though the keyring move failed, got %q", reloaded.ActiveLabel())
	}

	if _, found, _ := secrets.Get("dave"); !found {
		t.Fatal("expected old label secret to remain since the move to the new label failed")
	}
	if _, found, _ := secrets.Get("dan"); found {
		t.Fatal("expected no secret under the new label since Set was injected to fail")
	}
}

func TestRenameIdempotence(t *testing.T) {
	ks, path, secret := newTestStore(t)
	if _, err := ks.Generate("dave", true, true); err != nil {
		t.Fatalf("generate: %v", err)
	}

	original, err := envelope.DecryptFromFile[KeyFile](path, secret)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}

	if _, err := ks.Rename("dave", "dan"); err != nil {
		t.Fatalf("rename forward: %v", err)
	}
	if _, err := ks.Rename("dan", "dave"); err != nil {
		t.Fatalf("rename back: %v", err)
	}

	final, err := envelope.DecryptFromFile[KeyFile](path, secret)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if *final.Active != *original.Active || final.Keys["dave"].PublicKey != original.Keys["dave"].PublicKey {
		t.Fatalf("rename round trip mismatch: %+v vs %+v", final, original)
	}
}

func TestExportWithoutActiveFails(t *testing.T) {
	ks, _, _ := newTestStore(t)
	_, err := ks.Export("", "both", false)
	if apperr.Of(err) != apperr.NoActiveKey {
		t.Fatalf("expected NoActiveKey, got %v", err)
	}
}

func TestLoadOrInitObservesLastPersistedState(t *testing.T) {
	ks, path, secret := newTestStore(t)
	if _, err := ks.Generate("alice", true, true); err != nil {
		t.Fatalf("generate: %v", err)
	}

	reloaded, err := LoadOrInit(path, filepath.Join(filepath.Dir(path), "keys.json"), secret, secretstore.NewMemory(), nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ActiveLabel() != "alice" {
		t.Fatalf("expected reloaded store to observe alice as active, got %q", reloaded.ActiveLabel())
	}
}
