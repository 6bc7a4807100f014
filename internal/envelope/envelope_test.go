package envelope

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nostr-mcp/goostr/internal/apperr"
)

type fixture struct {
	Active string            `json:"active"`
	Keys   map[string]string `json:"keys"`
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.enc")
	pass := []byte("0123456789abcdef0123456789abcdef")

	want := fixture{Active: "alice", Keys: map[string]string{"alice": "npub1xyz"}}
	if err := EncryptToFile(path, pass, want); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := DecryptFromFile[fixture](path, pass)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got.Active != want.Active || got.Keys["alice"] != want.Keys["alice"] {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestAuthFailedNotJSONParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.enc")

	if err := EncryptToFile(path, []byte("pass-one"), fixture{Active: "a"}); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	_, err := DecryptFromFile[fixture](path, []byte("pass-two"))
	if err == nil {
		t.Fatal("expected error decrypting with wrong password")
	}
	if apperr.Of(err) != apperr.AuthFailed {
		t.Fatalf("expected AuthFailed kind, got %v", apperr.Of(err))
	}
	if errors.Is(err, ErrJSONParse) {
		t.Fatal("wrong-password failure must not present as JSON parse error")
	}
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatal("expected ErrAuthFailed in the chain")
	}
}

func TestTooShortAndBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.enc")

	if err := os.WriteFile(path, []byte("AA=="), 0o600); err != nil {
		t.Fatalf("write raw fixture: %v", err)
	}
	_, err := DecryptFromFile[fixture](path, []byte("pass"))
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}

	badMagic := base64.StdEncoding.EncodeToString(make([]byte, minDataLen))
	if err := os.WriteFile(path, []byte(badMagic), 0o600); err != nil {
		t.Fatalf("write bad-magic fixture: %v", err)
	}
	_, err = DecryptFromFile[fixture](path, []byte("pass"))
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}
