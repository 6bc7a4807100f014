package settings

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string, []byte) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.enc")
	secret := []byte("0123456789abcdef0123456789abcdef")

	s, err := LoadOrInit(path, secret)
	if err != nil {
		t.Fatalf("load_or_init: %v", err)
	}
	return s, path, secret
}

func TestSaveThenGetRoundTrips(t *testing.T) {
	s, _, _ := newTestStore(t)
	pubkey := "deadbeef"
	want := KeySettings{
		Relays:   []string{"wss://r1"},
		Metadata: &ProfileMetadata{Name: "alice"},
		Follows:  []FollowEntry{{PubKey: "cafebabe", Petname: "bob"}},
	}

	if err := s.Save(pubkey, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok := s.Get(pubkey)
	if !ok {
		t.Fatal("expected settings to be present")
	}
	if len(got.Relays) != 1 || got.Relays[0] != "wss://r1" {
		t.Fatalf("unexpected relays: %+v", got.Relays)
	}
	if got.Metadata == nil || got.Metadata.Name != "alice" {
		t.Fatalf("unexpected metadata: %+v", got.Metadata)
	}
}

func TestGetMissingReturnsFalse(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, ok := s.Get("nobody")
	if ok {
		t.Fatal("expected absent settings to report false")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s, _, _ := newTestStore(t)
	pubkey := "deadbeef"
	if err := s.Save(pubkey, KeySettings{Relays: []string{"wss://r1"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Remove(pubkey); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(pubkey); err != nil {
		t.Fatalf("second remove should be a no-op, got: %v", err)
	}
	if _, ok := s.Get(pubkey); ok {
		t.Fatal("expected settings to be gone after remove")
	}
}

func TestSettingsSurviveAcrossLoad(t *testing.T) {
	s, path, secret := newTestStore(t)
	pubkey := "deadbeef"
	if err := s.Save(pubkey, KeySettings{Relays: []string{"wss://r1"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := LoadOrInit(path, secret)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := reloaded.Get(pubkey)
	if !ok || len(got.Relays) != 1 || got.Relays[0] != "wss://r1" {
		t.Fatalf("settings did not survive reload: %+v ok=%v", got, ok)
	}
}

func TestAllReturnsSnapshot(t *testing.T) {
	s, _, _ := newTestStore(t)
	if err := s.Save("a", KeySettings{Relays: []string{"wss://r1"}}); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := s.Save("b", KeySettings{Relays: []string{"wss://r2"}}); err != nil {
		t.Fatalf("save b: %v", err)
	}
	all := s.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
}
