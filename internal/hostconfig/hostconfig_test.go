package hostconfig

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func withHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return dir
}

func TestUpsertThenRemove(t *testing.T) {
	withHome(t)

	entry := ExtensionEntry{
		Enabled:     true,
		Name:        "goostr",
		DisplayName: "Goostr",
		Description: "Nostr identity service",
		Timeout:     300,
		Cmd:         "goostr",
		Args:        []string{"start"},
	}
	if err := UpsertStdioExtension("goostr", entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	raw, err := os.ReadFile(Path())
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	exts, ok := doc["extensions"].(map[string]any)
	if !ok {
		t.Fatalf("expected extensions mapping, got %+v", doc)
	}
	if _, ok := exts["goostr"]; !ok {
		t.Fatalf("expected goostr entry, got %+v", exts)
	}

	changed, err := RemoveExtension("goostr")
	if err != nil || !changed {
		t.Fatalf("remove: changed=%v err=%v", changed, err)
	}

	raw, err = os.ReadFile(Path())
	if err != nil {
		t.Fatalf("reading config after remove: %v", err)
	}
	doc = nil
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parsing config after remove: %v", err)
	}
	if _, ok := doc["extensions"]; ok {
		t.Fatalf("expected extensions mapping to be removed once empty, got %+v", doc)
	}
}

func TestUpsertPreservesUnrelatedKeys(t *testing.T) {
	home := withHome(t)
	if err := os.MkdirAll(filepath.Dir(Path()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(Path(), []byte("other_setting: keep-me\nextensions:\n  unrelated:\n    cmd: foo\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	if err := UpsertStdioExtension("goostr", ExtensionEntry{Name: "goostr", Cmd: "goostr"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	raw, err := os.ReadFile(Path())
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	if doc["other_setting"] != "keep-me" {
		t.Fatalf("expected unrelated top-level key preserved, got %+v", doc)
	}
	exts := doc["extensions"].(map[string]any)
	if _, ok := exts["unrelated"]; !ok {
		t.Fatalf("expected unrelated extension preserved, got %+v", exts)
	}
	_ = home
}

func TestRemoveMissingExtensionIsNoop(t *testing.T) {
	withHome(t)
	changed, err := RemoveExtension("does-not-exist")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if changed {
		t.Fatal("expected no change when removing a nonexistent extension")
	}
}
