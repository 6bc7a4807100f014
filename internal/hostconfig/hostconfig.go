// Package hostconfig writes and removes this tool's stdio extension entry
// in the host agent's YAML config: a generic document round-trip that
// preserves every key this tool doesn't own.
package hostconfig

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nostr-mcp/goostr/internal/apperr"
)

// ExtensionEntry is one entry under the document's top-level "extensions"
// mapping.
type ExtensionEntry struct {
	Enabled        bool              `yaml:"enabled"`
	Type           string            `yaml:"type"`
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	DisplayName    string            `yaml:"display_name"`
	Timeout        int               `yaml:"timeout"`
	Bundled        bool              `yaml:"bundled"`
	AvailableTools []string          `yaml:"available_tools"`
	Cmd            string            `yaml:"cmd"`
	Args           []string          `yaml:"args"`
	Envs           map[string]string `yaml:"envs"`
	EnvKeys        []string          `yaml:"env_keys"`
}

// Root returns $HOME/.config/goose.
func Root() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".config", "goose")
}

// Path returns Root()/config.yaml.
func Path() string { return filepath.Join(Root(), "config.yaml") }

func readDoc(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, apperr.Wrap(apperr.Io, "reading host config", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "parsing host config yaml", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func writeDoc(path string, doc map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.Io, "creating host config directory", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshaling host config yaml", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return apperr.Wrap(apperr.Io, "writing host config", err)
	}
	return nil
}

// UpsertStdioExtension writes or replaces the extensions[id] entry.
func UpsertStdioExtension(id string, entry ExtensionEntry) error {
	path := Path()
	doc, err := readDoc(path)
	if err != nil {
		return err
	}

	exts, _ := doc["extensions"].(map[string]any)
	if exts == nil {
		exts = map[string]any{}
	}
	entry.Type = "stdio"
	exts[id] = entry
	doc["extensions"] = exts

	return writeDoc(path, doc)
}

// RemoveExtension deletes extensions[id], and the extensions mapping
// itself if it becomes empty. Reports whether anything changed.
func RemoveExtension(id string) (bool, error) {
	path := Path()
	doc, err := readDoc(path)
	if err != nil {
		return false, err
	}

	extsRaw, ok := doc["extensions"]
	if !ok {
		return false, nil
	}
	exts, ok := extsRaw.(map[string]any)
	if !ok {
		return false, nil
	}
	if _, existed := exts[id]; !existed {
		return false, nil
	}
	delete(exts, id)

	if len(exts) == 0 {
		delete(doc, "extensions")
	} else {
		doc["extensions"] = exts
	}

	if err := writeDoc(path, doc); err != nil {
		return false, err
	}
	return true, nil
}
