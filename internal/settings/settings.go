// Package settings stores per-identity relay lists, profile metadata, and
// follow caches, keyed by public-key hex so they survive label renames.
// It mirrors keystore's shape, down to the write-then-persist-outside-lock
// discipline.
package settings

import (
	"os"
	"sync"

	"github.com/nostr-mcp/goostr/internal/envelope"
)

// ProfileMetadata is a kind:0 Nostr metadata event payload (NIP-01).
type ProfileMetadata struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	NIP05       string `json:"nip05,omitempty"`
	LUD06       string `json:"lud06,omitempty"`
	LUD16       string `json:"lud16,omitempty"`
	Website     string `json:"website,omitempty"`
}

// FollowEntry is one entry of a contact list ("p" tag), NIP-02.
type FollowEntry struct {
	PubKey   string `json:"pubkey"`
	RelayURL string `json:"relay_url,omitempty"`
	Petname  string `json:"petname,omitempty"`
}

// KeySettings is the per-identity companion configuration.
type KeySettings struct {
	Relays   []string          `json:"relays"`
	Metadata *ProfileMetadata  `json:"metadata,omitempty"`
	Follows  []FollowEntry     `json:"follows,omitempty"`
}

// settingsFile is the on-disk (once encrypted) shape: pubkey-hex -> settings.
type settingsFile struct {
	ByPubKey map[string]KeySettings `json:"by_pubkey"`
}

func emptySettingsFile() settingsFile {
	return settingsFile{ByPubKey: make(map[string]KeySettings)}
}

// Store is the per-identity settings component.
type Store struct {
	mu           sync.RWMutex
	path         string
	masterSecret []byte
	file         settingsFile
}

// LoadOrInit decrypts the existing settings file, or starts empty if one
// does not yet exist.
func LoadOrInit(path string, masterSecret []byte) (*Store, error) {
	s := &Store{path: path, masterSecret: masterSecret}

	if _, err := os.Stat(path); err == nil {
		file, err := envelope.DecryptFromFile[settingsFile](path, masterSecret)
		if err != nil {
			return nil, err
		}
		if file.ByPubKey == nil {
			file.ByPubKey = make(map[string]KeySettings)
		}
		s.file = file
		return s, nil
	}

	s.file = emptySettingsFile()
	return s, nil
}

func (s *Store) persist() error {
	s.mu.RLock()
	snapshot := settingsFile{ByPubKey: make(map[string]KeySettings, len(s.file.ByPubKey))}
	for k, v := range s.file.ByPubKey {
		snapshot.ByPubKey[k] = v
	}
	s.mu.RUnlock()

	return envelope.EncryptToFile(s.path, s.masterSecret, snapshot)
}

// Get returns the settings for pubkeyHex, or the zero value and false if
// none have been saved.
func (s *Store) Get(pubkeyHex string) (KeySettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.file.ByPubKey[pubkeyHex]
	return v, ok
}

// Save writes settings for pubkeyHex, replacing any prior value.
func (s *Store) Save(pubkeyHex string, settings KeySettings) error {
	s.mu.Lock()
	s.file.ByPubKey[pubkeyHex] = settings
	s.mu.Unlock()

	return s.persist()
}

// Remove deletes settings for pubkeyHex, idempotently.
func (s *Store) Remove(pubkeyHex string) error {
	s.mu.Lock()
	delete(s.file.ByPubKey, pubkeyHex)
	s.mu.Unlock()

	return s.persist()
}

// All returns a snapshot of every stored pubkey's settings.
func (s *Store) All() map[string]KeySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]KeySettings, len(s.file.ByPubKey))
	for k, v := range s.file.ByPubKey {
		out[k] = v
	}
	return out
}
