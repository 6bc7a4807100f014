// Package keystore implements the key index: the set of known Nostr
// identities, their active pointer, and coordination with the OS secret
// store for private material. An in-memory map guarded by a reader/writer
// lock is persisted through the envelope codec on every mutation.
package keystore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/envelope"
	"github.com/nostr-mcp/goostr/internal/nostrkey"
	"github.com/nostr-mcp/goostr/internal/secretstore"
)

var (
	ErrLabelExists         = errors.New("label already exists")
	ErrUnknownLabel        = errors.New("unknown label")
	ErrUnsupportedMaterial = errors.New("unsupported key material")
	ErrSameName            = errors.New("from and to labels are identical")
	ErrNoActive            = errors.New("no active identity")
	ErrSecretMissing       = errors.New("secret missing from keyring")
)

// KeyEntry is one identity: a label, its public key in bech32, and the
// creation timestamp.
type KeyEntry struct {
	Label     string `json:"label"`
	PublicKey string `json:"public_key"`
	CreatedAt int64  `json:"created_at"`
}

// KeyFile is the on-disk (once encrypted) shape of the whole index.
type KeyFile struct {
	Active *string             `json:"active"`
	Keys   map[string]KeyEntry `json:"keys"`
}

func emptyKeyFile() KeyFile {
	return KeyFile{Keys: make(map[string]KeyEntry)}
}

// legacyKeyFile is the unencrypted keys.json shape migrated on first load.
type legacyKeyFile struct {
	Active *string             `json:"active"`
	Keys   map[string]KeyEntry `json:"keys"`
}

// ExportResult is returned by Export.
type ExportResult struct {
	Label            string `json:"label"`
	PublicKeyNpub    string `json:"public_key_npub"`
	PublicKeyHex     string `json:"public_key_hex"`
	PrivateKeyNsec   string `json:"private_key_nsec,omitempty"`
	PrivateKeyHex    string `json:"private_key_hex,omitempty"`
	PrivateKeyWarning string `json:"private_key_warning,omitempty"`
}

const privateKeyWarning = "private key material leaves the keyring; handle this value as a secret"

// KeyStore is the key index component.
type KeyStore struct {
	mu           sync.RWMutex
	path         string
	masterSecret []byte
	secrets      secretstore.Store
	logger       *slog.Logger
	file         KeyFile

	invalidateMu sync.Mutex
	onInvalidate func()
}

// LoadOrInit decrypts an existing index, else migrates a legacy plaintext
// keys.json, else starts empty.
func LoadOrInit(path, legacyPath string, masterSecret []byte, secrets secretstore.Store, logger *slog.Logger) (*KeyStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ks := &KeyStore{
		path:         path,
		masterSecret: masterSecret,
		secrets:      secrets,
		logger:       logger,
	}

	if _, err := os.Stat(path); err == nil {
		file, err := envelope.DecryptFromFile[KeyFile](path, masterSecret)
		if err != nil {
			return nil, err
		}
		if file.Keys == nil {
			file.Keys = make(map[string]KeyEntry)
		}
		ks.file = file
		return ks, nil
	} else if !os.IsNotExist(err) {
		return nil, apperr.Wrap(apperr.Io, "stat key index", err)
	}

	if raw, err := os.ReadFile(legacyPath); err == nil {
		var legacy legacyKeyFile
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "parsing legacy keys.json", err)
		}
		if legacy.Keys == nil {
			legacy.Keys = make(map[string]KeyEntry)
		}
		ks.file = KeyFile(legacy)
		if err := envelope.EncryptToFile(path, masterSecret, ks.file); err != nil {
			return nil, err
		}
		if err := os.Remove(legacyPath); err != nil {
			logger.Warn("failed to remove legacy keys.json after migration", "error", err)
		}
		return ks, nil
	} else if !os.IsNotExist(err) {
		return nil, apperr.Wrap(apperr.Io, "reading legacy keys.json", err)
	}

	ks.file = emptyKeyFile()
	return ks, nil
}

// SetInvalidateHook registers the callback invoked after every mutation,
// letting the active-client cache drop a now-stale cached client.
func (ks *KeyStore) SetInvalidateHook(fn func()) {
	ks.invalidateMu.Lock()
	defer ks.invalidateMu.Unlock()
	ks.onInvalidate = fn
}

func (ks *KeyStore) invalidate() {
	ks.invalidateMu.Lock()
	fn := ks.onInvalidate
	ks.invalidateMu.Unlock()
	if fn != nil {
		fn()
	}
}

// persist snapshots the in-memory file under a read lock and re-encrypts
// it whole; callers must not hold the write lock when calling this.
func (ks *KeyStore) persist() error {
	ks.mu.RLock()
	snapshot := ks.file
	keys := make(map[string]KeyEntry, len(snapshot.Keys))
	for k, v := range snapshot.Keys {
		keys[k] = v
	}
	snapshot.Keys = keys
	ks.mu.RUnlock()

	return envelope.EncryptToFile(ks.path, ks.masterSecret, snapshot)
}

// List returns a label-sorted snapshot of all entries.
func (ks *KeyStore) List() []KeyEntry {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	labels := lo.Keys(ks.file.Keys)
	sort.Strings(labels)
	return lo.Map(labels, func(label string, _ int) KeyEntry {
		return ks.file.Keys[label]
	})
}

// Active returns the active entry, or nil if none is set.
func (ks *KeyStore) Active() *KeyEntry {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.file.Active == nil {
		return nil
	}
	entry, ok := ks.file.Keys[*ks.file.Active]
	if !ok {
		return nil
	}
	return &entry
}

// ActiveLabel returns the current active label, or "" if none.
func (ks *KeyStore) ActiveLabel() string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.file.Active == nil {
		return ""
	}
	return *ks.file.Active
}

func (ks *KeyStore) SetActive(label string) (*KeyEntry, error) {
	ks.mu.Lock()
	entry, ok := ks.file.Keys[label]
	if !ok {
		ks.mu.Unlock()
		return nil, apperr.Wrap(apperr.InvalidParams, "unknown label", ErrUnknownLabel)
	}
	ks.file.Active = &label
	ks.mu.Unlock()

	if err := ks.persist(); err != nil {
		return nil, err
	}
	ks.invalidate()
	return &entry, nil
}

func (ks *KeyStore) Remove(label string) (*KeyEntry, bool, error) {
	ks.mu.Lock()
	entry, ok := ks.file.Keys[label]
	if ok {
		delete(ks.file.Keys, label)
		if ks.file.Active != nil && *ks.file.Active == label {
			ks.file.Active = nil
		}
	}
	ks.mu.Unlock()

	if !ok {
		return nil, false, nil
	}

	if err := ks.persist(); err != nil {
		return nil, false, err
	}
	if err := ks.secrets.Delete(label); err != nil {
		ks.logger.Warn("failed to delete secret for removed label", "label", label, "error", err)
	}
	ks.invalidate()
	return &entry, true, nil
}

func (ks *KeyStore) Generate(label string, makeActive, persistSecret bool) (*KeyEntry, error) {
	ks.mu.RLock()
	_, exists := ks.file.Keys[label]
	ks.mu.RUnlock()
	if exists {
		return nil, apperr.Wrap(apperr.InvalidParams, "label exists", ErrLabelExists)
	}

	kp, err := nostrkey.Generate()
	if err != nil {
		return nil, err
	}
	npub, err := nostrkey.Npub(kp.PublicKey)
	if err != nil {
		return nil, err
	}

	entry := KeyEntry{Label: label, PublicKey: npub, CreatedAt: time.Now().Unix()}

	if persistSecret {
		nsec, err := nostrkey.Nsec(kp.PrivateKey)
		if err != nil {
			return nil, err
		}
		if err := ks.secrets.Set(label, nsec); err != nil {
			return nil, err
		}
	}

	if err := ks.insert(label, entry, makeActive); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (ks *KeyStore) Import(label, material string, makeActive, persistSecret bool) (*KeyEntry, error) {
	ks.mu.RLock()
	_, exists := ks.file.Keys[label]
	ks.mu.RUnlock()
	if exists {
		return nil, apperr.Wrap(apperr.InvalidParams, "label exists", ErrLabelExists)
	}

	var pub, priv []byte
	switch {
	case strings.HasPrefix(material, nostrkey.HRPPrivate+"1"):
		hrp, data, err := nostrkey.DecodeBech32(material)
		if err != nil || hrp != nostrkey.HRPPrivate {
			return nil, apperr.Wrap(apperr.InvalidParams, "invalid nsec material", ErrUnsupportedMaterial)
		}
		priv = data
	case strings.HasPrefix(material, nostrkey.HRPPublic+"1"):
		hrp, data, err := nostrkey.DecodeBech32(material)
		if err != nil || hrp != nostrkey.HRPPublic {
			return nil, apperr.Wrap(apperr.InvalidParams, "invalid npub material", ErrUnsupportedMaterial)
		}
		pub = data
		persistSecret = false
	case len(material) == 64:
		data, err := hex.DecodeString(material)
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidParams, "invalid hex material", ErrUnsupportedMaterial)
		}
		priv = data
	default:
		return nil, apperr.Wrap(apperr.InvalidParams, "unrecognized key material", ErrUnsupportedMaterial)
	}

	if priv != nil {
		derived, err := nostrkey.PublicKeyFromPrivate(priv)
		if err != nil {
			return nil, err
		}
		pub = derived
	}

	npub, err := nostrkey.Npub(pub)
	if err != nil {
		return nil, err
	}
	entry := KeyEntry{Label: label, PublicKey: npub, CreatedAt: time.Now().Unix()}

	if persistSecret && priv != nil {
		nsec, err := nostrkey.Nsec(priv)
		if err != nil {
			return nil, err
		}
		if err := ks.secrets.Set(label, nsec); err != nil {
			return nil, err
		}
	}

	if err := ks.insert(label, entry, makeActive); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (ks *KeyStore) insert(label string, entry KeyEntry, makeActive bool) error {
	ks.mu.Lock()
	ks.file.Keys[label] = entry
	if makeActive {
		l := label
		ks.file.Active = &l
	}
	ks.mu.Unlock()

	if err := ks.persist(); err != nil {
		return err
	}
	ks.invalidate()
	return nil
}

func (ks *KeyStore) Rename(from, to string) (*KeyEntry, error) {
	if from == to {
		return nil, apperr.Wrap(apperr.InvalidParams, "same name", ErrSameName)
	}

	ks.mu.Lock()
	entry, ok := ks.file.Keys[from]
	if !ok {
		ks.mu.Unlock()
		return nil, apperr.Wrap(apperr.InvalidParams, "unknown label", ErrUnknownLabel)
	}
	if _, clash := ks.file.Keys[to]; clash {
		ks.mu.Unlock()
		return nil, apperr.Wrap(apperr.InvalidParams, "label exists", ErrLabelExists)
	}

	entry.Label = to
	delete(ks.file.Keys, from)
	ks.file.Keys[to] = entry
	if ks.file.Active != nil && *ks.file.Active == from {
		ks.file.Active = &to
	}
	ks.mu.Unlock()

	if err := ks.persist(); err != nil {
		return nil, err
	}

	if secret, found, err := ks.secrets.Get(from); err != nil {
		ks.logger.Warn("keyring lookup failed during rename", "from", from, "to", to, "error", err)
	} else if found {
		if err := ks.secrets.Set(to, secret); err != nil {
			ks.logger.Warn("keyring set failed during rename", "to", to, "error", err)
		} else if err := ks.secrets.Delete(from); err != nil {
			ks.logger.Warn("keyring delete failed during rename", "from", from, "error", err)
		}
	}

	ks.invalidate()
	return &entry, nil
}

func (ks *KeyStore) Export(label, format string, includePrivate bool) (ExportResult, error) {
	ks.mu.RLock()
	if label == "" {
		if ks.file.Active == nil {
			ks.mu.RUnlock()
			return ExportResult{}, apperr.Wrap(apperr.NoActiveKey, "no active identity", ErrNoActive)
		}
		label = *ks.file.Active
	}
	entry, ok := ks.file.Keys[label]
	ks.mu.RUnlock()
	if !ok {
		return ExportResult{}, apperr.Wrap(apperr.InvalidParams, "unknown label", ErrUnknownLabel)
	}

	_, pubBytes, err := nostrkey.DecodeBech32(entry.PublicKey)
	if err != nil {
		return ExportResult{}, apperr.Wrap(apperr.Internal, "decoding stored public key", err)
	}

	result := ExportResult{
		Label:         entry.Label,
		PublicKeyNpub: entry.PublicKey,
		PublicKeyHex:  hex.EncodeToString(pubBytes),
	}
	if !includePrivate {
		return result, nil
	}

	secret, found, err := ks.secrets.Get(label)
	if err != nil {
		return ExportResult{}, err
	}
	if !found {
		return ExportResult{}, apperr.Wrap(apperr.InvalidParams, "secret missing from keyring", ErrSecretMissing)
	}
	_, privBytes, err := nostrkey.DecodeBech32(secret)
	if err != nil {
		return ExportResult{}, apperr.Wrap(apperr.Internal, "decoding stored private key", err)
	}

	result.PrivateKeyWarning = privateKeyWarning
	switch format {
	case "hex":
		result.PrivateKeyHex = hex.EncodeToString(privBytes)
	case "bech32":
		result.PrivateKeyNsec = secret
	default: // "both"
		result.PrivateKeyNsec = secret
		result.PrivateKeyHex = hex.EncodeToString(privBytes)
	}
	return result, nil
}
