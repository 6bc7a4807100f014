// Package paths resolves the on-disk config directory layout and
// provisions the machine-local master secret used to encrypt it.
package paths

import (
	crypto_rand "crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nostr-mcp/goostr/internal/apperr"
)

const masterSecretLen = 32

// ConfigRoot returns GOOSTR_DIR if set, else $HOME/.config/goostr.
func ConfigRoot() string {
	if dir := os.Getenv("GOOSTR_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".config", "goostr")
}

func IndexPath(root string) string        { return filepath.Join(root, "keys.enc") }
func LegacyIndexPath(root string) string   { return filepath.Join(root, "keys.json") }
func SettingsPath(root string) string      { return filepath.Join(root, "settings.enc") }
func MasterSecretPath(root string) string  { return filepath.Join(root, "keystore.secret") }
func LogsDir(root string) string           { return filepath.Join(root, "logs") }

// EnsureMasterSecret is idempotent: reads the existing 32-byte secret if
// keystore.secret exists, else creates it with mode 0600. The file holds
// the secret as base64-unpadded standard encoding.
func EnsureMasterSecret(root string) ([]byte, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.Io, "creating config root", err)
	}

	path := MasterSecretPath(root)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.Io, "stat master secret", err)
		}
		if err := createMasterSecret(path); err != nil {
			return nil, err
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.Io, "reading master secret", err)
	}
	text := strings.TrimSpace(string(raw))
	secret, err := base64.RawStdEncoding.DecodeString(text)
	zeroString(&text)
	if err != nil {
		return nil, apperr.Wrap(apperr.Io, "decoding master secret", err)
	}
	if len(secret) != masterSecretLen {
		return nil, apperr.Newf(apperr.Io, "master secret has wrong length: %d", len(secret))
	}
	return secret, nil
}

func createMasterSecret(path string) error {
	buf := make([]byte, masterSecretLen)
	if _, err := io.ReadFull(crypto_rand.Reader, buf); err != nil {
		return apperr.Wrap(apperr.Io, "generating master secret", err)
	}
	encoded := base64.RawStdEncoding.EncodeToString(buf)
	zeroBytes(buf)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return apperr.Wrap(apperr.Io, "creating master secret file", err)
	}
	defer f.Close()

	if _, err := f.WriteString(encoded); err != nil {
		return apperr.Wrap(apperr.Io, "writing master secret", err)
	}
	if err := f.Sync(); err != nil {
		return apperr.Wrap(apperr.Io, "syncing master secret", err)
	}
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func zeroString(s *string) {
	// Best-effort: Go strings are immutable, but we can at least drop the
	// reference promptly and let the GC reclaim it; the real secret has
	// already been copied into a []byte the caller owns and can wipe.
	*s = ""
}
