// Package envelope implements an encrypted file format: a base64 blob
// decoding to MAGIC || version || salt || nonce || ciphertext, where the
// plaintext is UTF-8 JSON and the key is derived from a master secret via
// Argon2id, with the key materialized fresh per file rather than wrapped
// as a per-key DEK.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	crypto_rand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"

	"github.com/nostr-mcp/goostr/internal/apperr"
)

// Sub-kinds of a decode/decrypt failure, distinguishable via errors.Is even
// though they all surface to the tool boundary as apperr.Internal or
// apperr.AuthFailed/apperr.Io.
var (
	ErrBadMagic  = errors.New("bad envelope magic")
	ErrTooShort  = errors.New("envelope too short")
	ErrBase64    = errors.New("envelope base64 decode failed")
	ErrKdfFailed = errors.New("key derivation failed")
	ErrAuthFailed = errors.New("envelope authentication failed")
	ErrJSONParse = errors.New("envelope json decode failed")
)

const (
	magic       = "GSK1"
	version     = byte(0x01)
	saltLen     = 16
	nonceLen    = 12
	minDataLen  = len(magic) + 1 + saltLen + nonceLen
	argonTime   = 1
	argonMemory = 64 * 1024 // KiB
	argonLanes  = 4
	argonKeyLen = 32
)

// EncryptToFile JSON-encodes value, derives a fresh AES-256-GCM key from
// pass via Argon2id with a random salt, and atomically writes the envelope
// to path (mode 0600), creating parent directories as needed.
func EncryptToFile(path string, pass []byte, value any) error {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal envelope value", err)
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(crypto_rand.Reader, salt); err != nil {
		return apperr.Wrap(apperr.Io, "reading salt", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(crypto_rand.Reader, nonce); err != nil {
		return apperr.Wrap(apperr.Io, "reading nonce", err)
	}

	key := deriveKey(pass, salt)
	defer zero(key)

	gcm, err := newAESGCM(key)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "building AEAD", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.WriteByte(version)
	buf.Write(salt)
	buf.Write(nonce)
	buf.Write(ciphertext)

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.Wrap(apperr.Io, "creating parent directory", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(encoded), 0o600); err != nil {
		return apperr.Wrap(apperr.Io, "writing envelope", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.Wrap(apperr.Io, "renaming envelope into place", err)
	}
	return nil
}

// DecryptFromFile reverses EncryptToFile and unmarshals the plaintext JSON
// into a value of type T.
func DecryptFromFile[T any](path string, pass []byte) (T, error) {
	var zero T

	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, apperr.Wrap(apperr.Io, "reading envelope", err)
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(raw)))
	n, err := base64.StdEncoding.Decode(decoded, bytes.TrimSpace(raw))
	if err != nil {
		return zero, apperr.Wrap(apperr.Internal, "base64 decode envelope", errJoin(ErrBase64, err))
	}
	decoded = decoded[:n]

	if len(decoded) < minDataLen {
		return zero, apperr.Wrap(apperr.Internal, "envelope too short", ErrTooShort)
	}
	if !bytes.Equal(decoded[:len(magic)], []byte(magic)) {
		return zero, apperr.Wrap(apperr.Internal, "bad envelope magic", ErrBadMagic)
	}
	off := len(magic)
	if decoded[off] != version {
		return zero, apperr.Newf(apperr.Internal, "unsupported envelope version %d", decoded[off])
	}
	off++

	salt := decoded[off : off+saltLen]
	off += saltLen
	nonce := decoded[off : off+nonceLen]
	off += nonceLen
	ciphertext := decoded[off:]

	key := deriveKey(pass, salt)
	defer zeroKey(&key)

	gcm, err := newAESGCM(key)
	if err != nil {
		return zero, apperr.Wrap(apperr.Internal, "building AEAD", errJoin(ErrKdfFailed, err))
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return zero, apperr.Wrap(apperr.AuthFailed, "authenticating envelope", errJoin(ErrAuthFailed, err))
	}

	var value T
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return zero, apperr.Wrap(apperr.Internal, "unmarshal envelope value", errJoin(ErrJSONParse, err))
	}
	return value, nil
}

func errJoin(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return errors.Join(sentinel, err)
}

func deriveKey(pass, salt []byte) []byte {
	return argon2.IDKey(pass, salt, argonTime, argonMemory, argonLanes, argonKeyLen)
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func zeroKey(k *[]byte) { zero(*k) }
