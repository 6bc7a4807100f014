// Package secretstore abstracts per-label secret persistence against the
// platform keyring behind a small interface test doubles can substitute
// for.
package secretstore

import (
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/nostr-mcp/goostr/internal/apperr"
)

const service = "goostr"

// Store is the secret-persistence capability set.
type Store interface {
	Set(label, secret string) error
	// Get returns (secret, true, nil) when present, ("", false, nil) when
	// absent, and ("", false, err) on any other keyring failure.
	Get(label string) (string, bool, error)
	// Delete is idempotent with respect to "no entry".
	Delete(label string) error
}

// OSKeyring backs Store with the platform keyring via zalando/go-keyring.
type OSKeyring struct{}

func NewOSKeyring() OSKeyring { return OSKeyring{} }

func (OSKeyring) Set(label, secret string) error {
	if err := keyring.Set(service, label, secret); err != nil {
		return apperr.Wrap(apperr.Keyring, "storing secret", err)
	}
	return nil
}

func (OSKeyring) Get(label string) (string, bool, error) {
	secret, err := keyring.Get(service, label)
	switch {
	case err == nil:
		return secret, true, nil
	case errors.Is(err, keyring.ErrNotFound):
		return "", false, nil
	default:
		return "", false, apperr.Wrap(apperr.Keyring, "retrieving secret", err)
	}
}

func (OSKeyring) Delete(label string) error {
	err := keyring.Delete(service, label)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return apperr.Wrap(apperr.Keyring, "deleting secret", err)
}

// Memory is an in-process Store used by tests and by any caller that wants
// to inject a deterministic double instead of touching the real keyring.
type Memory struct {
	secrets map[string]string
}

func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]string)}
}

func (m *Memory) Set(label, secret string) error {
	m.secrets[label] = secret
	return nil
}

func (m *Memory) Get(label string) (string, bool, error) {
	s, ok := m.secrets[label]
	return s, ok, nil
}

func (m *Memory) Delete(label string) error {
	delete(m.secrets, label)
	return nil
}
