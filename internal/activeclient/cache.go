// Package activeclient implements a lazily built singleton signing client
// bound to whatever identity is currently active, invalidated
// synchronously by any key-index mutation. The double-checked fast-path
// plus build mutex gives one signing client, rebuilt on identity change,
// without a build stampede under concurrent callers.
package activeclient

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/keystore"
	"github.com/nostr-mcp/goostr/internal/nostrkey"
	"github.com/nostr-mcp/goostr/internal/relay"
	"github.com/nostr-mcp/goostr/internal/secretstore"
	"github.com/nostr-mcp/goostr/internal/settings"
	"github.com/nostr-mcp/goostr/internal/signing"
)

// RelayFactory builds a relay handle for a given URL and read/write mode;
// swappable in tests to avoid real network I/O.
type RelayFactory func(url, readWrite string) signing.RelayHandle

// Cache is the active-client cache component.
type Cache struct {
	mu      sync.RWMutex
	buildMu sync.Mutex

	keys     *keystore.KeyStore
	settings *settings.Store
	secrets  secretstore.Store
	logger   *slog.Logger
	newRelay RelayFactory

	client      *signing.ActiveClient
	localSigner *signing.LocalSigner
}

// New wires a cache to its data sources. It also registers itself as the
// keystore's invalidate hook so every key-index mutation drops the cached
// client.
func New(keys *keystore.KeyStore, store *settings.Store, secrets secretstore.Store, logger *slog.Logger, newRelay RelayFactory) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if newRelay == nil {
		newRelay = func(url, readWrite string) signing.RelayHandle {
			return relay.New(url, readWrite, logger)
		}
	}
	c := &Cache{keys: keys, settings: store, secrets: secrets, logger: logger, newRelay: newRelay}
	keys.SetInvalidateHook(c.Invalidate)
	return c
}

// Invalidate discards the live client synchronously.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.localSigner != nil {
		c.localSigner.Zero()
	}
	c.client = nil
	c.localSigner = nil
}

// Ensure returns the cached client if it is still fresh; otherwise it
// rebuilds one from scratch against the key index, the secret store, and
// the settings store, under a double-checked build lock.
func (c *Cache) Ensure(ctx context.Context) (*signing.ActiveClient, error) {
	if client, ok := c.fresh(); ok {
		return client, nil
	}

	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	if client, ok := c.fresh(); ok {
		return client, nil
	}

	active := c.keys.Active()
	if active == nil {
		return nil, apperr.Wrap(apperr.NoActiveKey, "no active identity", keystore.ErrNoActive)
	}

	_, pubBytes, err := nostrkey.DecodeBech32(active.PublicKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "decoding active public key", err)
	}
	pubHex := hex.EncodeToString(pubBytes)

	var signer signing.Signer
	var localSigner *signing.LocalSigner
	if secret, found, err := c.secrets.Get(active.Label); err != nil {
		return nil, err
	} else if found {
		_, privBytes, err := nostrkey.DecodeBech32(secret)
		if err != nil {
			c.logger.Warn("stored secret is not valid nsec material", "label", active.Label, "error", err)
		} else {
			localSigner = signing.NewLocalSigner(privBytes, pubHex)
			signer = localSigner
		}
	}

	client := &signing.ActiveClient{
		ActiveLabel: active.Label,
		PublicKey:   pubHex,
		Signer:      signer,
	}

	if entrySettings, ok := c.settings.Get(pubHex); ok {
		for _, url := range entrySettings.Relays {
			handle := c.newRelay(url, relay.ReadWriteBoth)
			client.Relays = append(client.Relays, handle)
			// Connection failures are logged, never propagated: connect()
			// is fire-and-forget per the cache's own contract.
			if err := handle.Connect(ctx); err != nil {
				c.logger.Warn("relay connect failed", "url", url, "error", err)
			}
		}
	}

	c.mu.Lock()
	c.client = client
	c.localSigner = localSigner
	c.mu.Unlock()

	return client, nil
}

// fresh returns the cached client if it exists and still matches the key
// index's current active label.
func (c *Cache) fresh() (*signing.ActiveClient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client != nil && c.client.ActiveLabel == c.keys.ActiveLabel() {
		return c.client, true
	}
	return nil, false
}
