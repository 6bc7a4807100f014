// Package service assembles the key index, settings store, and
// active-client cache into one explicit handle instead of process-wide
// globals.
package service

import (
	"log/slog"

	"github.com/nostr-mcp/goostr/internal/activeclient"
	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/keystore"
	"github.com/nostr-mcp/goostr/internal/paths"
	"github.com/nostr-mcp/goostr/internal/secretstore"
	"github.com/nostr-mcp/goostr/internal/settings"
)

// Context bundles the keystore, settings store, and active-client cache
// for one config directory.
type Context struct {
	ConfigDir string

	Keys     *keystore.KeyStore
	Settings *settings.Store
	Cache    *activeclient.Cache

	secrets secretstore.Store
	logger  *slog.Logger
}

// New loads or initializes the key index and settings store from
// configDir and wires the active-client cache to them.
func New(configDir string, secrets secretstore.Store, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	masterSecret, err := paths.EnsureMasterSecret(configDir)
	if err != nil {
		return nil, err
	}

	keys, err := keystore.LoadOrInit(
		paths.IndexPath(configDir),
		paths.LegacyIndexPath(configDir),
		masterSecret,
		secrets,
		logger,
	)
	if err != nil {
		return nil, err
	}

	store, err := settings.LoadOrInit(paths.SettingsPath(configDir), masterSecret)
	if err != nil {
		return nil, err
	}

	cache := activeclient.New(keys, store, secrets, logger, nil)

	return &Context{
		ConfigDir: configDir,
		Keys:      keys,
		Settings:  store,
		Cache:     cache,
		secrets:   secrets,
		logger:    logger,
	}, nil
}

// SetConfigDir rebuilds the key index and settings store against the new
// directory and invalidates the active-client cache.
func (c *Context) SetConfigDir(dir string) error {
	rebuilt, err := New(dir, c.secrets, c.logger)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "rebuilding service context for new config dir", err)
	}
	c.ConfigDir = rebuilt.ConfigDir
	c.Keys = rebuilt.Keys
	c.Settings = rebuilt.Settings
	c.Cache = rebuilt.Cache
	return nil
}
