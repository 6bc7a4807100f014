package mcpserver

import (
	"context"
	"encoding/hex"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/nostrkey"
	"github.com/nostr-mcp/goostr/internal/relay"
	"github.com/nostr-mcp/goostr/internal/service"
	"github.com/nostr-mcp/goostr/internal/signing"
)

// activePubKeyHex resolves the hex public key settings are keyed by.
func activePubKeyHex(ctx *service.Context) (string, error) {
	active := ctx.Keys.Active()
	if active == nil {
		return "", apperr.New(apperr.NoActiveKey, "no active identity")
	}
	_, data, err := nostrkey.DecodeBech32(active.PublicKey)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "decoding active public key", err)
	}
	return hex.EncodeToString(data), nil
}

func registerRelayTools(s *server.MCPServer, ctx *service.Context, logger *slog.Logger) {
	s.AddTool(mcp.NewTool("nostr_relays_set",
		mcp.WithDescription("Add a relay to the active identity's relay list"),
		mcp.WithString("url", mcp.Required()),
		mcp.WithString("read_write", mcp.Enum("read", "write", "both"), mcp.DefaultString("both")),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return errResult(err)
		}
		readWrite := req.GetString("read_write", relay.ReadWriteBoth)
		if readWrite != relay.ReadWriteRead && readWrite != relay.ReadWriteWrite && readWrite != relay.ReadWriteBoth {
			return errResult(apperr.Newf(apperr.InvalidParams, "invalid read_write value %q", readWrite))
		}

		pubHex, err := activePubKeyHex(ctx)
		if err != nil {
			return errResult(err)
		}
		current, _ := ctx.Settings.Get(pubHex)
		if !containsURL(current.Relays, url) {
			current.Relays = append(current.Relays, url)
		}
		if err := ctx.Settings.Save(pubHex, current); err != nil {
			return errResult(err)
		}
		ctx.Cache.Invalidate()

		return jsonResult(current)
	})

	s.AddTool(mcp.NewTool("nostr_relays_connect",
		mcp.WithDescription("Ensure the active signing client is built and its relays are connecting"),
	), func(reqCtx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := ctx.Cache.Ensure(reqCtx)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(relayStatuses(client.Relays))
	})

	s.AddTool(mcp.NewTool("nostr_relays_disconnect",
		mcp.WithDescription("Remove a relay from the active identity's list and disconnect it"),
		mcp.WithString("url", mcp.Required()),
		mcp.WithBoolean("force_remove", mcp.Description("drop the connection immediately instead of draining"), mcp.DefaultBool(false)),
	), func(reqCtx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return errResult(err)
		}
		forceRemove := req.GetBool("force_remove", false)

		pubHex, err := activePubKeyHex(ctx)
		if err != nil {
			return errResult(err)
		}
		current, ok := ctx.Settings.Get(pubHex)
		if ok {
			current.Relays = removeURL(current.Relays, url)
			if err := ctx.Settings.Save(pubHex, current); err != nil {
				return errResult(err)
			}
		}

		if client, err := ctx.Cache.Ensure(reqCtx); err == nil {
			for _, r := range client.Relays {
				if r.URL() == url {
					if err := r.Disconnect(forceRemove); err != nil {
						logger.Warn("relay disconnect failed", "url", url, "error", err)
					}
				}
			}
		}
		ctx.Cache.Invalidate()

		return jsonResult(map[string]bool{"removed": true})
	})

	s.AddTool(mcp.NewTool("nostr_relays_status",
		mcp.WithDescription("Report the connection status of the active identity's configured relays"),
	), func(reqCtx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := ctx.Cache.Ensure(reqCtx)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(relayStatuses(client.Relays))
	})
}

type relayStatus struct {
	URL       string `json:"url"`
	ReadWrite string `json:"read_write"`
	Status    string `json:"status"`
}

func relayStatuses(relays []signing.RelayHandle) []relayStatus {
	out := make([]relayStatus, 0, len(relays))
	for _, r := range relays {
		out = append(out, relayStatus{URL: r.URL(), ReadWrite: r.ReadWrite(), Status: r.Status()})
	}
	return out
}

func containsURL(urls []string, url string) bool {
	for _, u := range urls {
		if u == url {
			return true
		}
	}
	return false
}

func removeURL(urls []string, url string) []string {
	out := urls[:0]
	for _, u := range urls {
		if u != url {
			out = append(out, u)
		}
	}
	return out
}
