package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nostr-mcp/goostr/internal/relay"
	"github.com/nostr-mcp/goostr/internal/service"
	"github.com/nostr-mcp/goostr/internal/settings"
)

func registerProfileTools(s *server.MCPServer, ctx *service.Context, logger *slog.Logger) {
	s.AddTool(mcp.NewTool("nostr_profile_set",
		mcp.WithDescription("Set the active identity's profile metadata and publish a kind:0 event"),
		mcp.WithString("name"), mcp.WithString("display_name"), mcp.WithString("about"),
		mcp.WithString("picture"), mcp.WithString("banner"), mcp.WithString("nip05"),
		mcp.WithString("lud06"), mcp.WithString("lud16"), mcp.WithString("website"),
	), func(reqCtx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metadata := settings.ProfileMetadata{
			Name:        req.GetString("name", ""),
			DisplayName: req.GetString("display_name", ""),
			About:       req.GetString("about", ""),
			Picture:     req.GetString("picture", ""),
			Banner:      req.GetString("banner", ""),
			NIP05:       req.GetString("nip05", ""),
			LUD06:       req.GetString("lud06", ""),
			LUD16:       req.GetString("lud16", ""),
			Website:     req.GetString("website", ""),
		}

		pubHex, err := activePubKeyHex(ctx)
		if err != nil {
			return errResult(err)
		}
		current, _ := ctx.Settings.Get(pubHex)
		current.Metadata = &metadata
		if err := ctx.Settings.Save(pubHex, current); err != nil {
			return errResult(err)
		}

		client, err := ctx.Cache.Ensure(reqCtx)
		if err != nil {
			return errResult(err)
		}
		content, err := json.Marshal(metadata)
		if err != nil {
			return errResult(err)
		}
		event, err := relay.BuildAndSign(reqCtx, client.Signer, 0, nil, string(content))
		if err != nil {
			return errResult(err)
		}
		publishToWriteRelays(client.Relays, event, logger)

		return jsonResult(metadata)
	})

	s.AddTool(mcp.NewTool("nostr_profile_get",
		mcp.WithDescription("Return the active identity's locally cached profile metadata"),
	), func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pubHex, err := activePubKeyHex(ctx)
		if err != nil {
			return errResult(err)
		}
		current, _ := ctx.Settings.Get(pubHex)
		return jsonResult(current.Metadata)
	})
}
