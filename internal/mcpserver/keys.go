package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nostr-mcp/goostr/internal/service"
)

func registerKeyTools(s *server.MCPServer, ctx *service.Context, logger *slog.Logger) {
	s.AddTool(mcp.NewTool("nostr_keys_generate",
		mcp.WithDescription("Generate a new Nostr identity under the given label"),
		mcp.WithString("label", mcp.Required(), mcp.Description("stable handle for this identity")),
		mcp.WithBoolean("make_active", mcp.Description("make this the active identity"), mcp.DefaultBool(true)),
		mcp.WithBoolean("persist_secret", mcp.Description("store the private key in the OS keyring"), mcp.DefaultBool(true)),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, err := req.RequireString("label")
		if err != nil {
			return errResult(err)
		}
		makeActive := req.GetBool("make_active", true)
		persistSecret := req.GetBool("persist_secret", true)

		entry, err := ctx.Keys.Generate(label, makeActive, persistSecret)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(entry)
	})

	s.AddTool(mcp.NewTool("nostr_keys_import",
		mcp.WithDescription("Import an existing identity from bech32 or hex key material"),
		mcp.WithString("label", mcp.Required()),
		mcp.WithString("key_material", mcp.Required(), mcp.Description("nsec1..., npub1..., or 64-char hex")),
		mcp.WithBoolean("make_active", mcp.DefaultBool(true)),
		mcp.WithBoolean("persist_secret", mcp.DefaultBool(true)),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, err := req.RequireString("label")
		if err != nil {
			return errResult(err)
		}
		material, err := req.RequireString("key_material")
		if err != nil {
			return errResult(err)
		}
		makeActive := req.GetBool("make_active", true)
		persistSecret := req.GetBool("persist_secret", true)

		entry, err := ctx.Keys.Import(label, material, makeActive, persistSecret)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(entry)
	})

	s.AddTool(mcp.NewTool("nostr_keys_remove",
		mcp.WithDescription("Remove a stored identity and its keyring secret"),
		mcp.WithString("label", mcp.Required()),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, err := req.RequireString("label")
		if err != nil {
			return errResult(err)
		}
		_, removed, err := ctx.Keys.Remove(label)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(map[string]bool{"removed": removed})
	})

	s.AddTool(mcp.NewTool("nostr_keys_list",
		mcp.WithDescription("List all stored identities"),
	), func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keys := ctx.Keys.List()
		active := ctx.Keys.ActiveLabel()
		var activeField any
		if active != "" {
			activeField = active
		}
		return jsonResult(map[string]any{
			"keys":   keys,
			"count":  len(keys),
			"active": activeField,
		})
	})

	s.AddTool(mcp.NewTool("nostr_keys_set_active",
		mcp.WithDescription("Set the active identity"),
		mcp.WithString("label", mcp.Required()),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, err := req.RequireString("label")
		if err != nil {
			return errResult(err)
		}
		entry, err := ctx.Keys.SetActive(label)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(entry)
	})

	s.AddTool(mcp.NewTool("nostr_keys_active",
		mcp.WithDescription("Return the active identity, or null if none"),
	), func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(ctx.Keys.Active())
	})

	s.AddTool(mcp.NewTool("nostr_keys_rename_label",
		mcp.WithDescription("Rename a stored identity's label"),
		mcp.WithString("from", mcp.Description("defaults to the active label if omitted")),
		mcp.WithString("to", mcp.Required()),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		to, err := req.RequireString("to")
		if err != nil {
			return errResult(err)
		}
		from := req.GetString("from", "")
		if from == "" {
			from = ctx.Keys.ActiveLabel()
		}
		entry, err := ctx.Keys.Rename(from, to)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(entry)
	})

	s.AddTool(mcp.NewTool("nostr_keys_export",
		mcp.WithDescription("Export an identity's public (and optionally private) key material"),
		mcp.WithString("label", mcp.Description("defaults to the active identity")),
		mcp.WithString("format", mcp.Enum("bech32", "hex", "both"), mcp.DefaultString("both")),
		mcp.WithBoolean("include_private", mcp.DefaultBool(false)),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label := req.GetString("label", "")
		format := req.GetString("format", "both")
		includePrivate := req.GetBool("include_private", false)

		result, err := ctx.Keys.Export(label, format, includePrivate)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(result)
	})

	s.AddTool(mcp.NewTool("nostr_keys_verify",
		mcp.WithDescription("Check whether a bech32 or hex key decodes to a valid 32-byte value"),
		mcp.WithString("key", mcp.Required()),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return errResult(err)
		}
		return jsonResult(verifyKey(key))
	})

	s.AddTool(mcp.NewTool("nostr_keys_derive_public",
		mcp.WithDescription("Derive the public key (bech32 and hex) for a private key"),
		mcp.WithString("private_key", mcp.Required(), mcp.Description("nsec1... or 64-char hex")),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		priv, err := req.RequireString("private_key")
		if err != nil {
			return errResult(err)
		}
		result, err := derivePublic(priv)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(result)
	})
}
