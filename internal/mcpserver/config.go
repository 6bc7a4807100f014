package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nostr-mcp/goostr/internal/paths"
	"github.com/nostr-mcp/goostr/internal/service"
)

func registerConfigTools(s *server.MCPServer, ctx *service.Context, logger *slog.Logger) {
	s.AddTool(mcp.NewTool("nostr_config_dir",
		mcp.WithDescription("Report, or change, the config directory this service reads and writes"),
		mcp.WithString("path", mcp.Description("if set, rebuilds the key index and settings store at this directory")),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path != "" {
			if err := ctx.SetConfigDir(path); err != nil {
				return errResult(err)
			}
			logger.Info("config dir changed", "dir", ctx.ConfigDir)
		}
		return jsonResult(map[string]string{
			"dir":  ctx.ConfigDir,
			"file": paths.IndexPath(ctx.ConfigDir),
		})
	})
}
