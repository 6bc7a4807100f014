package mcpserver

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nostr-mcp/goostr/internal/service"
)

const (
	serverName    = "goostr"
	serverVersion = "0.1.0"
)

// New builds the MCP server and registers every tool, dispatching each
// through ctx's key index, settings store, and active-client cache.
func New(ctx *service.Context, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := server.NewMCPServer(serverName, serverVersion)

	registerKeyTools(s, ctx, logger)
	registerConfigTools(s, ctx, logger)
	registerRelayTools(s, ctx, logger)
	registerEventTools(s, ctx, logger)
	registerProfileTools(s, ctx, logger)
	registerFollowTools(s, ctx, logger)

	return s
}
