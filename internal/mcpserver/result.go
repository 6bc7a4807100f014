// Package mcpserver exposes the identity service through an MCP tool
// surface over stdio, converting every *apperr.Error into the transport's
// error result only at this boundary.
package mcpserver

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nostr-mcp/goostr/internal/apperr"
)

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func errResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(errMessage(err)), nil
}

func errMessage(err error) string {
	kind := apperr.Of(err)
	return string(kind) + ": " + err.Error()
}
