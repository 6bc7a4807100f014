package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nostr-mcp/goostr/internal/apperr"
	"github.com/nostr-mcp/goostr/internal/relay"
	"github.com/nostr-mcp/goostr/internal/service"
	"github.com/nostr-mcp/goostr/internal/signing"
)

const defaultLookback = 7 * 24 * time.Hour

func registerEventTools(s *server.MCPServer, ctx *service.Context, logger *slog.Logger) {
	s.AddTool(mcp.NewTool("nostr_events_list",
		mcp.WithDescription("Fetch events from the active identity's relays"),
		mcp.WithString("preset", mcp.Enum("", "my_notes", "mentions_me", "my_metadata"),
			mcp.Description("canned filter; defaults to a 7-day lookback")),
		mcp.WithNumber("limit", mcp.DefaultNumber(50)),
		mcp.WithNumber("timeout_secs", mcp.DefaultNumber(10)),
	), func(reqCtx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := ctx.Cache.Ensure(reqCtx)
		if err != nil {
			return errResult(err)
		}

		preset := req.GetString("preset", "")
		limit := int(req.GetFloat("limit", 50))
		timeoutSecs := req.GetFloat("timeout_secs", 10)

		filter, err := presetFilter(preset, client.PublicKey, limit)
		if err != nil {
			return errResult(err)
		}

		events := fetchEvents(client.Relays, filter, time.Duration(timeoutSecs*float64(time.Second)), logger)
		return jsonResult(map[string]any{"events": events, "count": len(events)})
	})

	s.AddTool(mcp.NewTool("nostr_events_post_text",
		mcp.WithDescription("Publish a kind:1 text note as the active identity"),
		mcp.WithString("content", mcp.Required()),
	), func(reqCtx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return errResult(err)
		}

		client, err := ctx.Cache.Ensure(reqCtx)
		if err != nil {
			return errResult(err)
		}

		event, err := relay.BuildAndSign(reqCtx, client.Signer, 1, nil, content)
		if err != nil {
			return errResult(err)
		}

		publishToWriteRelays(client.Relays, event, logger)
		return jsonResult(event)
	})
}

func presetFilter(preset, activePubHex string, limit int) (relay.Filter, error) {
	since := time.Now().Add(-defaultLookback).Unix()
	filter := relay.Filter{Limit: limit, Since: &since}

	switch preset {
	case "", "my_notes":
		filter.Authors = []string{activePubHex}
		filter.Kinds = []int{1}
	case "mentions_me":
		filter.PTag = []string{activePubHex}
	case "my_metadata":
		filter.Authors = []string{activePubHex}
		filter.Kinds = []int{0}
	default:
		return relay.Filter{}, apperr.Newf(apperr.InvalidParams, "unknown preset %q", preset)
	}
	return filter, nil
}

// fetchEvents subscribes on every read-capable relay and collects EVENT
// frames until EOSE or timeout. Relay handles that are not the concrete
// WebSocket client (e.g. test doubles) are skipped.
func fetchEvents(relays []signing.RelayHandle, filter relay.Filter, timeout time.Duration, logger *slog.Logger) []relay.Event {
	var events []relay.Event
	deadline := time.Now().Add(timeout)

	for _, handle := range relays {
		if handle.ReadWrite() == relay.ReadWriteWrite {
			continue
		}
		rc, ok := handle.(*relay.Client)
		if !ok {
			continue
		}

		subID, err := rc.Subscribe(filter)
		if err != nil {
			logger.Warn("subscribe failed", "url", handle.URL(), "error", err)
			continue
		}

		for time.Now().Before(deadline) {
			_ = rc.SetReadDeadline(deadline)
			frame, err := rc.ReadMessage()
			if err != nil {
				break
			}
			if len(frame) < 2 {
				continue
			}
			var kind string
			if err := json.Unmarshal(frame[0], &kind); err != nil {
				continue
			}
			if kind == "EOSE" {
				break
			}
			if kind == "EVENT" && len(frame) >= 3 {
				var ev relay.Event
				if err := json.Unmarshal(frame[2], &ev); err == nil {
					events = append(events, ev)
				}
			}
		}
		_ = rc.Unsubscribe(subID)
	}
	return events
}

func publishToWriteRelays(relays []signing.RelayHandle, event relay.Event, logger *slog.Logger) {
	for _, handle := range relays {
		if handle.ReadWrite() == relay.ReadWriteRead {
			continue
		}
		rc, ok := handle.(*relay.Client)
		if !ok {
			continue
		}
		if err := rc.Publish(event); err != nil {
			logger.Warn("publish failed", "url", handle.URL(), "error", err)
		}
	}
}
