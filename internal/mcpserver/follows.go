package mcpserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nostr-mcp/goostr/internal/relay"
	"github.com/nostr-mcp/goostr/internal/service"
	"github.com/nostr-mcp/goostr/internal/settings"
)

func registerFollowTools(s *server.MCPServer, ctx *service.Context, logger *slog.Logger) {
	s.AddTool(mcp.NewTool("nostr_follows_list",
		mcp.WithDescription("List the active identity's cached follows"),
	), func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pubHex, err := activePubKeyHex(ctx)
		if err != nil {
			return errResult(err)
		}
		current, _ := ctx.Settings.Get(pubHex)
		return jsonResult(current.Follows)
	})

	s.AddTool(mcp.NewTool("nostr_follows_add",
		mcp.WithDescription("Add or update a follow entry"),
		mcp.WithString("pubkey", mcp.Required()),
		mcp.WithString("relay_url"),
		mcp.WithString("petname"),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pubkey, err := req.RequireString("pubkey")
		if err != nil {
			return errResult(err)
		}
		entry := settings.FollowEntry{
			PubKey:   pubkey,
			RelayURL: req.GetString("relay_url", ""),
			Petname:  req.GetString("petname", ""),
		}

		pubHex, err := activePubKeyHex(ctx)
		if err != nil {
			return errResult(err)
		}
		current, _ := ctx.Settings.Get(pubHex)
		current.Follows = upsertFollow(current.Follows, entry)
		if err := ctx.Settings.Save(pubHex, current); err != nil {
			return errResult(err)
		}
		return jsonResult(current.Follows)
	})

	s.AddTool(mcp.NewTool("nostr_follows_remove",
		mcp.WithDescription("Remove a follow entry"),
		mcp.WithString("pubkey", mcp.Required()),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pubkey, err := req.RequireString("pubkey")
		if err != nil {
			return errResult(err)
		}
		pubHex, err := activePubKeyHex(ctx)
		if err != nil {
			return errResult(err)
		}
		current, _ := ctx.Settings.Get(pubHex)
		current.Follows = removeFollow(current.Follows, pubkey)
		if err := ctx.Settings.Save(pubHex, current); err != nil {
			return errResult(err)
		}
		return jsonResult(current.Follows)
	})

	s.AddTool(mcp.NewTool("nostr_follows_sync",
		mcp.WithDescription("Fetch the relay contact list and compare it to the local cache: no-op if equal, publish local if it differs and is non-empty, else adopt remote"),
	), func(reqCtx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pubHex, err := activePubKeyHex(ctx)
		if err != nil {
			return errResult(err)
		}
		current, _ := ctx.Settings.Get(pubHex)
		client, err := ctx.Cache.Ensure(reqCtx)
		if err != nil {
			return errResult(err)
		}

		filter := relay.Filter{Authors: []string{pubHex}, Kinds: []int{3}, Limit: 1}
		events := fetchEvents(client.Relays, filter, 10*time.Second, logger)

		var remoteFollows []settings.FollowEntry
		if len(events) > 0 {
			latest := events[0]
			for _, ev := range events[1:] {
				if ev.CreatedAt > latest.CreatedAt {
					latest = ev
				}
			}
			remoteFollows = followsFromTags(latest.Tags)
		}

		if followsEqual(current.Follows, remoteFollows) {
			return jsonResult(map[string]any{"action": "no_change", "follows": current.Follows})
		}

		if len(current.Follows) > 0 {
			event, err := relay.BuildAndSign(reqCtx, client.Signer, 3, followTags(current.Follows), "")
			if err != nil {
				return errResult(err)
			}
			publishToWriteRelays(client.Relays, event, logger)
			return jsonResult(map[string]any{"action": "published_local", "follows": current.Follows})
		}

		current.Follows = remoteFollows
		if err := ctx.Settings.Save(pubHex, current); err != nil {
			return errResult(err)
		}
		return jsonResult(map[string]any{"action": "adopted_remote", "follows": remoteFollows})
	})
}

// followsEqual compares two follow sets without regard to tag order, since
// relays are not required to preserve the order a contact list was written
// in.
func followsEqual(a, b []settings.FollowEntry) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(f settings.FollowEntry) string { return f.PubKey + "\x00" + f.RelayURL + "\x00" + f.Petname }
	counts := make(map[string]int, len(a))
	for _, f := range a {
		counts[key(f)]++
	}
	for _, f := range b {
		counts[key(f)]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func followTags(follows []settings.FollowEntry) [][]string {
	tags := make([][]string, 0, len(follows))
	for _, f := range follows {
		tags = append(tags, []string{"p", f.PubKey, f.RelayURL, f.Petname})
	}
	return tags
}

func followsFromTags(tags [][]string) []settings.FollowEntry {
	var follows []settings.FollowEntry
	for _, tag := range tags {
		if len(tag) == 0 || tag[0] != "p" {
			continue
		}
		entry := settings.FollowEntry{}
		if len(tag) > 1 {
			entry.PubKey = tag[1]
		}
		if len(tag) > 2 {
			entry.RelayURL = tag[2]
		}
		if len(tag) > 3 {
			entry.Petname = tag[3]
		}
		follows = append(follows, entry)
	}
	return follows
}

func upsertFollow(follows []settings.FollowEntry, entry settings.FollowEntry) []settings.FollowEntry {
	for i, f := range follows {
		if f.PubKey == entry.PubKey {
			follows[i] = entry
			return follows
		}
	}
	return append(follows, entry)
}

func removeFollow(follows []settings.FollowEntry, pubkey string) []settings.FollowEntry {
	out := follows[:0]
	for _, f := range follows {
		if f.PubKey != pubkey {
			out = append(out, f)
		}
	}
	return out
}
