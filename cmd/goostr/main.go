package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	"github.com/nostr-mcp/goostr/internal/hostconfig"
	"github.com/nostr-mcp/goostr/internal/logging"
	"github.com/nostr-mcp/goostr/internal/mcpserver"
	"github.com/nostr-mcp/goostr/internal/paths"
	"github.com/nostr-mcp/goostr/internal/secretstore"
	"github.com/nostr-mcp/goostr/internal/service"
	"github.com/nostr-mcp/goostr/internal/tui"
)

const (
	extensionID   = "goostr"
	extensionName = "Goostr"
	toolTimeout   = 300
)

func main() {
	app := &cli.Command{
		Name:  "goostr",
		Usage: "Nostr identity and credential service, exposed as an MCP tool server",
		Commands: []*cli.Command{
			cmdStart(),
			cmdInstall(),
			cmdUninstall(),
			cmdKeys(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildServiceContext() (*service.Context, *slog.Logger, func() error, error) {
	configDir := paths.ConfigRoot()
	logCfg := logging.FromEnv(configDir)
	logger, closeLog := logging.New(logCfg)

	ctx, err := service.New(configDir, secretstore.NewOSKeyring(), logger)
	if err != nil {
		return nil, nil, closeLog, err
	}
	return ctx, logger, closeLog, nil
}

func cmdStart() *cli.Command {
	return &cli.Command{
		Name:    "start",
		Aliases: []string{"stdio", "serve"},
		Usage:   "Run the MCP tool server over stdio",
		Action: func(_ context.Context, _ *cli.Command) error {
			svc, logger, closeLog, err := buildServiceContext()
			if err != nil {
				return err
			}
			defer closeLog()

			s := mcpserver.New(svc, logger)
			logger.Info("starting goostr MCP server", "config_dir", svc.ConfigDir)
			return server.ServeStdio(s)
		},
	}
}

func cmdInstall() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Register goostr as a stdio extension in the host agent's config",
		Action: func(_ context.Context, c *cli.Command) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolving executable path: %w", err)
			}
			entry := hostconfig.ExtensionEntry{
				Enabled:        true,
				Name:           extensionID,
				DisplayName:    extensionName,
				Description:    "Nostr identity and credential management",
				Timeout:        toolTimeout,
				Bundled:        false,
				AvailableTools: []string{},
				Cmd:            exe,
				Args:           []string{"start"},
				Envs:           map[string]string{},
				EnvKeys:        []string{"GOOSTR_DIR"},
			}
			if err := hostconfig.UpsertStdioExtension(extensionID, entry); err != nil {
				return err
			}
			fmt.Printf("Installed %s into %s\n", extensionID, hostconfig.Path())
			return nil
		},
	}
}

func cmdUninstall() *cli.Command {
	return &cli.Command{
		Name:  "uninstall",
		Usage: "Remove goostr's stdio extension entry from the host agent's config",
		Action: func(_ context.Context, c *cli.Command) error {
			changed, err := hostconfig.RemoveExtension(extensionID)
			if err != nil {
				return err
			}
			if changed {
				fmt.Printf("Removed %s from %s\n", extensionID, hostconfig.Path())
			} else {
				fmt.Println("Nothing to remove.")
			}
			return nil
		},
	}
}

func cmdKeys() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Interactively browse stored identities",
		Action: func(_ context.Context, c *cli.Command) error {
			svc, _, closeLog, err := buildServiceContext()
			if err != nil {
				return err
			}
			defer closeLog()

			return tui.RunKeysTable(svc.Keys)
		},
	}
}
