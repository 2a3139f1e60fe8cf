// Package commands implements the zohocrm developer CLI: a thin harness over
// the client library for poking at modules, records and users from a shell.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	zohocrm "github.com/growthpath/zohocrm-go"
	"github.com/growthpath/zohocrm-go/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "zohocrm",
		Usage: "Zoho CRM from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: defaultLogFormat(),
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "CRM API base URL (production, sandbox or another data center)",
				Value: zohocrm.DefaultConfigBaseURL,
			},
			&cli.StringFlag{
				Name:  "accounts-url",
				Usage: "accounts server hosting the OAuth token endpoint",
				Value: zohocrm.DefaultConfigAccountsURL,
			},
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "token storage backend (file|keyring)",
				Value: string(zohocrm.DefaultConfigAuthStorage),
			},
			&cli.StringFlag{
				Name:  "auth--token-dir",
				Usage: "directory holding the persisted access token (file storage)",
			},
		},
		Commands: []*cli.Command{
			getCommand(),
			listCommand(),
			deletedCommand(),
			deleteCommand(),
			upsertCommand(),
			usersCommand(),
			findUserCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// defaultLogFormat picks human-readable output on a terminal, json otherwise.
func defaultLogFormat() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "text"
	}
	return "json"
}

// run wires config loading, logging and client construction in front of a
// subcommand action. Credentials come from the config file or the
// environment (ZOHOCRM_AUTH__REFRESH_TOKEN and friends).
func run(action func(ctx context.Context, cmd *cli.Command, client *zohocrm.Client) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		var level slog.Level
		if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		shutdown, err := observability.Instrument(level, cmd.String("log-format"))
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()

		client, err := zohocrm.New(ctx, *cfg)
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		return action(ctx, cmd, client)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
