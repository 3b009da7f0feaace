package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/sitedesk/internal"
	pkgconfig "github.com/starford/sitedesk/pkg/config"
)

var version = "dev"

type runner func(ctx context.Context, opts ...internal.Option) error

func action(name string, fn runner) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}

		if err := fn(ctx, opts...); err != nil {
			return fmt.Errorf("%s error: %w", name, err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "sitedesk",
		Usage:   "Local admin backend for a file-based multilingual content site",
		Version: version,
		Action:  action("serve", internal.Run),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP admin API and event stream",
				Action: action("serve", internal.Run),
			},
			{
				Name:   "scan",
				Usage:  "Print the content catalog as JSON",
				Action: action("scan", internal.RunScan),
			},
			{
				Name:   "mcp",
				Usage:  "Serve content tools over MCP on stdio",
				Action: action("mcp", internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
