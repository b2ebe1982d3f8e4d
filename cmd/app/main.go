package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ehwaz/internal"
	pkgconfig "github.com/starford/ehwaz/pkg/config"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("EHWAZ_CONFIG_FILE"),
		},
	}
}

func migrateFlags() []cli.Flag {
	return append(commonFlags(),
		&cli.BoolFlag{
			Name:  "incremental",
			Usage: "Skip notes whose checksum is unchanged since the last run",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Validate and report without writing anything",
		},
	)
}

// loadConfig builds the effective configuration: defaults first, then the
// YAML file, then positional SOURCE and TARGET arguments.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if args := cmd.Args(); args.Len() > 0 {
		if args.Len() != 2 {
			return nil, fmt.Errorf("expected SOURCE and TARGET arguments, got %d", args.Len())
		}
		cfg.Source.Path = args.Get(0)
		cfg.Target.Path = args.Get(1)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("incremental") {
		cfg.Migrate.Incremental = true
	}
	if cmd.Bool("dry-run") {
		cfg.Migrate.DryRun = true
	}
	return internal.Run(ctx, internal.WithConfig(cfg))
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Run(ctx, internal.WithConfig(cfg), internal.WithWatch())
}

func main() {
	cmd := &cli.Command{
		Name:  "ehwaz",
		Usage: "Migrate a Joplin Markdown export into a Bear-style vault with nested tags",
		Commands: []*cli.Command{
			{
				Name:      "migrate",
				Usage:     "Run a single migration pass and exit",
				ArgsUsage: "[SOURCE TARGET]",
				Flags:     migrateFlags(),
				Action:    runMigrate,
			},
			{
				Name:      "watch",
				Usage:     "Migrate, then mirror source changes and serve the HTTP API",
				ArgsUsage: "[SOURCE TARGET]",
				Flags:     commonFlags(),
				Action:    runWatch,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
