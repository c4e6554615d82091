package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tonearm/internal"
	pkgconfig "github.com/starford/tonearm/pkg/config"
)

// loadConfig reads the config file. The default path may be absent, in which
// case built-in defaults apply; an explicitly given path must exist.
func loadConfig(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func importFiles(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("import: at least one path is required")
	}
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	added, err := internal.Import(ctx, paths, opts...)
	for _, t := range added {
		fmt.Fprintf(cmd.Root().Writer, "%s\t%s\t%s\n", t.ID, t.Title, t.Duration)
	}
	return err
}

func rescan(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	updated, err := internal.Rescan(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "updated %d track(s)\n", len(updated))
	return nil
}

func wipe(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("wipe: refusing without --yes")
	}
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Wipe(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "tonearm",
		Usage:  "Personal music player: track library with metadata extraction, playback and a live spectrum visualizer",
		Action: run,
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
				Usage:  "Run the HTTP service (default)",
				Action: run,
			},
			{
				Name:   "mcp",
				Usage:  "Expose the library over the Model Context Protocol on stdio",
				Action: serveMCP,
			},
			{
				Name:      "import",
				Usage:     "Import local audio files into the library",
				ArgsUsage: "<path>...",
				Action:    importFiles,
			},
			{
				Name:   "rescan",
				Usage:  "Re-extract metadata for tracks with default fields",
				Action: rescan,
			},
			{
				Name:  "wipe",
				Usage: "Delete every imported track",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm the wipe"},
				},
				Action: wipe,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
