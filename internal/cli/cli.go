// Package cli provides the command-line interface for conflictfix.
package cli

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/klauern/conflictfix/internal/config"
	"github.com/klauern/conflictfix/internal/logging"
	"github.com/klauern/conflictfix/internal/ui"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// Run executes the CLI application with the given context and arguments.
func Run(ctx context.Context, args []string) error {
	app := &cli.Command{
		Name:      "conflictfix",
		Usage:     "Resolve merge conflict markers by keeping the incoming side",
		UsageText: "conflictfix [global options] <root>\n   conflictfix [global options] <command> [options]",
		Version:   Version,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output (info level logging)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug output (debug level logging, implies verbose)",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Read configuration from `FILE` (.yaml or .toml)",
			},
		}, repairFlags(true)...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureColors(cmd)
			return ctx, configureLogging(cmd)
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return cli.ShowRootCommandHelp(cmd)
			}
			return runRepair(ctx, cmd, cmd.Args().First())
		},
		Commands: []*cli.Command{
			repairCommand(),
			scanCommand(),
			backupCommand(),
			configCommand(),
			versionCommand(),
		},
	}
	return app.Run(ctx, args)
}

// configureColors sets up color output based on CLI flags.
func configureColors(cmd *cli.Command) {
	if cmd.Bool("no-color") {
		ui.DisableColors()
	}
}

// configureLogging sets up the logging level based on CLI flags.
func configureLogging(cmd *cli.Command) error {
	opts := logging.DefaultOptions()

	if cmd.Bool("debug") {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	} else if cmd.Bool("verbose") {
		opts.Level = slog.LevelInfo
	}

	logger := logging.New(opts)
	logging.SetDefault(logger)

	logging.Debug("logging configured", slog.String("level", opts.Level.String()))

	return nil
}

// loadConfig reads the configuration named by --config, or the default
// config file, and applies its color mode unless --no-color was given.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if !cmd.Bool("no-color") {
		if err := ui.ApplyMode(cfg.Output.Color); err != nil {
			return nil, err
		}
	}

	logging.Debug("configuration loaded",
		logging.Root(cfg.Repair.Root),
		logging.Suffixes(cfg.Repair.Suffixes),
	)
	return cfg, nil
}

// suffixesFor returns the --ext values when given, otherwise the configured
// suffixes.
func suffixesFor(cmd *cli.Command, cfg *config.Config) ([]string, error) {
	exts := cmd.StringSlice("ext")
	if len(exts) == 0 {
		return cfg.Repair.Suffixes, nil
	}
	suffixes := config.NormalizeSuffixes(exts)
	if len(suffixes) == 0 {
		return nil, config.ErrNoSuffixes
	}
	return suffixes, nil
}
