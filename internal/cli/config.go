package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/klauern/conflictfix/internal/config"
	"github.com/klauern/conflictfix/internal/logging"
	"github.com/klauern/conflictfix/internal/ui"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display or initialize configuration",
		Commands: []*cli.Command{
			configShowCommand(),
			configInitCommand(),
			configPathCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return showConfig(cmd, config.FormatText)
		},
	}
}

func configShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the effective configuration (file, environment, defaults)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   config.FormatText,
				Usage:   "Output format: text, yaml, json, toml",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return showConfig(cmd, cmd.String("format"))
		},
	}
}

func configInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default configuration file",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			if path == "" {
				path = config.FilePath()
			}

			if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check config file: %w", err)
			}

			if err := config.Default().SaveToPath(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			logging.Debug("config written", logging.Path(path))

			fmt.Println(ui.StatusSuccess("Wrote " + path))
			return nil
		},
	}
}

func configPathCommand() *cli.Command {
	return &cli.Command{
		Name:  "path",
		Usage: "Print the configuration file path",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			if path == "" {
				path = config.FilePath()
			}
			fmt.Println(path)
			return nil
		},
	}
}

func showConfig(cmd *cli.Command, format string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	switch format {
	case config.FormatText:
		outputConfigText(cfg, configSource(cmd))
		return nil
	case config.FormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case config.FormatYAML, config.FormatTOML:
		data, err := cfg.Marshal(format)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	default:
		return fmt.Errorf("invalid format: %s (use text, yaml, json, or toml)", format)
	}
}

// configSource describes where the effective configuration came from.
func configSource(cmd *cli.Command) string {
	path := cmd.String("config")
	if path == "" {
		path = config.FilePath()
	}
	if _, err := os.Stat(path); err != nil {
		return path + " (not found, using defaults)"
	}
	return path
}

func outputConfigText(cfg *config.Config, source string) {
	title := cases.Title(language.English)

	fmt.Println(ui.Bold("Configuration"))
	fmt.Println(ui.Dim("  " + source))

	sections := []struct {
		name   string
		fields [][2]string
	}{
		{"repair", [][2]string{
			{"root", cfg.Repair.Root},
			{"suffixes", strings.Join(cfg.Repair.Suffixes, ", ")},
		}},
		{"output", [][2]string{
			{"color", cfg.Output.Color},
			{"format", cfg.Output.Format},
			{"progress", fmt.Sprintf("%t", cfg.Output.Progress)},
		}},
		{"backup", [][2]string{
			{"enabled", fmt.Sprintf("%t", cfg.Backup.Enabled)},
			{"max backups", fmt.Sprintf("%d", cfg.Backup.MaxBackups)},
			{"max age days", fmt.Sprintf("%d", cfg.Backup.MaxAgeDays)},
		}},
	}

	for _, s := range sections {
		fmt.Println()
		fmt.Println(ui.Header(title.String(s.name)))
		for _, f := range s.fields {
			fmt.Printf("  %-14s %s\n", title.String(f[0])+":", f[1])
		}
	}
}
