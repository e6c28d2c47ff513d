package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/klauern/conflictfix/internal/backup"
	"github.com/klauern/conflictfix/internal/config"
	"github.com/klauern/conflictfix/internal/logging"
	"github.com/klauern/conflictfix/internal/ui"
	"github.com/klauern/conflictfix/internal/ui/tui"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Inspect and restore copies taken by repair --backup",
		Commands: []*cli.Command{
			backupListCommand(),
			backupRestoreCommand(),
			backupVerifyCommand(),
			backupCleanCommand(),
		},
	}
}

func backupListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List backups, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "run",
				Usage: "Only show backups from `RUN`",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Only show backups of the file at `PATH`",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   config.FormatText,
				Usage:   "Output format: text, json",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Browse backups and restore, delete or verify one",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			backups, err := listBackups(cmd.String("run"), cmd.String("file"))
			if err != nil {
				return err
			}

			if cmd.Bool("interactive") {
				if !isInteractiveTerminal() {
					return errors.New("--interactive requires a terminal")
				}
				return browseBackups(backups)
			}

			switch cmd.String("format") {
			case config.FormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(backups); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
				return nil
			case config.FormatText:
				return outputBackupsText(backups)
			default:
				return fmt.Errorf("invalid format: %s (use text or json)", cmd.String("format"))
			}
		},
	}
}

// listBackups returns backups filtered by run and file, newest first.
func listBackups(run, file string) ([]backup.Metadata, error) {
	if file == "" {
		return backup.List(run)
	}

	backups, err := backup.History(file)
	if err != nil {
		return nil, err
	}
	if run != "" {
		backups = slices.DeleteFunc(backups, func(b backup.Metadata) bool { return b.Run != run })
	}
	return backups, nil
}

func outputBackupsText(backups []backup.Metadata) error {
	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	fmt.Printf("%-28s %-20s %8s %-16s %s\n", "ID", "RUN", "SIZE", "CREATED", "FILE")
	for _, b := range backups {
		fmt.Printf("%-28s %-20s %8s %-16s %s\n",
			b.ID,
			b.Run,
			humanize.Bytes(uint64(max(b.Size, 0))),
			humanize.Time(b.CreatedAt),
			b.SourcePath,
		)
	}

	stats, err := backup.GetStats()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(ui.Dim(fmt.Sprintf("%d backup(s) in %d run(s), %s total",
		stats.TotalBackups, stats.Runs, humanize.Bytes(uint64(max(stats.TotalSize, 0))))))
	return nil
}

// browseBackups runs the backup picker and applies the chosen action.
func browseBackups(backups []backup.Metadata) error {
	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	result, err := runBackupList(backups)
	if err != nil {
		return fmt.Errorf("backup list failed: %w", err)
	}

	id := result.Backup.ID
	switch result.Action {
	case tui.ActionRestore:
		path, err := backup.Restore(id, "")
		if err != nil {
			return err
		}
		logging.Info("backup restored", logging.Path(path), slog.String("id", id))
		fmt.Println("Restored: " + path)
	case tui.ActionDelete:
		if err := backup.Delete(id); err != nil {
			return err
		}
		fmt.Println("Removed: " + id)
	case tui.ActionVerify:
		if err := backup.Verify(id); err != nil {
			fmt.Println(ui.StatusError(fmt.Sprintf("%s: %v", id, err)))
			return fmt.Errorf("backup %s failed verification", id)
		}
		fmt.Println(ui.StatusSuccess(id))
	default:
		fmt.Println("Cancelled")
	}
	return nil
}

func backupRestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Write backed-up content back to the original files",
		UsageText: "conflictfix backup restore <id>... | --run RUN | --latest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "run",
				Usage: "Restore every file backed up by `RUN`",
			},
			&cli.BoolFlag{
				Name:  "latest",
				Usage: "Restore every file backed up by the most recent run",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Write a single backup to `PATH` instead of its original location",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			run := cmd.String("run")
			if cmd.Bool("latest") {
				latest, err := backup.LatestRun()
				if err != nil {
					return err
				}
				run = latest
			}

			ids := cmd.Args().Slice()
			switch {
			case run != "" && len(ids) > 0:
				return errors.New("give backup IDs or a run, not both")
			case run == "" && len(ids) == 0:
				return errors.New("no backup selected (pass IDs, --run or --latest)")
			case cmd.String("to") != "" && len(ids) != 1:
				return errors.New("--to needs exactly one backup ID")
			}

			var restored []string
			if run != "" {
				paths, err := backup.RestoreRun(run)
				restored = paths
				printRestored(restored)
				if err != nil {
					return err
				}
			} else {
				for _, id := range ids {
					path, err := backup.Restore(id, cmd.String("to"))
					if err != nil {
						printRestored(restored)
						return err
					}
					restored = append(restored, path)
				}
				printRestored(restored)
			}

			logging.Info("backups restored", logging.Count(len(restored)))
			fmt.Printf("Total files restored: %d\n", len(restored))
			return nil
		},
	}
}

func printRestored(paths []string) {
	for _, p := range paths {
		fmt.Println("Restored: " + p)
	}
}

func backupVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check backups against their recorded hashes",
		UsageText: "conflictfix backup verify [id]...",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				backups, err := backup.List("")
				if err != nil {
					return err
				}
				for _, b := range backups {
					ids = append(ids, b.ID)
				}
			}

			failed := 0
			for _, id := range ids {
				if err := backup.Verify(id); err != nil {
					failed++
					fmt.Println(ui.StatusError(fmt.Sprintf("%s: %v", id, err)))
					continue
				}
				fmt.Println(ui.StatusSuccess(id))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d backup(s) failed verification", failed, len(ids))
			}
			return nil
		},
	}
}

func backupCleanCommand() *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "Remove old backups",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max",
				Value: -1,
				Usage: "Backups to keep per file (default: backup.max_backups, 0 = unlimited)",
			},
			&cli.IntFlag{
				Name:  "max-age-days",
				Value: -1,
				Usage: "Remove backups older than this many days (default: backup.max_age_days, 0 = never)",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "List backups that would be removed",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			opts := cleanupOptions(cfg)
			if n := cmd.Int("max"); n >= 0 {
				opts.MaxBackups = int(n)
			}
			if days := cmd.Int("max-age-days"); days >= 0 {
				opts.MaxAge = time.Duration(days) * 24 * time.Hour
			}
			opts.DryRun = cmd.Bool("dry-run")

			deleted, err := backup.Cleanup(opts)
			for _, id := range deleted {
				if opts.DryRun {
					fmt.Println("Would remove: " + id)
				} else {
					fmt.Println("Removed: " + id)
				}
			}
			if err != nil {
				return err
			}

			if opts.DryRun {
				fmt.Printf("Total backups that would be removed: %d\n", len(deleted))
			} else {
				fmt.Printf("Total backups removed: %d\n", len(deleted))
			}
			return nil
		},
	}
}

// cleanupOptions converts the configured retention into cleanup options.
func cleanupOptions(cfg *config.Config) backup.CleanupOptions {
	opts := backup.DefaultCleanupOptions()
	opts.MaxBackups = cfg.Backup.MaxBackups
	opts.MaxAge = time.Duration(cfg.Backup.MaxAgeDays) * 24 * time.Hour
	return opts
}
