package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/klauern/conflictfix/internal/backup"
	"github.com/klauern/conflictfix/internal/config"
	"github.com/klauern/conflictfix/internal/diff"
	"github.com/klauern/conflictfix/internal/logging"
	"github.com/klauern/conflictfix/internal/progress"
	"github.com/klauern/conflictfix/internal/repair"
	"github.com/klauern/conflictfix/internal/ui"
	"github.com/klauern/conflictfix/internal/ui/tui"
)

// ErrConflictsFound is returned by scan --check when any file still has
// conflict regions.
var ErrConflictsFound = errors.New("conflict markers found")

// Indirections for tests.
var (
	runConflictList       = tui.RunConflictList
	runBackupList         = tui.RunBackupList
	isInteractiveTerminal = func() bool { return ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout) }
)

func extFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "ext",
		Aliases: []string{"e"},
		Usage:   "Eligible file `SUFFIX` (repeatable, replaces the configured list)",
	}
}

// repairFlags are shared by the repair command and the root command.
// On the root they are local so they do not shadow the subcommand's own.
func repairFlags(local bool) []cli.Flag {
	ext := extFlag()
	ext.Local = local
	return []cli.Flag{
		ext,
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"d"},
			Usage:   "Report files that would be repaired without writing them",
			Local:   local,
		},
		&cli.BoolFlag{
			Name:    "interactive",
			Aliases: []string{"i"},
			Usage:   "Choose which conflicted files to repair",
			Local:   local,
		},
		&cli.BoolFlag{
			Name:    "backup",
			Aliases: []string{"b"},
			Usage:   "Save the original content of each file before rewriting it",
			Local:   local,
		},
	}
}

func repairCommand() *cli.Command {
	return &cli.Command{
		Name:      "repair",
		Usage:     "Resolve conflict markers in place, keeping the incoming side",
		UsageText: "conflictfix repair [options] [root]",
		Description: `Walk root (default: the configured root, usually ".") and rewrite every
   eligible file that contains conflict regions. Each region is replaced by
   the lines between "=======" and ">>>>>>> ...". Files without regions are
   never written.

   With --backup (or backup.enabled in the config file) the original
   content of every rewritten file is kept and can be restored with
   "conflictfix backup restore".

   Examples:
     conflictfix repair
     conflictfix repair --dry-run src
     conflictfix repair --backup src
     conflictfix repair --ext .go --ext .mod .`,
		Flags: repairFlags(false),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runRepair(ctx, cmd, cmd.Args().First())
		},
	}
}

func runRepair(ctx context.Context, cmd *cli.Command, root string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	suffixes, err := suffixesFor(cmd, cfg)
	if err != nil {
		return err
	}
	if root == "" {
		root = cfg.Repair.Root
	}
	dryRun := cmd.Bool("dry-run")

	logger := logging.With(logging.Operation("repair"))
	ctx = logging.NewContext(ctx, logger)

	opts := repair.Options{
		Suffixes: suffixes,
		DryRun:   dryRun,
	}

	var run string
	if (cmd.Bool("backup") || cfg.Backup.Enabled) && !dryRun {
		run = backup.NewRunID()
		opts.BeforeWrite = func(path string, original []byte, regions int) error {
			_, err := backup.Create(path, original, backup.Options{Run: run, Regions: regions})
			return err
		}
	}

	var result *repair.Result
	if cmd.Bool("interactive") {
		result, err = runInteractiveRepair(ctx, root, opts, cfg)
	} else {
		result, err = runTreeRepair(ctx, root, opts, cfg)
	}

	if result != nil {
		logger.Info("files repaired",
			logging.Count(result.Count()),
			logging.Regions(result.Regions()),
			slog.Any("files", result.Paths()),
		)
	}
	if run != "" && result != nil && result.Count() > 0 {
		reportBackups(run, cfg)
	}
	return err
}

func runTreeRepair(ctx context.Context, root string, opts repair.Options, cfg *config.Config) (*repair.Result, error) {
	bar := progress.Spinner("Scanning", !cfg.Output.Progress)
	opts.OnVisit = func(string) {
		_ = bar.Add(1)
	}
	repaired := 0
	opts.OnRepaired = func(res repair.FileResult) {
		repaired++
		bar.Describe(fmt.Sprintf("Scanning (%d repaired)", repaired))
		_ = bar.Clear()
		fmt.Println(repair.Line(res, opts.DryRun))
	}

	result, err := repair.Tree(ctx, root, opts)
	_ = bar.Finish()
	if err != nil {
		return result, err
	}

	fmt.Println(result.Summary())
	return result, nil
}

func runInteractiveRepair(ctx context.Context, root string, opts repair.Options, cfg *config.Config) (*repair.Result, error) {
	if !isInteractiveTerminal() {
		return nil, errors.New("--interactive requires a terminal")
	}

	bar := progress.Spinner("Scanning", !cfg.Output.Progress)
	matches, err := repair.Scan(ctx, root, opts.Suffixes)
	_ = bar.Finish()
	if err != nil {
		return nil, err
	}

	empty := &repair.Result{Root: root, DryRun: opts.DryRun}
	if len(matches) == 0 {
		fmt.Println(ui.Dim("No conflict markers found"))
		fmt.Println(empty.Summary())
		return empty, nil
	}

	selection, err := runConflictList(matches)
	if err != nil {
		return nil, fmt.Errorf("interactive selection failed: %w", err)
	}
	if selection.Action != tui.ConflictActionRepair || len(selection.Selected) == 0 {
		fmt.Println(ui.Warning("Cancelled, no files changed"))
		return empty, nil
	}

	logging.Debug("repairing selected files", logging.Count(len(selection.Selected)))

	opts.OnRepaired = func(res repair.FileResult) {
		fmt.Println(repair.Line(res, opts.DryRun))
	}
	result, err := repair.Paths(ctx, selection.Paths(), opts)
	if err != nil {
		return result, err
	}

	fmt.Println(result.Summary())
	return result, nil
}

// reportBackups tells the user how to undo the run on stderr, keeping the
// stdout report unchanged, then prunes old backups per the config.
func reportBackups(run string, cfg *config.Config) {
	fmt.Fprintln(os.Stderr, ui.Dim(fmt.Sprintf("Backups saved as run %s (undo with: conflictfix backup restore --run %s)", run, run)))

	deleted, err := backup.Cleanup(cleanupOptions(cfg))
	if err != nil {
		logging.Warn("backup cleanup failed", logging.Err(err))
		return
	}
	if len(deleted) > 0 {
		logging.Info("pruned old backups", logging.Count(len(deleted)))
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "List files that contain conflict markers without changing them",
		UsageText: "conflictfix scan [options] [root]",
		Description: `Report every eligible file under root that still contains conflict
   regions, with the line range of each region.

   Output formats:
   - text: One line per file plus region details (default)
   - json: Machine-readable JSON output
   - yaml: Machine-readable YAML output

   Examples:
     conflictfix scan
     conflictfix scan --format json src
     conflictfix scan --diff src
     conflictfix scan --check || echo "unresolved conflicts"`,
		Flags: []cli.Flag{
			extFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, yaml (default: configured format)",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Exit with an error when any conflict is found",
			},
			&cli.BoolFlag{
				Name:  "diff",
				Usage: "Show the change a repair would make as a unified diff (text format only)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			suffixes, err := suffixesFor(cmd, cfg)
			if err != nil {
				return err
			}

			root := cmd.Args().First()
			if root == "" {
				root = cfg.Repair.Root
			}

			format := cmd.String("format")
			if format == "" {
				format = cfg.Output.Format
			}
			switch format {
			case config.FormatText, config.FormatJSON, config.FormatYAML:
			default:
				return fmt.Errorf("invalid format: %s (use text, json, or yaml)", format)
			}
			showDiff := cmd.Bool("diff")
			if showDiff && format != config.FormatText {
				return fmt.Errorf("--diff is only supported with text output, not %s", format)
			}

			ctx = logging.NewContext(ctx, logging.With(logging.Operation("scan")))
			bar := progress.Spinner("Scanning", !cfg.Output.Progress || format != config.FormatText)
			matches, err := repair.Scan(ctx, root, suffixes)
			_ = bar.Finish()
			if err != nil {
				return err
			}

			if err := outputMatches(matches, format, showDiff); err != nil {
				return err
			}

			if cmd.Bool("check") && len(matches) > 0 {
				return fmt.Errorf("%w in %d file(s)", ErrConflictsFound, len(matches))
			}
			return nil
		},
	}
}

// outputMatches outputs scan results in the specified format.
func outputMatches(matches []repair.Match, format string, showDiff bool) error {
	switch format {
	case config.FormatJSON:
		return outputMatchesJSON(matches)
	case config.FormatYAML:
		return outputMatchesYAML(matches)
	default:
		return outputMatchesText(matches, showDiff)
	}
}

func outputMatchesText(matches []repair.Match, showDiff bool) error {
	for _, m := range matches {
		if showDiff {
			if err := diff.Write(os.Stdout, m.Path, diff.FromRegions(m.Regions)); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s: %d conflict(s)\n", m.Path, len(m.Regions))
		for _, r := range m.Regions {
			fmt.Println(ui.Dim(fmt.Sprintf("  lines %d-%d (%s -> %s)", r.StartLine, r.EndLine, r.StartLabel, r.EndLabel)))
		}
	}
	fmt.Printf("Total files with conflicts: %d\n", len(matches))
	return nil
}

func outputMatchesJSON(matches []repair.Match) error {
	if matches == nil {
		matches = []repair.Match{}
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(matches); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func outputMatchesYAML(matches []repair.Match) error {
	if matches == nil {
		matches = []repair.Match{}
	}
	data, err := yaml.Marshal(matches)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
