// Package repair walks a directory tree and resolves conflict markers in
// eligible files, keeping the incoming side of every conflict.
package repair

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/klauern/conflictfix/internal/logging"
	"github.com/klauern/conflictfix/internal/markers"
)

// ErrNotText is returned for eligible files that are not valid UTF-8.
var ErrNotText = errors.New("file is not valid UTF-8 text")

// DefaultSuffixes are the file name endings eligible for repair.
var DefaultSuffixes = []string{".ts", ".tsx", ".json"}

// FileOptions configures how a single file is processed.
type FileOptions struct {
	// DryRun reports what would change without writing.
	DryRun bool

	// BeforeWrite, when set, receives the original content of a file that
	// is about to be rewritten. An error leaves the file untouched.
	BeforeWrite func(path string, original []byte, regions int) error
}

// Options configures a tree repair.
type Options struct {
	// Suffixes lists eligible file name endings. Empty means DefaultSuffixes.
	Suffixes []string

	// DryRun reports what would change without writing.
	DryRun bool

	// OnVisit is called with every eligible file before it is processed.
	OnVisit func(path string)

	// OnRepaired is called for every file that was (or would be) modified.
	OnRepaired func(FileResult)

	// BeforeWrite is passed to File for every file.
	BeforeWrite func(path string, original []byte, regions int) error
}

func (o Options) suffixes() []string {
	if len(o.Suffixes) == 0 {
		return DefaultSuffixes
	}
	return o.Suffixes
}

// File repairs a single file in place. Files without conflict regions are
// never written.
func File(path string, opts FileOptions) (FileResult, error) {
	res := FileResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return res, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	// #nosec G304 - path comes from the walk or the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if !utf8.Valid(content) {
		return res, fmt.Errorf("%s: %w", path, ErrNotText)
	}

	resolved, n := markers.Resolve(content)
	if n == 0 {
		return res, nil
	}
	res.Regions = n
	res.Modified = true

	if opts.DryRun {
		return res, nil
	}

	if opts.BeforeWrite != nil {
		if err := opts.BeforeWrite(path, content, n); err != nil {
			return res, fmt.Errorf("failed to prepare %q for writing: %w", path, err)
		}
	}

	// #nosec G306 - keep the permissions the file already had
	if err := os.WriteFile(path, resolved, info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("failed to write %q: %w", path, err)
	}
	return res, nil
}

// Tree repairs every eligible file under root. The walk stops at the first
// error; files repaired before it stay repaired.
func Tree(ctx context.Context, root string, opts Options) (*Result, error) {
	logger := logging.WithContext(ctx)
	start := time.Now()

	result := &Result{Root: root, DryRun: opts.DryRun}
	suffixes := opts.suffixes()
	logger.Debug("repair started", logging.Root(root), logging.Suffixes(suffixes))

	err := walk(ctx, root, suffixes, func(path string) error {
		return process(ctx, path, opts, result)
	})
	if err != nil {
		logger.Debug("repair aborted", logging.Root(root), logging.Err(err))
		return result, err
	}

	logger.Info("repair finished",
		logging.Root(root),
		logging.Count(result.Count()),
		logging.Duration(time.Since(start)),
	)
	return result, nil
}

// Paths repairs an explicit list of files, in order. Suffix filtering is
// not applied: the caller already chose the files.
func Paths(ctx context.Context, paths []string, opts Options) (*Result, error) {
	result := &Result{DryRun: opts.DryRun}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := process(ctx, path, opts, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func process(ctx context.Context, path string, opts Options, result *Result) error {
	if opts.OnVisit != nil {
		opts.OnVisit(path)
	}
	result.Scanned++

	res, err := File(path, FileOptions{DryRun: opts.DryRun, BeforeWrite: opts.BeforeWrite})
	if err != nil {
		return err
	}
	if !res.Modified {
		return nil
	}

	logging.WithContext(ctx).Info("resolved conflicts",
		logging.Path(path),
		logging.Regions(res.Regions),
		slog.Bool("dry_run", opts.DryRun),
	)
	result.Files = append(result.Files, res)
	if opts.OnRepaired != nil {
		opts.OnRepaired(res)
	}
	return nil
}

// Scan lists every eligible file under root that contains conflict regions,
// without modifying anything.
func Scan(ctx context.Context, root string, suffixes []string) ([]Match, error) {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}

	var matches []Match
	err := walk(ctx, root, suffixes, func(path string) error {
		// #nosec G304 - path comes from the walk
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", path, err)
		}
		if !utf8.Valid(content) {
			return fmt.Errorf("%s: %w", path, ErrNotText)
		}

		regions := markers.Find(content)
		if len(regions) == 0 {
			return nil
		}
		logging.WithContext(ctx).Debug("found conflicts", logging.Path(path), logging.Regions(len(regions)))
		matches = append(matches, Match{Path: path, Regions: regions})
		return nil
	})
	return matches, err
}

// Eligible reports whether name ends with one of suffixes.
func Eligible(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// walk calls fn for every eligible regular file under root. Symlinked
// directories are not descended into.
func walk(ctx context.Context, root string, suffixes []string, fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !Eligible(d.Name(), suffixes) {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		return fn(path)
	})
}
