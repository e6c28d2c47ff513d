package backup

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// CleanupOptions configures backup cleanup behavior
type CleanupOptions struct {
	// MaxBackups limits the number of backups kept per source file (0 = unlimited)
	MaxBackups int

	// MaxAge is the maximum age of backups to keep (0 = unlimited)
	MaxAge time.Duration

	// KeepAtLeastOne ensures at least one backup is kept per source file
	KeepAtLeastOne bool

	// DryRun previews what would be deleted without actually deleting
	DryRun bool
}

// DefaultCleanupOptions returns sensible defaults for cleanup
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		MaxBackups:     10,                  // Keep last 10 backups per file
		MaxAge:         30 * 24 * time.Hour, // Keep backups for 30 days
		KeepAtLeastOne: true,
	}
}

// Cleanup removes old backups based on the specified options and returns
// the IDs removed (or, in a dry run, the IDs that would be).
func Cleanup(opts CleanupOptions) ([]string, error) {
	index, err := LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	// Group backups by source file
	groups := make(map[string][]Metadata)
	for _, backup := range index.Backups {
		groups[backup.SourcePath] = append(groups[backup.SourcePath], backup)
	}

	var toDelete []string
	now := time.Now()

	for _, source := range slices.Sorted(maps.Keys(groups)) {
		backups := groups[source]
		sortNewestFirst(backups)

		var doomed []string
		for idx, backup := range backups {
			expired := opts.MaxAge > 0 && now.Sub(backup.CreatedAt) > opts.MaxAge
			overLimit := opts.MaxBackups > 0 && idx >= opts.MaxBackups
			if expired || overLimit {
				doomed = append(doomed, backup.ID)
			}
		}

		// If every backup of this file is going, spare the newest
		if opts.KeepAtLeastOne && len(doomed) == len(backups) && len(doomed) > 0 {
			doomed = doomed[1:]
		}
		toDelete = append(toDelete, doomed...)
	}

	if opts.DryRun {
		return toDelete, nil
	}

	var deleted []string
	for _, backupID := range toDelete {
		if err := Delete(backupID); err != nil {
			return deleted, fmt.Errorf("failed to delete backup %q: %w", backupID, err)
		}
		deleted = append(deleted, backupID)
	}

	return deleted, nil
}

// Stats contains statistics about backups
type Stats struct {
	TotalBackups int
	TotalSize    int64
	Runs         int
	OldestBackup time.Time
	NewestBackup time.Time
}

// GetStats returns statistics about backups
func GetStats() (*Stats, error) {
	index, err := LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	stats := &Stats{TotalBackups: len(index.Backups)}
	runs := make(map[string]struct{})

	for _, backup := range index.Backups {
		stats.TotalSize += backup.Size
		runs[backup.Run] = struct{}{}

		if stats.OldestBackup.IsZero() || backup.CreatedAt.Before(stats.OldestBackup) {
			stats.OldestBackup = backup.CreatedAt
		}
		if backup.CreatedAt.After(stats.NewestBackup) {
			stats.NewestBackup = backup.CreatedAt
		}
	}
	stats.Runs = len(runs)

	return stats, nil
}
