package backup

import (
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/klauern/conflictfix/internal/util"
)

// seedIndex writes backups with fixed creation times straight into the
// index, bypassing Create so ages can be controlled.
func seedIndex(t *testing.T, entries ...Metadata) {
	t.Helper()
	index, err := LoadIndex()
	util.AssertNoError(t, err)
	for _, e := range entries {
		e.BackupPath = filepath.Join(util.BackupsPath(), e.Run, e.ID+".ts")
		util.WriteFile(t, e.BackupPath, e.ID)
		e.Hash = hashBytes([]byte(e.ID))
		index.Backups[e.ID] = e
	}
	util.AssertNoError(t, SaveIndex(index))
}

func TestCleanup(t *testing.T) {
	now := time.Now()
	day := 24 * time.Hour

	tests := map[string]struct {
		opts        CleanupOptions
		wantDeleted []string
	}{
		"max backups per file": {
			opts:        CleanupOptions{MaxBackups: 2},
			wantDeleted: []string{"a-old"},
		},
		"max age": {
			opts:        CleanupOptions{MaxAge: 10 * day},
			wantDeleted: []string{"a-old", "b-old"},
		},
		"max age keeps newest of each file": {
			opts:        CleanupOptions{MaxAge: time.Hour, KeepAtLeastOne: true},
			wantDeleted: []string{"a-mid", "a-old"},
		},
		"unlimited": {
			opts:        CleanupOptions{},
			wantDeleted: nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(util.HomeEnv, t.TempDir())
			seedIndex(t,
				Metadata{ID: "a-new", SourcePath: "/w/a.ts", Run: "r3", CreatedAt: now.Add(-2 * day)},
				Metadata{ID: "a-mid", SourcePath: "/w/a.ts", Run: "r2", CreatedAt: now.Add(-5 * day)},
				Metadata{ID: "a-old", SourcePath: "/w/a.ts", Run: "r1", CreatedAt: now.Add(-40 * day)},
				Metadata{ID: "b-old", SourcePath: "/w/b.ts", Run: "r1", CreatedAt: now.Add(-40 * day)},
			)

			deleted, err := Cleanup(tt.opts)
			util.AssertNoError(t, err)

			slices.Sort(deleted)
			if !slices.Equal(deleted, tt.wantDeleted) {
				t.Errorf("deleted = %v, want %v", deleted, tt.wantDeleted)
			}

			remaining, err := List("")
			util.AssertNoError(t, err)
			util.AssertEqual(t, len(remaining), 4-len(tt.wantDeleted))
		})
	}
}

func TestCleanup_DryRun(t *testing.T) {
	t.Setenv(util.HomeEnv, t.TempDir())
	seedIndex(t,
		Metadata{ID: "old", SourcePath: "/w/a.ts", Run: "r1", CreatedAt: time.Now().Add(-90 * 24 * time.Hour)},
		Metadata{ID: "new", SourcePath: "/w/a.ts", Run: "r2", CreatedAt: time.Now()},
	)

	deleted, err := Cleanup(CleanupOptions{MaxAge: 24 * time.Hour, DryRun: true})
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(deleted), 1)

	remaining, err := List("")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(remaining), 2)
}

func TestGetStats(t *testing.T) {
	t.Setenv(util.HomeEnv, t.TempDir())

	stats, err := GetStats()
	util.AssertNoError(t, err)
	util.AssertEqual(t, stats.TotalBackups, 0)
	if !stats.OldestBackup.IsZero() {
		t.Errorf("expected zero OldestBackup, got %v", stats.OldestBackup)
	}

	oldest := time.Now().Add(-time.Hour).Truncate(time.Second)
	newest := time.Now().Truncate(time.Second)
	seedIndex(t,
		Metadata{ID: "x", SourcePath: "/w/a.ts", Run: "r1", CreatedAt: oldest, Size: 10},
		Metadata{ID: "y", SourcePath: "/w/b.ts", Run: "r2", CreatedAt: newest, Size: 5},
	)

	stats, err = GetStats()
	util.AssertNoError(t, err)
	util.AssertEqual(t, stats.TotalBackups, 2)
	util.AssertEqual(t, stats.TotalSize, int64(15))
	util.AssertEqual(t, stats.Runs, 2)
	if !stats.OldestBackup.Equal(oldest) || !stats.NewestBackup.Equal(newest) {
		t.Errorf("unexpected range %v..%v", stats.OldestBackup, stats.NewestBackup)
	}
}
