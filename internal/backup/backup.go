// Package backup keeps copies of files before conflictfix rewrites them, so
// a repair can be undone.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauern/conflictfix/internal/util"
)

const (
	// BackupDirPerm is the permission for backup directories (rwxr-x---)
	BackupDirPerm = 0o750
	// BackupFilePerm is the permission for backup files (rw-------)
	BackupFilePerm = 0o600
)

var (
	// ErrNotFound is returned when a backup ID is not in the index.
	ErrNotFound = errors.New("backup not found")
	// ErrCorrupted is returned when a backup file no longer matches its hash.
	ErrCorrupted = errors.New("backup file corrupted")
)

// Options configures backup behavior
type Options struct {
	Run     string // Groups backups taken by one repair; empty means NewRunID()
	Regions int    // Conflict regions in the saved content
}

// NewRunID returns an identifier for one repair invocation.
func NewRunID() string {
	return time.Now().Format("20060102-150405.000")
}

// Create stores content as a backup of sourcePath. The content is passed in
// rather than re-read because the caller already holds the exact bytes it
// is about to replace.
func Create(sourcePath string, content []byte, opts Options) (*Metadata, error) {
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", sourcePath, err)
	}

	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source path %q: %w", sourcePath, err)
	}

	run := opts.Run
	if run == "" {
		run = NewRunID()
	}

	runDir := filepath.Join(util.BackupsPath(), run)
	if err := os.MkdirAll(runDir, BackupDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	hashStr := hashBytes(content)

	index, err := LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	// The same content can live in several files, so the ID also covers the path.
	pathHash := sha256.Sum256([]byte(absPath + "\x00" + hashStr))
	baseID := time.Now().Format("20060102-150405-") + hex.EncodeToString(pathHash[:])[:8]
	backupID := baseID
	for n := 2; ; n++ {
		if _, exists := index.Backups[backupID]; !exists {
			break
		}
		backupID = fmt.Sprintf("%s-%d", baseID, n)
	}

	// Keep the extension so backups open with the right editor mode
	backupPath := filepath.Join(runDir, backupID+filepath.Ext(sourcePath))
	if err := os.WriteFile(backupPath, content, BackupFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	metadata := &Metadata{
		ID:         backupID,
		SourcePath: absPath,
		BackupPath: backupPath,
		Run:        run,
		CreatedAt:  time.Now(),
		ModifiedAt: sourceInfo.ModTime(),
		Mode:       sourceInfo.Mode().Perm(),
		Hash:       hashStr,
		Size:       int64(len(content)),
		Regions:    opts.Regions,
	}

	if err := index.AddBackup(*metadata); err != nil {
		return nil, fmt.Errorf("failed to add backup to index: %w", err)
	}

	return metadata, nil
}

// Get returns the metadata of a backup.
func Get(backupID string) (*Metadata, error) {
	index, err := LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	metadata, exists := index.Backups[backupID]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, backupID)
	}
	return &metadata, nil
}

// Restore writes a backup back to targetPath, or to the file it was taken
// from when targetPath is empty. It returns the path written.
func Restore(backupID string, targetPath string) (string, error) {
	metadata, err := Get(backupID)
	if err != nil {
		return "", err
	}

	// #nosec G304 - BackupPath comes from the backup index
	content, err := os.ReadFile(metadata.BackupPath)
	if err != nil {
		return "", fmt.Errorf("failed to read backup file: %w", err)
	}

	if hashBytes(content) != metadata.Hash {
		return "", fmt.Errorf("%w: hash mismatch for %s", ErrCorrupted, backupID)
	}

	if targetPath == "" {
		targetPath = metadata.SourcePath
	}

	targetDir := filepath.Dir(targetPath)
	if err := os.MkdirAll(targetDir, BackupDirPerm); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}

	mode := metadata.Mode
	if mode == 0 {
		mode = BackupFilePerm
	}
	if err := os.WriteFile(targetPath, content, mode); err != nil {
		return "", fmt.Errorf("failed to write target file: %w", err)
	}
	// WriteFile only applies mode to new files.
	if err := os.Chmod(targetPath, mode); err != nil {
		return "", fmt.Errorf("failed to set mode on target file: %w", err)
	}

	return targetPath, nil
}

// RestoreRun restores every backup taken by one run, oldest first, and
// returns the paths written.
func RestoreRun(run string) ([]string, error) {
	backups, err := List(run)
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, fmt.Errorf("%w: no backups for run %q", ErrNotFound, run)
	}

	var restored []string
	for i := len(backups) - 1; i >= 0; i-- {
		path, err := Restore(backups[i].ID, "")
		if err != nil {
			return restored, err
		}
		restored = append(restored, path)
	}
	return restored, nil
}

// List returns all backups, newest first, optionally filtered by run
func List(run string) ([]Metadata, error) {
	index, err := LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	backups := index.ListBackups()
	if run == "" {
		return backups, nil
	}

	filtered := make([]Metadata, 0, len(backups))
	for _, backup := range backups {
		if backup.Run == run {
			filtered = append(filtered, backup)
		}
	}
	return filtered, nil
}

// LatestRun returns the most recent run that has backups.
func LatestRun() (string, error) {
	index, err := LoadIndex()
	if err != nil {
		return "", fmt.Errorf("failed to load backup index: %w", err)
	}
	run := index.LatestRun()
	if run == "" {
		return "", fmt.Errorf("%w: no backups recorded", ErrNotFound)
	}
	return run, nil
}

// Delete deletes a backup and removes it from the index
func Delete(backupID string) error {
	index, err := LoadIndex()
	if err != nil {
		return fmt.Errorf("failed to load backup index: %w", err)
	}

	metadata, exists := index.Backups[backupID]
	if !exists {
		return fmt.Errorf("%w: %q", ErrNotFound, backupID)
	}

	if err := os.Remove(metadata.BackupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}
	// Drop the run directory once it is empty; a non-empty one stays.
	_ = os.Remove(filepath.Dir(metadata.BackupPath))

	if err := index.RemoveBackup(backupID); err != nil {
		return fmt.Errorf("failed to remove backup from index: %w", err)
	}

	return nil
}

// Verify verifies that a backup file is intact and matches its hash
func Verify(backupID string) (err error) {
	metadata, err := Get(backupID)
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(metadata.BackupPath); os.IsNotExist(statErr) {
		return fmt.Errorf("backup file missing: %s", metadata.BackupPath)
	}

	file, err := os.Open(metadata.BackupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close backup file: %w", closeErr)
		}
	}()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	hashStr := hex.EncodeToString(hash.Sum(nil))
	if hashStr != metadata.Hash {
		return fmt.Errorf("%w: hash mismatch (expected %s, got %s)", ErrCorrupted, metadata.Hash, hashStr)
	}

	return nil
}

// History returns all backups of one source file, newest first
func History(sourcePath string) ([]Metadata, error) {
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", sourcePath, err)
	}

	index, err := LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	var history []Metadata
	for _, backup := range index.Backups {
		if backup.SourcePath == absPath {
			history = append(history, backup)
		}
	}
	sortNewestFirst(history)

	return history, nil
}

func hashBytes(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
