package backup

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauern/conflictfix/internal/util"
)

// Metadata contains metadata about a single backup
type Metadata struct {
	ID         string      `json:"id" yaml:"id"`                   // Unique backup identifier (timestamp-based)
	SourcePath string      `json:"source_path" yaml:"source_path"` // Absolute path of the repaired file
	BackupPath string      `json:"backup_path" yaml:"backup_path"` // Path to backup file
	Run        string      `json:"run" yaml:"run"`                 // Repair invocation the backup belongs to
	CreatedAt  time.Time   `json:"created_at" yaml:"created_at"`   // Backup creation timestamp
	ModifiedAt time.Time   `json:"modified_at" yaml:"modified_at"` // Source modification timestamp
	Mode       fs.FileMode `json:"mode" yaml:"mode"`               // Source permission bits
	Hash       string      `json:"hash" yaml:"hash"`               // SHA256 hash of content
	Size       int64       `json:"size" yaml:"size"`               // Content size in bytes
	Regions    int         `json:"regions" yaml:"regions"`         // Conflict regions in the saved content
}

// Index maintains an index of all backups
type Index struct {
	Version string              `json:"version"`
	Updated time.Time           `json:"updated"`
	Backups map[string]Metadata `json:"backups"` // Key: backup ID
}

const (
	// IndexVersion is the current version of the backup index format
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file
	IndexFilename = "index.json"
)

// IndexPath returns the location of the backup index.
func IndexPath() string {
	return filepath.Join(util.BackupsPath(), IndexFilename)
}

// LoadIndex loads the backup index from disk
func LoadIndex() (*Index, error) {
	indexPath := IndexPath()

	// If index doesn't exist, return empty index
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return &Index{
			Version: IndexVersion,
			Updated: time.Now(),
			Backups: make(map[string]Metadata),
		}, nil
	}

	// #nosec G304 - indexPath is constructed from util.BackupsPath()
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	if index.Backups == nil {
		index.Backups = make(map[string]Metadata)
	}

	return &index, nil
}

// SaveIndex saves the backup index to disk
func SaveIndex(index *Index) error {
	dir := util.BackupsPath()
	if err := os.MkdirAll(dir, BackupDirPerm); err != nil {
		return fmt.Errorf("failed to create backups directory: %w", err)
	}

	index.Updated = time.Now()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	// #nosec G306 - index.json is metadata and can be group-readable
	if err := os.WriteFile(IndexPath(), data, 0o640); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	return nil
}

// AddBackup adds a backup entry to the index and saves it
func (idx *Index) AddBackup(metadata Metadata) error {
	if idx.Backups == nil {
		idx.Backups = make(map[string]Metadata)
	}

	idx.Backups[metadata.ID] = metadata

	return SaveIndex(idx)
}

// RemoveBackup removes a backup entry from the index and saves it
func (idx *Index) RemoveBackup(id string) error {
	delete(idx.Backups, id)
	return SaveIndex(idx)
}

// ListBackups returns all backups sorted by creation time (newest first)
func (idx *Index) ListBackups() []Metadata {
	backups := make([]Metadata, 0, len(idx.Backups))
	for _, backup := range idx.Backups {
		backups = append(backups, backup)
	}
	sortNewestFirst(backups)
	return backups
}

// LatestRun returns the run of the most recent backup, or "" when the
// index is empty.
func (idx *Index) LatestRun() string {
	backups := idx.ListBackups()
	if len(backups) == 0 {
		return ""
	}
	return backups[0].Run
}

func sortNewestFirst(backups []Metadata) {
	slices.SortFunc(backups, func(a, b Metadata) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
