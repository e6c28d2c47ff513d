package e2e

import (
	"os"
	"path/filepath"
	"testing"
)

// Fixture provides helpers for creating test fixtures in E2E tests.
type Fixture struct {
	t       *testing.T
	baseDir string
}

// NewFixture creates a new fixture helper rooted at the given directory.
func NewFixture(t *testing.T, baseDir string) *Fixture {
	t.Helper()
	return &Fixture{
		t:       t,
		baseDir: baseDir,
	}
}

// WriteFile writes content to a file relative to the fixture base directory.
// It creates parent directories as needed.
func (f *Fixture) WriteFile(relPath, content string) string {
	f.t.Helper()
	fullPath := filepath.Join(f.baseDir, relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		f.t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
		f.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}

	return fullPath
}

// WriteConflict writes a file holding a single conflict region between
// local and incoming, surrounded by before and after.
func (f *Fixture) WriteConflict(relPath, before, local, incoming, after string) string {
	f.t.Helper()

	content := before
	content += "<<<<<<< HEAD\n"
	content += local
	content += "=======\n"
	content += incoming
	content += ">>>>>>> incoming\n"
	content += after

	return f.WriteFile(relPath, content)
}

// ModTime returns the modification time of a file, for checking that
// clean files are not rewritten.
func (f *Fixture) ModTime(relPath string) int64 {
	f.t.Helper()
	info, err := os.Stat(f.Path(relPath))
	if err != nil {
		f.t.Fatalf("failed to stat %s: %v", relPath, err)
	}
	return info.ModTime().UnixNano()
}

// Path returns the full path for a relative path.
func (f *Fixture) Path(relPath string) string {
	return filepath.Join(f.baseDir, relPath)
}

// ReadFile reads and returns the content of a file.
func (f *Fixture) ReadFile(relPath string) string {
	f.t.Helper()
	fullPath := filepath.Join(f.baseDir, relPath)

	// #nosec G304 - fullPath is constructed from trusted test fixture base and test-provided path
	data, err := os.ReadFile(fullPath)
	if err != nil {
		f.t.Fatalf("failed to read file %s: %v", fullPath, err)
	}

	return string(data)
}
