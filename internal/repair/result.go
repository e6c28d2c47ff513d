package repair

import (
	"fmt"

	"github.com/klauern/conflictfix/internal/markers"
)

// FileResult is the outcome of processing one file.
type FileResult struct {
	// Path is the file that was processed.
	Path string `json:"path" yaml:"path"`

	// Regions is the number of conflict regions resolved.
	Regions int `json:"regions" yaml:"regions"`

	// Modified is true when the file had at least one region. In a dry run
	// it means the file would have been rewritten.
	Modified bool `json:"modified" yaml:"modified"`
}

// Result contains the outcome of a repair run.
type Result struct {
	// Root is the directory that was walked. Empty for Paths runs.
	Root string

	// Files lists every modified file, in processing order.
	Files []FileResult

	// Scanned is the number of eligible files that were read.
	Scanned int

	// DryRun indicates that no file was written.
	DryRun bool
}

// Count returns the number of modified files.
func (r *Result) Count() int {
	return len(r.Files)
}

// Paths returns the paths of the modified files.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// Regions returns the total number of regions resolved across all files.
func (r *Result) Regions() int {
	total := 0
	for _, f := range r.Files {
		total += f.Regions
	}
	return total
}

// Summary returns the final report line.
func (r *Result) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("Total files that would be repaired: %d", r.Count())
	}
	return fmt.Sprintf("Total files repaired: %d", r.Count())
}

// Line returns the report line for a modified file.
func Line(res FileResult, dryRun bool) string {
	if dryRun {
		return "Would repair: " + res.Path
	}
	return "Repaired: " + res.Path
}

// Match is a file found by Scan together with its conflict regions.
type Match struct {
	Path    string           `json:"path" yaml:"path"`
	Regions []markers.Region `json:"regions" yaml:"regions"`
}

// MatchPaths returns the paths of matches.
func MatchPaths(matches []Match) []string {
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.Path
	}
	return paths
}
