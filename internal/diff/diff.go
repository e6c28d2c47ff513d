// Package diff renders the change a repair makes to a file as a unified diff.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauern/conflictfix/internal/markers"
	"github.com/klauern/conflictfix/internal/ui"
)

// startPrefix precedes the start label on a start marker line.
const startPrefix = "<<<<<<< "

// LineType indicates the type of a diff line.
type LineType string

const (
	// LineContext is an unchanged line (context).
	LineContext LineType = " "

	// LineRemoved is a line removed from source.
	LineRemoved LineType = "-"
)

// Line represents a single line in a diff.
type Line struct {
	// Type indicates if this line is added, removed, or unchanged.
	Type LineType

	// Content is the line content without its newline.
	Content string
}

// String returns the line with its diff prefix.
func (l Line) String() string {
	return string(l.Type) + l.Content
}

// Hunk represents a contiguous block of changes in a diff.
type Hunk struct {
	// SourceStart is the starting line number in the original file.
	SourceStart int

	// SourceCount is the number of lines from the original file.
	SourceCount int

	// TargetStart is the starting line number in the repaired file.
	TargetStart int

	// TargetCount is the number of lines in the repaired file.
	TargetCount int

	// Lines contains the diff lines with prefixes (- or space).
	Lines []Line
}

// Header returns the "@@ -a,b +c,d @@" line of the hunk.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.SourceStart, h.SourceCount, h.TargetStart, h.TargetCount)
}

// FromRegions builds one hunk per conflict region. The marker lines and the
// local segment are removed; the incoming segment stays as context.
func FromRegions(regions []markers.Region) []Hunk {
	hunks := make([]Hunk, 0, len(regions))
	removed := 0

	for _, r := range regions {
		local := splitLines(r.Local)
		incoming := splitLines(r.Incoming)

		lines := make([]Line, 0, r.Lines())
		lines = append(lines, Line{Type: LineRemoved, Content: startPrefix + r.StartLabel})
		for _, l := range local {
			lines = append(lines, Line{Type: LineRemoved, Content: l})
		}
		lines = append(lines, Line{Type: LineRemoved, Content: markers.SeparatorToken})
		for _, l := range incoming {
			lines = append(lines, Line{Type: LineContext, Content: l})
		}
		lines = append(lines, Line{Type: LineRemoved, Content: markers.EndToken + r.EndLabel})

		h := Hunk{
			SourceStart: r.StartLine,
			SourceCount: r.Lines(),
			TargetStart: r.StartLine - removed,
			TargetCount: len(incoming),
			Lines:       lines,
		}
		// An empty range points at the line before it.
		if h.TargetCount == 0 {
			h.TargetStart--
		}

		hunks = append(hunks, h)
		removed += r.Lines() - len(incoming)
	}
	return hunks
}

// Write writes a unified diff of path with colored lines.
func Write(w io.Writer, path string, hunks []Hunk) error {
	if _, err := fmt.Fprintf(w, "--- %s\n+++ %s\n", path, path); err != nil {
		return err
	}

	for _, hunk := range hunks {
		if _, err := fmt.Fprintln(w, ui.Info(hunk.Header())); err != nil {
			return err
		}
		for _, line := range hunk.Lines {
			if _, err := fmt.Fprintln(w, formatLine(line)); err != nil {
				return err
			}
		}
	}
	return nil
}

// formatLine returns a colored string representation of a diff line.
func formatLine(line Line) string {
	if line.Type == LineRemoved {
		return ui.Error(line.String())
	}
	return line.String()
}

// splitLines splits a segment into lines. Segments end in a newline, so the
// trailing empty element is dropped.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
