package progress

import (
	"bytes"
	"testing"

	"github.com/klauern/conflictfix/internal/ui"
)

func TestNew_NonTerminalWriterIsDisabled(t *testing.T) {
	ui.EnableColors()
	defer ui.DisableColors()

	var buf bytes.Buffer
	bar := New(Options{Max: -1, Description: "Scanning", Writer: &buf})

	if bar.enabled {
		t.Fatal("expected progress to be disabled for a non-terminal writer")
	}
	if err := bar.Add(1); err != nil {
		t.Errorf("Add() error = %v", err)
	}
	bar.Describe("Scanning src")
	if err := bar.Finish(); err != nil {
		t.Errorf("Finish() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSpinner_Disabled(t *testing.T) {
	bar := Spinner("Repairing", true)
	if bar.enabled {
		t.Error("expected disabled spinner")
	}
	if bar.desc != "Repairing" {
		t.Errorf("desc = %q, want %q", bar.desc, "Repairing")
	}
}
