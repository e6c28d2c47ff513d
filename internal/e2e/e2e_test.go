package e2e_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauern/conflictfix/internal/e2e"
)

const aTS = "const a = 1;\n<<<<<<< HEAD\nconst b = 2;\n=======\nconst b = 3;\n>>>>>>> feature\n"

// TestRepairExample runs the documented example: one conflicted .ts file
// and one ignored markdown file.
func TestRepairExample(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("a.ts", aTS)
	tree.WriteFile("notes.md", aTS)

	result := h.Run(".")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputEquals(t, result, "Repaired: a.ts\nTotal files repaired: 1\n")
	e2e.AssertFileEquals(t, tree.Path("a.ts"), "const a = 1;\nconst b = 3;\n")
	e2e.AssertFileEquals(t, tree.Path("notes.md"), aTS)
}

// TestRepairDefaultsToConfiguredRoot verifies that repair without an
// argument walks the current directory.
func TestRepairDefaultsToConfiguredRoot(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteConflict("src/app.tsx", "", "<A/>\n", "<B/>\n", "")

	result := h.Run("repair")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputEquals(t, result, "Repaired: src/app.tsx\nTotal files repaired: 1\n")
	e2e.AssertFileEquals(t, tree.Path("src/app.tsx"), "<B/>\n")
}

// TestRepairIsIdempotent verifies a second run reports zero files and
// leaves clean files untouched.
func TestRepairIsIdempotent(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteConflict("data.json", "{\n", "  \"a\": 1\n", "  \"a\": 2\n", "}\n")
	tree.WriteFile("clean.ts", "export {};\n")

	first := h.Run("repair")
	e2e.AssertSuccess(t, first)
	e2e.AssertOutputEquals(t, first, "Repaired: data.json\nTotal files repaired: 1\n")

	before := tree.ModTime("data.json")
	time.Sleep(10 * time.Millisecond)

	second := h.Run("repair")
	e2e.AssertSuccess(t, second)
	e2e.AssertOutputEquals(t, second, "Total files repaired: 0\n")

	if after := tree.ModTime("data.json"); after != before {
		t.Errorf("clean file was rewritten: mtime %d -> %d", before, after)
	}
	e2e.AssertFileEquals(t, tree.Path("data.json"), "{\n  \"a\": 2\n}\n")
}

// TestRepairMultipleRegions verifies every region in a file is resolved
// independently and an empty incoming side deletes the region.
func TestRepairMultipleRegions(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("multi.ts", "top\n"+
		"<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> one\n"+
		"middle\n"+
		"<<<<<<< HEAD\nremoved\n=======\n>>>>>>> two\n"+
		"bottom\n")

	result := h.Run("repair")

	e2e.AssertSuccess(t, result)
	e2e.AssertFileEquals(t, tree.Path("multi.ts"), "top\ny\nmiddle\nbottom\n")
}

// TestRepairEndMarkerAtEOF verifies a final end marker without a trailing
// newline is still matched.
func TestRepairEndMarkerAtEOF(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("eof.json", "<<<<<<< HEAD\n1\n=======\n2\n>>>>>>> theirs")

	result := h.Run("repair")

	e2e.AssertSuccess(t, result)
	e2e.AssertFileEquals(t, tree.Path("eof.json"), "2\n")
}

// TestRepairDryRun verifies nothing is written in a dry run.
func TestRepairDryRun(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("a.ts", aTS)

	result := h.Run("repair", "--dry-run")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputEquals(t, result, "Would repair: a.ts\nTotal files that would be repaired: 1\n")
	e2e.AssertFileEquals(t, tree.Path("a.ts"), aTS)
}

// TestRepairSuffixesFromEnvironment verifies CONFLICTFIX_SUFFIXES replaces
// the default suffix set.
func TestRepairSuffixesFromEnvironment(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("a.ts", aTS)
	tree.WriteFile("notes.md", aTS)
	h.SetEnv("CONFLICTFIX_SUFFIXES", ".md")

	result := h.Run("repair")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputEquals(t, result, "Repaired: notes.md\nTotal files repaired: 1\n")
	e2e.AssertFileEquals(t, tree.Path("a.ts"), aTS)
}

// TestRepairConfigFile verifies the config file in CONFLICTFIX_HOME is used.
func TestRepairConfigFile(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("pkg/a.ts", aTS)
	tree.WriteFile("other/b.ts", aTS)
	e2e.NewFixture(t, h.HomeDir()).WriteFile("config.yaml", "repair:\n  root: pkg\n")

	result := h.Run("repair")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputEquals(t, result, "Repaired: pkg/a.ts\nTotal files repaired: 1\n")
	e2e.AssertFileEquals(t, tree.Path("other/b.ts"), aTS)
}

// TestRepairStopsOnBinaryFile verifies an undecodable eligible file aborts
// the run with an error.
func TestRepairStopsOnBinaryFile(t *testing.T) {
	h := e2e.NewHarness(t)
	if err := os.WriteFile(filepath.Join(h.WorkDir(), "blob.json"), []byte{0xc3, 0x28}, 0o600); err != nil {
		t.Fatalf("failed to write binary file: %v", err)
	}

	result := h.Run("repair")

	e2e.AssertError(t, result)
	e2e.AssertExitCode(t, result, 1)
	e2e.AssertErrorContains(t, result, "not valid UTF-8")
}

// TestRepairMissingRoot verifies a missing root is reported as an error.
func TestRepairMissingRoot(t *testing.T) {
	h := e2e.NewHarness(t)

	result := h.Run("repair", "does-not-exist")

	e2e.AssertError(t, result)
	e2e.AssertErrorContains(t, result, "does-not-exist")
}

// TestVerboseLogsToStderr verifies log output never reaches stdout.
func TestVerboseLogsToStderr(t *testing.T) {
	h := e2e.NewHarness(t)
	h.Tree().WriteFile("a.ts", aTS)

	result := h.Run("--verbose", "repair")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputEquals(t, result, "Repaired: a.ts\nTotal files repaired: 1\n")
	e2e.AssertStderrContains(t, result, "resolved conflicts")
	e2e.AssertStderrContains(t, result, "operation=repair")
	e2e.AssertStderrContains(t, result, "msg=\"files repaired\"")
	e2e.AssertStderrContains(t, result, "regions=1")
	e2e.AssertStderrContains(t, result, "files=[a.ts]")
}

// TestScanCommand verifies scan reports without writing.
func TestScanCommand(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("a.ts", aTS)

	result := h.Run("scan")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "a.ts: 1 conflict(s)")
	e2e.AssertOutputContains(t, result, "Total files with conflicts: 1")
	e2e.AssertFileEquals(t, tree.Path("a.ts"), aTS)
}

// TestScanDiff verifies scan --diff shows the repair as a unified diff.
func TestScanDiff(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("a.ts", aTS)

	result := h.Run("--no-color", "scan", "--diff")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "@@ -2,5 +2,1 @@")
	e2e.AssertOutputContains(t, result, "->>>>>>> feature")
	e2e.AssertFileEquals(t, tree.Path("a.ts"), aTS)
}

// TestScanJSON verifies scan JSON output is machine-readable.
func TestScanJSON(t *testing.T) {
	h := e2e.NewHarness(t)
	h.Tree().WriteFile("a.ts", aTS)

	result := h.Run("scan", "--format", "json")
	e2e.AssertSuccess(t, result)

	var matches []struct {
		Path    string `json:"path"`
		Regions []struct {
			StartLine int    `json:"start_line"`
			EndLine   int    `json:"end_line"`
			EndLabel  string `json:"end_label"`
		} `json:"regions"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &matches); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, result.Stdout)
	}
	if len(matches) != 1 || matches[0].Path != "a.ts" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	r := matches[0].Regions[0]
	if r.StartLine != 2 || r.EndLine != 6 || r.EndLabel != "feature" {
		t.Errorf("unexpected region: %+v", r)
	}
}

// TestScanCheck verifies scan --check fails while conflicts remain and
// passes after a repair.
func TestScanCheck(t *testing.T) {
	h := e2e.NewHarness(t)
	h.Tree().WriteFile("a.ts", aTS)

	e2e.AssertErrorContains(t, h.Run("scan", "--check"), "conflict markers found")
	e2e.AssertSuccess(t, h.Run("repair"))
	e2e.AssertSuccess(t, h.Run("scan", "--check"))
}

// TestConfigInitAndShow verifies config init writes a file that config
// show then reads back.
func TestConfigInitAndShow(t *testing.T) {
	h := e2e.NewHarness(t)

	e2e.AssertSuccess(t, h.Run("config", "init"))
	e2e.AssertFileContains(t, filepath.Join(h.HomeDir(), "config.yaml"), "suffixes:")

	result := h.Run("config", "show")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, filepath.Join(h.HomeDir(), "config.yaml"))
	e2e.AssertOutputNotContains(t, result, "not found")

	e2e.AssertErrorContains(t, h.Run("config", "init"), "already exists")
}

// TestRepairBackupAndUndo verifies repair --backup can be undone with
// backup restore --latest.
func TestRepairBackupAndUndo(t *testing.T) {
	h := e2e.NewHarness(t)
	tree := h.Tree()
	tree.WriteFile("a.ts", aTS)

	result := h.Run("repair", "--backup")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputEquals(t, result, "Repaired: a.ts\nTotal files repaired: 1\n")
	e2e.AssertStderrContains(t, result, "backup restore --run")

	list := h.Run("backup", "list")
	e2e.AssertSuccess(t, list)
	e2e.AssertOutputContains(t, list, tree.Path("a.ts"))

	undo := h.Run("backup", "restore", "--latest")
	e2e.AssertSuccess(t, undo)
	e2e.AssertOutputContains(t, undo, "Total files restored: 1")
	e2e.AssertFileEquals(t, tree.Path("a.ts"), aTS)
}

// TestVersionCommand verifies the version command works correctly.
func TestVersionCommand(t *testing.T) {
	h := e2e.NewHarness(t)

	result := h.Run("version")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "conflictfix version")
}
