// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It runs the conflictfix application in-process against throwaway trees
// with an isolated configuration home.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/klauern/conflictfix/internal/cli"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Stderr contains the captured standard error (log output).
	Stderr string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness provides a test harness for running E2E CLI tests.
// It manages environment isolation, a work tree, and output capture.
type Harness struct {
	t       *testing.T
	homeDir string
	workDir string
	env     map[string]string
}

// NewHarness creates a new E2E test harness.
// It points CONFLICTFIX_HOME at an empty directory and clears the
// environment overrides so a developer's settings cannot leak in.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		t:       t,
		homeDir: t.TempDir(),
		workDir: t.TempDir(),
		env:     make(map[string]string),
	}

	h.SetEnv("CONFLICTFIX_HOME", h.homeDir)
	for _, key := range []string{
		"CONFLICTFIX_ROOT",
		"CONFLICTFIX_SUFFIXES",
		"CONFLICTFIX_OUTPUT_COLOR",
		"CONFLICTFIX_OUTPUT_FORMAT",
		"CONFLICTFIX_PROGRESS",
		"CONFLICTFIX_BACKUP_ENABLED",
	} {
		h.SetEnv(key, "")
	}

	return h
}

// SetEnv sets an environment variable for CLI commands run through this harness.
// The environment will be restored after the test completes.
func (h *Harness) SetEnv(key, value string) {
	h.t.Helper()
	h.env[key] = value
	h.t.Setenv(key, value)
}

// HomeDir returns the isolated configuration directory for this harness.
func (h *Harness) HomeDir() string {
	return h.homeDir
}

// WorkDir returns the directory commands run in.
func (h *Harness) WorkDir() string {
	return h.workDir
}

// Tree returns a fixture helper rooted at the work directory.
func (h *Harness) Tree() *Fixture {
	return NewFixture(h.t, h.workDir)
}

// Run executes a CLI command from the work directory and captures the
// output. Relative paths in args and in the output are relative to WorkDir.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()

	// Prepend "conflictfix" as the program name if not provided
	if len(args) == 0 || args[0] != "conflictfix" {
		args = append([]string{"conflictfix"}, args...)
	}

	h.t.Chdir(h.workDir)

	oldStdout, oldStderr := os.Stdout, os.Stderr
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stderr pipe: %v", err)
	}
	os.Stdout, os.Stderr = stdoutW, stderrW

	// Read both pipes concurrently so large output cannot fill the
	// pipe buffer and block the command.
	stdout := drain(stdoutR)
	stderr := drain(stderrR)

	cmdErr := cli.Run(context.Background(), args)

	// Restore and close writers to signal EOF to the readers
	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	if err := stderrW.Close(); err != nil {
		h.t.Fatalf("failed to close stderr pipe writer: %v", err)
	}
	os.Stdout, os.Stderr = oldStdout, oldStderr

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}

	return &Result{
		Stdout:   <-stdout,
		Stderr:   <-stderr,
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}

func drain(r io.Reader) <-chan string {
	out := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		out <- buf.String()
	}()
	return out
}
