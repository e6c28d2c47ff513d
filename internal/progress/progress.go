// Package progress shows a spinner on stderr while a tree is being walked.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/klauern/conflictfix/internal/logging"
	"github.com/klauern/conflictfix/internal/ui"
)

// Bar wraps progressbar with conflictfix's terminal and logging rules.
type Bar struct {
	bar     *progressbar.ProgressBar
	enabled bool
	desc    string
}

// Options configures the progress indicator.
type Options struct {
	// Max is the total number of steps. -1 renders an open-ended spinner.
	Max int64
	// Description is the prefix text shown before the indicator.
	Description string
	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
	// Disabled turns the indicator off regardless of the terminal.
	Disabled bool
}

// New creates a progress indicator.
// It renders only when enabled, writing to a terminal, colors are on
// and the logger is not at debug level.
func New(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	b := &Bar{
		enabled: !opts.Disabled && shouldShowProgress(opts.Writer),
		desc:    opts.Description,
	}

	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s started", opts.Description))
		return b
	}

	b.bar = progressbar.NewOptions64(
		opts.Max,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(opts.Writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)

	return b
}

// Spinner creates an open-ended indicator for walks of unknown size.
func Spinner(description string, disabled bool) *Bar {
	return New(Options{
		Max:         -1,
		Description: description,
		Writer:      os.Stderr,
		Disabled:    disabled,
	})
}

// Add advances the indicator by n steps.
func (b *Bar) Add(n int) error {
	if !b.enabled {
		return nil
	}
	return b.bar.Add(n)
}

// Describe updates the description.
func (b *Bar) Describe(desc string) {
	b.desc = desc
	if !b.enabled {
		return
	}
	b.bar.Describe(desc)
}

// Finish completes the indicator and clears it from the terminal.
func (b *Bar) Finish() error {
	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s completed", b.desc))
		return nil
	}
	return b.bar.Finish()
}

// Clear erases the indicator so a line can be printed without overlap.
// The next Add redraws it.
func (b *Bar) Clear() error {
	if !b.enabled {
		return nil
	}
	return b.bar.Clear()
}

func shouldShowProgress(w io.Writer) bool {
	if !ui.IsColorEnabled() {
		return false
	}

	f, ok := w.(*os.File)
	if !ok || !ui.IsTerminal(f) {
		return false
	}

	// Spinner redraws would interleave with debug logs on stderr.
	if logging.Default().Enabled(context.Background(), logging.LevelDebug) {
		return false
	}

	return true
}
