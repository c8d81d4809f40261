package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/settle/internal/model"
	"github.com/schollz/progressbar/v3"
)

// ProgressReporter draws a progress bar while a plan is applied.
type ProgressReporter struct {
	writer   io.Writer
	bar      *progressbar.ProgressBar
	failures int
}

// NewProgressReporter creates a bar for total ledger calls.
func NewProgressReporter(writer io.Writer, total int) *ProgressReporter {
	if writer == nil {
		writer = os.Stdout
	}

	p := &ProgressReporter{writer: writer}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Updating ledger...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Record advances the bar by one ledger call. It matches the
// reconcile.ApplyOptions Progress callback.
func (p *ProgressReporter) Record(m model.MutationRecord) {
	if m.Failed() {
		p.failures++
		p.bar.Describe(fmt.Sprintf("[red][bold]Updating ledger (%d failed)...[reset]", p.failures))
	}
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar even if fewer calls than planned were made.
func (p *ProgressReporter) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}

// Failures returns how many recorded calls failed.
func (p *ProgressReporter) Failures() int {
	return p.failures
}
