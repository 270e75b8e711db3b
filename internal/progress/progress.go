// ============================================================================
// Progress Reporter
// ============================================================================
//
// Package: internal/progress
// File: progress.go
// Purpose: Renders (completed, total) batch snapshots
//
// The orchestrator's result loop is the sole caller, so implementations do
// not need to be safe for concurrent use. Report is called with a
// non-decreasing completed count and once more with the final snapshot when
// the batch finishes.
//
// Three variants:
//   - BarReporter: terminal progress bar
//   - NullReporter: quiet mode
//   - NewReporter picks NullReporter automatically when stdout is not a
//     terminal, so piping output never produces control characters
//
// ============================================================================

package progress

import (
	"io"
	"os"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
)

// Reporter receives periodic completion snapshots for one batch.
type Reporter interface {
	// Report renders the current (completed, total) snapshot.
	Report(completed, total int)
	// Finish performs the terminal "done" render. Only called when the
	// batch completes without aborting.
	Finish()
}

// NullReporter drops every snapshot. Used for quiet mode and non-terminal
// output sinks.
type NullReporter struct{}

// Report implements Reporter.
func (NullReporter) Report(completed, total int) {}

// Finish implements Reporter.
func (NullReporter) Finish() {}

const barTemplate = `Progress: {{bar . "|" "█" "█" "-" "|"}} {{percent . }} Complete`

// BarReporter renders a terminal progress bar.
type BarReporter struct {
	bar *pb.ProgressBar
}

// NewBarReporter creates a bar for a batch of total jobs, writing to out.
func NewBarReporter(total int, out io.Writer) *BarReporter {
	bar := pb.New(total)
	bar.SetTemplate(pb.ProgressBarTemplate(barTemplate))
	bar.SetWriter(out)
	return &BarReporter{bar: bar}
}

// Report implements Reporter. The bar is started lazily on the first
// snapshot so an empty batch never renders.
func (r *BarReporter) Report(completed, total int) {
	if !r.bar.IsStarted() {
		r.bar.Start()
	}
	r.bar.SetTotal(int64(total))
	r.bar.SetCurrent(int64(completed))
}

// Finish implements Reporter.
func (r *BarReporter) Finish() {
	if r.bar.IsStarted() {
		r.bar.Finish()
	}
}

// NewReporter picks the right reporter for the run: quiet mode or a
// non-terminal stdout gets the no-op reporter, everything else gets the bar.
func NewReporter(total int, quiet bool) Reporter {
	if quiet || !isatty.IsTerminal(os.Stdout.Fd()) {
		return NullReporter{}
	}
	return NewBarReporter(total, os.Stdout)
}
