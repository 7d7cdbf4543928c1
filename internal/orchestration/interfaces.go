package orchestration

import (
	"io"
	"sync"
	"time"

	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/pixel"
	"github.com/agbru/raysplit/internal/progress"
	"github.com/agbru/raysplit/internal/stats"
)

// RenderResult is the outcome of one render. It is shared by the
// orchestration and presentation layers.
type RenderResult struct {
	// Mode is the partitioning strategy used.
	Mode partition.Mode
	// Image is the assembled image; nil if the render failed.
	Image *pixel.Buffer
	// Stats holds the coordinator's timing report.
	Stats stats.Report
	// Duration is the elapsed time of the whole job, setup included.
	Duration time.Duration
	// Err is the fatal error of the render, if any.
	Err error
}

// ProgressReporter displays the progress of running renders.
type ProgressReporter interface {
	// DisplayProgress consumes updates until progressChan is closed, then
	// calls wg.Done.
	//
	// Parameters:
	//   - wg: Signaled when display is complete.
	//   - progressChan: Updates from the coordinators.
	//   - numRenders: The number of renders tracked.
	//   - out: The writer for progress output.
	DisplayProgress(wg *sync.WaitGroup, progressChan <-chan progress.ProgressUpdate, numRenders int, out io.Writer)
}

// ProgressReporterFunc adapts a function to ProgressReporter.
type ProgressReporterFunc func(wg *sync.WaitGroup, progressChan <-chan progress.ProgressUpdate, numRenders int, out io.Writer)

// DisplayProgress calls f.
func (f ProgressReporterFunc) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan progress.ProgressUpdate, numRenders int, out io.Writer) {
	f(wg, progressChan, numRenders, out)
}

// NullProgressReporter drains the channel without output. Used in quiet mode
// and tests.
type NullProgressReporter struct{}

// DisplayProgress drains the channel.
func (NullProgressReporter) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan progress.ProgressUpdate, _ int, _ io.Writer) {
	defer wg.Done()
	DrainChannel(progressChan)
}

// ResultPresenter formats render outcomes.
type ResultPresenter interface {
	// PresentComparisonTable displays one row per render.
	PresentComparisonTable(results []RenderResult, out io.Writer)
	// PresentResult displays the timing report of one render.
	PresentResult(result RenderResult, verbose bool, out io.Writer)
}

// DurationFormatter formats durations for display.
type DurationFormatter interface {
	FormatDuration(d time.Duration) string
}

// ErrorHandler prints a render error and returns the exit code.
type ErrorHandler interface {
	HandleError(err error, out io.Writer) int
}
