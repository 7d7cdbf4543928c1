package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/format"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/progress"
	"github.com/agbru/raysplit/internal/ui"
)

// CLIProgressReporter implements orchestration.ProgressReporter with a
// spinner and progress bar.
type CLIProgressReporter struct{}

var _ orchestration.ProgressReporter = CLIProgressReporter{}

// DisplayProgress calls DisplayProgress.
func (CLIProgressReporter) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan progress.ProgressUpdate, numRenders int, out io.Writer) {
	DisplayProgress(wg, progressChan, numRenders, out)
}

// CLIResultPresenter implements the orchestration presentation interfaces
// for terminal output.
type CLIResultPresenter struct{}

var (
	_ orchestration.ResultPresenter   = CLIResultPresenter{}
	_ orchestration.DurationFormatter = CLIResultPresenter{}
	_ orchestration.ErrorHandler      = CLIResultPresenter{}
)

var tableHeaders = []string{"Mode", "Execution", "Computation", "Communication", "C-to-C"}

// PresentComparisonTable prints one row per render. Padding is computed on
// the plain text so that color codes do not break the alignment.
func (p CLIResultPresenter) PresentComparisonTable(results []orchestration.RenderResult, out io.Writer) {
	fmt.Fprintf(out, "\n%s\n", ui.Header("Comparison Summary"))

	rows := make([][]string, len(results))
	widths := make([]int, len(tableHeaders))
	for i, h := range tableHeaders {
		widths[i] = len(h)
	}
	for i, res := range results {
		rows[i] = []string{res.Mode.String(), "-", "-", "-", "-"}
		if res.Err == nil {
			rows[i][1] = p.FormatDuration(res.Stats.Wall)
			rows[i][2] = p.FormatDuration(res.Stats.Compute)
			rows[i][3] = p.FormatDuration(res.Stats.Communication)
			rows[i][4] = fmt.Sprintf("%.4f", res.Stats.Ratio)
		}
		for j, cell := range rows[i] {
			widths[j] = max(widths[j], len([]rune(cell)))
		}
	}

	for j, h := range tableHeaders {
		fmt.Fprintf(out, "%s%s%s%s   ", ui.ColorUnderline(), h, ui.ColorReset(), padRight("", widths[j]-len(h)))
	}
	fmt.Fprintf(out, "%sStatus%s\n", ui.ColorUnderline(), ui.ColorReset())

	for i, res := range results {
		for j, cell := range rows[i] {
			color := ui.ColorYellow()
			if j == 0 {
				color = ui.ColorBlue()
			}
			fmt.Fprintf(out, "%s%s%s%s   ", color, cell, ui.ColorReset(), padRight("", widths[j]-len([]rune(cell))))
		}
		if res.Err != nil {
			fmt.Fprintf(out, "%s❌ Failure (%v)%s\n", ui.ColorRed(), res.Err, ui.ColorReset())
		} else {
			fmt.Fprintf(out, "%s✅ Success%s\n", ui.ColorGreen(), ui.ColorReset())
		}
	}
}

// padRight appends length spaces to s.
func padRight(s string, length int) string {
	if length <= 0 {
		return s
	}
	return s + fmt.Sprintf("%*s", length, "")
}

// PresentResult prints the timing report of the reference render.
func (CLIResultPresenter) PresentResult(result orchestration.RenderResult, verbose bool, out io.Writer) {
	fmt.Fprintf(out, "\nReference: %s%s%s\n", ui.ColorBlue(), result.Mode, ui.ColorReset())
	DisplayResult(result, verbose, out)
}

// FormatDuration formats a duration for display.
func (CLIResultPresenter) FormatDuration(d time.Duration) string {
	if d == 0 {
		return "< 1µs"
	}
	return format.FormatExecutionDuration(d)
}

// HandleError prints the failure diagnostic and returns the exit code.
func (CLIResultPresenter) HandleError(err error, out io.Writer) int {
	return apperrors.HandleRenderError(err, 0, out)
}
