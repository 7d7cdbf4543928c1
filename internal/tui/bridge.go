package tui

import (
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/format"
	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/progress"
)

// programRef outlives the model copies bubbletea makes, so goroutines
// started by commands can reach the running program.
type programRef struct {
	mu      sync.RWMutex
	program *tea.Program
}

// SetProgram sets the program messages are sent to.
func (r *programRef) SetProgram(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Send delivers msg to the program. It is a no-op before SetProgram.
func (r *programRef) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// progressReporter forwards aggregated progress to the dashboard.
func progressReporter(ref *programRef, gen uint64) orchestration.ProgressReporter {
	return orchestration.ProgressReporterFunc(func(wg *sync.WaitGroup, progressChan <-chan progress.ProgressUpdate, numRenders int, _ io.Writer) {
		defer wg.Done()
		agg := orchestration.NewProgressAggregator(numRenders)
		if agg == nil {
			orchestration.DrainChannel(progressChan)
			return
		}
		for update := range progressChan {
			ap := agg.Update(update)
			ref.Send(ProgressMsg{
				Index:           ap.Index,
				Value:           ap.Value,
				AverageProgress: ap.AverageProgress,
				ETA:             ap.ETA,
				Generation:      gen,
			})
		}
		ref.Send(ProgressDoneMsg{Generation: gen})
	})
}

// TUIResultPresenter sends render outcomes to the dashboard instead of
// writing them out.
type TUIResultPresenter struct {
	ref *programRef
	gen uint64
}

var (
	_ orchestration.ResultPresenter   = (*TUIResultPresenter)(nil)
	_ orchestration.DurationFormatter = (*TUIResultPresenter)(nil)
	_ orchestration.ErrorHandler      = (*TUIResultPresenter)(nil)
)

// PresentComparisonTable sends a copy of the sorted results.
func (t *TUIResultPresenter) PresentComparisonTable(results []orchestration.RenderResult, _ io.Writer) {
	t.ref.Send(ComparisonResultsMsg{
		Results:    append([]orchestration.RenderResult(nil), results...),
		Generation: t.gen,
	})
}

// PresentResult sends the reference render.
func (t *TUIResultPresenter) PresentResult(result orchestration.RenderResult, _ bool, _ io.Writer) {
	t.ref.Send(FinalResultMsg{Result: result, Generation: t.gen})
}

// FormatDuration delegates to the shared formatter.
func (t *TUIResultPresenter) FormatDuration(d time.Duration) string {
	return format.FormatExecutionDuration(d)
}

// HandleError sends the error to the dashboard and returns its exit code.
func (t *TUIResultPresenter) HandleError(err error, _ io.Writer) int {
	t.ref.Send(ErrorMsg{Err: err, Generation: t.gen})
	return apperrors.HandleRenderError(err, 0, io.Discard)
}

// logWriter sends every line it receives to the log panel.
type logWriter struct {
	ref *programRef
}

func (w logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.ref.Send(LogMsg{Line: line})
		}
	}
	return len(p), nil
}

// panelLogger returns a logger writing plain console lines to the log panel.
// The alternate screen owns the terminal, so nothing may go to stderr.
func panelLogger(ref *programRef) logging.Logger {
	console := zerolog.ConsoleWriter{Out: logWriter{ref: ref}, NoColor: true, TimeFormat: "15:04:05"}
	return logging.NewLogger(console, "raysplit")
}
