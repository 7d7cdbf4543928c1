package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/raysplit/internal/format"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/progress"
)

const (
	// ProgressRefreshRate is the spinner and progress bar refresh period.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth is the width in cells of the progress bar.
	ProgressBarWidth = 40
)

// Spinner abstracts the terminal spinner so DisplayProgress can be tested.
type Spinner interface {
	Start()
	Stop()
	// UpdateSuffix sets the text displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to Spinner.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }
func (rs *realSpinner) Stop()  { rs.s.Stop() }

// UpdateSuffix takes the spinner's lock: its goroutine reads Suffix.
func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	return &realSpinner{spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)}
}

// DisplayProgress shows a spinner with the average progress and ETA of the
// running renders until progressChan is closed.
//
// Parameters:
//   - wg: Signaled on return.
//   - progressChan: Updates from the coordinators.
//   - numRenders: The number of renders; with none the channel is drained.
//   - out: The terminal writer.
func DisplayProgress(wg *sync.WaitGroup, progressChan <-chan progress.ProgressUpdate, numRenders int, out io.Writer) {
	defer wg.Done()
	agg := orchestration.NewProgressAggregator(numRenders)
	if agg == nil {
		orchestration.DrainChannel(progressChan)
		return
	}

	label := "Rendering"
	if agg.IsComparison() {
		label = fmt.Sprintf("Rendering %d modes", numRenders)
	}
	s := newSpinner(spinner.WithWriter(out), spinner.WithHiddenCursor(true))
	show := func(avg float64, eta time.Duration) {
		s.UpdateSuffix(fmt.Sprintf(" %s %s", label, format.FormatProgressBarWithETA(avg, eta, ProgressBarWidth)))
	}
	show(0, 0)
	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()
	for {
		select {
		case update, ok := <-progressChan:
			if !ok {
				show(agg.CalculateAverage(), 0)
				return
			}
			ap := agg.Update(update)
			show(ap.AverageProgress, ap.ETA)
		case <-ticker.C:
			show(agg.CalculateAverage(), agg.GetETA())
		}
	}
}
