package orchestration

import (
	"time"

	"github.com/agbru/raysplit/internal/format"
	"github.com/agbru/raysplit/internal/progress"
)

// ProgressAggregator folds the updates of several renders into one average
// with an ETA.
type ProgressAggregator struct {
	state      *format.ProgressWithETA
	numRenders int
}

// NewProgressAggregator tracks numRenders renders. It returns nil when there
// is nothing to track.
func NewProgressAggregator(numRenders int) *ProgressAggregator {
	if numRenders <= 0 {
		return nil
	}
	return &ProgressAggregator{state: format.NewProgressWithETA(numRenders), numRenders: numRenders}
}

// AggregatedProgress is the view after one update.
type AggregatedProgress struct {
	// Index is the render that sent the update.
	Index int
	// Value is that render's assembled fraction.
	Value float64
	// AverageProgress is the mean over all renders.
	AverageProgress float64
	// ETA estimates the time left.
	ETA time.Duration
}

// Update records one update.
func (a *ProgressAggregator) Update(update progress.ProgressUpdate) AggregatedProgress {
	avg, eta := a.state.UpdateWithETA(update.Index, update.Value)
	return AggregatedProgress{Index: update.Index, Value: update.Value, AverageProgress: avg, ETA: eta}
}

// CalculateAverage returns the current mean without updating.
func (a *ProgressAggregator) CalculateAverage() float64 { return a.state.CalculateAverage() }

// GetETA returns the current estimate without updating.
func (a *ProgressAggregator) GetETA() time.Duration { return a.state.GetETA() }

// NumRenders returns the number of renders tracked.
func (a *ProgressAggregator) NumRenders() int { return a.numRenders }

// IsComparison reports whether more than one render is tracked.
func (a *ProgressAggregator) IsComparison() bool { return a.numRenders > 1 }

// DrainChannel discards updates until the channel is closed.
func DrainChannel(progressChan <-chan progress.ProgressUpdate) {
	for range progressChan {
	}
}
