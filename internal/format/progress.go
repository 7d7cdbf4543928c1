package format

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// maxETA caps the estimate shown while the rate is still unreliable.
const maxETA = 24 * time.Hour

// rateSmoothing weighs the newest progress rate in the running estimate.
const rateSmoothing = 0.3

// ProgressState holds the progress of several renders and averages them.
type ProgressState struct {
	progresses []float64
	numRenders int
}

// NewProgressState tracks numRenders renders, all at zero.
func NewProgressState(numRenders int) *ProgressState {
	return &ProgressState{progresses: make([]float64, max(numRenders, 0)), numRenders: numRenders}
}

// Update records value, clamped to [0, 1], for render index. Unknown indices
// are ignored.
func (ps *ProgressState) Update(index int, value float64) {
	if index < 0 || index >= len(ps.progresses) {
		return
	}
	ps.progresses[index] = min(max(value, 0), 1)
}

// CalculateAverage returns the mean progress, 0 when nothing is tracked.
func (ps *ProgressState) CalculateAverage() float64 {
	if ps.numRenders <= 0 {
		return 0
	}
	var total float64
	for _, p := range ps.progresses {
		total += p
	}
	return total / float64(ps.numRenders)
}

// ProgressWithETA adds a smoothed completion-time estimate to ProgressState.
// It is safe for concurrent use.
type ProgressWithETA struct {
	*ProgressState
	mu           sync.Mutex
	startTime    time.Time
	progressRate float64 // fraction per second
}

// NewProgressWithETA starts the clock for numRenders renders.
func NewProgressWithETA(numRenders int) *ProgressWithETA {
	return &ProgressWithETA{ProgressState: NewProgressState(numRenders), startTime: time.Now()}
}

// UpdateWithETA records a value and returns the new average and estimate.
func (p *ProgressWithETA) UpdateWithETA(index int, value float64) (float64, time.Duration) {
	p.mu.Lock()
	p.Update(index, value)
	avg := p.CalculateAverage()
	if elapsed := time.Since(p.startTime).Seconds(); elapsed > 0 && avg > 0 {
		rate := avg / elapsed
		if p.progressRate == 0 {
			p.progressRate = rate
		} else {
			p.progressRate = rateSmoothing*rate + (1-rateSmoothing)*p.progressRate
		}
	}
	p.mu.Unlock()
	return avg, p.GetETA()
}

// GetETA returns the estimated time to completion, or 0 while no rate is
// known.
func (p *ProgressWithETA) GetETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	avg := p.CalculateAverage()
	if p.progressRate <= 0 || avg >= 1 {
		return 0
	}
	secs := (1 - avg) / p.progressRate
	if secs > maxETA.Seconds() {
		return maxETA
	}
	return time.Duration(secs * float64(time.Second))
}

// ProgressBar draws a bar of length cells for a fraction in [0, 1].
func ProgressBar(progress float64, length int) string {
	progress = min(max(progress, 0), 1)
	count := int(progress * float64(length))
	var b strings.Builder
	b.Grow(length * 3)
	for i := 0; i < length; i++ {
		if i < count {
			b.WriteRune('█')
		} else {
			b.WriteRune('░')
		}
	}
	return b.String()
}

// FormatProgressBarWithETA renders "[bar] 42.0% ETA: 3s".
func FormatProgressBarWithETA(progress float64, eta time.Duration, width int) string {
	return fmt.Sprintf("[%s] %5.1f%% ETA: %s", ProgressBar(progress, width), min(max(progress, 0), 1)*100, FormatETA(eta))
}
