package tui

import (
	"time"

	"github.com/agbru/raysplit/internal/orchestration"
)

// Messages carrying a Generation belong to one run of the renders. Update
// drops those of a run the user restarted.

// ProgressMsg reports the assembled fraction of one render.
type ProgressMsg struct {
	Index           int
	Value           float64
	AverageProgress float64
	ETA             time.Duration
	Generation      uint64
}

// ProgressDoneMsg is sent once the progress channel is closed.
type ProgressDoneMsg struct {
	Generation uint64
}

// ComparisonResultsMsg carries every result of a comparison run, sorted by
// wall time.
type ComparisonResultsMsg struct {
	Results    []orchestration.RenderResult
	Generation uint64
}

// FinalResultMsg carries the reference render.
type FinalResultMsg struct {
	Result     orchestration.RenderResult
	Generation uint64
}

// ErrorMsg reports the error that failed the run.
type ErrorMsg struct {
	Err        error
	Generation uint64
}

// RenderCompleteMsg ends a run with its exit code and results.
type RenderCompleteMsg struct {
	ExitCode   int
	Results    []orchestration.RenderResult
	Generation uint64
}

// ContextCancelledMsg is sent when the run's context is canceled.
type ContextCancelledMsg struct {
	Err        error
	Generation uint64
}

// LogMsg carries one line written by the job logger.
type LogMsg struct {
	Line string
}

// TickMsg drives the periodic resource sampling.
type TickMsg time.Time

// MemStatsMsg is a runtime memory sample.
type MemStatsMsg struct {
	Alloc        uint64
	HeapSys      uint64
	NumGC        uint32
	PauseTotalNs uint64
	NumGoroutine int
}

// SysStatsMsg is a host CPU and memory sample, both in percent.
type SysStatsMsg struct {
	CPUPercent float64
	MemPercent float64
}
