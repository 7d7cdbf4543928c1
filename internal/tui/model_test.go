package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agbru/raysplit/internal/config"
	"github.com/agbru/raysplit/internal/coordinator"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/pixel"
	"github.com/agbru/raysplit/internal/stats"
)

func statsWithWall(wall time.Duration) stats.Report {
	return stats.Report{
		PerRank:       []time.Duration{wall / 4, wall / 2},
		Compute:       3 * wall / 4,
		Wall:          wall,
		Communication: wall / 4,
		Ratio:         1.0 / 3,
	}
}

// scriptedRun renders instantly, reporting full progress, except for the
// modes listed in failures.
func scriptedRun(failures map[partition.Mode]error) orchestration.Run {
	img := pixel.NewBuffer(partition.Grid{Width: 4, Height: 2})
	return func(_ context.Context, cfg config.RenderConfig, opts orchestration.Options) (coordinator.Outcome, error) {
		if err := failures[cfg.Mode]; err != nil {
			return coordinator.Outcome{}, err
		}
		if opts.Progress != nil {
			opts.Progress(1)
		}
		return coordinator.Outcome{Image: img, Stats: statsWithWall(time.Millisecond)}, nil
	}
}

func testJob(modes []partition.Mode, failures map[partition.Mode]error) Job {
	return Job{
		Config: config.AppConfig{Width: 4, Height: 2, Scene: "gradient", Procs: 2, Threads: 1, Mode: modes[0].String()},
		Modes:  modes,
		Run:    scriptedRun(failures),
	}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return next.(Model)
}

func TestModelViewBeforeAndAfterSize(t *testing.T) {
	t.Parallel()

	m := NewModel(context.Background(), testJob(partition.AllModes(), nil), "v1.2.0")
	if got := m.View(); got != "Initializing..." {
		t.Fatalf("View() before a size = %q", got)
	}
	view := sized(t, m).View()
	for _, want := range []string{"raysplit monitor v1.2.0", "RENDERS", "RESULTS", "METRICS", "LOG", "dynamic"} {
		if !strings.Contains(view, want) {
			t.Errorf("dashboard is missing %q", want)
		}
	}
}

func TestModelDropsStaleGenerations(t *testing.T) {
	t.Parallel()

	modes := []partition.Mode{partition.None, partition.Blocks}
	m := sized(t, NewModel(context.Background(), testJob(modes, nil), "dev"))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(Model)
	if m.generation != 1 {
		t.Fatalf("generation after a restart = %d, want 1", m.generation)
	}

	for _, msg := range []tea.Msg{
		ProgressMsg{Index: 0, Value: 1, AverageProgress: 0.5, Generation: 0},
		RenderCompleteMsg{ExitCode: apperrors.ExitErrorShading, Generation: 0},
		ErrorMsg{Err: errors.New("old run"), Generation: 0},
	} {
		next, _ = m.Update(msg)
		m = next.(Model)
	}
	if m.done || m.renders.progress[0] != 0 || m.results.err != nil {
		t.Errorf("messages of the canceled run were applied: done=%v progress=%v err=%v",
			m.done, m.renders.progress, m.results.err)
	}

	next, _ = m.Update(ProgressMsg{Index: 1, Value: 0.5, AverageProgress: 0.25, Generation: 1})
	m = next.(Model)
	if m.renders.progress[1] != 0.5 || m.renders.statuses[1] != statusRunning {
		t.Errorf("current progress ignored: %v %v", m.renders.progress, m.renders.statuses)
	}
}

func TestModelPauseHoldsProgress(t *testing.T) {
	t.Parallel()

	m := sized(t, NewModel(context.Background(), testJob([]partition.Mode{partition.Dynamic}, nil), "dev"))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = next.(Model)
	if !m.paused || m.footer.Status() != "PAUSED" {
		t.Fatalf("paused=%v status=%s", m.paused, m.footer.Status())
	}
	next, _ = m.Update(ProgressMsg{Index: 0, Value: 0.7, AverageProgress: 0.7})
	if got := next.(Model).renders.progress[0]; got != 0 {
		t.Errorf("progress while paused = %v, want 0", got)
	}
}

func TestModelQuitCancelsRenders(t *testing.T) {
	t.Parallel()

	m := NewModel(context.Background(), testJob([]partition.Mode{partition.None}, nil), "dev")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command does not quit the program")
	}
	if err := next.(Model).ctx.Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("render context after quit: %v", err)
	}
}

func TestModelRenderComplete(t *testing.T) {
	t.Parallel()

	modes := []partition.Mode{partition.None, partition.StripsVertical}
	m := sized(t, NewModel(context.Background(), testJob(modes, nil), "dev"))
	results := []orchestration.RenderResult{
		{Mode: partition.None, Stats: statsWithWall(2 * time.Millisecond)},
		{Mode: partition.StripsVertical, Err: apperrors.TransportError{Op: "recv", Cause: errors.New("gone")}},
	}
	next, _ := m.Update(RenderCompleteMsg{ExitCode: apperrors.ExitErrorTransport, Results: results})
	m = next.(Model)

	if !m.done || m.exitCode != apperrors.ExitErrorTransport {
		t.Fatalf("done=%v exitCode=%d", m.done, m.exitCode)
	}
	if m.renders.statuses[0] != statusDone || m.renders.statuses[1] != statusFailed {
		t.Errorf("statuses = %v, want [OK ERR]", m.renders.statuses)
	}
	if m.footer.Status() != "FAILED" {
		t.Errorf("footer status %s, want FAILED", m.footer.Status())
	}
	if _, cmd := m.Update(TickMsg(time.Now())); cmd != nil {
		t.Error("ticks keep sampling after the run ended")
	}
}

func TestStartRenderCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		modes    []partition.Mode
		failures map[partition.Mode]error
		want     int
	}{
		{"single render", []partition.Mode{partition.Blocks}, nil, apperrors.ExitSuccess},
		{"single failure", []partition.Mode{partition.Blocks},
			map[partition.Mode]error{partition.Blocks: apperrors.ShadingError{Rank: 1, Cause: errors.New("nan")}},
			apperrors.ExitErrorShading},
		{"every mode", partition.AllModes(), nil, apperrors.ExitSuccess},
		{"one mode lost", partition.AllModes(),
			map[partition.Mode]error{partition.Dynamic: apperrors.TransportError{Op: "recv", Cause: errors.New("gone")}},
			apperrors.ExitErrorTransport},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := testJob(tt.modes, tt.failures)
			msg := startRenderCmd(context.Background(), &programRef{}, job, 5)()
			done, ok := msg.(RenderCompleteMsg)
			if !ok {
				t.Fatalf("command returned %T", msg)
			}
			if done.ExitCode != tt.want || done.Generation != 5 || len(done.Results) != len(tt.modes) {
				t.Errorf("got exit %d gen %d with %d results, want exit %d gen 5 with %d",
					done.ExitCode, done.Generation, len(done.Results), tt.want, len(tt.modes))
			}
		})
	}
}

func TestResultsVerdict(t *testing.T) {
	t.Parallel()

	ok := orchestration.RenderResult{Mode: partition.None, Stats: statsWithWall(time.Millisecond)}
	failed := orchestration.RenderResult{Mode: partition.Dynamic, Err: errors.New("boom")}
	tests := []struct {
		name  string
		setup func(*ResultsModel)
		want  string
	}{
		{"rendering", func(*ResultsModel) {}, ""},
		{"single success", func(m *ResultsModel) { m.SetReference(ok); m.SetDone(0) }, "Global Status: Success."},
		{"comparison success", func(m *ResultsModel) {
			m.SetComparison([]orchestration.RenderResult{ok, ok})
			m.SetReference(ok)
			m.SetDone(0)
		}, "Global Status: Success. All images are identical."},
		{"mismatch", func(m *ResultsModel) { m.SetDone(apperrors.ExitErrorMismatch) },
			"Global Status: CRITICAL ERROR! Images differ between modes."},
		{"canceled", func(m *ResultsModel) { m.SetDone(apperrors.ExitErrorCanceled) }, "Global Status: Canceled."},
		{"partial failure", func(m *ResultsModel) {
			m.SetComparison([]orchestration.RenderResult{ok, failed})
			m.SetReference(ok)
			m.SetDone(apperrors.ExitErrorGeneric)
		}, "Global Status: Partial failure. Some modes failed."},
		{"shading failure", func(m *ResultsModel) {
			m.SetError(apperrors.ShadingError{Rank: 1, Cause: errors.New("nan")})
			m.SetDone(apperrors.ExitErrorShading)
		}, "Global Status: Failure (shading failure)."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var m ResultsModel
			tt.setup(&m)
			if got := m.Verdict(); got != tt.want {
				t.Errorf("Verdict() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultsViewTable(t *testing.T) {
	t.Parallel()

	var m ResultsModel
	m.SetSize(90, 14)
	if !strings.Contains(m.View(), "Rendering...") {
		t.Error("pending panel does not say it is rendering")
	}
	m.SetComparison([]orchestration.RenderResult{
		{Mode: partition.Blocks, Stats: statsWithWall(time.Millisecond)},
		{Mode: partition.Dynamic, Err: errors.New("boom")},
	})
	m.SetReference(orchestration.RenderResult{Mode: partition.Blocks, Stats: statsWithWall(time.Millisecond)})
	m.SetDone(apperrors.ExitErrorGeneric)
	view := m.View()
	for _, want := range []string{"C-to-C", "blocks", "dynamic", "0.3333", "ERR", "Compute per rank, blocks:", "(ranks 0-1)"} {
		if !strings.Contains(view, want) {
			t.Errorf("results panel is missing %q", want)
		}
	}
}

func TestMetricsProgressRate(t *testing.T) {
	t.Parallel()

	m := NewMetricsModel()
	m.lastUpdate = time.Now().Add(-time.Second)
	m.UpdateProgress(0.5)
	if m.rate < 0.4 || m.rate > 0.5 {
		t.Fatalf("rate after half a render in a second = %v", m.rate)
	}
	first := m.rate

	m.UpdateProgress(0.9)
	if m.rate != first {
		t.Errorf("sample 50ms apart changed the rate to %v", m.rate)
	}

	m.lastUpdate = time.Now().Add(-time.Second)
	m.UpdateProgress(0.1)
	if m.rate != first || m.lastProgress != 0.1 {
		t.Errorf("a falling average moved the rate: rate=%v last=%v", m.rate, m.lastProgress)
	}
}

func TestMetricsSysStatsHistory(t *testing.T) {
	t.Parallel()

	m := NewMetricsModel()
	for i := 0; i < historySize+5; i++ {
		m.UpdateSysStats(SysStatsMsg{CPUPercent: float64(i), MemPercent: 50})
	}
	if m.cpu.Len() != historySize || m.cpu.Last() != float64(historySize+4) {
		t.Errorf("cpu history len=%d last=%v", m.cpu.Len(), m.cpu.Last())
	}
	m.SetSize(60, 8)
	view := m.View()
	for _, want := range []string{"METRICS", "CPU", "MEM", "50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("metrics panel is missing %q", want)
		}
	}
}
