// Package tui is the interactive dashboard of local and comparison runs: a
// per-mode progress table, the timing results, runtime metrics with host
// load sparklines, and the job log.
package tui

import (
	"context"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/raysplit/internal/config"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/sysmon"
)

// Job describes the renders the dashboard runs.
type Job struct {
	Config  config.AppConfig
	Modes   []partition.Mode
	Run     orchestration.Run
	Options orchestration.Options
}

// ExecutionState holds the state of the current run.
type ExecutionState struct {
	ctx        context.Context
	cancel     context.CancelFunc
	job        Job
	generation uint64
	done       bool
	exitCode   int
	results    []orchestration.RenderResult
}

// Layout constants for the dashboard.
const (
	headerHeight          = 1
	footerHeight          = 1
	minBodyHeight         = 8
	LeftPanelWidthPercent = 60
	MetricsPanelHeight    = 7
)

// LayoutManager holds the terminal size and splits it between panels.
type LayoutManager struct {
	width  int
	height int
}

func (l LayoutManager) bodyHeight() int {
	return max(l.height-headerHeight-footerHeight, minBodyHeight)
}

func (l LayoutManager) leftWidth() int {
	return l.width * LeftPanelWidthPercent / 100
}

func (l LayoutManager) rightWidth() int {
	return l.width - l.leftWidth()
}

func (l LayoutManager) metricsHeight() int {
	return min(MetricsPanelHeight, l.bodyHeight()/2)
}

// Model is the root bubbletea model of the dashboard.
type Model struct {
	header  HeaderModel
	renders RendersModel
	results ResultsModel
	metrics MetricsModel
	logs    LogsModel
	footer  FooterModel

	keymap KeyMap

	ExecutionState
	LayoutManager

	parentCtx context.Context
	ref       *programRef
	paused    bool
}

// NewModel returns a dashboard for job. The job logger is replaced by one
// writing to the log panel, keeping the job id.
func NewModel(parentCtx context.Context, job Job, version string) Model {
	ref := &programRef{}
	job.Options.Logger = panelLogger(ref).With(logging.String("job", job.Config.JobID))
	ctx, cancel := context.WithCancel(parentCtx)

	logs := NewLogsModel(job.Modes)
	logs.AddExecutionConfig(job.Config)
	keys := DefaultKeyMap()

	return Model{
		header:  NewHeaderModel(version, job.Config),
		renders: NewRendersModel(job.Modes),
		metrics: NewMetricsModel(),
		logs:    logs,
		footer:  NewFooterModel(keys),
		keymap:  keys,
		ExecutionState: ExecutionState{
			ctx:      ctx,
			cancel:   cancel,
			job:      job,
			exitCode: apperrors.ExitSuccess,
		},
		parentCtx: parentCtx,
		ref:       ref,
	}
}

// Init starts the renders and the sampling ticks.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		startRenderCmd(m.ctx, m.ref, m.job, m.generation),
		watchContextCmd(m.ctx, m.generation),
	)
}

// Update handles every incoming message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutPanels()
		return m, nil

	case ProgressMsg:
		if msg.Generation == m.generation && !m.paused {
			m.renders.UpdateProgress(msg)
			m.logs.AddProgressEntry(msg)
			m.metrics.UpdateProgress(msg.AverageProgress)
		}
		return m, nil

	case ProgressDoneMsg:
		return m, nil

	case ComparisonResultsMsg:
		if msg.Generation == m.generation {
			m.results.SetComparison(msg.Results)
		}
		return m, nil

	case FinalResultMsg:
		if msg.Generation == m.generation {
			m.results.SetReference(msg.Result)
		}
		return m, nil

	case ErrorMsg:
		if msg.Generation == m.generation {
			m.logs.AddError(msg.Err)
			m.results.SetError(msg.Err)
			m.footer.SetError(true)
		}
		return m, nil

	case LogMsg:
		m.logs.AddLine(msg.Line)
		return m, nil

	case RenderCompleteMsg:
		if msg.Generation != m.generation {
			return m, nil // from a run the user restarted
		}
		m.done = true
		m.exitCode = msg.ExitCode
		m.results.SetDone(msg.ExitCode)
		m.ExecutionState.results = msg.Results
		m.renders.SetResults(msg.Results)
		m.header.SetDone()
		m.logs.AddComplete(msg.ExitCode, m.header.Elapsed())
		m.footer.SetError(msg.ExitCode != apperrors.ExitSuccess)
		m.footer.SetDone(true)
		return m, nil

	case ContextCancelledMsg:
		if msg.Generation != m.generation {
			return m, nil
		}
		m.header.SetDone()
		m.footer.SetDone(true)
		return m, tea.Quit

	case TickMsg:
		if m.done {
			return m, nil
		}
		if m.paused {
			return m, tickCmd()
		}
		return m, tea.Batch(sampleMemStatsCmd(), sampleSysStatsCmd(), tickCmd())

	case MemStatsMsg:
		m.metrics.UpdateMemStats(msg)
		return m, nil

	case SysStatsMsg:
		m.metrics.UpdateSysStats(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Pause):
		m.paused = !m.paused
		m.footer.SetPaused(m.paused)
		return m, nil

	case key.Matches(msg, m.keymap.Reset):
		m.cancel()
		m.generation++
		m.ctx, m.cancel = context.WithCancel(m.parentCtx)

		m.header.Reset()
		m.renders.Reset()
		m.results.Reset()
		m.logs.Reset()
		m.logs.AddExecutionConfig(m.job.Config)
		m.metrics = NewMetricsModel()
		m.layoutPanels()
		m.footer.SetDone(false)
		m.footer.SetError(false)
		m.footer.SetPaused(false)
		m.done = false
		m.paused = false
		m.exitCode = apperrors.ExitSuccess
		m.ExecutionState.results = nil

		return m, tea.Batch(
			tickCmd(),
			startRenderCmd(m.ctx, m.ref, m.job, m.generation),
			watchContextCmd(m.ctx, m.generation),
		)

	case key.Matches(msg, m.keymap.Up), key.Matches(msg, m.keymap.Down),
		key.Matches(msg, m.keymap.PageUp), key.Matches(msg, m.keymap.PageDown):
		m.logs.Update(msg, m.keymap)
		return m, nil
	}
	return m, nil
}

func (m *Model) layoutPanels() {
	body := m.bodyHeight()
	rendersHeight := min(m.renders.Height(), body-4)
	m.header.SetWidth(m.width)
	m.footer.SetWidth(m.width)
	m.renders.SetSize(m.leftWidth(), rendersHeight)
	m.results.SetSize(m.leftWidth(), body-rendersHeight)
	m.metrics.SetSize(m.rightWidth(), m.metricsHeight())
	m.logs.SetSize(m.rightWidth(), body-m.metricsHeight())
}

// View renders the whole dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	left := lipgloss.JoinVertical(lipgloss.Left, m.renders.View(), m.results.View())
	right := lipgloss.JoinVertical(lipgloss.Left, m.metrics.View(), m.logs.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body, m.footer.View())
}

// Run shows the dashboard until the user quits and returns the exit code
// with the results of the last completed run. Quitting before the renders
// end cancels them and returns ExitErrorCanceled.
func Run(ctx context.Context, job Job, version string) (int, []orchestration.RenderResult) {
	initTUIStyles()

	model := NewModel(ctx, job, version)
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithAltScreen())
	model.ref.SetProgram(p)

	final, err := p.Run()
	if err != nil {
		return apperrors.ExitErrorGeneric, nil
	}
	m, ok := final.(Model)
	if !ok {
		return apperrors.ExitErrorGeneric, nil
	}
	m.cancel()
	if !m.done {
		return apperrors.ExitErrorCanceled, nil
	}
	return m.exitCode, m.ExecutionState.results
}

// startRenderCmd runs the job's renders and reports their outcome.
func startRenderCmd(ctx context.Context, ref *programRef, job Job, gen uint64) tea.Cmd {
	return func() tea.Msg {
		presenter := &TUIResultPresenter{ref: ref, gen: gen}
		base := job.Config.Render(job.Modes[0])
		results := orchestration.ExecuteRenders(ctx, base, job.Modes, job.Run, job.Options, progressReporter(ref, gen), io.Discard)
		return RenderCompleteMsg{
			ExitCode:   presentResults(results, presenter, job.Config.Verbose),
			Results:    results,
			Generation: gen,
		}
	}
}

// presentResults hands the results to presenter and returns the exit code.
func presentResults(results []orchestration.RenderResult, presenter *TUIResultPresenter, verbose bool) int {
	if len(results) > 1 {
		return orchestration.AnalyzeComparisonResults(results, presenter, presenter, verbose, io.Discard)
	}
	if err := results[0].Err; err != nil {
		return presenter.HandleError(err, io.Discard)
	}
	presenter.PresentResult(results[0], verbose, io.Discard)
	return apperrors.ExitSuccess
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func sampleMemStatsCmd() tea.Cmd {
	return func() tea.Msg {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return MemStatsMsg{
			Alloc:        ms.Alloc,
			HeapSys:      ms.HeapSys,
			NumGC:        ms.NumGC,
			PauseTotalNs: ms.PauseTotalNs,
			NumGoroutine: runtime.NumGoroutine(),
		}
	}
}

func sampleSysStatsCmd() tea.Cmd {
	return func() tea.Msg {
		s := sysmon.Sample()
		return SysStatsMsg{CPUPercent: s.CPUPercent, MemPercent: s.MemPercent}
	}
}

// watchContextCmd reports the cancellation of ctx.
func watchContextCmd(ctx context.Context, gen uint64) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return ContextCancelledMsg{Err: ctx.Err(), Generation: gen}
	}
}
