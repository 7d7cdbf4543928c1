package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/raysplit/internal/format"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/partition"
)

type renderStatus int

const (
	statusPending renderStatus = iota
	statusRunning
	statusDone
	statusFailed
)

func (s renderStatus) String() string {
	switch s {
	case statusRunning:
		return "RUN"
	case statusDone:
		return "OK"
	case statusFailed:
		return "ERR"
	}
	return "WAIT"
}

// Column widths of the render table, shared by the header and the rows.
const (
	colWidthIndex    = 3
	colWidthMode     = 18
	colWidthProgress = 24
	colWidthPct      = 7
	colWidthWall     = 10
	colWidthStatus   = 6
)

// RendersModel is the per-mode progress table.
type RendersModel struct {
	modes    []partition.Mode
	progress []float64
	statuses []renderStatus
	walls    []time.Duration
	average  float64
	eta      time.Duration
	width    int
	height   int
}

// NewRendersModel returns a table with every mode pending.
func NewRendersModel(modes []partition.Mode) RendersModel {
	r := RendersModel{modes: modes}
	r.Reset()
	return r
}

// SetSize sets the panel size, borders included.
func (r *RendersModel) SetSize(w, h int) {
	r.width, r.height = w, h
}

// Height returns the rows the table needs, borders included.
func (r RendersModel) Height() int {
	return len(r.modes) + 6
}

// UpdateProgress records the progress of one render. Renders run one after
// the other, so every earlier render still running has finished.
func (r *RendersModel) UpdateProgress(msg ProgressMsg) {
	if msg.Index < 0 || msg.Index >= len(r.modes) {
		return
	}
	for i := 0; i < msg.Index; i++ {
		if r.statuses[i] == statusRunning {
			r.statuses[i] = statusDone
		}
	}
	r.progress[msg.Index] = msg.Value
	r.statuses[msg.Index] = statusRunning
	if msg.Value >= 1 {
		r.statuses[msg.Index] = statusDone
	}
	r.average, r.eta = msg.AverageProgress, msg.ETA
}

// SetResults settles every row from the final results.
func (r *RendersModel) SetResults(results []orchestration.RenderResult) {
	for _, res := range results {
		for i, mode := range r.modes {
			if mode != res.Mode {
				continue
			}
			r.walls[i] = res.Stats.Wall
			if res.Err != nil {
				r.statuses[i] = statusFailed
				continue
			}
			r.statuses[i] = statusDone
			r.progress[i] = 1
		}
	}
	r.eta = 0
}

// Reset sets every mode back to pending.
func (r *RendersModel) Reset() {
	r.progress = make([]float64, len(r.modes))
	r.statuses = make([]renderStatus, len(r.modes))
	r.walls = make([]time.Duration, len(r.modes))
	r.average, r.eta = 0, 0
}

// View renders the panel.
func (r RendersModel) View() string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render("RENDERS"))
	b.WriteString(metricLabelStyle.Render(fmt.Sprintf("  %.1f%% overall, ETA %s", 100*r.average, format.FormatETA(r.eta))))
	b.WriteString("\n\n")

	colIndex := lipgloss.NewStyle().Width(colWidthIndex)
	colMode := lipgloss.NewStyle().Width(colWidthMode)
	colProgress := lipgloss.NewStyle().Width(colWidthProgress)
	colPct := lipgloss.NewStyle().Width(colWidthPct).Align(lipgloss.Right)
	colWall := lipgloss.NewStyle().Width(colWidthWall).Align(lipgloss.Right)
	colStatus := lipgloss.NewStyle().Width(colWidthStatus).Align(lipgloss.Center)

	b.WriteString(tableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		colIndex.Render("#"), " ",
		colMode.Render("Mode"), " ",
		colProgress.Render("Progress"), " ",
		colPct.Render("%"), " ",
		colWall.Render("Wall"), " ",
		colStatus.Render("Status"),
	)))

	for i, mode := range r.modes {
		wall := "-"
		switch r.statuses[i] {
		case statusRunning:
			wall = "..."
		case statusDone, statusFailed:
			if r.walls[i] > 0 {
				wall = format.FormatExecutionDuration(r.walls[i])
			}
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			colIndex.Render(fmt.Sprintf("%d", i+1)), " ",
			colMode.Render(modeStyle.Render(mode.String())), " ",
			progressBar(r.progress[i], colWidthProgress), " ",
			colPct.Render(fmt.Sprintf("%.1f%%", 100*r.progress[i])), " ",
			colWall.Render(wall), " ",
			colStatus.Render(statusStyle(r.statuses[i]).Render(r.statuses[i].String())),
		))
	}
	return panelStyle.Width(max(r.width-2, 0)).Height(max(r.height-2, 0)).Render(b.String())
}

func statusStyle(s renderStatus) lipgloss.Style {
	switch s {
	case statusRunning:
		return statusRunningStyle
	case statusDone:
		return statusDoneStyle
	case statusFailed:
		return statusErrorStyle
	}
	return statusMutedStyle
}

// progressBar draws a bar of exactly width cells.
func progressBar(progress float64, width int) string {
	filled := min(max(int(progress*float64(width)), 0), width)
	return progressFullStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
