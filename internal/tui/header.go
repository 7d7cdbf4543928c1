package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/raysplit/internal/config"
	"github.com/agbru/raysplit/internal/format"
)

// HeaderModel renders the top bar: title, job and elapsed time.
type HeaderModel struct {
	startTime time.Time
	endTime   time.Time
	version   string
	job       string
	width     int
}

// NewHeaderModel returns a header whose timer starts now.
func NewHeaderModel(version string, cfg config.AppConfig) HeaderModel {
	return HeaderModel{
		startTime: time.Now(),
		version:   version,
		job:       fmt.Sprintf("%s %dx%d on %d ranks", cfg.Scene, cfg.Width, cfg.Height, cfg.Procs),
	}
}

// SetDone freezes the elapsed time.
func (h *HeaderModel) SetDone() { h.endTime = time.Now() }

// Reset restarts the timer.
func (h *HeaderModel) Reset() {
	h.startTime = time.Now()
	h.endTime = time.Time{}
}

// SetWidth sets the available width.
func (h *HeaderModel) SetWidth(w int) { h.width = w }

// Elapsed returns the time since the start, frozen by SetDone.
func (h HeaderModel) Elapsed() time.Duration {
	if !h.endTime.IsZero() {
		return h.endTime.Sub(h.startTime)
	}
	return time.Since(h.startTime)
}

// View renders the header.
func (h HeaderModel) View() string {
	title := "raysplit monitor"
	if h.version != "" && h.version != "dev" {
		title += " " + h.version
	}
	pipe := versionStyle.Render(" | ")
	row := titleStyle.Render(title) + pipe +
		versionStyle.Render(h.job) + pipe +
		elapsedStyle.Render("Elapsed: "+format.FormatExecutionDuration(h.Elapsed()))
	if gap := h.width - 2 - lipgloss.Width(row); gap > 0 {
		row += strings.Repeat(" ", gap)
	}
	return headerStyle.Width(h.width).Render(row)
}
