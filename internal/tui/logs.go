package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agbru/raysplit/internal/config"
	"github.com/agbru/raysplit/internal/partition"
)

// maxLogLines bounds the log history.
const maxLogLines = 500

// LogsModel is the scrollable event log.
type LogsModel struct {
	lines     []string
	modes     []partition.Mode
	assembled map[int]bool
	// offset counts the lines hidden below the view; 0 follows the tail.
	offset int
	width  int
	height int
}

// NewLogsModel returns an empty log for modes.
func NewLogsModel(modes []partition.Mode) LogsModel {
	return LogsModel{modes: modes, assembled: make(map[int]bool)}
}

// SetSize sets the panel size, borders included.
func (l *LogsModel) SetSize(w, h int) {
	l.width, l.height = w, h
}

func (l *LogsModel) add(line string) {
	l.lines = append(l.lines, logTimeStyle.Render(time.Now().Format("15:04:05"))+" "+line)
	if over := len(l.lines) - maxLogLines; over > 0 {
		l.lines = l.lines[over:]
	}
}

// AddExecutionConfig logs the job settings.
func (l *LogsModel) AddExecutionConfig(cfg config.AppConfig) {
	l.add(fmt.Sprintf("Scene %s, %dx%d pixels", cfg.Scene, cfg.Width, cfg.Height))
	l.add(fmt.Sprintf("%d ranks, %d threads per rank", cfg.Procs, max(cfg.Threads, 1)))
	if len(l.modes) > 1 {
		l.add(fmt.Sprintf("Comparing %d partitioning modes", len(l.modes)))
	} else if len(l.modes) == 1 {
		l.add("Partitioning mode " + modeStyle.Render(l.modes[0].String()))
	}
}

// AddProgressEntry logs a render the first time its image is complete.
func (l *LogsModel) AddProgressEntry(msg ProgressMsg) {
	if msg.Value < 1 || l.assembled[msg.Index] || msg.Index < 0 || msg.Index >= len(l.modes) {
		return
	}
	l.assembled[msg.Index] = true
	l.add(logSuccessStyle.Render(l.modes[msg.Index].String() + " assembled"))
}

// AddLine logs a line from the job logger.
func (l *LogsModel) AddLine(line string) { l.add(line) }

// AddError logs the error that failed the run.
func (l *LogsModel) AddError(err error) {
	l.add(logErrorStyle.Render("Error: " + err.Error()))
}

// AddComplete logs the end of the run.
func (l *LogsModel) AddComplete(exitCode int, elapsed time.Duration) {
	text := fmt.Sprintf("Finished in %s", elapsed.Round(time.Millisecond))
	if exitCode != 0 {
		l.add(logErrorStyle.Render(fmt.Sprintf("%s with exit code %d", text, exitCode)))
		return
	}
	l.add(logSuccessStyle.Render(text))
}

// Reset clears the log.
func (l *LogsModel) Reset() {
	l.lines = nil
	l.offset = 0
	l.assembled = make(map[int]bool)
}

func (l LogsModel) visibleLines() int {
	return max(l.height-3, 1)
}

// Update scrolls the log.
func (l *LogsModel) Update(msg tea.KeyMsg, keys KeyMap) {
	page := l.visibleLines()
	switch {
	case key.Matches(msg, keys.Up):
		l.offset++
	case key.Matches(msg, keys.Down):
		l.offset--
	case key.Matches(msg, keys.PageUp):
		l.offset += page
	case key.Matches(msg, keys.PageDown):
		l.offset -= page
	}
	l.offset = min(max(l.offset, 0), max(len(l.lines)-page, 0))
}

// View renders the panel.
func (l LogsModel) View() string {
	n := l.visibleLines()
	end := len(l.lines) - l.offset
	start := max(end-n, 0)
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render("LOG"))
	for _, line := range l.lines[start:end] {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return panelStyle.Width(max(l.width-2, 0)).Height(max(l.height-2, 0)).Render(b.String())
}
