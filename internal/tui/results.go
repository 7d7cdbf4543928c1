package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/format"
	"github.com/agbru/raysplit/internal/orchestration"
)

var resultHeaders = []string{"Mode", "Execution", "Computation", "Communication", "C-to-C"}

// ResultsModel shows the timing table and the verdict once the renders end.
type ResultsModel struct {
	results   []orchestration.RenderResult
	reference *orchestration.RenderResult
	err       error
	exitCode  int
	done      bool
	width     int
	height    int
}

// SetSize sets the panel size, borders included.
func (m *ResultsModel) SetSize(w, h int) {
	m.width, m.height = w, h
}

// SetComparison stores the results of a comparison run.
func (m *ResultsModel) SetComparison(results []orchestration.RenderResult) {
	m.results = results
}

// SetReference stores the render whose timings are detailed.
func (m *ResultsModel) SetReference(res orchestration.RenderResult) {
	m.reference = &res
	if len(m.results) == 0 {
		m.results = []orchestration.RenderResult{res}
	}
}

// SetError stores the error that failed the run.
func (m *ResultsModel) SetError(err error) { m.err = err }

// SetDone records the exit code of the run.
func (m *ResultsModel) SetDone(exitCode int) {
	m.done = true
	m.exitCode = exitCode
}

// Reset clears the panel for another run.
func (m *ResultsModel) Reset() {
	*m = ResultsModel{width: m.width, height: m.height}
}

// Verdict returns the plain status line, or "" while rendering.
func (m ResultsModel) Verdict() string {
	if !m.done {
		return ""
	}
	switch m.exitCode {
	case apperrors.ExitSuccess:
		if len(m.results) > 1 {
			return "Global Status: Success. All images are identical."
		}
		return "Global Status: Success."
	case apperrors.ExitErrorMismatch:
		return "Global Status: CRITICAL ERROR! Images differ between modes."
	case apperrors.ExitErrorCanceled:
		return "Global Status: Canceled."
	}
	if m.reference != nil {
		return "Global Status: Partial failure. Some modes failed."
	}
	if m.err != nil {
		return fmt.Sprintf("Global Status: Failure (%s).", apperrors.KindOf(m.err))
	}
	return "Global Status: Failure."
}

// View renders the panel.
func (m ResultsModel) View() string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render("RESULTS"))
	b.WriteString("\n\n")

	if len(m.results) == 0 && !m.done {
		b.WriteString(statusMutedStyle.Render("Rendering..."))
		return m.panel(b.String())
	}

	if len(m.results) > 0 {
		b.WriteString(m.table())
		b.WriteString("\n")
	}

	if v := m.Verdict(); v != "" {
		style := statusDoneStyle
		if m.exitCode != apperrors.ExitSuccess {
			style = statusErrorStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(v))
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(logErrorStyle.Render(m.err.Error()))
	}
	if m.reference != nil && len(m.reference.Stats.PerRank) > 0 {
		fmt.Fprintf(&b, "\n%s %s %s",
			metricLabelStyle.Render("Compute per rank, "+m.reference.Mode.String()+":"),
			rankSparklineStyle.Render(RenderSparkline(shareOfMax(m.reference.Stats.PerRank))),
			metricLabelStyle.Render(fmt.Sprintf("(ranks 0-%d)", len(m.reference.Stats.PerRank)-1)))
	}
	return m.panel(b.String())
}

func (m ResultsModel) panel(content string) string {
	return panelStyle.Width(max(m.width-2, 0)).Height(max(m.height-2, 0)).Render(content)
}

// table lays out one row per result, padding on the plain text.
func (m ResultsModel) table() string {
	rows := make([][]string, len(m.results))
	widths := make([]int, len(resultHeaders))
	for i, h := range resultHeaders {
		widths[i] = len(h)
	}
	for i, res := range m.results {
		rows[i] = []string{res.Mode.String(), "-", "-", "-", "-"}
		if res.Err == nil {
			rows[i][1] = format.FormatExecutionDuration(res.Stats.Wall)
			rows[i][2] = format.FormatExecutionDuration(res.Stats.Compute)
			rows[i][3] = format.FormatExecutionDuration(res.Stats.Communication)
			rows[i][4] = fmt.Sprintf("%.4f", res.Stats.Ratio)
		}
		for j, cell := range rows[i] {
			widths[j] = max(widths[j], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for j, h := range resultHeaders {
		b.WriteString(tableHeaderStyle.Render(h))
		b.WriteString(strings.Repeat(" ", widths[j]-len(h)+2))
	}
	for i, res := range m.results {
		b.WriteString("\n")
		for j, cell := range rows[i] {
			if j == 0 {
				cell = modeStyle.Render(cell)
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[j]-lipgloss.Width(rows[i][j])+2))
		}
		if res.Err != nil {
			b.WriteString(statusErrorStyle.Render("ERR"))
		} else {
			b.WriteString(statusDoneStyle.Render("OK"))
		}
	}
	return b.String()
}
