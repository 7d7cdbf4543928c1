package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// FooterModel renders the run status and the key help.
type FooterModel struct {
	help   help.Model
	keys   KeyMap
	width  int
	paused bool
	done   bool
	failed bool
}

// NewFooterModel returns a footer listing keys.
func NewFooterModel(keys KeyMap) FooterModel {
	h := help.New()
	h.Styles.ShortKey = footerKeyStyle
	h.Styles.ShortDesc = footerDescStyle
	h.Styles.ShortSeparator = footerDescStyle
	return FooterModel{help: h, keys: keys}
}

// SetWidth sets the available width.
func (f *FooterModel) SetWidth(w int) {
	f.width = w
	f.help.Width = w
}

// SetPaused toggles the paused indicator.
func (f *FooterModel) SetPaused(p bool) { f.paused = p }

// SetDone marks the run as finished.
func (f *FooterModel) SetDone(d bool) { f.done = d }

// SetError marks the run as failed.
func (f *FooterModel) SetError(e bool) { f.failed = e }

// Status returns the plain status word.
func (f FooterModel) Status() string {
	switch {
	case f.failed:
		return "FAILED"
	case f.done:
		return "DONE"
	case f.paused:
		return "PAUSED"
	}
	return "RENDERING"
}

// View renders the footer.
func (f FooterModel) View() string {
	style := statusRunningStyle
	switch f.Status() {
	case "FAILED":
		style = statusErrorStyle
	case "DONE":
		style = statusDoneStyle
	case "PAUSED":
		style = statusPausedStyle
	}
	return lipgloss.NewStyle().Width(f.width).Render(
		" " + style.Render(f.Status()) + "  " + f.help.ShortHelpView(f.keys.ShortHelp()))
}
