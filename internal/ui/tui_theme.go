package ui

import "github.com/charmbracelet/lipgloss"

// TUITheme holds the dashboard colors as lipgloss colors.
type TUITheme struct {
	Text    lipgloss.TerminalColor
	Border  lipgloss.TerminalColor
	Accent  lipgloss.TerminalColor
	Success lipgloss.TerminalColor
	Warning lipgloss.TerminalColor
	Error   lipgloss.TerminalColor
	Dim     lipgloss.TerminalColor
	Info    lipgloss.TerminalColor
}

var (
	// DarkTUITheme reuses the 256-color codes of DarkTheme.
	DarkTUITheme = TUITheme{
		Text:    lipgloss.Color("252"),
		Border:  lipgloss.Color("39"),
		Accent:  lipgloss.Color("39"),
		Success: lipgloss.Color("82"),
		Warning: lipgloss.Color("220"),
		Error:   lipgloss.Color("196"),
		Dim:     lipgloss.Color("245"),
		Info:    lipgloss.Color("141"),
	}

	// LightTUITheme reuses the 256-color codes of LightTheme.
	LightTUITheme = TUITheme{
		Text:    lipgloss.Color("235"),
		Border:  lipgloss.Color("27"),
		Accent:  lipgloss.Color("27"),
		Success: lipgloss.Color("28"),
		Warning: lipgloss.Color("130"),
		Error:   lipgloss.Color("124"),
		Dim:     lipgloss.Color("240"),
		Info:    lipgloss.Color("54"),
	}

	// NoColorTUITheme leaves every color to the terminal.
	NoColorTUITheme = TUITheme{
		Text:    lipgloss.NoColor{},
		Border:  lipgloss.NoColor{},
		Accent:  lipgloss.NoColor{},
		Success: lipgloss.NoColor{},
		Warning: lipgloss.NoColor{},
		Error:   lipgloss.NoColor{},
		Dim:     lipgloss.NoColor{},
		Info:    lipgloss.NoColor{},
	}
)

// GetCurrentTUITheme returns the dashboard palette of the active theme.
func GetCurrentTUITheme() TUITheme {
	switch GetCurrentTheme().Name {
	case LightTheme.Name:
		return LightTUITheme
	case NoColorTheme.Name:
		return NoColorTUITheme
	}
	return DarkTUITheme
}
