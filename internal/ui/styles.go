package ui

import "github.com/charmbracelet/lipgloss"

// headerColors holds the lipgloss colors of the section headers per theme.
var headerColors = map[string]lipgloss.TerminalColor{
	DarkTheme.Name:  lipgloss.Color("39"),
	LightTheme.Name: lipgloss.Color("27"),
}

// Header renders a section title such as "--- Timing ---". It is bold and
// colored unless colors are disabled.
func Header(title string) string {
	text := "--- " + title + " ---"
	if !ColorEnabled() {
		return text
	}
	color, ok := headerColors[GetCurrentTheme().Name]
	if !ok {
		color = lipgloss.NoColor{}
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(text)
}
