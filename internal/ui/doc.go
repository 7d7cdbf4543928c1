// Package ui holds the terminal color themes shared by the CLI output.
//
// Colors are plain ANSI escape sequences looked up through the active
// theme, so callers can interleave them with fmt verbs. The NoColor theme
// turns every lookup into an empty string, which is what NO_COLOR and
// -no-color select.
package ui
