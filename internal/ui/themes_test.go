package ui

import (
	"strings"
	"testing"
)

// The theme is process-wide state, so these tests do not run in parallel.

func TestSetTheme(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())
	tests := []struct {
		name string
		want Theme
	}{
		{"dark", DarkTheme},
		{"light", LightTheme},
		{"none", NoColorTheme},
		{"neon", DarkTheme},
	}
	for _, tt := range tests {
		SetTheme(tt.name)
		if got := GetCurrentTheme(); got.Name != tt.want.Name {
			t.Errorf("SetTheme(%q) activated %q, want %q", tt.name, got.Name, tt.want.Name)
		}
	}
}

func TestInitThemeNoColor(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())

	InitTheme(true)
	if ColorEnabled() {
		t.Error("InitTheme(true) left colors on")
	}
	if ColorRed() != "" || ColorReset() != "" {
		t.Error("no-color theme emitted escape sequences")
	}

	t.Setenv("NO_COLOR", "")
	InitTheme(false)
	if ColorEnabled() {
		t.Error("an empty NO_COLOR must still disable colors")
	}
}

func TestColorsFollowTheme(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())
	SetCurrentTheme(LightTheme)
	if ColorGreen() != LightTheme.Success || ColorBlue() != LightTheme.Primary {
		t.Error("color helpers do not read the active theme")
	}
}

func TestHeader(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())

	SetCurrentTheme(NoColorTheme)
	if got := Header("Timing"); got != "--- Timing ---" {
		t.Errorf("Header = %q", got)
	}
	SetCurrentTheme(DarkTheme)
	if got := Header("Timing"); !strings.Contains(got, "--- Timing ---") {
		t.Errorf("styled header lost its text: %q", got)
	}
}

func TestGetCurrentTUITheme(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())
	tests := []struct {
		theme Theme
		want  TUITheme
	}{
		{DarkTheme, DarkTUITheme},
		{LightTheme, LightTUITheme},
		{NoColorTheme, NoColorTUITheme},
	}
	for _, tt := range tests {
		SetCurrentTheme(tt.theme)
		if got := GetCurrentTUITheme(); got != tt.want {
			t.Errorf("theme %q gave dashboard palette %+v", tt.theme.Name, got)
		}
	}
}
