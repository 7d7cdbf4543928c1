package ui

// ColorReset clears all attributes.
func ColorReset() string { return GetCurrentTheme().Reset }

// ColorBold starts bold text.
func ColorBold() string { return GetCurrentTheme().Bold }

// ColorUnderline starts underlined text.
func ColorUnderline() string { return GetCurrentTheme().Underline }

// ColorBlue is the primary accent.
func ColorBlue() string { return GetCurrentTheme().Primary }

// ColorGreen marks success.
func ColorGreen() string { return GetCurrentTheme().Success }

// ColorYellow marks timings.
func ColorYellow() string { return GetCurrentTheme().Warning }

// ColorRed marks failures.
func ColorRed() string { return GetCurrentTheme().Error }

// ColorMagenta marks figures.
func ColorMagenta() string { return GetCurrentTheme().Info }

// ColorCyan marks secondary labels.
func ColorCyan() string { return GetCurrentTheme().Secondary }
