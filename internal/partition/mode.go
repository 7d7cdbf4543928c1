package partition

import (
	"strconv"
	"strings"

	apperrors "github.com/agbru/raysplit/internal/errors"
)

// Mode selects a partitioning strategy.
type Mode int

// The partitioning strategies. The numeric values match the codes accepted
// on the command line.
const (
	None Mode = iota
	StripsVertical
	StripsHorizontal
	CyclesVertical
	CyclesHorizontal
	Blocks
	Dynamic
)

var modeNames = map[Mode]string{
	None:             "none",
	StripsVertical:   "strips-vertical",
	StripsHorizontal: "strips-horizontal",
	CyclesVertical:   "cycles-vertical",
	CyclesHorizontal: "cycles-horizontal",
	Blocks:           "blocks",
	Dynamic:          "dynamic",
}

// String returns the command-line name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// IsStatic reports whether the mode assigns work before rendering starts.
func (m Mode) IsStatic() bool { return m != Dynamic }

// UsesCycles reports whether the mode needs a cycle size.
func (m Mode) UsesCycles() bool { return m == CyclesVertical || m == CyclesHorizontal }

// AllModes returns every supported mode in declaration order.
func AllModes() []Mode {
	return []Mode{None, StripsVertical, StripsHorizontal, CyclesVertical, CyclesHorizontal, Blocks, Dynamic}
}

// ParseMode resolves a mode from its name or numeric code.
//
// Parameters:
//   - s: The mode name (e.g. "strips-vertical") or code (e.g. "1").
//
// Returns:
//   - Mode: The parsed mode.
//   - error: An UnsupportedModeError if s names no implemented mode.
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")
	for m, name := range modeNames {
		if name == key {
			return m, nil
		}
	}
	if code, err := strconv.Atoi(key); err == nil {
		if _, ok := modeNames[Mode(code)]; ok {
			return Mode(code), nil
		}
	}
	return 0, apperrors.UnsupportedModeError{Mode: s}
}
