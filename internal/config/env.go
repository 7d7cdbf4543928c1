// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the RAYSPLIT_ prefix) to the CLI flag
// name(s) it corresponds to and a function that applies the env value.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

func intOverride(dst func(*AppConfig) *int) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst(c) = parsed
		}
	}
}

func boolOverride(dst func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		p := dst(c)
		*p = parseBoolEnv(v, *p)
	}
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	// Numeric overrides
	{"WIDTH", []string{"width"}, intOverride(func(c *AppConfig) *int { return &c.Width })},
	{"HEIGHT", []string{"height"}, intOverride(func(c *AppConfig) *int { return &c.Height })},
	{"CYCLE_SIZE", []string{"cycle-size"}, intOverride(func(c *AppConfig) *int { return &c.CycleSize })},
	{"BLOCK_WIDTH", []string{"block-width"}, intOverride(func(c *AppConfig) *int { return &c.BlockWidth })},
	{"BLOCK_HEIGHT", []string{"block-height"}, intOverride(func(c *AppConfig) *int { return &c.BlockHeight })},
	{"PROCS", []string{"procs", "np"}, intOverride(func(c *AppConfig) *int { return &c.Procs })},
	{"RANK", []string{"rank"}, intOverride(func(c *AppConfig) *int { return &c.Rank })},
	{"THREADS", []string{"threads"}, intOverride(func(c *AppConfig) *int { return &c.Threads })},

	// String overrides
	{"SCENE", []string{"scene"}, func(c *AppConfig, v string) { c.Scene = v }},
	{"MODE", []string{"mode"}, func(c *AppConfig, v string) { c.Mode = v }},
	{"TRANSPORT", []string{"transport"}, func(c *AppConfig, v string) { c.Transport = v }},
	{"ADDR", []string{"addr"}, func(c *AppConfig, v string) { c.Addr = v }},
	{"NATS_URL", []string{"nats-url"}, func(c *AppConfig, v string) { c.NATSURL = v }},
	{"JOB_ID", []string{"job-id"}, func(c *AppConfig, v string) { c.JobID = v }},
	{"OUTPUT_DIR", []string{"output-dir"}, func(c *AppConfig, v string) { c.OutputDir = v }},
	{"FORMAT", []string{"format"}, func(c *AppConfig, v string) { c.Format = v }},
	{"METRICS_ADDR", []string{"metrics-addr"}, func(c *AppConfig, v string) { c.MetricsAddr = v }},

	// Boolean overrides
	{"COMPRESS", []string{"compress"}, boolOverride(func(c *AppConfig) *bool { return &c.Compress })},
	{"NO_SAVE", []string{"no-save"}, boolOverride(func(c *AppConfig) *bool { return &c.NoSave })},
	{"QUIET", []string{"quiet", "q"}, boolOverride(func(c *AppConfig) *bool { return &c.Quiet })},
	{"VERBOSE", []string{"v", "verbose"}, boolOverride(func(c *AppConfig) *bool { return &c.Verbose })},
	{"NO_COLOR", []string{"no-color"}, boolOverride(func(c *AppConfig) *bool { return &c.NoColor })},
	{"TUI", []string{"tui"}, boolOverride(func(c *AppConfig) *bool { return &c.TUI })},
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}
