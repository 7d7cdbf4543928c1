// Package config parses the raysplit command line and environment into the
// application configuration and the immutable per-render configuration.
package config

import (
	"flag"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/imageio"
	"github.com/agbru/raysplit/internal/partition"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "RAYSPLIT_"

// ModeAll runs every partitioning mode and compares the images.
const ModeAll = "all"

// Transport names.
const (
	TransportLocal = "local"
	TransportTCP   = "tcp"
	TransportNATS  = "nats"
)

// Defaults.
const (
	DefaultWidth       = 640
	DefaultHeight      = 480
	DefaultScene       = "spheres"
	DefaultMode        = "strips-vertical"
	DefaultCycleSize   = 10
	DefaultBlockWidth  = 32
	DefaultBlockHeight = 32
	DefaultProcs       = 4
	DefaultAddr        = "127.0.0.1:7070"
	DefaultNATSURL     = "nats://127.0.0.1:4222"
	DefaultFormat      = "png"
)

// AppConfig holds everything parsed from the command line.
type AppConfig struct {
	Width, Height int
	Scene         string
	// Mode is a partitioning mode name or code, or ModeAll.
	Mode        string
	CycleSize   int
	BlockWidth  int
	BlockHeight int
	Procs       int
	Rank        int
	Threads     int

	Transport string
	Addr      string
	NATSURL   string
	JobID     string
	Compress  bool

	OutputDir   string
	Format      string
	NoSave      bool
	MetricsAddr string

	Quiet   bool
	Verbose bool
	NoColor bool
	// TUI shows the interactive dashboard instead of the spinner.
	TUI     bool
	Version bool
}

// Compare reports whether every mode is to be run and compared.
func (c AppConfig) Compare() bool { return strings.EqualFold(c.Mode, ModeAll) }

// Distributed reports whether ranks run in separate processes.
func (c AppConfig) Distributed() bool { return c.Transport != TransportLocal }

// Render builds the render configuration for mode.
func (c AppConfig) Render(mode partition.Mode) RenderConfig {
	return RenderConfig{
		Width:       c.Width,
		Height:      c.Height,
		Scene:       c.Scene,
		Mode:        mode,
		CycleSize:   c.CycleSize,
		BlockWidth:  c.BlockWidth,
		BlockHeight: c.BlockHeight,
		Procs:       c.Procs,
		Rank:        c.Rank,
		Threads:     c.Threads,
	}
}

// Modes returns the modes selected by -mode.
func (c AppConfig) Modes() ([]partition.Mode, error) {
	if c.Compare() {
		return partition.AllModes(), nil
	}
	m, err := partition.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	return []partition.Mode{m}, nil
}

// Validate checks the application-level settings. Render parameters are
// checked by RenderConfig.Validate. Inconsistent flags are reported as a
// ValidationError naming the flag.
func (c AppConfig) Validate() error {
	switch c.Transport {
	case TransportLocal, TransportTCP, TransportNATS:
	default:
		return apperrors.ValidationError{Field: "transport", Message: fmt.Sprintf("unknown transport %q (use local, tcp or nats)", c.Transport)}
	}
	if c.Compare() && c.Distributed() {
		return apperrors.ValidationError{Field: "mode", Message: "all is only available with the local transport"}
	}
	if !c.Distributed() && c.Rank != 0 {
		return apperrors.ValidationError{Field: "rank", Message: "only meaningful with a distributed transport"}
	}
	// Every rank derives its subjects from the job id, so it cannot be
	// generated independently by each process.
	if c.Transport == TransportNATS && c.JobID == "" {
		return apperrors.ValidationError{Field: "job-id", Message: "required with the nats transport"}
	}
	// Remote ranks run in other processes the dashboard cannot follow.
	if c.TUI && c.Distributed() {
		return apperrors.ValidationError{Field: "tui", Message: "only available with the local transport"}
	}
	if c.TUI && c.Quiet {
		return apperrors.ValidationError{Field: "tui", Message: "cannot be combined with -quiet"}
	}
	if err := imageio.ValidateFormat(c.Format); err != nil {
		return err
	}
	if _, err := c.Modes(); err != nil {
		return err
	}
	return nil
}

// RenderConfig is the immutable description of one render, passed
// explicitly to every component. Rank 0 is the coordinator.
type RenderConfig struct {
	Width, Height int
	Scene         string
	Mode          partition.Mode
	CycleSize     int
	BlockWidth    int
	BlockHeight   int
	Procs         int
	Rank          int
	// Threads is the number of goroutines shading one region; 0 or 1 shades
	// sequentially.
	Threads int
}

// Grid returns the image size.
func (c RenderConfig) Grid() partition.Grid {
	return partition.Grid{Width: c.Width, Height: c.Height}
}

// WithRank returns a copy of c for another rank.
func (c RenderConfig) WithRank(rank int) RenderConfig {
	c.Rank = rank
	return c
}

// IsCoordinator reports whether c describes rank 0.
func (c RenderConfig) IsCoordinator() bool { return c.Rank == 0 }

// Validate rejects inconsistent parameters.
//
// Returns:
//   - error: A ConfigError naming the first offending parameter, or nil.
func (c RenderConfig) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return apperrors.NewConfigError("image size %dx%d must be positive", c.Width, c.Height)
	case c.Procs < 1:
		return apperrors.NewConfigError("process count %d must be at least 1", c.Procs)
	case c.Rank < 0 || c.Rank >= c.Procs:
		return apperrors.NewConfigError("rank %d out of range [0, %d)", c.Rank, c.Procs)
	case c.Mode.UsesCycles() && c.CycleSize <= 0:
		return apperrors.NewConfigError("cycle size %d must be positive for %s", c.CycleSize, c.Mode)
	case c.Mode == partition.Dynamic && (c.BlockWidth <= 0 || c.BlockHeight <= 0):
		return apperrors.NewConfigError("dynamic block size %dx%d must be positive", c.BlockWidth, c.BlockHeight)
	case c.Threads < 0:
		return apperrors.NewConfigError("thread count %d must not be negative", c.Threads)
	}
	return nil
}

// ParseConfig parses command-line arguments, then applies environment
// overrides for flags that were not set.
//
// Parameters:
//   - programName: The name shown in usage output.
//   - args: The arguments without the program name.
//   - errorWriter: Where usage and parse errors are written.
//   - scenes: The available scene ids, listed in the usage text.
//
// Returns:
//   - AppConfig: The parsed configuration.
//   - error: flag.ErrHelp for -h, a parse error, or a ConfigError.
func ParseConfig(programName string, args []string, errorWriter io.Writer, scenes []string) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)
	fs.Usage = func() {
		fmt.Fprintf(errorWriter, "Usage: %s [options]\n\n", programName)
		fmt.Fprintf(errorWriter, "Renders a scene by splitting the image across cooperating processes.\n\n")
		fmt.Fprintf(errorWriter, "Modes: %s, %s\n", strings.Join(modeNames(), ", "), ModeAll)
		fmt.Fprintf(errorWriter, "Scenes: %s\n\n", strings.Join(scenes, ", "))
		fs.PrintDefaults()
	}

	var cfg AppConfig
	fs.IntVar(&cfg.Width, "width", DefaultWidth, "Image width in pixels.")
	fs.IntVar(&cfg.Height, "height", DefaultHeight, "Image height in pixels.")
	fs.StringVar(&cfg.Scene, "scene", DefaultScene, "Scene to render.")
	fs.StringVar(&cfg.Mode, "mode", DefaultMode, "Partitioning mode name or code (0-6), or 'all' to compare every mode.")
	fs.IntVar(&cfg.CycleSize, "cycle-size", DefaultCycleSize, "Group width or height for the cycles modes.")
	fs.IntVar(&cfg.BlockWidth, "block-width", DefaultBlockWidth, "Dynamic block width.")
	fs.IntVar(&cfg.BlockHeight, "block-height", DefaultBlockHeight, "Dynamic block height.")
	fs.IntVar(&cfg.Procs, "procs", DefaultProcs, "Number of processes.")
	fs.IntVar(&cfg.Procs, "np", DefaultProcs, "Number of processes (shorthand).")
	fs.IntVar(&cfg.Rank, "rank", 0, "Rank of this process (distributed transports only).")
	fs.IntVar(&cfg.Threads, "threads", 1, "Goroutines shading each region (0 = choose from CPU count).")
	fs.StringVar(&cfg.Transport, "transport", TransportLocal, "Transport: local, tcp or nats.")
	fs.StringVar(&cfg.Addr, "addr", DefaultAddr, "Coordinator address for the tcp transport.")
	fs.StringVar(&cfg.NATSURL, "nats-url", DefaultNATSURL, "Server URL for the nats transport.")
	fs.StringVar(&cfg.JobID, "job-id", "", "Job identifier shared by all ranks (generated when empty).")
	fs.BoolVar(&cfg.Compress, "compress", false, "Compress messages with zstd.")
	fs.StringVar(&cfg.OutputDir, "output-dir", imageio.DefaultDir, "Directory for rendered images.")
	fs.StringVar(&cfg.Format, "format", DefaultFormat, "Image format: png, bmp or tiff.")
	fs.BoolVar(&cfg.NoSave, "no-save", false, "Do not write the image.")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address.")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Only print the timing figures.")
	fs.BoolVar(&cfg.Quiet, "q", false, "Only print the timing figures (shorthand).")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Print per-rank timings and debug logs.")
	fs.BoolVar(&cfg.Verbose, "v", false, "Print per-rank timings and debug logs (shorthand).")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output.")
	fs.BoolVar(&cfg.TUI, "tui", false, "Show the interactive dashboard (local transport only).")
	fs.BoolVar(&cfg.Version, "version", false, "Print the version and exit.")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	if fs.NArg() > 0 {
		return AppConfig{}, apperrors.NewConfigError("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	applyEnvOverrides(&cfg, fs)
	cfg = ApplyAdaptiveDefaults(cfg)
	if cfg.Version {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func modeNames() []string {
	var names []string
	for _, m := range partition.AllModes() {
		names = append(names, m.String())
	}
	return names
}
