package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/agbru/raysplit/internal/config"
	"github.com/agbru/raysplit/internal/ui"
)

// PrintStartupSummary displays the render parameters. Only the coordinator
// prints it.
//
// Parameters:
//   - cfg: The application configuration.
//   - out: The writer for standard output.
func PrintStartupSummary(cfg config.AppConfig, out io.Writer) {
	fmt.Fprintf(out, "Scene: %s%s%s\n", ui.ColorBlue(), cfg.Scene, ui.ColorReset())
	fmt.Fprintf(out, "Width x Height: %d x %d\n", cfg.Width, cfg.Height)
	fmt.Fprintf(out, "Partitioning scheme: %s%s%s\n", ui.ColorGreen(), cfg.Mode, ui.ColorReset())
	fmt.Fprintf(out, "Number of Processes: %d\n", cfg.Procs)
	fmt.Fprintf(out, "Dynamic block size: %d x %d\n", cfg.BlockWidth, cfg.BlockHeight)
	fmt.Fprintf(out, "Cycle Size: %d\n", cfg.CycleSize)
}

// PrintEnvironment displays the transport and host details in verbose mode.
func PrintEnvironment(cfg config.AppConfig, out io.Writer) {
	fmt.Fprintf(out, "Transport: %s%s%s", ui.ColorCyan(), cfg.Transport, ui.ColorReset())
	switch cfg.Transport {
	case config.TransportTCP:
		fmt.Fprintf(out, " (%s)", cfg.Addr)
	case config.TransportNATS:
		fmt.Fprintf(out, " (%s, job %s)", cfg.NATSURL, cfg.JobID)
	}
	if cfg.Compress {
		fmt.Fprint(out, ", zstd")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Environment: %s%d%s logical processors, Go %s%s%s, %d shading threads per rank.\n",
		ui.ColorCyan(), runtime.NumCPU(), ui.ColorReset(),
		ui.ColorCyan(), runtime.Version(), ui.ColorReset(), max(cfg.Threads, 1))
}
