// # Naming Conventions
//
//   - Display* and Print* functions write formatted output to an [io.Writer].
//   - Format* functions return a string without performing I/O.

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/agbru/raysplit/internal/format"
	"github.com/agbru/raysplit/internal/metrics"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/stats"
	"github.com/agbru/raysplit/internal/sysmon"
	"github.com/agbru/raysplit/internal/ui"
)

// DisplayTimingReport prints the timing figures of one render, in the order
// the report has always used.
func DisplayTimingReport(report stats.Report, out io.Writer) {
	fmt.Fprintf(out, "Total Computation Time: %s%s%s\n", ui.ColorYellow(), format.FormatSeconds(report.Compute), ui.ColorReset())
	fmt.Fprintf(out, "Total Communication Time: %s%s%s\n", ui.ColorYellow(), format.FormatSeconds(report.Communication), ui.ColorReset())
	fmt.Fprintf(out, "C-to-C Ratio: %s%.6f%s\n", ui.ColorMagenta(), report.Ratio, ui.ColorReset())
	fmt.Fprintf(out, "Execution Time: %s%s%s\n", ui.ColorYellow(), format.FormatSeconds(report.Wall), ui.ColorReset())
}

// DisplayRankBreakdown prints the shading time of every rank.
func DisplayRankBreakdown(report stats.Report, out io.Writer) {
	fmt.Fprintf(out, "\n%s\n", ui.Header("Per-rank computation"))
	for rank, d := range report.PerRank {
		share := 0.0
		if report.Compute > 0 {
			share = d.Seconds() / report.Compute.Seconds() * 100
		}
		fmt.Fprintf(out, "  rank %-4d %s%12s%s  %5.1f%%\n", rank, ui.ColorYellow(), format.FormatExecutionDuration(d), ui.ColorReset(), share)
	}
	fmt.Fprintf(out, "  results assembled: %d", report.Results)
	if report.Blocks > 0 {
		fmt.Fprintf(out, ", blocks dispatched: %d", report.Blocks)
	}
	fmt.Fprintln(out)
}

// DisplayResult prints the timing report, plus the per-rank breakdown when
// verbose.
func DisplayResult(result orchestration.RenderResult, verbose bool, out io.Writer) {
	DisplayTimingReport(result.Stats, out)
	if verbose {
		DisplayRankBreakdown(result.Stats, out)
	}
}

// DisplaySavePath announces the output file.
func DisplaySavePath(path string, out io.Writer) {
	fmt.Fprintf(out, "\nImage will be saved to: %s%s%s\n", ui.ColorCyan(), path, ui.ColorReset())
}

// DisplayMemoryStats shows allocation figures of the render.
func DisplayMemoryStats(allocated uint64, gcs uint32, snap metrics.MemorySnapshot, out io.Writer) {
	fmt.Fprintf(out, "\n%s\n", ui.Header("Memory"))
	fmt.Fprintf(out, "  Heap in use:     %s\n", format.FormatBytes(snap.HeapAlloc))
	fmt.Fprintf(out, "  Allocated:       %s\n", format.FormatBytes(allocated))
	fmt.Fprintf(out, "  Heap objects:    %s\n", format.FormatNumberString(fmt.Sprint(snap.HeapObjects)))
	fmt.Fprintf(out, "  GC cycles:       %d\n", gcs)
}

// DisplayResourceUsage shows the process CPU time and host load between two
// samples.
func DisplayResourceUsage(before, after sysmon.Stats, wall time.Duration, out io.Writer) {
	fmt.Fprintf(out, "\n%s\n", ui.Header("Resources"))
	cpu := after.CPUTime(before)
	fmt.Fprintf(out, "  Process CPU time: %s", format.FormatExecutionDuration(cpu))
	if wall > 0 && cpu > 0 {
		fmt.Fprintf(out, " (%.1f cores busy)", cpu.Seconds()/wall.Seconds())
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Host CPU:         %.1f%%\n", after.CPUPercent)
	fmt.Fprintf(out, "  Host memory:      %.1f%%\n", after.MemPercent)
}

// FormatQuietResult returns the one-line summary printed in quiet mode:
// mode, wall seconds, ratio and output path.
func FormatQuietResult(result orchestration.RenderResult, path string) string {
	line := fmt.Sprintf("%s %.6f %.6f", result.Mode, result.Stats.Wall.Seconds(), result.Stats.Ratio)
	if path != "" {
		line += " " + path
	}
	return line
}

// DisplayQuietResult prints FormatQuietResult.
func DisplayQuietResult(out io.Writer, result orchestration.RenderResult, path string) {
	fmt.Fprintln(out, FormatQuietResult(result, path))
}
