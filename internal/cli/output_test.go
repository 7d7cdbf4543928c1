package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agbru/raysplit/internal/config"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/metrics"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/stats"
	"github.com/agbru/raysplit/internal/sysmon"
	"github.com/agbru/raysplit/internal/ui"
)

func init() {
	ui.InitTheme(true)
}

func sampleReport() stats.Report {
	return stats.Report{
		PerRank:       []time.Duration{300 * time.Millisecond, 700 * time.Millisecond},
		Compute:       time.Second,
		Wall:          1500 * time.Millisecond,
		Communication: 500 * time.Millisecond,
		Ratio:         0.5,
		Results:       1,
	}
}

func TestPrintStartupSummary(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	cfg := config.AppConfig{
		Width: 640, Height: 480, Scene: "spheres", Mode: "blocks",
		Procs: 4, BlockWidth: 32, BlockHeight: 16, CycleSize: 10,
	}
	PrintStartupSummary(cfg, &buf)

	want := "Scene: spheres\n" +
		"Width x Height: 640 x 480\n" +
		"Partitioning scheme: blocks\n" +
		"Number of Processes: 4\n" +
		"Dynamic block size: 32 x 16\n" +
		"Cycle Size: 10\n"
	if got := buf.String(); got != want {
		t.Errorf("summary =\n%s\nwant\n%s", got, want)
	}
}

func TestPrintEnvironment(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	PrintEnvironment(config.AppConfig{Transport: config.TransportNATS, NATSURL: "nats://h:4222", JobID: "j1", Compress: true}, &buf)
	for _, want := range []string{"Transport: nats (nats://h:4222, job j1), zstd", "logical processors"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output %q lacks %q", buf.String(), want)
		}
	}
}

func TestDisplayTimingReportOrder(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	DisplayTimingReport(sampleReport(), &buf)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"Total Computation Time: 1.000000 seconds",
		"Total Communication Time: 0.500000 seconds",
		"C-to-C Ratio: 0.500000",
		"Execution Time: 1.500000 seconds",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestDisplayResultVerbose(t *testing.T) {
	t.Parallel()
	res := orchestration.RenderResult{Mode: partition.Dynamic, Stats: sampleReport()}
	res.Stats.Blocks = 12

	var quiet, verbose bytes.Buffer
	DisplayResult(res, false, &quiet)
	DisplayResult(res, true, &verbose)

	if strings.Contains(quiet.String(), "rank 1") {
		t.Error("non-verbose output shows the per-rank breakdown")
	}
	for _, want := range []string{"Per-rank computation", "rank 0", "rank 1", "70.0%", "blocks dispatched: 12"} {
		if !strings.Contains(verbose.String(), want) {
			t.Errorf("verbose output lacks %q:\n%s", want, verbose.String())
		}
	}
}

func TestDisplaySavePath(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	DisplaySavePath("renders/spheres_101426-093000.png", &buf)
	if !strings.Contains(buf.String(), "Image will be saved to: renders/spheres_101426-093000.png") {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatQuietResult(t *testing.T) {
	t.Parallel()
	res := orchestration.RenderResult{Mode: partition.Blocks, Stats: sampleReport()}
	if got, want := FormatQuietResult(res, "out.png"), "blocks 1.500000 0.500000 out.png"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := FormatQuietResult(res, ""), "blocks 1.500000 0.500000"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDisplayMemoryAndResources(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	DisplayMemoryStats(2048, 3, metrics.MemorySnapshot{HeapAlloc: 1 << 20, HeapObjects: 12345}, &buf)
	before := sysmon.Stats{UserCPU: time.Second}
	after := sysmon.Stats{UserCPU: 3 * time.Second, SystemCPU: time.Second, CPUPercent: 12.5, MemPercent: 40}
	DisplayResourceUsage(before, after, 2*time.Second, &buf)

	for _, want := range []string{"1.0 MiB", "2.0 KiB", "12,345", "GC cycles:       3", "3s", "1.5 cores busy", "12.5%", "40.0%"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestPresentComparisonTable(t *testing.T) {
	t.Parallel()
	results := []orchestration.RenderResult{
		{Mode: partition.StripsVertical, Stats: sampleReport()},
		{Mode: partition.Blocks, Err: errors.New("boom")},
	}
	var buf bytes.Buffer
	CLIResultPresenter{}.PresentComparisonTable(results, &buf)
	out := buf.String()
	for _, want := range []string{"Comparison Summary", "Mode", "C-to-C", "strips-vertical", "1.5s", "0.5000", "Success", "Failure (boom)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table lacks %q:\n%s", want, out)
		}
	}

	// Every row starts the Status column at the same offset.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	col := strings.Index(lines[1], "Status")
	for _, line := range lines[2:] {
		idx := strings.Index(line, "✅")
		if idx < 0 {
			idx = strings.Index(line, "❌")
		}
		if len([]rune(line[:idx])) != len([]rune(lines[1][:col])) {
			t.Errorf("misaligned row %q", line)
		}
	}
}

func TestHandleError(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := apperrors.RankError{Rank: 3, Kind: apperrors.KindShading, Cause: errors.New("nan")}
	if code := (CLIResultPresenter{}).HandleError(err, &buf); code != apperrors.ExitErrorShading {
		t.Errorf("exit code %d, want %d", code, apperrors.ExitErrorShading)
	}
	if !strings.Contains(buf.String(), "rank 3 failed (shading failure)") {
		t.Errorf("got %q", buf.String())
	}
}
