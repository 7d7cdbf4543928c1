package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agbru/raysplit/internal/cli"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/imageio"
	"github.com/agbru/raysplit/internal/metrics"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/sysmon"
	"github.com/agbru/raysplit/internal/tui"
	"github.com/agbru/raysplit/internal/ui"
)

// progressOutput chooses the progress reporter based on quiet mode.
func (a *Application) progressOutput(out io.Writer) (orchestration.ProgressReporter, io.Writer) {
	if a.Config.Quiet {
		return orchestration.NullProgressReporter{}, io.Discard
	}
	return cli.CLIProgressReporter{}, out
}

// imageWriter returns a writer whose name is fixed at call time, so the path
// announced before saving is the one written.
func (a *Application) imageWriter() imageio.FileWriter {
	now := time.Now()
	return imageio.FileWriter{
		Dir:    a.Config.OutputDir,
		Format: a.Config.Format,
		Now:    func() time.Time { return now },
	}
}

// runRender renders one mode, either in-process or as the coordinator of a
// distributed job.
func (a *Application) runRender(ctx context.Context, opts orchestration.Options, out io.Writer) int {
	modes, err := a.Config.Modes()
	if err != nil {
		return apperrors.HandleRenderError(err, a.Config.Rank, a.ErrWriter)
	}
	cfg := a.Config.Render(modes[0])

	if !a.Config.Quiet {
		cli.PrintStartupSummary(a.Config, out)
		if a.Config.Verbose {
			cli.PrintEnvironment(a.Config, out)
		}
		fmt.Fprintln(out)
	}

	run := orchestration.LocalRun(a.Shaders)
	if a.Config.Distributed() {
		run = a.coordinatorRun()
	}

	collector := metrics.NewMemoryCollector()
	memBefore := collector.Snapshot()
	sysBefore := sysmon.Sample()

	reporter, progressOut := a.progressOutput(out)
	results := orchestration.ExecuteRenders(ctx, cfg, modes, run, opts, reporter, progressOut)
	res := results[0]
	if res.Err != nil {
		return apperrors.HandleRenderError(res.Err, a.Config.Rank, a.ErrWriter)
	}

	var writer imageio.FileWriter
	path := ""
	if !a.Config.NoSave {
		writer = a.imageWriter()
		path = writer.Path(cfg.Scene)
	}

	if a.Config.Quiet {
		cli.DisplayQuietResult(out, res, path)
	} else {
		cli.DisplayResult(res, a.Config.Verbose, out)
		if a.Config.Verbose {
			allocated, gcs := collector.Since(memBefore)
			cli.DisplayMemoryStats(allocated, gcs, collector.Snapshot(), out)
			cli.DisplayResourceUsage(sysBefore, sysmon.Sample(), res.Stats.Wall, out)
		}
		if path != "" {
			cli.DisplaySavePath(path, out)
		}
	}

	if path != "" {
		return a.saveImage(writer, res, cfg.Scene, out)
	}
	return apperrors.ExitSuccess
}

// runComparison renders every mode in-process and checks that the images
// are identical.
func (a *Application) runComparison(ctx context.Context, opts orchestration.Options, out io.Writer) int {
	modes := partition.AllModes()
	cfg := a.Config.Render(partition.None)

	if !a.Config.Quiet {
		cli.PrintStartupSummary(a.Config, out)
		fmt.Fprintf(out, "Comparing %d partitioning modes.\n\n", len(modes))
	}

	reporter, progressOut := a.progressOutput(out)
	results := orchestration.ExecuteRenders(ctx, cfg, modes, orchestration.LocalRun(a.Shaders), opts, reporter, progressOut)

	presenter := cli.CLIResultPresenter{}
	exitCode := orchestration.AnalyzeComparisonResults(results, presenter, presenter, a.Config.Verbose, out)
	if exitCode != apperrors.ExitSuccess || a.Config.NoSave {
		return exitCode
	}

	ref := orchestration.ReferenceIndex(results)
	writer := a.imageWriter()
	cli.DisplaySavePath(writer.Path(cfg.Scene), out)
	return a.saveImage(writer, results[ref], cfg.Scene, out)
}

// runTUI runs the selected modes in-process under the dashboard, then saves
// the reference image once the user quits.
func (a *Application) runTUI(ctx context.Context, opts orchestration.Options, out io.Writer) int {
	modes, err := a.Config.Modes()
	if err != nil {
		return apperrors.HandleRenderError(err, a.Config.Rank, a.ErrWriter)
	}
	job := tui.Job{
		Config:  a.Config,
		Modes:   modes,
		Run:     orchestration.LocalRun(a.Shaders),
		Options: opts,
	}
	exitCode, results := tui.Run(ctx, job, Version)
	if exitCode != apperrors.ExitSuccess || a.Config.NoSave || len(results) == 0 {
		return exitCode
	}

	ref := orchestration.ReferenceIndex(results)
	if ref < 0 {
		return exitCode
	}
	writer := a.imageWriter()
	cli.DisplaySavePath(writer.Path(a.Config.Scene), out)
	return a.saveImage(writer, results[ref], a.Config.Scene, out)
}

func (a *Application) saveImage(writer imageio.FileWriter, res orchestration.RenderResult, scene string, out io.Writer) int {
	path, err := writer.Write(res.Image, scene)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error saving image: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	if !a.Config.Quiet {
		fmt.Fprintf(out, "%s✓ Image saved to: %s%s%s\n", ui.ColorGreen(), ui.ColorCyan(), path, ui.ColorReset())
	}
	return apperrors.ExitSuccess
}
