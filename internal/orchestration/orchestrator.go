package orchestration

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/raysplit/internal/config"
	"github.com/agbru/raysplit/internal/coordinator"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/metrics"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/progress"
	"github.com/agbru/raysplit/internal/shading"
	"github.com/agbru/raysplit/internal/transport"
	"github.com/agbru/raysplit/internal/worker"
)

// ProgressBufferMultiplier sizes the progress channel per render so that a
// slow display rarely drops updates.
const ProgressBufferMultiplier = 16

// ShaderFactory builds the shader of one rank. Every rank gets its own.
type ShaderFactory func(cfg config.RenderConfig) (shading.Shader, error)

// SceneShader builds the shader of the configured scene.
func SceneShader(cfg config.RenderConfig) (shading.Shader, error) {
	return shading.New(cfg.Scene, cfg.Width, cfg.Height)
}

// Options carries the collaborators shared by every rank of a job.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Render
	// Codec encodes envelopes on the in-process network.
	Codec transport.Codec
	// Progress receives the coordinator's assembled fraction.
	Progress progress.ProgressCallback
}

// WorkerOptions returns the worker options carrying o's collaborators.
func (o Options) WorkerOptions() []worker.Option {
	opts := []worker.Option{worker.WithMetrics(o.Metrics)}
	if o.Logger != nil {
		opts = append(opts, worker.WithLogger(o.Logger))
	}
	return opts
}

// CoordinatorOptions returns the coordinator options carrying o's
// collaborators.
func (o Options) CoordinatorOptions() []coordinator.Option {
	opts := []coordinator.Option{coordinator.WithMetrics(o.Metrics)}
	if o.Logger != nil {
		opts = append(opts, coordinator.WithLogger(o.Logger))
	}
	if o.Progress != nil {
		opts = append(opts, coordinator.WithProgress(o.Progress))
	}
	return opts
}

// RunLocal renders cfg with every rank in this process: rank 0 as the
// coordinator and ranks 1..P-1 as workers, one goroutine each, connected by
// an in-process network that encodes every envelope. The first fatal error
// cancels every rank.
//
// Parameters:
//   - ctx: Cancels the job.
//   - cfg: The render; cfg.Rank is ignored.
//   - shaders: Builds the shader of each rank.
//   - opts: Shared collaborators.
//
// Returns:
//   - coordinator.Outcome: The assembled image and timing report.
//   - error: The error that aborted the job.
func RunLocal(ctx context.Context, cfg config.RenderConfig, shaders ShaderFactory, opts Options) (coordinator.Outcome, error) {
	cfg = cfg.WithRank(0)
	if err := cfg.Validate(); err != nil {
		return coordinator.Outcome{}, err
	}
	perRank := make([]shading.Shader, cfg.Procs)
	for r := range perRank {
		s, err := shaders(cfg.WithRank(r))
		if err != nil {
			return coordinator.Outcome{}, err
		}
		perRank[r] = s
	}

	net := transport.NewNetwork(cfg.Procs, opts.Codec)
	defer net.Shutdown()

	g, gctx := errgroup.WithContext(ctx)
	for r := 1; r < cfg.Procs; r++ {
		rank := r
		g.Go(func() error {
			ep := net.Endpoint(rank)
			defer ep.Close()
			return worker.New(cfg.WithRank(rank), ep, perRank[rank], opts.WorkerOptions()...).Run(gctx)
		})
	}
	var (
		out      coordinator.Outcome
		coordErr error
	)
	g.Go(func() error {
		ep := net.Endpoint(0)
		defer ep.Close()
		out, coordErr = coordinator.New(cfg, ep, perRank[0], opts.CoordinatorOptions()...).Run(gctx)
		return coordErr
	})
	groupErr := g.Wait()

	// The coordinator's view names the failing rank; prefer it unless it only
	// saw the cancellation caused by a failed worker.
	if coordErr != nil && !(apperrors.IsContextError(coordErr) && ctx.Err() == nil) {
		return coordinator.Outcome{}, coordErr
	}
	if groupErr != nil {
		return coordinator.Outcome{}, groupErr
	}
	return out, nil
}

// Run executes one render. It is the seam between ExecuteRenders and the
// transport in use.
type Run func(ctx context.Context, cfg config.RenderConfig, opts Options) (coordinator.Outcome, error)

// LocalRun returns a Run executing renders in-process with shaders.
func LocalRun(shaders ShaderFactory) Run {
	return func(ctx context.Context, cfg config.RenderConfig, opts Options) (coordinator.Outcome, error) {
		return RunLocal(ctx, cfg, shaders, opts)
	}
}

// ExecuteRenders runs one render per mode, one after the other so that their
// timings do not disturb each other.
//
// Parameters:
//   - ctx: Cancels the remaining renders.
//   - base: The render configuration; its mode is replaced per render.
//   - modes: The modes to render.
//   - run: Executes one render.
//   - opts: Shared collaborators; Progress is set per render.
//   - progressReporter: Displays progress (NullProgressReporter for quiet mode).
//   - out: The writer for progress output.
//
// Returns:
//   - []RenderResult: One result per mode, in the order of modes.
func ExecuteRenders(ctx context.Context, base config.RenderConfig, modes []partition.Mode, run Run, opts Options, progressReporter ProgressReporter, out io.Writer) []RenderResult {
	results := make([]RenderResult, len(modes))
	progressChan := make(chan progress.ProgressUpdate, len(modes)*ProgressBufferMultiplier)

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go progressReporter.DisplayProgress(&displayWg, progressChan, len(modes), out)

	for i, mode := range modes {
		cfg := base
		cfg.Mode = mode
		renderOpts := opts
		renderOpts.Progress = progress.ToChannel(progressChan, i)

		start := time.Now()
		var outcome coordinator.Outcome
		err := ctx.Err()
		if err == nil {
			outcome, err = run(ctx, cfg, renderOpts)
		}
		results[i] = RenderResult{
			Mode: mode, Image: outcome.Image, Stats: outcome.Stats,
			Duration: time.Since(start), Err: err,
		}
	}

	close(progressChan)
	displayWg.Wait()
	return results
}

// ReferenceIndex returns the index of the result other images are compared
// against: the single-process None render when it succeeded, else the first
// success.
// It returns -1 when every render failed.
func ReferenceIndex(results []RenderResult) int {
	ref := -1
	for i, res := range results {
		if res.Err != nil {
			continue
		}
		if res.Mode == partition.None {
			return i
		}
		if ref < 0 {
			ref = i
		}
	}
	return ref
}

// AnalyzeComparisonResults sorts the results by wall time, prints the
// comparison table, and checks that every successful render produced the same
// image as the reference.
//
// Parameters:
//   - results: The results to analyze; sorted in place.
//   - presenter: Formats the table and the reference report.
//   - errHandler: Prints the error when every render failed.
//   - verbose: Passed to the presenter.
//   - out: The writer for the summary report.
//
// Returns:
//   - int: An exit code indicating success (0) or the type of failure.
func AnalyzeComparisonResults(results []RenderResult, presenter ResultPresenter, errHandler ErrorHandler, verbose bool, out io.Writer) int {
	sort.SliceStable(results, func(i, j int) bool {
		if (results[i].Err == nil) != (results[j].Err == nil) {
			return results[i].Err == nil
		}
		return results[i].Stats.Wall < results[j].Stats.Wall
	})

	presenter.PresentComparisonTable(results, out)

	var firstErr error
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = res.Err
			}
		}
	}

	ref := ReferenceIndex(results)
	if ref < 0 {
		fmt.Fprintf(out, "\nGlobal Status: Failure. No partitioning mode could complete the render.\n")
		return errHandler.HandleError(firstErr, out)
	}

	reference := results[ref]
	for _, res := range results {
		if res.Err != nil || res.Image == reference.Image {
			continue
		}
		if row, col, diff := res.Image.Diff(reference.Image); diff {
			fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! %s differs from %s at pixel (row %d, col %d).\n",
				res.Mode, reference.Mode, row, col)
			return apperrors.ExitErrorMismatch
		}
	}

	if failed > 0 {
		fmt.Fprintf(out, "\nGlobal Status: Partial failure. %d of %d modes failed; the other images are identical.\n", failed, len(results))
		presenter.PresentResult(reference, verbose, out)
		return apperrors.ExitCodeFor(firstErr)
	}
	fmt.Fprintf(out, "\nGlobal Status: Success. All images are identical.\n")
	presenter.PresentResult(reference, verbose, out)
	return apperrors.ExitSuccess
}
