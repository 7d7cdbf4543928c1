package orchestration

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agbru/raysplit/internal/config"
	"github.com/agbru/raysplit/internal/coordinator"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/pixel"
	"github.com/agbru/raysplit/internal/progress"
	"github.com/agbru/raysplit/internal/shading"
	"github.com/agbru/raysplit/internal/stats"
	"github.com/agbru/raysplit/internal/transport"
)

// MockResultPresenter records what the analysis presents.
type MockResultPresenter struct {
	mu        sync.Mutex
	tableRows int
	presented *RenderResult
}

func (m *MockResultPresenter) PresentComparisonTable(results []RenderResult, out io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tableRows = len(results)
}

func (m *MockResultPresenter) PresentResult(result RenderResult, verbose bool, out io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presented = &result
}

func (m *MockResultPresenter) HandleError(err error, out io.Writer) int {
	return apperrors.ExitCodeFor(err)
}

func renderConfig(mode partition.Mode, procs int) config.RenderConfig {
	return config.RenderConfig{
		Width: 24, Height: 10, Scene: "mandelbrot", Mode: mode,
		CycleSize: 4, BlockWidth: 5, BlockHeight: 5, Procs: procs,
	}
}

func TestRunLocalEveryMode(t *testing.T) {
	t.Parallel()
	ref, err := RunLocal(context.Background(), renderConfig(partition.None, 1), SceneShader, Options{})
	if err != nil {
		t.Fatalf("reference render: %v", err)
	}
	for _, mode := range partition.AllModes() {
		for _, compress := range []bool{false, true} {
			mode, compress := mode, compress
			name := mode.String()
			if compress {
				name += "/zstd"
			}
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				opts := Options{Codec: transport.Codec{Compress: compress}}
				out, err := RunLocal(context.Background(), renderConfig(mode, 4), SceneShader, opts)
				if err != nil {
					t.Fatalf("RunLocal: %v", err)
				}
				if !out.Image.Equal(ref.Image) {
					t.Fatal("image differs from the single-process render")
				}
				if len(out.Stats.PerRank) != 4 {
					t.Errorf("per-rank timings for %d ranks, want 4", len(out.Stats.PerRank))
				}
			})
		}
	}
}

func TestRunLocalWorkerFailure(t *testing.T) {
	t.Parallel()
	cfg := renderConfig(partition.StripsHorizontal, 3)
	// Rows 7..9 belong to rank 2.
	faulty := func(c config.RenderConfig) (shading.Shader, error) {
		s, err := SceneShader(c)
		if err != nil || c.Rank != 2 {
			return s, err
		}
		return shading.Faulty(s, 8, 3), nil
	}

	_, err := RunLocal(context.Background(), cfg, faulty, Options{})
	if kind := apperrors.KindOf(err); kind != apperrors.KindShading {
		t.Fatalf("KindOf(%v) = %q, want shading", err, kind)
	}
	if code := apperrors.ExitCodeFor(err); code != apperrors.ExitErrorShading {
		t.Errorf("exit code = %d, want %d", code, apperrors.ExitErrorShading)
	}
	var rankErr apperrors.RankError
	var shadingErr apperrors.ShadingError
	switch {
	case errors.As(err, &rankErr):
		if rankErr.Rank != 2 {
			t.Errorf("failure attributed to rank %d, want 2", rankErr.Rank)
		}
	case errors.As(err, &shadingErr):
		if shadingErr.Rank != 2 {
			t.Errorf("failure attributed to rank %d, want 2", shadingErr.Rank)
		}
	default:
		t.Errorf("error does not name the failing rank: %v", err)
	}
}

func TestRunLocalRejectsBadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.RenderConfig)
	}{
		{"zero cycle size", func(c *config.RenderConfig) { c.Mode, c.CycleSize = partition.CyclesVertical, 0 }},
		{"zero block width", func(c *config.RenderConfig) { c.Mode, c.BlockWidth = partition.Dynamic, 0 }},
		{"no processes", func(c *config.RenderConfig) { c.Procs = 0 }},
		{"unknown scene", func(c *config.RenderConfig) { c.Scene = "teapot" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := renderConfig(partition.Blocks, 2)
			tt.mutate(&cfg)
			_, err := RunLocal(context.Background(), cfg, SceneShader, Options{})
			var ce apperrors.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestRunLocalCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunLocal(ctx, renderConfig(partition.Dynamic, 3), SceneShader, Options{})
	if !apperrors.IsContextError(err) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestExecuteRenders(t *testing.T) {
	t.Parallel()
	modes := []partition.Mode{partition.None, partition.Blocks, partition.Dynamic}
	var calls atomic.Int32
	run := func(ctx context.Context, cfg config.RenderConfig, opts Options) (coordinator.Outcome, error) {
		calls.Add(1)
		if cfg.Mode == partition.Blocks {
			return coordinator.Outcome{}, errors.New("mock error")
		}
		opts.Progress(1)
		return coordinator.Outcome{Image: pixel.NewBuffer(cfg.Grid())}, nil
	}

	results := ExecuteRenders(context.Background(), renderConfig(partition.None, 2), modes, run, Options{}, NullProgressReporter{}, io.Discard)
	if len(results) != len(modes) || calls.Load() != int32(len(modes)) {
		t.Fatalf("got %d results from %d runs, want %d", len(results), calls.Load(), len(modes))
	}
	for i, res := range results {
		if res.Mode != modes[i] {
			t.Errorf("result %d has mode %s, want %s", i, res.Mode, modes[i])
		}
		if (res.Err != nil) != (res.Mode == partition.Blocks) {
			t.Errorf("%s: unexpected error state %v", res.Mode, res.Err)
		}
	}
}

func TestExecuteRendersStopsWhenCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run := func(context.Context, config.RenderConfig, Options) (coordinator.Outcome, error) {
		t.Error("run called after cancellation")
		return coordinator.Outcome{}, nil
	}
	results := ExecuteRenders(ctx, renderConfig(partition.None, 1), partition.AllModes(), run, Options{}, NullProgressReporter{}, io.Discard)
	for _, res := range results {
		if !apperrors.IsContextError(res.Err) {
			t.Errorf("%s: expected context error, got %v", res.Mode, res.Err)
		}
	}
}

// TestExecuteRendersNoDeadlock floods the progress channel with a reporter
// that never reads until the end.
func TestExecuteRendersNoDeadlock(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	reporter := ProgressReporterFunc(func(wg *sync.WaitGroup, ch <-chan progress.ProgressUpdate, _ int, _ io.Writer) {
		defer wg.Done()
		<-release
		DrainChannel(ch)
	})
	run := func(ctx context.Context, cfg config.RenderConfig, opts Options) (coordinator.Outcome, error) {
		for i := 0; i < 10000; i++ {
			opts.Progress(float64(i) / 10000)
		}
		return coordinator.Outcome{}, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ExecuteRenders(context.Background(), renderConfig(partition.None, 1), partition.AllModes(), run, Options{}, reporter, io.Discard)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("DEADLOCK: ExecuteRenders did not complete")
	}
}

func imageOf(g partition.Grid, v float32) *pixel.Buffer {
	b := pixel.NewBuffer(g)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			_ = b.Set(row, col, pixel.RGB{v, v, v})
		}
	}
	return b
}

// TestAnalyzeComparisonResults checks consistent results, handling of
// failures, and detection of mismatched images.
func TestAnalyzeComparisonResults(t *testing.T) {
	t.Parallel()
	g := partition.Grid{Width: 3, Height: 2}
	wall := func(ms int) stats.Report { return stats.Report{Wall: time.Duration(ms) * time.Millisecond} }
	shadingErr := apperrors.RankError{Rank: 1, Kind: apperrors.KindShading, Cause: errors.New("fail")}

	tests := []struct {
		name           string
		results        []RenderResult
		expectedStatus int
		expectedRef    partition.Mode
	}{
		{
			name: "All success",
			results: []RenderResult{
				{Mode: partition.Blocks, Image: imageOf(g, 0.5), Stats: wall(1)},
				{Mode: partition.None, Image: imageOf(g, 0.5), Stats: wall(3)},
			},
			expectedStatus: apperrors.ExitSuccess,
			expectedRef:    partition.None,
		},
		{
			name: "Mismatch",
			results: []RenderResult{
				{Mode: partition.None, Image: imageOf(g, 0.5), Stats: wall(1)},
				{Mode: partition.Dynamic, Image: imageOf(g, 0.25), Stats: wall(2)},
			},
			expectedStatus: apperrors.ExitErrorMismatch,
		},
		{
			name: "All failure",
			results: []RenderResult{
				{Mode: partition.None, Err: shadingErr},
				{Mode: partition.Blocks, Err: errors.New("fail")},
			},
			expectedStatus: apperrors.ExitErrorShading,
		},
		{
			name: "Mixed success/failure",
			results: []RenderResult{
				{Mode: partition.None, Err: shadingErr},
				{Mode: partition.StripsVertical, Image: imageOf(g, 1), Stats: wall(2)},
				{Mode: partition.Blocks, Image: imageOf(g, 1), Stats: wall(1)},
			},
			expectedStatus: apperrors.ExitErrorShading,
			expectedRef:    partition.Blocks,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			presenter := &MockResultPresenter{}
			status := AnalyzeComparisonResults(tt.results, presenter, presenter, false, io.Discard)
			if status != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, status)
			}
			if presenter.tableRows != len(tt.results) {
				t.Errorf("table shows %d rows, want %d", presenter.tableRows, len(tt.results))
			}
			if tt.expectedStatus == apperrors.ExitErrorMismatch || presenter.presented == nil {
				return
			}
			if presenter.presented.Mode != tt.expectedRef {
				t.Errorf("reference %s, want %s", presenter.presented.Mode, tt.expectedRef)
			}
		})
	}
}

func TestAnalyzeSortsByWallTime(t *testing.T) {
	t.Parallel()
	g := partition.Grid{Width: 1, Height: 1}
	results := []RenderResult{
		{Mode: partition.Blocks, Err: errors.New("fail")},
		{Mode: partition.Dynamic, Image: imageOf(g, 0), Stats: stats.Report{Wall: 3 * time.Millisecond}},
		{Mode: partition.None, Image: imageOf(g, 0), Stats: stats.Report{Wall: time.Millisecond}},
	}
	AnalyzeComparisonResults(results, &MockResultPresenter{}, &MockResultPresenter{}, false, io.Discard)
	want := []partition.Mode{partition.None, partition.Dynamic, partition.Blocks}
	for i, m := range want {
		if results[i].Mode != m {
			t.Errorf("position %d holds %s, want %s", i, results[i].Mode, m)
		}
	}
}
