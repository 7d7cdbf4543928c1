package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/progress"
)

func TestProgressReporterWithoutProgram(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		renders int
		updates int
	}{
		{"single render", 1, 4},
		{"comparison", 3, 9},
		{"nothing tracked", 0, 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ch := make(chan progress.ProgressUpdate)
			var wg sync.WaitGroup
			wg.Add(1)
			go progressReporter(&programRef{}, 0).DisplayProgress(&wg, ch, tt.renders, nil)

			for i := 0; i < tt.updates; i++ {
				ch <- progress.ProgressUpdate{Index: i % max(tt.renders, 1), Value: float64(i+1) / float64(tt.updates)}
			}
			close(ch)
			done := make(chan struct{})
			go func() { wg.Wait(); close(done) }()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("reporter did not finish after the channel closed")
			}
		})
	}
}

func TestPresenterHandleErrorExitCodes(t *testing.T) {
	t.Parallel()

	presenter := &TUIResultPresenter{ref: &programRef{}}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no error", nil, apperrors.ExitSuccess},
		{"canceled", context.Canceled, apperrors.ExitErrorCanceled},
		{"shading", apperrors.ShadingError{Rank: 2, Row: 3, Col: 15, Cause: errors.New("nan")}, apperrors.ExitErrorShading},
		{"lost worker", apperrors.TransportError{Rank: 0, Op: "recv", Cause: errors.New("gone")}, apperrors.ExitErrorTransport},
		{"unsupported", apperrors.UnsupportedModeError{Mode: "spiral"}, apperrors.ExitErrorUnsupported},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := presenter.HandleError(tt.err, nil); got != tt.want {
				t.Errorf("HandleError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestPresenterSendsWithoutProgram(t *testing.T) {
	t.Parallel()

	presenter := &TUIResultPresenter{ref: &programRef{}, gen: 3}
	results := []orchestration.RenderResult{{Stats: statsWithWall(time.Second)}}
	presenter.PresentComparisonTable(results, nil)
	presenter.PresentResult(results[0], true, nil)
	if got := presenter.FormatDuration(1500 * time.Millisecond); got == "" {
		t.Error("FormatDuration returned an empty string")
	}
}

func TestLogWriterConsumesEveryByte(t *testing.T) {
	t.Parallel()

	w := logWriter{ref: &programRef{}}
	for _, in := range []string{"", "one line\n", "first\nsecond\n\nthird"} {
		n, err := w.Write([]byte(in))
		if err != nil || n != len(in) {
			t.Errorf("Write(%q) = %d, %v; want %d, nil", in, n, err, len(in))
		}
	}
	panelLogger(&programRef{}).Info("render started")
}
