package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agbru/raysplit/internal/config"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/transport"
	"github.com/agbru/raysplit/internal/worker"
)

// tcpJob runs a coordinator over loopback TCP. Rank 1 runs with workerCtx
// and closes its endpoint as soon as Run returns.
func tcpJob(t *testing.T, cfg config.RenderConfig, workerCtx context.Context) (Outcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ln, err := transport.ListenTCP("127.0.0.1:0", cfg.Procs, transport.Codec{})
	if err != nil {
		t.Fatalf("ListenTCP() error = %v", err)
	}
	defer ln.Close()

	shader := gradient(t, cfg)
	workerDone := make(chan error, 1)
	go func() {
		ep, err := transport.DialTCP(ctx, ln.Addr(), 1, cfg.Procs, transport.Codec{})
		if err != nil {
			workerDone <- err
			return
		}
		defer ep.Close()
		workerDone <- worker.New(cfg.WithRank(1), ep, shader).Run(workerCtx)
	}()

	ep, err := ln.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	defer ep.Close()
	out, err := New(cfg, ep, gradient(t, cfg)).Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("coordinator hung waiting for a worker that had left")
	}
	<-workerDone
	return out, err
}

func TestTCPRunCompletes(t *testing.T) {
	t.Parallel()
	for _, mode := range []partition.Mode{partition.None, partition.StripsVertical, partition.Dynamic} {
		mode := mode
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()
			cfg := baseConfig(mode, 2)
			out, err := tcpJob(t, cfg, context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !out.Image.Equal(reference(t, cfg)) {
				t.Error("image differs from the single-process render")
			}
		})
	}
}

func TestTCPWorkerInterruptedBeforeResult(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mode     partition.Mode
		wantLost bool
	}{
		// A dispatch to a departed worker may fail on send instead.
		{partition.StripsVertical, true},
		{partition.Dynamic, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.mode.String(), func(t *testing.T) {
			t.Parallel()
			canceled, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := tcpJob(t, baseConfig(tc.mode, 2), canceled)
			var te apperrors.TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if tc.wantLost && !errors.Is(err, transport.ErrPeerLost) {
				t.Errorf("cause = %v, want ErrPeerLost", err)
			}
		})
	}
}
