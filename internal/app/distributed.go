package app

import (
	"context"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"

	"github.com/agbru/raysplit/internal/config"
	"github.com/agbru/raysplit/internal/coordinator"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/transport"
	"github.com/agbru/raysplit/internal/worker"
)

func (a *Application) codec() transport.Codec {
	return transport.Codec{Compress: a.Config.Compress}
}

// connect opens this rank's endpoint on the configured transport. For the
// coordinator it returns once every worker has joined.
func (a *Application) connect(ctx context.Context, cfg config.RenderConfig, logger logging.Logger) (transport.Endpoint, error) {
	var (
		ep  transport.Endpoint
		err error
	)
	switch a.Config.Transport {
	case config.TransportTCP:
		if cfg.IsCoordinator() {
			var ln *transport.TCPListener
			ln, err = transport.ListenTCP(a.Config.Addr, cfg.Procs, a.codec())
			if err != nil {
				break
			}
			defer ln.Close()
			logger.Info("waiting for workers", logging.String("addr", ln.Addr()), logging.Int("workers", cfg.Procs-1))
			ep, err = ln.Accept(ctx)
		} else {
			ep, err = transport.DialTCP(ctx, a.Config.Addr, cfg.Rank, cfg.Procs, a.codec())
		}
	case config.TransportNATS:
		ep, err = transport.ConnectNATS(ctx, transport.NATSConfig{
			URL:   a.Config.NATSURL,
			Job:   a.Config.JobID,
			Rank:  cfg.Rank,
			Size:  cfg.Procs,
			Codec: a.codec(),
			Options: []nats.Option{
				nats.Name(fmt.Sprintf("raysplit-%s-rank-%d", a.Config.JobID, cfg.Rank)),
			},
		})
	default:
		err = fmt.Errorf("transport %q is not distributed", a.Config.Transport)
	}
	if err != nil {
		if apperrors.IsContextError(err) {
			return nil, err
		}
		return nil, apperrors.TransportError{Rank: cfg.Rank, Op: "connect", Cause: err}
	}
	logger.Debug("connected", logging.String("transport", a.Config.Transport), logging.Int("rank", cfg.Rank))
	return ep, nil
}

// coordinatorRun returns a Run that drives rank 0 of a distributed job.
func (a *Application) coordinatorRun() orchestration.Run {
	return func(ctx context.Context, cfg config.RenderConfig, opts orchestration.Options) (coordinator.Outcome, error) {
		if err := cfg.Validate(); err != nil {
			return coordinator.Outcome{}, err
		}
		shader, err := a.Shaders(cfg)
		if err != nil {
			return coordinator.Outcome{}, err
		}
		ep, err := a.connect(ctx, cfg, opts.Logger)
		if err != nil {
			return coordinator.Outcome{}, err
		}
		defer ep.Close()
		return coordinator.New(cfg, ep, shader, opts.CoordinatorOptions()...).Run(ctx)
	}
}

// runWorker serves one worker rank of a distributed job until the
// coordinator has its results.
func (a *Application) runWorker(ctx context.Context, opts orchestration.Options, out io.Writer) int {
	modes, err := a.Config.Modes()
	if err != nil {
		return apperrors.HandleRenderError(err, a.Config.Rank, a.ErrWriter)
	}
	cfg := a.Config.Render(modes[0])
	if err := cfg.Validate(); err != nil {
		return apperrors.HandleRenderError(err, cfg.Rank, a.ErrWriter)
	}
	shader, err := a.Shaders(cfg)
	if err != nil {
		return apperrors.HandleRenderError(err, cfg.Rank, a.ErrWriter)
	}

	ep, err := a.connect(ctx, cfg, opts.Logger)
	if err != nil {
		return apperrors.HandleRenderError(err, cfg.Rank, a.ErrWriter)
	}
	defer ep.Close()

	if err := worker.New(cfg, ep, shader, opts.WorkerOptions()...).Run(ctx); err != nil {
		return apperrors.HandleRenderError(err, cfg.Rank, a.ErrWriter)
	}
	if !a.Config.Quiet {
		fmt.Fprintf(out, "Rank %d finished its share of %s.\n", cfg.Rank, cfg.Mode)
	}
	return apperrors.ExitSuccess
}
