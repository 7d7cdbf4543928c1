package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/raysplit/internal/config"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/metrics"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/pixel"
	"github.com/agbru/raysplit/internal/shading"
	"github.com/agbru/raysplit/internal/transport"
)

const tracerName = "github.com/agbru/raysplit/internal/worker"

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger. The worker adds its rank to every entry.
// Without it nothing is logged.
func WithLogger(l logging.Logger) Option { return func(w *Worker) { w.logger = l } }

// WithMetrics records shaded pixels in m.
func WithMetrics(m *metrics.Render) Option { return func(w *Worker) { w.metrics = m } }

// WithTracer sets the tracer used for shading spans.
func WithTracer(t trace.Tracer) Option { return func(w *Worker) { w.tracer = t } }

// Worker executes the assignment of one non-coordinator rank.
type Worker struct {
	cfg     config.RenderConfig
	ep      transport.Endpoint
	shader  shading.Shader
	logger  logging.Logger
	metrics *metrics.Render
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates a worker for cfg.Rank talking over ep.
func New(cfg config.RenderConfig, ep transport.Endpoint, shader shading.Shader, opts ...Option) *Worker {
	w := &Worker{cfg: cfg, ep: ep, shader: shader, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.NewLogger(io.Discard, "worker")
	}
	w.logger = w.logger.With(logging.Int("rank", cfg.Rank))
	if w.tracer == nil {
		w.tracer = otel.Tracer(tracerName)
	}
	return w
}

// Run executes the worker loop for the configured mode.
//
// Returns:
//   - error: nil on success; a ShadingError, TransportError, RankError (the
//     coordinator aborted) or configuration error otherwise.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.cfg.Validate(); err != nil {
		return w.fail(ctx, err)
	}
	if w.cfg.Rank == 0 {
		return w.fail(ctx, apperrors.NewConfigError("rank 0 is the coordinator, not a worker"))
	}
	if w.cfg.Mode == partition.Dynamic {
		return w.runDynamic(ctx)
	}
	return w.runStatic(ctx)
}

func (w *Worker) runStatic(ctx context.Context) error {
	assignment, err := partition.Plan(w.cfg.Mode, w.cfg.Grid(), w.cfg.Procs, w.cfg.Rank, w.cfg.CycleSize)
	if err != nil {
		return w.fail(ctx, err)
	}
	w.logger.Debug("assignment planned",
		logging.String("mode", w.cfg.Mode.String()),
		logging.String("assignment", partition.Describe(assignment)))
	if assignment.Empty() {
		return nil
	}

	patches, elapsed, err := w.shade(ctx, assignment)
	if err != nil {
		return w.fail(ctx, err)
	}
	res := transport.Result{Patches: patches, Compute: elapsed}
	if err := w.send(ctx, transport.NewResult(w.cfg.Rank, res)); err != nil {
		return err
	}
	w.logger.Debug("result sent",
		logging.Int("pixels", res.Pixels()),
		logging.Duration("compute", elapsed))
	return nil
}

func (w *Worker) runDynamic(ctx context.Context) error {
	blocks := 0
	for {
		env, err := w.ep.Recv(ctx)
		if err != nil {
			return w.transportErr("recv", err)
		}
		switch {
		case env.Kind == transport.KindFailure:
			return coordinatorAbort(env.Failure)
		case env.Kind != transport.KindDispatch:
			return w.transportErr("recv", fmt.Errorf("unexpected %s envelope from rank %d", env.Kind, env.From))
		case env.Dispatch.Done:
			w.logger.Debug("termination received", logging.Int("blocks", blocks))
			return nil
		}

		block := env.Dispatch.Block
		if !block.Within(w.cfg.Grid()) {
			return w.transportErr("recv", fmt.Errorf("dispatched block %v outside the image", block))
		}
		patches, elapsed, err := w.shade(ctx, partition.Assignment{block})
		if err != nil {
			return w.fail(ctx, err)
		}
		res := transport.Result{Patches: patches, Compute: elapsed}
		if err := w.send(ctx, transport.NewResult(w.cfg.Rank, res)); err != nil {
			return err
		}
		blocks++
	}
}

// shade renders every region of a and measures the shading time only.
func (w *Worker) shade(ctx context.Context, a partition.Assignment) ([]pixel.Patch, time.Duration, error) {
	ctx, span := w.tracer.Start(ctx, "worker.shade", trace.WithAttributes(
		attribute.Int("rank", w.cfg.Rank),
		attribute.String("mode", w.cfg.Mode.String()),
		attribute.Int("regions", len(a)),
		attribute.Int("pixels", a.Pixels()),
	))
	defer span.End()

	start := w.now()
	patches := make([]pixel.Patch, 0, len(a))
	for _, r := range a {
		p, err := ShadeRegion(ctx, w.shader, w.cfg.Rank, r, w.cfg.Threads)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "shading failed")
			return nil, 0, err
		}
		patches = append(patches, p)
	}
	elapsed := w.now().Sub(start)
	w.metrics.PixelsShaded(w.cfg.Mode.String(), strconv.Itoa(w.cfg.Rank), a.Pixels())
	return patches, elapsed, nil
}

func (w *Worker) send(ctx context.Context, env transport.Envelope) error {
	if err := w.ep.Send(ctx, 0, env); err != nil {
		return w.transportErr("send", err)
	}
	return nil
}

func (w *Worker) transportErr(op string, err error) error {
	if apperrors.IsContextError(err) {
		return err
	}
	var te apperrors.TransportError
	if errors.As(err, &te) {
		return err
	}
	return apperrors.TransportError{Rank: w.cfg.Rank, Op: op, Cause: err}
}

// fail reports err to the coordinator and returns it. Transport and context
// errors are not reported: the link is unusable or the job is over.
func (w *Worker) fail(ctx context.Context, err error) error {
	kind := apperrors.KindOf(err)
	w.metrics.Failure(string(kind))
	w.logger.Error("worker failed", err, logging.String("kind", string(kind)))
	if kind == apperrors.KindTransport || apperrors.IsContextError(err) {
		return err
	}
	f := transport.Failure{Kind: string(kind), Message: err.Error(), Row: -1, Col: -1}
	var se apperrors.ShadingError
	if errors.As(err, &se) {
		f.Message = se.Cause.Error()
		f.Row, f.Col = se.Row, se.Col
	}
	if sendErr := w.ep.Send(ctx, 0, transport.NewFailure(w.cfg.Rank, f)); sendErr != nil {
		w.logger.Error("could not report failure", sendErr)
	}
	return err
}

// coordinatorAbort turns an abort notice from rank 0 into an error.
func coordinatorAbort(f *transport.Failure) error {
	return apperrors.RankError{Rank: 0, Kind: apperrors.Kind(f.Kind), Cause: errors.New(f.Message)}
}

// RemoteFailure converts a failure report from rank into a RankError.
func RemoteFailure(rank int, f *transport.Failure) error {
	cause := errors.New(f.Message)
	if f.Row >= 0 && f.Col >= 0 {
		cause = fmt.Errorf("pixel (row %d, col %d): %s", f.Row, f.Col, f.Message)
	}
	return apperrors.RankError{Rank: rank, Kind: apperrors.Kind(f.Kind), Cause: cause}
}
