package coordinator

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
	"github.com/agbru/raysplit/internal/progress"
	"github.com/agbru/raysplit/internal/shading"
	"github.com/agbru/raysplit/internal/stats"
	"github.com/agbru/raysplit/internal/transport"
	"github.com/agbru/raysplit/internal/worker"
)

const tracerName = "github.com/agbru/raysplit/internal/coordinator"

// abortTimeout bounds the best-effort abort notices sent to workers.
const abortTimeout = time.Second

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Without it nothing is logged.
func WithLogger(l logging.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// WithMetrics records dispatch and assembly in m.
func WithMetrics(m *metrics.Render) Option { return func(c *Coordinator) { c.metrics = m } }

// WithTracer sets the tracer used for render spans.
func WithTracer(t trace.Tracer) Option { return func(c *Coordinator) { c.tracer = t } }

// WithClock sets the clock used for timing.
func WithClock(clock stats.Clock) Option { return func(c *Coordinator) { c.clock = clock } }

// WithProgress calls fn with the assembled fraction after every patch.
func WithProgress(fn progress.ProgressCallback) Option {
	return func(c *Coordinator) { c.progress = fn }
}

// Outcome is the product of a successful render.
type Outcome struct {
	// Image is complete.
	Image *pixel.Buffer
	Stats stats.Report
}

// Coordinator executes rank 0.
type Coordinator struct {
	cfg      config.RenderConfig
	ep       transport.Endpoint
	shader   shading.Shader
	logger   logging.Logger
	metrics  *metrics.Render
	tracer   trace.Tracer
	clock    stats.Clock
	progress progress.ProgressCallback

	buf       *pixel.Buffer
	collector *stats.Collector
}

// New creates the coordinator of the render described by cfg.
func New(cfg config.RenderConfig, ep transport.Endpoint, shader shading.Shader, opts ...Option) *Coordinator {
	c := &Coordinator{cfg: cfg, ep: ep, shader: shader, clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewLogger(io.Discard, "coordinator")
	}
	c.logger = c.logger.With(logging.Int("rank", 0))
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Run renders the image.
//
// Returns:
//   - Outcome: The complete image and the timing report.
//   - error: UnsupportedModeError before any dispatch, a RankError for a
//     worker failure, a TransportError for protocol or link failures, or a
//     ShadingError for the coordinator's own share.
func (c *Coordinator) Run(ctx context.Context) (Outcome, error) {
	if err := c.check(); err != nil {
		return Outcome{}, err
	}
	mode := c.cfg.Mode.String()
	ctx, span := c.tracer.Start(ctx, "coordinator.render", trace.WithAttributes(
		attribute.String("mode", mode),
		attribute.Int("procs", c.cfg.Procs),
		attribute.Int("width", c.cfg.Width),
		attribute.Int("height", c.cfg.Height),
	))
	defer span.End()

	c.buf = pixel.NewBuffer(c.cfg.Grid())
	c.collector = stats.NewCollector(c.cfg.Procs, c.clock)
	c.collector.Start()

	var err error
	if c.cfg.Mode == partition.Dynamic {
		err = c.runDynamic(ctx)
	} else {
		err = c.runStatic(ctx)
	}
	if err == nil && !c.buf.Complete() {
		err = fmt.Errorf("image incomplete: %d of %d pixels assembled", c.buf.Filled(), c.cfg.Grid().Pixels())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		c.abort(ctx, err)
		return Outcome{}, err
	}

	c.collector.Stop()
	report := c.collector.Report()
	c.metrics.RenderFinished(mode, report.Wall, report.Ratio)
	c.logger.Debug("render assembled",
		logging.String("mode", mode),
		logging.Duration("wall", report.Wall),
		logging.Duration("compute", report.Compute),
		logging.Int("results", report.Results),
		logging.Int("blocks", report.Blocks))
	return Outcome{Image: c.buf, Stats: report}, nil
}

func (c *Coordinator) check() error {
	supported := false
	for _, m := range partition.AllModes() {
		if m == c.cfg.Mode {
			supported = true
		}
	}
	if !supported {
		return apperrors.UnsupportedModeError{Mode: c.cfg.Mode.String()}
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if !c.cfg.IsCoordinator() {
		return apperrors.NewConfigError("coordinator must run as rank 0, not %d", c.cfg.Rank)
	}
	if c.cfg.Procs > 1 && c.ep.Size() != c.cfg.Procs {
		return apperrors.NewConfigError("endpoint spans %d ranks, render needs %d", c.ep.Size(), c.cfg.Procs)
	}
	return nil
}

// shadeOwn renders regions on rank 0 and assembles them.
func (c *Coordinator) shadeOwn(ctx context.Context, a partition.Assignment) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.shade", trace.WithAttributes(
		attribute.Int("regions", len(a)),
		attribute.Int("pixels", a.Pixels()),
	))
	defer span.End()

	for _, r := range a {
		if err := c.buf.Claim(r); err != nil {
			return c.protocolErr("assemble", err)
		}
	}
	start := c.clock()
	patches := make([]pixel.Patch, 0, len(a))
	for _, r := range a {
		p, err := worker.ShadeRegion(ctx, c.shader, 0, r, c.cfg.Threads)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "shading failed")
			return err
		}
		patches = append(patches, p)
	}
	c.collector.AddCompute(0, c.clock().Sub(start))
	c.metrics.PixelsShaded(c.cfg.Mode.String(), "0", a.Pixels())
	return c.assemble(patches)
}

func (c *Coordinator) assemble(patches []pixel.Patch) error {
	for _, p := range patches {
		if err := c.buf.Blit(p); err != nil {
			return c.protocolErr("assemble", err)
		}
		if c.progress != nil {
			c.progress(c.buf.Progress())
		}
	}
	return nil
}

// receive returns the next result envelope, turning failure reports and
// anything else into errors. A goodbye from a rank that owes still reports
// as owing work means that worker is lost; other goodbyes are skipped.
func (c *Coordinator) receive(ctx context.Context, owes func(rank int) bool) (int, *transport.Result, error) {
	env, err := c.ep.Recv(ctx)
	for errors.Is(err, transport.ErrPeerClosed) && !owes(env.From) {
		c.logger.Debug("worker closed", logging.Int("rank", env.From))
		env, err = c.ep.Recv(ctx)
	}
	if err != nil {
		if apperrors.IsContextError(err) {
			return 0, nil, err
		}
		return 0, nil, c.protocolErr("recv", err)
	}
	if err := env.Validate(); err != nil {
		return 0, nil, c.protocolErr("recv", err)
	}
	switch env.Kind {
	case transport.KindFailure:
		c.metrics.Failure(env.Failure.Kind)
		return env.From, nil, worker.RemoteFailure(env.From, env.Failure)
	case transport.KindResult:
		return env.From, env.Result, nil
	}
	return 0, nil, c.protocolErr("recv", fmt.Errorf("unexpected %s envelope from rank %d", env.Kind, env.From))
}

func (c *Coordinator) recordResult(from int, res *transport.Result) {
	c.collector.AddCompute(from, res.Compute)
	c.collector.AddResult()
	c.metrics.ResultReceived(c.cfg.Mode.String(), res.Compute)
	c.metrics.PixelsShaded(c.cfg.Mode.String(), strconv.Itoa(from), res.Pixels())
}

func (c *Coordinator) protocolErr(op string, err error) error {
	var te apperrors.TransportError
	if errors.As(err, &te) {
		return err
	}
	return apperrors.TransportError{Rank: 0, Op: op, Cause: err}
}

// abort tells every worker the render is over. Sends are best effort: a
// worker that already exited or lost its link is skipped.
func (c *Coordinator) abort(ctx context.Context, cause error) {
	kind := apperrors.KindOf(cause)
	c.logger.Error("render aborted", cause, logging.String("kind", string(kind)))
	if c.cfg.Procs < 2 || apperrors.IsContextError(cause) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()
	notice := transport.NewFailure(0, transport.Failure{Kind: string(kind), Message: cause.Error(), Row: -1, Col: -1})
	for r := 1; r < c.cfg.Procs; r++ {
		if err := c.ep.Send(ctx, r, notice); err != nil {
			c.logger.Debug("abort notice not delivered", logging.Int("to", r), logging.Err(err))
		}
	}
}
