// Package app wires the command line to the render engine: it parses the
// configuration, sets up logging, metrics and signals, and runs the
// coordinator, a worker, or a whole local job depending on the transport and
// rank.
package app

import (
	"context"
	"errors"
	"flag"
	"io"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agbru/raysplit/internal/config"
	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/metrics"
	"github.com/agbru/raysplit/internal/orchestration"
	"github.com/agbru/raysplit/internal/server"
	"github.com/agbru/raysplit/internal/shading"
	"github.com/agbru/raysplit/internal/ui"
)

// Application represents the raysplit application instance.
type Application struct {
	Config    config.AppConfig
	Shaders   orchestration.ShaderFactory
	ErrWriter io.Writer
	Logger    logging.Logger
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithShaders sets the factory building each rank's shader.
func WithShaders(f orchestration.ShaderFactory) AppOption {
	return func(a *Application) { a.Shaders = f }
}

// WithLogger sets the logger. It defaults to a zerolog logger on errWriter.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Logger = l }
}

// New creates a new Application instance by parsing command-line arguments.
//
// Parameters:
//   - args: The full argument list, program name first.
//   - errWriter: Receives usage text, diagnostics and logs.
//   - opts: Optional overrides.
//
// Returns:
//   - *Application: The configured application.
//   - error: flag.ErrHelp for -h, or the parse or validation error.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter}
	for _, opt := range opts {
		opt(app)
	}
	if app.Shaders == nil {
		app.Shaders = orchestration.SceneShader
	}

	programName := "raysplit"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter, shading.List())
	if err != nil {
		return nil, err
	}
	if app.Logger == nil {
		app.Logger = logging.NewLogger(errWriter, "raysplit")
	}
	app.Config = cfg
	return app, nil
}

// Run executes the application and returns the process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.Version {
		PrintVersion(out)
		return apperrors.ExitSuccess
	}

	ui.InitTheme(a.Config.NoColor)
	level := zerolog.InfoLevel
	if a.Config.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if a.Config.JobID == "" {
		a.Config.JobID = uuid.NewString()
	}
	logger := a.Logger.With(logging.String("job", a.Config.JobID))

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	m := metrics.NewRender()
	if a.Config.MetricsAddr != "" {
		srv, err := server.New(a.Config.MetricsAddr, m, logger)
		if err != nil {
			return apperrors.HandleRenderError(apperrors.NewConfigError("metrics address %s: %v", a.Config.MetricsAddr, err), a.Config.Rank, a.ErrWriter)
		}
		srvCtx, stopServer := context.WithCancel(ctx)
		done := srv.Start(srvCtx)
		defer func() {
			stopServer()
			if err := <-done; err != nil {
				logger.Error("metrics server", err)
			}
		}()
	}

	opts := orchestration.Options{
		Logger:  logger,
		Metrics: m,
		Codec:   a.codec(),
	}

	switch {
	case a.Config.TUI:
		return a.runTUI(ctx, opts, out)
	case a.Config.Compare():
		return a.runComparison(ctx, opts, out)
	case a.Config.Distributed() && a.Config.Rank != 0:
		return a.runWorker(ctx, opts, out)
	default:
		return a.runRender(ctx, opts, out)
	}
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
