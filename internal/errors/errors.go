package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess          = 0   // Indicates successful execution.
	ExitErrorGeneric     = 1   // Indicates a generic error.
	ExitErrorMismatch    = 3   // Indicates an image mismatch between partitioning modes.
	ExitErrorConfig      = 4   // Indicates a configuration error.
	ExitErrorUnsupported = 5   // Indicates an unsupported partitioning mode.
	ExitErrorShading     = 6   // Indicates a shading failure on some rank.
	ExitErrorTransport   = 7   // Indicates a send/receive failure or a lost participant.
	ExitErrorCanceled    = 130 // Indicates the job was canceled (e.g., SIGINT).
)

// Kind classifies a fatal render failure for diagnostics.
type Kind string

// Failure kinds reported in diagnostics and in worker failure messages.
const (
	KindConfig      Kind = "configuration error"
	KindUnsupported Kind = "unsupported mode"
	KindShading     Kind = "shading failure"
	KindTransport   Kind = "transport failure"
	KindGeneric     Kind = "failure"
)

// ConfigError represents a user configuration error, such as invalid flags or
// inconsistent render parameters. It is reported before any planning occurs.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError represents an input validation failure. It identifies which
// field failed validation and provides a human-readable explanation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// UnsupportedModeError is returned when the selected partitioning mode has no
// implementation. It is raised before any work is dispatched.
type UnsupportedModeError struct {
	// Mode is the textual form of the rejected mode.
	Mode string
}

// Error returns a formatted message naming the unsupported mode.
func (e UnsupportedModeError) Error() string {
	return fmt.Sprintf("partitioning mode %q is not supported", e.Mode)
}

// ShadingError reports that the shading function failed for a pixel.
type ShadingError struct {
	// Rank is the process whose shading loop failed.
	Rank int
	// Row and Col locate the failing pixel.
	Row, Col int
	// Cause is the error returned by the shader.
	Cause error
}

// Error returns a formatted message locating the failure.
func (e ShadingError) Error() string {
	return fmt.Sprintf("shading pixel (row %d, col %d) on rank %d: %v", e.Row, e.Col, e.Rank, e.Cause)
}

// Unwrap returns the shader's error.
func (e ShadingError) Unwrap() error { return e.Cause }

// TransportError reports a failed send or receive, a lost participant, or a
// message that violates the render protocol.
type TransportError struct {
	// Rank is the local process rank.
	Rank int
	// Op names the failed operation (e.g. "send", "recv", "dial").
	Op string
	// Cause is the underlying error.
	Cause error
}

// Error returns a formatted message naming the operation.
func (e TransportError) Error() string {
	return fmt.Sprintf("transport %s on rank %d: %v", e.Op, e.Rank, e.Cause)
}

// Unwrap returns the underlying error.
func (e TransportError) Unwrap() error { return e.Cause }

// RankError attributes a fatal failure to the rank that produced it. The
// coordinator wraps failures reported by workers in a RankError.
type RankError struct {
	// Rank is the failing process.
	Rank int
	// Kind classifies the failure.
	Kind Kind
	// Cause is the underlying error.
	Cause error
}

// Error returns the diagnostic form "rank N failed (kind): cause".
func (e RankError) Error() string {
	return fmt.Sprintf("rank %d failed (%s): %v", e.Rank, e.Kind, e.Cause)
}

// Unwrap returns the underlying error.
func (e RankError) Unwrap() error { return e.Cause }

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// KindOf classifies err by the most specific error type found in its chain.
func KindOf(err error) Kind {
	var rankErr RankError
	if errors.As(err, &rankErr) && rankErr.Kind != "" {
		return rankErr.Kind
	}
	var (
		configErr      ConfigError
		validationErr  ValidationError
		unsupportedErr UnsupportedModeError
		shadingErr     ShadingError
		transportErr   TransportError
	)
	switch {
	case errors.As(err, &unsupportedErr):
		return KindUnsupported
	case errors.As(err, &configErr), errors.As(err, &validationErr):
		return KindConfig
	case errors.As(err, &shadingErr):
		return KindShading
	case errors.As(err, &transportErr):
		return KindTransport
	}
	return KindGeneric
}

// ExitCodeFor maps an error to the process exit status.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if IsContextError(err) {
		return ExitErrorCanceled
	}
	switch KindOf(err) {
	case KindUnsupported:
		return ExitErrorUnsupported
	case KindConfig:
		return ExitErrorConfig
	case KindShading:
		return ExitErrorShading
	case KindTransport:
		return ExitErrorTransport
	}
	return ExitErrorGeneric
}

// HandleRenderError prints a diagnostic identifying the failing rank and the
// error kind, and returns the matching exit code.
//
// Parameters:
//   - err: The error that aborted the job.
//   - localRank: The rank of the reporting process, used when err carries no rank.
//   - out: The writer for the diagnostic.
//
// Returns:
//   - int: The exit code for the error.
func HandleRenderError(err error, localRank int, out io.Writer) int {
	if err == nil {
		return ExitSuccess
	}
	if IsContextError(err) {
		fmt.Fprintf(out, "Error: rank %d canceled: %v\n", localRank, err)
		return ExitErrorCanceled
	}
	rank, detail := localRank, err
	var rankErr RankError
	var shadingErr ShadingError
	var transportErr TransportError
	switch {
	case errors.As(err, &rankErr):
		rank, detail = rankErr.Rank, rankErr.Cause
	case errors.As(err, &shadingErr):
		rank = shadingErr.Rank
	case errors.As(err, &transportErr):
		rank = transportErr.Rank
	}
	fmt.Fprintf(out, "Error: rank %d failed (%s): %v\n", rank, KindOf(err), detail)
	return ExitCodeFor(err)
}
