// Package logging provides a unified logging interface for the renderer.
// It abstracts the underlying logging implementation, allowing consistent logging
// across the coordinator, the workers and the transports while supporting
// multiple backends.
package logging
