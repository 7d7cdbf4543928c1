// Package metrics exposes render counters to Prometheus and reads Go runtime
// memory statistics for the verbose report.
package metrics
