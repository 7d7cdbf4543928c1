// Package shading provides the per-pixel color functions rendered by the
// engine.
//
// A Shader must be pure and deterministic: the same (row, col) always yields
// the same color, whichever process evaluates it. The partitioning engine
// relies on this to compare images produced by different strategies.
package shading
