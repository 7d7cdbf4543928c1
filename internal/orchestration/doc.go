// Package orchestration runs whole render jobs: one render with every rank
// in-process, or a comparison of several partitioning modes. It decouples
// the render loop from presentation via the ProgressReporter and
// ResultPresenter interfaces.
package orchestration
