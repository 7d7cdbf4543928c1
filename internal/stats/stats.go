// Package stats turns per-rank shading times and the coordinator's wall
// clock into the computation and communication figures of one render.
//
// The computation total is the sum of every rank's measured shading time. It
// approximates the total work done, not elapsed time, so with several ranks it
// is normally larger than the wall time and the derived communication time
// is negative. That is reported as is.
package stats

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Report is the outcome of one render.
type Report struct {
	// PerRank holds the summed shading time of each rank, indexed by rank.
	PerRank []time.Duration
	// Compute is the sum of PerRank.
	Compute time.Duration
	// Wall runs from render start to final assembly on the coordinator.
	Wall time.Duration
	// Communication is Wall - Compute and may be negative.
	Communication time.Duration
	// Ratio is Communication / Compute, or 0 when Compute is 0.
	Ratio float64
	// Blocks is the number of dynamic blocks dispatched, 0 for static modes.
	Blocks int
	// Results is the number of result messages assembled.
	Results int
}

// Collector accumulates timings during a render. It is safe for concurrent use.
type Collector struct {
	clock   Clock
	mu      sync.Mutex
	start   time.Time
	end     time.Time
	perRank []time.Duration
	blocks  int
	results int
}

// NewCollector returns a collector for procs ranks. A nil clock uses time.Now.
func NewCollector(procs int, clock Clock) *Collector {
	if clock == nil {
		clock = time.Now
	}
	return &Collector{clock: clock, perRank: make([]time.Duration, max(procs, 0))}
}

// Start marks the beginning of the render.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = c.clock()
}

// Stop marks final assembly.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.end = c.clock()
}

// AddCompute adds d to rank's shading total. Out-of-range ranks are ignored.
func (c *Collector) AddCompute(rank int, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rank >= 0 && rank < len(c.perRank) {
		c.perRank[rank] += d
	}
}

// AddResult counts one assembled result message.
func (c *Collector) AddResult() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results++
}

// AddBlock counts one dispatched dynamic block.
func (c *Collector) AddBlock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks++
}

// Report computes the final figures.
func (c *Collector) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := Report{
		PerRank: append([]time.Duration(nil), c.perRank...),
		Blocks:  c.blocks,
		Results: c.results,
	}
	for _, d := range c.perRank {
		r.Compute += d
	}
	if !c.start.IsZero() && !c.end.IsZero() {
		r.Wall = c.end.Sub(c.start)
	}
	r.Communication = r.Wall - r.Compute
	r.Ratio = Ratio(r.Communication, r.Compute)
	return r
}

// Ratio returns comm/compute, or 0 when compute is 0.
func Ratio(comm, compute time.Duration) float64 {
	if compute == 0 {
		return 0
	}
	return comm.Seconds() / compute.Seconds()
}
