package partition

import (
	"errors"
	"fmt"
	"math"

	apperrors "github.com/agbru/raysplit/internal/errors"
)

// ErrNoStaticPlan is returned by Plan for the dynamic mode, whose work is
// handed out by the coordinator at run time.
var ErrNoStaticPlan = errors.New("dynamic mode has no static assignment")

// Request holds the inputs of a static plan.
type Request struct {
	Grid Grid
	// Procs is the total process count P.
	Procs int
	// Rank is the process being planned, 0 <= Rank < Procs.
	Rank int
	// CycleSize is the group width (or height) for the cycles modes.
	CycleSize int
}

// Planner computes one rank's assignment for a single strategy.
type Planner interface {
	Plan(req Request) Assignment
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(req Request) Assignment

// Plan calls f.
func (f PlannerFunc) Plan(req Request) Assignment { return f(req) }

// planners is the closed set of static strategies.
var planners = map[Mode]Planner{
	None:             PlannerFunc(planNone),
	StripsVertical:   PlannerFunc(planStripsVertical),
	StripsHorizontal: PlannerFunc(planStripsHorizontal),
	CyclesVertical:   PlannerFunc(planCyclesVertical),
	CyclesHorizontal: PlannerFunc(planCyclesHorizontal),
	Blocks:           PlannerFunc(planBlocks),
}

// Plan computes the work assignment of one rank.
//
// Parameters:
//   - mode: The partitioning strategy.
//   - grid: The image size.
//   - procs: The total number of processes.
//   - rank: The rank to plan for.
//   - cycleSize: The group size, used by the cycles modes only.
//
// Returns:
//   - Assignment: The regions the rank must shade; empty when the rank has no work.
//   - error: ErrNoStaticPlan for Dynamic, UnsupportedModeError for unknown modes,
//     or a ConfigError for inconsistent parameters.
func Plan(mode Mode, grid Grid, procs, rank, cycleSize int) (Assignment, error) {
	if mode == Dynamic {
		return nil, ErrNoStaticPlan
	}
	planner, ok := planners[mode]
	if !ok {
		return nil, apperrors.UnsupportedModeError{Mode: mode.String()}
	}
	req := Request{Grid: grid, Procs: procs, Rank: rank, CycleSize: cycleSize}
	if err := req.validate(mode); err != nil {
		return nil, err
	}
	return planner.Plan(req), nil
}

// PlanAll computes the assignment of every rank, indexed by rank.
func PlanAll(mode Mode, grid Grid, procs, cycleSize int) ([]Assignment, error) {
	all := make([]Assignment, procs)
	for r := 0; r < procs; r++ {
		a, err := Plan(mode, grid, procs, r, cycleSize)
		if err != nil {
			return nil, err
		}
		all[r] = a
	}
	return all, nil
}

func (req Request) validate(mode Mode) error {
	switch {
	case req.Grid.Width < 0 || req.Grid.Height < 0:
		return apperrors.NewConfigError("image size %dx%d must not be negative", req.Grid.Width, req.Grid.Height)
	case req.Procs < 1:
		return apperrors.NewConfigError("process count %d must be at least 1", req.Procs)
	case req.Rank < 0 || req.Rank >= req.Procs:
		return apperrors.NewConfigError("rank %d out of range [0, %d)", req.Rank, req.Procs)
	case mode.UsesCycles() && req.CycleSize <= 0:
		return apperrors.NewConfigError("cycle size %d must be positive", req.CycleSize)
	}
	return nil
}

func planNone(req Request) Assignment {
	if req.Rank != 0 || req.Grid.Pixels() == 0 {
		return nil
	}
	return Assignment{req.Grid.Bounds()}
}

func planStripsVertical(req Request) Assignment {
	x, w := evenSplit(req.Grid.Width, req.Procs, req.Rank)
	r := Region{X: x, Y: 0, W: w, H: req.Grid.Height}
	if r.Empty() {
		return nil
	}
	return Assignment{r}
}

func planStripsHorizontal(req Request) Assignment {
	y, h := evenSplit(req.Grid.Height, req.Procs, req.Rank)
	r := Region{X: 0, Y: y, W: req.Grid.Width, H: h}
	if r.Empty() {
		return nil
	}
	return Assignment{r}
}

// cycleBands returns the [start, size) bands of a dimension of length total
// owned by rank: every group g with g%procs == rank, plus the partial
// trailing group for rank 0.
func cycleBands(total, cycleSize, procs, rank int) [][2]int {
	var bands [][2]int
	groups := total / cycleSize
	for g := rank; g < groups; g += procs {
		bands = append(bands, [2]int{g * cycleSize, cycleSize})
	}
	if rest := total % cycleSize; rest > 0 && rank == 0 {
		bands = append(bands, [2]int{groups * cycleSize, rest})
	}
	return bands
}

func planCyclesVertical(req Request) Assignment {
	if req.Grid.Height == 0 {
		return nil
	}
	var a Assignment
	for _, b := range cycleBands(req.Grid.Width, req.CycleSize, req.Procs, req.Rank) {
		a = append(a, Region{X: b[0], Y: 0, W: b[1], H: req.Grid.Height})
	}
	return a
}

func planCyclesHorizontal(req Request) Assignment {
	if req.Grid.Width == 0 {
		return nil
	}
	var a Assignment
	for _, b := range cycleBands(req.Grid.Height, req.CycleSize, req.Procs, req.Rank) {
		a = append(a, Region{X: 0, Y: b[0], W: req.Grid.Width, H: b[1]})
	}
	return a
}

// BlockLayout returns the rows x cols tiling used by the blocks mode: the
// factorization rows*cols == procs whose tiles are closest to square.
func BlockLayout(g Grid, procs int) (rows, cols int) {
	rows, cols = 1, procs
	if g.Width <= 0 || g.Height <= 0 {
		return rows, cols
	}
	best := math.Inf(1)
	for c := 1; c <= procs; c++ {
		if procs%c != 0 {
			continue
		}
		r := procs / c
		tileW := float64(g.Width) / float64(c)
		tileH := float64(g.Height) / float64(r)
		if score := math.Abs(math.Log(tileW / tileH)); score < best {
			best, rows, cols = score, r, c
		}
	}
	return rows, cols
}

func planBlocks(req Request) Assignment {
	rows, cols := BlockLayout(req.Grid, req.Procs)
	row, col := req.Rank/cols, req.Rank%cols
	x, w := evenSplit(req.Grid.Width, cols, col)
	y, h := evenSplit(req.Grid.Height, rows, row)
	r := Region{X: x, Y: y, W: w, H: h}
	if r.Empty() {
		return nil
	}
	return Assignment{r}
}

// Tiles returns the dynamic work queue: blocks of bw x bh pixels tiling the
// grid in row-major order, with edge blocks clipped to the image bounds.
//
// Parameters:
//   - g: The image size.
//   - bw, bh: The block width and height; both must be positive.
//
// Returns:
//   - []Region: ceil(W/bw)*ceil(H/bh) blocks.
//   - error: A ConfigError for non-positive block dimensions.
func Tiles(g Grid, bw, bh int) ([]Region, error) {
	if bw <= 0 || bh <= 0 {
		return nil, apperrors.NewConfigError("dynamic block size %dx%d must be positive", bw, bh)
	}
	if g.Width < 0 || g.Height < 0 {
		return nil, apperrors.NewConfigError("image size %dx%d must not be negative", g.Width, g.Height)
	}
	tiles := make([]Region, 0, TileCount(g, bw, bh))
	for y := 0; y < g.Height; y += bh {
		for x := 0; x < g.Width; x += bw {
			tiles = append(tiles, Region{X: x, Y: y, W: min(bw, g.Width-x), H: min(bh, g.Height-y)})
		}
	}
	return tiles, nil
}

// TileCount returns ceil(W/bw)*ceil(H/bh).
func TileCount(g Grid, bw, bh int) int {
	if bw <= 0 || bh <= 0 || g.Width <= 0 || g.Height <= 0 {
		return 0
	}
	return ((g.Width + bw - 1) / bw) * ((g.Height + bh - 1) / bh)
}

// Describe returns a one-line summary of a rank's assignment for logs.
func Describe(a Assignment) string {
	if a.Empty() {
		return "empty"
	}
	return fmt.Sprintf("%d regions, %d pixels", len(a), a.Pixels())
}
