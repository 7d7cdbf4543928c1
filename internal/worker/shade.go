package worker

import (
	"context"

	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/parallel"
	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/pixel"
	"github.com/agbru/raysplit/internal/shading"
)

// ShadeRegion shades every pixel of r into a new patch, using up to threads
// goroutines over the rows of r.
//
// Parameters:
//   - ctx: Cancels the loop between rows.
//   - s: The shader.
//   - rank: The shading rank, reported in errors.
//   - r: The region to shade.
//   - threads: Row goroutines; values below 2 shade sequentially.
//
// Returns:
//   - pixel.Patch: The shaded patch, addressed by r.
//   - error: A ShadingError locating the first failing pixel, or the context error.
func ShadeRegion(ctx context.Context, s shading.Shader, rank int, r partition.Region, threads int) (pixel.Patch, error) {
	patch := pixel.NewPatch(r)
	err := parallel.ForEachRow(ctx, r.Y, r.H, threads, func(row int) error {
		for col := r.X; col < r.X+r.W; col++ {
			c, err := s.Shade(row, col)
			if err != nil {
				return apperrors.ShadingError{Rank: rank, Row: row, Col: col, Cause: err}
			}
			if err := patch.Set(row, col, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pixel.Patch{}, err
	}
	return patch, nil
}
