package pixel

import (
	"fmt"

	"github.com/agbru/raysplit/internal/partition"
)

// Patch is a rectangle of shaded pixels and the region it belongs to.
// Data is row-major RGB, len(Data) == 3*Region.Pixels().
type Patch struct {
	Region partition.Region
	Data   []float32
}

// NewPatch allocates a zeroed patch for r.
func NewPatch(r partition.Region) Patch {
	return Patch{Region: r, Data: make([]float32, 3*r.Pixels())}
}

// Set writes the color for the global coordinate (row, col), which must lie
// inside the patch region.
func (p Patch) Set(row, col int, c RGB) error {
	if !p.Region.Contains(row, col) {
		return fmt.Errorf("pixel (row %d, col %d) outside patch %v", row, col, p.Region)
	}
	i := 3 * ((row-p.Region.Y)*p.Region.W + (col - p.Region.X))
	copy(p.Data[i:i+3], c[:])
	return nil
}

// Get returns the color for the global coordinate (row, col).
func (p Patch) Get(row, col int) (RGB, error) {
	if !p.Region.Contains(row, col) {
		return RGB{}, fmt.Errorf("pixel (row %d, col %d) outside patch %v", row, col, p.Region)
	}
	i := 3 * ((row-p.Region.Y)*p.Region.W + (col - p.Region.X))
	return RGB{p.Data[i], p.Data[i+1], p.Data[i+2]}, nil
}

func (p Patch) validate() error {
	if p.Region.W < 0 || p.Region.H < 0 {
		return fmt.Errorf("patch %v has negative size", p.Region)
	}
	if want := 3 * p.Region.Pixels(); len(p.Data) != want {
		return fmt.Errorf("patch %v carries %d values, want %d", p.Region, len(p.Data), want)
	}
	return nil
}

// Pixels returns the number of pixels in the patch.
func (p Patch) Pixels() int { return p.Region.Pixels() }
