package pixel

import (
	"fmt"

	"github.com/agbru/raysplit/internal/partition"
)

// RGB is one color with channels in [0, 1].
type RGB [3]float32

// Target receives shaded pixels in global image coordinates.
type Target interface {
	Set(row, col int, c RGB) error
}

// Buffer is a row-major W*H RGB image with a coverage bitmap.
type Buffer struct {
	width, height int
	data          []float32
	written       []bool
	filled        int
}

// NewBuffer allocates a zeroed buffer for the grid.
func NewBuffer(g partition.Grid) *Buffer {
	n := max(g.Pixels(), 0)
	return &Buffer{
		width:   g.Width,
		height:  g.Height,
		data:    make([]float32, n*3),
		written: make([]bool, n),
	}
}

// Grid returns the buffer dimensions.
func (b *Buffer) Grid() partition.Grid {
	return partition.Grid{Width: b.width, Height: b.height}
}

func (b *Buffer) index(row, col int) (int, error) {
	if row < 0 || row >= b.height || col < 0 || col >= b.width {
		return 0, fmt.Errorf("pixel (row %d, col %d) outside %dx%d image", row, col, b.width, b.height)
	}
	return row*b.width + col, nil
}

// Get returns the color at (row, col).
func (b *Buffer) Get(row, col int) (RGB, error) {
	i, err := b.index(row, col)
	if err != nil {
		return RGB{}, err
	}
	return RGB{b.data[3*i], b.data[3*i+1], b.data[3*i+2]}, nil
}

// Set writes the color at (row, col) and marks the pixel as covered.
func (b *Buffer) Set(row, col int, c RGB) error {
	i, err := b.index(row, col)
	if err != nil {
		return err
	}
	copy(b.data[3*i:3*i+3], c[:])
	b.mark(i)
	return nil
}

func (b *Buffer) mark(i int) {
	if !b.written[i] {
		b.written[i] = true
		b.filled++
	}
}

// Claim checks that r lies inside the image and that none of its pixels has
// been written yet. It does not mark anything.
func (b *Buffer) Claim(r partition.Region) error {
	if !r.Within(b.Grid()) {
		return fmt.Errorf("region %v outside %dx%d image", r, b.width, b.height)
	}
	for row := r.Y; row < r.Y+r.H; row++ {
		base := row * b.width
		for col := r.X; col < r.X+r.W; col++ {
			if b.written[base+col] {
				return fmt.Errorf("region %v overlaps pixel (row %d, col %d) already assembled", r, row, col)
			}
		}
	}
	return nil
}

// Blit copies a patch into the buffer at the location named by its
// descriptor. It fails without writing anything if the patch is malformed,
// out of bounds, or overlaps pixels already assembled.
func (b *Buffer) Blit(p Patch) error {
	if err := p.validate(); err != nil {
		return err
	}
	if err := b.Claim(p.Region); err != nil {
		return err
	}
	r := p.Region
	for row := 0; row < r.H; row++ {
		dst := ((r.Y+row)*b.width + r.X)
		copy(b.data[3*dst:3*(dst+r.W)], p.Data[3*row*r.W:3*(row+1)*r.W])
		for col := 0; col < r.W; col++ {
			b.mark(dst + col)
		}
	}
	return nil
}

// Filled returns the number of pixels written so far.
func (b *Buffer) Filled() int { return b.filled }

// Complete reports whether every pixel has been written.
func (b *Buffer) Complete() bool { return b.filled == len(b.written) }

// Progress returns the assembled fraction in [0, 1].
func (b *Buffer) Progress() float64 {
	if len(b.written) == 0 {
		return 1
	}
	return float64(b.filled) / float64(len(b.written))
}

// Equal reports whether two buffers have the same size and bit-identical data.
func (b *Buffer) Equal(other *Buffer) bool {
	if b.width != other.width || b.height != other.height {
		return false
	}
	for i, v := range b.data {
		if v != other.data[i] {
			return false
		}
	}
	return true
}

// Diff returns the first differing pixel between two same-sized buffers.
func (b *Buffer) Diff(other *Buffer) (row, col int, ok bool) {
	if b.width != other.width || b.height != other.height {
		return 0, 0, true
	}
	for i, v := range b.data {
		if v != other.data[i] {
			p := i / 3
			return p / b.width, p % b.width, true
		}
	}
	return 0, 0, false
}
