package partition

import "fmt"

// Grid is the size of the image being rendered.
type Grid struct {
	Width, Height int
}

// Pixels returns the number of pixels in the grid.
func (g Grid) Pixels() int { return g.Width * g.Height }

// Bounds returns the region covering the whole grid.
func (g Grid) Bounds() Region { return Region{W: g.Width, H: g.Height} }

// Region is a rectangle of pixels: columns [X, X+W) and rows [Y, Y+H).
type Region struct {
	X, Y int
	W, H int
}

// Empty reports whether the region contains no pixels.
func (r Region) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Pixels returns the number of pixels in the region.
func (r Region) Pixels() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Contains reports whether the pixel at (row, col) lies inside the region.
func (r Region) Contains(row, col int) bool {
	return col >= r.X && col < r.X+r.W && row >= r.Y && row < r.Y+r.H
}

// Within reports whether the region lies entirely inside the grid.
func (r Region) Within(g Grid) bool {
	return r.X >= 0 && r.Y >= 0 && r.W >= 0 && r.H >= 0 &&
		r.X+r.W <= g.Width && r.Y+r.H <= g.Height
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.W, r.H, r.X, r.Y)
}

// Assignment is the ordered set of regions one process shades in one pass.
type Assignment []Region

// Pixels returns the total pixel count of the assignment.
func (a Assignment) Pixels() int {
	n := 0
	for _, r := range a {
		n += r.Pixels()
	}
	return n
}

// Empty reports whether the assignment contains no pixels.
func (a Assignment) Empty() bool { return a.Pixels() == 0 }

// Contains reports whether any region of the assignment covers (row, col).
func (a Assignment) Contains(row, col int) bool {
	for _, r := range a {
		if r.Contains(row, col) {
			return true
		}
	}
	return false
}

// evenSplit divides total units among n parts. Part p gets base+1 units when
// p < total%n and base otherwise. It returns the start offset and size of
// part p.
func evenSplit(total, n, p int) (start, size int) {
	base, rem := total/n, total%n
	size = base
	if p < rem {
		size++
	}
	start = p*base + min(p, rem)
	return start, size
}
