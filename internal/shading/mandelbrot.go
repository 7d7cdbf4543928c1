package shading

import (
	"math"

	"github.com/agbru/raysplit/internal/pixel"
)

const mandelbrotIterations = 512

type mandelbrot struct {
	width, height int
	cx, cy        float64
	hscale        float64
}

func newMandelbrot(width, height int) (Shader, error) {
	return &mandelbrot{width: width, height: height, cx: -0.5, cy: 0, hscale: 3.5}, nil
}

// point maps a pixel, measured right and down from the top-left corner, to
// the complex plane centered on (cx, cy).
func (m *mandelbrot) point(row, col int) complex128 {
	vscale := float64(m.height) / float64(m.width) * m.hscale
	re := m.cx + float64(2*col-m.width)/float64(2*m.width)*m.hscale
	im := m.cy + float64(m.height-2*row)/float64(2*m.height)*vscale
	return complex(re, im)
}

// Shade colors a point by its escape time. Points that never escape are black.
func (m *mandelbrot) Shade(row, col int) (pixel.RGB, error) {
	c := m.point(row, col)
	var z complex128
	for n := 0; n < mandelbrotIterations; n++ {
		z = z*z + c
		if re, im := real(z), imag(z); re*re+im*im > 4 {
			t := float64(n) / mandelbrotIterations
			return pixel.RGB{
				clamp01(9 * (1 - t) * t * t * t),
				clamp01(15 * (1 - t) * (1 - t) * t * t),
				clamp01(8.5 * math.Pow(1-t, 3) * t),
			}, nil
		}
	}
	return pixel.RGB{}, nil
}
