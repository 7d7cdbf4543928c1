package shading

import "github.com/agbru/raysplit/internal/pixel"

// newGradient returns a cheap diagonal color ramp, useful for checking
// assembly by eye.
func newGradient(width, height int) (Shader, error) {
	return ShaderFunc(func(row, col int) (pixel.RGB, error) {
		u := float64(col) / float64(max(width-1, 1))
		v := float64(row) / float64(max(height-1, 1))
		return pixel.RGB{clamp01(u), clamp01(v), clamp01(1 - (u+v)/2)}, nil
	}), nil
}
