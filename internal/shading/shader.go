package shading

import (
	"errors"
	"sort"
	"strings"

	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/pixel"
)

// Shader computes the color of one pixel.
type Shader interface {
	Shade(row, col int) (pixel.RGB, error)
}

// ShaderFunc adapts a function to the Shader interface.
type ShaderFunc func(row, col int) (pixel.RGB, error)

// Shade calls f.
func (f ShaderFunc) Shade(row, col int) (pixel.RGB, error) { return f(row, col) }

// Factory builds a shader for an image of the given size.
type Factory func(width, height int) (Shader, error)

var registry = map[string]Factory{
	"gradient":   newGradient,
	"mandelbrot": newMandelbrot,
	"spheres":    newSpheres,
}

// DefaultScene is rendered when no scene is configured.
const DefaultScene = "spheres"

// New returns the shader registered under scene.
//
// Parameters:
//   - scene: The scene identifier (see List).
//   - width, height: The image size in pixels.
//
// Returns:
//   - Shader: The shader for the scene.
//   - error: A ConfigError if the scene is unknown or the size is invalid.
func New(scene string, width, height int) (Shader, error) {
	f, ok := registry[strings.ToLower(scene)]
	if !ok {
		return nil, apperrors.NewConfigError("unknown scene %q (available: %s)", scene, strings.Join(List(), ", "))
	}
	if width <= 0 || height <= 0 {
		return nil, apperrors.NewConfigError("image size %dx%d must be positive", width, height)
	}
	return f(width, height)
}

// List returns the registered scene names in sorted order.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Faulty wraps a shader so that it fails at one pixel. It is used to exercise
// failure propagation end to end.
func Faulty(s Shader, row, col int) Shader {
	return ShaderFunc(func(r, c int) (pixel.RGB, error) {
		if r == row && c == col {
			return pixel.RGB{}, errFault
		}
		return s.Shade(r, c)
	})
}

func clamp01(v float64) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return float32(v)
}

var errFault = errors.New("injected fault")
