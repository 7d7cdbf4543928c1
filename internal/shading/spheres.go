package shading

import (
	"math"

	"github.com/agbru/raysplit/internal/pixel"
)

type vec3 [3]float64

func (a vec3) add(b vec3) vec3 { return vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a vec3) sub(b vec3) vec3 { return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a vec3) mul(s float64) vec3 { return vec3{a[0] * s, a[1] * s, a[2] * s} }
func (a vec3) dot(b vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a vec3) normalize() vec3 { return a.mul(1 / math.Sqrt(a.dot(a))) }

type sphere struct {
	center  vec3
	radius  float64
	albedo  vec3
	reflect float64
}

// intersect returns the distance along a unit ray to the nearest hit, or -1.
func (s sphere) intersect(origin, dir vec3) float64 {
	oc := origin.sub(s.center)
	b := oc.dot(dir)
	c := oc.dot(oc) - s.radius*s.radius
	disc := b*b - c
	if disc < 0 {
		return -1
	}
	sq := math.Sqrt(disc)
	if t := -b - sq; t > 1e-4 {
		return t
	}
	if t := -b + sq; t > 1e-4 {
		return t
	}
	return -1
}

// spheres is a small Whitted-style tracer: a pinhole camera looking down -Z
// at a few spheres lit by one point light, with hard shadows and bounded
// mirror reflection.
type spheres struct {
	width, height int
	fov           float64
	objects       []sphere
	light         vec3
	ambient       float64
	maxDepth      int
}

func newSpheres(width, height int) (Shader, error) {
	return &spheres{
		width:  width,
		height: height,
		fov:    math.Pi / 3,
		objects: []sphere{
			{center: vec3{0, -1001, -5}, radius: 1000, albedo: vec3{0.8, 0.8, 0.75}, reflect: 0.1},
			{center: vec3{0, 0, -5}, radius: 1, albedo: vec3{0.9, 0.2, 0.2}, reflect: 0.3},
			{center: vec3{-2.2, -0.3, -6}, radius: 0.7, albedo: vec3{0.2, 0.6, 0.9}, reflect: 0.5},
			{center: vec3{2, -0.5, -4.2}, radius: 0.5, albedo: vec3{0.3, 0.9, 0.3}, reflect: 0},
		},
		light:    vec3{5, 6, 0},
		ambient:  0.08,
		maxDepth: 3,
	}, nil
}

// Shade casts the primary ray through the pixel center.
func (s *spheres) Shade(row, col int) (pixel.RGB, error) {
	aspect := float64(s.width) / float64(s.height)
	scale := math.Tan(s.fov / 2)
	x := (2*(float64(col)+0.5)/float64(s.width) - 1) * aspect * scale
	y := (1 - 2*(float64(row)+0.5)/float64(s.height)) * scale
	c := s.trace(vec3{}, vec3{x, y, -1}.normalize(), 0)
	return pixel.RGB{clamp01(c[0]), clamp01(c[1]), clamp01(c[2])}, nil
}

func (s *spheres) nearest(origin, dir vec3) (int, float64) {
	hit, best := -1, math.Inf(1)
	for i, o := range s.objects {
		if t := o.intersect(origin, dir); t > 0 && t < best {
			hit, best = i, t
		}
	}
	return hit, best
}

func (s *spheres) trace(origin, dir vec3, depth int) vec3 {
	hit, t := s.nearest(origin, dir)
	if hit < 0 {
		// sky
		k := 0.5 * (dir[1] + 1)
		return vec3{1, 1, 1}.mul(1 - k).add(vec3{0.5, 0.7, 1.0}.mul(k))
	}
	o := s.objects[hit]
	p := origin.add(dir.mul(t))
	n := p.sub(o.center).normalize()
	toLight := s.light.sub(p)
	dist := math.Sqrt(toLight.dot(toLight))
	l := toLight.mul(1 / dist)

	diffuse := 0.0
	if blocker, bt := s.nearest(p.add(n.mul(1e-3)), l); blocker < 0 || bt > dist {
		diffuse = math.Max(0, n.dot(l))
	}
	color := o.albedo.mul(s.ambient + diffuse)
	if o.reflect > 0 && depth < s.maxDepth {
		r := dir.sub(n.mul(2 * dir.dot(n))).normalize()
		bounce := s.trace(p.add(n.mul(1e-3)), r, depth+1)
		color = color.mul(1 - o.reflect).add(bounce.mul(o.reflect))
	}
	return color
}
