package geom

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec is a point or direction in 3D space.
type Vec = v3.Vec

const (
	// ZeroTol is the smallest forward distance treated as real movement
	// along a ray.
	ZeroTol = 1e-6

	// SurfaceTol is the signed-distance band within which a point is
	// classified as lying on a surface.
	SurfaceTol = 1e-6

	// ReentryTol bounds the distance at which a hit on the surface a ray
	// has just crossed is treated as the same crossing.
	ReentryTol = 1e-5
)

// V is shorthand for constructing a Vec.
func V(x, y, z float64) Vec {
	return Vec{X: x, Y: y, Z: z}
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return b.Sub(a).Length()
}

// Near reports whether a and b are within tol of each other.
func Near(a, b Vec, tol float64) bool {
	return Distance(a, b) <= tol
}

// Unit returns v scaled to unit length. A zero vector has no direction.
func Unit(v Vec) (Vec, error) {
	l := v.Length()
	if l < ZeroTol*ZeroTol {
		return Vec{}, fmt.Errorf("geom: zero-length direction %v", v)
	}
	return v.MulScalar(1 / l), nil
}

// Component returns the i-th coordinate (0=x, 1=y, 2=z).
func Component(v Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic(fmt.Sprintf("geom: component index %d out of range", i))
}

// Sign returns -1, 0 or +1 for x with a tolerance band around zero.
func Sign(x, tol float64) int {
	switch {
	case x > tol:
		return 1
	case x < -tol:
		return -1
	}
	return 0
}

// IsFinite reports whether every coordinate of v is finite.
func IsFinite(v Vec) bool {
	return !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0) &&
		!math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z)
}

// Format renders v compactly for diagnostics.
func Format(v Vec) string {
	return fmt.Sprintf("(%g,%g,%g)", v.X, v.Y, v.Z)
}

// ParseVec reads "x,y,z"; surrounding spaces and parentheses are ignored.
func ParseVec(s string) (Vec, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), "()"), ",")
	if len(parts) != 3 {
		return Vec{}, fmt.Errorf("vector %q: want x,y,z", s)
	}
	var c [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Vec{}, fmt.Errorf("vector %q: %w", s, err)
		}
		c[i] = f
	}
	return V(c[0], c[1], c[2]), nil
}
