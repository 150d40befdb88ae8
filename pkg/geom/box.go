package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// Box is an axis-aligned bounding box. Infinite extents are allowed on any
// axis and mark an unbounded direction.
type Box = sdf.Box3

// NewBox returns the box spanning a and b in any corner order.
func NewBox(a, b Vec) Box {
	return Box{Min: a.Min(b), Max: a.Max(b)}
}

// InfiniteBox returns a box covering all of space.
func InfiniteBox() Box {
	inf := math.Inf(1)
	return Box{Min: V(-inf, -inf, -inf), Max: V(inf, inf, inf)}
}

// BoxContains reports whether p lies in b, widened by tol.
func BoxContains(b Box, p Vec, tol float64) bool {
	return p.X >= b.Min.X-tol && p.X <= b.Max.X+tol &&
		p.Y >= b.Min.Y-tol && p.Y <= b.Max.Y+tol &&
		p.Z >= b.Min.Z-tol && p.Z <= b.Max.Z+tol
}

// BoxIsFinite reports whether every extent of b is finite.
func BoxIsFinite(b Box) bool {
	return IsFinite(b.Min) && IsFinite(b.Max)
}

// BoxIsEmpty reports whether b has an inverted extent on some axis.
func BoxIsEmpty(b Box) bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// BoxIntersect returns the overlap of a and b; the result may be empty.
func BoxIntersect(a, b Box) Box {
	return Box{Min: a.Min.Max(b.Min), Max: a.Max.Min(b.Max)}
}
