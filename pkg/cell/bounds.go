package cell

import (
	"math"

	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/surface"
)

// Bounds returns the declared bounding box, or the estimate when none was
// declared.
func (o *Object) Bounds() geom.Box {
	if o.bounds != nil {
		return *o.bounds
	}
	return o.EstimateBounds()
}

// EstimateBounds derives an axis-aligned box from the half-spaces that are
// direct operands of a top-level intersection: axis planes, the inside of
// spheres and the inside of axis-aligned cylinders. Extents no such
// operand limits stay infinite. A union or an unpopulated rule gives the
// infinite box.
func (o *Object) EstimateBounds() geom.Box {
	box := geom.InfiniteBox()
	if o.rule.IsUnion() || !o.rule.IsPopulated() || o.rule.IsEmpty() {
		return box
	}
	for _, sn := range o.rule.TopSurfaces() {
		s := o.surfaceByName(abs(sn))
		box = geom.BoxIntersect(box, halfSpaceBox(s, sn > 0))
	}
	return box
}

// halfSpaceBox returns the box of one side of s, infinite where it is not
// limited.
func halfSpaceBox(s surface.Surface, positive bool) geom.Box {
	box := geom.InfiniteBox()
	switch v := s.(type) {
	case *surface.Plane:
		n := v.PlaneNormal()
		for i := 0; i < 3; i++ {
			c := geom.Component(n, i)
			if math.Abs(math.Abs(c)-1) > 1e-12 {
				continue
			}
			// n.x >= d on the positive side.
			limit := v.Distance() / c
			lower := (c > 0) == positive
			setExtent(&box, i, limit, lower)
		}
	case *surface.Sphere:
		if !positive {
			r := geom.V(v.Radius(), v.Radius(), v.Radius())
			box = geom.NewBox(v.Centre().Sub(r), v.Centre().Add(r))
		}
	case *surface.Cylinder:
		if positive {
			break
		}
		a := v.Axis()
		for i := 0; i < 3; i++ {
			if math.Abs(math.Abs(geom.Component(a, i))-1) < 1e-12 {
				for j := 0; j < 3; j++ {
					if j == i {
						continue
					}
					c := geom.Component(v.Centre(), j)
					setExtent(&box, j, c-v.Radius(), true)
					setExtent(&box, j, c+v.Radius(), false)
				}
			}
		}
	}
	return box
}

func setExtent(b *geom.Box, axis int, v float64, lower bool) {
	target := &b.Max
	if lower {
		target = &b.Min
	}
	switch axis {
	case 0:
		target.X = v
	case 1:
		target.Y = v
	case 2:
		target.Z = v
	}
}
