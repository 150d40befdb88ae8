package surface

import (
	"fmt"
	"math"

	"github.com/chazu/csgtrack/pkg/geom"
)

// Plane is the surface n.p = D with unit normal n. The positive side is
// the one the normal points into.
type Plane struct {
	name   int
	normal geom.Vec
	dist   float64
}

// NewPlane creates the plane n.p = d. The normal is normalised and d is
// rescaled to match.
func NewPlane(name int, n geom.Vec, d float64) (*Plane, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	l := n.Length()
	u, err := geom.Unit(n)
	if err != nil {
		return nil, fmt.Errorf("surface %d: %w", name, err)
	}
	return &Plane{name: name, normal: u, dist: d / l}, nil
}

// PX returns the plane x = v.
func PX(name int, v float64) (*Plane, error) { return NewPlane(name, geom.V(1, 0, 0), v) }

// PY returns the plane y = v.
func PY(name int, v float64) (*Plane, error) { return NewPlane(name, geom.V(0, 1, 0), v) }

// PZ returns the plane z = v.
func PZ(name int, v float64) (*Plane, error) { return NewPlane(name, geom.V(0, 0, 1), v) }

// PlaneThrough returns the plane through origin with normal n.
func PlaneThrough(name int, origin, n geom.Vec) (*Plane, error) {
	u, err := geom.Unit(n)
	if err != nil {
		return nil, fmt.Errorf("surface %d: %w", name, err)
	}
	return NewPlane(name, u, u.Dot(origin))
}

// Name returns the surface number.
func (p *Plane) Name() int { return p.name }

// Kind returns KindPlane.
func (p *Plane) Kind() Kind { return KindPlane }

// PlaneNormal returns the unit normal n.
func (p *Plane) PlaneNormal() geom.Vec { return p.normal }

// Distance returns D, the offset of the plane along its normal.
func (p *Plane) Distance() float64 { return p.dist }

// SignedDistance returns the signed distance of pt from the plane.
func (p *Plane) SignedDistance(pt geom.Vec) float64 {
	return p.normal.Dot(pt) - p.dist
}

func (p *Plane) Side(pt geom.Vec) int {
	return geom.Sign(p.SignedDistance(pt), geom.SurfaceTol)
}

func (p *Plane) Normal(geom.Vec) geom.Vec { return p.normal }

func (p *Plane) Intersect(l geom.Line) []float64 {
	denom := p.normal.Dot(l.Dir)
	if math.Abs(denom) < 1e-12 {
		return nil
	}
	return []float64{(p.dist - p.normal.Dot(l.Origin)) / denom}
}

func (p *Plane) Coefficients() [10]float64 {
	return [10]float64{0, 0, 0, 0, 0, 0, p.normal.X, p.normal.Y, p.normal.Z, -p.dist}
}

func (p *Plane) Renamed(name int) Surface {
	cp := *p
	cp.name = name
	return &cp
}

// Axis returns 0, 1 or 2 when the plane is perpendicular to x, y or z
// (normal pointing along the positive axis), and -1 otherwise.
func (p *Plane) Axis() int {
	for i := 0; i < 3; i++ {
		if math.Abs(geom.Component(p.normal, i)-1) < 1e-12 {
			return i
		}
	}
	return -1
}

func (p *Plane) String() string {
	switch p.Axis() {
	case 0:
		return fmt.Sprintf("%d px %g", p.name, p.dist)
	case 1:
		return fmt.Sprintf("%d py %g", p.name, p.dist)
	case 2:
		return fmt.Sprintf("%d pz %g", p.name, p.dist)
	}
	return fmt.Sprintf("%d p %g %g %g %g", p.name, p.normal.X, p.normal.Y, p.normal.Z, p.dist)
}
