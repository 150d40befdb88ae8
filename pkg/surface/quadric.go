package surface

import (
	"fmt"
	"math"

	"github.com/chazu/csgtrack/pkg/geom"
)

// quadric holds the general second-order form shared by every curved
// surface: A x^2 + B y^2 + C z^2 + D xy + E yz + F zx + G x + H y + J z + K.
type quadric struct {
	a, b, c, d, e, f, g, h, j, k float64
}

func quadricFrom(c [10]float64) quadric {
	return quadric{c[0], c[1], c[2], c[3], c[4], c[5], c[6], c[7], c[8], c[9]}
}

// quadricFromMatrix expands (p-o)^T M (p-o) - r2 for a symmetric M given
// by its diagonal (mxx, myy, mzz) and off-diagonals (mxy, myz, mzx).
func quadricFromMatrix(mxx, myy, mzz, mxy, myz, mzx float64, o geom.Vec, r2 float64) quadric {
	mo := geom.V(
		mxx*o.X+mxy*o.Y+mzx*o.Z,
		mxy*o.X+myy*o.Y+myz*o.Z,
		mzx*o.X+myz*o.Y+mzz*o.Z,
	)
	return quadric{
		a: mxx, b: myy, c: mzz,
		d: 2 * mxy, e: 2 * myz, f: 2 * mzx,
		g: -2 * mo.X, h: -2 * mo.Y, j: -2 * mo.Z,
		k: o.Dot(mo) - r2,
	}
}

func (q quadric) coefficients() [10]float64 {
	return [10]float64{q.a, q.b, q.c, q.d, q.e, q.f, q.g, q.h, q.j, q.k}
}

func (q quadric) eval(p geom.Vec) float64 {
	return q.a*p.X*p.X + q.b*p.Y*p.Y + q.c*p.Z*p.Z +
		q.d*p.X*p.Y + q.e*p.Y*p.Z + q.f*p.Z*p.X +
		q.g*p.X + q.h*p.Y + q.j*p.Z + q.k
}

func (q quadric) grad(p geom.Vec) geom.Vec {
	return geom.V(
		2*q.a*p.X+q.d*p.Y+q.f*p.Z+q.g,
		2*q.b*p.Y+q.d*p.X+q.e*p.Z+q.h,
		2*q.c*p.Z+q.e*p.Y+q.f*p.X+q.j,
	)
}

// side classifies p using the first-order distance estimate f/|grad f|.
func (q quadric) side(p geom.Vec) int {
	v := q.eval(p)
	gl := q.grad(p).Length()
	if gl > 1e-12 {
		return geom.Sign(v/gl, geom.SurfaceTol)
	}
	return geom.Sign(v, geom.SurfaceTol)
}

func (q quadric) normal(p geom.Vec) geom.Vec {
	n, err := geom.Unit(q.grad(p))
	if err != nil {
		return geom.Vec{}
	}
	return n
}

func (q quadric) intersect(l geom.Line) []float64 {
	o, u := l.Origin, l.Dir
	a := q.a*u.X*u.X + q.b*u.Y*u.Y + q.c*u.Z*u.Z +
		q.d*u.X*u.Y + q.e*u.Y*u.Z + q.f*u.Z*u.X
	b := 2*(q.a*o.X*u.X+q.b*o.Y*u.Y+q.c*o.Z*u.Z) +
		q.d*(o.X*u.Y+o.Y*u.X) + q.e*(o.Y*u.Z+o.Z*u.Y) + q.f*(o.Z*u.X+o.X*u.Z) +
		q.g*u.X + q.h*u.Y + q.j*u.Z
	return geom.SolveQuadratic(a, b, q.eval(o))
}

func gqString(name int, q quadric) string {
	return fmt.Sprintf("%d gq %g %g %g %g %g %g %g %g %g %g",
		name, q.a, q.b, q.c, q.d, q.e, q.f, q.g, q.h, q.j, q.k)
}

// ---------------------------------------------------------------------------
// Sphere
// ---------------------------------------------------------------------------

// Sphere is |p - Centre|^2 = R^2; the inside is the negative side.
type Sphere struct {
	name   int
	centre geom.Vec
	radius float64
	q      quadric
}

// NewSphere creates a sphere.
func NewSphere(name int, centre geom.Vec, radius float64) (*Sphere, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, fmt.Errorf("surface %d: sphere radius must be positive, got %g", name, radius)
	}
	return &Sphere{
		name:   name,
		centre: centre,
		radius: radius,
		q:      quadricFromMatrix(1, 1, 1, 0, 0, 0, centre, radius*radius),
	}, nil
}

func (s *Sphere) Name() int        { return s.name }
func (s *Sphere) Kind() Kind       { return KindSphere }
func (s *Sphere) Centre() geom.Vec { return s.centre }
func (s *Sphere) Radius() float64  { return s.radius }

func (s *Sphere) Side(p geom.Vec) int {
	return geom.Sign(geom.Distance(p, s.centre)-s.radius, geom.SurfaceTol)
}

func (s *Sphere) Normal(p geom.Vec) geom.Vec      { return s.q.normal(p) }
func (s *Sphere) Intersect(l geom.Line) []float64 { return s.q.intersect(l) }
func (s *Sphere) Coefficients() [10]float64       { return s.q.coefficients() }

func (s *Sphere) Renamed(name int) Surface {
	cp := *s
	cp.name = name
	return &cp
}

func (s *Sphere) String() string {
	if s.centre == (geom.Vec{}) {
		return fmt.Sprintf("%d so %g", s.name, s.radius)
	}
	return fmt.Sprintf("%d s %g %g %g %g", s.name, s.centre.X, s.centre.Y, s.centre.Z, s.radius)
}

// ---------------------------------------------------------------------------
// Cylinder
// ---------------------------------------------------------------------------

// Cylinder is an infinite circular cylinder around the line through Centre
// along Axis; the inside is the negative side.
type Cylinder struct {
	name   int
	centre geom.Vec
	axis   geom.Vec
	radius float64
	q      quadric
}

// NewCylinder creates a cylinder. The axis need not be normalised.
func NewCylinder(name int, centre, axis geom.Vec, radius float64) (*Cylinder, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, fmt.Errorf("surface %d: cylinder radius must be positive, got %g", name, radius)
	}
	a, err := geom.Unit(axis)
	if err != nil {
		return nil, fmt.Errorf("surface %d: %w", name, err)
	}
	// M = I - a a^T
	return &Cylinder{
		name:   name,
		centre: centre,
		axis:   a,
		radius: radius,
		q: quadricFromMatrix(
			1-a.X*a.X, 1-a.Y*a.Y, 1-a.Z*a.Z,
			-a.X*a.Y, -a.Y*a.Z, -a.Z*a.X,
			centre, radius*radius),
	}, nil
}

func (c *Cylinder) Name() int        { return c.name }
func (c *Cylinder) Kind() Kind       { return KindCylinder }
func (c *Cylinder) Centre() geom.Vec { return c.centre }
func (c *Cylinder) Axis() geom.Vec   { return c.axis }
func (c *Cylinder) Radius() float64  { return c.radius }

func (c *Cylinder) Side(p geom.Vec) int {
	d := p.Sub(c.centre)
	radial := d.Sub(c.axis.MulScalar(d.Dot(c.axis)))
	return geom.Sign(radial.Length()-c.radius, geom.SurfaceTol)
}

func (c *Cylinder) Normal(p geom.Vec) geom.Vec      { return c.q.normal(p) }
func (c *Cylinder) Intersect(l geom.Line) []float64 { return c.q.intersect(l) }
func (c *Cylinder) Coefficients() [10]float64       { return c.q.coefficients() }

func (c *Cylinder) Renamed(name int) Surface {
	cp := *c
	cp.name = name
	return &cp
}

func (c *Cylinder) String() string {
	switch {
	case math.Abs(math.Abs(c.axis.X)-1) < 1e-12:
		return fmt.Sprintf("%d c/x %g %g %g", c.name, c.centre.Y, c.centre.Z, c.radius)
	case math.Abs(math.Abs(c.axis.Y)-1) < 1e-12:
		return fmt.Sprintf("%d c/y %g %g %g", c.name, c.centre.X, c.centre.Z, c.radius)
	case math.Abs(math.Abs(c.axis.Z)-1) < 1e-12:
		return fmt.Sprintf("%d c/z %g %g %g", c.name, c.centre.X, c.centre.Y, c.radius)
	}
	return gqString(c.name, c.q)
}

// ---------------------------------------------------------------------------
// Cone
// ---------------------------------------------------------------------------

// Cone is the double cone with apex Apex, axis Axis and half-angle Angle
// (radians). Points closer to the axis than the cone wall are on the
// negative side.
type Cone struct {
	name  int
	apex  geom.Vec
	axis  geom.Vec
	angle float64
	q     quadric
}

// NewCone creates a cone; angle must lie strictly between 0 and pi/2.
func NewCone(name int, apex, axis geom.Vec, angle float64) (*Cone, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if angle <= 0 || angle >= math.Pi/2 {
		return nil, fmt.Errorf("surface %d: cone half-angle %g out of range", name, angle)
	}
	a, err := geom.Unit(axis)
	if err != nil {
		return nil, fmt.Errorf("surface %d: %w", name, err)
	}
	c2 := math.Cos(angle) * math.Cos(angle)
	// M = cos^2 I - a a^T
	return &Cone{
		name:  name,
		apex:  apex,
		axis:  a,
		angle: angle,
		q: quadricFromMatrix(
			c2-a.X*a.X, c2-a.Y*a.Y, c2-a.Z*a.Z,
			-a.X*a.Y, -a.Y*a.Z, -a.Z*a.X,
			apex, 0),
	}, nil
}

func (c *Cone) Name() int      { return c.name }
func (c *Cone) Kind() Kind     { return KindCone }
func (c *Cone) Apex() geom.Vec { return c.apex }
func (c *Cone) Axis() geom.Vec { return c.axis }
func (c *Cone) Angle() float64 { return c.angle }

func (c *Cone) Side(p geom.Vec) int {
	d := p.Sub(c.apex)
	along := math.Abs(d.Dot(c.axis))
	radial := d.Sub(c.axis.MulScalar(d.Dot(c.axis))).Length()
	// Perpendicular distance to the nearest generator line.
	dist := radial*math.Cos(c.angle) - along*math.Sin(c.angle)
	return geom.Sign(dist, geom.SurfaceTol)
}

func (c *Cone) Normal(p geom.Vec) geom.Vec      { return c.q.normal(p) }
func (c *Cone) Intersect(l geom.Line) []float64 { return c.q.intersect(l) }
func (c *Cone) Coefficients() [10]float64       { return c.q.coefficients() }

func (c *Cone) Renamed(name int) Surface {
	cp := *c
	cp.name = name
	return &cp
}

func (c *Cone) String() string { return gqString(c.name, c.q) }

// ---------------------------------------------------------------------------
// General quadratic
// ---------------------------------------------------------------------------

// Quadratic is a general second-order surface given by its ten
// coefficients (MCNP "gq" ordering).
type Quadratic struct {
	name int
	q    quadric
}

// NewQuadratic creates a general quadratic surface.
func NewQuadratic(name int, coeffs [10]float64) (*Quadratic, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if normalizeCoeffs(coeffs) == nil {
		return nil, fmt.Errorf("surface %d: all quadratic coefficients are zero", name)
	}
	return &Quadratic{name: name, q: quadricFrom(coeffs)}, nil
}

func (g *Quadratic) Name() int                       { return g.name }
func (g *Quadratic) Kind() Kind                      { return KindQuadratic }
func (g *Quadratic) Side(p geom.Vec) int             { return g.q.side(p) }
func (g *Quadratic) Normal(p geom.Vec) geom.Vec      { return g.q.normal(p) }
func (g *Quadratic) Intersect(l geom.Line) []float64 { return g.q.intersect(l) }
func (g *Quadratic) Coefficients() [10]float64       { return g.q.coefficients() }

func (g *Quadratic) Renamed(name int) Surface {
	cp := *g
	cp.name = name
	return &cp
}

func (g *Quadratic) String() string { return gqString(g.name, g.q) }
