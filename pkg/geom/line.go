package geom

import "math"

// Line is an infinite line through Origin along the unit vector Dir.
// Parameters along the line are signed distances from Origin.
type Line struct {
	Origin Vec
	Dir    Vec
}

// NewLine builds a line, normalising dir.
func NewLine(origin, dir Vec) (Line, error) {
	u, err := Unit(dir)
	if err != nil {
		return Line{}, err
	}
	return Line{Origin: origin, Dir: u}, nil
}

// Point returns the point at signed distance t from the origin.
func (l Line) Point(t float64) Vec {
	return l.Origin.Add(l.Dir.MulScalar(t))
}

// Param returns the signed distance of the projection of p onto the line.
func (l Line) Param(p Vec) float64 {
	return p.Sub(l.Origin).Dot(l.Dir)
}

// SolveQuadratic returns the real roots of a*t^2 + b*t + c = 0 in
// ascending order. A degenerate (linear) equation yields at most one root
// and a tangent touch yields a single root.
func SolveQuadratic(a, b, c float64) []float64 {
	const eps = 1e-14
	if math.Abs(a) < eps {
		if math.Abs(b) < eps {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	scale := math.Max(b*b, math.Abs(4*a*c))
	if disc < -eps*scale {
		return nil
	}
	if disc <= eps*scale {
		return []float64{-b / (2 * a)}
	}
	// Numerically stable form: avoid cancellation between -b and sqrt(disc).
	sq := math.Sqrt(disc)
	q := -0.5 * (b + math.Copysign(sq, b))
	t1 := q / a
	t2 := c / q
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return []float64{t1, t2}
}
