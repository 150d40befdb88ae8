package surface

import (
	"fmt"
	"math"

	"github.com/chazu/csgtrack/pkg/geom"
)

// Kind enumerates the analytic surface families.
type Kind int

const (
	KindPlane Kind = iota
	KindSphere
	KindCylinder
	KindCone
	KindQuadratic
)

func (k Kind) String() string {
	switch k {
	case KindPlane:
		return "plane"
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	case KindCone:
		return "cone"
	case KindQuadratic:
		return "quadratic"
	default:
		return "unknown"
	}
}

// Surface is an analytic surface with an integer identity.
type Surface interface {
	// Name is the positive surface number.
	Name() int
	Kind() Kind
	// Side classifies p as +1 (positive side), -1 (negative side) or 0
	// (within geom.SurfaceTol of the surface).
	Side(p geom.Vec) int
	// Normal returns the unit gradient at p, pointing to the positive side.
	Normal(p geom.Vec) geom.Vec
	// Intersect returns the signed distances along l of every point where
	// the infinite line meets the surface, ascending.
	Intersect(l geom.Line) []float64
	// Coefficients returns the general quadric form
	// A x^2 + B y^2 + C z^2 + D xy + E yz + F zx + G x + H y + J z + K.
	Coefficients() [10]float64
	// Renamed returns a copy carrying a different name.
	Renamed(name int) Surface
	// String renders the surface as an MCNP-style card.
	String() string
}

// Equivalent compares two surfaces by geometry alone. It returns +1 when
// they describe the same surface with the same sense, -1 when the same
// surface has opposite sense, and 0 otherwise.
func Equivalent(a, b Surface) int {
	ca := normalizeCoeffs(a.Coefficients())
	cb := normalizeCoeffs(b.Coefficients())
	if ca == nil || cb == nil {
		return 0
	}
	const tol = 1e-9
	same, opposite := true, true
	for i := range ca {
		if math.Abs(ca[i]-cb[i]) > tol {
			same = false
		}
		if math.Abs(ca[i]+cb[i]) > tol {
			opposite = false
		}
	}
	switch {
	case same:
		return 1
	case opposite:
		return -1
	}
	return 0
}

// normalizeCoeffs scales a coefficient vector so that its largest
// magnitude entry has magnitude one, preserving sign.
func normalizeCoeffs(c [10]float64) []float64 {
	maxAbs := 0.0
	for _, v := range c {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if maxAbs == 0 {
		return nil
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = v / maxAbs
	}
	return out
}

func checkName(name int) error {
	if name <= 0 {
		return fmt.Errorf("surface: name must be positive, got %d", name)
	}
	return nil
}
