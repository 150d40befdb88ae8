package material

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a material number has no record.
	ErrNotFound = errors.New("material not found")

	// ErrDuplicate is returned when a material number is registered twice.
	ErrDuplicate = errors.New("material already registered")

	// ErrBadZaid is returned for malformed or unknown nuclide identifiers.
	ErrBadZaid = errors.New("bad zaid")

	// ErrInvalid is returned for records with inconsistent values.
	ErrInvalid = errors.New("invalid material")
)

// Handle is what tracking needs from a material.
type Handle interface {
	IsVoid() bool
	// AtomDensity is in atoms per barn-cm.
	AtomDensity() float64
	// MeanA is the atom-fraction weighted mean atomic mass.
	MeanA() float64
}

// Component is one nuclide of a material. A positive Fraction is an atom
// fraction and a negative one a weight fraction; a material uses one kind
// throughout.
type Component struct {
	Zaid     Zaid    `yaml:"zaid"`
	Fraction float64 `yaml:"fraction"`
}

// Material is a numbered nuclide mixture at a given atom density.
type Material struct {
	id         int
	name       string
	density    float64
	components []Component // atom fractions, normalised
	meanA      float64
}

// Void is material zero.
var Void = &Material{name: "void"}

var _ Handle = (*Material)(nil)

// New builds material id. Fractions are normalised, and weight fractions
// converted to atom fractions.
func New(id int, name string, density float64, comps []Component) (*Material, error) {
	if id < 0 {
		return nil, fmt.Errorf("material %d: negative number: %w", id, ErrInvalid)
	}
	if id == 0 {
		return Void, nil
	}
	if density < 0 {
		return nil, fmt.Errorf("material %d: negative density %g: %w", id, density, ErrInvalid)
	}
	if len(comps) == 0 {
		return nil, fmt.Errorf("material %d: no components: %w", id, ErrInvalid)
	}

	weight := comps[0].Fraction < 0
	atoms := make([]Component, len(comps))
	total := 0.0
	for i, c := range comps {
		if c.Fraction == 0 || (c.Fraction < 0) != weight {
			return nil, fmt.Errorf("material %d: component %s: mixed or zero fraction: %w", id, c.Zaid, ErrInvalid)
		}
		mass, err := c.Zaid.Mass()
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", id, err)
		}
		frac := c.Fraction
		if weight {
			frac = -frac / mass
		}
		atoms[i] = Component{Zaid: c.Zaid, Fraction: frac}
		total += frac
	}

	meanA := 0.0
	for i := range atoms {
		atoms[i].Fraction /= total
		mass, _ := atoms[i].Zaid.Mass()
		meanA += atoms[i].Fraction * mass
	}
	return &Material{id: id, name: name, density: density, components: atoms, meanA: meanA}, nil
}

// MustNew is like New but panics on error.
func MustNew(id int, name string, density float64, comps []Component) *Material {
	m, err := New(id, name, density, comps)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Material) ID() int      { return m.id }
func (m *Material) Name() string { return m.name }

// IsVoid reports whether the material is empty space.
func (m *Material) IsVoid() bool {
	return m == nil || m.id == 0 || m.density == 0
}

func (m *Material) AtomDensity() float64 {
	if m == nil {
		return 0
	}
	return m.density
}

func (m *Material) MeanA() float64 {
	if m == nil {
		return 0
	}
	return m.meanA
}

// Components returns the normalised atom fractions.
func (m *Material) Components() []Component {
	return append([]Component(nil), m.components...)
}

// String renders an MCNP-style material card.
func (m *Material) String() string {
	if m.IsVoid() && m.id == 0 {
		return "c void"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "c %s rho=%g\nm%d", m.name, m.density, m.id)
	for _, c := range m.components {
		fmt.Fprintf(&b, " %s %.6g", c.Zaid, c.Fraction)
	}
	return b.String()
}
