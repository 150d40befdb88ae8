package cell

import (
	"fmt"
	"sort"
	"strings"
)

// Importance is a cell's per-particle weighting. Particles without an
// explicit entry use Default. A cell whose importances are all zero
// terminates tracking.
type Importance struct {
	Default    float64
	byParticle map[string]float64
}

// NewImportance returns an importance of v for every particle.
func NewImportance(v float64) Importance {
	return Importance{Default: v}
}

// Set assigns v to a single particle type.
func (imp *Importance) Set(particle string, v float64) {
	if imp.byParticle == nil {
		imp.byParticle = make(map[string]float64)
	}
	imp.byParticle[particle] = v
}

// Get returns the importance for particle.
func (imp Importance) Get(particle string) float64 {
	if v, ok := imp.byParticle[particle]; ok {
		return v
	}
	return imp.Default
}

// IsZero reports whether every particle has zero importance.
func (imp Importance) IsZero() bool {
	if imp.Default != 0 {
		return false
	}
	for _, v := range imp.byParticle {
		if v != 0 {
			return false
		}
	}
	return true
}

// String renders "imp:n=1" style entries, particles in name order.
func (imp Importance) String() string {
	parts := []string{fmt.Sprintf("imp:n=%g", imp.Get("n"))}
	names := make([]string, 0, len(imp.byParticle))
	for p := range imp.byParticle {
		if p != "n" {
			names = append(names, p)
		}
	}
	sort.Strings(names)
	for _, p := range names {
		parts = append(parts, fmt.Sprintf("imp:%s=%g", p, imp.byParticle[p]))
	}
	return strings.Join(parts, " ")
}
