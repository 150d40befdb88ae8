package cell

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/material"
	"github.com/chazu/csgtrack/pkg/rule"
	"github.com/chazu/csgtrack/pkg/surface"
	"github.com/samber/lo"
)

// ErrNoExit is returned by TrackCell when a ray never leaves the cell.
var ErrNoExit = errors.New("ray does not leave cell")

// Object is one cell of the geometry.
type Object struct {
	name   int
	rule   rule.HeadRule
	mat    material.Handle
	matID  int
	temp   float64
	imp    Importance
	bounds *geom.Box // declared bounds; nil means estimate

	// Derived by CreateSurfaceList.
	surNameSet []int // signed surface numbers of the rule, ascending
	surfSet    []surface.Surface
}

// New returns cell name filled with material m (nil for void) at matID,
// bounded by r. The cell starts with unit importance.
func New(name, matID int, m material.Handle, temp float64, r rule.HeadRule) (*Object, error) {
	if name <= 0 {
		return nil, fmt.Errorf("cell: name must be positive, got %d", name)
	}
	if m == nil {
		m = material.Void
	}
	return &Object{
		name:  name,
		rule:  r,
		mat:   m,
		matID: matID,
		temp:  temp,
		imp:   NewImportance(1),
	}, nil
}

// Parse is New with the rule given as text.
func Parse(name, matID int, m material.Handle, temp float64, text string) (*Object, error) {
	r, err := rule.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("cell %d: %w", name, err)
	}
	return New(name, matID, m, temp, r)
}

// Name returns the cell number.
func (o *Object) Name() int { return o.name }

// Rule returns the cell's boundary rule.
func (o *Object) Rule() *rule.HeadRule { return &o.rule }

// Material returns the fill; material.Void for an empty cell.
func (o *Object) Material() material.Handle { return o.mat }

// MaterialID returns the material number, 0 for void.
func (o *Object) MaterialID() int { return o.matID }

// Temp returns the cell temperature.
func (o *Object) Temp() float64 { return o.temp }

// Importance returns the per-particle importances.
func (o *Object) Importance() Importance { return o.imp }

// SetImportance replaces the importances.
func (o *Object) SetImportance(i Importance) { o.imp = i }

// IsVoid reports whether the cell is empty.
func (o *Object) IsVoid() bool { return o.mat.IsVoid() }

// SetBounds declares a bounding box for the cell, overriding the estimate.
func (o *Object) SetBounds(b geom.Box) { o.bounds = &b }

// SetMaterial fills the cell with m; nil means void.
func (o *Object) SetMaterial(id int, m material.Handle) {
	if m == nil {
		m = material.Void
	}
	o.matID, o.mat = id, m
}

// SetRule replaces the cell's rule. The cell must be populated again.
func (o *Object) SetRule(r rule.HeadRule) {
	o.rule = r
	o.surNameSet = nil
	o.surfSet = nil
}

// Populate binds the rule to surfaces and referenced cells and rebuilds
// the surface lists.
func (o *Object) Populate(surfs rule.SurfaceLookup, cells rule.CellLookup) error {
	if err := o.rule.Populate(surfs, cells); err != nil {
		return fmt.Errorf("cell %d: %w", o.name, err)
	}
	o.CreateSurfaceList()
	return nil
}

// CreateSurfaceList rebuilds the signed surface-number list from the rule
// and, once populated, the surface set.
func (o *Object) CreateSurfaceList() {
	o.surNameSet = o.rule.SurfNumbers()
	o.surfSet = nil
	if o.rule.IsPopulated() {
		o.surfSet = o.rule.SurfSet()
	}
}

// SurfNames returns the signed surface numbers used by the rule.
func (o *Object) SurfNames() []int {
	if o.surNameSet == nil {
		o.CreateSurfaceList()
	}
	return append([]int(nil), o.surNameSet...)
}

// SurfSet returns the surfaces bounding the cell, including those reached
// through cell references.
func (o *Object) SurfSet() []surface.Surface {
	return append([]surface.Surface(nil), o.surfSet...)
}

// HasSurface reports whether the cell's boundary uses surface |sn|.
func (o *Object) HasSurface(sn int) bool {
	return o.rule.HasSurface(sn)
}

// ----------------------------------------------------------------------------
// Point classification
// ----------------------------------------------------------------------------

// IsValid reports whether p lies in the cell.
func (o *Object) IsValid(p geom.Vec) bool {
	return o.rule.IsValid(p)
}

// IsValidSurf reports whether p lies in the cell with surface |sn| forced
// to the side of sn's sign.
func (o *Object) IsValidSurf(p geom.Vec, sn int) bool {
	return o.rule.IsValidSurf(p, sn)
}

// IsValidMap reports whether p lies in the cell with the sides of some
// surfaces forced.
func (o *Object) IsValidMap(p geom.Vec, forced map[int]int) bool {
	return o.rule.IsValidMap(p, forced)
}

// IsValidAlong reports whether a ray from p along dir runs into the cell,
// taking every surface p lies on on the side the ray moves into.
func (o *Object) IsValidAlong(p, dir geom.Vec) bool {
	return o.rule.IsValidAlong(p, dir)
}

// IsOnSurface returns the names of the cell's surfaces that p lies on,
// ascending; nil when p is clear of all of them.
func (o *Object) IsOnSurface(p geom.Vec) []int {
	return o.rule.OnSurfaces(p)
}

// SurfaceSides classifies p against every surface of the cell.
func (o *Object) SurfaceSides(p geom.Vec) map[int]int {
	return lo.SliceToMap(o.surfSet, func(s surface.Surface) (int, int) {
		return s.Name(), s.Side(p)
	})
}

// ----------------------------------------------------------------------------
// Tracking
// ----------------------------------------------------------------------------

// Direction results from TrackDirection.
const (
	Leaving  = -1
	OffSurf  = 0
	Entering = 1
)

// TrackDirection classifies a ray starting at p along dir against the
// cell's boundary. It returns OffSurf when p is on none of the cell's
// surfaces, Entering when the ray moves into (or stays in) the cell, and
// Leaving together with the crossed surface, signed by the side moved into,
// when it leaves. Every surface p lies on is resolved along dir together,
// so edges and corners count. Surfaces are tried in ascending signed order
// and the first that accounts for the exit is reported.
func (o *Object) TrackDirection(p, dir geom.Vec) (int, int) {
	on := o.rule.OnSurfaces(p)
	if len(on) == 0 {
		return OffSurf, 0
	}
	sides := o.rule.SidesAlong(p, dir)
	if o.rule.IsValidMap(p, sides) {
		return Entering, 0
	}
	var crossed []int
	for _, name := range on {
		if side, ok := sides[name]; ok {
			crossed = append(crossed, side*name)
		}
	}
	if len(crossed) == 0 {
		return Entering, 0
	}
	sort.Ints(crossed)
	for _, sn := range crossed {
		if !o.rule.IsValidSurf(p, sn) {
			return Leaving, sn
		}
	}
	return Leaving, crossed[0]
}

// TrackCell returns the next boundary crossing of a ray inside the cell
// starting at p along dir: the exit surface signed by the side moved into,
// the distance to it and the surface. entrySN is the surface the ray came
// in across; hits on it closer than geom.ReentryTol are the same crossing
// and are skipped. Pass 0 when there is no entry surface.
func (o *Object) TrackCell(p, dir geom.Vec, entrySN int) (int, float64, surface.Surface, error) {
	for _, ip := range o.rule.CalcSurfIntersection(p, dir) {
		if ip.Dist <= geom.ZeroTol {
			continue
		}
		if entrySN != 0 && abs(ip.SurfNum) == abs(entrySN) && ip.Dist < geom.ReentryTol {
			continue
		}
		return ip.SurfNum, ip.Dist, ip.Surf, nil
	}
	return 0, 0, nil, fmt.Errorf("cell %d from %s along %s: %w", o.name, geom.Format(p), geom.Format(dir), ErrNoExit)
}

// ----------------------------------------------------------------------------
// Rewrites and output
// ----------------------------------------------------------------------------

// SubstituteSurf replaces surface |oldSN| by newSN in the rule, flipping
// the sign of leaves opposite to oldSN. The cell must be populated again.
func (o *Object) SubstituteSurf(oldSN, newSN int) int {
	n := o.rule.SubstituteSurf(oldSN, newSN)
	if n > 0 {
		o.surNameSet = nil
		o.surfSet = nil
	}
	return n
}

// String renders the cell as an MCNP-style cell card.
func (o *Object) String() string {
	var b strings.Builder
	if o.IsVoid() {
		fmt.Fprintf(&b, "%d 0", o.name)
	} else {
		fmt.Fprintf(&b, "%d %d %g", o.name, o.matID, o.mat.AtomDensity())
	}
	b.WriteString(o.rule.Display())
	if o.temp != 0 {
		fmt.Fprintf(&b, " tmp=%g", o.temp)
	}
	b.WriteString(" ")
	b.WriteString(o.imp.String())
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
