package rule

import (
	"math"
	"sort"

	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/surface"
	"github.com/samber/lo"
)

// IsValid reports whether p lies inside the region. Points on a surface
// count as inside for both of its half-spaces. When p lies on surfaces the
// rule uses with both signs, every combination of forced sides for those
// surfaces is tried and the point is valid if any succeeds.
//
// The empty rule is valid everywhere.
func (h *HeadRule) IsValid(p geom.Vec) bool {
	return h.validWith(p, nil)
}

// IsValidMap is IsValid with the sides of some surfaces forced. forced maps
// an unsigned surface name to +1 or -1.
func (h *HeadRule) IsValidMap(p geom.Vec, forced map[int]int) bool {
	return h.validWith(p, forced)
}

// IsValidSurf is IsValid with surface |sn| forced to the side of sn's sign.
func (h *HeadRule) IsValidSurf(p geom.Vec, sn int) bool {
	return h.validWith(p, map[int]int{iabs(sn): sgn(sn)})
}

// IsAnyValid reports whether some assignment of sides to the listed
// surfaces makes p valid.
func (h *HeadRule) IsAnyValid(p geom.Vec, surfs []int) bool {
	keys := uniqueAbs(surfs)
	return h.anyCombination(keys, nil, func(forced map[int]int) bool {
		return h.validWith(p, forced)
	})
}

// IsValidAlong reports whether a ray from p along dir lies in the region
// just after p. Every surface p lies on is taken on the side the ray moves
// into, so points on edges and corners resolve like points on a face.
func (h *HeadRule) IsValidAlong(p, dir geom.Vec) bool {
	return h.validWith(p, h.SidesAlong(p, dir))
}

// SidesAlong returns, for every surface of the rule that p lies on, the side
// a ray from p along dir moves into. A ray tangent to a curved surface takes
// the side it curves away to; surfaces the ray runs along are left out.
func (h *HeadRule) SidesAlong(p, dir geom.Vec) map[int]int {
	if h.root == NoNode {
		return nil
	}
	h.mustPopulated()
	var sides map[int]int
	for _, s := range h.surfSet {
		if s.Side(p) != 0 {
			continue
		}
		side := sideAlong(s, p, dir)
		if side == 0 {
			continue
		}
		if sides == nil {
			sides = make(map[int]int)
		}
		sides[s.Name()] = side
	}
	return sides
}

// sideAlong is the sign of the surface function just after p along dir:
// first order from the normal, second order from the quadric terms when
// the ray is tangent.
func sideAlong(s surface.Surface, p, dir geom.Vec) int {
	ndot := s.Normal(p).Dot(dir)
	if math.Abs(ndot) >= geom.ZeroTol {
		if ndot > 0 {
			return 1
		}
		return -1
	}
	c := s.Coefficients()
	curv := c[0]*dir.X*dir.X + c[1]*dir.Y*dir.Y + c[2]*dir.Z*dir.Z +
		c[3]*dir.X*dir.Y + c[4]*dir.Y*dir.Z + c[5]*dir.Z*dir.X
	return geom.Sign(curv, 1e-12)
}

func (h *HeadRule) validWith(p geom.Vec, forced map[int]int) bool {
	if h.root == NoNode {
		return true
	}
	h.mustPopulated()
	var open []int
	for _, k := range h.paired {
		if _, ok := forced[k]; ok {
			continue
		}
		if h.surfByKey[k].Side(p) == 0 {
			open = append(open, k)
		}
	}
	if len(open) == 0 {
		return h.eval(h.root, p, forced)
	}
	return h.anyCombination(open, forced, func(m map[int]int) bool {
		return h.eval(h.root, p, m)
	})
}

// anyCombination runs test over every assignment of +1/-1 to keys, layered
// over base, and stops at the first success.
func (h *HeadRule) anyCombination(keys []int, base map[int]int, test func(map[int]int) bool) bool {
	m := make(map[int]int, len(base)+len(keys))
	for k, v := range base {
		m[k] = v
	}
	n := uint(len(keys))
	for mask := uint64(0); mask < 1<<n; mask++ {
		for i, k := range keys {
			if mask&(1<<uint(i)) != 0 {
				m[k] = 1
			} else {
				m[k] = -1
			}
		}
		if test(m) {
			return true
		}
	}
	return false
}

func (h *HeadRule) eval(id NodeID, p geom.Vec, forced map[int]int) bool {
	nd := h.n(id)
	switch nd.kind {
	case Leaf:
		if f, ok := forced[iabs(nd.key)]; ok {
			return f*sgn(nd.key) > 0
		}
		return nd.surf.Side(p)*sgn(nd.key) >= 0
	case CellRef:
		inner := nd.cell
		if nd.key > 0 {
			return inner.validWith(p, forced)
		}
		return !inner.validWith(p, forced) || inner.onOpenSurface(p, forced)
	case Intersection:
		return h.eval(nd.left, p, forced) && h.eval(nd.right, p, forced)
	case Union:
		return h.eval(nd.left, p, forced) || h.eval(nd.right, p, forced)
	}
	return false
}

// onOpenSurface reports whether p lies on a surface of the rule whose side
// is not forced. The outside of a cell includes its boundary.
func (h *HeadRule) onOpenSurface(p geom.Vec, forced map[int]int) bool {
	for _, s := range h.surfSet {
		if _, ok := forced[s.Name()]; ok {
			continue
		}
		if s.Side(p) == 0 {
			return true
		}
	}
	return false
}

// OnSurfaces returns the names of the rule's surfaces that p lies on,
// ascending.
func (h *HeadRule) OnSurfaces(p geom.Vec) []int {
	h.mustPopulated()
	var out []int
	for _, s := range h.surfSet {
		if s.Side(p) == 0 {
			out = append(out, s.Name())
		}
	}
	return out
}

func uniqueAbs(sns []int) []int {
	out := lo.Uniq(lo.FilterMap(sns, func(sn int, _ int) (int, bool) {
		return iabs(sn), sn != 0
	}))
	sort.Ints(out)
	return out
}
