package rule

import (
	"math"
	"sort"

	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/surface"
)

// InterPoint is one crossing of a rule's boundary along a ray.
type InterPoint struct {
	Point   geom.Vec
	Dist    float64 // signed distance from the ray origin
	SurfNum int     // surface name signed by the side the ray moves into
	Surf    surface.Surface
}

// CalcSurfIntersection returns every point where the line through org
// along dir crosses the region's boundary, ascending by distance. A hit on
// a surface only counts when the rule's value just before the point differs
// from its value just after it, with every surface the point lies on taken
// on the side the ray is moving out of or into. Tangent touches are dropped.
// dir need not be normalised.
func (h *HeadRule) CalcSurfIntersection(org, dir geom.Vec) []InterPoint {
	if h.root == NoNode {
		return nil
	}
	h.mustPopulated()
	line, err := geom.NewLine(org, dir)
	if err != nil {
		return nil
	}
	back := line.Dir.MulScalar(-1)
	var out []InterPoint
	for _, s := range h.surfSet {
		name := s.Name()
		for _, t := range s.Intersect(line) {
			pt := line.Point(t)
			ndot := s.Normal(pt).Dot(line.Dir)
			if math.Abs(ndot) < geom.ZeroTol {
				continue
			}
			sn := name
			if ndot < 0 {
				sn = -name
			}
			after := withSide(h.SidesAlong(pt, line.Dir), sn)
			before := withSide(h.SidesAlong(pt, back), -sn)
			if h.validWith(pt, after) == h.validWith(pt, before) {
				continue
			}
			out = append(out, InterPoint{Point: pt, Dist: t, SurfNum: sn, Surf: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Dist != out[j].Dist {
			return out[i].Dist < out[j].Dist
		}
		return out[i].SurfNum < out[j].SurfNum
	})
	return out
}

// withSide forces surface |sn| to the side of sn's sign in sides.
func withSide(sides map[int]int, sn int) map[int]int {
	if sides == nil {
		sides = make(map[int]int, 1)
	}
	sides[iabs(sn)] = sgn(sn)
	return sides
}

// TrackSurfIntersect returns the nearest boundary crossing strictly ahead
// of org, skipping surfaces named (either sign) in ignore.
func (h *HeadRule) TrackSurfIntersect(org, dir geom.Vec, ignore []int) (InterPoint, bool) {
	skip := make(map[int]bool, len(ignore))
	for _, sn := range ignore {
		skip[iabs(sn)] = true
	}
	for _, ip := range h.CalcSurfIntersection(org, dir) {
		if ip.Dist > geom.ZeroTol && !skip[iabs(ip.SurfNum)] {
			return ip, true
		}
	}
	return InterPoint{}, false
}

// CalcFirstIntersection returns the nearest crossing at or ahead of org,
// including one at org itself.
func (h *HeadRule) CalcFirstIntersection(org, dir geom.Vec) (InterPoint, bool) {
	all := h.CalcSurfIntersection(org, dir)
	forward := all[:0]
	for _, ip := range all {
		if ip.Dist >= -geom.ZeroTol {
			forward = append(forward, ip)
		}
	}
	if len(forward) == 0 {
		return InterPoint{}, false
	}
	return forward[0], true
}
