package rule

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cubeRegister holds the faces of the cube [-1,1]^3 as surfaces 1..6, the
// mid plane x=0 as surface 10 and a sphere of radius 5 as surface 20.
func cubeRegister(t *testing.T) *surface.Register {
	t.Helper()
	r := surface.NewRegister()
	add := func(s surface.Surface, err error) {
		require.NoError(t, err)
		_, err = r.Add(s)
		require.NoError(t, err)
	}
	add(surface.PX(1, -1))
	add(surface.PX(2, 1))
	add(surface.PY(3, -1))
	add(surface.PY(4, 1))
	add(surface.PZ(5, -1))
	add(surface.PZ(6, 1))
	add(surface.PX(10, 0))
	add(surface.NewSphere(20, geom.V(0, 0, 0), 5))
	return r
}

type cellMap map[int]*HeadRule

func (m cellMap) CellRule(name int) (*HeadRule, error) {
	r, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("cell %d not found", name)
	}
	return r, nil
}

func populated(t *testing.T, text string, r *surface.Register) HeadRule {
	t.Helper()
	h, err := Parse(text)
	require.NoError(t, err)
	require.NoError(t, h.Populate(r, nil))
	return h
}

func TestParseAndString(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1 -2 3", "1 -2 3"},
		{"1 -2 (3 : -4)", "1 -2 (3 : -4)"},
		{"1 : 2 3", "1 : 2 3"},
		{"(1 : 2) 3", "(1 : 2) 3"},
		{"#(1 -2)", "-1 : 2"},
		{"#7 1", "#7 1"},
		{"  ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			h, err := Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, h.String())
		})
	}
}

func TestParseErrorsAreTyped(t *testing.T) {
	for _, in := range []string{"(1 2", "1 2)", "1 : : 2", "# "} {
		_, err := Parse(in)
		require.Error(t, err, in)
		var pe *ParseError
		assert.True(t, errors.As(err, &pe), in)
	}
	assert.Panics(t, func() { MustParse("((1") })
}

func TestEmptyRuleIsUniversal(t *testing.T) {
	var h HeadRule
	assert.True(t, h.IsEmpty())
	assert.True(t, h.IsValid(geom.V(1e9, -3, 7)))
	assert.Empty(t, h.CalcSurfIntersection(geom.V(0, 0, 0), geom.V(1, 0, 0)))
	assert.Equal(t, "", h.Display())
}

func TestIsValidCube(t *testing.T) {
	r := cubeRegister(t)
	h := populated(t, "1 -2 3 -4 5 -6", r)

	assert.True(t, h.IsValid(geom.V(0, 0, 0)))
	assert.True(t, h.IsValid(geom.V(0.9, -0.9, 0.5)))
	assert.False(t, h.IsValid(geom.V(1.5, 0, 0)))
	assert.False(t, h.IsValid(geom.V(0, 0, -2)))
	// Boundary points belong to both half-spaces.
	assert.True(t, h.IsValid(geom.V(1, 0, 0)))

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Populate(r, nil))
		assert.True(t, h.IsValid(geom.V(0.2, 0.2, 0.2)))
	}
}

func TestUnpopulatedRulePanics(t *testing.T) {
	h := MustParse("1 -2")
	assert.False(t, h.IsPopulated())
	assert.Panics(t, func() { h.IsValid(geom.V(0, 0, 0)) })

	r := cubeRegister(t)
	require.NoError(t, h.Populate(r, nil))
	h.AddIntersectionSurf(3)
	assert.Panics(t, func() { h.IsValid(geom.V(0, 0, 0)) })
}

func TestPopulateErrors(t *testing.T) {
	r := cubeRegister(t)

	h := MustParse("1 -99")
	err := h.Populate(r, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, surface.ErrNotFound)

	h = MustParse("1 #4")
	assert.ErrorIs(t, h.Populate(r, nil), ErrNoCellLookup)

	old := MaxPairedSurfaces
	MaxPairedSurfaces = 1
	defer func() { MaxPairedSurfaces = old }()
	h = MustParse("(10 -2) : (-10 1) : (3 -4) : (-3 4)")
	assert.ErrorIs(t, h.Populate(r, nil), ErrTooManyPaired)
}

func TestComplementInvolution(t *testing.T) {
	r := cubeRegister(t)
	texts := []string{"1 -2 3 -4 5 -6", "1 -2 : 3 (-4 : 5)", "#(1 -2) 3"}
	points := []geom.Vec{
		geom.V(0.5, 0.5, 0.5), geom.V(-3, 0.1, 0.2), geom.V(0.3, 2.5, -0.7), geom.V(-0.4, -0.3, 4),
	}
	for _, text := range texts {
		h := populated(t, text, r)
		c := h.Complement()
		require.NoError(t, c.Populate(r, nil))
		cc := c.Complement()
		require.NoError(t, cc.Populate(r, nil))
		for _, p := range points {
			assert.Equal(t, h.IsValid(p), cc.IsValid(p), "%s at %v", text, p)
			assert.NotEqual(t, h.IsValid(p), c.IsValid(p), "%s at %v", text, p)
		}
	}
}

func TestDeMorganAgreesButIsNotEqual(t *testing.T) {
	r := cubeRegister(t)
	a, b := MustParse("1 -2"), MustParse("3 : -4")

	lhs := Intersect(a, b)
	lhs.MakeComplement()
	require.NoError(t, lhs.Populate(r, nil))
	rhs := Unite(a.Complement(), b.Complement())
	require.NoError(t, rhs.Populate(r, nil))

	for _, p := range []geom.Vec{
		geom.V(0.5, 0.5, 0), geom.V(-2, 0.5, 0), geom.V(0.5, -2, 0), geom.V(3, 3, 3),
	} {
		assert.Equal(t, lhs.IsValid(p), rhs.IsValid(p), "at %v", p)
	}

	x := MustParse("1 (2 : 3)")
	y := MustParse("(1 2) : (1 3)")
	assert.False(t, x.Equal(&y))
}

func TestEqualIgnoresOperandOrder(t *testing.T) {
	a := MustParse("1 -2 (3 : 4 5)")
	b := MustParse("(5 4 : 3) -2 1")
	c := MustParse("1 -2 (3 : 4 -5)")
	assert.True(t, a.Equal(&b))
	assert.False(t, a.Equal(&c))

	var e1, e2 HeadRule
	assert.True(t, e1.Equal(&e2))
	assert.False(t, e1.Equal(&a))
}

func TestAddThenRemoveRestores(t *testing.T) {
	for _, text := range []string{"1 -2 3", "1 : 2", "1", "(1 : 2) 3 (4 : 5)"} {
		h := MustParse(text)
		before := h.Clone()

		id := h.AddIntersection(MustParse("7 : -8"))
		require.NotEqual(t, NoNode, id)
		assert.False(t, h.Equal(&before))
		require.True(t, h.RemoveItem(id))
		assert.True(t, h.Equal(&before), text)

		id = h.AddUnionSurf(9)
		require.True(t, h.RemoveItem(id))
		assert.True(t, h.Equal(&before), text)
	}
}

func TestAddBuildsNaryJoins(t *testing.T) {
	var h HeadRule
	h.AddIntersectionSurf(1)
	h.AddIntersectionSurf(-2)
	h.AddIntersectionSurf(3)
	assert.Equal(t, "1 -2 3", h.String())
	assert.True(t, h.IsIntersection())
	assert.Equal(t, 3, h.CountNLevel(0))

	h.AddUnionSurf(4)
	assert.True(t, h.IsUnion())
	assert.Equal(t, 2, h.CountNLevel(0))

	_, err := h.AddIntersectionString("5 : 6")
	require.NoError(t, err)
	assert.Equal(t, "(1 -2 3 : 4) (5 : 6)", h.String())

	_, err = h.AddUnionString("(5")
	assert.Error(t, err)
}

func TestRemoveRoot(t *testing.T) {
	h := MustParse("3")
	assert.True(t, h.RemoveItem(h.Root()))
	assert.True(t, h.IsEmpty())
	assert.False(t, h.RemoveItem(1))
}

func TestLevels(t *testing.T) {
	h := MustParse("1 -2 (3 : -4 (5 6))")
	assert.Equal(t, 3, h.CountNLevel(0))
	assert.Equal(t, []int{1, -2}, h.TopSurfaces())
	assert.Equal(t, 2, h.CountNLevel(1))
	assert.Equal(t, 3, h.CountNLevel(2))
	assert.Equal(t, 0, h.CountNLevel(3))
	assert.Equal(t, 3, h.Depth())

	lvl := h.GetLevel(1)
	require.Len(t, lvl, 2)
	assert.Equal(t, "3", lvl[0].String())
	assert.Equal(t, "-4 5 6", lvl[1].String())
}

func TestSubstituteAndRemoveSurf(t *testing.T) {
	h := MustParse("1 -2 3 (2 : 4)")
	assert.Equal(t, 2, h.SubstituteSurf(-2, 7))
	assert.Equal(t, "1 7 3 (-7 : 4)", h.String())

	assert.Equal(t, 1, h.RemoveSurf(-7))
	assert.Equal(t, "1 7 3 4", h.String())
	assert.Equal(t, 0, h.RemoveSurf(99))

	assert.Equal(t, []int{1, 3, 4, 7}, h.SurfNumbers())
}

func TestComposite(t *testing.T) {
	h, err := Composite(100, "1 -2 (3 : #4)")
	require.NoError(t, err)
	assert.Equal(t, "101 -102 (103 : #4)", h.String())
	assert.Equal(t, []int{-4}, h.CellRefs())
}

func TestPairedSurfaces(t *testing.T) {
	r := cubeRegister(t)

	// Two cubes sharing a face: neither rule pairs the shared surface.
	a := populated(t, "1 -2 3 -4 5 -6", r)
	assert.Empty(t, a.PairedSurfaces())

	// One cell split internally by x=0 pairs surface 10.
	split := populated(t, "(1 -10 3 -4 5 -6) : (10 -2 3 -4 5 -6)", r)
	assert.Equal(t, []int{10}, split.PairedSurfaces())
	assert.True(t, split.IsValid(geom.V(0, 0.5, 0.5)))
	assert.True(t, split.IsValidSurf(geom.V(0, 0.5, 0.5), 10))
	assert.True(t, split.IsValidSurf(geom.V(0, 0.5, 0.5), -10))

	degenerate := populated(t, "10 -10", r)
	assert.False(t, degenerate.IsValid(geom.V(0, 0, 0)))
	assert.False(t, degenerate.IsAnyValid(geom.V(0, 0, 0), []int{10}))
}

func TestCalcSurfIntersection(t *testing.T) {
	r := cubeRegister(t)
	h := populated(t, "(1 -10 3 -4 5 -6) : (10 -2 3 -4 5 -6)", r)

	hits := h.CalcSurfIntersection(geom.V(-2, 0.5, 0.5), geom.V(1, 0, 0))
	require.Len(t, hits, 2, "internal paired surface is not a crossing")
	assert.InDelta(t, 1.0, hits[0].Dist, 1e-9)
	assert.Equal(t, 1, hits[0].SurfNum)
	assert.InDelta(t, 3.0, hits[1].Dist, 1e-9)
	assert.Equal(t, 2, hits[1].SurfNum)
	assert.InDelta(t, 1.0, hits[1].Point.X, 1e-9)

	// Moving in -x the same planes are crossed into their negative sides.
	hits = h.CalcSurfIntersection(geom.V(2, 0.5, 0.5), geom.V(-1, 0, 0))
	require.Len(t, hits, 2)
	assert.Equal(t, -2, hits[0].SurfNum)
	assert.Equal(t, -1, hits[1].SurfNum)

	for _, ip := range hits {
		sn := ip.SurfNum
		assert.NotEqual(t, h.IsValidSurf(ip.Point, sn), h.IsValidSurf(ip.Point, -sn))
	}
}

func TestSidesAlong(t *testing.T) {
	r := cubeRegister(t)
	h := populated(t, "1 -2 3 -4 5 -6", r)
	edge := geom.V(1, 1, 0)

	assert.Equal(t, map[int]int{2: 1, 4: 1}, h.SidesAlong(edge, geom.V(1, 1, 0)))
	assert.Equal(t, map[int]int{4: -1}, h.SidesAlong(edge, geom.V(0, -1, 0)))
	assert.Nil(t, h.SidesAlong(geom.V(0, 0, 0), geom.V(1, 0, 0)))
	assert.False(t, h.IsValidAlong(edge, geom.V(1, 1, 0)))
	assert.True(t, h.IsValidAlong(edge, geom.V(-1, -1, 0)))

	ball := populated(t, "-20", r)
	p := geom.V(5, 0, 0)
	assert.Equal(t, map[int]int{20: 1}, ball.SidesAlong(p, geom.V(0, 0, 1)))
	assert.True(t, ball.IsValidAlong(p, geom.V(-1, 0, 0)))
}

func TestCalcSurfIntersectionThroughEdge(t *testing.T) {
	r := cubeRegister(t)
	inner := populated(t, "1 -2 3 -4 5 -6", r)
	cells := cellMap{5: &inner}
	h := MustParse("#5 -20")
	require.NoError(t, h.Populate(r, cells))

	// The diagonal enters the cube through the edge x=y=-1 and leaves
	// through x=y=1. Each edge is a crossing of both faces meeting there.
	org := geom.V(-2, -2, 0)
	dir := geom.V(1, 1, 0)
	var near []InterPoint
	for _, ip := range h.CalcSurfIntersection(org, dir) {
		if ip.Dist > 0 && ip.Dist < 5 {
			near = append(near, ip)
		}
	}
	require.Len(t, near, 4)
	in := []int{near[0].SurfNum, near[1].SurfNum}
	out := []int{near[2].SurfNum, near[3].SurfNum}
	assert.ElementsMatch(t, []int{1, 3}, in)
	assert.ElementsMatch(t, []int{2, 4}, out)
	for i, ip := range near {
		want := math.Sqrt2
		if i >= 2 {
			want = 3 * math.Sqrt2
		}
		assert.InDelta(t, want, ip.Dist, 1e-9)
		assert.NotEqual(t, h.IsValidAlong(ip.Point, dir), h.IsValidAlong(ip.Point, dir.MulScalar(-1)))
	}

	ip, ok := h.TrackSurfIntersect(org, dir, nil)
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt2, ip.Dist, 1e-9)
}

func TestTrackAndFirstIntersection(t *testing.T) {
	r := cubeRegister(t)
	h := populated(t, "1 -2 3 -4 5 -6", r)
	org := geom.V(-1, 0, 0)

	ip, ok := h.TrackSurfIntersect(org, geom.V(1, 0, 0), nil)
	require.True(t, ok)
	assert.Equal(t, 2, ip.SurfNum)
	assert.InDelta(t, 2.0, ip.Dist, 1e-9)

	_, ok = h.TrackSurfIntersect(org, geom.V(1, 0, 0), []int{-2})
	assert.False(t, ok)

	ip, ok = h.CalcFirstIntersection(org, geom.V(1, 0, 0))
	require.True(t, ok)
	assert.Equal(t, 1, ip.SurfNum)
	assert.InDelta(t, 0.0, ip.Dist, 1e-9)

	// A ray parallel to the faces and outside misses the cell entirely.
	_, ok = h.TrackSurfIntersect(geom.V(-5, 3, 0), geom.V(1, 0, 0), nil)
	assert.False(t, ok)
}

func TestCellReference(t *testing.T) {
	r := cubeRegister(t)
	inner := populated(t, "1 -2 3 -4 5 -6", r)
	cells := cellMap{5: &inner}

	h := MustParse("#5 -20")
	require.NoError(t, h.Populate(r, cells))
	assert.False(t, h.IsValid(geom.V(0, 0, 0)))
	assert.True(t, h.IsValid(geom.V(3, 0, 0)))
	assert.True(t, h.IsValid(geom.V(1, 0, 0)))
	assert.False(t, h.IsValid(geom.V(6, 0, 0)))
	assert.True(t, h.HasSurface(2), "referenced cell surfaces join the set")

	hits := h.CalcSurfIntersection(geom.V(-4, 0, 0), geom.V(1, 0, 0))
	var got []int
	var dists []float64
	for _, ip := range hits {
		got = append(got, ip.SurfNum)
		dists = append(dists, ip.Dist)
	}
	assert.Equal(t, []int{-20, 1, 2, 20}, got)
	assert.InDeltaSlice(t, []float64{-1, 3, 5, 9}, dists, 1e-9)

	pos := MustParse("##5")
	require.NoError(t, pos.Populate(r, cells))
	assert.True(t, pos.IsValid(geom.V(0, 0, 0)))
	assert.False(t, pos.IsValid(geom.V(3, 0, 0)))
}
