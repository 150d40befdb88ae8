package surface

import (
	"math"
	"testing"

	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLine(t *testing.T, o, d geom.Vec) geom.Line {
	t.Helper()
	l, err := geom.NewLine(o, d)
	require.NoError(t, err)
	return l
}

func TestPlaneSideAndIntersect(t *testing.T) {
	p, err := PX(1, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, p.Side(geom.V(3, 0, 0)))
	assert.Equal(t, -1, p.Side(geom.V(1, 5, 5)))
	assert.Equal(t, 0, p.Side(geom.V(2, 7, -1)))

	ts := p.Intersect(mustLine(t, geom.V(0, 0, 0), geom.V(1, 0, 0)))
	require.Len(t, ts, 1)
	assert.InDelta(t, 2.0, ts[0], 1e-12)

	assert.Empty(t, p.Intersect(mustLine(t, geom.V(0, 0, 0), geom.V(0, 1, 0))))
	assert.Equal(t, "1 px 2", p.String())
}

func TestPlaneRescalesNormal(t *testing.T) {
	p, err := NewPlane(4, geom.V(0, 0, 2), 6)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, p.Distance(), 1e-12)
	assert.Equal(t, 2, p.Axis())
	assert.Equal(t, "4 pz 3", p.String())
}

func TestSphere(t *testing.T) {
	s, err := NewSphere(7, geom.V(0, 0, 0), 2)
	require.NoError(t, err)

	assert.Equal(t, -1, s.Side(geom.V(0, 0, 0)))
	assert.Equal(t, 1, s.Side(geom.V(3, 0, 0)))
	assert.Equal(t, 0, s.Side(geom.V(0, 2, 0)))

	ts := s.Intersect(mustLine(t, geom.V(-5, 0, 0), geom.V(1, 0, 0)))
	require.Len(t, ts, 2)
	assert.InDelta(t, 3.0, ts[0], 1e-9)
	assert.InDelta(t, 7.0, ts[1], 1e-9)

	n := s.Normal(geom.V(2, 0, 0))
	assert.InDelta(t, 1.0, n.X, 1e-12)
	assert.Equal(t, "7 so 2", s.String())
}

func TestCylinder(t *testing.T) {
	c, err := NewCylinder(3, geom.V(0, 0, 0), geom.V(0, 0, 1), 1)
	require.NoError(t, err)

	assert.Equal(t, -1, c.Side(geom.V(0.5, 0, 100)))
	assert.Equal(t, 1, c.Side(geom.V(2, 0, -100)))
	assert.Equal(t, 0, c.Side(geom.V(0, 1, 3)))

	ts := c.Intersect(mustLine(t, geom.V(-3, 0, 5), geom.V(1, 0, 0)))
	require.Len(t, ts, 2)
	assert.InDelta(t, 2.0, ts[0], 1e-9)
	assert.InDelta(t, 4.0, ts[1], 1e-9)

	// A line along the axis never meets the wall.
	assert.Empty(t, c.Intersect(mustLine(t, geom.V(0, 0, 0), geom.V(0, 0, 1))))
	assert.Equal(t, "3 c/z 0 0 1", c.String())
}

func TestConeSideMatchesQuadric(t *testing.T) {
	c, err := NewCone(9, geom.V(0, 0, 0), geom.V(0, 0, 1), math.Pi/4)
	require.NoError(t, err)

	pts := []geom.Vec{
		geom.V(0.1, 0, 1), geom.V(2, 0, 1), geom.V(0, 0.5, -1), geom.V(0, 3, -1),
	}
	for _, p := range pts {
		assert.Equal(t, geom.Sign(c.q.eval(p), 0), c.Side(p), "point %v", p)
	}

	ts := c.Intersect(mustLine(t, geom.V(-5, 0, 1), geom.V(1, 0, 0)))
	require.Len(t, ts, 2)
	assert.InDelta(t, 4.0, ts[0], 1e-9)
	assert.InDelta(t, 6.0, ts[1], 1e-9)
}

func TestQuadraticMatchesSphere(t *testing.T) {
	s, err := NewSphere(1, geom.V(1, 2, 3), 4)
	require.NoError(t, err)
	g, err := NewQuadratic(2, s.Coefficients())
	require.NoError(t, err)

	assert.Equal(t, 1, Equivalent(s, g))
	for _, p := range []geom.Vec{geom.V(1, 2, 3), geom.V(10, 0, 0), geom.V(5, 2, 3)} {
		assert.Equal(t, s.Side(p), g.Side(p), "point %v", p)
	}

	_, err = NewQuadratic(3, [10]float64{})
	assert.Error(t, err)
}

func TestEquivalent(t *testing.T) {
	a, _ := PX(1, 2)
	b, _ := NewPlane(2, geom.V(2, 0, 0), 4)
	c, _ := NewPlane(3, geom.V(-1, 0, 0), -2)
	d, _ := PX(4, 3)

	assert.Equal(t, 1, Equivalent(a, b))
	assert.Equal(t, -1, Equivalent(a, c))
	assert.Equal(t, 0, Equivalent(a, d))
}

func TestConstructorValidation(t *testing.T) {
	_, err := PX(0, 1)
	assert.Error(t, err)
	_, err = NewSphere(1, geom.V(0, 0, 0), -1)
	assert.Error(t, err)
	_, err = NewCylinder(1, geom.V(0, 0, 0), geom.V(0, 0, 0), 1)
	assert.Error(t, err)
	_, err = NewCone(1, geom.V(0, 0, 0), geom.V(0, 0, 1), math.Pi/2)
	assert.Error(t, err)
}
