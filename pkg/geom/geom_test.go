package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveQuadraticTwoRoots(t *testing.T) {
	// (t-1)(t-3) = t^2 - 4t + 3
	roots := SolveQuadratic(1, -4, 3)
	require.Len(t, roots, 2)
	assert.InDelta(t, 1.0, roots[0], 1e-12)
	assert.InDelta(t, 3.0, roots[1], 1e-12)
}

func TestSolveQuadraticTangentAndMiss(t *testing.T) {
	roots := SolveQuadratic(1, -2, 1)
	require.Len(t, roots, 1)
	assert.InDelta(t, 1.0, roots[0], 1e-12)

	assert.Empty(t, SolveQuadratic(1, 0, 1))
}

func TestSolveQuadraticLinear(t *testing.T) {
	roots := SolveQuadratic(0, 2, -4)
	require.Len(t, roots, 1)
	assert.InDelta(t, 2.0, roots[0], 1e-12)
	assert.Empty(t, SolveQuadratic(0, 0, 1))
}

func TestLinePointAndParam(t *testing.T) {
	l, err := NewLine(V(1, 0, 0), V(0, 3, 0))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, l.Dir.Length(), 1e-12)

	p := l.Point(2)
	assert.True(t, Near(p, V(1, 2, 0), 1e-12))
	assert.InDelta(t, 2.0, l.Param(p), 1e-12)
	assert.InDelta(t, -1.0, l.Param(V(5, -1, 7)), 1e-12)
}

func TestNewLineRejectsZeroDirection(t *testing.T) {
	_, err := NewLine(V(0, 0, 0), V(0, 0, 0))
	assert.Error(t, err)
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1, Sign(0.1, 1e-6))
	assert.Equal(t, -1, Sign(-0.1, 1e-6))
	assert.Equal(t, 0, Sign(1e-9, 1e-6))
}

func TestBoxHelpers(t *testing.T) {
	b := NewBox(V(1, 1, 1), V(-1, -1, -1))
	assert.Equal(t, V(-1, -1, -1), b.Min)
	assert.True(t, BoxContains(b, V(0, 0, 0), 0))
	assert.True(t, BoxContains(b, V(1, 0, 0), 0))
	assert.False(t, BoxContains(b, V(1.1, 0, 0), 0))
	assert.True(t, BoxIsFinite(b))
	assert.False(t, BoxIsFinite(InfiniteBox()))

	o := BoxIntersect(b, NewBox(V(0, 0, 0), V(5, 5, 5)))
	assert.False(t, BoxIsEmpty(o))
	assert.Equal(t, V(1, 1, 1), o.Max)

	assert.True(t, BoxIsEmpty(BoxIntersect(b, NewBox(V(3, 3, 3), V(4, 4, 4)))))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(V(1, 2, 3)))
	assert.False(t, IsFinite(V(math.Inf(1), 0, 0)))
	assert.False(t, IsFinite(V(0, math.NaN(), 0)))
}

func TestParseVec(t *testing.T) {
	v, err := ParseVec(" 1, -2.5,3e1 ")
	require.NoError(t, err)
	assert.Equal(t, V(1, -2.5, 30), v)

	v, err = ParseVec(Format(V(0.5, 0, -1)))
	require.NoError(t, err)
	assert.Equal(t, V(0.5, 0, -1), v)

	_, err = ParseVec("1,2")
	assert.Error(t, err)
	_, err = ParseVec("1,x,2")
	assert.Error(t, err)
}
