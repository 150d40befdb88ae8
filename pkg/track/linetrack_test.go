package track

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/chazu/csgtrack/pkg/cell"
	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/geometry"
	"github.com/chazu/csgtrack/pkg/material"
	"github.com/chazu/csgtrack/pkg/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

// buildCubes returns cube A on [-1,1]^3 (cell 1, iron) and cube B on
// [1,3]x[-1,1]^2 (cell 2, void) sharing the face x=1. With outer set the
// space around them inside a sphere of radius 10 is void cell 3; the
// graveyard outside the sphere is cell 4 with zero importance.
func buildCubes(t *testing.T, outer bool) *geometry.Model {
	t.Helper()
	m := geometry.New()
	add := func(s surface.Surface, err error) {
		require.NoError(t, err)
		_, err = m.AddSurface(s)
		require.NoError(t, err)
	}
	add(surface.PX(1, -1))
	add(surface.PX(2, 1))
	add(surface.PY(3, -1))
	add(surface.PY(4, 1))
	add(surface.PZ(5, -1))
	add(surface.PZ(6, 1))
	add(surface.PX(7, 3))
	add(surface.NewSphere(8, geom.V(0, 0, 0), 10))
	require.NoError(t, m.AddMaterial(material.MustNew(26, "iron", 0.0847,
		[]material.Component{{Zaid: 26056, Fraction: 1}})))

	newCell := func(name, mat int, text string) *cell.Object {
		o, err := m.NewCell(name, mat, 0, text)
		require.NoError(t, err)
		return o
	}
	newCell(1, 26, "1 -2 3 -4 5 -6")
	newCell(2, 0, "2 -7 3 -4 5 -6")
	if outer {
		newCell(3, 0, "-8 #1 #2")
	}
	newCell(4, 0, "8").SetImportance(cell.NewImportance(0))
	require.NoError(t, m.Finalize())
	return m
}

func lengths(lt *LineTrack) []float64 {
	out := make([]float64, lt.Len())
	for i, u := range lt.Units() {
		out[i] = u.SegmentLength
	}
	return out
}

// checkTrack asserts segment additivity, polyline continuity and a genuine
// validity flip at every interior boundary: the cell holds the track just
// before each exit point and not just after it.
func checkTrack(t *testing.T, lt *LineTrack) {
	t.Helper()
	total := 0.0
	prev := lt.InitPt
	units := lt.Units()
	for i, u := range units {
		total += u.SegmentLength
		assert.InDelta(t, u.SegmentLength, geom.Distance(prev, u.ExitPoint), 1e-7, "hop %d", i)
		prev = u.ExitPoint
		if i < len(units)-1 {
			require.NotZero(t, u.SurfNumber, "hop %d", i)
			assert.True(t, u.Object.IsValidAlong(u.ExitPoint, lt.UVec.MulScalar(-1)), "hop %d", i)
			assert.False(t, u.Object.IsValidAlong(u.ExitPoint, lt.UVec), "hop %d", i)
		}
	}
	if !lt.Terminated() {
		assert.InDelta(t, geom.Distance(lt.InitPt, lt.EndPt), total, 1e-7)
		assert.True(t, geom.Near(prev, lt.EndPt, 1e-7))
	}
}

func TestTwoCubesAcrossSharedFace(t *testing.T) {
	m := buildCubes(t, true)
	lt := NewLineTrack(geom.V(-1, 0, 0), geom.V(3, 0, 0))
	require.NoError(t, lt.Calculate(m))

	require.Equal(t, 2, lt.Len())
	assert.Equal(t, []int{1, 2}, lt.CellNumbers())
	assert.InDeltaSlice(t, []float64{2, 2}, lengths(lt), tol)
	u := lt.Units()[0]
	assert.True(t, geom.Near(u.ExitPoint, geom.V(1, 0, 0), tol))
	assert.Equal(t, 2, u.SurfNumber)
	assert.Equal(t, 2, u.Surface.Name())
	checkTrack(t, lt)

	// The shared face is resolved through the surface map: neither cube
	// uses it with both signs.
	for _, n := range []int{1, 2} {
		o, err := m.Cell(n)
		require.NoError(t, err)
		assert.Empty(t, o.Rule().PairedSurfaces())
	}
	objs := m.SurfMap().Objects(2)
	require.Len(t, objs, 3)
}

func TestTwoCubesThroughOuterVoid(t *testing.T) {
	m := buildCubes(t, true)
	lt := NewLineTrack(geom.V(-2, 0, 0), geom.V(4, 0, 0))
	require.NoError(t, lt.Calculate(m))

	assert.Equal(t, []int{3, 1, 2, 3}, lt.CellNumbers())
	assert.InDeltaSlice(t, []float64{1, 2, 2, 1}, lengths(lt), tol)
	assert.InDelta(t, 6.0, lt.TrackDistance(), tol)
	assert.False(t, lt.Terminated())
	last := lt.Units()[3]
	assert.Zero(t, last.SurfNumber, "track ends inside the void")
	checkTrack(t, lt)

	dirTrack, err := NewLineTrackDir(geom.V(-2, 0, 0), geom.V(2, 0, 0), 6)
	require.NoError(t, err)
	require.NoError(t, dirTrack.Calculate(m))
	assert.Equal(t, lt.CellNumbers(), dirTrack.CellNumbers())
	assert.True(t, geom.Near(dirTrack.EndPt, geom.V(4, 0, 0), tol))
}

func TestTracksThroughEdges(t *testing.T) {
	m := buildCubes(t, true)
	r2 := math.Sqrt2

	tests := []struct {
		name    string
		from    geom.Vec
		to      geom.Vec
		cells   []int
		lengths []float64
	}{
		{"leave iron through shared edge", geom.V(0, 0, 0), geom.V(2, 2, 0), []int{1, 3}, []float64{r2, r2}},
		{"start on shared edge", geom.V(1, 1, 0), geom.V(2, 2, 0), []int{3}, []float64{r2}},
		{"enter iron through edge", geom.V(-2, -2, 0), geom.V(0, 0, 0), []int{3, 1}, []float64{r2, r2}},
		{"cross the whole diagonal", geom.V(-2, -2, 0), geom.V(2, 2, 0), []int{3, 1, 3}, []float64{r2, 2 * r2, r2}},
		{"corner of both cubes", geom.V(0, 0, 0), geom.V(2, 2, 2), []int{1, 3}, []float64{math.Sqrt(3), math.Sqrt(3)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lt := NewLineTrack(tc.from, tc.to)
			require.NoError(t, lt.Calculate(m))
			assert.Equal(t, tc.cells, lt.CellNumbers())
			assert.InDeltaSlice(t, tc.lengths, lengths(lt), 1e-9)
			checkTrack(t, lt)
		})
	}
}

func TestMaterialSumThroughEdge(t *testing.T) {
	m := buildCubes(t, true)
	act := NewObjectTrackAct(geom.V(0, 0, 0), Options{})
	require.NoError(t, act.AddUnit(m, 3, geom.V(-2, -2, 0)))

	mat, err := act.GetMatSum(3)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, mat, 1e-9)
	dist, err := act.GetDistance(3)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Sqrt2, dist, 1e-9)
}

func TestTrackStopsAtZeroImportance(t *testing.T) {
	m := buildCubes(t, true)
	lt := NewLineTrack(geom.V(0, 0, 0), geom.V(20, 0, 0))
	require.NoError(t, lt.Calculate(m))

	assert.True(t, lt.Terminated())
	assert.Equal(t, []int{1, 2, 3}, lt.CellNumbers())
	assert.InDeltaSlice(t, []float64{1, 2, 7}, lengths(lt), tol)
	assert.Equal(t, 8, lt.Units()[2].SurfNumber)
	checkTrack(t, lt)

	inside := NewLineTrack(geom.V(20, 0, 0), geom.V(30, 0, 0))
	require.NoError(t, inside.Calculate(m))
	assert.Zero(t, inside.Len())
	assert.True(t, inside.Terminated())
}

func TestStartOnBoundary(t *testing.T) {
	m := buildCubes(t, true)

	out := NewLineTrack(geom.V(1, 0, 0), geom.V(2, 0, 0))
	require.NoError(t, out.Calculate(m))
	assert.Equal(t, []int{2}, out.CellNumbers())
	assert.InDeltaSlice(t, []float64{1}, lengths(out), tol)

	back := NewLineTrack(geom.V(1, 0, 0), geom.V(0, 0, 0))
	require.NoError(t, back.Calculate(m))
	assert.Equal(t, []int{1}, back.CellNumbers())

	// Ending exactly on a face records the face.
	face := NewLineTrack(geom.V(0, 0, 0), geom.V(1, 0, 0))
	require.NoError(t, face.Calculate(m))
	require.Equal(t, 1, face.Len())
	assert.Equal(t, 2, face.Units()[0].SurfNumber)
}

func TestObliqueTrack(t *testing.T) {
	m := buildCubes(t, true)
	lt := NewLineTrack(geom.V(-0.5, -0.5, 0.2), geom.V(2.5, 0.7, -0.3))
	require.NoError(t, lt.Calculate(m))
	checkTrack(t, lt)
	assert.Equal(t, []int{1, 2}, lt.CellNumbers())
}

func TestZeroLengthTrack(t *testing.T) {
	m := buildCubes(t, true)
	lt := NewLineTrack(geom.V(0, 0, 0), geom.V(0, 0, 0))
	require.NoError(t, lt.Calculate(m))
	assert.Zero(t, lt.Len())

	_, err := NewLineTrackDir(geom.V(0, 0, 0), geom.V(1, 0, 0), -1)
	assert.Error(t, err)
	_, err = NewLineTrackDir(geom.V(0, 0, 0), geom.V(0, 0, 0), 1)
	assert.Error(t, err)
}

func TestTopologyErrors(t *testing.T) {
	m := buildCubes(t, false)
	var buf bytes.Buffer
	opts := Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	lt := NewLineTrack(geom.V(0, 0, 0), geom.V(5, 0, 0))
	lt.Options = opts
	err := lt.Calculate(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTopology))
	var te *TopologyError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, NoNextCell, te.Kind)
	assert.Equal(t, 2, te.Cell)
	assert.Equal(t, 7, te.Surf)
	assert.True(t, geom.Near(te.Point, geom.V(3, 0, 0), tol))
	assert.Equal(t, []int{1, 2}, lt.CellNumbers(), "hops before the failure are kept")
	assert.Contains(t, buf.String(), "track topology error")
	assert.Contains(t, buf.String(), "kind=\"no next cell\"")

	start := NewLineTrack(geom.V(5, 0, 0), geom.V(6, 0, 0))
	err = start.Calculate(m)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, NoStartCell, te.Kind)
	assert.ErrorIs(t, err, geometry.ErrCellNotFound)
}

func TestHopLimit(t *testing.T) {
	m := buildCubes(t, true)
	lt := NewLineTrack(geom.V(-2, 0, 0), geom.V(4, 0, 0))
	lt.MaxHops = 2
	lt.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	err := lt.Calculate(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHopLimit)
	assert.ErrorIs(t, err, ErrTopology)
	assert.Equal(t, 2, lt.Len())
}

func TestVerboseLogsHops(t *testing.T) {
	m := buildCubes(t, true)
	var buf bytes.Buffer
	lt := NewLineTrack(geom.V(-2, 0, 0), geom.V(4, 0, 0))
	lt.Verbose = true
	lt.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	require.NoError(t, lt.Calculate(m))
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("track hop")))
	assert.Contains(t, buf.String(), "track reached end")
}

func TestRecalculateClearsPrevious(t *testing.T) {
	m := buildCubes(t, true)
	lt := NewLineTrack(geom.V(-1, 0, 0), geom.V(3, 0, 0))
	require.NoError(t, lt.Calculate(m))
	require.NoError(t, lt.Calculate(m))
	assert.Equal(t, 2, lt.Len())
	lt.ClearAll()
	assert.Zero(t, lt.Len())
	assert.Len(t, lt.Points(), 1)
	assert.False(t, math.IsNaN(lt.AimDist))
}
