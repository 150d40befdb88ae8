package track

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/chazu/csgtrack/pkg/geom"
	"golang.org/x/sync/errgroup"
)

// AttnExponent is the power of the mean atomic mass in the attenuation
// proxy density * A^AttnExponent per unit length.
const AttnExponent = 0.66

// endpoints maps a cell's reference point to the track to compute.
type endpoints func(pt geom.Vec) (init, end geom.Vec)

// tracker holds one LineTrack per cell.
type tracker struct {
	Options

	mu    sync.RWMutex
	items map[int]*LineTrack
	ends  endpoints
}

func newTracker(ends endpoints) *tracker {
	return &tracker{items: make(map[int]*LineTrack), ends: ends}
}

func (t *tracker) compute(g Geometry, pt geom.Vec) (*LineTrack, error) {
	init, end := t.ends(pt)
	lt := NewLineTrack(init, end)
	lt.Options = t.Options
	if err := lt.Calculate(g); err != nil {
		return nil, err
	}
	return lt, nil
}

// AddUnit computes and stores the track for cellN from its reference point
// pt. On failure nothing is stored and tracks already held are unchanged.
func (t *tracker) AddUnit(g Geometry, cellN int, pt geom.Vec) error {
	lt, err := t.compute(g, pt)
	if err != nil {
		return fmt.Errorf("track: cell %d: %w", cellN, err)
	}
	t.mu.Lock()
	t.items[cellN] = lt
	t.mu.Unlock()
	return nil
}

// CreateAll computes the tracks for every cell in points concurrently.
// Successful tracks are stored even when others fail; the returned error
// joins every failure. workers <= 0 uses GOMAXPROCS.
func (t *tracker) CreateAll(ctx context.Context, g Geometry, points map[int]geom.Vec, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	cells := make([]int, 0, len(points))
	for c := range points {
		cells = append(cells, c)
	}
	sort.Ints(cells)

	errs := make([]error, len(cells))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, c := range cells {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			errs[i] = t.AddUnit(g, c, points[c])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Track returns the stored track of cellN.
func (t *tracker) Track(cellN int) (*LineTrack, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lt, ok := t.items[cellN]
	if !ok {
		return nil, fmt.Errorf("cell %d: %w", cellN, ErrNoTrack)
	}
	return lt, nil
}

// Cells returns the cells with a stored track, ascending.
func (t *tracker) Cells() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int, 0, len(t.items))
	for c := range t.items {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Clear drops every stored track.
func (t *tracker) Clear() {
	t.mu.Lock()
	t.items = make(map[int]*LineTrack)
	t.mu.Unlock()
}

func (t *tracker) sum(cellN int, f func(LineUnit) float64) (float64, error) {
	lt, err := t.Track(cellN)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, u := range lt.units {
		total += f(u)
	}
	return total, nil
}

// GetMatSum returns the path length of cellN's track through non-void
// material.
func (t *tracker) GetMatSum(cellN int) (float64, error) {
	return t.sum(cellN, func(u LineUnit) float64 {
		if u.Object.IsVoid() {
			return 0
		}
		return u.SegmentLength
	})
}

// GetAttnSum returns the attenuation of cellN's track: the sum over hops
// of length * atom density * meanA^0.66.
func (t *tracker) GetAttnSum(cellN int) (float64, error) {
	return t.sum(cellN, func(u LineUnit) float64 {
		m := u.Object.Material()
		if m.IsVoid() {
			return 0
		}
		return u.SegmentLength * m.AtomDensity() * math.Pow(m.MeanA(), AttnExponent)
	})
}

// GetDistance returns the total length of cellN's track.
func (t *tracker) GetDistance(cellN int) (float64, error) {
	return t.sum(cellN, func(u LineUnit) float64 { return u.SegmentLength })
}

// ----------------------------------------------------------------------------
// Variants
// ----------------------------------------------------------------------------

// ObjectTrackAct tracks from a point in each cell to one fixed target,
// for activation estimates at the target.
type ObjectTrackAct struct {
	*tracker
	TargetPt geom.Vec
}

// NewObjectTrackAct returns tracks aimed at target.
func NewObjectTrackAct(target geom.Vec, opts Options) *ObjectTrackAct {
	a := &ObjectTrackAct{TargetPt: target}
	a.tracker = newTracker(func(pt geom.Vec) (geom.Vec, geom.Vec) { return pt, a.TargetPt })
	a.Options = opts
	return a
}

// ObjectTrackPoint tracks from one fixed origin to a point in each cell.
type ObjectTrackPoint struct {
	*tracker
	InitPt geom.Vec
}

// NewObjectTrackPoint returns tracks starting at origin.
func NewObjectTrackPoint(origin geom.Vec, opts Options) *ObjectTrackPoint {
	p := &ObjectTrackPoint{InitPt: origin}
	p.tracker = newTracker(func(pt geom.Vec) (geom.Vec, geom.Vec) { return p.InitPt, pt })
	p.Options = opts
	return p
}

// ObjectTrackPlane tracks from a point in each cell straight to its
// projection on a plane.
type ObjectTrackPlane struct {
	*tracker
	Origin geom.Vec
	Normal geom.Vec
}

// NewObjectTrackPlane returns tracks ending on the plane through origin
// with the given normal.
func NewObjectTrackPlane(origin, normal geom.Vec, opts Options) (*ObjectTrackPlane, error) {
	n, err := geom.Unit(normal)
	if err != nil {
		return nil, fmt.Errorf("track: plane normal: %w", err)
	}
	p := &ObjectTrackPlane{Origin: origin, Normal: n}
	p.tracker = newTracker(func(pt geom.Vec) (geom.Vec, geom.Vec) {
		h := pt.Sub(p.Origin).Dot(p.Normal)
		return pt, pt.Sub(p.Normal.MulScalar(h))
	})
	p.Options = opts
	return p, nil
}
