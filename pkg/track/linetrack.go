package track

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/chazu/csgtrack/pkg/cell"
	"github.com/chazu/csgtrack/pkg/geom"
)

// DefaultMaxHops bounds the cells a single track may cross.
const DefaultMaxHops = 100000

// Geometry is what tracking needs from a finalized model.
type Geometry interface {
	// FindCell returns the cell holding p, trying hint first.
	FindCell(p geom.Vec, hint *cell.Object) (*cell.Object, error)
	// FindNextObject returns the cell other than exclude that a ray
	// leaving p along dir across surface sn runs into, or nil.
	FindNextObject(sn int, p, dir geom.Vec, exclude int) *cell.Object
}

// Options tune track computation.
type Options struct {
	// MaxHops caps cells crossed per track; zero means DefaultMaxHops.
	MaxHops int
	// Verbose logs every hop at debug level.
	Verbose bool
	// Logger receives diagnostics; nil means slog.Default().
	Logger *slog.Logger
}

// LineTrack is a ray segment and the cells it crosses.
type LineTrack struct {
	InitPt  geom.Vec
	EndPt   geom.Vec
	UVec    geom.Vec // unit direction
	AimDist float64  // |EndPt - InitPt|

	Options

	tDist      float64
	units      []LineUnit
	terminated bool
}

// NewLineTrack returns a track from init to end.
func NewLineTrack(init, end geom.Vec) *LineTrack {
	lt := &LineTrack{InitPt: init, EndPt: end, AimDist: geom.Distance(init, end)}
	if u, err := geom.Unit(end.Sub(init)); err == nil {
		lt.UVec = u
	} else {
		lt.AimDist = 0
	}
	return lt
}

// NewLineTrackDir returns a track from init along dir for dist.
func NewLineTrackDir(init, dir geom.Vec, dist float64) (*LineTrack, error) {
	if dist < 0 {
		return nil, fmt.Errorf("track: negative aim distance %g", dist)
	}
	u, err := geom.Unit(dir)
	if err != nil {
		return nil, fmt.Errorf("track: %w", err)
	}
	return &LineTrack{
		InitPt:  init,
		EndPt:   init.Add(u.MulScalar(dist)),
		UVec:    u,
		AimDist: dist,
	}, nil
}

// ClearAll drops any computed result.
func (lt *LineTrack) ClearAll() {
	lt.tDist = 0
	lt.units = nil
	lt.terminated = false
}

func (lt *LineTrack) logger() *slog.Logger {
	if lt.Logger != nil {
		return lt.Logger
	}
	return slog.Default()
}

// pointAt returns the point dist along the track.
func (lt *LineTrack) pointAt(dist float64) geom.Vec {
	return lt.InitPt.Add(lt.UVec.MulScalar(dist))
}

// fail records and logs a topology failure.
func (lt *LineTrack) fail(kind TopologyKind, obj *cell.Object, sn int, pt geom.Vec, cause error) error {
	e := &TopologyError{
		Kind:   kind,
		Surf:   sn,
		Point:  pt,
		Dir:    lt.UVec,
		InitPt: lt.InitPt,
		EndPt:  lt.EndPt,
		Dist:   lt.tDist,
		Err:    cause,
	}
	if obj != nil {
		e.Cell = obj.Name()
	}
	lt.logger().Error("track topology error",
		"kind", kind.String(),
		"cell", e.Cell,
		"surf", sn,
		"point", geom.Format(pt),
		"dir", geom.Format(lt.UVec),
		"init", geom.Format(lt.InitPt),
		"end", geom.Format(lt.EndPt),
		"dist", lt.tDist,
		"hops", len(lt.units))
	return e
}

// Calculate walks the track through g. It stops on reaching EndPt or on
// entering a cell of zero importance. Any earlier result is discarded
// first. A failure leaves the units found so far in place and returns a
// *TopologyError.
func (lt *LineTrack) Calculate(g Geometry) error {
	lt.ClearAll()
	if lt.AimDist < geom.ZeroTol {
		return nil
	}
	maxHops := lt.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	log := lt.logger()

	pt := lt.InitPt
	obj, err := g.FindCell(pt, nil)
	if err != nil {
		return lt.fail(NoStartCell, nil, 0, pt, err)
	}

	// A start on the cell boundary heading out belongs to the neighbour.
	entry := 0
	if dir, sn := obj.TrackDirection(pt, lt.UVec); dir == cell.Leaving {
		next := g.FindNextObject(sn, pt, lt.UVec, obj.Name())
		if next == nil {
			return lt.fail(NoNextCell, obj, sn, pt, nil)
		}
		if lt.Verbose {
			log.Debug("start on boundary", "from", obj.Name(), "to", next.Name(), "surf", sn)
		}
		obj, entry = next, sn
	}

	for {
		if obj.Importance().IsZero() {
			lt.terminated = true
			if lt.Verbose {
				log.Debug("track terminated", "cell", obj.Name(), "dist", lt.tDist)
			}
			break
		}
		if len(lt.units) >= maxHops {
			return lt.fail(HopLimit, obj, 0, pt, ErrHopLimit)
		}

		sn, d, s, err := obj.TrackCell(pt, lt.UVec, entry)
		if err != nil {
			return lt.fail(NoExit, obj, 0, pt, err)
		}

		remain := lt.AimDist - lt.tDist
		if d >= remain-geom.ZeroTol {
			u := LineUnit{
				CellNumber:    obj.Name(),
				ExitPoint:     lt.EndPt,
				Object:        obj,
				SegmentLength: remain,
			}
			if d <= remain+geom.ZeroTol {
				u.SurfNumber, u.Surface = sn, s
			}
			lt.units = append(lt.units, u)
			lt.tDist = lt.AimDist
			if lt.Verbose {
				log.Debug("track reached end", "cell", obj.Name(), "len", remain)
			}
			break
		}

		lt.tDist += d
		pt = lt.pointAt(lt.tDist)
		lt.units = append(lt.units, LineUnit{
			CellNumber:    obj.Name(),
			ExitPoint:     pt,
			Object:        obj,
			SurfNumber:    sn,
			Surface:       s,
			SegmentLength: d,
		})

		next := g.FindNextObject(sn, pt, lt.UVec, obj.Name())
		if next == nil {
			return lt.fail(NoNextCell, obj, sn, pt, nil)
		}
		if lt.Verbose {
			log.Debug("track hop",
				"from", obj.Name(),
				"to", next.Name(),
				"surf", sn,
				"len", d,
				"point", geom.Format(pt),
				"dist", lt.tDist)
		}
		obj, entry = next, sn
	}

	for n := len(lt.units); n > 0 && lt.units[n-1].SegmentLength <= geom.ZeroTol; n-- {
		lt.units = lt.units[:n-1]
	}
	return nil
}

// Units returns the computed hops in order.
func (lt *LineTrack) Units() []LineUnit {
	return append([]LineUnit(nil), lt.units...)
}

// Len returns the number of hops.
func (lt *LineTrack) Len() int {
	return len(lt.units)
}

// TrackDistance returns the distance covered by the computed hops.
func (lt *LineTrack) TrackDistance() float64 {
	return lt.tDist
}

// Terminated reports whether the track stopped in a zero-importance cell
// before reaching EndPt.
func (lt *LineTrack) Terminated() bool {
	return lt.terminated
}

// CellNumbers returns the cell of every hop.
func (lt *LineTrack) CellNumbers() []int {
	out := make([]int, len(lt.units))
	for i, u := range lt.units {
		out[i] = u.CellNumber
	}
	return out
}

// Points returns the polyline InitPt, then every exit point.
func (lt *LineTrack) Points() []geom.Vec {
	out := make([]geom.Vec, 0, len(lt.units)+1)
	out = append(out, lt.InitPt)
	for _, u := range lt.units {
		out = append(out, u.ExitPoint)
	}
	return out
}

// String renders the track one hop per line.
func (lt *LineTrack) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "track %s -> %s (%g)\n", geom.Format(lt.InitPt), geom.Format(lt.EndPt), lt.AimDist)
	for _, u := range lt.units {
		b.WriteString("  ")
		b.WriteString(u.String())
		b.WriteByte('\n')
	}
	return b.String()
}
