package track

import (
	"errors"
	"fmt"

	"github.com/chazu/csgtrack/pkg/geom"
)

var (
	// ErrTopology matches every TopologyError.
	ErrTopology = errors.New("geometry topology error")

	// ErrHopLimit is the cause of a TopologyError raised when a track
	// crosses more cells than its hop limit allows.
	ErrHopLimit = errors.New("hop limit exceeded")

	// ErrNoTrack is returned when a cell has no stored track.
	ErrNoTrack = errors.New("no track for cell")
)

// TopologyKind classifies topology failures.
type TopologyKind int

const (
	NoStartCell TopologyKind = iota // no cell holds the start point
	NoExit                          // the ray never leaves the current cell
	NoNextCell                      // no cell lies across the exit surface
	HopLimit                        // too many cells crossed
)

func (k TopologyKind) String() string {
	switch k {
	case NoStartCell:
		return "no start cell"
	case NoExit:
		return "no exit surface"
	case NoNextCell:
		return "no next cell"
	case HopLimit:
		return "hop limit"
	default:
		return fmt.Sprintf("TopologyKind(%d)", int(k))
	}
}

// TopologyError reports a ray that cannot be followed through the
// geometry, with the full ray state at the point of failure.
type TopologyError struct {
	Kind   TopologyKind
	Cell   int // current cell, zero if none
	Surf   int // exit surface, zero if none
	Point  geom.Vec
	Dir    geom.Vec
	InitPt geom.Vec
	EndPt  geom.Vec
	Dist   float64 // distance travelled from InitPt
	Err    error   // underlying cause, may be nil
}

func (e *TopologyError) Error() string {
	msg := fmt.Sprintf("track %s -> %s: %s in cell %d", geom.Format(e.InitPt), geom.Format(e.EndPt), e.Kind, e.Cell)
	if e.Surf != 0 {
		msg += fmt.Sprintf(" across surface %d", e.Surf)
	}
	msg += fmt.Sprintf(" at %s (dist %g)", geom.Format(e.Point), e.Dist)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TopologyError) Unwrap() error { return e.Err }

func (e *TopologyError) Is(target error) bool { return target == ErrTopology }
