package track

import (
	"fmt"

	"github.com/chazu/csgtrack/pkg/cell"
	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/surface"
)

// LineUnit is one hop of a track: the segment inside one cell.
type LineUnit struct {
	CellNumber    int
	ExitPoint     geom.Vec
	Object        *cell.Object
	SurfNumber    int // exit surface signed by the side entered; zero when the track ends inside the cell
	Surface       surface.Surface
	SegmentLength float64
}

func (u LineUnit) String() string {
	return fmt.Sprintf("cell %d -> %s surf %d len %g",
		u.CellNumber, geom.Format(u.ExitPoint), u.SurfNumber, u.SegmentLength)
}
