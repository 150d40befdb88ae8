package geometry

import (
	"fmt"
	"sort"

	"github.com/chazu/csgtrack/pkg/cell"
	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/dhconnelly/rtreego"
)

// Boxes are widened by this much so points on a cell face still hit it.
const boxPad = 1e-4

// indexed adapts a cell to rtreego.Spatial.
type indexed struct {
	obj  *cell.Object
	rect rtreego.Rect
}

func (i *indexed) Bounds() rtreego.Rect { return i.rect }

// locator finds candidate cells for a point: an R-tree over finite cell
// bounds plus a list of cells with no finite bound.
type locator struct {
	tree      *rtreego.Rtree
	unbounded []*cell.Object
}

func newLocator(cells []*cell.Object) (*locator, error) {
	loc := &locator{tree: rtreego.NewTree(3, 8, 32)}
	for _, o := range cells {
		b := o.Bounds()
		if geom.BoxIsEmpty(b) {
			return nil, fmt.Errorf("cell %d: empty bounding box %v", o.Name(), b)
		}
		if !geom.BoxIsFinite(b) {
			loc.unbounded = append(loc.unbounded, o)
			continue
		}
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{b.Min.X - boxPad, b.Min.Y - boxPad, b.Min.Z - boxPad},
			rtreego.Point{b.Max.X + boxPad, b.Max.Y + boxPad, b.Max.Z + boxPad},
		)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", o.Name(), err)
		}
		loc.tree.Insert(&indexed{obj: o, rect: rect})
	}
	return loc, nil
}

func (l *locator) indexedCount() int {
	return l.tree.Size()
}

// candidates returns the bounded cells whose box holds p, ascending by
// name, followed by the unbounded cells in name order.
func (l *locator) candidates(p geom.Vec) []*cell.Object {
	hits := l.tree.SearchIntersect(rtreego.Point{p.X, p.Y, p.Z}.ToRect(boxPad))
	out := make([]*cell.Object, 0, len(hits)+len(l.unbounded))
	for _, h := range hits {
		out = append(out, h.(*indexed).obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return append(out, l.unbounded...)
}
