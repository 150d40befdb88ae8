package rule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/csgtrack/pkg/surface"
)

// MaxPairedSurfaces caps the number of surfaces a single rule may use with
// both signs. On-surface evaluation enumerates every sign combination of
// the paired surfaces a point lies on, so the cost is exponential in this
// count.
var MaxPairedSurfaces = 10

var (
	// ErrTooManyPaired is returned by Populate when a rule has more paired
	// surfaces than MaxPairedSurfaces.
	ErrTooManyPaired = errors.New("too many paired surfaces")

	// ErrNoCellLookup is returned by Populate when a rule holds cell
	// references and no cell lookup was supplied.
	ErrNoCellLookup = errors.New("cell reference without cell lookup")
)

// SurfaceLookup resolves a signed surface number to its surface.
type SurfaceLookup interface {
	Surface(sn int) (surface.Surface, error)
}

// CellLookup resolves a cell name to that cell's rule.
type CellLookup interface {
	CellRule(name int) (*HeadRule, error)
}

// Populate binds every leaf to its surface and every cell reference to its
// rule, then rebuilds the surface caches. It must be called after any
// mutation and before the rule is evaluated.
//
// Leaves must already carry canonical surface numbers: a leaf whose number
// resolves to a differently named surface is rejected.
func (h *HeadRule) Populate(surfs SurfaceLookup, cells CellLookup) error {
	h.invalidate()
	var err error
	h.walk(h.root, func(_ NodeID, nd *node) {
		if err != nil {
			return
		}
		switch nd.kind {
		case Leaf:
			s, lerr := surfs.Surface(nd.key)
			if lerr != nil {
				err = fmt.Errorf("rule: leaf %d: %w", nd.key, lerr)
				return
			}
			if s.Name() != iabs(nd.key) {
				err = fmt.Errorf("rule: leaf %d resolves to surface %d", nd.key, s.Name())
				return
			}
			nd.surf = s
		case CellRef:
			if cells == nil {
				err = fmt.Errorf("rule: cell %d: %w", iabs(nd.key), ErrNoCellLookup)
				return
			}
			r, lerr := cells.CellRule(iabs(nd.key))
			if lerr != nil {
				err = fmt.Errorf("rule: cell reference %d: %w", iabs(nd.key), lerr)
				return
			}
			nd.cell = r
		}
	})
	if err != nil {
		return err
	}

	keys := make(map[int]bool)
	h.collectSurfKeys(keys, make(map[*HeadRule]bool))
	h.surfByKey = make(map[int]surface.Surface, len(keys))
	for k := range keys {
		s, lerr := surfs.Surface(k)
		if lerr != nil {
			return fmt.Errorf("rule: surface %d: %w", k, lerr)
		}
		h.surfByKey[k] = s
	}
	h.surfSet = make([]surface.Surface, 0, len(h.surfByKey))
	for _, k := range sortedKeys(keys) {
		h.surfSet = append(h.surfSet, h.surfByKey[k])
	}

	h.paired = h.calcPaired()
	if len(h.paired) > MaxPairedSurfaces {
		return fmt.Errorf("rule: %d paired surfaces (limit %d): %w",
			len(h.paired), MaxPairedSurfaces, ErrTooManyPaired)
	}
	h.populated = true
	return nil
}

// collectSurfKeys gathers the unsigned surface names of the rule and of
// every rule it references.
func (h *HeadRule) collectSurfKeys(keys map[int]bool, seen map[*HeadRule]bool) {
	if seen[h] {
		return
	}
	seen[h] = true
	h.walk(h.root, func(_ NodeID, nd *node) {
		switch nd.kind {
		case Leaf:
			keys[iabs(nd.key)] = true
		case CellRef:
			if nd.cell != nil {
				nd.cell.collectSurfKeys(keys, seen)
			}
		}
	})
}

// calcPaired returns the unsigned names of surfaces used with both signs
// in the rule's own leaves, ascending.
func (h *HeadRule) calcPaired() []int {
	signs := make(map[int]int)
	h.walk(h.root, func(_ NodeID, nd *node) {
		if nd.kind != Leaf {
			return
		}
		if nd.key > 0 {
			signs[nd.key] |= 1
		} else {
			signs[-nd.key] |= 2
		}
	})
	var out []int
	for k, v := range signs {
		if v == 3 {
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}

// IsPopulated reports whether the caches are current.
func (h *HeadRule) IsPopulated() bool {
	return h.populated || h.root == NoNode
}

// SurfSet returns the surfaces the rule depends on, including those of
// referenced cells, ascending by name.
func (h *HeadRule) SurfSet() []surface.Surface {
	h.mustPopulated()
	return append([]surface.Surface(nil), h.surfSet...)
}

// PairedSurfaces returns the names of surfaces used with both signs in the
// rule, ascending.
func (h *HeadRule) PairedSurfaces() []int {
	h.mustPopulated()
	return append([]int(nil), h.paired...)
}

// HasSurface reports whether surface |sn| is in the rule's surface set.
func (h *HeadRule) HasSurface(sn int) bool {
	h.mustPopulated()
	_, ok := h.surfByKey[iabs(sn)]
	return ok
}

func (h *HeadRule) mustPopulated() {
	if !h.populated && h.root != NoNode {
		panic("rule: " + h.String() + ": used before Populate")
	}
}
