package rule

import "github.com/chazu/csgtrack/pkg/surface"

// NodeID is a handle to a node inside one HeadRule. The zero value means
// no node.
type NodeID int32

// NoNode is the null handle.
const NoNode NodeID = 0

// Kind is the node type.
type Kind uint8

const (
	Leaf         Kind = iota // signed surface half-space
	CellRef                  // signed reference to another cell's rule
	Intersection             // both children hold
	Union                    // either child holds
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case CellRef:
		return "cellref"
	case Intersection:
		return "intersection"
	case Union:
		return "union"
	default:
		return "unknown"
	}
}

// Type returns the join discriminant: +1 intersection, -1 union and 0 for
// leaves and cell references.
func (k Kind) Type() int {
	switch k {
	case Intersection:
		return 1
	case Union:
		return -1
	}
	return 0
}

// IsJoin reports whether k has two children.
func (k Kind) IsJoin() bool {
	return k == Intersection || k == Union
}

type node struct {
	kind   Kind
	key    int
	left   NodeID
	right  NodeID
	parent NodeID

	surf surface.Surface // Leaf binding, set by Populate
	cell *HeadRule       // CellRef binding, set by Populate
}

// NodeInfo is a read-only view of one node.
type NodeInfo struct {
	Kind   Kind
	Key    int
	Left   NodeID
	Right  NodeID
	Parent NodeID
}

func sgn(x int) int {
	if x < 0 {
		return -1
	}
	return 1
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
