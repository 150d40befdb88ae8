package rule

import (
	"fmt"
	"sort"

	"github.com/chazu/csgtrack/pkg/algebra"
	"github.com/chazu/csgtrack/pkg/surface"
	"github.com/samber/lo"
)

// ParseError is returned for malformed rule strings.
type ParseError = algebra.ParseError

// HeadRule is the boolean definition of a cell. The zero value is the
// empty rule, which every point satisfies.
//
// A HeadRule is not safe to copy once built: copies share node storage.
// Use Clone for an independent copy.
type HeadRule struct {
	nodes []node
	root  NodeID

	// Derived caches, rebuilt by Populate and dropped by every mutation.
	populated bool
	surfSet   []surface.Surface       // distinct surfaces, ascending name
	surfByKey map[int]surface.Surface // abs name -> surface
	paired    []int                   // abs names used with both signs
}

// Parse builds a rule from the cell grammar.
func Parse(s string) (HeadRule, error) {
	var h HeadRule
	if err := h.SetString(s); err != nil {
		return HeadRule{}, err
	}
	return h, nil
}

// MustParse is like Parse but panics on a malformed string.
func MustParse(s string) HeadRule {
	h, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return h
}

// FromSurf returns the rule holding the single half-space sn.
func FromSurf(sn int) HeadRule {
	var h HeadRule
	h.root = h.newNode(Leaf, sn, NoNode, NoNode)
	return h
}

// FromCellRef returns the rule "#cell": everything outside cell.
func FromCellRef(cell int) HeadRule {
	var h HeadRule
	h.root = h.newNode(CellRef, -iabs(cell), NoNode, NoNode)
	return h
}

// Intersect returns the intersection of the given rules. Empty rules are
// skipped.
func Intersect(rules ...HeadRule) HeadRule {
	var h HeadRule
	for i := range rules {
		h.AddIntersection(rules[i])
	}
	return h
}

// Unite returns the union of the given rules. Empty rules are skipped.
func Unite(rules ...HeadRule) HeadRule {
	var h HeadRule
	for i := range rules {
		h.AddUnion(rules[i])
	}
	return h
}

// SetString replaces the rule with the parse of s. On error the rule is
// left unchanged.
func (h *HeadRule) SetString(s string) error {
	e, err := algebra.Parse(s)
	if err != nil {
		return err
	}
	h.reset()
	if e != nil {
		h.root = h.buildExpr(e)
	}
	return nil
}

func (h *HeadRule) reset() {
	h.nodes = nil
	h.root = NoNode
	h.invalidate()
}

// invalidate drops every derived cache.
func (h *HeadRule) invalidate() {
	h.populated = false
	h.surfSet = nil
	h.surfByKey = nil
	h.paired = nil
}

func (h *HeadRule) n(id NodeID) *node {
	return &h.nodes[id-1]
}

func (h *HeadRule) newNode(kind Kind, key int, left, right NodeID) NodeID {
	h.nodes = append(h.nodes, node{kind: kind, key: key, left: left, right: right})
	id := NodeID(len(h.nodes))
	if left != NoNode {
		h.n(left).parent = id
	}
	if right != NoNode {
		h.n(right).parent = id
	}
	return id
}

// buildExpr appends the tree for e and returns its root. N-ary terms
// become left-leaning chains of binary joins.
func (h *HeadRule) buildExpr(e algebra.Expr) NodeID {
	switch v := e.(type) {
	case algebra.Lit:
		if v.Cell {
			return h.newNode(CellRef, v.Key, NoNode, NoNode)
		}
		return h.newNode(Leaf, v.Key, NoNode, NoNode)
	case algebra.And:
		cur := h.buildExpr(v[0])
		for _, t := range v[1:] {
			cur = h.newNode(Intersection, 0, cur, h.buildExpr(t))
		}
		return cur
	case algebra.Or:
		cur := h.buildExpr(v[0])
		for _, t := range v[1:] {
			cur = h.newNode(Union, 0, cur, h.buildExpr(t))
		}
		return cur
	}
	panic(fmt.Sprintf("rule: unknown expression %T", e))
}

// copyFrom appends a copy of src's subtree at id and returns the new root.
// Surface and cell bindings are carried over.
func (h *HeadRule) copyFrom(src *HeadRule, id NodeID) NodeID {
	if id == NoNode {
		return NoNode
	}
	s := src.n(id)
	left := h.copyFrom(src, s.left)
	right := h.copyFrom(src, s.right)
	nid := h.newNode(s.kind, s.key, left, right)
	h.n(nid).surf = s.surf
	h.n(nid).cell = s.cell
	return nid
}

// expr converts the subtree at id to an algebra expression.
func (h *HeadRule) expr(id NodeID) algebra.Expr {
	nd := h.n(id)
	switch nd.kind {
	case Leaf:
		return algebra.Lit{Key: nd.key}
	case CellRef:
		return algebra.Lit{Key: nd.key, Cell: true}
	case Intersection:
		return algebra.Flatten(algebra.And{h.expr(nd.left), h.expr(nd.right)})
	case Union:
		return algebra.Flatten(algebra.Or{h.expr(nd.left), h.expr(nd.right)})
	}
	panic(fmt.Sprintf("rule: unknown node kind %v", nd.kind))
}

// Expr returns the rule as an algebra expression, nil when empty.
func (h *HeadRule) Expr() algebra.Expr {
	if h.root == NoNode {
		return nil
	}
	return h.expr(h.root)
}

// String renders the rule in the cell grammar. The empty rule renders as
// an empty string.
func (h HeadRule) String() string {
	if h.root == NoNode {
		return ""
	}
	return h.expr(h.root).String()
}

// Display is String padded with a leading space when non-empty, the form
// used when appending a rule to a cell card.
func (h *HeadRule) Display() string {
	if h.root == NoNode {
		return ""
	}
	return " " + h.String()
}

// IsEmpty reports whether the rule has no tree (always valid).
func (h *HeadRule) IsEmpty() bool {
	return h.root == NoNode
}

// Root returns the handle of the root node.
func (h *HeadRule) Root() NodeID {
	return h.root
}

// Node returns a view of the node with handle id.
func (h *HeadRule) Node(id NodeID) (NodeInfo, bool) {
	if id <= NoNode || int(id) > len(h.nodes) {
		return NodeInfo{}, false
	}
	nd := h.n(id)
	return NodeInfo{Kind: nd.kind, Key: nd.key, Left: nd.left, Right: nd.right, Parent: nd.parent}, true
}

// Clone returns an independent copy holding only the reachable nodes.
func (h *HeadRule) Clone() HeadRule {
	var c HeadRule
	if h.root == NoNode {
		return c
	}
	c.nodes = make([]node, 0, len(h.nodes))
	c.root = c.copyFrom(h, h.root)
	if h.populated {
		c.populated = true
		c.surfSet = append([]surface.Surface(nil), h.surfSet...)
		c.surfByKey = make(map[int]surface.Surface, len(h.surfByKey))
		for k, v := range h.surfByKey {
			c.surfByKey[k] = v
		}
		c.paired = append([]int(nil), h.paired...)
	}
	return c
}

// Subtree returns a copy of the subtree rooted at id as its own rule.
func (h *HeadRule) Subtree(id NodeID) HeadRule {
	var c HeadRule
	if id == NoNode {
		return c
	}
	c.root = c.copyFrom(h, id)
	return c
}

// IsUnion reports whether the top-level join is a union.
func (h *HeadRule) IsUnion() bool {
	return h.root != NoNode && h.n(h.root).kind == Union
}

// IsIntersection reports whether the top-level join is an intersection.
func (h *HeadRule) IsIntersection() bool {
	return h.root != NoNode && h.n(h.root).kind == Intersection
}

// walk visits every reachable node below id in depth-first order.
func (h *HeadRule) walk(id NodeID, visit func(NodeID, *node)) {
	if id == NoNode {
		return
	}
	nd := h.n(id)
	visit(id, nd)
	h.walk(nd.left, visit)
	h.walk(nd.right, visit)
}

// SurfNumbers returns the distinct signed surface numbers of the leaves,
// ascending.
func (h *HeadRule) SurfNumbers() []int {
	seen := make(map[int]bool)
	h.walk(h.root, func(_ NodeID, nd *node) {
		if nd.kind == Leaf {
			seen[nd.key] = true
		}
	})
	return sortedKeys(seen)
}

// SurfKeys returns the distinct unsigned surface names of the leaves,
// ascending.
func (h *HeadRule) SurfKeys() []int {
	seen := make(map[int]bool)
	h.walk(h.root, func(_ NodeID, nd *node) {
		if nd.kind == Leaf {
			seen[iabs(nd.key)] = true
		}
	})
	return sortedKeys(seen)
}

// CellRefs returns the distinct signed cell references, ascending.
func (h *HeadRule) CellRefs() []int {
	seen := make(map[int]bool)
	h.walk(h.root, func(_ NodeID, nd *node) {
		if nd.kind == CellRef {
			seen[nd.key] = true
		}
	})
	return sortedKeys(seen)
}

// LeafCount returns the number of leaves (with repetition).
func (h *HeadRule) LeafCount() int {
	count := 0
	h.walk(h.root, func(_ NodeID, nd *node) {
		if nd.kind == Leaf || nd.kind == CellRef {
			count++
		}
	})
	return count
}

func sortedKeys(m map[int]bool) []int {
	out := lo.Keys(m)
	sort.Ints(out)
	return out
}
