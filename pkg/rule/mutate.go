package rule

import "github.com/chazu/csgtrack/pkg/algebra"

// ----------------------------------------------------------------------------
// Additions
// ----------------------------------------------------------------------------

// createAddition joins the subtree sub into the rule with the given join
// kind and returns sub. When the root already has that kind the walk
// follows right children down the chain and wraps the first node of a
// different kind, so the chain stays a single logical n-ary join with sub
// as its last operand.
func (h *HeadRule) createAddition(join Kind, sub NodeID) NodeID {
	h.invalidate()
	if h.root == NoNode {
		h.root = sub
		h.n(sub).parent = NoNode
		return sub
	}
	if h.n(h.root).kind != join {
		h.root = h.newNode(join, 0, h.root, sub)
		h.n(h.root).parent = NoNode
		return sub
	}
	cur := h.root
	for {
		right := h.n(cur).right
		if h.n(right).kind != join {
			break
		}
		cur = right
	}
	old := h.n(cur).right
	wrap := h.newNode(join, 0, old, sub)
	h.n(cur).right = wrap
	h.n(wrap).parent = cur
	return sub
}

func (h *HeadRule) addRule(join Kind, other *HeadRule) NodeID {
	if other == nil || other.root == NoNode {
		return NoNode
	}
	src := other
	if other == h {
		c := other.Clone()
		src = &c
	}
	sub := h.copyFrom(src, src.root)
	return h.createAddition(join, sub)
}

// AddIntersection intersects the rule with other and returns the handle
// of the inserted copy. Adding an empty rule is a no-op returning NoNode.
func (h *HeadRule) AddIntersection(other HeadRule) NodeID {
	return h.addRule(Intersection, &other)
}

// AddUnion unites the rule with other and returns the handle of the
// inserted copy.
func (h *HeadRule) AddUnion(other HeadRule) NodeID {
	return h.addRule(Union, &other)
}

// AddIntersectionSurf intersects the rule with the half-space sn.
func (h *HeadRule) AddIntersectionSurf(sn int) NodeID {
	return h.createAddition(Intersection, h.newNode(Leaf, sn, NoNode, NoNode))
}

// AddUnionSurf unites the rule with the half-space sn.
func (h *HeadRule) AddUnionSurf(sn int) NodeID {
	return h.createAddition(Union, h.newNode(Leaf, sn, NoNode, NoNode))
}

// AddIntersectionString intersects the rule with the parse of s.
func (h *HeadRule) AddIntersectionString(s string) (NodeID, error) {
	other, err := Parse(s)
	if err != nil {
		return NoNode, err
	}
	return h.AddIntersection(other), nil
}

// AddUnionString unites the rule with the parse of s.
func (h *HeadRule) AddUnionString(s string) (NodeID, error) {
	other, err := Parse(s)
	if err != nil {
		return NoNode, err
	}
	return h.AddUnion(other), nil
}

// ----------------------------------------------------------------------------
// Removal
// ----------------------------------------------------------------------------

// RemoveItem deletes the subtree at id. Its sibling takes the place of
// the parent join; removing the root leaves the empty rule. It reports
// whether id was part of the tree.
//
// Handles into the rule are invalidated by a successful removal.
func (h *HeadRule) RemoveItem(id NodeID) bool {
	if !h.reachable(id) {
		return false
	}
	h.invalidate()
	if id == h.root {
		h.reset()
		return true
	}
	parent := h.n(id).parent
	pn := h.n(parent)
	sibling := pn.left
	if sibling == id {
		sibling = pn.right
	}
	grand := pn.parent
	h.n(sibling).parent = grand
	switch {
	case grand == NoNode:
		h.root = sibling
	case h.n(grand).left == parent:
		h.n(grand).left = sibling
	default:
		h.n(grand).right = sibling
	}
	h.compact()
	return true
}

// reachable reports whether id is a live node of the tree.
func (h *HeadRule) reachable(id NodeID) bool {
	if id <= NoNode || int(id) > len(h.nodes) {
		return false
	}
	for cur := id; cur != NoNode; cur = h.n(cur).parent {
		if cur == h.root {
			return true
		}
	}
	return false
}

// compact drops unreachable nodes from the arena.
func (h *HeadRule) compact() {
	if h.root == NoNode {
		h.nodes = nil
		return
	}
	var c HeadRule
	c.nodes = make([]node, 0, len(h.nodes))
	c.root = c.copyFrom(h, h.root)
	h.nodes = c.nodes
	h.root = c.root
}

// RemoveSurf deletes every leaf whose signed number is exactly sn and
// returns the count removed.
func (h *HeadRule) RemoveSurf(sn int) int {
	count := 0
	for {
		target := NoNode
		h.walk(h.root, func(id NodeID, nd *node) {
			if target == NoNode && nd.kind == Leaf && nd.key == sn {
				target = id
			}
		})
		if target == NoNode {
			return count
		}
		h.RemoveItem(target)
		count++
	}
}

// RemoveCellRef deletes every cell reference with signed key ref and
// returns the count removed.
func (h *HeadRule) RemoveCellRef(ref int) int {
	count := 0
	for {
		target := NoNode
		h.walk(h.root, func(id NodeID, nd *node) {
			if target == NoNode && nd.kind == CellRef && nd.key == ref {
				target = id
			}
		})
		if target == NoNode {
			return count
		}
		h.RemoveItem(target)
		count++
	}
}

// ----------------------------------------------------------------------------
// Rewrites
// ----------------------------------------------------------------------------

// SubstituteSurf replaces references to surface |oldSN| with newSN. A leaf
// with the same sign as oldSN becomes newSN and a leaf of opposite sign
// becomes -newSN. It returns the number of leaves changed.
func (h *HeadRule) SubstituteSurf(oldSN, newSN int) int {
	if oldSN == 0 || newSN == 0 {
		return 0
	}
	count := 0
	h.walk(h.root, func(_ NodeID, nd *node) {
		if nd.kind == Leaf && iabs(nd.key) == iabs(oldSN) {
			nd.key = sgn(nd.key) * sgn(oldSN) * newSN
			nd.surf = nil
			count++
		}
	})
	if count > 0 {
		h.invalidate()
	}
	return count
}

// RenumberSurfaces passes every leaf's signed number through f and stores
// the result. It returns the number of leaves whose number changed.
func (h *HeadRule) RenumberSurfaces(f func(int) int) int {
	count := 0
	h.walk(h.root, func(_ NodeID, nd *node) {
		if nd.kind != Leaf {
			return
		}
		if k := f(nd.key); k != nd.key && k != 0 {
			nd.key = k
			nd.surf = nil
			count++
		}
	})
	if count > 0 {
		h.invalidate()
	}
	return count
}

// ----------------------------------------------------------------------------
// Complement
// ----------------------------------------------------------------------------

// Complement returns the complement of the rule. The text "#(rule)" is
// normalised by package algebra and parsed back, so the result is in
// negation normal form. The complement of the empty rule is empty.
func (h *HeadRule) Complement() HeadRule {
	if h.root == NoNode {
		return HeadRule{}
	}
	return MustParse("#(" + h.String() + ")")
}

// MakeComplement replaces the rule with its complement.
func (h *HeadRule) MakeComplement() {
	if h.root == NoNode {
		return
	}
	c := h.Complement()
	h.nodes = c.nodes
	h.root = c.root
	h.invalidate()
}

// Composite parses text after shifting every surface literal by offset,
// keeping its sign. Cell references are left alone. Components use it to
// write rules against their own surface numbering and place the result at
// their build index.
func Composite(offset int, text string) (HeadRule, error) {
	e, err := algebra.Parse(text)
	if err != nil {
		return HeadRule{}, err
	}
	var h HeadRule
	if e == nil {
		return h, nil
	}
	e = algebra.MapLiterals(e, func(l algebra.Lit) algebra.Lit {
		if l.Cell {
			return l
		}
		return algebra.Lit{Key: sgn(l.Key) * (iabs(l.Key) + offset)}
	})
	h.root = h.buildExpr(e)
	return h, nil
}
