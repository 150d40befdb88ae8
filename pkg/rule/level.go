package rule

// items returns the operands of the n-ary join rooted at id: the chain of
// same-kind joins is followed down and every child of a different kind is
// an operand. A leaf is its own single operand.
func (h *HeadRule) items(id NodeID) []NodeID {
	nd := h.n(id)
	if !nd.kind.IsJoin() {
		return []NodeID{id}
	}
	var out []NodeID
	var collect func(NodeID)
	collect = func(c NodeID) {
		cn := h.n(c)
		if cn.kind == nd.kind {
			collect(cn.left)
			collect(cn.right)
			return
		}
		out = append(out, c)
	}
	collect(nd.left)
	collect(nd.right)
	return out
}

// Items returns the operand handles of the join at id, or id itself for a
// leaf.
func (h *HeadRule) Items(id NodeID) []NodeID {
	if !h.reachable(id) {
		return nil
	}
	return h.items(id)
}

// FindNodes returns the handles of the terms at logical level n. Level 0
// is the operands of the top-level join; each further level is the
// operands of the join terms of the level above. Leaves do not continue
// to deeper levels.
func (h *HeadRule) FindNodes(n int) []NodeID {
	if h.root == NoNode || n < 0 {
		return nil
	}
	cur := h.items(h.root)
	for level := 0; level < n; level++ {
		var next []NodeID
		for _, id := range cur {
			if h.n(id).kind.IsJoin() {
				next = append(next, h.items(id)...)
			}
		}
		cur = next
	}
	return cur
}

// GetLevel returns copies of the terms at logical level n.
func (h *HeadRule) GetLevel(n int) []HeadRule {
	ids := h.FindNodes(n)
	out := make([]HeadRule, len(ids))
	for i, id := range ids {
		out[i] = h.Subtree(id)
	}
	return out
}

// CountNLevel returns the number of terms at logical level n.
func (h *HeadRule) CountNLevel(n int) int {
	return len(h.FindNodes(n))
}

// TopSurfaces returns the signed surface numbers that are direct operands
// of the top-level join.
func (h *HeadRule) TopSurfaces() []int {
	var out []int
	for _, id := range h.FindNodes(0) {
		if nd := h.n(id); nd.kind == Leaf {
			out = append(out, nd.key)
		}
	}
	return out
}

// Depth returns the number of logical levels in the rule.
func (h *HeadRule) Depth() int {
	n := 0
	for len(h.FindNodes(n)) > 0 {
		n++
	}
	return n
}
