package rule

// Equal reports whether h and other have the same structure up to the
// order of operands within each level. Bare literals at a level are
// compared as sets and sub-rules are matched pairwise, each partner used
// once. Boolean-equivalent rules of different shape compare unequal.
func (h *HeadRule) Equal(other *HeadRule) bool {
	if h.root == NoNode || other.root == NoNode {
		return h.root == NoNode && other.root == NoNode
	}
	return equalNodes(h, h.root, other, other.root)
}

type literal struct {
	kind Kind
	key  int
}

func equalNodes(a *HeadRule, ai NodeID, b *HeadRule, bi NodeID) bool {
	an, bn := a.n(ai), b.n(bi)
	if an.kind != bn.kind {
		return false
	}
	if !an.kind.IsJoin() {
		return an.key == bn.key
	}

	aLits, aSubs := partition(a, a.items(ai))
	bLits, bSubs := partition(b, b.items(bi))
	if len(aLits) != len(bLits) {
		return false
	}
	for l := range aLits {
		if !bLits[l] {
			return false
		}
	}
	if len(aSubs) != len(bSubs) {
		return false
	}
	used := make([]bool, len(bSubs))
	for _, x := range aSubs {
		found := false
		for j, y := range bSubs {
			if !used[j] && equalNodes(a, x, b, y) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func partition(h *HeadRule, ids []NodeID) (map[literal]bool, []NodeID) {
	lits := make(map[literal]bool)
	var subs []NodeID
	for _, id := range ids {
		nd := h.n(id)
		if nd.kind.IsJoin() {
			subs = append(subs, id)
		} else {
			lits[literal{nd.kind, nd.key}] = true
		}
	}
	return lits, subs
}
