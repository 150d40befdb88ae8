// Package rule implements the boolean rule tree that defines a cell.
//
// A HeadRule owns a binary tree of nodes held in a flat arena. Leaves are
// signed surface numbers or signed cell references; internal nodes are
// intersections and unions. Chains of the same join type behave as a
// single n-ary intersection or union, and a change of join type marks a
// new logical level.
//
// Trees are parsed from the cell grammar (see package algebra), built up
// programmatically with AddIntersection/AddUnion, and evaluated against
// points once Populate has bound every leaf to its surface. Complements
// are produced by rewriting the rule text through the algebra normaliser
// and parsing the result again.
//
// Equal is structural equality up to reordering of operands at each level.
// It is not a boolean-equivalence test: two rules related by De Morgan's
// laws can describe the same region and still compare unequal.
package rule
