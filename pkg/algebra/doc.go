// Package algebra parses the cell boolean grammar and normalises it.
//
// The grammar is the one transport-code cell cards use:
//
//	-1 2 -3        intersection of half-spaces (juxtaposition)
//	-1 : 2         union
//	( ... )        grouping
//	#( ... )       complement of a group
//	#10            complement of cell 10 (everything outside it)
//
// Complement binds tighter than intersection, which binds tighter than
// union; operators of equal strength associate left to right.
//
// Expressions are kept in negation normal form: a complement is pushed
// down to the literals with De Morgan's laws as soon as it is parsed, so
// the only composite forms are And and Or.
package algebra
