package algebra

import (
	"fmt"
	"strings"
)

// Expr is a boolean expression over signed literals.
type Expr interface {
	// String renders the expression in the cell grammar.
	String() string
	expr() // marker method restricting implementations to this package
}

// Lit is a signed literal. For a surface literal Key is the signed surface
// number. For a cell literal a negative Key means "outside cell |Key|" and
// a positive Key "inside cell Key".
type Lit struct {
	Key  int
	Cell bool
}

// And is the intersection of its terms.
type And []Expr

// Or is the union of its terms.
type Or []Expr

func (Lit) expr() {}
func (And) expr() {}
func (Or) expr()  {}

func (l Lit) String() string {
	if !l.Cell {
		return fmt.Sprintf("%d", l.Key)
	}
	if l.Key < 0 {
		return fmt.Sprintf("#%d", -l.Key)
	}
	return fmt.Sprintf("##%d", l.Key)
}

func (a And) String() string {
	parts := make([]string, len(a))
	for i, t := range a {
		if _, ok := t.(Or); ok {
			parts[i] = "(" + t.String() + ")"
		} else {
			parts[i] = t.String()
		}
	}
	return strings.Join(parts, " ")
}

func (o Or) String() string {
	parts := make([]string, len(o))
	for i, t := range o {
		parts[i] = t.String()
	}
	return strings.Join(parts, " : ")
}

// Complement returns the negation of e in negation normal form.
func Complement(e Expr) Expr {
	switch v := e.(type) {
	case Lit:
		return Lit{Key: -v.Key, Cell: v.Cell}
	case And:
		out := make(Or, len(v))
		for i, t := range v {
			out[i] = Complement(t)
		}
		return flatten(out)
	case Or:
		out := make(And, len(v))
		for i, t := range v {
			out[i] = Complement(t)
		}
		return flatten(out)
	}
	panic(fmt.Sprintf("algebra: unknown expression %T", e))
}

// Flatten merges directly nested terms of the same kind and unwraps
// single-term groups.
func Flatten(e Expr) Expr {
	return flatten(e)
}

func flatten(e Expr) Expr {
	switch v := e.(type) {
	case And:
		var out And
		for _, t := range v {
			t = flatten(t)
			if inner, ok := t.(And); ok {
				out = append(out, inner...)
			} else {
				out = append(out, t)
			}
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	case Or:
		var out Or
		for _, t := range v {
			t = flatten(t)
			if inner, ok := t.(Or); ok {
				out = append(out, inner...)
			} else {
				out = append(out, t)
			}
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	}
	return e
}

// Evaluate computes e with truth values supplied per literal.
func Evaluate(e Expr, truth func(Lit) bool) bool {
	switch v := e.(type) {
	case Lit:
		return truth(v)
	case And:
		for _, t := range v {
			if !Evaluate(t, truth) {
				return false
			}
		}
		return true
	case Or:
		for _, t := range v {
			if Evaluate(t, truth) {
				return true
			}
		}
		return false
	}
	panic(fmt.Sprintf("algebra: unknown expression %T", e))
}

// Literals returns every literal of e in left-to-right order.
func Literals(e Expr) []Lit {
	var out []Lit
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case Lit:
			out = append(out, v)
		case And:
			for _, t := range v {
				walk(t)
			}
		case Or:
			for _, t := range v {
				walk(t)
			}
		}
	}
	walk(e)
	return out
}

// MapLiterals returns a copy of e with every literal replaced by f(lit).
func MapLiterals(e Expr, f func(Lit) Lit) Expr {
	switch v := e.(type) {
	case Lit:
		return f(v)
	case And:
		out := make(And, len(v))
		for i, t := range v {
			out[i] = MapLiterals(t, f)
		}
		return out
	case Or:
		out := make(Or, len(v))
		for i, t := range v {
			out[i] = MapLiterals(t, f)
		}
		return out
	}
	panic(fmt.Sprintf("algebra: unknown expression %T", e))
}
