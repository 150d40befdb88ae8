package algebra

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a malformed rule string.
type ParseError struct {
	Input string // full input
	Pos   int    // byte offset of the offending token
	Msg   string
}

func (e *ParseError) Error() string {
	near := e.Input
	if e.Pos >= 0 && e.Pos <= len(e.Input) {
		near = e.Input[e.Pos:]
		if len(near) > 20 {
			near = near[:20] + "..."
		}
	}
	return fmt.Sprintf("rule parse error at %d (%q): %s", e.Pos, near, e.Msg)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOpen
	tokClose
	tokHash
	tokColon
)

type token struct {
	kind tokenKind
	val  int
	pos  int
}

// tokenize splits s into numbers and operator characters. A number may
// carry a leading sign; whitespace separates numbers but is otherwise
// insignificant.
func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokOpen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokClose, pos: i})
			i++
		case c == '#':
			toks = append(toks, token{kind: tokHash, pos: i})
			i++
		case c == ':':
			toks = append(toks, token{kind: tokColon, pos: i})
			i++
		case c == '-' || c == '+' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			n, err := strconv.Atoi(s[i:j])
			if err != nil {
				return nil, &ParseError{Input: s, Pos: i, Msg: "invalid number"}
			}
			if n == 0 {
				return nil, &ParseError{Input: s, Pos: i, Msg: "surface or cell number zero"}
			}
			toks = append(toks, token{kind: tokNumber, val: n, pos: i})
			i = j
		default:
			return nil, &ParseError{Input: s, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return toks, nil
}

// frame collects the items of one bracket level. An item is either an
// expression or a union marker (nil).
type frame struct {
	items      []Expr
	complement bool
	open       int
}

// Parse reads a rule string. A blank string parses to a nil expression,
// the universal (always true) rule.
func Parse(s string) (Expr, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}

	stack := []*frame{{open: -1}}
	pending := 0    // count of '#' waiting for a factor
	pendingPos := 0 // position of the first pending '#'

	push := func(e Expr) {
		if pending%2 == 1 {
			e = Complement(e)
		}
		pending = 0
		top := stack[len(stack)-1]
		top.items = append(top.items, e)
	}

	for idx, tk := range toks {
		switch tk.kind {
		case tokNumber:
			if idx > 0 && toks[idx-1].kind == tokHash {
				if tk.val < 0 || s[tk.pos] == '+' {
					return nil, &ParseError{Input: s, Pos: tk.pos, Msg: "signed cell reference"}
				}
				// The '#' consumed here is the cell-reference marker, not a
				// complement of the following factor.
				pending--
				push(Lit{Key: -tk.val, Cell: true})
				continue
			}
			push(Lit{Key: tk.val})
		case tokHash:
			if pending == 0 {
				pendingPos = tk.pos
			}
			pending++
		case tokOpen:
			stack = append(stack, &frame{open: tk.pos, complement: pending%2 == 1})
			pending = 0
		case tokClose:
			if pending > 0 {
				return nil, &ParseError{Input: s, Pos: pendingPos, Msg: "complement with no operand"}
			}
			if len(stack) == 1 {
				return nil, &ParseError{Input: s, Pos: tk.pos, Msg: "unmatched ')'"}
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			e, err := reduce(s, f, tk.pos)
			if err != nil {
				return nil, err
			}
			if f.complement {
				e = Complement(e)
			}
			top := stack[len(stack)-1]
			top.items = append(top.items, e)
		case tokColon:
			if pending > 0 {
				return nil, &ParseError{Input: s, Pos: pendingPos, Msg: "complement with no operand"}
			}
			top := stack[len(stack)-1]
			top.items = append(top.items, nil)
		}
	}
	if pending > 0 {
		return nil, &ParseError{Input: s, Pos: pendingPos, Msg: "complement with no operand"}
	}
	if len(stack) != 1 {
		return nil, &ParseError{Input: s, Pos: stack[len(stack)-1].open, Msg: "unmatched '('"}
	}
	return reduce(s, stack[0], len(s))
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// reduce combines one bracket level: adjacent expressions are joined into
// intersections first, then the intersections are joined into a union.
func reduce(s string, f *frame, closePos int) (Expr, error) {
	pos := f.open
	if pos < 0 {
		pos = 0
	}
	if len(f.items) == 0 {
		return nil, &ParseError{Input: s, Pos: pos, Msg: "empty group"}
	}
	var union Or
	var inter And
	for i, it := range f.items {
		if it != nil {
			inter = append(inter, it)
			continue
		}
		if len(inter) == 0 {
			return nil, &ParseError{Input: s, Pos: pos, Msg: fmt.Sprintf("union with missing left operand (item %d)", i)}
		}
		union = append(union, flatten(inter))
		inter = nil
	}
	if len(inter) == 0 {
		return nil, &ParseError{Input: s, Pos: closePos, Msg: "union with missing right operand"}
	}
	if len(union) == 0 {
		return flatten(inter), nil
	}
	union = append(union, flatten(inter))
	return flatten(union), nil
}
