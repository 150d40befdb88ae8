package surface

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned when a surface name has no registered surface.
	ErrNotFound = errors.New("surface not found")

	// ErrDuplicate is returned when a name is reused for different geometry.
	ErrDuplicate = errors.New("surface name already registered")
)

// Register maps surface names to surfaces. Adding a surface that is
// geometrically identical to one already held records an alias instead of
// a second surface, so cells built by different components end up sharing
// a single dividing surface. RealSurf resolves a name through those aliases.
//
// A Register is populated during model construction and only read during
// tracking.
type Register struct {
	surfs map[int]Surface
	alias map[int]int // name -> signed canonical name
}

// NewRegister returns an empty register.
func NewRegister() *Register {
	return &Register{
		surfs: make(map[int]Surface),
		alias: make(map[int]int),
	}
}

// Add registers s and returns the signed canonical name that references to
// s.Name() resolve to. Re-adding the same surface under its own name is a
// no-op; reusing a name for different geometry is an error.
func (r *Register) Add(s Surface) (int, error) {
	name := s.Name()
	if err := checkName(name); err != nil {
		return 0, err
	}
	if existing, ok := r.surfs[name]; ok {
		if Equivalent(existing, s) == 1 {
			return name, nil
		}
		return 0, fmt.Errorf("surface %d: %w", name, ErrDuplicate)
	}
	if target, ok := r.alias[name]; ok {
		canon := r.surfs[abs(target)]
		if Equivalent(canon, s)*sign(target) == 1 {
			return target, nil
		}
		return 0, fmt.Errorf("surface %d: %w", name, ErrDuplicate)
	}
	for _, other := range r.Names() {
		if eq := Equivalent(r.surfs[other], s); eq != 0 {
			r.alias[name] = eq * other
			return eq * other, nil
		}
	}
	r.surfs[name] = s
	return name, nil
}

// Replace stores s under its name without alias detection, replacing any
// surface already held under that name.
func (r *Register) Replace(s Surface) {
	delete(r.alias, s.Name())
	r.surfs[s.Name()] = s
}

// RealSurf resolves a signed surface number through the alias table. Names
// that are neither aliased nor registered are returned unchanged.
func (r *Register) RealSurf(sn int) int {
	s := sign(sn)
	n := abs(sn)
	for i := 0; i <= len(r.alias); i++ {
		target, ok := r.alias[n]
		if !ok {
			return s * n
		}
		s *= sign(target)
		n = abs(target)
	}
	// Alias cycles cannot be built through Add; stop rather than loop.
	return s * n
}

// Get returns the surface for a signed name, resolving aliases.
func (r *Register) Get(sn int) (Surface, error) {
	n := abs(r.RealSurf(sn))
	s, ok := r.surfs[n]
	if !ok {
		return nil, fmt.Errorf("surface %d: %w", sn, ErrNotFound)
	}
	return s, nil
}

// Surface implements the lookup the rule engine binds leaves through.
func (r *Register) Surface(sn int) (Surface, error) {
	return r.Get(sn)
}

// Has reports whether sn resolves to a registered surface.
func (r *Register) Has(sn int) bool {
	_, ok := r.surfs[abs(r.RealSurf(sn))]
	return ok
}

// Remove deletes a surface and any aliases pointing at it.
func (r *Register) Remove(name int) bool {
	name = abs(name)
	if _, ok := r.surfs[name]; !ok {
		return false
	}
	delete(r.surfs, name)
	for a, target := range r.alias {
		if abs(target) == name {
			delete(r.alias, a)
		}
	}
	return true
}

// Names returns the canonical surface names in ascending order.
func (r *Register) Names() []int {
	names := make([]int, 0, len(r.surfs))
	for n := range r.surfs {
		names = append(names, n)
	}
	sort.Ints(names)
	return names
}

// Aliases returns a copy of the alias table.
func (r *Register) Aliases() map[int]int {
	out := make(map[int]int, len(r.alias))
	for k, v := range r.alias {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct surfaces.
func (r *Register) Len() int {
	return len(r.surfs)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	if x < 0 {
		return -1
	}
	return 1
}
