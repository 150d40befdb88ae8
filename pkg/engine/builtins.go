package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/csgtrack/pkg/cell"
	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/geometry"
	"github.com/chazu/csgtrack/pkg/material"
	"github.com/chazu/csgtrack/pkg/rule"
	"github.com/chazu/csgtrack/pkg/surface"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vec.
type sexpVec3 struct {
	vec geom.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

func sexpInt(n int) zygo.Sexp {
	return &zygo.SexpInt{Val: int64(n)}
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		switch {
		case !ok:
			result.positional = append(result.positional, args[i])
		case i+1 < len(args):
			result.kw[name] = args[i+1]
			i++
		default:
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float returns keyword key as a number, def when absent.
func (a kwArgs) float(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// vec returns keyword key as a vector; required keywords report absence.
func (a kwArgs) vec(key string) (geom.Vec, error) {
	v, ok := a.kw[key]
	if !ok {
		return geom.Vec{}, fmt.Errorf("missing :%s", key)
	}
	p, err := toVec3(v)
	if err != nil {
		return geom.Vec{}, fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer; floats are accepted when integral.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toZaid accepts 26056 or "26056.70c".
func toZaid(s zygo.Sexp) (material.Zaid, error) {
	if n, err := toInt(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("zaid %d: %w", n, material.ErrBadZaid)
		}
		return material.Zaid(n), nil
	}
	str, err := toString(s)
	if err != nil {
		return 0, fmt.Errorf("expected zaid: %w", err)
	}
	return material.ParseZaid(str)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Model builder state
// ---------------------------------------------------------------------------

// builder is the state shared by the builtins of one evaluation.
type builder struct {
	model *geometry.Model
	// offset is the current build index added to surface numbers.
	offset int
}

func newBuilder(m *geometry.Model) *builder {
	return &builder{model: m}
}

// surfName shifts a script surface number by the build index.
func (b *builder) surfName(s zygo.Sexp) (int, error) {
	n, err := toInt(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("surface number must be positive, got %d", n)
	}
	return n + b.offset, nil
}

// addSurface registers s and returns its canonical signed number.
func (b *builder) addSurface(s surface.Surface, err error) (zygo.Sexp, error) {
	if err != nil {
		return zygo.SexpNull, err
	}
	sn, err := b.model.AddSurface(s)
	if err != nil {
		return zygo.SexpNull, err
	}
	return sexpInt(sn), nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the model DSL builtins into a zygomys
// environment. The builtins populate b.model during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: geom.V(c[0], c[1], c[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (build-index 100)
	//
	// Registered as "build_index"; the preprocessor rewrites the hyphen.
	// Every later surface number, and every surface literal of a later
	// cell rule, is shifted by the index.
	// -----------------------------------------------------------------------
	env.AddFunction("build_index", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("build-index requires one argument")
		}
		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("build-index: %w", err)
		}
		if n < 0 {
			return zygo.SexpNull, fmt.Errorf("build-index: negative index %d", n)
		}
		b.offset = n
		return sexpInt(n), nil
	})

	// -----------------------------------------------------------------------
	// (px 1 -1.5)  (py 3 0)  (pz 5 2)
	// -----------------------------------------------------------------------
	axisPlanes := map[string]func(int, float64) (*surface.Plane, error){
		"px": surface.PX,
		"py": surface.PY,
		"pz": surface.PZ,
	}
	for fn, mk := range axisPlanes {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a surface number and a position", fn)
			}
			sn, err := b.surfName(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			v, err := toFloat64(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: position: %w", fn, err)
			}
			return b.addSurface(mk(sn, v))
		})
	}

	// -----------------------------------------------------------------------
	// (plane 7 :normal (vec3 1 1 0) :dist 2)
	// (plane 7 :normal (vec3 1 1 0) :through (vec3 1 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("plane requires a surface number")
		}
		sn, err := b.surfName(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: %w", err)
		}
		n, err := pa.vec("normal")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: %w", err)
		}
		if _, ok := pa.kw["through"]; ok {
			o, err := pa.vec("through")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: %w", err)
			}
			return b.addSurface(surface.PlaneThrough(sn, o, n))
		}
		d, err := pa.float("dist", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: %w", err)
		}
		u, err := geom.Unit(n)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: normal: %w", err)
		}
		return b.addSurface(surface.NewPlane(sn, u, d))
	})

	// -----------------------------------------------------------------------
	// (sphere 20 :centre (vec3 0 0 0) :radius 5)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("sphere requires a surface number")
		}
		sn, err := b.surfName(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		var c geom.Vec
		if _, ok := pa.kw["centre"]; ok {
			if c, err = pa.vec("centre"); err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
			}
		}
		r, err := pa.float("radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return b.addSurface(surface.NewSphere(sn, c, r))
	})

	// -----------------------------------------------------------------------
	// (cylinder 30 :centre (vec3 0 0 0) :axis (vec3 0 1 0) :radius 2)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("cylinder requires a surface number")
		}
		sn, err := b.surfName(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		var c geom.Vec
		if _, ok := pa.kw["centre"]; ok {
			if c, err = pa.vec("centre"); err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
			}
		}
		axis, err := pa.vec("axis")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		r, err := pa.float("radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return b.addSurface(surface.NewCylinder(sn, c, axis, r))
	})

	// -----------------------------------------------------------------------
	// (cone 40 :apex (vec3 0 0 0) :axis (vec3 0 0 1) :angle 30)
	//
	// The half-angle is in degrees.
	// -----------------------------------------------------------------------
	env.AddFunction("cone", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("cone requires a surface number")
		}
		sn, err := b.surfName(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cone: %w", err)
		}
		apex, err := pa.vec("apex")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cone: %w", err)
		}
		axis, err := pa.vec("axis")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cone: %w", err)
		}
		deg, err := pa.float("angle", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cone: %w", err)
		}
		return b.addSurface(surface.NewCone(sn, apex, axis, deg*math.Pi/180))
	})

	// -----------------------------------------------------------------------
	// (quadric 50 (list a b c d e f g h j k))
	// -----------------------------------------------------------------------
	env.AddFunction("quadric", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("quadric requires a surface number and a coefficient list")
		}
		sn, err := b.surfName(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("quadric: %w", err)
		}
		items, err := sexpListToSlice(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("quadric: coefficients: %w", err)
		}
		if len(items) != 10 {
			return zygo.SexpNull, fmt.Errorf("quadric: expected 10 coefficients, got %d", len(items))
		}
		var c [10]float64
		for i, it := range items {
			if c[i], err = toFloat64(it); err != nil {
				return zygo.SexpNull, fmt.Errorf("quadric: coefficient %d: %w", i, err)
			}
		}
		return b.addSurface(surface.NewQuadratic(sn, c))
	})

	// -----------------------------------------------------------------------
	// (material 1 :name "iron" :density 0.0847 :components (list 26056 1.0))
	//
	// Components alternate zaid and fraction; negative fractions are
	// weight fractions.
	// -----------------------------------------------------------------------
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("material requires a material number")
		}
		id, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}
		var matName string
		if v, ok := pa.kw["name"]; ok {
			if matName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("material: name: %w", err)
			}
		}
		density, err := pa.float("density", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}
		var comps []material.Component
		if v, ok := pa.kw["components"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: components: %w", err)
			}
			if len(items)%2 != 0 {
				return zygo.SexpNull, fmt.Errorf("material: components must pair zaids with fractions")
			}
			for i := 0; i < len(items); i += 2 {
				z, err := toZaid(items[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("material: component %d: %w", i/2, err)
				}
				f, err := toFloat64(items[i+1])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("material: component %d: fraction: %w", i/2, err)
				}
				comps = append(comps, material.Component{Zaid: z, Fraction: f})
			}
		}
		m, err := material.New(id, matName, density, comps)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := b.model.AddMaterial(m); err != nil {
			return zygo.SexpNull, fmt.Errorf("material %d: %w", id, err)
		}
		return sexpInt(id), nil
	})

	// -----------------------------------------------------------------------
	// (cell 1 :mat 1 :temp 300 :rule "1 -2 3 -4 5 -6" :imp 1
	//       :bounds (list (vec3 0 0 0) (vec3 1 1 1)))
	// -----------------------------------------------------------------------
	env.AddFunction("cell", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("cell requires a cell number")
		}
		cn, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cell: %w", err)
		}
		matID := 0
		if v, ok := pa.kw["mat"]; ok {
			if matID, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("cell %d: mat: %w", cn, err)
			}
		}
		temp, err := pa.float("temp", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cell %d: %w", cn, err)
		}
		v, ok := pa.kw["rule"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("cell %d: missing :rule", cn)
		}
		text, err := toString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cell %d: rule: %w", cn, err)
		}
		r, err := rule.Composite(b.offset, text)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cell %d: %w", cn, err)
		}
		mat, err := b.model.Materials().Get(matID)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cell %d: %w", cn, err)
		}
		o, err := cell.New(cn, matID, mat, temp, r)
		if err != nil {
			return zygo.SexpNull, err
		}
		if _, ok := pa.kw["imp"]; ok {
			imp, err := pa.float("imp", 1)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cell %d: %w", cn, err)
			}
			o.SetImportance(cell.NewImportance(imp))
		}
		if bv, ok := pa.kw["bounds"]; ok {
			box, err := toBox(bv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cell %d: bounds: %w", cn, err)
			}
			o.SetBounds(box)
		}
		if err := b.model.AddCell(o); err != nil {
			return zygo.SexpNull, err
		}
		return sexpInt(cn), nil
	})

	// -----------------------------------------------------------------------
	// (importance 4 0)  (importance 4 :n 1 :p 0)
	// -----------------------------------------------------------------------
	env.AddFunction("importance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 || len(pa.positional) > 2 {
			return zygo.SexpNull, fmt.Errorf("importance requires a cell number and optionally a value")
		}
		cn, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("importance: %w", err)
		}
		o, err := b.model.Cell(cn)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("importance: %w", err)
		}
		imp := o.Importance()
		if len(pa.positional) == 2 {
			v, err := toFloat64(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("importance: %w", err)
			}
			imp = cell.NewImportance(v)
		}
		for particle := range pa.kw {
			v, err := pa.float(particle, 0)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("importance: %w", err)
			}
			imp.Set(particle, v)
		}
		o.SetImportance(imp)
		return sexpInt(cn), nil
	})
}

// toBox reads a two-corner list.
func toBox(s zygo.Sexp) (geom.Box, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return geom.Box{}, err
	}
	if len(items) != 2 {
		return geom.Box{}, fmt.Errorf("expected two corners, got %d", len(items))
	}
	lo, err := toVec3(items[0])
	if err != nil {
		return geom.Box{}, err
	}
	hi, err := toVec3(items[1])
	if err != nil {
		return geom.Box{}, err
	}
	return geom.NewBox(lo, hi), nil
}
