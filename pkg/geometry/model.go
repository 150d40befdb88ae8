package geometry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/chazu/csgtrack/pkg/cell"
	"github.com/chazu/csgtrack/pkg/geom"
	"github.com/chazu/csgtrack/pkg/material"
	"github.com/chazu/csgtrack/pkg/rule"
	"github.com/chazu/csgtrack/pkg/surface"
)

var (
	// ErrCellNotFound is returned when a cell name or point has no cell.
	ErrCellNotFound = errors.New("cell not found")

	// ErrDuplicateCell is returned when a cell name is added twice.
	ErrDuplicateCell = errors.New("cell already registered")

	// ErrFinalized is returned when a finalized model is modified.
	ErrFinalized = errors.New("model already finalized")

	// ErrNotFinalized is returned when a query needs a finalized model.
	ErrNotFinalized = errors.New("model not finalized")
)

// Model is the construction and tracking context of one geometry.
type Model struct {
	surfs *surface.Register
	mats  *material.DB
	cells map[int]*cell.Object

	finalized bool
	surfMap   *SurfMap
	locator   *locator

	logger *slog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithMaterials uses db as the model's material database.
func WithMaterials(db *material.DB) Option {
	return func(m *Model) { m.mats = db }
}

// New returns an empty model.
func New(opts ...Option) *Model {
	m := &Model{
		surfs: surface.NewRegister(),
		mats:  material.NewDB(),
		cells: make(map[int]*cell.Object),
	}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Surfaces returns the surface register.
func (m *Model) Surfaces() *surface.Register { return m.surfs }

// Materials returns the material database.
func (m *Model) Materials() *material.DB { return m.mats }

// IsFinalized reports whether Finalize has completed.
func (m *Model) IsFinalized() bool { return m.finalized }

// AddSurface registers s and returns the signed canonical name references
// to it resolve to.
func (m *Model) AddSurface(s surface.Surface) (int, error) {
	if m.finalized {
		return 0, ErrFinalized
	}
	return m.surfs.Add(s)
}

// AddMaterial registers mat.
func (m *Model) AddMaterial(mat *material.Material) error {
	if m.finalized {
		return ErrFinalized
	}
	return m.mats.Add(mat)
}

// AddCell registers o.
func (m *Model) AddCell(o *cell.Object) error {
	if m.finalized {
		return ErrFinalized
	}
	if _, ok := m.cells[o.Name()]; ok {
		return fmt.Errorf("cell %d: %w", o.Name(), ErrDuplicateCell)
	}
	m.cells[o.Name()] = o
	return nil
}

// NewCell parses text, fills the cell with material matID and registers
// it.
func (m *Model) NewCell(name, matID int, temp float64, text string) (*cell.Object, error) {
	mat, err := m.mats.Get(matID)
	if err != nil {
		return nil, fmt.Errorf("cell %d: %w", name, err)
	}
	o, err := cell.Parse(name, matID, mat, temp, text)
	if err != nil {
		return nil, err
	}
	if err := m.AddCell(o); err != nil {
		return nil, err
	}
	return o, nil
}

// RemoveCell deletes cell name from an unfinalized model.
func (m *Model) RemoveCell(name int) error {
	if m.finalized {
		return ErrFinalized
	}
	if _, ok := m.cells[name]; !ok {
		return fmt.Errorf("cell %d: %w", name, ErrCellNotFound)
	}
	delete(m.cells, name)
	return nil
}

// Cell returns cell name.
func (m *Model) Cell(name int) (*cell.Object, error) {
	o, ok := m.cells[name]
	if !ok {
		return nil, fmt.Errorf("cell %d: %w", name, ErrCellNotFound)
	}
	return o, nil
}

// CellRule returns the rule of cell name.
func (m *Model) CellRule(name int) (*rule.HeadRule, error) {
	o, err := m.Cell(name)
	if err != nil {
		return nil, err
	}
	return o.Rule(), nil
}

// Surface returns the surface for a signed name.
func (m *Model) Surface(sn int) (surface.Surface, error) {
	return m.surfs.Get(sn)
}

// Cells returns every cell, ascending by name.
func (m *Model) Cells() []*cell.Object {
	out := make([]*cell.Object, 0, len(m.cells))
	for _, name := range m.CellNames() {
		out = append(out, m.cells[name])
	}
	return out
}

// CellNames returns every cell name, ascending.
func (m *Model) CellNames() []int {
	names := make([]int, 0, len(m.cells))
	for n := range m.cells {
		names = append(names, n)
	}
	sort.Ints(names)
	return names
}

// ----------------------------------------------------------------------------
// Finalize
// ----------------------------------------------------------------------------

// Finalize resolves surface aliases in every rule, binds the rules, and
// builds the surface map and the point locator. The model is read-only
// afterwards.
func (m *Model) Finalize() error {
	if m.finalized {
		return ErrFinalized
	}
	for _, e := range validateCellRefs(m) {
		return fmt.Errorf("geometry: %w", e)
	}

	cells := m.Cells()
	for _, o := range cells {
		if n := o.Rule().RenumberSurfaces(m.surfs.RealSurf); n > 0 {
			m.logger.Debug("resolved surface aliases", "cell", o.Name(), "leaves", n)
		}
	}
	for _, o := range cells {
		if err := o.Populate(m, m); err != nil {
			return fmt.Errorf("geometry: %w", err)
		}
	}

	m.surfMap = NewSurfMap()
	for _, o := range cells {
		m.surfMap.AddObject(o)
	}
	loc, err := newLocator(cells)
	if err != nil {
		return fmt.Errorf("geometry: %w", err)
	}
	m.locator = loc
	m.finalized = true
	m.logger.Debug("model finalized",
		"cells", len(cells),
		"surfaces", m.surfs.Len(),
		"indexed", loc.indexedCount(),
		"unbounded", len(loc.unbounded))
	return nil
}

// SurfMap returns the surface-to-cell map built by Finalize.
func (m *Model) SurfMap() *SurfMap {
	return m.surfMap
}

// FindCell returns the cell containing p. hint, when non-nil, is tried
// first. Candidates from the spatial index are tried in ascending name
// order, then cells without finite bounds.
func (m *Model) FindCell(p geom.Vec, hint *cell.Object) (*cell.Object, error) {
	if !m.finalized {
		return nil, ErrNotFinalized
	}
	if hint != nil && hint.IsValid(p) {
		return hint, nil
	}
	for _, o := range m.locator.candidates(p) {
		if o.IsValid(p) {
			return o, nil
		}
	}
	return nil, fmt.Errorf("point %s: %w", geom.Format(p), ErrCellNotFound)
}

// FindNextObject returns the cell, other than exclude, that a ray leaving p
// along dir across surface sn runs into. Cells using |sn| are tried first;
// when the ray leaves through an edge or corner into a cell that does not
// use |sn|, the cells around p are searched. It returns nil when no cell
// qualifies.
func (m *Model) FindNextObject(sn int, p, dir geom.Vec, exclude int) *cell.Object {
	if m.surfMap == nil {
		return nil
	}
	if o := m.surfMap.FindNextObject(sn, p, dir, exclude); o != nil {
		return o
	}
	for _, o := range m.locator.candidates(p) {
		if o.Name() != exclude && len(o.IsOnSurface(p)) > 0 && o.IsValidAlong(p, dir) {
			m.logger.Debug("next cell found off the surface map", "surf", sn, "cell", o.Name())
			return o
		}
	}
	return nil
}
