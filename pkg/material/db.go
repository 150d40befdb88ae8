package material

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DB is the set of materials of a model, keyed by number. Material zero
// is always present and void.
type DB struct {
	mats map[int]*Material
}

// NewDB returns a database holding only the void material.
func NewDB() *DB {
	return &DB{mats: map[int]*Material{0: Void}}
}

// Add registers m.
func (db *DB) Add(m *Material) error {
	if _, ok := db.mats[m.id]; ok {
		return fmt.Errorf("material %d: %w", m.id, ErrDuplicate)
	}
	db.mats[m.id] = m
	return nil
}

// Get returns material id.
func (db *DB) Get(id int) (*Material, error) {
	m, ok := db.mats[id]
	if !ok {
		return nil, fmt.Errorf("material %d: %w", id, ErrNotFound)
	}
	return m, nil
}

// Has reports whether material id exists.
func (db *DB) Has(id int) bool {
	_, ok := db.mats[id]
	return ok
}

// IDs returns every material number, ascending.
func (db *DB) IDs() []int {
	out := make([]int, 0, len(db.mats))
	for id := range db.mats {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of materials including void.
func (db *DB) Len() int {
	return len(db.mats)
}

// ----------------------------------------------------------------------------
// YAML loading
// ----------------------------------------------------------------------------

type fileRecord struct {
	ID         int         `yaml:"id"`
	Name       string      `yaml:"name"`
	Density    float64     `yaml:"density"`
	Components []Component `yaml:"components"`
}

type fileFormat struct {
	Materials []fileRecord `yaml:"materials"`
}

// LoadYAML reads materials from r into db. The document holds a
// "materials" list of records with id, name, density and components.
func (db *DB) LoadYAML(r io.Reader) error {
	var f fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return fmt.Errorf("material: decode: %w", err)
	}
	for _, rec := range f.Materials {
		m, err := New(rec.ID, rec.Name, rec.Density, rec.Components)
		if err != nil {
			return err
		}
		if m == Void {
			continue
		}
		if err := db.Add(m); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a YAML material file.
func (db *DB) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("material: %w", err)
	}
	defer f.Close()
	return db.LoadYAML(f)
}
