package geometry

import (
	"sort"

	"github.com/chazu/csgtrack/pkg/cell"
	"github.com/chazu/csgtrack/pkg/geom"
)

// SurfMap records, for every surface, the cells whose boundary uses it.
// Crossing a surface can only lead into one of those cells.
type SurfMap struct {
	bySurf map[int][]*cell.Object
}

// NewSurfMap returns an empty map.
func NewSurfMap() *SurfMap {
	return &SurfMap{bySurf: make(map[int][]*cell.Object)}
}

// AddObject files o under every surface of its populated surface set.
func (sm *SurfMap) AddObject(o *cell.Object) {
	for _, s := range o.SurfSet() {
		name := s.Name()
		list := append(sm.bySurf[name], o)
		sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
		sm.bySurf[name] = list
	}
}

// Objects returns the cells using surface |sn|, ascending by name.
func (sm *SurfMap) Objects(sn int) []*cell.Object {
	if sn < 0 {
		sn = -sn
	}
	return append([]*cell.Object(nil), sm.bySurf[sn]...)
}

// FindNextObject returns the first cell, in name order and other than
// exclude, that uses |sn| and that a ray leaving p along dir runs into.
// Every surface p lies on is resolved along dir, so a crossing at an edge
// or corner finds the cell beyond it rather than one that merely touches p.
func (sm *SurfMap) FindNextObject(sn int, p, dir geom.Vec, exclude int) *cell.Object {
	key := sn
	if key < 0 {
		key = -key
	}
	for _, o := range sm.bySurf[key] {
		if o.Name() != exclude && o.IsValidAlong(p, dir) {
			return o
		}
	}
	return nil
}
