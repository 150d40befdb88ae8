package geometry

import (
	"fmt"
	"sort"

	"github.com/chazu/csgtrack/pkg/rule"
)

// ValidationSeverity indicates whether a validation finding blocks
// finalization or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks finalization
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Cell     int                // which cell has the problem (zero if model-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Cell == 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] cell %d: %s", e.Severity, e.Cell, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs every structural check on the model and returns the
// findings, errors first in cell order. An empty slice means the model is
// ready to finalize. It never mutates the model.
func Validate(m *Model) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateCellRefs(m)...)
	errs = append(errs, validateSurfaceRefs(m)...)
	errs = append(errs, validateMaterials(m)...)
	errs = append(errs, validatePaired(m)...)
	errs = append(errs, validateUnusedSurfaces(m)...)
	errs = append(errs, validateTerminator(m)...)
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Severity != errs[j].Severity {
			return errs[i].Severity < errs[j].Severity
		}
		return errs[i].Cell < errs[j].Cell
	})
	return errs
}

// validateCellRefs reports references to missing cells and reference
// cycles, using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateCellRefs(m *Model) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	var errs []ValidationError
	for _, o := range m.Cells() {
		for _, ref := range o.Rule().CellRefs() {
			if _, ok := m.cells[abs(ref)]; !ok {
				errs = append(errs, ValidationError{
					Cell:     o.Name(),
					Message:  fmt.Sprintf("cell reference %d does not exist", abs(ref)),
					Severity: SeverityError,
				})
			}
		}
	}

	color := make(map[int]int)
	var visit func(name int) bool // returns true if cycle found
	visit = func(name int) bool {
		switch color[name] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Cell:     name,
				Message:  fmt.Sprintf("cycle detected: cell %d refers back to itself", name),
				Severity: SeverityError,
			})
			return true
		}
		color[name] = gray
		o, ok := m.cells[name]
		if !ok {
			// Dangling reference; reported above.
			color[name] = black
			return false
		}
		for _, ref := range o.Rule().CellRefs() {
			if visit(abs(ref)) {
				return true
			}
		}
		color[name] = black
		return false
	}

	for _, name := range m.CellNames() {
		if color[name] == white {
			if visit(name) {
				// One cycle error is sufficient; stop early.
				break
			}
		}
	}
	return errs
}

// validateSurfaceRefs checks that every surface a rule names is registered.
func validateSurfaceRefs(m *Model) []ValidationError {
	var errs []ValidationError
	for _, o := range m.Cells() {
		for _, sn := range o.Rule().SurfNumbers() {
			if !m.surfs.Has(sn) {
				errs = append(errs, ValidationError{
					Cell:     o.Name(),
					Message:  fmt.Sprintf("surface %d does not exist", sn),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateMaterials checks material references and flags filled cells that
// will track as void.
func validateMaterials(m *Model) []ValidationError {
	var errs []ValidationError
	for _, o := range m.Cells() {
		mat, err := m.mats.Get(o.MaterialID())
		if err != nil {
			errs = append(errs, ValidationError{
				Cell:     o.Name(),
				Message:  fmt.Sprintf("material %d does not exist", o.MaterialID()),
				Severity: SeverityError,
			})
			continue
		}
		if o.MaterialID() != 0 && mat.IsVoid() {
			errs = append(errs, ValidationError{
				Cell:     o.Name(),
				Message:  fmt.Sprintf("material %d has zero density and tracks as void", o.MaterialID()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validatePaired flags rules whose paired-surface count exceeds the
// evaluation limit.
func validatePaired(m *Model) []ValidationError {
	var errs []ValidationError
	for _, o := range m.Cells() {
		signs := make(map[int]int)
		for _, sn := range o.Rule().SurfNumbers() {
			if sn > 0 {
				signs[sn] |= 1
			} else {
				signs[-sn] |= 2
			}
		}
		paired := 0
		for _, v := range signs {
			if v == 3 {
				paired++
			}
		}
		if paired > rule.MaxPairedSurfaces {
			errs = append(errs, ValidationError{
				Cell:     o.Name(),
				Message:  fmt.Sprintf("%d paired surfaces exceeds the limit of %d", paired, rule.MaxPairedSurfaces),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateUnusedSurfaces warns about registered surfaces no cell uses.
func validateUnusedSurfaces(m *Model) []ValidationError {
	var errs []ValidationError
	for _, name := range m.unusedSurfaces() {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("surface %d is not used by any cell", name),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateTerminator warns when no cell has zero importance: a ray that
// leaves every cell then ends in a topology error.
func validateTerminator(m *Model) []ValidationError {
	if len(m.cells) == 0 {
		return []ValidationError{{Message: "model has no cells", Severity: SeverityError}}
	}
	for _, o := range m.cells {
		if o.Importance().IsZero() {
			return nil
		}
	}
	return []ValidationError{{
		Message:  "no zero-importance cell terminates the model",
		Severity: SeverityWarning,
	}}
}

// unusedSurfaces returns registered surfaces no rule refers to once
// aliases are resolved, ascending.
func (m *Model) unusedSurfaces() []int {
	used := make(map[int]bool)
	for _, o := range m.cells {
		for _, sn := range o.Rule().SurfNumbers() {
			used[abs(m.surfs.RealSurf(sn))] = true
		}
	}
	var out []int
	for _, name := range m.surfs.Names() {
		if !used[name] {
			out = append(out, name)
		}
	}
	return out
}

// RemoveUnusedSurfaces deletes every registered surface no cell uses and
// returns their names.
func (m *Model) RemoveUnusedSurfaces() ([]int, error) {
	if m.finalized {
		return nil, ErrFinalized
	}
	unused := m.unusedSurfaces()
	for _, name := range unused {
		m.surfs.Remove(name)
	}
	if len(unused) > 0 {
		m.logger.Debug("removed unused surfaces", "count", len(unused))
	}
	return unused, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
