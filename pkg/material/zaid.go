package material

import (
	"fmt"
	"strconv"
	"strings"
)

// Zaid identifies a nuclide as Z*1000 + A. A mass number of zero denotes
// the natural element.
type Zaid int

// Z returns the atomic number.
func (z Zaid) Z() int {
	return int(z) / 1000
}

// A returns the mass number, zero for a natural element.
func (z Zaid) A() int {
	return int(z) % 1000
}

// Mass returns the nuclide mass in atomic mass units: the mass number for
// an isotope, the standard atomic weight for a natural element.
func (z Zaid) Mass() (float64, error) {
	if z <= 0 || z.Z() == 0 {
		return 0, fmt.Errorf("zaid %d: %w", int(z), ErrBadZaid)
	}
	if a := z.A(); a != 0 {
		return float64(a), nil
	}
	w, ok := naturalWeight[z.Z()]
	if !ok {
		return 0, fmt.Errorf("zaid %d: no natural weight for Z=%d: %w", int(z), z.Z(), ErrBadZaid)
	}
	return w, nil
}

// ParseZaid reads "26056", "26056.70c" or "26000.80c". The library suffix
// is ignored.
func ParseZaid(s string) (Zaid, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("zaid %q: %w", s, ErrBadZaid)
	}
	return Zaid(n), nil
}

func (z Zaid) String() string {
	return strconv.Itoa(int(z))
}

// Standard atomic weights of the elements commonly used in shielding
// and structural materials.
var naturalWeight = map[int]float64{
	1: 1.008, 2: 4.0026, 3: 6.94, 4: 9.0122, 5: 10.81, 6: 12.011,
	7: 14.007, 8: 15.999, 9: 18.998, 10: 20.180, 11: 22.990, 12: 24.305,
	13: 26.982, 14: 28.085, 15: 30.974, 16: 32.06, 17: 35.45, 18: 39.948,
	19: 39.098, 20: 40.078, 22: 47.867, 23: 50.942, 24: 51.996, 25: 54.938,
	26: 55.845, 27: 58.933, 28: 58.693, 29: 63.546, 30: 65.38, 40: 91.224,
	41: 92.906, 42: 95.95, 47: 107.87, 48: 112.41, 50: 118.71, 56: 137.33,
	64: 157.25, 72: 178.49, 73: 180.95, 74: 183.84, 79: 196.97, 82: 207.2,
	83: 208.98, 90: 232.04, 92: 238.03,
}
