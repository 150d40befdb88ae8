package material

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZaid(t *testing.T) {
	z, err := ParseZaid("26056.70c")
	require.NoError(t, err)
	assert.Equal(t, 26, z.Z())
	assert.Equal(t, 56, z.A())
	m, err := z.Mass()
	require.NoError(t, err)
	assert.Equal(t, 56.0, m)

	nat, err := Zaid(82000).Mass()
	require.NoError(t, err)
	assert.InDelta(t, 207.2, nat, 1e-9)

	_, err = Zaid(99000).Mass()
	assert.ErrorIs(t, err, ErrBadZaid)
	_, err = ParseZaid("abc")
	assert.ErrorIs(t, err, ErrBadZaid)
}

func TestMeanAAtomFractions(t *testing.T) {
	water := MustNew(1, "water", 0.1, []Component{{Zaid: 1001, Fraction: 2}, {Zaid: 8016, Fraction: 1}})
	assert.False(t, water.IsVoid())
	assert.InDelta(t, (2*1.0+16.0)/3, water.MeanA(), 1e-12)
	assert.InDelta(t, 0.1, water.AtomDensity(), 1e-12)

	comps := water.Components()
	assert.InDelta(t, 2.0/3, comps[0].Fraction, 1e-12)
}

func TestWeightFractionsConvert(t *testing.T) {
	// Equal masses of H-1 and O-16 hold sixteen times as many H atoms.
	m := MustNew(2, "mix", 0.05, []Component{{Zaid: 1001, Fraction: -0.5}, {Zaid: 8016, Fraction: -0.5}})
	comps := m.Components()
	assert.InDelta(t, 16.0/17, comps[0].Fraction, 1e-12)
	assert.InDelta(t, (16.0*1+16)/17, m.MeanA(), 1e-12)
}

func TestNewRejects(t *testing.T) {
	_, err := New(3, "bad", -1, []Component{{Zaid: 1001, Fraction: 1}})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = New(3, "bad", 1, nil)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = New(3, "bad", 1, []Component{{Zaid: 1001, Fraction: 1}, {Zaid: 8016, Fraction: -1}})
	assert.ErrorIs(t, err, ErrInvalid)

	v, err := New(0, "anything", 5, nil)
	require.NoError(t, err)
	assert.True(t, v.IsVoid())
}

func TestDB(t *testing.T) {
	db := NewDB()
	v, err := db.Get(0)
	require.NoError(t, err)
	assert.True(t, v.IsVoid())

	iron := MustNew(26, "iron", 0.0847, []Component{{Zaid: 26000, Fraction: 1}})
	require.NoError(t, db.Add(iron))
	assert.ErrorIs(t, db.Add(iron), ErrDuplicate)

	_, err = db.Get(7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []int{0, 26}, db.IDs())
}

func TestLoadYAML(t *testing.T) {
	src := `
materials:
  - id: 1
    name: concrete
    density: 0.07
    components:
      - {zaid: 8016, fraction: 0.6}
      - {zaid: 14028, fraction: 0.4}
  - id: 2
    name: lead
    density: 0.033
    components:
      - {zaid: 82000, fraction: 1}
`
	db := NewDB()
	require.NoError(t, db.LoadYAML(strings.NewReader(src)))
	assert.Equal(t, 3, db.Len())
	lead, err := db.Get(2)
	require.NoError(t, err)
	assert.InDelta(t, 207.2, lead.MeanA(), 1e-9)

	err = NewDB().LoadYAML(strings.NewReader("materials:\n  - id: 1\n    bogus: 3\n"))
	assert.Error(t, err)
}
