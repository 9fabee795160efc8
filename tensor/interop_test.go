package tensor

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	gorgonia "gorgonia.org/tensor"
)

func TestGonumRoundTrip(t *testing.T) {
	m := mustNew2D(t, [][]float64{{1, 2, 3}, {4, 5, 6}})

	d := m.Dense()
	r, c := d.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 6.0, d.At(1, 2))

	assert.True(t, FromMatrix(d.T()).Equal(m.T(), 0))
	assert.True(t, FromMatrix(mat.NewDiagDense(2, []float64{1, 1})).Equal(mustNew2D(t, [][]float64{{1, 0}, {0, 1}}), 0))
}

func TestGorgoniaRoundTrip(t *testing.T) {
	m := sequence(2, 3, 4)

	g := m.Gorgonia()
	assert.Equal(t, gorgonia.Shape{2, 3, 4}, g.Shape())
	v, err := g.At(1, 2, 3)
	require.NoError(t, err)
	want, _ := m.At(1, 2, 3)
	assert.Equal(t, want, v)

	back, err := FromGorgonia(g)
	require.NoError(t, err)
	assert.True(t, back.Equal(m, 0))
}

func TestFromGorgoniaFloat32Matrix(t *testing.T) {
	g := gorgonia.New(gorgonia.WithShape(2, 2), gorgonia.WithBacking([]float32{1, 2, 3, 4}))

	cube, err := FromGorgonia(g)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2, 1}, cube.Shape())

	flat, err := cube.To2D()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, flat.Values())

	m2 := mustNew2D(t, [][]float64{{1, 2}, {3, 4}}).Gorgonia()
	assert.Equal(t, gorgonia.Shape{2, 2}, m2.Shape())
}

func TestFromGorgoniaRejectsOtherRanks(t *testing.T) {
	g := gorgonia.New(gorgonia.WithShape(4), gorgonia.WithBacking([]float64{1, 2, 3, 4}))
	_, err := FromGorgonia(g)
	assert.True(t, errors.Is(err, ErrMalformedInput))

	ints := gorgonia.New(gorgonia.WithShape(2, 1), gorgonia.WithBacking([]int{1, 2}))
	_, err = FromGorgonia(ints)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}
