package neuralnet

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuranet/tensor"
)

func TestDatasetCost(t *testing.T) {
	d := NewDataset(tensor.NewVector(1, 0), tensor.NewVector(1, 0, 0))
	assert.Nil(t, d.Output())
	assert.Nil(t, d.Cost())

	require.NoError(t, d.SetOutput(tensor.NewVector(0.5, 0, 1)))
	require.NotNil(t, d.Cost())
	assert.Equal(t, d.ExpectedOutput().Shape(), d.Cost().Shape())
	assert.Equal(t, []float64{0.25, 0, 1}, d.Cost().Data())

	require.NoError(t, d.SetExpectedOutput(tensor.NewVector(0.5, 0, 0)))
	assert.Equal(t, []float64{0, 0, 1}, d.Cost().Data())

	require.NoError(t, d.SetExpectedOutput(nil))
	assert.Nil(t, d.Cost())
}

func TestDatasetCostShapeMismatch(t *testing.T) {
	d := NewDataset(tensor.NewVector(1), tensor.NewVector(1, 0))
	err := d.SetOutput(tensor.NewVector(1))
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))
	assert.Nil(t, d.Cost())
}

func TestDatasetCopies(t *testing.T) {
	in := tensor.NewVector(1, 2)
	d := NewDataset(in, tensor.NewVector(3))
	require.NoError(t, in.Set(0, 0, 9))
	assert.Equal(t, []float64{1, 2}, d.Input().Data())

	require.NoError(t, d.SetOutput(tensor.NewVector(1)))
	c := d.Clone()
	assert.True(t, c.Equal(d, 0))
	assert.Equal(t, d.Cost().Data(), c.Cost().Data())

	c.SetInput(tensor.NewVector(0, 0))
	assert.False(t, c.Equal(d, 0))
	assert.False(t, d.Equal(&Dataset{}, 0))
	assert.False(t, d.Equal(nil, 0))
}
