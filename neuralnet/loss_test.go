package neuralnet

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuranet/tensor"
)

func TestCrossEntropyCompute(t *testing.T) {
	ce := CrossEntropy{}
	loss, err := ce.Compute(tensor.NewVector(0.5, 0.5), tensor.NewVector(1, 0))
	require.NoError(t, err)
	assert.InDelta(t, -2*math.Log(0.5), loss, 1e-12)

	// clamped away from log(0)
	loss, err = ce.Compute(tensor.NewVector(0, 1), tensor.NewVector(1, 0))
	require.NoError(t, err)
	assert.False(t, math.IsInf(loss, 0))

	_, err = ce.Compute(tensor.NewVector(0.5), tensor.NewVector(1, 0))
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))
}

func TestCrossEntropyGradient(t *testing.T) {
	grad, err := CrossEntropy{}.Gradient(tensor.NewVector(0.5, 0.5), tensor.NewVector(1, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{-2, 2}, grad.Data())
}

func TestQuadraticCost(t *testing.T) {
	out, want := tensor.NewVector(1, 2, 3), tensor.NewVector(0, 2, 5)

	c, err := QuadraticCost{}.Compute(out, want)
	require.NoError(t, err)
	assert.Equal(t, 2.5, c)

	grad, err := QuadraticCost{}.Gradient(out, want)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, -2}, grad.Data())
}

func TestMeanSquaredError(t *testing.T) {
	out, want := tensor.NewVector(1, 2, 3, 4), tensor.NewVector(0, 2, 5, 4)

	c, err := MeanSquaredError{}.Compute(out, want)
	require.NoError(t, err)
	assert.Equal(t, 1.25, c)

	grad, err := MeanSquaredError{}.Gradient(out, want)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0, -1, 0}, grad.Data())
}

func TestLoss(t *testing.T) {
	l, err := Loss(tensor.NewVector(1, 0), tensor.NewVector(0.5, 0.5))
	require.NoError(t, err)
	assert.Equal(t, 0.25, l)

	l, err = Loss(tensor.Zeros2D(0, 1), tensor.Zeros2D(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, l)

	_, err = Loss(tensor.NewVector(1, 0), tensor.NewVector(1))
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))
}
