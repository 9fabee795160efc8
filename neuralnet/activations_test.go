package neuralnet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuranet/tensor"
)

func TestReLUActivate(t *testing.T) {
	r := ReLU{}
	if got := r.Activate(-1); got != 0 {
		t.Errorf("ReLU.Activate(-1) = %v; want 0", got)
	}
	if got := r.Activate(2); got != 2 {
		t.Errorf("ReLU.Activate(2) = %v; want 2", got)
	}
}

func TestReLUDerivativeAtZero(t *testing.T) {
	r := ReLU{}
	assert.Equal(t, 0.0, r.Derivative(0))
	assert.Equal(t, 0.0, r.Derivative(-3))
	assert.Equal(t, 1.0, r.Derivative(1e-9))
}

func TestSigmoidActivate(t *testing.T) {
	s := Sigmoid{}
	assert.Equal(t, 0.5, s.Activate(0))

	prev := s.Activate(-10)
	for x := -9.5; x <= 10; x += 0.5 {
		cur := s.Activate(x)
		assert.Greater(t, cur, prev, "sigmoid must increase at %v", x)
		prev = cur
	}
}

func TestSigmoidDerivative(t *testing.T) {
	s := Sigmoid{}
	for _, z := range []float64{-5, 0, 5} {
		sz := 1 / (1 + math.Exp(-z))
		assert.InDelta(t, sz*(1-sz), s.Derivative(z), 1e-12, "z=%v", z)
	}
	assert.Equal(t, 0.25, s.Derivative(0))
}

func TestActivateTensor(t *testing.T) {
	z := tensor.NewVector(-2, 0, 3, 1)

	tests := []struct {
		activation Activation
		want       []float64
	}{
		{ActivationReLU, []float64{0, 0, 3, 1}},
		{ActivationReLUNormalized, []float64{0, 0, 1, 1.0 / 3}},
		{ActivationSigmoid, []float64{Sigmoid{}.Activate(-2), 0.5, Sigmoid{}.Activate(3), Sigmoid{}.Activate(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.activation.String(), func(t *testing.T) {
			got := Activate(z, tt.activation).Data()
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestReLUNormalizedFloorsDivisor(t *testing.T) {
	got := Activate(tensor.NewVector(-1, -2, 0), ActivationReLUNormalized)
	assert.Equal(t, []float64{0, 0, 0}, got.Data())

	tiny := Activate(tensor.NewVector(5e-5), ActivationReLUNormalized)
	assert.InDelta(t, 0.5, tiny.Data()[0], 1e-12)
}

func TestActivateDerivativeTensor(t *testing.T) {
	z := tensor.NewVector(-1, 0, 2)
	assert.Equal(t, []float64{0, 0, 1}, ActivateDerivative(z, ActivationReLU).Data())
	assert.Equal(t, []float64{0, 0, 1}, ActivateDerivative(z, ActivationReLUNormalized).Data())
	assert.Equal(t, 0.25, ActivateDerivative(z, ActivationSigmoid).Data()[1])
}

func TestActivate3DNormalizesAcrossLayers(t *testing.T) {
	z, err := tensor.New3D([][][]float64{{{1, 4}, {-2, 2}}})
	require.NoError(t, err)

	got := Activate3D(z, ActivationReLUNormalized)
	assert.Equal(t, []float64{0.25, 1, 0, 0.5}, got.Data())
	assert.Equal(t, []float64{1, 1, 0, 1}, ActivateDerivative3D(z, ActivationReLU).Data())
}

func TestActivationValid(t *testing.T) {
	for _, a := range []Activation{ActivationSigmoid, ActivationReLU, ActivationReLUNormalized} {
		assert.True(t, a.Valid(), a.String())
	}
	assert.False(t, Activation(7).Valid())
	assert.False(t, Activation(-1).Valid())
}
