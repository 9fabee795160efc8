package neuralnet

import (
	"fmt"
	"math"

	"neuranet/tensor"
)

// ActivationFunction is a scalar nonlinearity and its derivative, both
// evaluated at the pre-activation value.
type ActivationFunction interface {
	Activate(x float64) float64
	Derivative(x float64) float64
}

type ReLU struct{}

func (r ReLU) Activate(x float64) float64 {
	return math.Max(x, 0)
}

// Derivative is 0 at x == 0.
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

type Sigmoid struct{}

func (s Sigmoid) Activate(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (s Sigmoid) Derivative(x float64) float64 {
	sigmoid := s.Activate(x)
	return sigmoid * (1 - sigmoid)
}

// Activation selects the nonlinearity a network or convolution applies after
// every linear step.
type Activation int

const (
	ActivationSigmoid Activation = iota
	ActivationReLU
	// ActivationReLUNormalized applies ReLU, then divides the whole tensor by its
	// largest activated value (at least minNormalizer).
	ActivationReLUNormalized
)

// minNormalizer bounds the divisor of ActivationReLUNormalized away from zero.
const minNormalizer = 1e-4

func (a Activation) String() string {
	switch a {
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationReLU:
		return "relu"
	case ActivationReLUNormalized:
		return "relu-normalized"
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

// Valid reports whether a is one of the defined activations.
func (a Activation) Valid() bool {
	return a >= ActivationSigmoid && a <= ActivationReLUNormalized
}

// Func returns the scalar function behind a. Normalization is a tensor-wide step
// and is not part of it.
func (a Activation) Func() ActivationFunction {
	if a == ActivationSigmoid {
		return Sigmoid{}
	}
	return ReLU{}
}

// Activate applies a to every entry of z.
func Activate(z *tensor.Tensor2D, a Activation) *tensor.Tensor2D {
	out := z.Apply(a.Func().Activate)
	if a == ActivationReLUNormalized {
		return out.Divide(normalizer(out.Data()))
	}
	return out
}

// ActivateDerivative returns the derivative of a at every entry of z.
// ActivationReLUNormalized differentiates as plain ReLU.
func ActivateDerivative(z *tensor.Tensor2D, a Activation) *tensor.Tensor2D {
	return z.Apply(a.Func().Derivative)
}

// Activate3D applies a to every entry of z. For ActivationReLUNormalized the
// divisor is the largest value anywhere in z.
func Activate3D(z *tensor.Tensor3D, a Activation) *tensor.Tensor3D {
	out := z.Apply(a.Func().Activate)
	if a == ActivationReLUNormalized {
		return out.Divide(normalizer(out.Data()))
	}
	return out
}

func ActivateDerivative3D(z *tensor.Tensor3D, a Activation) *tensor.Tensor3D {
	return z.Apply(a.Func().Derivative)
}

func normalizer(activated []float64) float64 {
	max := minNormalizer
	for _, v := range activated {
		if v > max {
			max = v
		}
	}
	return max
}
