package neuralnet

import (
	"math"

	"github.com/pkg/errors"

	"neuranet/tensor"
)

// LossFunction defines the interface for computing loss and its gradient.
type LossFunction interface {
	// Compute returns the loss of output against expected.
	Compute(output, expected *tensor.Tensor2D) (float64, error)
	// Gradient returns ∂L/∂output for each output node.
	Gradient(output, expected *tensor.Tensor2D) (*tensor.Tensor2D, error)
}

// QuadraticCost is ½·Σ(output − expected)². Its gradient is output − expected,
// the output error backpropagation starts from.
type QuadraticCost struct{}

func (QuadraticCost) Compute(output, expected *tensor.Tensor2D) (float64, error) {
	diff, err := output.Sub(expected)
	if err != nil {
		return 0, err
	}
	return diff.Pow(2).Sum() / 2, nil
}

func (QuadraticCost) Gradient(output, expected *tensor.Tensor2D) (*tensor.Tensor2D, error) {
	return output.Sub(expected)
}

// MeanSquaredError is Σ(expected − output)² / n over the n output nodes.
type MeanSquaredError struct{}

func (MeanSquaredError) Compute(output, expected *tensor.Tensor2D) (float64, error) {
	return Loss(expected, output)
}

func (MeanSquaredError) Gradient(output, expected *tensor.Tensor2D) (*tensor.Tensor2D, error) {
	diff, err := output.Sub(expected)
	if err != nil {
		return nil, err
	}
	n := output.Shape().Size()
	return diff.Scale(2 / float64(n)), nil
}

// CrossEntropy is the binary cross-entropy of independent outputs in (0, 1),
// which suits sigmoid output layers.
type CrossEntropy struct{}

// probabilityFloor keeps log and division away from 0 and 1.
const probabilityFloor = 1e-15

func clampProbability(p float64) float64 {
	return math.Min(math.Max(p, probabilityFloor), 1-probabilityFloor)
}

// Compute returns −Σ t·ln(p) + (1−t)·ln(1−p).
func (CrossEntropy) Compute(output, expected *tensor.Tensor2D) (float64, error) {
	if !output.Shape().Equal(expected.Shape()) {
		return 0, &tensor.ShapeError{Op: "cross-entropy", A: output.Shape(), B: expected.Shape()}
	}
	p, t := output.Data(), expected.Data()
	var loss float64
	for i := range p {
		pi := clampProbability(p[i])
		loss -= t[i]*math.Log(pi) + (1-t[i])*math.Log(1-pi)
	}
	return loss, nil
}

// Gradient returns (p − t) / (p·(1 − p)).
func (CrossEntropy) Gradient(output, expected *tensor.Tensor2D) (*tensor.Tensor2D, error) {
	diff, err := output.Sub(expected)
	if err != nil {
		return nil, err
	}
	scale := output.Apply(func(p float64) float64 {
		p = clampProbability(p)
		return 1 / (p * (1 - p))
	})
	return diff.Hadamard(scale)
}

// Loss is the mean squared error of one example: Σ(expected − output)² / n.
func Loss(expected, output *tensor.Tensor2D) (float64, error) {
	diff, err := expected.Sub(output)
	if err != nil {
		return 0, errors.Wrap(err, "computing loss")
	}
	n := output.Shape().Size()
	if n == 0 {
		return 0, nil
	}
	return diff.Pow(2).Sum() / float64(n), nil
}
