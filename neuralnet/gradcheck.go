package neuralnet

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"

	"neuranet/tensor"
)

// NumericalGradients estimates the gradients Backpropagate computes by central
// finite differences of the network's cost on one dataset. It is slow and meant
// for verifying the analytic gradients.
func (nn *NeuralNetwork) NumericalGradients(d *Dataset) (*Gradients, error) {
	if err := nn.checkInput(d.Input()); err != nil {
		return nil, err
	}
	if err := nn.checkExpected(d.ExpectedOutput()); err != nil {
		return nil, err
	}

	probe := &NeuralNetwork{
		nodeCounts: nn.nodeCounts,
		layers:     nn.Layers(),
		activation: nn.activation,
		cost:       nn.cost,
	}
	var evalErr error
	cost := func(x []float64) float64 {
		probe.setParameters(x)
		out, err := probe.Compute(d.Input())
		if err == nil {
			var c float64
			if c, err = probe.cost.Compute(out, d.ExpectedOutput()); err == nil {
				return c
			}
		}
		if evalErr == nil {
			evalErr = err
		}
		return math.NaN()
	}

	grad := fd.Gradient(nil, cost, nn.parameters(), &fd.Settings{Formula: fd.Central})
	if evalErr != nil {
		return nil, errors.Wrap(evalErr, "evaluating cost")
	}
	return nn.unflatten(grad), nil
}

// CheckGradients compares Backpropagate against NumericalGradients on one
// dataset and returns the largest absolute difference over every weight and
// bias.
func (nn *NeuralNetwork) CheckGradients(d *Dataset) (float64, error) {
	analytic, err := nn.DatasetGradients(d)
	if err != nil {
		return 0, err
	}
	numeric, err := nn.NumericalGradients(d)
	if err != nil {
		return 0, err
	}
	var worst float64
	for i := range analytic.Weights {
		worst = math.Max(worst, maxAbsDiff(analytic.Weights[i], numeric.Weights[i]))
		worst = math.Max(worst, maxAbsDiff(analytic.Biases[i], numeric.Biases[i]))
	}
	return worst, nil
}

func maxAbsDiff(a, b *tensor.Tensor2D) float64 {
	var worst float64
	bd := b.Data()
	for i, v := range a.Data() {
		worst = math.Max(worst, math.Abs(v-bd[i]))
	}
	return worst
}

// parameters flattens every layer's weights, then biases, in layer order.
func (nn *NeuralNetwork) parameters() []float64 {
	var x []float64
	for _, l := range nn.layers {
		x = append(x, l.Weights.Data()...)
		x = append(x, l.Biases.Data()...)
	}
	return x
}

func (nn *NeuralNetwork) setParameters(x []float64) {
	g := nn.unflatten(x)
	for i := range nn.layers {
		nn.layers[i] = Layer{Weights: g.Weights[i], Biases: g.Biases[i]}
	}
}

// unflatten splits a vector laid out like parameters into per-layer tensors.
func (nn *NeuralNetwork) unflatten(x []float64) *Gradients {
	g := &Gradients{
		Weights: make([]*tensor.Tensor2D, len(nn.layers)),
		Biases:  make([]*tensor.Tensor2D, len(nn.layers)),
	}
	off := 0
	for i := range nn.layers {
		in, out := nn.nodeCounts[i], nn.nodeCounts[i+1]
		g.Weights[i] = fromFlat(x[off:off+out*in], out, in)
		off += out * in
		g.Biases[i] = fromFlat(x[off:off+out], out, 1)
		off += out
	}
	return g
}

func fromFlat(data []float64, rows, cols int) *tensor.Tensor2D {
	t := tensor.Zeros2D(rows, cols)
	for i, v := range data {
		_ = t.Set(i/cols, i%cols, v)
	}
	return t
}
