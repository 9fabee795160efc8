package neuralnet

import (
	"github.com/pkg/errors"

	"neuranet/tensor"
)

// Gradients holds one weight and one bias gradient per network layer, shaped
// like the layer's parameters.
type Gradients struct {
	Weights []*tensor.Tensor2D
	Biases  []*tensor.Tensor2D
}

// Clone returns a deep copy.
func (g *Gradients) Clone() *Gradients {
	c := &Gradients{
		Weights: make([]*tensor.Tensor2D, len(g.Weights)),
		Biases:  make([]*tensor.Tensor2D, len(g.Biases)),
	}
	for i := range g.Weights {
		c.Weights[i] = g.Weights[i].Clone()
	}
	for i := range g.Biases {
		c.Biases[i] = g.Biases[i].Clone()
	}
	return c
}

// Add accumulates o into g layer by layer.
func (g *Gradients) Add(o *Gradients) error {
	if len(g.Weights) != len(o.Weights) || len(g.Biases) != len(o.Biases) {
		return errors.Wrapf(tensor.ErrMalformedInput, "adding gradients of %d layers to %d layers", len(o.Weights), len(g.Weights))
	}
	weights := make([]*tensor.Tensor2D, len(g.Weights))
	biases := make([]*tensor.Tensor2D, len(g.Biases))
	var err error
	for i := range g.Weights {
		if weights[i], err = g.Weights[i].Add(o.Weights[i]); err != nil {
			return errors.Wrapf(err, "layer %d weights", i)
		}
		if biases[i], err = g.Biases[i].Add(o.Biases[i]); err != nil {
			return errors.Wrapf(err, "layer %d biases", i)
		}
	}
	g.Weights, g.Biases = weights, biases
	return nil
}

// Divide returns g with every entry divided by divisor.
func (g *Gradients) Divide(divisor float64) *Gradients {
	out := &Gradients{
		Weights: make([]*tensor.Tensor2D, len(g.Weights)),
		Biases:  make([]*tensor.Tensor2D, len(g.Biases)),
	}
	for i := range g.Weights {
		out.Weights[i] = g.Weights[i].Divide(divisor)
	}
	for i := range g.Biases {
		out.Biases[i] = g.Biases[i].Divide(divisor)
	}
	return out
}

// Optimizer defines interface to apply batch gradients to a network.
type Optimizer interface {
	// Apply updates nn with grads, the sum of batchSize per-example gradients.
	Apply(nn *NeuralNetwork, grads *Gradients, batchSize int, learningRate float64) error
}

// SGD implements mini-batch stochastic gradient descent:
// W ← W − learningRate · grads/batchSize.
type SGD struct{}

// Apply averages grads over the batch and steps against them. Either every
// layer is updated or none is.
func (o *SGD) Apply(nn *NeuralNetwork, grads *Gradients, batchSize int, learningRate float64) error {
	if batchSize <= 0 {
		return errors.New("invalid batch size")
	}
	if len(grads.Weights) != len(nn.layers) || len(grads.Biases) != len(nn.layers) {
		return errors.Wrapf(tensor.ErrMalformedInput, "gradients for %d layers, network has %d", len(grads.Weights), len(nn.layers))
	}
	avg := grads.Divide(float64(batchSize))

	updated := make([]Layer, len(nn.layers))
	for i, l := range nn.layers {
		w, err := l.Weights.Sub(avg.Weights[i].Scale(learningRate))
		if err != nil {
			return errors.Wrapf(err, "layer %d weights", i)
		}
		b, err := l.Biases.Sub(avg.Biases[i].Scale(learningRate))
		if err != nil {
			return errors.Wrapf(err, "layer %d biases", i)
		}
		updated[i] = Layer{Weights: w, Biases: b}
	}
	copy(nn.layers, updated)
	return nil
}
