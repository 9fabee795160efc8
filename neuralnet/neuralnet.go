// Package neuralnet implements a fully-connected feedforward network trained by
// mini-batch gradient descent with hand-derived backpropagation.
package neuralnet

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"neuranet/tensor"
)

// Layer holds the parameters of the transition into one network layer:
// Weights is [out, in] and Biases is [out, 1].
type Layer struct {
	Weights *tensor.Tensor2D
	Biases  *tensor.Tensor2D
}

func (l Layer) clone() Layer {
	return Layer{Weights: l.Weights.Clone(), Biases: l.Biases.Clone()}
}

// NeuralNetwork is a sequence of layers sharing one activation. Training mutates
// the layers in place; the node counts never change after construction.
type NeuralNetwork struct {
	nodeCounts []int
	layers     []Layer
	activation Activation
	cost       LossFunction
}

type options struct {
	seed   int64
	seeded bool
	cost   LossFunction
}

// Option customises a NeuralNetwork at construction.
type Option func(*options)

// WithSeed seeds the weight initialisation. Without it the seed is
// NNSeed(nodeCounts).
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithCost sets the cost backpropagation differentiates. The default is
// QuadraticCost.
func WithCost(cost LossFunction) Option {
	return func(o *options) {
		o.cost = cost
	}
}

// NNSeed derives a deterministic seed from the layer sizes.
func NNSeed(nodeCounts []int) int64 {
	var seed int64
	for _, n := range nodeCounts {
		seed += int64(n)
	}
	return seed
}

func validateNodeCounts(nodeCounts []int) error {
	if len(nodeCounts) < 2 {
		return errors.Wrapf(tensor.ErrMalformedInput, "need at least 2 layers, got %d", len(nodeCounts))
	}
	for i, n := range nodeCounts {
		if n <= 0 {
			return errors.Wrapf(tensor.ErrMalformedInput, "layer %d has %d nodes", i, n)
		}
	}
	return nil
}

func validateActivation(a Activation) error {
	if !a.Valid() {
		return errors.Wrapf(tensor.ErrMalformedInput, "unknown activation %v", a)
	}
	return nil
}

func buildOptions(nodeCounts []int, opts []Option) options {
	o := options{cost: QuadraticCost{}}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = NNSeed(nodeCounts)
	}
	return o
}

// NewNeuralNetwork creates a network with nodeCounts[i] nodes in layer i. Weights
// are drawn from [-1, 1) for sigmoid networks and from [0.001, 1) otherwise, so
// ReLU units start alive. Biases start at zero.
func NewNeuralNetwork(nodeCounts []int, activation Activation, opts ...Option) (*NeuralNetwork, error) {
	if err := validateNodeCounts(nodeCounts); err != nil {
		return nil, err
	}
	if err := validateActivation(activation); err != nil {
		return nil, err
	}
	o := buildOptions(nodeCounts, opts)
	rng := rand.New(rand.NewSource(o.seed))

	min, max := 0.001, 1.0
	if activation == ActivationSigmoid {
		min = -1
	}

	nn := &NeuralNetwork{
		nodeCounts: append([]int(nil), nodeCounts...),
		layers:     make([]Layer, len(nodeCounts)-1),
		activation: activation,
		cost:       o.cost,
	}
	for i := range nn.layers {
		nn.layers[i] = Layer{
			Weights: tensor.Random2D(nodeCounts[i+1], nodeCounts[i], min, max, rng),
			Biases:  tensor.Zeros2D(nodeCounts[i+1], 1),
		}
	}
	return nn, nil
}

// NewFromLayers creates a network with the given parameters. A weight or bias
// tensor whose shape does not fit nodeCounts is replaced by zeros; the network
// is still returned, together with an error wrapping tensor.ErrMalformedInput
// that lists every reset.
func NewFromLayers(nodeCounts []int, activation Activation, layers []Layer, opts ...Option) (*NeuralNetwork, error) {
	if err := validateNodeCounts(nodeCounts); err != nil {
		return nil, err
	}
	if err := validateActivation(activation); err != nil {
		return nil, err
	}
	if len(layers) != len(nodeCounts)-1 {
		return nil, errors.Wrapf(tensor.ErrMalformedInput, "%d node counts need %d layers, got %d",
			len(nodeCounts), len(nodeCounts)-1, len(layers))
	}
	o := buildOptions(nodeCounts, opts)

	nn := &NeuralNetwork{
		nodeCounts: append([]int(nil), nodeCounts...),
		layers:     make([]Layer, len(layers)),
		activation: activation,
		cost:       o.cost,
	}
	var resets []string
	for i, l := range layers {
		in, out := nodeCounts[i], nodeCounts[i+1]
		var ok bool
		if nn.layers[i].Weights, ok = fitOrZero(l.Weights, out, in); !ok {
			resets = append(resets, fmt.Sprintf("layer %d weights reset to %dx%d zeros", i, out, in))
		}
		if nn.layers[i].Biases, ok = fitOrZero(l.Biases, out, 1); !ok {
			resets = append(resets, fmt.Sprintf("layer %d biases reset to %dx1 zeros", i, out))
		}
	}
	if len(resets) > 0 {
		return nn, errors.Wrap(tensor.ErrMalformedInput, strings.Join(resets, "; "))
	}
	return nn, nil
}

// fitOrZero copies t when it is rows x cols and reports false with a zero
// tensor otherwise.
func fitOrZero(t *tensor.Tensor2D, rows, cols int) (*tensor.Tensor2D, bool) {
	if t == nil || t.RowCount() != rows || t.ColCount() != cols {
		return tensor.Zeros2D(rows, cols), false
	}
	return t.Clone(), true
}

// NodeCounts returns the number of nodes in each layer.
func (nn *NeuralNetwork) NodeCounts() []int {
	return append([]int(nil), nn.nodeCounts...)
}

func (nn *NeuralNetwork) Activation() Activation { return nn.activation }

// Layers returns a deep copy of the parameters.
func (nn *NeuralNetwork) Layers() []Layer {
	out := make([]Layer, len(nn.layers))
	for i, l := range nn.layers {
		out[i] = l.clone()
	}
	return out
}

func (nn *NeuralNetwork) inputCount() int  { return nn.nodeCounts[0] }
func (nn *NeuralNetwork) outputCount() int { return nn.nodeCounts[len(nn.nodeCounts)-1] }

func (nn *NeuralNetwork) checkInput(input *tensor.Tensor2D) error {
	if input == nil {
		return errors.Wrap(tensor.ErrMalformedInput, "missing network input")
	}
	if input.RowCount() != nn.inputCount() || input.ColCount() != 1 {
		return &tensor.ShapeError{Op: "network input", A: input.Shape(), B: tensor.Shape{nn.inputCount(), 1}}
	}
	return nil
}

func (nn *NeuralNetwork) checkExpected(expected *tensor.Tensor2D) error {
	if expected == nil {
		return errors.Wrap(tensor.ErrMalformedInput, "missing expected output")
	}
	if expected.RowCount() != nn.outputCount() || expected.ColCount() != 1 {
		return &tensor.ShapeError{Op: "network output", A: expected.Shape(), B: tensor.Shape{nn.outputCount(), 1}}
	}
	return nil
}

// Compute runs a forward pass. input must be [inputNodes, 1].
func (nn *NeuralNetwork) Compute(input *tensor.Tensor2D) (*tensor.Tensor2D, error) {
	zs, err := nn.ZValues(input)
	if err != nil {
		return nil, err
	}
	return Activate(zs[len(zs)-1], nn.activation), nil
}

// ZValues runs a forward pass and returns every layer's pre-activation values.
// The first entry is the input itself, which counts as already activated.
func (nn *NeuralNetwork) ZValues(input *tensor.Tensor2D) ([]*tensor.Tensor2D, error) {
	if err := nn.checkInput(input); err != nil {
		return nil, err
	}
	zs := make([]*tensor.Tensor2D, len(nn.layers)+1)
	zs[0] = input.Clone()
	a := input
	for i, l := range nn.layers {
		wa, err := l.Weights.MatMul(a)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		z, err := wa.Add(l.Biases)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		zs[i+1] = z
		a = Activate(z, nn.activation)
	}
	return zs, nil
}

// activated returns the activations of layer i given the ZValues zs.
func (nn *NeuralNetwork) activated(zs []*tensor.Tensor2D, i int) *tensor.Tensor2D {
	if i == 0 {
		return zs[0]
	}
	return Activate(zs[i], nn.activation)
}

// Backpropagate returns the gradients of the network's cost for one example,
// given its ZValues and the expected output. The output error is
// cost'(output) ⊙ σ'(z_L), which for QuadraticCost is (output − expected) ⊙ σ'(z_L).
func (nn *NeuralNetwork) Backpropagate(zs []*tensor.Tensor2D, expected *tensor.Tensor2D) (*Gradients, error) {
	last := len(nn.layers)
	if len(zs) != last+1 {
		return nil, errors.Wrapf(tensor.ErrMalformedInput, "%d z values for %d layers", len(zs), last)
	}
	if err := nn.checkExpected(expected); err != nil {
		return nil, err
	}

	output := nn.activated(zs, last)
	dCda, err := nn.cost.Gradient(output, expected)
	if err != nil {
		return nil, errors.Wrap(err, "output error")
	}

	grads := &Gradients{
		Weights: make([]*tensor.Tensor2D, last),
		Biases:  make([]*tensor.Tensor2D, last),
	}
	var delta *tensor.Tensor2D
	for l := last - 1; l >= 0; l-- {
		sigmaPrime := ActivateDerivative(zs[l+1], nn.activation)
		if l == last-1 {
			delta, err = dCda.Hadamard(sigmaPrime)
		} else {
			var back *tensor.Tensor2D
			back, err = nn.layers[l+1].Weights.T().MatMul(delta)
			if err == nil {
				delta, err = back.Hadamard(sigmaPrime)
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d delta", l)
		}

		grads.Weights[l], err = delta.MatMul(nn.activated(zs, l).T())
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d weight gradient", l)
		}
		grads.Biases[l] = delta.Clone()
	}
	return grads, nil
}

// DatasetGradients runs a forward pass on the dataset's input and backpropagates
// against its expected output.
func (nn *NeuralNetwork) DatasetGradients(d *Dataset) (*Gradients, error) {
	zs, err := nn.ZValues(d.Input())
	if err != nil {
		return nil, err
	}
	return nn.Backpropagate(zs, d.ExpectedOutput())
}

// AverageLoss is the mean of Loss over datasets. It is 0 for no datasets.
func (nn *NeuralNetwork) AverageLoss(datasets []*Dataset) (float64, error) {
	if len(datasets) == 0 {
		return 0, nil
	}
	var total float64
	for i, d := range datasets {
		if err := nn.checkExpected(d.ExpectedOutput()); err != nil {
			return 0, errors.Wrapf(err, "dataset %d", i)
		}
		out, err := nn.Compute(d.Input())
		if err != nil {
			return 0, errors.Wrapf(err, "dataset %d", i)
		}
		loss, err := Loss(d.ExpectedOutput(), out)
		if err != nil {
			return 0, errors.Wrapf(err, "dataset %d", i)
		}
		total += loss
	}
	return total / float64(len(datasets)), nil
}

// Evaluate records the network output on every dataset and returns the average
// of their cost tensors, or nil when there is nothing to average.
func (nn *NeuralNetwork) Evaluate(datasets []*Dataset) (*tensor.Tensor2D, error) {
	var total *tensor.Tensor2D
	count := 0
	for i, d := range datasets {
		out, err := nn.Compute(d.Input())
		if err != nil {
			return nil, errors.Wrapf(err, "dataset %d", i)
		}
		if err := d.SetOutput(out); err != nil {
			return nil, errors.Wrapf(err, "dataset %d", i)
		}
		if d.Cost() == nil {
			continue
		}
		if total == nil {
			total = d.Cost().Clone()
		} else if total, err = total.Add(d.Cost()); err != nil {
			return nil, errors.Wrapf(err, "dataset %d", i)
		}
		count++
	}
	if count == 0 {
		return nil, nil
	}
	return total.Divide(float64(count)), nil
}

// Accuracy is the fraction of datasets whose output and expected output peak at
// the same row.
func (nn *NeuralNetwork) Accuracy(datasets []*Dataset) (float64, error) {
	if len(datasets) == 0 {
		return 0, nil
	}
	correct := 0
	for i, d := range datasets {
		if err := nn.checkExpected(d.ExpectedOutput()); err != nil {
			return 0, errors.Wrapf(err, "dataset %d", i)
		}
		out, err := nn.Compute(d.Input())
		if err != nil {
			return 0, errors.Wrapf(err, "dataset %d", i)
		}
		guess, _ := out.IndexOfMax()
		answer, _ := d.ExpectedOutput().IndexOfMax()
		if guess == answer {
			correct++
		}
	}
	return float64(correct) / float64(len(datasets)), nil
}
