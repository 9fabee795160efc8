package cnn

import (
	"log"

	"github.com/pkg/errors"

	"neuranet/tensor"
)

// Network chains convolution stages, feeding each stage's pooled output to the
// next one.
type Network struct {
	stages []*Convolution
	logger *log.Logger
}

// NetworkOption customises a Network.
type NetworkOption func(*Network)

// WithLogger logs the filtered and pooled shape of every stage.
func WithLogger(l *log.Logger) NetworkOption {
	return func(n *Network) {
		n.logger = l
	}
}

// NewNetwork copies stages, so later changes to them do not reach the network.
func NewNetwork(stages []*Convolution, opts ...NetworkOption) *Network {
	n := &Network{stages: make([]*Convolution, len(stages))}
	for i, s := range stages {
		n.stages[i] = s.Clone()
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Stages returns copies of the stages.
func (n *Network) Stages() []*Convolution {
	out := make([]*Convolution, len(n.stages))
	for i, s := range n.stages {
		out[i] = s.Clone()
	}
	return out
}

// Compute runs input through every stage. With no stages it returns a copy of
// input.
func (n *Network) Compute(input *tensor.Tensor3D) (*tensor.Tensor3D, error) {
	out := input.Clone()
	for i, s := range n.stages {
		filtered, err := s.Filter(out)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d", i)
		}
		if out, err = s.Pool(filtered); err != nil {
			return nil, errors.Wrapf(err, "stage %d", i)
		}
		if n.logger != nil {
			n.logger.Printf("stage %d filtered %v pooled %v", i, filtered.Shape(), out.Shape())
		}
	}
	return out, nil
}

// ComputeFlat runs Compute and flattens the result into a column vector that
// can feed a feedforward network.
func (n *Network) ComputeFlat(input *tensor.Tensor3D) (*tensor.Tensor2D, error) {
	out, err := n.Compute(input)
	if err != nil {
		return nil, err
	}
	return out.Flatten(), nil
}
