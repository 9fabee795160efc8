package neuralnet

import (
	"github.com/pkg/errors"

	"neuranet/tensor"
)

// Dataset pairs an input with the output a network is expected to produce for
// it. Once a network output is recorded, Cost holds (expected − output)²
// entry by entry.
type Dataset struct {
	input          *tensor.Tensor2D
	expectedOutput *tensor.Tensor2D
	output         *tensor.Tensor2D
	cost           *tensor.Tensor2D
}

// NewDataset copies input and expectedOutput.
func NewDataset(input, expectedOutput *tensor.Tensor2D) *Dataset {
	return &Dataset{input: clone(input), expectedOutput: clone(expectedOutput)}
}

func clone(t *tensor.Tensor2D) *tensor.Tensor2D {
	if t == nil {
		return nil
	}
	return t.Clone()
}

func (d *Dataset) Input() *tensor.Tensor2D          { return d.input }
func (d *Dataset) ExpectedOutput() *tensor.Tensor2D { return d.expectedOutput }

// Output is the last network output recorded with SetOutput, or nil.
func (d *Dataset) Output() *tensor.Tensor2D { return d.output }

// Cost is nil until both an output and an expected output are present.
func (d *Dataset) Cost() *tensor.Tensor2D { return d.cost }

func (d *Dataset) SetInput(input *tensor.Tensor2D) {
	d.input = clone(input)
}

func (d *Dataset) SetExpectedOutput(expected *tensor.Tensor2D) error {
	d.expectedOutput = clone(expected)
	return d.updateCost()
}

func (d *Dataset) SetOutput(output *tensor.Tensor2D) error {
	d.output = clone(output)
	return d.updateCost()
}

func (d *Dataset) updateCost() error {
	d.cost = nil
	if d.output == nil || d.expectedOutput == nil {
		return nil
	}
	diff, err := d.expectedOutput.Sub(d.output)
	if err != nil {
		return errors.Wrap(err, "computing dataset cost")
	}
	d.cost = diff.Pow(2)
	return nil
}

// Clone returns a deep copy, cached output and cost included.
func (d *Dataset) Clone() *Dataset {
	return &Dataset{
		input:          clone(d.input),
		expectedOutput: clone(d.expectedOutput),
		output:         clone(d.output),
		cost:           clone(d.cost),
	}
}

// Equal compares inputs and expected outputs only.
func (d *Dataset) Equal(o *Dataset, tol float64) bool {
	if o == nil {
		return false
	}
	return equalOrNil(d.input, o.input, tol) && equalOrNil(d.expectedOutput, o.expectedOutput, tol)
}

func equalOrNil(a, b *tensor.Tensor2D, tol float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b, tol)
}
