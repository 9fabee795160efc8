// Package cnn runs image-like 3D tensors through a chain of convolution stages.
// Each stage correlates its input with a bank of filters, activates every
// filtered layer and downsamples it by pooling. Stages only compute forward.
package cnn

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"neuranet/neuralnet"
	"neuranet/tensor"
)

// Pooling selects how a pool window is reduced to one value.
type Pooling int

const (
	PoolMax Pooling = iota
	PoolAverage
)

func (p Pooling) String() string {
	switch p {
	case PoolMax:
		return "max"
	case PoolAverage:
		return "average"
	default:
		return fmt.Sprintf("Pooling(%d)", int(p))
	}
}

// Config describes one convolution stage.
type Config struct {
	// Filters is the number of filters, which is also the number of output layers.
	Filters int
	// FilterRows, FilterCols and FilterLayers give each filter's shape.
	// FilterLayers must match the layer count of the stage's input.
	FilterRows   int
	FilterCols   int
	FilterLayers int

	Stride  int
	Padding int

	Activation neuralnet.Activation

	PoolSize   int
	PoolStride int
	Pooling    Pooling

	// Workers is the number of goroutines filtering in parallel, one filter
	// at a time. Values below 2 filter on the calling goroutine.
	Workers int
}

// DefaultConfig is a single 3x3 sigmoid filter over one layer, stride 1, no
// padding, and no downsampling.
func DefaultConfig() Config {
	return Config{
		Filters:      1,
		FilterRows:   3,
		FilterCols:   3,
		FilterLayers: 1,
		Stride:       1,
		Activation:   neuralnet.ActivationSigmoid,
		PoolSize:     1,
		PoolStride:   1,
		Pooling:      PoolMax,
	}
}

func (c Config) validate() error {
	positive := []struct {
		name string
		v    int
	}{
		{"filter count", c.Filters},
		{"filter rows", c.FilterRows},
		{"filter cols", c.FilterCols},
		{"filter layers", c.FilterLayers},
		{"stride", c.Stride},
		{"pool size", c.PoolSize},
		{"pool stride", c.PoolStride},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return errors.Wrapf(tensor.ErrMalformedInput, "%s %d", p.name, p.v)
		}
	}
	if c.Padding < 0 {
		return errors.Wrapf(tensor.ErrMalformedInput, "padding %d", c.Padding)
	}
	if !c.Activation.Valid() {
		return errors.Wrapf(tensor.ErrMalformedInput, "activation %v", c.Activation)
	}
	if c.Pooling != PoolMax && c.Pooling != PoolAverage {
		return errors.Wrapf(tensor.ErrMalformedInput, "pooling %v", c.Pooling)
	}
	return nil
}

func (c Config) filterShape() tensor.Shape {
	return tensor.Shape{c.FilterRows, c.FilterCols, c.FilterLayers}
}

// Convolution is one stage: a filter bank with one bias per filter, followed by
// activation and pooling. Its shapes are fixed at construction; only filter
// values and biases change.
type Convolution struct {
	cfg     Config
	filters []*tensor.Tensor3D
	biases  []float64
}

// NewConvolution draws filter weights from [-1, 1) for sigmoid stages and from
// [0.001, 1) otherwise. Biases start at zero. A nil rng is seeded from the
// filter shape, so equal configs build equal stages.
func NewConvolution(cfg Config, rng *rand.Rand) (*Convolution, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		seed := neuralnet.NNSeed([]int{cfg.Filters, cfg.FilterRows, cfg.FilterCols, cfg.FilterLayers})
		rng = rand.New(rand.NewSource(seed))
	}
	min, max := 0.001, 1.0
	if cfg.Activation == neuralnet.ActivationSigmoid {
		min = -1
	}

	c := &Convolution{
		cfg:     cfg,
		filters: make([]*tensor.Tensor3D, cfg.Filters),
		biases:  make([]float64, cfg.Filters),
	}
	for i := range c.filters {
		c.filters[i] = tensor.Random3D(cfg.FilterRows, cfg.FilterCols, cfg.FilterLayers, min, max, rng)
	}
	return c, nil
}

func (c *Convolution) Config() Config { return c.cfg }

// Filters returns copies of the filters.
func (c *Convolution) Filters() []*tensor.Tensor3D {
	out := make([]*tensor.Tensor3D, len(c.filters))
	for i, f := range c.filters {
		out[i] = f.Clone()
	}
	return out
}

func (c *Convolution) Biases() []float64 {
	return append([]float64(nil), c.biases...)
}

// SetFilter replaces filter i with a copy of f. A filter of the wrong shape is
// replaced by zeros and reported with an error wrapping tensor.ErrMalformedInput.
func (c *Convolution) SetFilter(i int, f *tensor.Tensor3D) error {
	if i < 0 || i >= len(c.filters) {
		return &tensor.IndexError{Shape: tensor.Shape{len(c.filters)}, Index: []int{i}}
	}
	want := c.cfg.filterShape()
	if f == nil || !f.Shape().Equal(want) {
		c.filters[i] = tensor.Zeros3D(want[0], want[1], want[2])
		var got tensor.Shape
		if f != nil {
			got = f.Shape()
		}
		return errors.Wrapf(tensor.ErrMalformedInput, "filter %d has shape %v, want %v; reset to zeros", i, got, want)
	}
	c.filters[i] = f.Clone()
	return nil
}

func (c *Convolution) SetBias(i int, b float64) error {
	if i < 0 || i >= len(c.biases) {
		return &tensor.IndexError{Shape: tensor.Shape{len(c.biases)}, Index: []int{i}}
	}
	c.biases[i] = b
	return nil
}

// Clone returns a deep copy.
func (c *Convolution) Clone() *Convolution {
	return &Convolution{cfg: c.cfg, filters: c.Filters(), biases: c.Biases()}
}

// filteredSize is floor((n − f + 2p)/s) + 1.
func (c *Convolution) filteredSize(n, f int) int {
	d := n - f + 2*c.cfg.Padding
	if d < 0 {
		return 0
	}
	return d/c.cfg.Stride + 1
}

// pooledSize is floor((n − pool)/stride) + 1.
func (c *Convolution) pooledSize(n int) int {
	if n < c.cfg.PoolSize {
		return 0
	}
	return (n-c.cfg.PoolSize)/c.cfg.PoolStride + 1
}

// OutputShape returns the shape Forward produces for a rows x cols input.
func (c *Convolution) OutputShape(rows, cols int) (tensor.Shape, error) {
	fr, fc := c.filteredSize(rows, c.cfg.FilterRows), c.filteredSize(cols, c.cfg.FilterCols)
	if fr == 0 || fc == 0 {
		return nil, errors.Wrapf(tensor.ErrMalformedInput, "%dx%d input is smaller than the %dx%d filter with padding %d",
			rows, cols, c.cfg.FilterRows, c.cfg.FilterCols, c.cfg.Padding)
	}
	pr, pc := c.pooledSize(fr), c.pooledSize(fc)
	if pr == 0 || pc == 0 {
		return nil, errors.Wrapf(tensor.ErrMalformedInput, "%dx%d filtered layer is smaller than pool size %d",
			fr, fc, c.cfg.PoolSize)
	}
	return tensor.Shape{pr, pc, c.cfg.Filters}, nil
}

// Forward filters input and pools the result.
func (c *Convolution) Forward(input *tensor.Tensor3D) (*tensor.Tensor3D, error) {
	filtered, err := c.Filter(input)
	if err != nil {
		return nil, err
	}
	return c.Pool(filtered)
}

// Filter correlates input with every filter and activates each resulting layer
// on its own. Windows reaching past the input edges read zeros.
func (c *Convolution) Filter(input *tensor.Tensor3D) (*tensor.Tensor3D, error) {
	if input.LayerCount() != c.cfg.FilterLayers {
		return nil, &tensor.ShapeError{
			Op: "convolution input",
			A:  input.Shape(),
			B:  tensor.Shape{input.RowCount(), input.ColCount(), c.cfg.FilterLayers},
		}
	}
	rows := c.filteredSize(input.RowCount(), c.cfg.FilterRows)
	cols := c.filteredSize(input.ColCount(), c.cfg.FilterCols)
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(tensor.ErrMalformedInput, "%v input is smaller than the %v filter with padding %d",
			input.Shape(), c.cfg.filterShape(), c.cfg.Padding)
	}

	layers := make([]*tensor.Tensor3D, len(c.filters))
	errs := make([]error, len(c.filters))
	if c.cfg.Workers < 2 {
		for f := range c.filters {
			if layers[f], errs[f] = c.filterLayer(input, f, rows, cols); errs[f] != nil {
				return nil, errors.Wrapf(errs[f], "filter %d", f)
			}
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < c.cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for f := range jobs {
					layers[f], errs[f] = c.filterLayer(input, f, rows, cols)
				}
			}()
		}
		for f := range c.filters {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		for f, err := range errs {
			if err != nil {
				return nil, errors.Wrapf(err, "filter %d", f)
			}
		}
	}

	filtered := tensor.Zeros3D(rows, cols, len(c.filters))
	for f, l := range layers {
		if err := filtered.SetLayer(f, l); err != nil {
			return nil, errors.Wrapf(err, "filter %d", f)
		}
	}
	return filtered, nil
}

// filterLayer computes the activated rows x cols x 1 output of filter f.
func (c *Convolution) filterLayer(input *tensor.Tensor3D, f, rows, cols int) (*tensor.Tensor3D, error) {
	filter := c.filters[f]
	out := tensor.Zeros3D(rows, cols, 1)
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			r0 := r*c.cfg.Stride - c.cfg.Padding
			c0 := col*c.cfg.Stride - c.cfg.Padding
			window, err := input.Slice(r0, c0, 0, r0+c.cfg.FilterRows, c0+c.cfg.FilterCols, input.LayerCount())
			if err != nil {
				return nil, err
			}
			product, err := window.Hadamard(filter)
			if err != nil {
				return nil, err
			}
			if err := out.Set(r, col, 0, product.Sum()+c.biases[f]); err != nil {
				return nil, err
			}
		}
	}
	return neuralnet.Activate3D(out, c.cfg.Activation), nil
}

// Pool downsamples every layer of filtered. Pool windows never extend past the
// edges of filtered.
func (c *Convolution) Pool(filtered *tensor.Tensor3D) (*tensor.Tensor3D, error) {
	rows, cols := c.pooledSize(filtered.RowCount()), c.pooledSize(filtered.ColCount())
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(tensor.ErrMalformedInput, "%v filtered tensor is smaller than pool size %d",
			filtered.Shape(), c.cfg.PoolSize)
	}
	size, stride := c.cfg.PoolSize, c.cfg.PoolStride

	pooled := tensor.Zeros3D(rows, cols, filtered.LayerCount())
	for l := 0; l < filtered.LayerCount(); l++ {
		for r := 0; r < rows; r++ {
			for col := 0; col < cols; col++ {
				r0, c0 := r*stride, col*stride
				window, err := filtered.Slice(r0, c0, l, r0+size, c0+size, l+1)
				if err != nil {
					return nil, errors.Wrapf(err, "pooling layer %d", l)
				}
				if err := pooled.Set(r, col, l, c.reduce(window)); err != nil {
					return nil, errors.Wrapf(err, "pooling layer %d", l)
				}
			}
		}
	}
	return pooled, nil
}

func (c *Convolution) reduce(window *tensor.Tensor3D) float64 {
	if c.cfg.Pooling == PoolMax {
		v, _ := window.At(window.IndexOfMax())
		return v
	}
	return window.Sum() / float64(c.cfg.PoolSize*c.cfg.PoolSize)
}
