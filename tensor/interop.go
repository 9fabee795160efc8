package tensor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	gorgonia "gorgonia.org/tensor"
)

// FromMatrix copies a gonum matrix.
func FromMatrix(m mat.Matrix) *Tensor2D {
	rows, cols := m.Dims()
	t := Zeros2D(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			t.data[r*cols+c] = m.At(r, c)
		}
	}
	return t
}

// Dense copies t into a gonum matrix. An empty tensor yields an empty matrix.
func (t *Tensor2D) Dense() *mat.Dense {
	if len(t.data) == 0 {
		return new(mat.Dense)
	}
	return mat.NewDense(t.rows, t.cols, t.Data())
}

// Gorgonia copies t into a float64 gorgonia tensor of shape (rows, cols).
func (t *Tensor2D) Gorgonia() *gorgonia.Dense {
	return gorgonia.New(gorgonia.WithShape(t.rows, t.cols), gorgonia.WithBacking(t.Data()))
}

// Gorgonia copies t into a float64 gorgonia tensor of shape (rows, cols, layers).
func (t *Tensor3D) Gorgonia() *gorgonia.Dense {
	return gorgonia.New(gorgonia.WithShape(t.rows, t.cols, t.layers), gorgonia.WithBacking(t.Data()))
}

// FromGorgonia copies a float32 or float64 gorgonia tensor of rank 2 or 3. A
// rank 2 tensor becomes a single-layer Tensor3D.
func FromGorgonia(src gorgonia.Tensor) (*Tensor3D, error) {
	shape := src.Shape()
	var t *Tensor3D
	switch len(shape) {
	case 2:
		t = Zeros3D(shape[0], shape[1], 1)
	case 3:
		t = Zeros3D(shape[0], shape[1], shape[2])
	default:
		return nil, errors.Wrapf(ErrMalformedInput, "gorgonia tensor of shape %v", shape)
	}

	switch data := src.Data().(type) {
	case []float64:
		if len(data) != len(t.data) {
			return nil, errors.Wrapf(ErrMalformedInput, "%d entries backing shape %v", len(data), shape)
		}
		copy(t.data, data)
	case []float32:
		if len(data) != len(t.data) {
			return nil, errors.Wrapf(ErrMalformedInput, "%d entries backing shape %v", len(data), shape)
		}
		for i, v := range data {
			t.data[i] = float64(v)
		}
	default:
		return nil, errors.Wrapf(ErrMalformedInput, "unsupported gorgonia dtype %v", src.Dtype())
	}
	return t, nil
}
