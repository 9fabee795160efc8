package tensor

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Tensor3D is a dense rows x cols x layers cuboid. For images, rows and cols
// are the spatial axes and layers are the channels.
type Tensor3D struct {
	rows, cols, layers int
	data               []float64
}

// New3D copies values, indexed [row][col][layer], into a new tensor.
func New3D(values [][][]float64) (*Tensor3D, error) {
	rows := len(values)
	cols, layers := 0, 0
	if rows > 0 {
		cols = len(values[0])
		if cols > 0 {
			layers = len(values[0][0])
		}
	}
	t := Zeros3D(rows, cols, layers)
	for r := range values {
		if len(values[r]) != cols {
			return nil, errors.Wrapf(ErrMalformedInput, "row %d has %d columns, want %d", r, len(values[r]), cols)
		}
		for c := range values[r] {
			if len(values[r][c]) != layers {
				return nil, errors.Wrapf(ErrMalformedInput, "entry (%d, %d) has %d layers, want %d", r, c, len(values[r][c]), layers)
			}
			copy(t.data[t.offset(r, c, 0):], values[r][c])
		}
	}
	return t, nil
}

// Zeros3D returns a zero-filled tensor.
func Zeros3D(rows, cols, layers int) *Tensor3D {
	return &Tensor3D{rows: rows, cols: cols, layers: layers, data: make([]float64, rows*cols*layers)}
}

// Random3D fills a tensor with values drawn uniformly from [min, max).
func Random3D(rows, cols, layers int, min, max float64, rng *rand.Rand) *Tensor3D {
	t := Zeros3D(rows, cols, layers)
	for i := range t.data {
		t.data[i] = min + rng.Float64()*(max-min)
	}
	return t
}

func (t *Tensor3D) offset(row, col, layer int) int {
	return (row*t.cols+col)*t.layers + layer
}

// Clone returns a deep copy.
func (t *Tensor3D) Clone() *Tensor3D {
	c := Zeros3D(t.rows, t.cols, t.layers)
	copy(c.data, t.data)
	return c
}

func (t *Tensor3D) Shape() Shape    { return Shape{t.rows, t.cols, t.layers} }
func (t *Tensor3D) RowCount() int   { return t.rows }
func (t *Tensor3D) ColCount() int   { return t.cols }
func (t *Tensor3D) LayerCount() int { return t.layers }

// Data returns a copy of the entries, layer index varying fastest.
func (t *Tensor3D) Data() []float64 {
	d := make([]float64, len(t.data))
	copy(d, t.data)
	return d
}

func (t *Tensor3D) At(row, col, layer int) (float64, error) {
	if !t.contains(row, col, layer) {
		return 0, indexError(t.Shape(), row, col, layer)
	}
	return t.data[t.offset(row, col, layer)], nil
}

func (t *Tensor3D) Set(row, col, layer int, v float64) error {
	if !t.contains(row, col, layer) {
		return indexError(t.Shape(), row, col, layer)
	}
	t.data[t.offset(row, col, layer)] = v
	return nil
}

func (t *Tensor3D) contains(row, col, layer int) bool {
	return inRange(row, t.rows) && inRange(col, t.cols) && inRange(layer, t.layers)
}

func (t *Tensor3D) sameShape(o *Tensor3D) bool {
	return t.rows == o.rows && t.cols == o.cols && t.layers == o.layers
}

// Add returns t + o.
func (t *Tensor3D) Add(o *Tensor3D) (*Tensor3D, error) {
	if !t.sameShape(o) {
		return nil, shapeError("addition", t.Shape(), o.Shape())
	}
	out := t.Clone()
	floats.Add(out.data, o.data)
	return out, nil
}

// Sub returns t - o.
func (t *Tensor3D) Sub(o *Tensor3D) (*Tensor3D, error) {
	if !t.sameShape(o) {
		return nil, shapeError("subtraction", t.Shape(), o.Shape())
	}
	out := t.Clone()
	floats.Sub(out.data, o.data)
	return out, nil
}

// Hadamard returns the elementwise product of t and o.
func (t *Tensor3D) Hadamard(o *Tensor3D) (*Tensor3D, error) {
	if !t.sameShape(o) {
		return nil, shapeError("Hadamard multiplication", t.Shape(), o.Shape())
	}
	out := t.Clone()
	floats.Mul(out.data, o.data)
	return out, nil
}

// MatMul multiplies t and o layer by layer. Both need the same layer count and
// t.ColCount() must equal o.RowCount().
func (t *Tensor3D) MatMul(o *Tensor3D) (*Tensor3D, error) {
	if t.cols != o.rows || t.layers != o.layers {
		return nil, shapeError("multiplication", t.Shape(), o.Shape())
	}
	out := Zeros3D(t.rows, o.cols, t.layers)
	for l := 0; l < t.layers; l++ {
		for r := 0; r < t.rows; r++ {
			for c := 0; c < o.cols; c++ {
				var sum float64
				for i := 0; i < t.cols; i++ {
					sum += t.data[t.offset(r, i, l)] * o.data[o.offset(i, c, l)]
				}
				out.data[out.offset(r, c, l)] = sum
			}
		}
	}
	return out, nil
}

// Scale returns t multiplied by factor.
func (t *Tensor3D) Scale(factor float64) *Tensor3D {
	out := t.Clone()
	floats.Scale(factor, out.data)
	return out
}

// Divide returns t with every entry divided by divisor.
func (t *Tensor3D) Divide(divisor float64) *Tensor3D {
	return t.Apply(func(v float64) float64 { return v / divisor })
}

func (t *Tensor3D) Pow(exponent float64) *Tensor3D {
	return t.Apply(func(v float64) float64 { return math.Pow(v, exponent) })
}

func (t *Tensor3D) Abs() *Tensor3D {
	return t.Apply(math.Abs)
}

// Apply returns a tensor holding fn of every entry.
func (t *Tensor3D) Apply(fn func(float64) float64) *Tensor3D {
	out := Zeros3D(t.rows, t.cols, t.layers)
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// Slice returns the window [rowStart, rowEnd) x [colStart, colEnd) x
// [layerStart, layerEnd). Coordinates of the window that fall outside t read as
// zero, which is how convolutions pad their input.
func (t *Tensor3D) Slice(rowStart, colStart, layerStart, rowEnd, colEnd, layerEnd int) (*Tensor3D, error) {
	if rowEnd < rowStart || colEnd < colStart || layerEnd < layerStart {
		return nil, errors.Wrapf(ErrMalformedInput, "slice [%d:%d, %d:%d, %d:%d]",
			rowStart, rowEnd, colStart, colEnd, layerStart, layerEnd)
	}
	out := Zeros3D(rowEnd-rowStart, colEnd-colStart, layerEnd-layerStart)
	for r := rowStart; r < rowEnd; r++ {
		if !inRange(r, t.rows) {
			continue
		}
		for c := colStart; c < colEnd; c++ {
			if !inRange(c, t.cols) {
				continue
			}
			for l := layerStart; l < layerEnd; l++ {
				if inRange(l, t.layers) {
					out.data[out.offset(r-rowStart, c-colStart, l-layerStart)] = t.data[t.offset(r, c, l)]
				}
			}
		}
	}
	return out, nil
}

// Row returns row i as a 1 x cols x layers tensor.
func (t *Tensor3D) Row(i int) (*Tensor3D, error) {
	if !inRange(i, t.rows) {
		return nil, indexError(t.Shape(), i, 0, 0)
	}
	return t.Slice(i, 0, 0, i+1, t.cols, t.layers)
}

// Col returns column j as a rows x 1 x layers tensor.
func (t *Tensor3D) Col(j int) (*Tensor3D, error) {
	if !inRange(j, t.cols) {
		return nil, indexError(t.Shape(), 0, j, 0)
	}
	return t.Slice(0, j, 0, t.rows, j+1, t.layers)
}

// Layer returns layer k as a rows x cols x 1 tensor.
func (t *Tensor3D) Layer(k int) (*Tensor3D, error) {
	if !inRange(k, t.layers) {
		return nil, indexError(t.Shape(), 0, 0, k)
	}
	return t.Slice(0, 0, k, t.rows, t.cols, k+1)
}

func (t *Tensor3D) Layers() []*Tensor3D {
	layers := make([]*Tensor3D, t.layers)
	for k := range layers {
		layers[k], _ = t.Layer(k)
	}
	return layers
}

// SetRow overwrites row i with a 1 x cols x layers tensor.
func (t *Tensor3D) SetRow(i int, values *Tensor3D) error {
	if values.rows != 1 || values.cols != t.cols || values.layers != t.layers {
		return shapeError("setting a row", t.Shape(), values.Shape())
	}
	if !inRange(i, t.rows) {
		return indexError(t.Shape(), i, 0, 0)
	}
	copy(t.data[t.offset(i, 0, 0):t.offset(i+1, 0, 0)], values.data)
	return nil
}

// SetCol overwrites column j with a rows x 1 x layers tensor.
func (t *Tensor3D) SetCol(j int, values *Tensor3D) error {
	if values.cols != 1 || values.rows != t.rows || values.layers != t.layers {
		return shapeError("setting a column", t.Shape(), values.Shape())
	}
	if !inRange(j, t.cols) {
		return indexError(t.Shape(), 0, j, 0)
	}
	for r := 0; r < t.rows; r++ {
		copy(t.data[t.offset(r, j, 0):t.offset(r, j, 0)+t.layers], values.data[values.offset(r, 0, 0):])
	}
	return nil
}

// SetLayer overwrites layer k with a rows x cols x 1 tensor.
func (t *Tensor3D) SetLayer(k int, values *Tensor3D) error {
	if values.layers != 1 || values.rows != t.rows || values.cols != t.cols {
		return shapeError("setting a layer", t.Shape(), values.Shape())
	}
	if !inRange(k, t.layers) {
		return indexError(t.Shape(), 0, 0, k)
	}
	for r := 0; r < t.rows; r++ {
		for c := 0; c < t.cols; c++ {
			t.data[t.offset(r, c, k)] = values.data[values.offset(r, c, 0)]
		}
	}
	return nil
}

// Sum adds up every entry.
func (t *Tensor3D) Sum() float64 {
	return floats.Sum(t.data)
}

// IndexOfMax returns the coordinates of the first entry holding the maximum
// value, scanning rows, then columns, then layers. An empty tensor reports
// (0, 0, 0).
func (t *Tensor3D) IndexOfMax() (row, col, layer int) {
	if len(t.data) == 0 {
		return 0, 0, 0
	}
	i := floats.MaxIdx(t.data)
	layer = i % t.layers
	i /= t.layers
	return i / t.cols, i % t.cols, layer
}

// To2D drops the layer axis of a single-layer tensor.
func (t *Tensor3D) To2D() (*Tensor2D, error) {
	if t.layers != 1 {
		return nil, shapeError("conversion to 2D", t.Shape(), Shape{t.rows, t.cols})
	}
	out := Zeros2D(t.rows, t.cols)
	copy(out.data, t.data)
	return out, nil
}

// Flatten returns a column vector holding every entry, layer by layer, each
// layer in row-major order.
func (t *Tensor3D) Flatten() *Tensor2D {
	out := Zeros2D(len(t.data), 1)
	for l := 0; l < t.layers; l++ {
		for r := 0; r < t.rows; r++ {
			for c := 0; c < t.cols; c++ {
				out.data[c+r*t.cols+l*t.cols*t.rows] = t.data[t.offset(r, c, l)]
			}
		}
	}
	return out
}

// Equal reports whether o has the same shape and every entry is within tol.
func (t *Tensor3D) Equal(o *Tensor3D, tol float64) bool {
	return t.sameShape(o) && approxEqual(t.data, o.data, tol)
}
