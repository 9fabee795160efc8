package tensor

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Tensor2D is a dense rows x cols grid.
type Tensor2D struct {
	rows, cols int
	data       []float64
}

// New2D copies values into a new tensor. Every row must have the same length.
func New2D(values [][]float64) (*Tensor2D, error) {
	rows := len(values)
	cols := 0
	if rows > 0 {
		cols = len(values[0])
	}
	t := Zeros2D(rows, cols)
	for r, row := range values {
		if len(row) != cols {
			return nil, errors.Wrapf(ErrMalformedInput, "row %d has %d columns, want %d", r, len(row), cols)
		}
		copy(t.data[r*cols:(r+1)*cols], row)
	}
	return t, nil
}

// NewVector returns a column vector holding values.
func NewVector(values ...float64) *Tensor2D {
	t := Zeros2D(len(values), 1)
	copy(t.data, values)
	return t
}

// Zeros2D returns a zero-filled tensor.
func Zeros2D(rows, cols int) *Tensor2D {
	return &Tensor2D{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Random2D fills a tensor with values drawn uniformly from [min, max).
func Random2D(rows, cols int, min, max float64, rng *rand.Rand) *Tensor2D {
	t := Zeros2D(rows, cols)
	for i := range t.data {
		t.data[i] = min + rng.Float64()*(max-min)
	}
	return t
}

// Clone returns a deep copy.
func (t *Tensor2D) Clone() *Tensor2D {
	c := &Tensor2D{rows: t.rows, cols: t.cols, data: make([]float64, len(t.data))}
	copy(c.data, t.data)
	return c
}

func (t *Tensor2D) Shape() Shape  { return Shape{t.rows, t.cols} }
func (t *Tensor2D) RowCount() int { return t.rows }
func (t *Tensor2D) ColCount() int { return t.cols }

// Data returns a copy of the entries in row-major order.
func (t *Tensor2D) Data() []float64 {
	d := make([]float64, len(t.data))
	copy(d, t.data)
	return d
}

// Values returns the entries as a slice of rows.
func (t *Tensor2D) Values() [][]float64 {
	v := make([][]float64, t.rows)
	for r := range v {
		v[r] = make([]float64, t.cols)
		copy(v[r], t.data[r*t.cols:(r+1)*t.cols])
	}
	return v
}

func (t *Tensor2D) At(row, col int) (float64, error) {
	if !inRange(row, t.rows) || !inRange(col, t.cols) {
		return 0, indexError(t.Shape(), row, col)
	}
	return t.data[row*t.cols+col], nil
}

func (t *Tensor2D) Set(row, col int, v float64) error {
	if !inRange(row, t.rows) || !inRange(col, t.cols) {
		return indexError(t.Shape(), row, col)
	}
	t.data[row*t.cols+col] = v
	return nil
}

func (t *Tensor2D) sameShape(o *Tensor2D) bool {
	return t.rows == o.rows && t.cols == o.cols
}

// Add returns t + o.
func (t *Tensor2D) Add(o *Tensor2D) (*Tensor2D, error) {
	if !t.sameShape(o) {
		return nil, shapeError("addition", t.Shape(), o.Shape())
	}
	out := t.Clone()
	floats.Add(out.data, o.data)
	return out, nil
}

// Sub returns t - o.
func (t *Tensor2D) Sub(o *Tensor2D) (*Tensor2D, error) {
	if !t.sameShape(o) {
		return nil, shapeError("subtraction", t.Shape(), o.Shape())
	}
	out := t.Clone()
	floats.Sub(out.data, o.data)
	return out, nil
}

// Hadamard returns the elementwise product of t and o.
func (t *Tensor2D) Hadamard(o *Tensor2D) (*Tensor2D, error) {
	if !t.sameShape(o) {
		return nil, shapeError("Hadamard multiplication", t.Shape(), o.Shape())
	}
	out := t.Clone()
	floats.Mul(out.data, o.data)
	return out, nil
}

// MatMul returns the matrix product t·o. t.ColCount() must equal o.RowCount().
func (t *Tensor2D) MatMul(o *Tensor2D) (*Tensor2D, error) {
	if t.cols != o.rows {
		return nil, shapeError("multiplication", t.Shape(), o.Shape())
	}
	out := Zeros2D(t.rows, o.cols)
	for r := 0; r < t.rows; r++ {
		for c := 0; c < o.cols; c++ {
			var sum float64
			for i := 0; i < t.cols; i++ {
				sum += t.data[r*t.cols+i] * o.data[i*o.cols+c]
			}
			out.data[r*out.cols+c] = sum
		}
	}
	return out, nil
}

// Scale returns t multiplied by factor.
func (t *Tensor2D) Scale(factor float64) *Tensor2D {
	out := t.Clone()
	floats.Scale(factor, out.data)
	return out
}

// Divide returns t with every entry divided by divisor.
func (t *Tensor2D) Divide(divisor float64) *Tensor2D {
	return t.Apply(func(v float64) float64 { return v / divisor })
}

func (t *Tensor2D) Pow(exponent float64) *Tensor2D {
	return t.Apply(func(v float64) float64 { return math.Pow(v, exponent) })
}

func (t *Tensor2D) Abs() *Tensor2D {
	return t.Apply(math.Abs)
}

// Apply returns a tensor holding fn of every entry.
func (t *Tensor2D) Apply(fn func(float64) float64) *Tensor2D {
	out := Zeros2D(t.rows, t.cols)
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// T returns the transpose.
func (t *Tensor2D) T() *Tensor2D {
	out := Zeros2D(t.cols, t.rows)
	for r := 0; r < t.rows; r++ {
		for c := 0; c < t.cols; c++ {
			out.data[c*out.cols+r] = t.data[r*t.cols+c]
		}
	}
	return out
}

// Slice returns the rows [rowStart, rowEnd) and columns [colStart, colEnd).
// Unlike Tensor3D.Slice, the bounds must lie within t.
func (t *Tensor2D) Slice(rowStart, colStart, rowEnd, colEnd int) (*Tensor2D, error) {
	if rowStart < 0 || colStart < 0 || rowEnd > t.rows || colEnd > t.cols {
		return nil, indexError(t.Shape(), rowStart, colStart, rowEnd, colEnd)
	}
	if rowEnd < rowStart || colEnd < colStart {
		return nil, errors.Wrapf(ErrMalformedInput, "slice [%d:%d, %d:%d]", rowStart, rowEnd, colStart, colEnd)
	}
	out := Zeros2D(rowEnd-rowStart, colEnd-colStart)
	for r := rowStart; r < rowEnd; r++ {
		copy(out.data[(r-rowStart)*out.cols:(r-rowStart+1)*out.cols], t.data[r*t.cols+colStart:r*t.cols+colEnd])
	}
	return out, nil
}

// Row returns row i as a 1 x cols tensor.
func (t *Tensor2D) Row(i int) (*Tensor2D, error) {
	if !inRange(i, t.rows) {
		return nil, indexError(t.Shape(), i, 0)
	}
	return t.Slice(i, 0, i+1, t.cols)
}

// Col returns column j as a rows x 1 tensor.
func (t *Tensor2D) Col(j int) (*Tensor2D, error) {
	if !inRange(j, t.cols) {
		return nil, indexError(t.Shape(), 0, j)
	}
	return t.Slice(0, j, t.rows, j+1)
}

func (t *Tensor2D) Rows() []*Tensor2D {
	rows := make([]*Tensor2D, t.rows)
	for i := range rows {
		rows[i], _ = t.Row(i)
	}
	return rows
}

func (t *Tensor2D) Cols() []*Tensor2D {
	cols := make([]*Tensor2D, t.cols)
	for j := range cols {
		cols[j], _ = t.Col(j)
	}
	return cols
}

// SetRow overwrites row i with a 1 x cols tensor.
func (t *Tensor2D) SetRow(i int, values *Tensor2D) error {
	if values.rows != 1 || values.cols != t.cols {
		return shapeError("setting a row", t.Shape(), values.Shape())
	}
	if !inRange(i, t.rows) {
		return indexError(t.Shape(), i, 0)
	}
	copy(t.data[i*t.cols:(i+1)*t.cols], values.data)
	return nil
}

// SetCol overwrites column j with a rows x 1 tensor.
func (t *Tensor2D) SetCol(j int, values *Tensor2D) error {
	if values.cols != 1 || values.rows != t.rows {
		return shapeError("setting a column", t.Shape(), values.Shape())
	}
	if !inRange(j, t.cols) {
		return indexError(t.Shape(), 0, j)
	}
	for r := 0; r < t.rows; r++ {
		t.data[r*t.cols+j] = values.data[r]
	}
	return nil
}

// Sum adds up every entry.
func (t *Tensor2D) Sum() float64 {
	return floats.Sum(t.data)
}

// IndexOfMax returns the coordinates of the first entry holding the maximum
// value. An empty tensor reports (0, 0).
func (t *Tensor2D) IndexOfMax() (row, col int) {
	if len(t.data) == 0 {
		return 0, 0
	}
	i := floats.MaxIdx(t.data)
	return i / t.cols, i % t.cols
}

// To3D returns a rows x cols x 1 tensor with the same entries.
func (t *Tensor2D) To3D() *Tensor3D {
	out := Zeros3D(t.rows, t.cols, 1)
	copy(out.data, t.data)
	return out
}

// Equal reports whether o has the same shape and every entry is within tol.
func (t *Tensor2D) Equal(o *Tensor2D, tol float64) bool {
	return t.sameShape(o) && approxEqual(t.data, o.data, tol)
}

// AddAll sums tensors elementwise. All of them must share a shape.
func AddAll(ts []*Tensor2D) (*Tensor2D, error) {
	if len(ts) == 0 {
		return nil, errors.Wrap(ErrMalformedInput, "nothing to add")
	}
	sum := ts[0].Clone()
	for i := 1; i < len(ts); i++ {
		if !sum.sameShape(ts[i]) {
			return nil, shapeError("array addition", sum.Shape(), ts[i].Shape())
		}
		floats.Add(sum.data, ts[i].data)
	}
	return sum, nil
}

// ScaleAll returns every tensor of ts multiplied by factor.
func ScaleAll(ts []*Tensor2D, factor float64) []*Tensor2D {
	out := make([]*Tensor2D, len(ts))
	for i, t := range ts {
		out[i] = t.Scale(factor)
	}
	return out
}
