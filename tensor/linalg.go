package tensor

import (
	"math"

	"github.com/pkg/errors"
)

// singularThreshold is the largest |det| Inverse treats as zero.
const singularThreshold = 1e-6

func (t *Tensor2D) square(op string) error {
	if t.rows != t.cols {
		return shapeError(op, t.Shape(), t.Shape())
	}
	return nil
}

// Det returns the determinant by Laplace expansion along the first row.
func (t *Tensor2D) Det() (float64, error) {
	if err := t.square("calculating the determinant"); err != nil {
		return 0, err
	}
	return t.det(), nil
}

func (t *Tensor2D) det() float64 {
	switch t.rows {
	case 0:
		return 1
	case 1:
		return t.data[0]
	}
	var sum float64
	for c := 0; c < t.cols; c++ {
		sum += sign(c) * t.data[c] * t.minor(0, c).det()
	}
	return sum
}

// Minor returns t without row and col. The minor of a 1x1 tensor is empty and
// has determinant 1.
func (t *Tensor2D) Minor(row, col int) (*Tensor2D, error) {
	if err := t.square("calculating the minor"); err != nil {
		return nil, err
	}
	if !inRange(row, t.rows) || !inRange(col, t.cols) {
		return nil, indexError(t.Shape(), row, col)
	}
	return t.minor(row, col), nil
}

func (t *Tensor2D) minor(row, col int) *Tensor2D {
	out := Zeros2D(t.rows-1, t.cols-1)
	i := 0
	for r := 0; r < t.rows; r++ {
		if r == row {
			continue
		}
		for c := 0; c < t.cols; c++ {
			if c == col {
				continue
			}
			out.data[i] = t.data[r*t.cols+c]
			i++
		}
	}
	return out
}

// Cofactors returns the matrix of signed minor determinants.
func (t *Tensor2D) Cofactors() (*Tensor2D, error) {
	if err := t.square("calculating the cofactors"); err != nil {
		return nil, err
	}
	out := Zeros2D(t.rows, t.cols)
	for r := 0; r < t.rows; r++ {
		for c := 0; c < t.cols; c++ {
			out.data[r*t.cols+c] = sign(r+c) * t.minor(r, c).det()
		}
	}
	return out, nil
}

// Adjoint returns the transposed cofactor matrix.
func (t *Tensor2D) Adjoint() (*Tensor2D, error) {
	cof, err := t.Cofactors()
	if err != nil {
		return nil, errors.Wrap(err, "calculating the adjoint")
	}
	return cof.T(), nil
}

// Inverse returns adj(t)/det(t). It fails with ErrSingular when |det| <= 1e-6.
func (t *Tensor2D) Inverse() (*Tensor2D, error) {
	if err := t.square("inversion"); err != nil {
		return nil, err
	}
	d := t.det()
	if math.Abs(d) <= singularThreshold {
		return nil, errors.Wrapf(ErrSingular, "determinant %g", d)
	}
	adj, err := t.Adjoint()
	if err != nil {
		return nil, err
	}
	return adj.Divide(d), nil
}

func sign(i int) float64 {
	if i%2 == 0 {
		return 1
	}
	return -1
}
