package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// These are the error classes every tensor operation reports. Use errors.Is to
// classify a returned error.
var (
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrMalformedInput  = errors.New("malformed input")
	ErrSingular        = errors.New("matrix is singular")
)

// ShapeError documents two operands that are incompatible for an operation.
type ShapeError struct {
	Op   string
	A, B Shape
}

func (err *ShapeError) Error() string {
	return fmt.Sprintf("%v in %s: %v and %v", ErrShapeMismatch, err.Op, err.A, err.B)
}

// Is reports ShapeErrors as ErrShapeMismatch.
func (err *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

func shapeError(op string, a, b Shape) error {
	return &ShapeError{Op: op, A: a, B: b}
}

// IndexError documents a coordinate outside of a tensor's shape.
type IndexError struct {
	Shape Shape
	Index []int
}

func (err *IndexError) Error() string {
	return fmt.Sprintf("%v: %v in tensor of shape %v", ErrIndexOutOfRange, err.Index, err.Shape)
}

// Is reports IndexErrors as ErrIndexOutOfRange.
func (err *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

func indexError(s Shape, index ...int) error {
	return &IndexError{Shape: s, Index: index}
}
