// Package tensor implements dense 2D and 3D tensors of float64 with
// shape-checked arithmetic.
//
// Every binary operation returns a new tensor and leaves its operands untouched;
// the only mutating methods are the setters. Incompatible operands are reported
// with a *ShapeError, coordinates outside of a tensor with an *IndexError.
//
// Storage is a flat row-major slice, so entries are visited row by row, then
// column by column, then layer by layer. IndexOfMax relies on that order.
package tensor

// Shape is the extent of each axis of a tensor: [rows, cols] or
// [rows, cols, layers].
type Shape []int

// Equal reports whether both shapes have the same rank and extents.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Size is the number of entries a tensor of this shape holds.
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

func inRange(i, n int) bool {
	return 0 <= i && i < n
}

func approxEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		d := a[i] - b[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}
