package tensor

import (
	"fmt"
	"strings"
)

// Array is a dense, contiguous, row-major n-dimensional array.
//
// Arrays returned by Reshape and Slice share storage with their source;
// every other operation allocates a fresh result. Writes through Data are
// visible to all views of the same storage.
type Array[T DType] struct {
	data  []T
	shape Shape
}

// Zeros creates a zero-filled array. It panics on negative dimensions,
// like make does for negative lengths.
func Zeros[T DType](shape Shape) *Array[T] {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	return &Array[T]{
		data:  make([]T, shape.NumElements()),
		shape: shape.Clone(),
	}
}

// Ones creates an array filled with ones.
func Ones[T DType](shape Shape) *Array[T] {
	return Full(shape, T(1))
}

// Full creates an array filled with value.
func Full[T DType](shape Shape, value T) *Array[T] {
	a := Zeros[T](shape)
	for i := range a.data {
		a.data[i] = value
	}
	return a
}

// Scalar creates a rank-0 array.
func Scalar[T DType](value T) *Array[T] {
	return &Array[T]{data: []T{value}, shape: Shape{}}
}

// FromSlice wraps data in an array of the given shape without copying.
//
// Returns an error if len(data) does not match the shape's element count.
func FromSlice[T DType](data []T, shape Shape) (*Array[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("%w: %d elements cannot fill shape %v", ErrShape, len(data), shape)
	}
	return &Array[T]{data: data, shape: shape.Clone()}, nil
}

// Arange returns [0, 1, ..., n-1] as a rank-1 array.
func Arange[T DType](n int) *Array[T] {
	a := Zeros[T](Shape{n})
	for i := range a.data {
		a.data[i] = T(i)
	}
	return a
}

// Shape returns a copy of the array's dimensions.
func (a *Array[T]) Shape() Shape {
	return a.shape.Clone()
}

// Rank returns the number of dimensions.
func (a *Array[T]) Rank() int {
	return len(a.shape)
}

// Size returns the number of elements.
func (a *Array[T]) Size() int {
	return len(a.data)
}

// DType returns the element type.
func (a *Array[T]) DType() DataType {
	return TypeOf[T]()
}

// Data returns the backing slice in row-major order.
func (a *Array[T]) Data() []T {
	return a.data
}

// Dim returns the size of one axis. Negative axes count from the end.
func (a *Array[T]) Dim(axis int) int {
	n, err := normalizeAxis(axis, len(a.shape))
	if err != nil {
		panic(err)
	}
	return a.shape[n]
}

// offset converts a multi-index to a flat position.
func (a *Array[T]) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Errorf("%w: index of rank %d into array of rank %d", ErrShape, len(idx), len(a.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Errorf("%w: index %d out of range for axis %d of size %d", ErrShape, v, i, a.shape[i]))
		}
		off = off*a.shape[i] + v
	}
	return off
}

// At returns the element at the given multi-index.
func (a *Array[T]) At(idx ...int) T {
	return a.data[a.offset(idx)]
}

// Set stores value at the given multi-index.
func (a *Array[T]) Set(value T, idx ...int) {
	a.data[a.offset(idx)] = value
}

// Item returns the single element of a size-1 array.
func (a *Array[T]) Item() T {
	if len(a.data) != 1 {
		panic(fmt.Errorf("%w: Item on array of shape %v", ErrShape, a.shape))
	}
	return a.data[0]
}

// Clone returns a deep copy.
func (a *Array[T]) Clone() *Array[T] {
	data := make([]T, len(a.data))
	copy(data, a.data)
	return &Array[T]{data: data, shape: a.shape.Clone()}
}

// String summarises the array: dtype, shape and up to eight leading values.
func (a *Array[T]) String() string {
	const preview = 8
	var sb strings.Builder
	fmt.Fprintf(&sb, "Array[%s]%v[", a.DType(), a.shape)
	for i, v := range a.data {
		if i == preview {
			sb.WriteString(" ...")
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, v)
	}
	sb.WriteByte(']')
	return sb.String()
}

// Cast converts every element to U.
func Cast[U, T DType](a *Array[T]) *Array[U] {
	out := &Array[U]{data: make([]U, len(a.data)), shape: a.shape.Clone()}
	for i, v := range a.data {
		out.data[i] = U(v)
	}
	return out
}
