package tensor

import "fmt"

// DType is the set of element types an Array can hold.
type DType interface {
	float32 | float64 | int32 | int64 | uint8
}

// Float is the subset of DType that supports transcendental functions.
type Float interface {
	float32 | float64
}

// DataType identifies an element type at runtime.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
)

// String returns the NumPy-style name of the data type.
func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// Size returns the element size in bytes.
func (d DataType) Size() int {
	switch d {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8:
		return 1
	default:
		return 0
	}
}

// TypeOf returns the DataType for T.
func TypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	default:
		return Uint8
	}
}
