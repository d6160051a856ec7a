// Package tensor implements dense host-memory n-dimensional arrays.
//
// Arrays are generic over their element type and always contiguous in
// row-major order. Binary operations follow NumPy broadcasting rules and
// report incompatible shapes as errors wrapping ErrShape.
package tensor
