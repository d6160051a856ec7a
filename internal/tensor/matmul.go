package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// MatMul returns a @ b for 2-D float32 arrays.
func MatMul(a, b *Array[float32]) (*Array[float32], error) {
	return Gemm(a, b, false, false)
}

// Gemm computes op(a) @ op(b) where op optionally transposes its argument.
// It lets backward passes form a^T @ g and g @ b^T without materialising
// the transposes.
func Gemm(a, b *Array[float32], transA, transB bool) (*Array[float32], error) {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		return nil, fmt.Errorf("%w: MatMul needs 2-D operands, got %v and %v", ErrShape, a.shape, b.shape)
	}

	m, ka := a.shape[0], a.shape[1]
	if transA {
		m, ka = ka, m
	}
	kb, n := b.shape[0], b.shape[1]
	if transB {
		kb, n = n, kb
	}
	if ka != kb {
		return nil, shapeMismatch("MatMul", a.shape, b.shape)
	}

	out := Zeros[float32](Shape{m, n})
	if m == 0 || n == 0 || ka == 0 {
		return out, nil
	}

	ta, tb := blas.NoTrans, blas.NoTrans
	if transA {
		ta = blas.Trans
	}
	if transB {
		tb = blas.Trans
	}
	blas32.Gemm(ta, tb, 1,
		blas32.General{Rows: a.shape[0], Cols: a.shape[1], Stride: a.shape[1], Data: a.data},
		blas32.General{Rows: b.shape[0], Cols: b.shape[1], Stride: b.shape[1], Data: b.data},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: out.data},
	)
	return out, nil
}
