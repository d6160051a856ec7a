package tensor

import "fmt"

func shapeMismatch(op string, a, b Shape) error {
	return fmt.Errorf("%w: %s of %v and %v", ErrShape, op, a, b)
}

// Reshape returns a view with a new shape. One dimension may be -1 and is
// inferred from the element count.
func Reshape[T DType](a *Array[T], shape Shape) (*Array[T], error) {
	resolved := shape.Clone()
	infer := -1
	known := 1
	for i, d := range resolved {
		switch {
		case d == -1:
			if infer >= 0 {
				return nil, fmt.Errorf("%w: more than one -1 in %v", ErrShape, shape)
			}
			infer = i
		case d < 0:
			return nil, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		default:
			known *= d
		}
	}
	if infer >= 0 {
		if known == 0 || len(a.data)%known != 0 {
			return nil, fmt.Errorf("%w: cannot infer -1 reshaping %v to %v", ErrShape, a.shape, shape)
		}
		resolved[infer] = len(a.data) / known
	}
	if resolved.NumElements() != len(a.data) {
		return nil, fmt.Errorf("%w: cannot reshape %v to %v", ErrShape, a.shape, shape)
	}
	return &Array[T]{data: a.data, shape: resolved}, nil
}

// Transpose permutes axes. perm[i] names the source axis of output axis i.
// An empty perm reverses the axes.
func Transpose[T DType](a *Array[T], perm ...int) (*Array[T], error) {
	rank := len(a.shape)
	if len(perm) == 0 {
		perm = make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
	}
	if len(perm) != rank {
		return nil, fmt.Errorf("%w: permutation %v for rank %d", ErrShape, perm, rank)
	}
	used := make([]bool, rank)
	for _, p := range perm {
		if p < 0 || p >= rank || used[p] {
			return nil, fmt.Errorf("%w: invalid permutation %v", ErrShape, perm)
		}
		used[p] = true
	}

	identity := true
	for i, p := range perm {
		if p != i {
			identity = false
			break
		}
	}
	if identity {
		return a.Clone(), nil
	}

	shape := make(Shape, rank)
	srcStrides := a.shape.Strides()
	strides := make([]int, rank)
	for i, p := range perm {
		shape[i] = a.shape[p]
		strides[i] = srcStrides[p]
	}

	out := Zeros[T](shape)
	idx := make([]int, rank)
	src := 0
	for k := range out.data {
		out.data[k] = a.data[src]
		for d := rank - 1; d >= 0; d-- {
			idx[d]++
			src += strides[d]
			if idx[d] < shape[d] {
				break
			}
			src -= strides[d] * shape[d]
			idx[d] = 0
		}
	}
	return out, nil
}

// BroadcastTo materialises a broadcast of a to shape.
func BroadcastTo[T DType](a *Array[T], shape Shape) (*Array[T], error) {
	got, err := BroadcastShapes(a.shape, shape)
	if err != nil {
		return nil, err
	}
	if !got.Equal(shape) {
		return nil, fmt.Errorf("%w: cannot broadcast %v to %v", ErrShape, a.shape, shape)
	}
	zero := Zeros[T](shape)
	return binary(a, zero, func(x, _ T) T { return x })
}

// SumTo reduces a by summation until it has shape target. It is the
// adjoint of BroadcastTo and is used to fold broadcast gradients back.
func SumTo[T DType](a *Array[T], target Shape) (*Array[T], error) {
	if a.shape.Equal(target) {
		return a, nil
	}
	lead := len(a.shape) - len(target)
	if lead < 0 {
		return nil, fmt.Errorf("%w: cannot sum %v to %v", ErrShape, a.shape, target)
	}
	var axes []int
	for i := range a.shape {
		if i < lead {
			axes = append(axes, i)
			continue
		}
		t := target[i-lead]
		switch {
		case t == a.shape[i]:
		case t == 1:
			axes = append(axes, i)
		default:
			return nil, fmt.Errorf("%w: cannot sum %v to %v", ErrShape, a.shape, target)
		}
	}
	s, err := Sum(a, true, axes...)
	if err != nil {
		return nil, err
	}
	return Reshape(s, target)
}

// Take gathers rows along axis 0.
func Take[T DType](a *Array[T], indices []int) (*Array[T], error) {
	if len(a.shape) == 0 {
		return nil, fmt.Errorf("%w: Take on a scalar", ErrShape)
	}
	row := len(a.data) / max(a.shape[0], 1)
	shape := a.shape.Clone()
	shape[0] = len(indices)
	out := Zeros[T](shape)
	for i, src := range indices {
		if src < 0 || src >= a.shape[0] {
			return nil, fmt.Errorf("%w: index %d out of range for axis of size %d", ErrShape, src, a.shape[0])
		}
		copy(out.data[i*row:(i+1)*row], a.data[src*row:(src+1)*row])
	}
	return out, nil
}

// Slice returns a view of rows [lo, hi) along axis 0.
func Slice[T DType](a *Array[T], lo, hi int) (*Array[T], error) {
	if len(a.shape) == 0 {
		return nil, fmt.Errorf("%w: Slice on a scalar", ErrShape)
	}
	if lo < 0 || hi > a.shape[0] || lo > hi {
		return nil, fmt.Errorf("%w: slice [%d:%d] of axis with size %d", ErrShape, lo, hi, a.shape[0])
	}
	row := len(a.data) / max(a.shape[0], 1)
	shape := a.shape.Clone()
	shape[0] = hi - lo
	return &Array[T]{data: a.data[lo*row : hi*row], shape: shape}, nil
}

// Concat joins arrays along axis 0. Trailing dimensions must agree.
func Concat[T DType](arrays ...*Array[T]) (*Array[T], error) {
	if len(arrays) == 0 {
		return nil, fmt.Errorf("%w: Concat of nothing", ErrShape)
	}
	first := arrays[0]
	if len(first.shape) == 0 {
		return nil, fmt.Errorf("%w: Concat of scalars", ErrShape)
	}
	shape := first.shape.Clone()
	shape[0] = 0
	for _, a := range arrays {
		if len(a.shape) != len(first.shape) || !a.shape[1:].Equal(first.shape[1:]) {
			return nil, shapeMismatch("Concat", first.shape, a.shape)
		}
		shape[0] += a.shape[0]
	}
	data := make([]T, 0, shape.NumElements())
	for _, a := range arrays {
		data = append(data, a.data...)
	}
	return &Array[T]{data: data, shape: shape}, nil
}
