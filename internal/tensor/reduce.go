package tensor

import "fmt"

// reduce folds a over the selected axes. first seeds each output cell from
// the first element visited so Max and Min need no identity element.
func reduce[T DType](a *Array[T], axes []int, keepDims bool, f func(acc, x T) T) (*Array[T], error) {
	mask, err := normalizeAxes(axes, len(a.shape))
	if err != nil {
		return nil, err
	}

	kept := make(Shape, len(a.shape))
	final := make(Shape, 0, len(a.shape))
	for i, d := range a.shape {
		if mask[i] {
			kept[i] = 1
			if keepDims {
				final = append(final, 1)
			}
			continue
		}
		kept[i] = d
		final = append(final, d)
	}

	out := Zeros[T](kept)
	if len(a.data) == 0 {
		out.shape = final
		return out, nil
	}
	seen := make([]bool, len(out.data))
	strides := broadcastStrides(kept, a.shape)

	idx := make([]int, len(a.shape))
	oi := 0
	for _, x := range a.data {
		if seen[oi] {
			out.data[oi] = f(out.data[oi], x)
		} else {
			out.data[oi] = x
			seen[oi] = true
		}
		for d := len(a.shape) - 1; d >= 0; d-- {
			idx[d]++
			oi += strides[d]
			if idx[d] < a.shape[d] {
				break
			}
			oi -= strides[d] * a.shape[d]
			idx[d] = 0
		}
	}
	out.shape = final
	return out, nil
}

// Sum adds elements over axes (all axes when none are given).
func Sum[T DType](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return reduce(a, axes, keepDims, func(acc, x T) T { return acc + x })
}

// Prod multiplies elements over axes.
func Prod[T DType](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return reduce(a, axes, keepDims, func(acc, x T) T { return acc * x })
}

// Max returns the maximum over axes.
func Max[T DType](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return reduce(a, axes, keepDims, func(acc, x T) T { return max(acc, x) })
}

// Min returns the minimum over axes.
func Min[T DType](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return reduce(a, axes, keepDims, func(acc, x T) T { return min(acc, x) })
}

// Mean averages over axes.
func Mean[T Float](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	s, err := Sum(a, keepDims, axes...)
	if err != nil {
		return nil, err
	}
	count := len(a.data) / max(len(s.data), 1)
	if count == 0 {
		return s, nil
	}
	return Scale(s, T(1)/T(count)), nil
}

// ArgMax returns the index of the maximum along one axis.
func ArgMax[T DType](a *Array[T], axis int) (*Array[int64], error) {
	ax, err := normalizeAxis(axis, len(a.shape))
	if err != nil {
		return nil, err
	}
	if a.shape[ax] == 0 {
		return nil, fmt.Errorf("%w: ArgMax over empty axis %d", ErrShape, axis)
	}

	outer, inner := 1, 1
	for i := 0; i < ax; i++ {
		outer *= a.shape[i]
	}
	for i := ax + 1; i < len(a.shape); i++ {
		inner *= a.shape[i]
	}
	n := a.shape[ax]

	shape := make(Shape, 0, len(a.shape)-1)
	shape = append(shape, a.shape[:ax]...)
	shape = append(shape, a.shape[ax+1:]...)
	out := Zeros[int64](shape)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*n*inner + in
			best := 0
			for k := 1; k < n; k++ {
				if a.data[base+k*inner] > a.data[base+best*inner] {
					best = k
				}
			}
			out.data[o*inner+in] = int64(best)
		}
	}
	return out, nil
}
