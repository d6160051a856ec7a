// Package rearrange implements einops-style tensor rearrangement.
//
// A pattern names the axes of the input and output, for example
//
//	"b (h w) c -> b h w c"
//
// Parenthesised groups compose several axes into one dimension, "..."
// stands for any number of leading or trailing axes, and "()" or "1" is a
// unit axis. Rearrange permutes and regroups, Reduce additionally folds
// axes that are missing from the output, and Repeat broadcasts along new
// output axes.
package rearrange

import (
	"fmt"
	"slices"

	"github.com/born-ml/nodekit/internal/tensor"
)

// Sizes supplies lengths for axes that cannot be inferred from the input.
type Sizes map[string]int

// Reduction names the fold used by Reduce.
type Reduction string

// Supported reductions.
const (
	Sum  Reduction = "sum"
	Mean Reduction = "mean"
	Max  Reduction = "max"
	Min  Reduction = "min"
	Prod Reduction = "prod"
)

type mode int

const (
	modeRearrange mode = iota
	modeReduce
	modeRepeat
)

// Rearrange reorders and regroups axes. Both sides must name the same set
// of axes.
func Rearrange[T tensor.DType](x *tensor.Array[T], pattern string, sizes Sizes) (*tensor.Array[T], error) {
	return apply(x, pattern, sizes, modeRearrange, "")
}

// Reduce folds every axis that appears on the left but not on the right
// with op, then rearranges the rest.
func Reduce[T tensor.DType](x *tensor.Array[T], pattern string, op Reduction, sizes Sizes) (*tensor.Array[T], error) {
	switch op {
	case Sum, Mean, Max, Min, Prod:
	default:
		return nil, fmt.Errorf("%w: unknown reduction %q", ErrPattern, op)
	}
	return apply(x, pattern, sizes, modeReduce, op)
}

// Repeat broadcasts the input along output axes that are absent from the
// input. Their lengths come from sizes or from numeric literals.
func Repeat[T tensor.DType](x *tensor.Array[T], pattern string, sizes Sizes) (*tensor.Array[T], error) {
	return apply(x, pattern, sizes, modeRepeat, "")
}

// plan is the shape-specialised recipe derived from a pattern and an input.
type plan struct {
	lengths map[string]int
	left    []string // elementary input axes, in order
	right   []string // elementary output axes, in order
	groups  []group  // expanded output groups
}

func apply[T tensor.DType](x *tensor.Array[T], src string, sizes Sizes, m mode, op Reduction) (*tensor.Array[T], error) {
	p, err := parsePattern(src)
	if err != nil {
		return nil, err
	}
	pl, err := makePlan(p, x.Shape(), sizes, m)
	if err != nil {
		return nil, fmt.Errorf("%w (pattern %q, input %v)", err, src, x.Shape())
	}

	// Split composite input dimensions into elementary axes.
	elementary := make(tensor.Shape, len(pl.left))
	for i, name := range pl.left {
		elementary[i] = pl.lengths[name]
	}
	cur, err := tensor.Reshape(x, elementary)
	if err != nil {
		return nil, err
	}
	axes := slices.Clone(pl.left)

	if m == modeReduce {
		var reduced []int
		kept := axes[:0:0]
		for i, name := range axes {
			if slices.Contains(pl.right, name) {
				kept = append(kept, name)
			} else {
				reduced = append(reduced, i)
			}
		}
		if len(reduced) > 0 {
			if cur, err = reduceAxes(cur, op, reduced); err != nil {
				return nil, err
			}
		}
		axes = kept
	}

	// Permute the surviving axes into output order.
	perm := make([]int, 0, len(axes))
	ordered := make([]string, 0, len(axes))
	for _, name := range pl.right {
		if i := slices.Index(axes, name); i >= 0 {
			perm = append(perm, i)
			ordered = append(ordered, name)
		}
	}
	if cur, err = tensor.Transpose(cur, perm...); err != nil {
		return nil, err
	}

	if m == modeRepeat && len(ordered) != len(pl.right) {
		withUnits := make(tensor.Shape, len(pl.right))
		full := make(tensor.Shape, len(pl.right))
		for i, name := range pl.right {
			full[i] = pl.lengths[name]
			withUnits[i] = 1
			if slices.Contains(ordered, name) {
				withUnits[i] = full[i]
			}
		}
		if cur, err = tensor.Reshape(cur, withUnits); err != nil {
			return nil, err
		}
		if cur, err = tensor.BroadcastTo(cur, full); err != nil {
			return nil, err
		}
	}

	// Merge elementary axes into output groups.
	final := make(tensor.Shape, len(pl.groups))
	for i, g := range pl.groups {
		n := 1
		for _, a := range g {
			n *= pl.lengths[axisKey(a, i)]
		}
		final[i] = n
	}
	return tensor.Reshape(cur, final)
}

// axisKey names literal output axes by their group position so each one is
// a distinct anonymous axis.
func axisKey(a axis, groupIndex int) string {
	if a.name != "" {
		return a.name
	}
	return fmt.Sprintf("#%d", groupIndex)
}

func makePlan(p *pattern, shape tensor.Shape, sizes Sizes, m mode) (*plan, error) {
	n, err := p.left.ellipsisRank(len(shape))
	if err != nil {
		return nil, err
	}
	leftGroups := p.left.expand(n)
	rightGroups := p.right.expand(n)

	pl := &plan{lengths: make(map[string]int), groups: rightGroups}

	for i, g := range leftGroups {
		known, unknown := 1, ""
		for _, a := range g {
			if a.name == "" {
				return nil, fmt.Errorf("%w: numeric axis %d on the input side", ErrPattern, a.literal)
			}
			pl.left = append(pl.left, a.name)
			if v, ok := sizes[a.name]; ok {
				if v < 1 {
					return nil, fmt.Errorf("%w: size of %q must be positive", ErrPattern, a.name)
				}
				pl.lengths[a.name] = v
				known *= v
				continue
			}
			if unknown != "" {
				return nil, fmt.Errorf("%w: cannot infer both %q and %q", ErrPattern, unknown, a.name)
			}
			unknown = a.name
		}
		dim := shape[i]
		switch {
		case unknown != "":
			if dim%known != 0 {
				return nil, fmt.Errorf("%w: dimension %d is not divisible by %d", ErrPattern, dim, known)
			}
			pl.lengths[unknown] = dim / known
		case known != dim:
			return nil, fmt.Errorf("%w: dimension %d does not match composed size %d", ErrPattern, dim, known)
		}
	}

	for i, g := range rightGroups {
		for _, a := range g {
			key := axisKey(a, i)
			if a.name == "" {
				if m != modeRepeat {
					return nil, fmt.Errorf("%w: numeric axis %d is only allowed in Repeat", ErrPattern, a.literal)
				}
				if len(g) > 1 {
					return nil, fmt.Errorf("%w: numeric axis %d inside a group", ErrPattern, a.literal)
				}
				pl.lengths[key] = a.literal
			}
			if slices.Contains(pl.right, key) {
				return nil, fmt.Errorf("%w: duplicate axis %q", ErrPattern, key)
			}
			pl.right = append(pl.right, key)
		}
	}

	for name := range sizes {
		if !slices.Contains(pl.left, name) && !slices.Contains(pl.right, name) {
			return nil, fmt.Errorf("%w: size given for unknown axis %q", ErrPattern, name)
		}
	}

	for _, name := range pl.right {
		if slices.Contains(pl.left, name) {
			continue
		}
		if m != modeRepeat {
			return nil, fmt.Errorf("%w: axis %q appears only on the output side", ErrPattern, name)
		}
		v, ok := pl.lengths[name]
		if !ok {
			v, ok = sizes[name]
		}
		if !ok || v < 1 {
			return nil, fmt.Errorf("%w: new axis %q needs a size", ErrPattern, name)
		}
		pl.lengths[name] = v
	}
	for _, name := range pl.left {
		if slices.Contains(pl.right, name) {
			continue
		}
		if m != modeReduce {
			return nil, fmt.Errorf("%w: axis %q appears only on the input side", ErrPattern, name)
		}
	}
	return pl, nil
}

func reduceAxes[T tensor.DType](x *tensor.Array[T], op Reduction, axes []int) (*tensor.Array[T], error) {
	switch op {
	case Sum:
		return tensor.Sum(x, false, axes...)
	case Max:
		return tensor.Max(x, false, axes...)
	case Min:
		return tensor.Min(x, false, axes...)
	case Prod:
		return tensor.Prod(x, false, axes...)
	default:
		s, err := tensor.Sum(x, false, axes...)
		if err != nil {
			return nil, err
		}
		count := T(x.Size() / max(s.Size(), 1))
		return tensor.Map(s, func(v T) T { return v / count }), nil
	}
}
