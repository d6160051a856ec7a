package autodiff

import (
	"fmt"
	"math"

	"github.com/born-ml/nodekit/internal/tensor"
)

// rowsOf views a [N, C] array as N rows of C values.
func rowsOf(a *Array) (n, c int) {
	shape := a.Shape()
	if len(shape) != 2 {
		panic(fmt.Errorf("%w: expected [N, C], got %v", tensor.ErrShape, shape))
	}
	return shape[0], shape[1]
}

// logSoftmaxRows computes log-softmax for each row with the max subtracted.
func logSoftmaxRows(x *Array) *Array {
	n, c := rowsOf(x)
	out := tensor.Zeros[float32](x.Shape())
	xs, ys := x.Data(), out.Data()
	for i := 0; i < n; i++ {
		row := xs[i*c : (i+1)*c]
		m := row[0]
		for _, v := range row[1:] {
			m = max(m, v)
		}
		var s float64
		for _, v := range row {
			s += math.Exp(float64(v - m))
		}
		lse := m + float32(math.Log(s))
		for j, v := range row {
			ys[i*c+j] = v - lse
		}
	}
	return out
}

// LogSoftmax normalises the last axis of a [N, C] input into log-probabilities.
func LogSoftmax(x *Var) *Var {
	value := logSoftmaxRows(x.value)
	return emit(value, func(g *Array) []*Array {
		n, c := rowsOf(value)
		grad := tensor.Zeros[float32](value.Shape())
		gd, gs, ys := grad.Data(), g.Data(), value.Data()
		for i := 0; i < n; i++ {
			var s float32
			for j := 0; j < c; j++ {
				s += gs[i*c+j]
			}
			for j := 0; j < c; j++ {
				k := i*c + j
				gd[k] = gs[k] - float32(math.Exp(float64(ys[k])))*s
			}
		}
		return []*Array{grad}
	}, x)
}

// SoftmaxCrossEntropy returns the mean cross-entropy between softmax(logits)
// and integer class labels. logits has shape [N, C]; labels has N entries
// in [0, C).
func SoftmaxCrossEntropy(logits *Var, labels []int) *Var {
	n, c := rowsOf(logits.value)
	if len(labels) != n {
		panic(fmt.Errorf("%w: %d labels for %d rows", tensor.ErrShape, len(labels), n))
	}
	logp := logSoftmaxRows(logits.value)
	lp := logp.Data()

	var loss float64
	for i, y := range labels {
		if y < 0 || y >= c {
			panic(fmt.Errorf("%w: label %d out of range [0, %d)", tensor.ErrShape, y, c))
		}
		loss -= float64(lp[i*c+y])
	}
	value := tensor.Scalar(float32(loss / float64(max(n, 1))))

	return emit(value, func(g *Array) []*Array {
		scale := g.Item() / float32(max(n, 1))
		grad := tensor.Zeros[float32](logits.value.Shape())
		gd := grad.Data()
		for i, y := range labels {
			for j := 0; j < c; j++ {
				k := i*c + j
				p := float32(math.Exp(float64(lp[k])))
				if j == y {
					p--
				}
				gd[k] = p * scale
			}
		}
		return []*Array{grad}
	}, logits)
}

// Accuracy returns the fraction of rows whose arg-max matches the label.
func Accuracy(logits *Array, labels []int) (float64, error) {
	pred, err := tensor.ArgMax(logits, -1)
	if err != nil {
		return 0, err
	}
	if pred.Size() != len(labels) {
		return 0, fmt.Errorf("%w: %d predictions for %d labels", tensor.ErrShape, pred.Size(), len(labels))
	}
	if len(labels) == 0 {
		return 0, nil
	}
	correct := 0
	for i, p := range pred.Data() {
		if int(p) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels)), nil
}
