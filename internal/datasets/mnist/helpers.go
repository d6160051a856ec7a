package mnist

import (
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

// Synthetic builds a small deterministic stand-in for MNIST with n training
// and max(n/5, 1) test examples of shape 28x28.
//
// Example i has label i mod 10 and shows a bright horizontal stroke whose
// row depends on the label over low-level noise, so the classes are
// learnable.
func Synthetic(n int) (train, test Split) {
	key := random.NewKey(0)
	trainKey, testKey := random.Split2(key)
	return synthetic(trainKey, n), synthetic(testKey, max(n/5, 1))
}

func synthetic(key random.Key, n int) Split {
	noise := random.Bits(key, n*Rows*Cols)
	images := make([]uint8, n*Rows*Cols)
	labels := make([]uint8, n)
	for i := range n {
		label := i % Classes
		labels[i] = uint8(label)
		img := images[i*Rows*Cols : (i+1)*Rows*Cols]
		for p := range img {
			img[p] = uint8(noise[i*Rows*Cols+p] % 48)
		}
		top := 3 + 2*label
		for r := top; r < top+2; r++ {
			for c := 4; c < Cols-4; c++ {
				img[r*Cols+c] = 255
			}
		}
	}
	x, _ := tensor.FromSlice(images, tensor.Shape{n, Rows, Cols})
	y, _ := tensor.FromSlice(labels, tensor.Shape{n})
	return Split{Images: x, Labels: y}
}

// Normalize scales pixel values to [0, 1].
func Normalize(images *tensor.Array[uint8]) *tensor.Array[float32] {
	out := tensor.Cast[float32](images)
	data := out.Data()
	for i := range data {
		data[i] /= 255
	}
	return out
}

// Labels returns the labels as ints.
func Labels(labels *tensor.Array[uint8]) []int {
	out := make([]int, labels.Size())
	for i, l := range labels.Data() {
		out[i] = int(l)
	}
	return out
}

// Batches shuffles [0, n) with key and cuts it into batches of size. The
// last batch holds the remainder and may be smaller.
func Batches(key random.Key, n, size int) [][]int {
	if n <= 0 || size <= 0 {
		return nil
	}
	perm := random.Permutation(key, n)
	batches := make([][]int, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		batches = append(batches, perm[lo:min(lo+size, n)])
	}
	return batches
}
