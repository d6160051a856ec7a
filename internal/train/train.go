// Package train fits digit classifiers on MNIST splits with an optax-style
// optimizer, reporting progress per batch and test accuracy per epoch.
package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/logging"
	"github.com/born-ml/nodekit/internal/nn"
	"github.com/born-ml/nodekit/internal/optim"
	"github.com/born-ml/nodekit/internal/progress"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

// ErrEmpty is returned when a split has no examples.
var ErrEmpty = errors.New("train: empty split")

// Options configures Fit.
type Options struct {
	Epochs    int                          // Default: 1
	BatchSize int                          // Default: 128
	Optimizer optim.GradientTransformation // Default: Adam with lr 1e-3
	Key       random.Key                   // Shuffling key
	Logger    *zap.Logger                  // Default: no logging
	Progress  io.Writer                    // Progress bars; nil disables them
	// EvalWorkers bounds concurrent evaluation batches (default: GOMAXPROCS).
	EvalWorkers int
}

func (o *Options) defaults() {
	if o.Epochs == 0 {
		o.Epochs = 1
	}
	if o.BatchSize == 0 {
		o.BatchSize = 128
	}
	if o.Optimizer == nil {
		o.Optimizer = optim.Adam(optim.AdamConfig{})
	}
	o.Logger = logging.OrNop(o.Logger)
	if o.EvalWorkers == 0 {
		o.EvalWorkers = runtime.GOMAXPROCS(0)
	}
}

func (o *Options) bar() progress.Option {
	if o.Progress == nil {
		return progress.Disabled()
	}
	return progress.WithWriter(o.Progress)
}

// History records a training run.
type History struct {
	RunID        string
	Loss         []float64 // Per optimizer step
	EpochLoss    []float64 // Mean loss per epoch
	TestAccuracy []float64 // Per epoch
	Duration     time.Duration
}

// Flatten normalizes images to [0, 1] and reshapes them to [N, 784].
func Flatten(images *tensor.Array[uint8]) (*tensor.Array[float32], error) {
	return tensor.Reshape(mnist.Normalize(images), tensor.Shape{-1, Features})
}

// Fit trains model on train for opts.Epochs epochs, evaluating on test
// after each one. Parameters are updated in place.
func Fit(ctx context.Context, model nn.Layer, train, test mnist.Split, opts Options) (*History, error) {
	opts.defaults()
	if train.Len() == 0 {
		return nil, fmt.Errorf("%w: train", ErrEmpty)
	}

	h := &History{RunID: uuid.NewString()}
	log := opts.Logger.With(zap.String("run", h.RunID))
	log.Info("training started",
		zap.Int("params", nn.Count(model)),
		zap.Int("examples", train.Len()),
		zap.Int("epochs", opts.Epochs),
		zap.Int("batch_size", opts.BatchSize),
	)

	start := time.Now()
	params := nn.Values(model.Parameters())
	state := opts.Optimizer.Init(params)
	key := opts.Key

	for epoch := range opts.Epochs {
		var shuffle random.Key
		key, shuffle = random.Split2(key)
		batches := mnist.Batches(shuffle, train.Len(), opts.BatchSize)

		var total float64
		desc := fmt.Sprintf("epoch %d/%d", epoch+1, opts.Epochs)
		err := progress.Range(ctx, len(batches), func(i int, bar *progress.Bar) error {
			batch, err := train.Subset(batches[i])
			if err != nil {
				return err
			}
			loss, err := step(model, batch, params, &state, opts.Optimizer)
			if err != nil {
				return fmt.Errorf("epoch %d step %d: %w", epoch+1, i, err)
			}
			h.Loss = append(h.Loss, loss)
			total += loss
			bar.SetPostfix("loss", loss)
			return nil
		}, progress.WithDescription(desc), opts.bar())
		if err != nil {
			return h, err
		}
		h.EpochLoss = append(h.EpochLoss, total/float64(len(batches)))

		acc := 0.0
		if test.Len() > 0 {
			if acc, err = Evaluate(ctx, model, test, opts.BatchSize, opts.EvalWorkers); err != nil {
				return h, err
			}
		}
		h.TestAccuracy = append(h.TestAccuracy, acc)
		log.Info("epoch done",
			zap.Int("epoch", epoch+1),
			zap.Float64("loss", h.EpochLoss[epoch]),
			zap.Float64("test_accuracy", acc),
		)
	}

	h.Duration = time.Since(start)
	log.Info("training finished", zap.Duration("duration", h.Duration))
	return h, nil
}

func step(model nn.Layer, batch mnist.Split, params []*tensor.Array[float32], state *optim.State, opt optim.GradientTransformation) (float64, error) {
	x, err := Flatten(batch.Images)
	if err != nil {
		return 0, err
	}
	labels := mnist.Labels(batch.Labels)

	loss, grads, err := autodiff.ValueAndGrad(func(tape *autodiff.Tape, _ []*autodiff.Var) *autodiff.Var {
		return autodiff.SoftmaxCrossEntropy(model.Forward(tape, tape.Const(x)), labels)
	}, params)
	if err != nil {
		return 0, err
	}
	updates, next, err := opt.Update(grads, *state, params)
	if err != nil {
		return 0, err
	}
	*state = next
	if err := optim.ApplyUpdates(params, updates); err != nil {
		return 0, err
	}
	return float64(loss), nil
}

// Evaluate returns the classification accuracy of model on split. Batches
// run concurrently on at most workers goroutines.
func Evaluate(ctx context.Context, model nn.Layer, split mnist.Split, batchSize, workers int) (float64, error) {
	n := split.Len()
	if n == 0 {
		return 0, fmt.Errorf("%w: eval", ErrEmpty)
	}
	if batchSize <= 0 {
		batchSize = n
	}

	var (
		mu      sync.Mutex
		correct float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for lo := 0; lo < n; lo += batchSize {
		hi := min(lo+batchSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			images, err := tensor.Slice(split.Images, lo, hi)
			if err != nil {
				return err
			}
			labels, err := tensor.Slice(split.Labels, lo, hi)
			if err != nil {
				return err
			}
			x, err := Flatten(images)
			if err != nil {
				return err
			}
			logits, err := Predict(model, x)
			if err != nil {
				return err
			}
			acc, err := autodiff.Accuracy(logits, mnist.Labels(labels))
			if err != nil {
				return err
			}
			mu.Lock()
			correct += acc * float64(hi-lo)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return correct / float64(n), nil
}

// Predict runs model on x without recording gradients. Shape errors are
// returned instead of panicking.
func Predict(model nn.Layer, x *tensor.Array[float32]) (logits *tensor.Array[float32], err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok || !errors.Is(perr, tensor.ErrShape) {
				panic(r)
			}
			err = fmt.Errorf("train: %w", perr)
		}
	}()
	return model.Forward(nil, autodiff.Const(x)).Value(), nil
}
