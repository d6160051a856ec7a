// Package notebook prepares a neural-ODE experiment session: it seeds the
// root PRNG key and loads the digit dataset into four bindings.
package notebook

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/born-ml/nodekit/internal/config"
	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/logging"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

// ErrEmpty is returned by Validate when a binding is missing or empty.
var ErrEmpty = errors.New("notebook: empty binding")

// Session holds the state produced by Setup.
type Session struct {
	Key random.Key

	XTrain *tensor.Array[uint8] // [N, 28, 28]
	YTrain *tensor.Array[uint8] // [N]
	XTest  *tensor.Array[uint8] // [M, 28, 28]
	YTest  *tensor.Array[uint8] // [M]
}

// Train returns the training split.
func (s *Session) Train() mnist.Split {
	return mnist.Split{Images: s.XTrain, Labels: s.YTrain}
}

// Test returns the test split.
func (s *Session) Test() mnist.Split {
	return mnist.Split{Images: s.XTest, Labels: s.YTest}
}

// Setup seeds the root key from cfg.Seed and loads the dataset. A nil cfg
// means config.Load(""). With
// cfg.Dataset.Synthetic > 0 the dataset is generated instead of downloaded.
// extra options are passed to mnist.LoadData after those derived from cfg.
func Setup(ctx context.Context, cfg *config.Config, logger *zap.Logger, extra ...mnist.Option) (*Session, error) {
	logger = logging.OrNop(logger)
	if cfg == nil {
		var err error
		if cfg, err = config.Load(""); err != nil {
			return nil, err
		}
	}

	var train, test mnist.Split
	if n := cfg.Dataset.Synthetic; n > 0 {
		logger.Info("using synthetic dataset", zap.Int("examples", n))
		train, test = mnist.Synthetic(n)
	} else {
		opts := []mnist.Option{
			mnist.WithSource(mnist.Source(cfg.Dataset.Source)),
			mnist.WithCacheDir(cfg.Dataset.CacheDir),
			mnist.WithLogger(logger),
		}
		if cfg.Dataset.Origin != "" {
			opts = append(opts, mnist.WithOrigin(cfg.Dataset.Origin))
		}
		var err error
		train, test, err = mnist.LoadData(ctx, append(opts, extra...)...)
		if err != nil {
			return nil, fmt.Errorf("notebook: load dataset: %w", err)
		}
	}

	s := &Session{Key: random.NewKey(cfg.Seed)}
	s.XTrain, s.YTrain = train.Unpack()
	s.XTest, s.YTest = test.Unpack()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	logger.Info("session ready",
		zap.Int64("seed", cfg.Seed),
		zap.Stringer("x_train", s.XTrain.Shape()),
		zap.Stringer("y_train", s.YTrain.Shape()),
		zap.Stringer("x_test", s.XTest.Shape()),
		zap.Stringer("y_test", s.YTest.Shape()),
	)
	return s, nil
}

// Validate checks that the four bindings exist and are non-empty, and that
// image and label counts agree.
func (s *Session) Validate() error {
	bindings := []struct {
		name string
		a    *tensor.Array[uint8]
	}{
		{"x_train", s.XTrain}, {"y_train", s.YTrain},
		{"x_test", s.XTest}, {"y_test", s.YTest},
	}
	for _, b := range bindings {
		if b.a == nil || b.a.Size() == 0 {
			return fmt.Errorf("%w: %s", ErrEmpty, b.name)
		}
	}
	if s.XTrain.Dim(0) != s.YTrain.Dim(0) || s.XTest.Dim(0) != s.YTest.Dim(0) {
		return fmt.Errorf("%w: images and labels disagree: train %d/%d, test %d/%d", tensor.ErrShape,
			s.XTrain.Dim(0), s.YTrain.Dim(0), s.XTest.Dim(0), s.YTest.Dim(0))
	}
	return nil
}
