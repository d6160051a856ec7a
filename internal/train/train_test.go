package train_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/born-ml/nodekit/internal/config"
	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/nn"
	"github.com/born-ml/nodekit/internal/optim"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
	"github.com/born-ml/nodekit/internal/train"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func trainConfig(model string) config.TrainConfig {
	cfg := config.Defaults().Train
	cfg.Model = model
	cfg.Width = 16
	cfg.Steps = 2
	return cfg
}

func TestFlatten(t *testing.T) {
	split, _ := mnist.Synthetic(3)
	x, err := train.Flatten(split.Images)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 784}, x.Shape())
	assert.Equal(t, float32(1), x.At(0, 3*28+10))
}

func TestNewClassifier(t *testing.T) {
	mlp, err := train.NewClassifier(random.NewKey(0), trainConfig("mlp"))
	require.NoError(t, err)
	assert.Equal(t, 784*16+16+16*10+10, nn.Count(mlp))

	node, err := train.NewClassifier(random.NewKey(0), trainConfig("node"))
	require.NoError(t, err)
	var names []string
	for _, p := range node.Parameters() {
		names = append(names, p.Name())
	}
	assert.Contains(t, names, "layers.2.field.layers.0.weight")
	assert.Equal(t, "layers.3.bias", names[len(names)-1])

	_, err = train.NewClassifier(random.NewKey(0), trainConfig("cnn"))
	require.ErrorIs(t, err, nn.ErrConfig)

	bad := trainConfig("node")
	bad.Solver = "rk45"
	_, err = train.NewClassifier(random.NewKey(0), bad)
	require.ErrorIs(t, err, nn.ErrConfig)
}

func TestFit_MLPLearns(t *testing.T) {
	trainSplit, testSplit := mnist.Synthetic(200)
	model, err := train.NewClassifier(random.NewKey(1), trainConfig("mlp"))
	require.NoError(t, err)

	var out bytes.Buffer
	h, err := train.Fit(context.Background(), model, trainSplit, testSplit, train.Options{
		Epochs:    5,
		BatchSize: 20,
		Optimizer: optim.Adam(optim.AdamConfig{LR: 1e-2}),
		Key:       random.NewKey(2),
		Progress:  &out,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(h.RunID)
	require.NoError(t, err)
	assert.Len(t, h.Loss, 50)
	assert.Len(t, h.EpochLoss, 5)
	assert.Len(t, h.TestAccuracy, 5)
	assert.Less(t, h.EpochLoss[4], h.EpochLoss[0])
	assert.GreaterOrEqual(t, h.TestAccuracy[4], 0.5)
	assert.Contains(t, out.String(), "epoch 5/5")
}

func TestFit_NeuralODE(t *testing.T) {
	trainSplit, testSplit := mnist.Synthetic(20)
	cfg := trainConfig("node")
	cfg.Width = 8
	model, err := train.NewClassifier(random.NewKey(3), cfg)
	require.NoError(t, err)

	before := append([]float32(nil), model.Parameters()[0].Value().Data()...)
	h, err := train.Fit(context.Background(), model, trainSplit, testSplit, train.Options{BatchSize: 10})
	require.NoError(t, err)
	assert.Len(t, h.Loss, 2)
	assert.NotEqual(t, before, model.Parameters()[0].Value().Data())
}

func TestFit_Cancelled(t *testing.T) {
	trainSplit, testSplit := mnist.Synthetic(20)
	model, err := train.NewClassifier(random.NewKey(0), trainConfig("mlp"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = train.Fit(ctx, model, trainSplit, testSplit, train.Options{})
	require.ErrorIs(t, err, context.Canceled)

	_, err = train.Fit(context.Background(), model, mnist.Split{}, testSplit, train.Options{})
	require.ErrorIs(t, err, train.ErrEmpty)
}

func TestEvaluate(t *testing.T) {
	_, testSplit := mnist.Synthetic(50)
	model, err := train.NewClassifier(random.NewKey(0), trainConfig("mlp"))
	require.NoError(t, err)

	acc, err := train.Evaluate(context.Background(), model, testSplit, 3, 2)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.0)
	assert.LessOrEqual(t, acc, 1.0)

	small, err := nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 10, Out: 10})
	require.NoError(t, err)
	_, err = train.Evaluate(context.Background(), small, testSplit, 4, 2)
	require.ErrorIs(t, err, tensor.ErrShape)
}
